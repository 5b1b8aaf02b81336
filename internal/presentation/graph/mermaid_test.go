package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/curriculum/pkg/schedule"
)

func TestGenerateMermaid(t *testing.T) {
	s := schedule.Schedule{Checkpoints: []float64{0.5, 1, 2}, TimeMax: 2, InitialBudget: 10, BudgetDecrement: 6}

	out := GenerateMermaid(s, 0, nil)

	assert.True(t, strings.HasPrefix(out, "graph LR\n"))
	assert.Contains(t, out, `r1["round 1 <br/> t ≤ 0.5 <br/> budget 10"]`)
	assert.Contains(t, out, `r2["round 2 <br/> t ≤ 1 <br/> budget 4"]`)
	assert.Contains(t, out, `r3["round 3 <br/> t ≤ 2 <br/> budget 1"]`)
	assert.Contains(t, out, "start --> r1")
	assert.Contains(t, out, "r2 --> r3")
	assert.NotContains(t, out, "warmup")
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Warmup(t *testing.T) {
	s := schedule.Schedule{Checkpoints: []float64{1}, TimeMax: 1, InitialBudget: 5}

	out := GenerateMermaid(s, 200, nil)

	assert.Contains(t, out, `warmup[["warm-up <br/> t ≤ 1 <br/> 200 iters"]]`)
	assert.Contains(t, out, "start --> warmup")
	assert.Contains(t, out, "warmup --> r1")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	s := schedule.Schedule{Checkpoints: []float64{0.4, 0.8, 1.2, 1.6, 2}, TimeMax: 2, InitialBudget: 5}

	out := GenerateMermaid(s, 0, &Overlay{Completed: 2, Failed: 3})

	assert.Contains(t, out, "class r1 done;")
	assert.Contains(t, out, "class r2 done;")
	assert.Contains(t, out, "class r3 failed;")
	assert.NotContains(t, out, "class r4")
}
