package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/curriculum/pkg/schedule"
)

// Overlay marks run progress on the chart.
type Overlay struct {
	// Completed is the number of finished rounds.
	Completed int
	// Failed is the round that failed, 0 if none.
	Failed int
}

// GenerateMermaid draws the schedule as a left-to-right Mermaid flowchart:
// a start node, then one node per round labelled with its time bound and budget.
// Shapes:
// - Start: ((Circle))
// - Warm-up: [[Subroutine]]
// - Round: [Rectangle]
func GenerateMermaid(s schedule.Schedule, warmup int, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")
	sb.WriteString("    start((\"start\"))\n")

	prev := "start"
	if warmup > 0 {
		fmt.Fprintf(&sb, "    warmup[[\"warm-up <br/> t ≤ %g <br/> %d iters\"]]\n", s.TimeMax, warmup)
		fmt.Fprintf(&sb, "    %s --> warmup\n", prev)
		prev = "warmup"
	}

	budgets := s.Budgets()
	for i, t := range s.Checkpoints {
		id := roundID(i + 1)
		fmt.Fprintf(&sb, "    %s[\"round %d <br/> t ≤ %g <br/> budget %d\"]\n", id, i+1, t, budgets[i])
		fmt.Fprintf(&sb, "    %s --> %s\n", prev, id)
		prev = id
	}

	if overlay != nil {
		sb.WriteString("\n    %% Progress\n")
		// Force black text (color:#000) so the chart reads on light and dark themes alike.
		sb.WriteString("    classDef done fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#c62828,stroke-width:4px,color:#000;\n")
		for r := 1; r <= overlay.Completed && r <= len(s.Checkpoints); r++ {
			fmt.Fprintf(&sb, "    class %s done;\n", roundID(r))
		}
		if overlay.Failed > 0 && overlay.Failed <= len(s.Checkpoints) {
			fmt.Fprintf(&sb, "    class %s failed;\n", roundID(overlay.Failed))
		}
	}

	return sb.String()
}

func roundID(round int) string {
	return fmt.Sprintf("r%d", round)
}
