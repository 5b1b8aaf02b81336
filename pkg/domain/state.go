package domain

import "time"

// TrainingState is the snapshot carried from one round to the next.
type TrainingState struct {
	// RunID identifies the run for persistence and logging.
	RunID string `json:"run_id"`

	// Parameters is the warm-start vector handed to the next round.
	Parameters []float64 `json:"parameters"`

	// IterationBudget is the solver iteration limit for the next round. Never below MinIterationBudget.
	IterationBudget int `json:"iteration_budget"`

	// RoundIndex counts completed rounds.
	RoundIndex int `json:"round_index"`

	// TimeUpper is the upper time bound of the last completed round (0 before any round).
	TimeUpper float64 `json:"time_upper"`

	// LastLoss is the final loss reported for the last completed round.
	LastLoss float64 `json:"last_loss"`

	// History records a summary of every completed round.
	History []RoundRecord `json:"history,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`

	// Sealed carries the encrypted snapshot when the state went through an
	// encrypting store. Parameters and History are empty in that case.
	Sealed string `json:"sealed,omitempty"`
}

// RoundRecord summarizes one completed round.
type RoundRecord struct {
	Round      int     `json:"round"`
	TimeUpper  float64 `json:"time_upper"`
	Budget     int     `json:"budget"`
	Iterations int     `json:"iterations"`
	Loss       float64 `json:"loss"`
}

// NewTrainingState creates the state a run starts from.
func NewTrainingState(runID string, params []float64, budget int) *TrainingState {
	return &TrainingState{
		RunID:           runID,
		Parameters:      append([]float64(nil), params...),
		IterationBudget: budget,
		UpdatedAt:       time.Now(),
	}
}

// Clone returns a deep copy so callers cannot alias the trainer's vectors.
func (s *TrainingState) Clone() *TrainingState {
	if s == nil {
		return nil
	}
	c := *s
	c.Parameters = append([]float64(nil), s.Parameters...)
	c.History = append([]RoundRecord(nil), s.History...)
	return &c
}

// TrainingResult is what a solver returns after one round.
type TrainingResult struct {
	Parameters []float64
	FinalLoss  float64

	// Iterations is the number of optimizer steps actually taken.
	Iterations int

	// Domain is the region the round was trained on.
	Domain DomainSpec
}
