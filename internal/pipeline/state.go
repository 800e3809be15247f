package pipeline

import (
	"github.com/KaramelBytes/csvinsight-cli/internal/dataset"
	"github.com/KaramelBytes/csvinsight-cli/internal/prompt"
)

// State is threaded through every stage of one turn. It is created fresh per
// question; only conversation memory outlives it.
type State struct {
	TurnID    string
	SessionID string
	WorkDir   string
	Question  string
	Schema    []dataset.Column
	DataInfo  dataset.Info
	Snapshot  []byte

	Mode prompt.Mode
	// Code is set only in code mode, after validation.
	Code string
	// RawCompletion is the unprocessed completion text.
	RawCompletion  string
	RawOutput      string
	ExecutionError bool
	FinalAnswer    string
	Image          []byte
}

// Result is what a turn hands back to the caller.
type Result struct {
	TurnID         string      `json:"turn_id"`
	FinalAnswer    string      `json:"final_answer"`
	Image          []byte      `json:"-"`
	Code           string      `json:"code,omitempty"`
	Mode           prompt.Mode `json:"mode"`
	ExecutionError bool        `json:"execution_error"`
}

func (s *State) result() *Result {
	return &Result{
		TurnID:         s.TurnID,
		FinalAnswer:    s.FinalAnswer,
		Image:          s.Image,
		Code:           s.Code,
		Mode:           s.Mode,
		ExecutionError: s.ExecutionError,
	}
}
