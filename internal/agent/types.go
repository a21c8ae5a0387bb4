// Package agent drives the reason, act, observe loop: bounded trajectories
// of LLM thinking, validated tool execution, reflection on failure, and
// synthesis of a final answer.
package agent

import (
	"fmt"
	"math"
	"time"

	"orbit/internal/memory"
	"orbit/internal/tools"
)

// Status of a trajectory. Terminal states are sticky; once a trajectory
// leaves running it is never re-entered.
type Status string

const (
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusTerminated Status = "terminated"
	StatusFailed     Status = "failed"
)

// StepType labels what a step records.
type StepType string

const (
	StepThought     StepType = "thought"
	StepAction      StepType = "action"
	StepObservation StepType = "observation"
	StepReflection  StepType = "reflection"
	StepSynthesis   StepType = "synthesis"
)

// Step is one entry in a trajectory.
type Step struct {
	StepNumber int
	Timestamp  time.Time
	Type       StepType
	Content    string
	TokenCount int

	// Set for action steps only.
	ToolCall   *tools.ToolCall
	ToolResult *tools.CallResult
}

// TokenTotals tracks cumulative usage for one trajectory.
type TokenTotals struct {
	Input  int
	Output int
}

func (t TokenTotals) Sum() int { return t.Input + t.Output }

// Trajectory is the full record of one agent run.
type Trajectory struct {
	RequestID   string
	Goal        string
	Steps       []Step
	Status      Status
	TotalTokens TokenTotals
	Efficiency  float64

	// Reflections accumulated in episodic memory during the run, kept so
	// callers can persist them alongside the trace.
	Reflections []memory.Reflection
}

func (tr *Trajectory) addStep(stepType StepType, content string, tokenCount int) *Step {
	tr.Steps = append(tr.Steps, Step{
		StepNumber: len(tr.Steps) + 1,
		Timestamp:  time.Now(),
		Type:       stepType,
		Content:    content,
		TokenCount: tokenCount,
	})
	return &tr.Steps[len(tr.Steps)-1]
}

func (tr *Trajectory) countSteps(stepType StepType) int {
	n := 0
	for _, s := range tr.Steps {
		if s.Type == stepType {
			n++
		}
	}
	return n
}

func (tr *Trajectory) lastStep(stepType StepType) *Step {
	for i := len(tr.Steps) - 1; i >= 0; i-- {
		if tr.Steps[i].Type == stepType {
			return &tr.Steps[i]
		}
	}
	return nil
}

// computeEfficiency scores the trajectory against a heuristic optimum of
// roughly half the action count plus one, capped at 3. A quality signal,
// not a correctness measure.
func computeEfficiency(tr *Trajectory) float64 {
	actual := tr.countSteps(StepThought)
	if actual == 0 {
		return 0
	}
	actions := tr.countSteps(StepAction)
	optimal := math.Min(3, math.Ceil(float64(actions)/2)+1)
	return optimal / float64(actual)
}

// FinalResponse extracts the best available answer from a trajectory. The
// fallback chain guarantees a non-empty string whatever happened: synthesis,
// then latest observation, then latest thought, then a bare status notice.
func FinalResponse(tr Trajectory) string {
	if s := tr.lastStep(StepSynthesis); s != nil && s.Content != "" {
		return s.Content
	}
	if s := tr.lastStep(StepObservation); s != nil && s.Content != "" {
		return fmt.Sprintf("[Partial Result - %s] %s", tr.Status, s.Content)
	}
	if s := tr.lastStep(StepThought); s != nil && s.Content != "" {
		return fmt.Sprintf("[Incomplete - %s] %s", tr.Status, s.Content)
	}
	return fmt.Sprintf("[No result - %s]", tr.Status)
}
