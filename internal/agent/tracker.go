package agent

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Step identifies one idempotent action of the search/read workflow.
type Step int

const (
	StepDismissAddToHome Step = iota + 1
	StepEnterAd
	StepClickMainSearch
	StepInputNovelName
	StepClickSearchButton
	StepFindAndClickNovel
	StepClickStartReading
)

// Scope says when a completed step becomes pending again.
type Scope int

const (
	// ScopeWorkflow steps persist across screens until a new search target arrives.
	ScopeWorkflow Scope = iota
	// ScopeScreen steps reset whenever the active window changes.
	ScopeScreen
)

var steps = map[Step]struct {
	name  string
	scope Scope
}{
	StepDismissAddToHome:  {"dismiss_add_to_home", ScopeScreen},
	StepEnterAd:           {"enter_ad", ScopeScreen},
	StepClickMainSearch:   {"click_main_search", ScopeWorkflow},
	StepInputNovelName:    {"input_novel_name", ScopeWorkflow},
	StepClickSearchButton: {"click_search_button", ScopeWorkflow},
	StepFindAndClickNovel: {"find_and_click_novel", ScopeWorkflow},
	StepClickStartReading: {"click_start_reading", ScopeWorkflow},
}

func (s Step) String() string {
	if info, ok := steps[s]; ok {
		return info.name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Scope of the step; unknown steps are workflow-scoped.
func (s Step) Scope() Scope {
	return steps[s].scope
}

// Tracker records which workflow steps are complete. It is only touched from
// the dispatch queue, so it carries no lock.
type Tracker struct {
	done   map[Step]bool
	order  []Step
	logger zerolog.Logger
}

func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{done: make(map[Step]bool), logger: logger}
}

func (t *Tracker) IsCompleted(step Step) bool {
	return t.done[step]
}

func (t *Tracker) MarkCompleted(step Step) {
	if t.done[step] {
		return
	}
	t.done[step] = true
	t.order = append(t.order, step)
	t.logger.Info().Stringer("step", step).Msg("step completed")
}

// ResetAll makes every step pending again.
func (t *Tracker) ResetAll() {
	t.logger.Info().Int("completed", len(t.order)).Msg("resetting all steps")
	t.done = make(map[Step]bool)
	t.order = nil
}

// ResetScope makes the steps of one scope pending again.
func (t *Tracker) ResetScope(scope Scope) {
	kept := t.order[:0]
	for _, s := range t.order {
		if s.Scope() == scope {
			delete(t.done, s)
			continue
		}
		kept = append(kept, s)
	}
	t.order = kept
}

// Completed lists completed steps in the order they were marked.
func (t *Tracker) Completed() []Step {
	return append([]Step(nil), t.order...)
}
