package agent

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTracker(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	assert.False(t, tr.IsCompleted(StepClickMainSearch))

	tr.MarkCompleted(StepClickMainSearch)
	tr.MarkCompleted(StepEnterAd)
	tr.MarkCompleted(StepInputNovelName)
	tr.MarkCompleted(StepClickMainSearch)
	assert.Equal(t, []Step{StepClickMainSearch, StepEnterAd, StepInputNovelName}, tr.Completed())

	tr.ResetScope(ScopeScreen)
	assert.False(t, tr.IsCompleted(StepEnterAd))
	assert.Equal(t, []Step{StepClickMainSearch, StepInputNovelName}, tr.Completed())

	tr.ResetAll()
	assert.Empty(t, tr.Completed())
	assert.False(t, tr.IsCompleted(StepClickMainSearch))
}

func TestTrackerCompletedIsACopy(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	tr.MarkCompleted(StepEnterAd)
	got := tr.Completed()
	got[0] = StepClickStartReading
	assert.Equal(t, []Step{StepEnterAd}, tr.Completed())
}

func TestStepNamesAndScopes(t *testing.T) {
	cases := []struct {
		step  Step
		name  string
		scope Scope
	}{
		{StepDismissAddToHome, "dismiss_add_to_home", ScopeScreen},
		{StepEnterAd, "enter_ad", ScopeScreen},
		{StepClickMainSearch, "click_main_search", ScopeWorkflow},
		{StepFindAndClickNovel, "find_and_click_novel", ScopeWorkflow},
		{StepClickStartReading, "click_start_reading", ScopeWorkflow},
		{Step(99), "step(99)", ScopeWorkflow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.name, tc.step.String())
			assert.Equal(t, tc.scope, tc.step.Scope())
		})
	}
}
