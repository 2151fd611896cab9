package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportSessionMachine(t *testing.T) {
	sm := NewReportSessionMachine()

	assert.True(t, sm.CanTransition("new", "editing"))
	assert.True(t, sm.CanTransition("editing", "saved"))
	assert.True(t, sm.CanTransition("saved", "editing"))
	assert.False(t, sm.CanTransition("discarded", "editing"))
	assert.False(t, sm.CanTransition("unknown", "editing"))

	assert.NoError(t, sm.Transition("new", "discarded"))
	assert.Error(t, sm.Transition("discarded", "saved"))
	assert.Error(t, sm.Transition("discarded", "discarded"))
}
