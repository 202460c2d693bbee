package fence

import (
	"testing"

	"github.com/mitchellh/multistep"
	"github.com/stretchr/testify/assert"
)

var (
	_ multistep.Step = &stepDelay{}
	_ multistep.Step = &stepGetStatus{}
	_ multistep.Step = &stepSetPower{}
)

func TestStepSetPower_CleanupLeavesStateAlone(t *testing.T) {
	state := &multistep.BasicStateBag{}
	state.Put("exitCode", ExitWaitingOn)

	var step multistep.Step = &stepSetPower{}
	step.Cleanup(state)

	assert.Equal(t, ExitWaitingOn, state.Get("exitCode"))
}
