package fence

import (
	gocontext "context"
	"time"

	"github.com/ablecloud-io/fence/context"
	"github.com/ablecloud-io/fence/power"
	"github.com/mitchellh/multistep"
)

// stepDelay waits before fencing so that two nodes fencing each other do not
// act at the same moment. It only applies to actions that can power off.
type stepDelay struct {
	delay time.Duration
}

func (s *stepDelay) Run(state multistep.StateBag) multistep.StepAction {
	ctx := state.Get("ctx").(gocontext.Context)
	req := state.Get("request").(power.ActionRequest)

	if s.delay <= 0 || (req.Action != power.ActionOff && req.Action != power.ActionReboot) {
		return multistep.ActionContinue
	}

	context.LoggerFromContext(ctx).WithField("delay", s.delay).Info("delaying action")

	if err := sleep(ctx, s.delay); err != nil {
		return halt(state, ExitGeneric, err)
	}

	return multistep.ActionContinue
}

func (s *stepDelay) Cleanup(state multistep.StateBag) {
}
