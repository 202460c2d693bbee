package fence

import (
	gocontext "context"

	"github.com/ablecloud-io/fence/context"
	"github.com/ablecloud-io/fence/power"
	"github.com/mitchellh/multistep"
)

type stepGetStatus struct {
	controller PowerController
}

func (s *stepGetStatus) Run(state multistep.StateBag) multistep.StepAction {
	ctx := state.Get("ctx").(gocontext.Context)
	req := state.Get("request").(power.ActionRequest)

	status, err := s.controller.GetPowerStatus(ctx, req.VMID)
	if err != nil {
		return halt(state, ExitGeneric, err)
	}

	context.LoggerFromContext(ctx).WithField("status", status).Info("got power status")

	if status != power.StatusOn && status != power.StatusOff {
		return halt(state, ExitStatus, nil)
	}

	state.Put("status", status)

	switch req.Action {
	case power.ActionStatus:
		if status == power.StatusOff {
			return succeed(state, ExitStatusOff, "Status: OFF")
		}
		return succeed(state, ExitOK, "Status: ON")
	case power.ActionMonitor:
		return succeed(state, ExitOK, "")
	case power.ActionOn:
		if status == power.StatusOn {
			return succeed(state, ExitOK, "Success: Already ON")
		}
	case power.ActionOff:
		if status == power.StatusOff {
			return succeed(state, ExitOK, "Success: Already OFF")
		}
	}

	return multistep.ActionContinue
}

func (s *stepGetStatus) Cleanup(state multistep.StateBag) {
}
