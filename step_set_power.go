package fence

import (
	gocontext "context"
	"time"

	"github.com/ablecloud-io/fence/context"
	"github.com/ablecloud-io/fence/power"
	"github.com/cenk/backoff"
	"github.com/mitchellh/multistep"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var errStatusPending = errors.New("power status not reached yet")

// stepSetPower changes the power state for on, off and reboot and waits for
// the VM to report the target status.
type stepSetPower struct {
	controller PowerController

	powerWait    time.Duration
	powerTimeout time.Duration
	pollInterval time.Duration
	retryOn      int
}

func (s *stepSetPower) Run(state multistep.StateBag) multistep.StepAction {
	ctx := state.Get("ctx").(gocontext.Context)
	req := state.Get("request").(power.ActionRequest)

	switch req.Action {
	case power.ActionOn:
		ok, err := s.setPower(ctx, req.VMID, power.ActionOn, s.retryOn)
		if err != nil {
			return halt(state, exitCodeFor(err), err)
		}
		if !ok {
			return halt(state, ExitWaitingOn, nil)
		}
		return succeed(state, ExitOK, "Success: Powered ON")
	case power.ActionOff:
		ok, err := s.setPower(ctx, req.VMID, power.ActionOff, 1)
		if err != nil {
			return halt(state, exitCodeFor(err), err)
		}
		if !ok {
			return halt(state, ExitWaitingOff, nil)
		}
		return succeed(state, ExitOK, "Success: Powered OFF")
	case power.ActionReboot:
		return s.reboot(ctx, state, req.VMID)
	}

	return multistep.ActionContinue
}

func (s *stepSetPower) Cleanup(state multistep.StateBag) {
}

func (s *stepSetPower) reboot(ctx gocontext.Context, state multistep.StateBag, vmID string) multistep.StepAction {
	status, _ := state.Get("status").(power.Status)

	if status != power.StatusOff {
		ok, err := s.setPower(ctx, vmID, power.ActionOff, 1)
		if err != nil {
			return halt(state, exitCodeFor(err), err)
		}
		if !ok {
			return halt(state, ExitWaitingOff, nil)
		}
	}

	ok, err := s.setPower(ctx, vmID, power.ActionOn, s.retryOn)
	if err != nil {
		return halt(state, exitCodeFor(err), err)
	}
	if !ok {
		return halt(state, ExitTimedOut, nil)
	}

	return succeed(state, ExitOK, "Success: Rebooted")
}

// setPower issues action up to attempts times, each followed by the power
// wait and a wait for the matching status. It reports whether the status was
// reached.
func (s *stepSetPower) setPower(ctx gocontext.Context, vmID string, action power.Action, attempts int) (bool, error) {
	target := power.StatusOn
	if action == power.ActionOff {
		target = power.StatusOff
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		logger := context.LoggerFromContext(ctx).WithFields(logrus.Fields{
			"attempt": attempt,
			"target":  target,
		})
		logger.Info("setting power status")

		err := s.controller.SetPowerStatus(ctx, power.ActionRequest{Action: action, VMID: vmID})
		if err != nil {
			return false, err
		}

		if err := sleep(ctx, s.powerWait); err != nil {
			return false, err
		}

		ok, err := s.waitForStatus(ctx, vmID, target)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}

		logger.Warn("timed out waiting for power status")
	}

	return false, nil
}

// waitForStatus polls the power status every pollInterval until it equals
// target or powerTimeout has elapsed. A failed query or a cancelled context
// ends the wait with an error.
func (s *stepSetPower) waitForStatus(ctx gocontext.Context, vmID string, target power.Status) (bool, error) {
	var waitErr error

	check := func() error {
		if err := ctx.Err(); err != nil {
			waitErr = err
			return nil
		}

		status, err := s.controller.GetPowerStatus(ctx, vmID)
		if err != nil {
			waitErr = err
			return nil
		}
		if status != target {
			return errStatusPending
		}
		return nil
	}

	if s.powerTimeout <= 0 {
		err := check()
		return err == nil && waitErr == nil, waitErr
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.pollInterval
	b.MaxInterval = s.pollInterval
	b.Multiplier = 1
	b.RandomizationFactor = 0
	b.MaxElapsedTime = s.powerTimeout

	err := backoff.Retry(check, b)
	if waitErr != nil {
		return false, waitErr
	}

	return err == nil, nil
}

// exitCodeFor maps an error raised while changing power state. The fatal
// status signal of the controller becomes ExitStatus, anything else is an
// unexpected failure.
func exitCodeFor(err error) ExitCode {
	if _, ok := err.(*power.StatusFailure); ok {
		return ExitStatus
	}
	return ExitGeneric
}
