package fence

import (
	gocontext "context"
	"fmt"
	"io"
	"time"

	"github.com/ablecloud-io/fence/context"
	"github.com/ablecloud-io/fence/metrics"
	"github.com/ablecloud-io/fence/power"
	"github.com/mitchellh/multistep"
	"github.com/sirupsen/logrus"
)

const defaultPollInterval = time.Second

// PowerController is the part of power.Controller driven by the agent.
type PowerController interface {
	GetPowerStatus(gocontext.Context, string) (power.Status, error)
	SetPowerStatus(gocontext.Context, power.ActionRequest) error
}

// AgentConfig holds the per-invocation settings of an Agent.
type AgentConfig struct {
	Action power.Action
	VMID   string

	Delay        time.Duration
	PowerTimeout time.Duration
	PowerWait    time.Duration
	RetryOn      int
}

// Agent runs a single fence action against one VM and reports the outcome
// the way fence agents do: a line on stdout or stderr and an exit code.
type Agent struct {
	controller PowerController
	cfg        AgentConfig

	stdout io.Writer
	stderr io.Writer

	pollInterval time.Duration
}

func NewAgent(controller PowerController, cfg *AgentConfig, stdout, stderr io.Writer) *Agent {
	a := &Agent{
		controller:   controller,
		cfg:          *cfg,
		stdout:       stdout,
		stderr:       stderr,
		pollInterval: defaultPollInterval,
	}

	if a.cfg.RetryOn < 1 {
		a.cfg.RetryOn = 1
	}

	return a
}

// Run executes the action and returns the exit code for the process.
func (a *Agent) Run(ctx gocontext.Context) ExitCode {
	ctx = context.FromAction(ctx, string(a.cfg.Action))
	ctx = context.FromVMID(ctx, a.cfg.VMID)
	ctx = context.FromComponent(ctx, "agent")
	logger := context.LoggerFromContext(ctx)

	startTime := time.Now()
	defer metrics.TimeSince(fmt.Sprintf("fence.action.%s", a.cfg.Action), startTime)

	if _, ok := power.ParseAction(string(a.cfg.Action)); !ok {
		logger.WithField("action", a.cfg.Action).Error("unknown action")
		fmt.Fprintf(a.stderr, "Failed: Unrecognised action '%s'\n", a.cfg.Action)
		metrics.Mark("fence.action.failure")
		return ExitBadArgs
	}

	state := new(multistep.BasicStateBag)
	state.Put("ctx", ctx)
	state.Put("request", power.ActionRequest{Action: a.cfg.Action, VMID: a.cfg.VMID})
	state.Put("stdout", a.stdout)
	state.Put("stderr", a.stderr)

	steps := []multistep.Step{
		&stepDelay{delay: a.cfg.Delay},
		&stepGetStatus{controller: a.controller},
		&stepSetPower{
			controller:   a.controller,
			powerWait:    a.cfg.PowerWait,
			powerTimeout: a.cfg.PowerTimeout,
			pollInterval: a.pollInterval,
			retryOn:      a.cfg.RetryOn,
		},
	}

	runner := &multistep.BasicRunner{Steps: steps}

	logger.Debug("running action steps")
	runner.Run(state)

	code, ok := state.Get("exitCode").(ExitCode)
	if !ok {
		code = ExitOK
	}

	if code == ExitOK || (a.cfg.Action == power.ActionStatus && code == ExitStatusOff) {
		metrics.Mark("fence.action.success")
	} else {
		metrics.Mark("fence.action.failure")
	}

	logger.WithFields(logrus.Fields{
		"exit_code": int(code),
		"duration":  time.Since(startTime),
	}).Info("finished action")

	return code
}

// succeed prints msg, if any, on stdout and stops the pipeline with code.
func succeed(state multistep.StateBag, code ExitCode, msg string) multistep.StepAction {
	if msg != "" {
		fmt.Fprintln(state.Get("stdout").(io.Writer), msg)
	}
	state.Put("exitCode", code)
	return multistep.ActionHalt
}

// halt reports a failure on stderr and stops the pipeline with code. A
// non-nil err is logged and sent to Sentry.
func halt(state multistep.StateBag, code ExitCode, err error) multistep.StepAction {
	ctx := state.Get("ctx").(gocontext.Context)

	if err != nil {
		context.LoggerFromContext(ctx).WithFields(logrus.Fields{
			"err":       err,
			"exit_code": int(code),
		}).Error("action failed")
		context.CaptureError(ctx, err)
	}

	fmt.Fprintf(state.Get("stderr").(io.Writer), "Failed: %s\n", code.Message())
	state.Put("exitCode", code)
	return multistep.ActionHalt
}

// sleep waits for d or until ctx is done.
func sleep(ctx gocontext.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
