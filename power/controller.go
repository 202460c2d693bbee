package power

import (
	gocontext "context"
	"encoding/json"
	"fmt"

	"github.com/ablecloud-io/fence/context"
	fenceerrors "github.com/ablecloud-io/fence/errors"
	"github.com/ablecloud-io/fence/metrics"
	"github.com/ablecloud-io/fence/mold"
	simplejson "github.com/bitly/go-simplejson"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	commandListVirtualMachines = "listVirtualMachines"
	commandStopVirtualMachine  = "stopVirtualMachine"
	commandStartVirtualMachine = "startVirtualMachine"
)

// StatusFailure is the single fatal signal produced by SetPowerStatus. The
// cause is kept for logging but callers are not expected to distinguish
// between causes.
type StatusFailure struct {
	Action Action
	VMID   string
	err    error
}

func (f *StatusFailure) Error() string {
	return fmt.Sprintf("failed to power %s %s: %v", f.Action, f.VMID, f.err)
}

func (f *StatusFailure) Cause() error {
	return f.err
}

func (f *StatusFailure) Unwrap() error {
	return f.err
}

// Controller queries and changes VM power state. It holds no state between
// calls.
type Controller struct {
	client Client
}

func NewController(client Client) *Controller {
	return &Controller{client: client}
}

func (c *Controller) call(ctx gocontext.Context, command, vmID string) (*simplejson.Json, error) {
	return c.client.Call(context.FromVMID(ctx, vmID), mold.NewRequest(command).Set("id", vmID))
}

// QueryStatus returns the state of the first VM in the list response for
// vmID.
func (c *Controller) QueryStatus(ctx gocontext.Context, vmID string) (VMState, error) {
	js, err := c.call(ctx, commandListVirtualMachines, vmID)
	if err != nil {
		return VMStateUnknown, err
	}

	vms, err := js.GetPath("listvirtualmachinesresponse", "virtualmachine").Array()
	if err != nil || len(vms) == 0 {
		return VMStateUnknown, fenceerrors.NewResponseShapeError(commandListVirtualMachines,
			errors.Errorf("no virtualmachine in response for id %q", vmID))
	}

	state, err := js.GetPath("listvirtualmachinesresponse", "virtualmachine").GetIndex(0).Get("state").String()
	if err != nil {
		return VMStateUnknown, fenceerrors.NewResponseShapeError(commandListVirtualMachines,
			errors.Wrap(err, "virtualmachine[0].state missing or not a string"))
	}

	return ParseVMState(state), nil
}

// Stop issues stopVirtualMachine and returns the job id.
func (c *Controller) Stop(ctx gocontext.Context, vmID string) (string, error) {
	return c.jobCommand(ctx, commandStopVirtualMachine, "stopvirtualmachineresponse", vmID)
}

// Start issues startVirtualMachine and returns the job id.
func (c *Controller) Start(ctx gocontext.Context, vmID string) (string, error) {
	return c.jobCommand(ctx, commandStartVirtualMachine, "startvirtualmachineresponse", vmID)
}

func (c *Controller) jobCommand(ctx gocontext.Context, command, responseKey, vmID string) (string, error) {
	js, err := c.call(ctx, command, vmID)
	if err != nil {
		return "", err
	}

	switch jobID := js.GetPath(responseKey, "jobid").Interface().(type) {
	case string:
		return jobID, nil
	case json.Number:
		return jobID.String(), nil
	default:
		return "", fenceerrors.NewResponseShapeError(command,
			errors.Errorf("%s.jobid missing", responseKey))
	}
}

// PowerStatus maps QueryStatus to on, off or unknown.
func (c *Controller) PowerStatus(ctx gocontext.Context, vmID string) (Status, error) {
	state, err := c.QueryStatus(ctx, vmID)
	if err != nil {
		return StatusUnknown, err
	}
	return state.Status(), nil
}

// GetPowerStatus is the status entry point of the agent. Errors are returned
// as-is, an unreadable response is never turned into StatusUnknown.
func (c *Controller) GetPowerStatus(ctx gocontext.Context, vmID string) (Status, error) {
	status, err := c.PowerStatus(ctx, vmID)
	if err != nil {
		return status, err
	}

	context.LoggerFromContext(context.FromVMID(ctx, vmID)).WithField("status", status).Debug("got power status")
	return status, nil
}

// ApplyAction stops the VM when the requested action is off, or when the VM
// is currently observed off whatever the requested action. Otherwise an on
// request starts it. The returned string is the job id, empty when no call
// was made.
//
// Stopping an already stopped VM on an "on" request is existing behaviour
// kept pending a product decision; see DESIGN.md.
func (c *Controller) ApplyAction(ctx gocontext.Context, req ActionRequest) (string, error) {
	logger := context.LoggerFromContext(context.FromVMID(ctx, req.VMID))

	stop := req.Action == ActionOff
	if !stop {
		status, err := c.GetPowerStatus(ctx, req.VMID)
		if err != nil {
			return "", err
		}
		stop = status == StatusOff
	}

	if stop {
		logger.Info("stopping virtual machine")
		return c.Stop(ctx, req.VMID)
	}

	if req.Action == ActionOn {
		logger.Info("starting virtual machine")
		return c.Start(ctx, req.VMID)
	}

	logger.WithField("requested", req.Action).Debug("no power change for action")
	return "", nil
}

// SetPowerStatus is the set entry point of the agent. Any failure is logged
// and returned as a *StatusFailure.
func (c *Controller) SetPowerStatus(ctx gocontext.Context, req ActionRequest) error {
	logger := context.LoggerFromContext(context.FromVMID(ctx, req.VMID))

	jobID, err := c.ApplyAction(ctx, req)
	if err != nil {
		metrics.Mark("fence.power.set.failure")
		logger.WithFields(logrus.Fields{
			"err":  err,
			"kind": fenceerrors.KindOf(err),
		}).Error("failed to set power status")

		return &StatusFailure{Action: req.Action, VMID: req.VMID, err: err}
	}

	if jobID != "" {
		logger.WithField("job_id", jobID).Info("power change accepted")
	}
	return nil
}
