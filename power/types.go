// Package power decides and issues VM power changes through the management
// API.
package power

import (
	gocontext "context"

	"github.com/ablecloud-io/fence/mold"
	simplejson "github.com/bitly/go-simplejson"
)

// VMState is the state reported by the management API.
type VMState string

const (
	VMStateRunning VMState = "Running"
	VMStateStopped VMState = "Stopped"
	VMStateUnknown VMState = "Unknown"
)

// ParseVMState maps the API's free-text state field. Anything other than the
// exact strings "Running" and "Stopped" is VMStateUnknown.
func ParseVMState(s string) VMState {
	switch VMState(s) {
	case VMStateRunning, VMStateStopped:
		return VMState(s)
	default:
		return VMStateUnknown
	}
}

// Status is the power status as seen by the fencing framework.
type Status string

const (
	StatusOn      Status = "on"
	StatusOff     Status = "off"
	StatusUnknown Status = "unknown"
)

// Status maps Running to on, Stopped to off and anything else to unknown.
func (s VMState) Status() Status {
	switch s {
	case VMStateRunning:
		return StatusOn
	case VMStateStopped:
		return StatusOff
	default:
		return StatusUnknown
	}
}

// Action is the operation requested by the fencing framework.
type Action string

const (
	ActionOn      Action = "on"
	ActionOff     Action = "off"
	ActionReboot  Action = "reboot"
	ActionStatus  Action = "status"
	ActionMonitor Action = "monitor"
)

// Actions lists every action the agent accepts.
var Actions = []Action{ActionOn, ActionOff, ActionReboot, ActionStatus, ActionMonitor}

// ParseAction returns the Action named by s and whether it is known.
func ParseAction(s string) (Action, bool) {
	for _, a := range Actions {
		if string(a) == s {
			return a, true
		}
	}
	return Action(s), false
}

// ActionRequest is an action against a single VM.
type ActionRequest struct {
	Action Action
	VMID   string
}

// Client is the part of mold.Client used by the controller.
type Client interface {
	Call(gocontext.Context, *mold.Request) (*simplejson.Json, error)
}
