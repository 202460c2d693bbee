package context

import (
	"context"
	"os"

	"github.com/getsentry/raven-go"
	"github.com/sirupsen/logrus"
)

type contextKey int

const (
	uuidKey contextKey = iota
	actionKey
	vmIDKey
	commandKey
	componentKey
)

func FromUUID(ctx context.Context, uuid string) context.Context {
	return context.WithValue(ctx, uuidKey, uuid)
}

func FromAction(ctx context.Context, action string) context.Context {
	return context.WithValue(ctx, actionKey, action)
}

func FromVMID(ctx context.Context, vmID string) context.Context {
	return context.WithValue(ctx, vmIDKey, vmID)
}

// FromCommand records the management API command being executed.
func FromCommand(ctx context.Context, command string) context.Context {
	return context.WithValue(ctx, commandKey, command)
}

func FromComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

func UUIDFromContext(ctx context.Context) (string, bool) {
	uuid, ok := ctx.Value(uuidKey).(string)
	return uuid, ok
}

func ActionFromContext(ctx context.Context) (string, bool) {
	action, ok := ctx.Value(actionKey).(string)
	return action, ok
}

func VMIDFromContext(ctx context.Context) (string, bool) {
	vmID, ok := ctx.Value(vmIDKey).(string)
	return vmID, ok
}

func CommandFromContext(ctx context.Context) (string, bool) {
	command, ok := ctx.Value(commandKey).(string)
	return command, ok
}

func ComponentFromContext(ctx context.Context) (string, bool) {
	component, ok := ctx.Value(componentKey).(string)
	return component, ok
}

// LoggerFromContext returns a logrus entry carrying every field known to the
// context.
func LoggerFromContext(ctx context.Context) *logrus.Entry {
	entry := logrus.WithField("pid", os.Getpid())

	if uuid, ok := UUIDFromContext(ctx); ok {
		entry = entry.WithField("uuid", uuid)
	}

	if action, ok := ActionFromContext(ctx); ok {
		entry = entry.WithField("action", action)
	}

	if vmID, ok := VMIDFromContext(ctx); ok {
		entry = entry.WithField("vm", vmID)
	}

	if command, ok := CommandFromContext(ctx); ok {
		entry = entry.WithField("command", command)
	}

	if component, ok := ComponentFromContext(ctx); ok {
		entry = entry.WithField("component", component)
	}

	return entry
}

// CaptureError sends err to Sentry, tagged with the fields known to the
// context, and waits for delivery. It does nothing when no DSN is set.
func CaptureError(ctx context.Context, err error) {
	if raven.URL() == "" {
		return
	}

	tags := map[string]string{}

	if uuid, ok := UUIDFromContext(ctx); ok {
		tags["uuid"] = uuid
	}

	if action, ok := ActionFromContext(ctx); ok {
		tags["action"] = action
	}

	if vmID, ok := VMIDFromContext(ctx); ok {
		tags["vm"] = vmID
	}

	raven.CaptureErrorAndWait(err, tags)
}
