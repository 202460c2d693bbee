package context

import (
	gocontext "context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerFromContext(t *testing.T) {
	ctx := FromUUID(gocontext.Background(), "abc-123")
	ctx = FromAction(ctx, "off")
	ctx = FromVMID(ctx, "42")
	ctx = FromCommand(ctx, "stopVirtualMachine")
	ctx = FromComponent(ctx, "mold_client")

	entry := LoggerFromContext(ctx)

	assert.Equal(t, "abc-123", entry.Data["uuid"])
	assert.Equal(t, "off", entry.Data["action"])
	assert.Equal(t, "42", entry.Data["vm"])
	assert.Equal(t, "stopVirtualMachine", entry.Data["command"])
	assert.Equal(t, "mold_client", entry.Data["component"])
	assert.Contains(t, entry.Data, "pid")
}

func TestLoggerFromContext_Empty(t *testing.T) {
	entry := LoggerFromContext(gocontext.TODO())

	assert.Len(t, entry.Data, 1)
	assert.Contains(t, entry.Data, "pid")
}
