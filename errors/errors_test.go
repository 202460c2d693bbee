package errors

import (
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := fmt.Errorf("connection refused")

	for _, tc := range []struct {
		err  error
		kind Kind
	}{
		{err: NewTransportError("listVirtualMachines", cause), kind: KindTransport},
		{err: NewResponseShapeError("stopVirtualMachine", cause), kind: KindResponseShape},
		{err: NewSigningError("", cause), kind: KindSigning},
		{err: pkgerrors.Wrap(NewTransportError("startVirtualMachine", cause), "couldn't start"), kind: KindTransport},
		{err: cause, kind: KindUnknown},
		{err: nil, kind: KindUnknown},
	} {
		assert.Equal(t, tc.kind, KindOf(tc.err), "%v", tc.err)
	}
}

func TestAPIError_Cause(t *testing.T) {
	cause := fmt.Errorf("i/o timeout")
	err := pkgerrors.Wrap(NewTransportError("listVirtualMachines", cause), "status query")

	assert.Equal(t, cause, pkgerrors.Cause(err))
	assert.Equal(t, "status query: transport error in listVirtualMachines: i/o timeout", err.Error())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "transport", KindTransport.String())
	assert.Equal(t, "response_shape", KindResponseShape.String())
	assert.Equal(t, "signing", KindSigning.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
