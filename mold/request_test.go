package mold

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func statusRequest() *Request {
	return NewRequest("listVirtualMachines").
		Set("id", "8d5a4d3e-42").
		Set("response", "json").
		Set("apikey", "Ab+Cd/Ef==")
}

func TestRequest_Set(t *testing.T) {
	r := NewRequest("stopVirtualMachine").Set("id", "1").Set("id", "2")

	id, ok := r.Get("id")
	assert.True(t, ok)
	assert.Equal(t, "2", id)
	assert.Len(t, r.Params(), 2)
	assert.Equal(t, "stopVirtualMachine", r.Command())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRequest_Encode(t *testing.T) {
	r := NewRequest("listVirtualMachines").
		Set("id", "42").
		Set("response", "json").
		Set("apikey", "Ab Cd+/=")

	assert.Equal(t, "command=listVirtualMachines&id=42&response=json&apikey=Ab+Cd%2B%2F%3D", r.Encode())
}

func TestRequest_SigningString(t *testing.T) {
	for _, tc := range []struct {
		r *Request
		s string
	}{
		{
			r: (&Request{}).Set("account", "My Org"),
			s: "account=my%20org",
		},
		{
			r: statusRequest(),
			s: "apikey=ab%2bcd%2fef%3d%3d&command=listvirtualmachines&id=8d5a4d3e-42&response=json",
		},
		{
			r: (&Request{}).Set("Zeta", "1").Set("Alpha", "x y~z"),
			s: "alpha=x%20y~z&zeta=1",
		},
		{
			r: &Request{},
			s: "",
		},
	} {
		assert.Equal(t, tc.s, tc.r.SigningString())
	}
}

func TestSign_Deterministic(t *testing.T) {
	assert.Equal(t, Sign(statusRequest(), "secret"), Sign(statusRequest(), "secret"))
	assert.NotEqual(t, Sign(statusRequest(), "secret"), Sign(statusRequest(), "other-secret"))
}

func TestSign_OrderIndependent(t *testing.T) {
	reordered := (&Request{}).
		Set("apikey", "Ab+Cd/Ef==").
		Set("response", "json").
		Set("id", "8d5a4d3e-42").
		Set("command", "listVirtualMachines")

	assert.NotEqual(t, statusRequest().Encode(), reordered.Encode())
	assert.Equal(t, Sign(statusRequest(), "secret"), Sign(reordered, "secret"))
}

func TestSign_MatchesHMAC(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("s3cr3t"))
	mac.Write([]byte("apikey=ab%2bcd%2fef%3d%3d&command=listvirtualmachines&id=8d5a4d3e-42&response=json"))
	expected := url.QueryEscape(base64.StdEncoding.EncodeToString(mac.Sum(nil)))

	sig := Sign(statusRequest(), "s3cr3t")
	assert.Equal(t, expected, sig)

	for _, c := range []string{"+", "/", "=", " ", "\n"} {
		assert.False(t, strings.Contains(sig, c), "signature contains %q", c)
	}
}

func TestSign_EmptyRequest(t *testing.T) {
	sig := Sign(&Request{}, "secret")

	decoded, err := url.QueryUnescape(sig)
	assert.Nil(t, err)

	raw, err := base64.StdEncoding.DecodeString(decoded)
	assert.Nil(t, err)
	assert.Len(t, raw, sha256.Size)
}
