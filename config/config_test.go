package config

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/urfave/cli.v1"
)

func runAppTest(t *testing.T, args []string, action func(*cli.Context) error) {
	app := cli.NewApp()
	app.Flags = Flags
	app.Action = action
	err := app.Run(append([]string{"whatever"}, args...))
	require.Nil(t, err)
}

func TestFromCLIContext(t *testing.T) {
	runAppTest(t, []string{}, func(c *cli.Context) error {
		cfg := FromCLIContext(c)

		assert.NotNil(t, cfg)
		assert.Equal(t, "reboot", cfg.Action)
		assert.Equal(t, "https", cfg.APIProtocol)
		assert.Equal(t, "", cfg.ManagementPort)
		assert.Equal(t, 30*time.Second, cfg.APITimeout)
		assert.Equal(t, 60, cfg.PowerTimeout)
		assert.Equal(t, 1, cfg.RetryOn)
		assert.True(t, cfg.InsecureSkipVerify, "InsecureSkipVerify")
		assert.True(t, cfg.Syslog, "Syslog")
		assert.False(t, cfg.Verbose, "Verbose")
		return nil
	})
}

func TestFromCLIContext_SetsBoolFlags(t *testing.T) {
	runAppTest(t, []string{
		"--insecure-skip-verify=false",
		"--syslog=false",
		"--verbose",
		"-q",
	}, func(c *cli.Context) error {
		cfg := FromCLIContext(c)

		assert.False(t, cfg.InsecureSkipVerify, "InsecureSkipVerify")
		assert.False(t, cfg.Syslog, "Syslog")
		assert.True(t, cfg.Verbose, "Verbose")
		assert.True(t, cfg.Quiet, "Quiet")

		return nil
	})
}

func TestFromCLIContext_SetsStringFlags(t *testing.T) {
	runAppTest(t, []string{
		"-o", "off",
		"-n", "node1",
		"--zone=zone1",
		"--api-protocol=http",
		"--api-key=key",
		"--secret-key=secret",
		"--vm-id=42",
		"--m-ip=10.10.1.10",
		"--m-port=8443",
		"--debug-file=/tmp/fence.log",
		"--sentry-dsn=dsn",
		"--librato-email=email",
		"--librato-token=token",
		"--librato-source=source",
	}, func(c *cli.Context) error {
		cfg := FromCLIContext(c)

		assert.Equal(t, "off", cfg.Action, "Action")
		assert.Equal(t, "node1", cfg.Plug, "Plug")
		assert.Equal(t, "zone1", cfg.Zone, "Zone")
		assert.Equal(t, "http", cfg.APIProtocol, "APIProtocol")
		assert.Equal(t, "key", cfg.APIKey, "APIKey")
		assert.Equal(t, "secret", cfg.SecretKey, "SecretKey")
		assert.Equal(t, "42", cfg.VMID, "VMID")
		assert.Equal(t, "10.10.1.10", cfg.ManagementIP, "ManagementIP")
		assert.Equal(t, "8443", cfg.ManagementPort, "ManagementPort")
		assert.Equal(t, "/tmp/fence.log", cfg.DebugFile, "DebugFile")
		assert.Equal(t, "dsn", cfg.SentryDSN, "SentryDSN")
		assert.Equal(t, "email", cfg.LibratoEmail, "LibratoEmail")
		assert.Equal(t, "token", cfg.LibratoToken, "LibratoToken")
		assert.Equal(t, "source", cfg.LibratoSource, "LibratoSource")

		return nil
	})
}

func TestFromCLIContext_SetsIntFlags(t *testing.T) {
	runAppTest(t, []string{
		"--delay=5",
		"--power-timeout=20",
		"--power-wait=3",
		"--retry-on=4",
	}, func(c *cli.Context) error {
		cfg := FromCLIContext(c)

		assert.Equal(t, 5, cfg.Delay, "Delay")
		assert.Equal(t, 20, cfg.PowerTimeout, "PowerTimeout")
		assert.Equal(t, 3, cfg.PowerWait, "PowerWait")
		assert.Equal(t, 4, cfg.RetryOn, "RetryOn")

		return nil
	})
}

func TestFromCLIContext_SetsDurationFlags(t *testing.T) {
	runAppTest(t, []string{
		"--api-timeout=42s",
	}, func(c *cli.Context) error {
		cfg := FromCLIContext(c)

		assert.Equal(t, 42*time.Second, cfg.APITimeout, "APITimeout")

		return nil
	})
}

func TestFromCLIContext_EnvVars(t *testing.T) {
	os.Setenv("FENCE_MOLD_VM_ID", "from-env")
	defer os.Unsetenv("FENCE_MOLD_VM_ID")

	runAppTest(t, []string{}, func(c *cli.Context) error {
		assert.Equal(t, "from-env", FromCLIContext(c).VMID)
		return nil
	})
}

func TestFromCLIContext_DoesNotShareDefaults(t *testing.T) {
	runAppTest(t, []string{"--power-timeout=1", "--m-port=1"}, func(c *cli.Context) error {
		FromCLIContext(c)
		return nil
	})

	assert.Equal(t, 60, defaultConfig.PowerTimeout)
	assert.Equal(t, "", defaultConfig.ManagementPort)
}

func TestConfig_Validate(t *testing.T) {
	cfg := defaultConfig
	err := cfg.Validate()
	require.NotNil(t, err)

	for _, name := range []string{"api-key", "secret-key", "vm-id", "m-ip", "m-port"} {
		assert.Contains(t, err.Error(), "--"+name)
	}

	cfg.APIKey = "key"
	cfg.SecretKey = "secret"
	cfg.VMID = "42"
	cfg.ManagementIP = "10.10.1.10"
	err = cfg.Validate()
	require.NotNil(t, err)
	assert.Equal(t, "missing required option --m-port", err.Error())

	cfg.ManagementPort = "8080"
	assert.Nil(t, cfg.Validate())

	cfg.Action = "list"
	cfg.APIProtocol = "ftp"
	cfg.PowerWait = -1
	err = cfg.Validate()
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), `unrecognised action "list"`)
	assert.Contains(t, err.Error(), `unsupported api protocol "ftp"`)
	assert.Contains(t, err.Error(), "--power-wait must not be negative")
}

func TestConfig_ClientConfig(t *testing.T) {
	cfg := defaultConfig
	cfg.APIKey = "key"
	cfg.SecretKey = "secret"
	cfg.ManagementIP = "10.10.1.10"
	cfg.ManagementPort = "8080"

	cc := cfg.ClientConfig()
	assert.Equal(t, "https", cc.Endpoint.Protocol)
	assert.Equal(t, "10.10.1.10", cc.Endpoint.Host)
	assert.Equal(t, "8080", cc.Endpoint.Port)
	assert.Equal(t, "key", cc.Credentials.APIKey)
	assert.Equal(t, "secret", cc.Credentials.SecretKey)
	assert.True(t, cc.InsecureSkipVerify)
	assert.Equal(t, 30*time.Second, cc.Timeout)
}

func TestWriteEnvConfig(t *testing.T) {
	cfg := defaultConfig
	cfg.VMID = "42"
	cfg.SecretKey = "secret"

	out := &bytes.Buffer{}
	WriteEnvConfig(&cfg, out)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "# fence_mold env config generated"))
	assert.Equal(t, "# end fence_mold env config", lines[len(lines)-1])
	assert.Contains(t, out.String(), `export FENCE_MOLD_VM_ID="42"`)
	assert.Contains(t, out.String(), `export FENCE_MOLD_SECRET_KEY="[redacted]"`)
	assert.Contains(t, out.String(), `export FENCE_MOLD_INSECURE_SKIP_VERIFY="true"`)
	assert.NotContains(t, out.String(), "ECHO_CONFIG")
}
