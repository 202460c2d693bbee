package config

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/ablecloud-io/fence/metrics"
	"github.com/ablecloud-io/fence/mold"
	"github.com/ablecloud-io/fence/power"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"
)

var (
	defaultConfig = Config{
		Action:             string(power.ActionReboot),
		APIProtocol:        "https",
		APITimeout:         30 * time.Second,
		PowerTimeout:       60,
		RetryOn:            1,
		InsecureSkipVerify: true,
		Syslog:             true,
	}

	configType = reflect.ValueOf(Config{}).Type()

	shortNames = map[string]string{
		"action": "o",
		"plug":   "n",
		"quiet":  "q",
	}

	secretNames = map[string]bool{
		"secret-key":    true,
		"librato-token": true,
	}

	defs = []*ConfigDef{
		NewConfigDef("Action", &cli.StringFlag{
			Value: defaultConfig.Action,
			Usage: fmt.Sprintf("Fencing action (%s)", actionNames()),
		}),
		NewConfigDef("Plug", &cli.StringFlag{
			Usage: "Physical plug number or name, accepted for compatibility and only logged",
		}),
		NewConfigDef("Zone", &cli.StringFlag{
			Usage: "Zone of the virtual machine, informational",
		}),
		NewConfigDef("APIProtocol", &cli.StringFlag{
			Value: defaultConfig.APIProtocol,
			Usage: "Protocol used to reach the management API (http or https)",
		}),
		NewConfigDef("APIKey", &cli.StringFlag{
			Usage: "API key of the management account",
		}),
		NewConfigDef("SecretKey", &cli.StringFlag{
			Usage: "Secret key used to sign API requests",
		}),
		NewConfigDef("VMID", &cli.StringFlag{
			Usage: "ID of the virtual machine to fence",
		}),
		NewConfigDef("ManagementIP", &cli.StringFlag{
			Usage: "Host or IP address of the management server",
		}),
		NewConfigDef("ManagementPort", &cli.StringFlag{
			Usage: "Port of the management API",
		}),
		NewConfigDef("InsecureSkipVerify", &cli.BoolTFlag{
			Usage: "Skip verification of the management API TLS certificate (use --insecure-skip-verify=false to verify)",
		}),
		NewConfigDef("APITimeout", &cli.DurationFlag{
			Value: defaultConfig.APITimeout,
			Usage: "Timeout of a single management API request",
		}),
		NewConfigDef("Delay", &cli.IntFlag{
			Usage: "Wait this many seconds before fencing, for off and reboot only",
		}),
		NewConfigDef("PowerTimeout", &cli.IntFlag{
			Value: defaultConfig.PowerTimeout,
			Usage: "Seconds to wait for the power status to change",
		}),
		NewConfigDef("PowerWait", &cli.IntFlag{
			Usage: "Seconds to wait after issuing a power action",
		}),
		NewConfigDef("RetryOn", &cli.IntFlag{
			Value: defaultConfig.RetryOn,
			Usage: "Number of attempts to power on",
		}),
		NewConfigDef("Verbose", &cli.BoolFlag{
			Usage: "set log level to debug",
		}),
		NewConfigDef("Quiet", &cli.BoolFlag{
			Usage: "only log errors",
		}),
		NewConfigDef("DebugFile", &cli.StringFlag{
			Usage: "Also write log output to this file",
		}),
		NewConfigDef("Syslog", &cli.BoolTFlag{
			Usage: "Send log output to syslog",
		}),
		NewConfigDef("SentryDSN", &cli.StringFlag{
			Usage: "Report failures to this Sentry DSN",
		}),
		NewConfigDef("LibratoEmail", &cli.StringFlag{}),
		NewConfigDef("LibratoToken", &cli.StringFlag{}),
		NewConfigDef("LibratoSource", &cli.StringFlag{}),

		// non-config and special case flags
		NewConfigDef("echo-config", &cli.BoolFlag{
			Usage: "echo parsed config and exit",
		}),
	}

	// Flags is the list of all CLI flags accepted by fence_mold
	Flags = defFlags(defs)
)

func fenceEnvVars(key string) string {
	return strings.ToUpper(strings.Join(fenceEnvVarsSlice(key), ","))
}

func fenceEnvVarsSlice(key string) []string {
	return []string{
		fmt.Sprintf("FENCE_MOLD_%s", key),
		key,
	}
}

func actionNames() string {
	names := []string{}
	for _, a := range power.Actions {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}

func defFlags(defs []*ConfigDef) []cli.Flag {
	f := []cli.Flag{}

	for _, def := range defs {
		f = append(f, def.Flag)
	}

	return f
}

// ConfigDef ties a Config field to its CLI flag and environment variables.
type ConfigDef struct {
	FieldName string
	Name      string
	EnvVar    string
	Flag      cli.Flag
	HasField  bool
}

func NewConfigDef(fieldName string, flag cli.Flag) *ConfigDef {
	if fieldName == "" {
		panic("empty field name")
	}

	name := ""

	if string(fieldName[0]) == strings.ToLower(string(fieldName[0])) {
		name = fieldName
	} else {
		field, _ := configType.FieldByName(fieldName)
		name = field.Tag.Get("config")
	}

	env := strings.ToUpper(strings.Replace(name, "-", "_", -1))

	def := &ConfigDef{
		FieldName: fieldName,
		Name:      name,
		EnvVar:    env,
		HasField:  fieldName != name,
	}

	envPrefixed := fenceEnvVars(env)

	flagName := name
	if short, ok := shortNames[name]; ok {
		flagName = fmt.Sprintf("%s, %s", name, short)
	}

	if f, ok := flag.(*cli.BoolFlag); ok {
		def.Flag, f.Name, f.EnvVar = f, flagName, envPrefixed
		return def
	} else if f, ok := flag.(*cli.BoolTFlag); ok {
		def.Flag, f.Name, f.EnvVar = f, flagName, envPrefixed
		return def
	} else if f, ok := flag.(*cli.StringFlag); ok {
		def.Flag, f.Name, f.EnvVar = f, flagName, envPrefixed
		return def
	} else if f, ok := flag.(*cli.IntFlag); ok {
		def.Flag, f.Name, f.EnvVar = f, flagName, envPrefixed
		return def
	} else if f, ok := flag.(*cli.DurationFlag); ok {
		def.Flag, f.Name, f.EnvVar = f, flagName, envPrefixed
		return def
	} else {
		return def
	}
}

// Config contains all the configuration needed to run the fence agent.
type Config struct {
	Action         string `config:"action"`
	Plug           string `config:"plug"`
	Zone           string `config:"zone"`
	APIProtocol    string `config:"api-protocol"`
	APIKey         string `config:"api-key"`
	SecretKey      string `config:"secret-key"`
	VMID           string `config:"vm-id"`
	ManagementIP   string `config:"m-ip"`
	ManagementPort string `config:"m-port"`
	DebugFile      string `config:"debug-file"`
	SentryDSN      string `config:"sentry-dsn"`
	LibratoEmail   string `config:"librato-email"`
	LibratoToken   string `config:"librato-token"`
	LibratoSource  string `config:"librato-source"`

	APITimeout time.Duration `config:"api-timeout"`

	// seconds, as the fencing framework passes them
	Delay        int `config:"delay"`
	PowerTimeout int `config:"power-timeout"`
	PowerWait    int `config:"power-wait"`
	RetryOn      int `config:"retry-on"`

	InsecureSkipVerify bool `config:"insecure-skip-verify"`
	Verbose            bool `config:"verbose"`
	Quiet              bool `config:"quiet"`
	Syslog             bool `config:"syslog"`
}

// Validate reports every missing or invalid setting needed to reach the
// management API.
func (c *Config) Validate() error {
	problems := []string{}

	if _, ok := power.ParseAction(c.Action); !ok {
		problems = append(problems, fmt.Sprintf("unrecognised action %q", c.Action))
	}

	for name, value := range map[string]string{
		"api-key":    c.APIKey,
		"secret-key": c.SecretKey,
		"vm-id":      c.VMID,
		"m-ip":       c.ManagementIP,
		"m-port":     c.ManagementPort,
	} {
		if value == "" {
			problems = append(problems, fmt.Sprintf("missing required option --%s", name))
		}
	}

	switch strings.ToLower(c.APIProtocol) {
	case "http", "https":
	default:
		problems = append(problems, fmt.Sprintf("unsupported api protocol %q", c.APIProtocol))
	}

	for name, value := range map[string]int{
		"delay":         c.Delay,
		"power-timeout": c.PowerTimeout,
		"power-wait":    c.PowerWait,
	} {
		if value < 0 {
			problems = append(problems, fmt.Sprintf("--%s must not be negative", name))
		}
	}

	if len(problems) == 0 {
		return nil
	}

	sort.Strings(problems)
	return errors.New(strings.Join(problems, "; "))
}

// ClientConfig returns the management API client settings.
func (c *Config) ClientConfig() *mold.ClientConfig {
	return &mold.ClientConfig{
		Endpoint: mold.Endpoint{
			Protocol: c.APIProtocol,
			Host:     c.ManagementIP,
			Port:     c.ManagementPort,
		},
		Credentials: mold.Credentials{
			APIKey:    c.APIKey,
			SecretKey: c.SecretKey,
		},
		Timeout:            c.APITimeout,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
}

// LibratoConfig returns the credentials used to flush metrics.
func (c *Config) LibratoConfig() *metrics.LibratoConfig {
	return &metrics.LibratoConfig{
		Email:  c.LibratoEmail,
		Token:  c.LibratoToken,
		Source: c.LibratoSource,
	}
}

// FromCLIContext creates a Config using a cli.Context by pulling configuration
// from the flags in the context.
func FromCLIContext(c *cli.Context) *Config {
	cfg := defaultConfig
	cfgVal := reflect.ValueOf(&cfg).Elem()

	for _, def := range defs {
		if !def.HasField {
			continue
		}

		field := cfgVal.FieldByName(def.FieldName)

		if _, ok := def.Flag.(*cli.BoolFlag); ok {
			field.SetBool(c.Bool(def.Name))
		} else if _, ok := def.Flag.(*cli.BoolTFlag); ok {
			field.SetBool(c.BoolT(def.Name))
		} else if _, ok := def.Flag.(*cli.DurationFlag); ok {
			field.Set(reflect.ValueOf(c.Duration(def.Name)))
		} else if _, ok := def.Flag.(*cli.IntFlag); ok {
			field.SetInt(int64(c.Int(def.Name)))
		} else if _, ok := def.Flag.(*cli.StringFlag); ok {
			field.SetString(c.String(def.Name))
		}
	}

	return &cfg
}

// WriteEnvConfig writes the given configuration to out. The format of the
// output is a list of environment variables settings suitable to be sourced
// by a Bourne-like shell. Secrets are masked.
func WriteEnvConfig(cfg *Config, out io.Writer) {
	cfgMap := map[string]interface{}{}
	cfgElem := reflect.ValueOf(cfg).Elem()

	for _, def := range defs {
		if !def.HasField {
			continue
		}

		field := cfgElem.FieldByName(def.FieldName)
		cfgMap[def.Name] = field.Interface()

		if secretNames[def.Name] && field.String() != "" {
			cfgMap[def.Name] = "[redacted]"
		}
	}

	sortedCfgMapKeys := []string{}

	for key := range cfgMap {
		sortedCfgMapKeys = append(sortedCfgMapKeys, key)
	}

	sort.Strings(sortedCfgMapKeys)

	fmt.Fprintf(out, "# fence_mold env config generated %s\n", time.Now().UTC())
	for _, key := range sortedCfgMapKeys {
		envKey := fmt.Sprintf("FENCE_MOLD_%s", strings.ToUpper(strings.Replace(key, "-", "_", -1)))
		fmt.Fprintf(out, "export %s=%q\n", envKey, fmt.Sprintf("%v", cfgMap[key]))
	}
	fmt.Fprintf(out, "# end fence_mold env config\n")
}
