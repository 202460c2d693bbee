package config

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"
)

// stdinAliases maps option names used by the fencing framework to flag names.
var stdinAliases = map[string]string{
	"option": "action",
	"port":   "plug",
}

// StdinOptions holds the name=value options a fence agent receives on stdin
// when it is started without arguments.
type StdinOptions struct {
	sync.Mutex

	cfgMap map[string]string
}

func (so *StdinOptions) Map(f func(string, string)) {
	so.Lock()
	keys := []string{}
	for key := range so.cfgMap {
		keys = append(keys, key)
	}
	so.Unlock()

	sort.Strings(keys)

	for _, key := range keys {
		f(key, so.Get(key))
	}
}

func (so *StdinOptions) Get(key string) string {
	so.Lock()
	defer so.Unlock()

	if value, ok := so.cfgMap[key]; ok {
		return value
	}

	return ""
}

func (so *StdinOptions) Set(key, value string) {
	so.Lock()
	defer so.Unlock()

	so.cfgMap[key] = value
}

func (so *StdinOptions) IsSet(key string) bool {
	so.Lock()
	defer so.Unlock()

	_, ok := so.cfgMap[key]
	return ok
}

// StdinOptionsFromReader parses one name=value option per line. A name
// without a value is set to "". Blank lines and lines starting with # are
// skipped. Names are normalized to flag names,
// e.g.:
//   api_key=abc    -> api-key=abc
//   port=vm1       -> plug=vm1
//   option=off     -> action=off
func StdinOptionsFromReader(r io.Reader) (*StdinOptions, error) {
	so := &StdinOptions{cfgMap: map[string]string{}}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pair := strings.SplitN(line+"=", "=", 2)
		if strings.TrimSpace(pair[0]) == "" {
			return nil, errors.Errorf("line %d: missing option name in %q", lineNo, line)
		}

		name := strings.Replace(strings.TrimSpace(pair[0]), "_", "-", -1)
		if alias, ok := stdinAliases[name]; ok {
			name = alias
		}

		so.Set(name, strings.TrimSpace(strings.TrimSuffix(pair[1], "=")))
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read options")
	}

	return so, nil
}

// Args converts the options into command line arguments. Names that are not
// flags are returned separately so the caller can report them.
func (so *StdinOptions) Args() ([]string, []string) {
	args := []string{}
	unknown := []string{}

	so.Map(func(name, value string) {
		def := defByName(name)
		if def == nil {
			unknown = append(unknown, name)
			return
		}

		switch def.Flag.(type) {
		case *cli.BoolFlag, *cli.BoolTFlag:
			value = strconv.FormatBool(asBool(value))
		}

		args = append(args, fmt.Sprintf("--%s=%s", name, value))
	})

	return args, unknown
}

func defByName(name string) *ConfigDef {
	for _, def := range defs {
		if def.Name == name {
			return def
		}
	}
	return nil
}

func asBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "yes", "on", "true":
		return true
	default:
		return false
	}
}
