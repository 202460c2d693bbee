package main

import (
	"fmt"
	"os"

	"github.com/ablecloud-io/fence"
	"github.com/ablecloud-io/fence/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"
)

func main() {
	app := cli.NewApp()
	app.Name = fence.AgentName
	app.Usage = "Fence agent for virtual machines managed by MOLD"
	app.Version = fence.Version

	app.Flags = config.Flags
	app.Action = runAgent

	args := os.Args
	if len(args) == 1 {
		stdinArgs, err := argsFromStdin()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed: %v\n", err)
			os.Exit(int(fence.ExitBadArgs))
		}
		args = append(args, stdinArgs...)
	}

	err := app.Run(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed: %v\n", err)
		os.Exit(int(fence.ExitBadArgs))
	}
}

func argsFromStdin() ([]string, error) {
	opts, err := config.StdinOptionsFromReader(os.Stdin)
	if err != nil {
		return nil, err
	}

	args, unknown := opts.Args()
	for _, name := range unknown {
		logrus.WithField("option", name).Warn("ignoring unknown option")
	}

	return args, nil
}

func runAgent(c *cli.Context) error {
	fenceCLI := fence.NewCLI(c)

	ok, err := fenceCLI.Setup()
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("Failed: %v", err), int(fence.ExitBadArgs))
	}
	if !ok {
		return nil
	}

	code := fenceCLI.Run()
	if code != fence.ExitOK {
		return cli.NewExitError("", int(code))
	}
	return nil
}
