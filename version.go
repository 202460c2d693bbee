package fence

import (
	"fmt"
	"io"
	"runtime"

	"gopkg.in/urfave/cli.v1"
)

// Set with -ldflags "-X github.com/ablecloud-io/fence.Version=..." at build time.
var (
	Version   = "dev"
	Revision  = "unknown"
	BuildDate = "unknown"
)

// AgentName is the name the fencing framework knows this agent by.
const AgentName = "fence_mold"

func init() {
	cli.VersionPrinter = func(c *cli.Context) {
		WriteVersion(c.App.Writer)
	}
}

// WriteVersion prints the agent name followed by its build information.
func WriteVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s (revision %s, built %s, %s)\n",
		AgentName, Version, Revision, BuildDate, runtime.Version())
}
