package fence

import "fmt"

// ExitCode is the process exit status reported to the fencing framework.
type ExitCode int

const (
	ExitOK             ExitCode = 0
	ExitGeneric        ExitCode = 1
	ExitBadArgs        ExitCode = 2
	ExitLoginDenied    ExitCode = 3
	ExitConnectionLost ExitCode = 4
	ExitTimedOut       ExitCode = 5
	ExitWaitingOn      ExitCode = 6
	ExitWaitingOff     ExitCode = 7
	ExitStatus         ExitCode = 8

	// ExitStatusOff is returned by the status action for a powered off VM.
	ExitStatusOff = ExitBadArgs
)

var exitMessages = map[ExitCode]string{
	ExitGeneric:        "Unknown error",
	ExitBadArgs:        "Invalid arguments",
	ExitLoginDenied:    "Unable to connect/login to fencing device",
	ExitConnectionLost: "Connection lost",
	ExitTimedOut:       "Connection timed out",
	ExitWaitingOn:      "Timed out waiting to power ON",
	ExitWaitingOff:     "Timed out waiting to power OFF",
	ExitStatus:         "Unable to obtain correct plug status or plug is not available",
}

// Message is the text printed after "Failed: " for a non-zero code.
func (c ExitCode) Message() string {
	if msg, ok := exitMessages[c]; ok {
		return msg
	}
	return fmt.Sprintf("exit code %d", int(c))
}

func (c ExitCode) String() string {
	if c == ExitOK {
		return "ok"
	}
	return c.Message()
}
