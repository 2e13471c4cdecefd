//go:build windows

package compiler

import (
	"fmt"
	"os/exec"
)

// describeExit fills in pe's exit fields from exitErr. Windows processes
// don't die by POSIX signal, so Signaled is never set here.
func describeExit(exitErr *exec.ExitError, pe *ProcessError) {
	pe.ExitCode = exitErr.ExitCode()
	pe.Description = fmt.Sprintf("exited with status %d", pe.ExitCode)
}
