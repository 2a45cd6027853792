// Package netconf owns the server IP as a secondary address on the standby
// host. It shells out to iproute2, kept behind a narrow interface so tests
// can substitute a recording fake instead of mutating real interfaces.
package netconf

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// Runner executes an OS network-configuration command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// commandTimeout bounds every iproute2/arping invocation so a wedged tool
// cannot stall the orchestrator loop.
const commandTimeout = 5 * time.Second

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return out.String(), errBuf.String(), err
}
