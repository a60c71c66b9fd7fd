package capability

import (
	"context"
	"os/exec"
	"path/filepath"
)

// ExecProbe resolves executables on the process PATH.
type ExecProbe struct{}

// FindExecutable implements Probe.
func (ExecProbe) FindExecutable(ctx context.Context, name string) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p, true
	}
	return abs, true
}
