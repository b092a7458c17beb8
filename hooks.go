package greq

import (
	"context"
	"os/exec"
)

// HookRunner executes the execute-before and execute-after shell
// commands of a test. The implementation is a collaborator; the pipeline
// only cares about the exit status.
type HookRunner interface {
	Run(ctx context.Context, command string) error
}

// shellHookRunner runs hook commands through /bin/sh.
type shellHookRunner struct{}

func (shellHookRunner) Run(ctx context.Context, command string) error {
	return exec.CommandContext(ctx, "/bin/sh", "-c", command).Run()
}
