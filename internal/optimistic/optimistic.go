// Package optimistic runs local state changes ahead of a remote call and
// reverts them when the call fails.
package optimistic

import (
	"context"
	"errors"
	"fmt"
)

// Command is one optimistic mutation.  Apply changes local state and
// Revert undoes exactly that change.  Commit performs the remote call;
// Apply runs before it and Revert runs only when it fails.
type Command struct {
	Name   string
	Apply  func()
	Revert func()
	Commit func(ctx context.Context) error
}

// ErrIncomplete is returned for a command missing one of its functions.
var ErrIncomplete = errors.New("optimistic: command needs Apply, Revert and Commit")

// Run applies cmd, commits it and reverts on failure.  The commit error is
// returned wrapped with the command name.  A panic during Commit also
// reverts the local change before propagating.
func Run(ctx context.Context, cmd Command) (err error) {
	if cmd.Apply == nil || cmd.Revert == nil || cmd.Commit == nil {
		return ErrIncomplete
	}
	cmd.Apply()
	reverted := false
	defer func() {
		if r := recover(); r != nil {
			if !reverted {
				cmd.Revert()
			}
			panic(r)
		}
	}()
	if err := cmd.Commit(ctx); err != nil {
		reverted = true
		cmd.Revert()
		if cmd.Name == "" {
			return err
		}
		return fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return nil
}
