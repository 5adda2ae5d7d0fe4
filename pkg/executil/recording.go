package executil

import (
	"context"
	"sync"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Dir  string
	Cmd  string
	Args []string
}

// Key returns the lookup key for the command: "git branch" for a command
// with a subcommand, the bare command name otherwise.
func (c RecordedCommand) Key() string {
	if len(c.Args) == 0 {
		return c.Cmd
	}
	return c.Cmd + " " + c.Args[0]
}

// RecordingExecutor captures commands for testing.
// Configure Outputs and Errors maps to control return values. Keys are
// matched against the command plus its first argument first ("git merge"),
// then against the bare command name ("git").
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	// Outputs maps command keys to their output.
	Outputs map[string][]byte

	// Errors maps command keys to their error.
	Errors map[string]error
}

// Run records the command and returns configured output/error.
func (e *RecordingExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return e.record("", cmd, args...)
}

// RunDir records the command with directory and returns configured output/error.
func (e *RecordingExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	return e.record(dir, cmd, args...)
}

// Reset clears all recorded commands.
func (e *RecordingExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = nil
}

// CallsTo returns how many recorded commands match the given key.
func (e *RecordingExecutor) CallsTo(key string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.Commands {
		if c.Key() == key {
			n++
		}
	}
	return n
}

func (e *RecordingExecutor) record(dir, cmd string, args ...string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := RecordedCommand{
		Dir:  dir,
		Cmd:  cmd,
		Args: args,
	}
	e.Commands = append(e.Commands, rec)

	var out []byte
	var err error

	if e.Outputs != nil {
		if v, ok := e.Outputs[rec.Key()]; ok {
			out = v
		} else {
			out = e.Outputs[cmd]
		}
	}
	if e.Errors != nil {
		if v, ok := e.Errors[rec.Key()]; ok {
			err = v
		} else {
			err = e.Errors[cmd]
		}
	}

	return out, err
}
