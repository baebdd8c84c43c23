package capability

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"tcpstream/internal/session"
)

// Exec wires a stream connection to a child process's stdio.
// Either Program (-e) or Command (-c) must be set.
type Exec struct {
	Program string // -e: execute a program directly
	Command string // -c: execute via the system shell
}

func (e *Exec) command(ctx context.Context) (*exec.Cmd, error) {
	switch {
	case e.Command != "":
		if runtime.GOOS == "windows" {
			return exec.CommandContext(ctx, "cmd.exe", "/C", e.Command), nil
		}
		return exec.CommandContext(ctx, "/bin/sh", "-c", e.Command), nil
	case e.Program != "":
		return exec.CommandContext(ctx, e.Program), nil
	default:
		return nil, fmt.Errorf("no command specified for exec mode")
	}
}

// Handle connects the session and runs the child process with its
// stdout/stderr sent to the connection and received data fed to its
// stdin.  The child's stdin is closed when the connection ends, and
// the connection is closed when the child exits.
func (e *Exec) Handle(ctx context.Context, sess *session.Session) error {
	cmd, err := e.command(ctx)
	if err != nil {
		return err
	}
	cmd.Stdout = sess.Conn
	cmd.Stderr = sess.Conn

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	enc := sess.Conn.Encoding()

	unsubData := sess.Conn.OnData(func(payload string) {
		p, err := enc.Encode(payload)
		if err != nil {
			p = []byte(payload)
		}
		// Fails once the child has exited; the connection is about to
		// be closed anyway.
		stdin.Write(p) //nolint:errcheck
	})
	defer unsubData()
	unsubDisc := sess.Conn.OnDisconnected(func(error) { stdin.Close() })
	defer unsubDisc()

	if err := sess.Connect(ctx); err != nil {
		stdin.Close()
		return err
	}

	sess.Logger.Debug("exec: %s", cmd.String())
	if err := cmd.Start(); err != nil {
		sess.Conn.Disconnect()
		return fmt.Errorf("exec %q: %w", cmd.Path, err)
	}

	err = cmd.Wait()
	select {
	case <-sess.Done():
		// The remote end finished first and the child followed.
		return sess.Result()
	default:
	}
	sess.Conn.Disconnect()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("exec %q: %w", cmd.Path, err)
	}
	return nil
}
