package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// ErrNoCommand is returned when an operation has no configured command
var ErrNoCommand = errors.New("no command configured")

// ExecRunner runs package manager commands built from templates
type ExecRunner struct {
	commands CommandsConfig
	logger   *slog.Logger
}

// NewExecRunner creates a runner for the command templates
func NewExecRunner(commands CommandsConfig, logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{commands: commands, logger: logger}
}

// expand splits a template into argv and substitutes placeholders
func expand(template, app, pkg string) ([]string, error) {
	fields := strings.Fields(template)
	if len(fields) == 0 {
		return nil, ErrNoCommand
	}
	r := strings.NewReplacer("{package}", pkg, "{app}", app)
	args := make([]string, len(fields))
	for i, f := range fields {
		args[i] = r.Replace(f)
	}
	return args, nil
}

// run executes the command and waits, returning stdout
func (r *ExecRunner) run(ctx context.Context, template, app, pkg string) ([]byte, error) {
	args, err := expand(template, app, pkg)
	if err != nil {
		return nil, err
	}

	r.logger.Info("running command", "command", args[0], "args", args[1:])

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		r.logger.Error("command failed", "command", args[0], "error", err, "stderr", msg)
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", args[0], err, msg)
		}
		return nil, fmt.Errorf("%s: %w", args[0], err)
	}
	return stdout.Bytes(), nil
}

// Install installs a system package
func (r *ExecRunner) Install(ctx context.Context, pkg string) error {
	_, err := r.run(ctx, r.commands.Install, "", pkg)
	return err
}

// Remove removes a system package
func (r *ExecRunner) Remove(ctx context.Context, pkg string) error {
	_, err := r.run(ctx, r.commands.Remove, "", pkg)
	return err
}

// Show returns the package manager's description of a package
func (r *ExecRunner) Show(ctx context.Context, pkg string) ([]byte, error) {
	return r.run(ctx, r.commands.Show, "", pkg)
}

// Open launches an installed app without waiting for it to exit
func (r *ExecRunner) Open(_ context.Context, app, pkg string) error {
	args, err := expand(r.commands.Open, app, pkg)
	if err != nil {
		return err
	}

	// Check if command exists in PATH
	if _, err := exec.LookPath(args[0]); err != nil {
		return err
	}

	r.logger.Info("launching app", "command", args[0], "args", args[1:])
	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
