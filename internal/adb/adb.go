// Package adb drives the Android Debug Bridge executable, which B2G devices speak as well.
package adb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Executable is the name of the bridge binary looked up on $PATH.
const Executable = "adb"

// ErrNotInstalled is returned when the bridge executable cannot be found.
var ErrNotInstalled = errors.New("adb not found on $PATH")

// LookPath returns the absolute path of the bridge executable.
func LookPath() (string, error) {
	p, err := exec.LookPath(Executable)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotInstalled, err)
	}
	return p, nil
}

// Bridge runs adb commands against a single device.
type Bridge struct {
	// Path of the adb executable. Defaults to Executable.
	Path string
	// Serial selects a device with -s when more than one is attached.
	Serial string
}

// New returns a Bridge for the device with the given serial. An empty serial targets the only device.
func New(path, serial string) *Bridge {
	if path == "" {
		path = Executable
	}
	return &Bridge{Path: path, Serial: serial}
}

// CommandError describes a failed adb invocation.
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("adb %s: %v", strings.Join(e.Args, " "), e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (b *Bridge) command(ctx context.Context, args ...string) *exec.Cmd {
	var full []string
	if b.Serial != "" {
		full = append(full, "-s", b.Serial)
	}
	full = append(full, args...)

	log.Debug().Str("cmd", fmt.Sprintf("%s %s", b.Path, strings.Join(full, " "))).Msg("Running adb")
	return exec.CommandContext(ctx, b.Path, full...)
}

// Run executes adb with args and returns its combined output.
func (b *Bridge) Run(ctx context.Context, args ...string) (string, error) {
	out, err := b.command(ctx, args...).CombinedOutput()
	if err != nil {
		return string(out), &CommandError{Args: args, Output: string(out), Err: err}
	}
	log.Debug().Str("output", string(out)).Msg("adb output")
	return string(out), nil
}

// WaitForDevice blocks until a device is attached or ctx is done.
func (b *Bridge) WaitForDevice(ctx context.Context) error {
	_, err := b.Run(ctx, "wait-for-device")
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Devices lists the attached devices.
func (b *Bridge) Devices(ctx context.Context) ([]Device, error) {
	out, err := b.Run(ctx, "devices", "-l")
	if err != nil {
		return nil, err
	}
	return ParseDevices(out), nil
}

// Forward forwards the local TCP port to the device TCP port.
func (b *Bridge) Forward(ctx context.Context, local, remote int) error {
	_, err := b.Run(ctx, "forward", "tcp:"+strconv.Itoa(local), "tcp:"+strconv.Itoa(remote))
	return err
}

// Push copies a local file onto the device.
func (b *Bridge) Push(ctx context.Context, src, dst string) error {
	_, err := b.Run(ctx, "push", src, dst)
	return err
}

// Pull copies a device file to the local path dst.
func (b *Bridge) Pull(ctx context.Context, src, dst string) error {
	_, err := b.Run(ctx, "pull", src, dst)
	return err
}

// Shell runs a command in the device shell and returns its output.
func (b *Bridge) Shell(ctx context.Context, command ...string) (string, error) {
	return b.Run(ctx, append([]string{"shell"}, command...)...)
}

// ShellScript feeds script to an interactive device shell, streaming its output. It returns when the
// shell exits or ctx is done, in which case the shell process is killed.
func (b *Bridge) ShellScript(ctx context.Context, script string, stdout, stderr io.Writer) error {
	cmd := b.command(ctx, "shell")
	cmd.Stdin = bytes.NewBufferString(script)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &CommandError{Args: []string{"shell"}, Err: err}
	}
	return nil
}

// Remount remounts /system read-write.
func (b *Bridge) Remount(ctx context.Context) error {
	_, err := b.Run(ctx, "remount")
	return err
}

// Reboot reboots the device.
func (b *Bridge) Reboot(ctx context.Context) error {
	_, err := b.Run(ctx, "reboot")
	return err
}

// StopB2G stops the B2G process on the device.
func (b *Bridge) StopB2G(ctx context.Context) error {
	_, err := b.Shell(ctx, "stop", "b2g")
	return err
}

// StartB2G starts the B2G process on the device.
func (b *Bridge) StartB2G(ctx context.Context) error {
	_, err := b.Shell(ctx, "start", "b2g")
	return err
}
