package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cmds "github.com/kumar303/ezboot/internal/cmd"
)

func TestSetupLogging(t *testing.T) {
	setupLogging(true, true)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	setupLogging(false, true)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", want: 0},
		{name: "usage", err: &cmds.UsageError{Message: "--certs_path is required"}, want: 2},
		{name: "failure", err: errors.New("flash.sh failed"), want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := new(bytes.Buffer)
			assert.Equal(t, tt.want, exitCode(out, tt.err))
			if tt.err != nil {
				assert.Contains(t, out.String(), "error:")
				assert.Contains(t, out.String(), tt.err.Error())
			}
		})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCommand(cmds.NewApp())

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{
		"flash", "reflash", "dl", "info", "setup", "mkt_certs", "install", "install_mkt",
		"bind", "login", "kill", "recss", "http", "apps", "completion",
	}, names)
}

func TestRun_AdbMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	dir := t.TempDir()
	workDir := filepath.Join(dir, "work")

	for _, name := range []string{"flash", "reflash", "dl", "info", "setup", "mkt_certs", "install", "bind", "kill", "http", "apps"} {
		t.Run(name, func(t *testing.T) {
			out := new(bytes.Buffer)
			code := run(context.Background(), []string{
				name,
				"--config", filepath.Join(dir, "ezboot.ini"),
				"--work_dir", workDir,
				"--no-color",
			}, out)

			require.Equal(t, 2, code, out.String())
			assert.Contains(t, out.String(), "adb not found on $PATH")
			assert.NoDirExists(t, workDir)
		})
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	out := new(bytes.Buffer)
	assert.Equal(t, 2, run(context.Background(), []string{"kill", "--nope"}, out))
	assert.Contains(t, out.String(), "unknown flag: --nope")
}

func TestRun_CompletionNeedsNoDevice(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	dir := t.TempDir()

	out := new(bytes.Buffer)
	code := run(context.Background(), []string{"completion", "bash", "--config", filepath.Join(dir, "ezboot.ini")}, out)
	assert.Equal(t, 0, code, out.String())
}
