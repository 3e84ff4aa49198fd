// Package certs installs the marketplace developer certificates on a device.
package certs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/kumar303/ezboot/internal/adb"
)

const (
	// RepoURL hosts the scripts that rewrite the device certificate database.
	RepoURL = "https://github.com/briansmith/marketplace-certs.git"
	// Dir is the checkout directory under the work dir.
	Dir = "marketplace-certs"
)

// TrustedServers are the marketplaces whose signed packages the device will accept.
var TrustedServers = []string{"https://marketplace-dev.allizom.org", "https://marketplace.firefox.com"}

// ErrUnknownDevice is returned when the device identifier does not match a connected device.
var ErrUnknownDevice = errors.New(`check your device string using "adb devices -l" and put it in your ini file ` +
	`as flash_device_id. If you have problems use the string prefixed with "usb:"`)

// DeviceID resolves the identifier the certificate scripts address the device by. Unagi devices default
// to "full_unagi". The result must match one of the connected devices.
func DeviceID(flashDevice, id string, connected []adb.Device) (string, error) {
	if id == "" && strings.EqualFold(flashDevice, "unagi") {
		id = "full_unagi"
	}
	if id == "" {
		return "", ErrUnknownDevice
	}

	if !lo.ContainsBy(connected, func(d adb.Device) bool { return d.Matches(id) }) {
		return "", fmt.Errorf("%q: %w", id, ErrUnknownDevice)
	}
	return id, nil
}

// Repo is a local checkout of the certificate scripts.
type Repo struct {
	URL  string
	Path string
	// Progress receives git's progress output.
	Progress io.Writer
}

// NewRepo returns the checkout kept under workDir.
func NewRepo(workDir string) *Repo {
	return &Repo{URL: RepoURL, Path: filepath.Join(workDir, Dir), Progress: os.Stdout}
}

// Sync clones the repository on first use and pulls the latest changes afterwards.
func (r *Repo) Sync(ctx context.Context) error {
	repo, err := git.PlainOpen(r.Path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		log.Info().Str("path", r.Path).Msg("Cloning certificates for the first time.")
		_, err = git.PlainCloneContext(ctx, r.Path, false, &git.CloneOptions{URL: r.URL, Progress: r.Progress})
		if err != nil {
			return fmt.Errorf("failed to clone %s: %w", r.URL, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", r.Path, err)
	}

	log.Info().Msg("Updating certificates from remote.")
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	err = wt.PullContext(ctx, &git.PullOptions{RemoteName: git.DefaultRemoteName, Progress: r.Progress})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to update %s: %w", r.Path, err)
	}
	return nil
}

// Install trusts the marketplaces and pushes the certificate database found in certsPath.
func (r *Repo) Install(ctx context.Context, deviceID, certsPath string, stdout, stderr io.Writer) error {
	certsPath, err := filepath.Abs(certsPath)
	if err != nil {
		return err
	}

	if err := r.script(ctx, stdout, stderr, "./change_trusted_servers.sh", deviceID, strings.Join(TrustedServers, ",")); err != nil {
		return err
	}
	return r.script(ctx, stdout, stderr, "./push_certdb.sh", deviceID, certsPath)
}

func (r *Repo) script(ctx context.Context, stdout, stderr io.Writer, name string, args ...string) error {
	log.Debug().Str("script", name).Strs("args", args).Msg("Running")

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Path
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}
