package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNoBuild is returned when there is no previously downloaded build to flash.
var ErrNoBuild = errors.New("no build to flash. Did you run flash?")

// DefaultURLs are the nightly builds for the devices we know about.
var DefaultURLs = map[string]string{
	"unagi": "https://pvtbuilds.mozilla.org/pub/mozilla.org/b2g/nightly/mozilla-b2g18-unagi-eng/latest/unagi.zip",
	"inari": "https://pvtbuilds.mozilla.org/pvt/mozilla.org/b2gotoro/nightly/mozilla-b2g18-inari-eng/latest/inari.zip",
}

// URLFor returns the default build URL for device. The lookup is case insensitive.
func URLFor(device string) (string, bool) {
	u, ok := DefaultURLs[strings.ToLower(device)]
	return u, ok
}

// LastDistro returns the b2g-distro directory of the last build downloaded into workDir.
func LastDistro(workDir string) (string, error) {
	distro := filepath.Join(workDir, LastBuildDir, DistroDir)
	fi, err := os.Stat(distro)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !fi.IsDir()) {
		return "", ErrNoBuild
	}
	if err != nil {
		return "", err
	}
	return distro, nil
}

// Flash runs flash.sh from the distro directory, streaming its output.
func Flash(ctx context.Context, distro string, stdout, stderr io.Writer) error {
	log.Info().Str("dir", distro).Msg("Flashing device")

	cmd := exec.CommandContext(ctx, "./flash.sh")
	cmd.Dir = distro
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("flash.sh failed: %w", err)
	}
	return nil
}
