// Package zip unpacks build archives.
package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Extract unpacks the archive at src into dest and returns the number of files written.
// File modes recorded in the archive are kept so that scripts stay executable.
func Extract(src, dest string) (int, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	dest, err = filepath.Abs(dest)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, f := range r.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
			return count, fmt.Errorf("illegal file path in archive: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, dirMode(f)); err != nil {
				return count, err
			}
			continue
		}

		log.Debug().Str("name", f.Name).Msg("Extracting from archive")
		if err := extractFile(f, target); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func dirMode(f *zip.File) os.FileMode {
	if m := f.Mode().Perm(); m != 0 {
		return m | 0700
	}
	return 0755
}
