// Package adbtest provides a scripted stand-in for the adb executable.
package adbtest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/v3/fs"

	"github.com/kumar303/ezboot/internal/adb"
)

// Script is a fake adb. It logs its arguments to calls.log, keeps pushed and pulled files in device/ by
// base name and echoes the input of interactive shells. With ADBTEST_HANG set, interactive shells block
// until killed.
const Script = `#!/bin/sh
dir="$(dirname "$0")"
echo "$@" >> "$dir/calls.log"
case "$1" in
  devices)
    echo "List of devices attached"
    echo "full_unagi             device usb:1-1.2 product:full_unagi model:unagi device:unagi transport_id:3"
    ;;
  pull)
    cp "$dir/device/$(basename "$2")" "$3"
    ;;
  push)
    cp "$2" "$dir/device/$(basename "$3")"
    ;;
  shell)
    if [ $# -eq 1 ]; then
      if [ -n "$ADBTEST_HANG" ]; then
        exec sleep 30
      fi
      cat
    fi
    ;;
esac
`

// Fake is a fake adb installed in a temporary directory.
type Fake struct {
	Dir *fs.Dir
}

// New installs Script and returns the fake together with a Bridge that runs it.
func New(t *testing.T) (*Fake, *adb.Bridge) {
	t.Helper()

	dir := fs.NewDir(t, "adb",
		fs.WithFile(adb.Executable, Script, fs.WithMode(0755)),
		fs.WithDir("device"),
	)
	t.Cleanup(dir.Remove)

	return &Fake{Dir: dir}, adb.New(dir.Join(adb.Executable), "")
}

// Calls returns the arguments of every invocation, one line per call.
func (f *Fake) Calls(t *testing.T) []string {
	t.Helper()

	data, err := os.ReadFile(f.Dir.Join("calls.log"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// WriteDeviceFile stores content as the device file named like path.
func (f *Fake) WriteDeviceFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(f.Dir.Join("device", filepath.Base(path)), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// DeviceFile returns the content of the device file named like path.
func (f *Fake) DeviceFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(f.Dir.Join("device", filepath.Base(path)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
