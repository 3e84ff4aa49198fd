// Package progress shows a spinner while waiting on the device.
package progress

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
)

var spinnerSpeed = 1 * time.Second
var spinnerInstance = spinner.New(spinner.CharSets[14], spinnerSpeed, spinner.WithWriter(os.Stderr))

// Show starts showing a progress spinner. Nothing is drawn when stderr is not a terminal.
func Show(text string, args ...interface{}) *spinner.Spinner {
	message := " " + fmt.Sprintf(text, args...)
	spinnerInstance.Suffix = message
	spinnerInstance.Stop()
	if isatty.IsTerminal(os.Stderr.Fd()) {
		spinnerInstance.Start()
	}
	return spinnerInstance
}

// Stop stops the progress spinner.
func Stop() {
	spinnerInstance.Stop()
}
