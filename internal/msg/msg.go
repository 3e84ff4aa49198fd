// Package msg holds operator facing messages.
package msg

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
)

// AdbNotFound explains where to get adb.
const AdbNotFound = `adb not found on $PATH

You can get it from the Android SDK at:
http://developer.android.com/sdk/index.html`

// WaitingForDevice is shown while adb waits for a device.
const WaitingForDevice = "Waiting for your device (is it plugged in?)"

// PrintError prints err with a red error prefix.
func PrintError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	_, _ = fmt.Fprintf(w, "%s %v\n", red("error:"), err)
}

// LogBanner logs lines between two rules so they stand out of command output.
func LogBanner(lines ...string) {
	rule := strings.Repeat("*", 80)
	log.Info().Msg(rule)
	for _, l := range lines {
		log.Info().Msg(l)
	}
	log.Info().Msg(rule)
}

// LogSuccess logs a highlighted success message.
func LogSuccess(format string, args ...interface{}) {
	green := color.New(color.FgGreen).SprintFunc()
	log.Info().Msgf("%s %s", green("✔"), fmt.Sprintf(format, args...))
}
