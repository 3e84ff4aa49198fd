// Package gaia implements the on-device UI flows of the Gaia front end: unlocking, app management, Wi-Fi,
// app installation and sign-in. All flows run through a Marionette session.
package gaia

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kumar303/ezboot/internal/marionette"
)

var (
	// ErrAppNotInstalled is returned when launching an app that is not on the device.
	ErrAppNotInstalled = errors.New("app is not installed")
	// ErrUnexpectedResult is returned when a device script returns something unusable.
	ErrUnexpectedResult = errors.New("unexpected script result")
)

// Device runs Gaia flows over a Marionette session.
type Device struct {
	mc marionette.Session
}

// New returns a Device for the given session.
func New(s marionette.Session) *Device {
	return &Device{mc: s}
}

const readyScript = `
var w = window.wrappedJSObject;
return document.readyState === 'complete' && !!(w.System || w.Service || w.WindowManager);
`

// WaitForReady waits until the system app finished booting.
func (d *Device) WaitForReady(ctx context.Context, timeout time.Duration) error {
	if err := d.mc.SwitchToFrame(ctx, nil); err != nil {
		return err
	}
	return marionette.WaitForCondition(ctx, timeout, "B2G did not become ready", func(ctx context.Context) (bool, error) {
		v, err := d.mc.ExecuteScript(ctx, readyScript)
		ready, _ := v.(bool)
		return ready, err
	})
}

const unlockScript = `
var w = window.wrappedJSObject;
var ls = w.LockScreen || w.lockScreen;
if (!ls || !ls.locked) {
  return false;
}
ls.unlock(true);
return true;
`

const lockedScript = `
var w = window.wrappedJSObject;
var ls = w.LockScreen || w.lockScreen;
return !!(ls && ls.locked);
`

// Unlock unlocks the lock screen if it is shown.
func (d *Device) Unlock(ctx context.Context) error {
	if err := d.mc.SwitchToFrame(ctx, nil); err != nil {
		return err
	}

	v, err := d.mc.ExecuteScript(ctx, unlockScript)
	if err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	if unlocked, _ := v.(bool); !unlocked {
		log.Debug().Msg("Lock screen was not locked")
		return nil
	}

	return marionette.WaitForCondition(ctx, 0, "lock screen did not unlock", func(ctx context.Context) (bool, error) {
		v, err := d.mc.ExecuteScript(ctx, lockedScript)
		locked, _ := v.(bool)
		return !locked, err
	})
}

const killAllScript = `
var wm = window.wrappedJSObject.WindowManager;
if (!wm) {
  return [];
}
var running = wm.getRunningApps();
var killed = [];
for (var origin in running) {
  if (origin.indexOf('homescreen') === -1 && origin.indexOf('keyboard') === -1) {
    wm.kill(origin);
    killed.push(origin);
  }
}
return killed;
`

// KillAll closes every running app except the homescreen and keyboard. It returns the killed origins.
func (d *Device) KillAll(ctx context.Context) ([]string, error) {
	if err := d.mc.SwitchToFrame(ctx, nil); err != nil {
		return nil, err
	}

	v, err := d.mc.ExecuteScript(ctx, killAllScript)
	if err != nil {
		return nil, fmt.Errorf("kill apps: %w", err)
	}
	return toStrings(v), nil
}

const reloadCSSScript = `
function _doReCSS() {
  var i, a, s;
  a = document.getElementsByTagName('link');
  for (i = 0; i < a.length; i++) {
    s = a[i];
    if (s.rel.toLowerCase().indexOf('stylesheet') >= 0 && s.href) {
      var h = s.href.replace(/(&|\?)forceReload=\d+/, '');
      s.href = h + (h.indexOf('?') >= 0 ? '&' : '?') + 'forceReload=' + (new Date().valueOf());
    }
  }
}
_doReCSS();
`

// ReloadCSS forces every stylesheet of the top-level document to reload.
func (d *Device) ReloadCSS(ctx context.Context) error {
	if err := d.mc.SwitchToFrame(ctx, nil); err != nil {
		return err
	}
	_, err := d.mc.ExecuteScript(ctx, reloadCSSScript)
	return err
}

func toStrings(v interface{}) []string {
	items, _ := v.([]interface{})
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
