package gaia

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"

	"github.com/kumar303/ezboot/internal/marionette"
)

// App is an installed application as reported by navigator.mozApps.
type App struct {
	Origin        string                 `mapstructure:"origin"`
	ManifestURL   string                 `mapstructure:"manifestURL"`
	InstallOrigin string                 `mapstructure:"installOrigin"`
	InstallTime   float64                `mapstructure:"installTime"`
	Manifest      map[string]interface{} `mapstructure:"manifest"`
}

// Name returns the manifest name of the app.
func (a App) Name() string {
	name, _ := a.Manifest["name"].(string)
	return name
}

// Installed returns the installed apps.
func (d *Device) Installed(ctx context.Context) ([]App, error) {
	if err := d.mc.SwitchToFrame(ctx, nil); err != nil {
		return nil, err
	}

	v, err := d.mc.ExecuteAsyncScript(ctx, installedScript)
	if err != nil {
		return nil, fmt.Errorf("list installed apps: %w", err)
	}

	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("list installed apps: %w: %T", ErrUnexpectedResult, v)
	}

	apps := lo.FilterMap(raw, func(item interface{}, _ int) (App, bool) {
		var app App
		if err := mapstructure.Decode(item, &app); err != nil {
			return app, false
		}
		return app, app.ManifestURL != ""
	})
	sort.Slice(apps, func(i, j int) bool { return apps[i].Name() < apps[j].Name() })

	return apps, nil
}

const installedScript = `
var resolve = arguments[arguments.length - 1];
var req = navigator.mozApps.getInstalled();
req.onsuccess = function() {
  var apps = [];
  for (var i = 0; i < req.result.length; i++) {
    var ob = req.result[i];
    var app = {};
    // Copy own and inherited fields so the app serializes.
    for (var k in ob) {
      if (typeof ob[k] !== 'function') {
        app[k] = ob[k];
      }
    }
    apps.push(app);
  }
  resolve(apps);
};
req.onerror = function() {
  resolve([]);
};
`

const launchScript = `
var resolve = arguments[arguments.length - 1];
var name = arguments[0];
var req = navigator.mozApps.mgmt.getAll();
req.onsuccess = function() {
  for (var i = 0; i < req.result.length; i++) {
    var app = req.result[i];
    if (app.manifest && app.manifest.name === name) {
      app.launch();
      resolve(app.origin);
      return;
    }
  }
  resolve(null);
};
req.onerror = function() {
  resolve(null);
};
`

// Launch starts the app with the given manifest name and switches into its frame.
func (d *Device) Launch(ctx context.Context, name string) (*marionette.Element, error) {
	if err := d.mc.SwitchToFrame(ctx, nil); err != nil {
		return nil, err
	}

	v, err := d.mc.ExecuteAsyncScript(ctx, launchScript, name)
	if err != nil {
		return nil, fmt.Errorf("launch %s: %w", name, err)
	}
	origin, _ := v.(string)
	if origin == "" {
		return nil, fmt.Errorf("launch %s: %w", name, ErrAppNotInstalled)
	}

	frame, err := marionette.WaitForDisplayed(ctx, d.mc, marionette.CSS(fmt.Sprintf("iframe[src^=%q]", origin)), 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("launch %s: %w", name, err)
	}
	if err := d.mc.SwitchToFrame(ctx, frame); err != nil {
		return nil, err
	}
	return frame, nil
}
