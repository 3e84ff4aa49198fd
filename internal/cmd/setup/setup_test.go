package setup

import (
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/fs"

	"github.com/kumar303/ezboot/internal/adb/adbtest"
	cmds "github.com/kumar303/ezboot/internal/cmd"
	"github.com/kumar303/ezboot/internal/gaia"
	"github.com/kumar303/ezboot/internal/marionette/marionettetest"
	"github.com/kumar303/ezboot/internal/msg"
)

func newApp(t *testing.T) (*cmds.App, *adbtest.Fake) {
	t.Helper()

	fake, bridge := adbtest.New(t)
	return &cmds.App{
		Global: cmds.Global{WorkDir: t.TempDir()},
		ADB:    bridge,
		Stdout: io.Discard,
		Stderr: io.Discard,
	}, fake
}

func TestOptions_Network(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    *gaia.Network
		wantErr string
	}{
		{
			name: "no wifi",
		},
		{
			name:    "missing password",
			opts:    Options{WifiSSID: "mywifi", WifiKey: "WPA-PSK"},
			wantErr: msg.MissingWifiOptions,
		},
		{
			name:    "missing key",
			opts:    Options{WifiSSID: "mywifi", WifiPass: "secret"},
			wantErr: msg.MissingWifiOptions,
		},
		{
			name:    "unknown key",
			opts:    Options{WifiSSID: "mywifi", WifiKey: "WPA3", WifiPass: "secret"},
			wantErr: gaia.ErrUnknownKeyManagement.Error(),
		},
		{
			name: "wep",
			opts: Options{WifiSSID: "mywifi", WifiKey: "wep", WifiPass: "secret"},
			want: &gaia.Network{SSID: "mywifi", KeyManagement: gaia.KeyWEP, Password: "secret"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.network()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetup_InvalidWifiTouchesNothing(t *testing.T) {
	app, fake := newApp(t)

	err := setup(context.Background(), app, Options{WifiSSID: "mywifi"})
	var usage *cmds.UsageError
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, msg.MissingWifiOptions, usage.Message)
	assert.Empty(t, fake.Calls(t))
}

func TestPushPrefs(t *testing.T) {
	app, fake := newApp(t)
	dir := fs.NewDir(t, "prefs", fs.WithFile("custom-prefs.js", `user_pref("devtools.debugger.remote-enabled", true);`))
	defer dir.Remove()

	require.NoError(t, pushPrefs(context.Background(), app, dir.Join("custom-prefs.js")))

	assert.Equal(t, []string{
		"shell stop b2g",
		"push " + dir.Join("custom-prefs.js") + " " + UserPrefsPath,
		"shell start b2g",
	}, fake.Calls(t))
	assert.Equal(t, `user_pref("devtools.debugger.remote-enabled", true);`, fake.DeviceFile(t, UserPrefsPath))
}

func TestPushPrefs_MissingFile(t *testing.T) {
	app, fake := newApp(t)

	require.NoError(t, pushPrefs(context.Background(), app, "does/not/exist.js"))
	assert.Empty(t, fake.Calls(t))
}

func TestInstallCerts_Preconditions(t *testing.T) {
	tests := []struct {
		name   string
		global cmds.Global
		opts   CertsOptions
		want   string
	}{
		{
			name: "no certs path",
			opts: CertsOptions{Dev: true},
			want: msg.MissingCertsPath,
		},
		{
			name:   "device not connected",
			global: cmds.Global{FlashDeviceID: "usb:9-9"},
			opts:   CertsOptions{CertsPath: "certs", Dev: true},
		},
		{
			name:   "no environment",
			global: cmds.Global{FlashDevice: "unagi"},
			opts:   CertsOptions{CertsPath: "certs"},
			want:   msg.MissingCertsEnv,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newApp(t)
			tt.global.WorkDir = app.Global.WorkDir
			app.Global = tt.global

			err := installCerts(context.Background(), app, tt.opts)
			var usage *cmds.UsageError
			require.ErrorAs(t, err, &usage)
			if tt.want != "" {
				assert.Equal(t, tt.want, usage.Message)
			}
		})
	}
}

func TestSetup_PrefsOnlySkipsRestart(t *testing.T) {
	app, fake := newApp(t)
	dir := fs.NewDir(t, "prefs", fs.WithFile("custom-prefs.js", `user_pref("a", 1);`))
	defer dir.Remove()

	require.NoError(t, setup(context.Background(), app, Options{CustomPrefs: dir.Join("custom-prefs.js")}))

	assert.Equal(t, []string{
		"shell stop b2g",
		"push " + dir.Join("custom-prefs.js") + " " + UserPrefsPath,
		"shell start b2g",
	}, fake.Calls(t))
}

// installDevice answers a freshly restarted, unlocked device whose install prompt never shows for broken.
type installDevice struct {
	broken string

	mu        sync.Mutex
	requested []string
	taps      int
	tapped    bool
}

func (d *installDevice) handle(name string, params map[string]interface{}) (interface{}, *marionettetest.Error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch name {
	case "WebDriver:SwitchToFrame", "WebDriver:DeleteSession", "WebDriver:ElementClick":
		return nil, nil
	case "WebDriver:ExecuteScript":
		script, _ := params["script"].(string)
		switch {
		case strings.Contains(script, "readyState"):
			return marionettetest.Value(true), nil
		case strings.Contains(script, "getRunningApps"):
			return marionettetest.Value([]string{}), nil
		case strings.Contains(script, "mozApps.install"):
			args, _ := params["args"].([]interface{})
			manifest, _ := args[0].(string)
			d.requested = append(d.requested, manifest)
			d.tapped = false
			return marionettetest.Value(nil), nil
		}
		return marionettetest.Value(false), nil
	case "WebDriver:FindElement":
		current := ""
		if len(d.requested) > 0 {
			current = d.requested[len(d.requested)-1]
		}
		if params["value"] != "app-install-install-button" || current == d.broken || d.tapped {
			return nil, marionettetest.NoSuchElement
		}
		return marionettetest.Ref("install"), nil
	case "WebDriver:IsElementDisplayed":
		return marionettetest.Value(true), nil
	case "Marionette:SingleTap":
		d.taps++
		d.tapped = true
		return nil, nil
	}
	return nil, &marionettetest.Error{Code: "unknown command", Message: name}
}

func TestSetup_InstallsAppsBestEffort(t *testing.T) {
	timeout := gaia.InstallTimeout
	gaia.InstallTimeout = 300 * time.Millisecond
	t.Cleanup(func() { gaia.InstallTimeout = timeout })

	manifests := []string{
		"https://example.com/one.webapp",
		"https://example.com/broken.webapp",
		"https://example.com/three.webapp",
	}
	device := &installDevice{broken: manifests[1]}
	srv, err := marionettetest.Listen("127.0.0.1:0", device.handle)
	require.NoError(t, err)
	defer srv.Close()

	_, port, err := net.SplitHostPort(srv.Addr)
	require.NoError(t, err)

	app, fake := newApp(t)
	app.Global.AdbPort, err = strconv.Atoi(port)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	prefs := fs.NewDir(t, "prefs", fs.WithFile("custom-prefs.js", `user_pref("a", 1);`))
	defer prefs.Remove()

	err = setup(context.Background(), app, Options{Apps: manifests, CustomPrefs: prefs.Join("custom-prefs.js")})
	require.NoError(t, err)

	device.mu.Lock()
	assert.Equal(t, manifests, device.requested)
	assert.Equal(t, 2, device.taps)
	device.mu.Unlock()

	calls := fake.Calls(t)
	require.NotEmpty(t, calls)
	assert.Equal(t, []string{"shell stop b2g", "shell start b2g"}, calls[:2])
	assert.Contains(t, calls, "push "+prefs.Join("custom-prefs.js")+" "+UserPrefsPath)
	assert.Equal(t, "shell start b2g", calls[len(calls)-1])
}
