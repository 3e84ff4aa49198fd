package gaia

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kumar303/ezboot/internal/marionette"
	"github.com/kumar303/ezboot/internal/marionette/marionettetest"
)

func newDevice(t *testing.T, h marionettetest.Handler) (*Device, *marionettetest.Server) {
	t.Helper()

	srv, err := marionettetest.NewServer(h)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	mc, err := marionette.Dial(context.Background(), srv.Addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mc.Close() })
	require.NoError(t, mc.NewSession(context.Background()))

	return New(mc), srv
}

func TestNewNetwork(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantKey string
		wantErr bool
		passKey string
	}{
		{name: "wpa", key: "wpa-psk", wantKey: KeyWPAPSK, passKey: "psk"},
		{name: "wep", key: "WEP", wantKey: KeyWEP, passKey: "wep"},
		{name: "unknown", key: "wpa2", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := NewNetwork("mywifi", tt.key, "secret with spaces")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownKeyManagement)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, n.KeyManagement)
			assert.Equal(t, map[string]string{
				"ssid":          "mywifi",
				"keyManagement": tt.wantKey,
				tt.passKey:      "secret with spaces",
			}, n.params())
		})
	}
}

func TestDevice_Unlock(t *testing.T) {
	var mu sync.Mutex
	locked := true

	d, _ := newDevice(t, func(name string, params map[string]interface{}) (interface{}, *marionettetest.Error) {
		mu.Lock()
		defer mu.Unlock()

		switch name {
		case "WebDriver:SwitchToFrame":
			return nil, nil
		case "WebDriver:ExecuteScript":
			script, _ := params["script"].(string)
			if strings.Contains(script, "ls.unlock(true)") {
				was := locked
				locked = false
				return marionettetest.Value(was), nil
			}
			return marionettetest.Value(locked), nil
		}
		return nil, &marionettetest.Error{Code: "unknown command"}
	})

	require.NoError(t, d.Unlock(context.Background()))
	require.NoError(t, d.Unlock(context.Background()))
}

func TestDevice_InstallManifest(t *testing.T) {
	var mu sync.Mutex
	var installed []interface{}
	taps := 0

	d, srv := newDevice(t, func(name string, params map[string]interface{}) (interface{}, *marionettetest.Error) {
		mu.Lock()
		defer mu.Unlock()

		switch name {
		case "WebDriver:SwitchToFrame":
			return nil, nil
		case "WebDriver:ExecuteScript":
			installed = append(installed, params["args"].([]interface{})...)
			return marionettetest.Value(nil), nil
		case "WebDriver:FindElement":
			if params["value"] != "app-install-install-button" {
				return nil, marionettetest.NoSuchElement
			}
			if taps > 0 {
				return nil, marionettetest.NoSuchElement
			}
			return marionettetest.Ref("yes"), nil
		case "WebDriver:IsElementDisplayed":
			return marionettetest.Value(true), nil
		case "Marionette:SingleTap":
			taps++
			return nil, nil
		}
		return nil, &marionettetest.Error{Code: "unknown command"}
	})

	err := d.InstallManifest(context.Background(), "https://example.com/manifest.webapp")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []interface{}{"https://example.com/manifest.webapp"}, installed)
	assert.Contains(t, srv.Commands(), "Marionette:SingleTap")
}

func TestDevice_KillAll(t *testing.T) {
	d, _ := newDevice(t, func(name string, params map[string]interface{}) (interface{}, *marionettetest.Error) {
		switch name {
		case "WebDriver:SwitchToFrame":
			return nil, nil
		case "WebDriver:ExecuteScript":
			return marionettetest.Value([]string{"app://browser.gaiamobile.org", "app://camera.gaiamobile.org"}), nil
		}
		return nil, &marionettetest.Error{Code: "unknown command"}
	})

	killed, err := d.KillAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"app://browser.gaiamobile.org", "app://camera.gaiamobile.org"}, killed)
}

func TestDevice_Installed(t *testing.T) {
	d, _ := newDevice(t, func(name string, params map[string]interface{}) (interface{}, *marionettetest.Error) {
		switch name {
		case "WebDriver:SwitchToFrame":
			return nil, nil
		case "WebDriver:ExecuteAsyncScript":
			return marionettetest.Value([]map[string]interface{}{
				{"origin": "app://sms.gaiamobile.org", "manifestURL": "app://sms.gaiamobile.org/manifest.webapp", "manifest": map[string]interface{}{"name": "Messages"}},
				{"origin": "https://marketplace-dev.allizom.org", "manifestURL": "https://marketplace-dev.allizom.org/manifest.webapp", "manifest": map[string]interface{}{"name": "Marketplace Dev"}, "installTime": 1368000000000},
				{"origin": "broken"},
			}), nil
		}
		return nil, &marionettetest.Error{Code: "unknown command"}
	})

	apps, err := d.Installed(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "Marketplace Dev", apps[0].Name())
	assert.Equal(t, "Messages", apps[1].Name())
}

func TestDevice_InstallFromMarketplaceWithoutMarketplace(t *testing.T) {
	d, _ := newDevice(t, func(name string, params map[string]interface{}) (interface{}, *marionettetest.Error) {
		switch name {
		case "WebDriver:SwitchToFrame":
			return nil, nil
		case "WebDriver:ExecuteAsyncScript":
			return marionettetest.Value(nil), nil
		}
		return nil, &marionettetest.Error{Code: "unknown command"}
	})

	err := d.InstallFromMarketplace(context.Background(), MarketplaceInstall{App: "Twitter"})
	assert.True(t, errors.Is(err, ErrMarketplaceNotInstalled), "got %v", err)
}

func TestDevice_PersonaWithoutPrompt(t *testing.T) {
	d, _ := newDevice(t, func(name string, params map[string]interface{}) (interface{}, *marionettetest.Error) {
		switch name {
		case "WebDriver:SwitchToFrame":
			return nil, nil
		case "WebDriver:FindElement":
			switch params["value"] {
			case "trustedui-frame-container":
				return marionettetest.Ref("container"), nil
			case "iframe":
				if params["element"] != "container" {
					return nil, marionettetest.NoSuchElement
				}
				return marionettetest.Ref("persona"), nil
			}
			return nil, marionettetest.NoSuchElement
		}
		return nil, &marionettetest.Error{Code: "unknown command"}
	})

	_, err := d.Persona(context.Background())
	assert.ErrorIs(t, err, ErrNoLoginPrompt)
}

func TestDevice_SearchResultErrors(t *testing.T) {
	timeout := InstallTimeout
	InstallTimeout = 100 * time.Millisecond
	t.Cleanup(func() { InstallTimeout = timeout })

	tests := []struct {
		name         string
		resultErr    *marionettetest.Error
		wantNotFound bool
	}{
		{name: "no results before timeout", resultErr: marionettetest.NoSuchElement, wantNotFound: true},
		{name: "script error", resultErr: &marionettetest.Error{Code: "javascript error", Message: "boom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newDevice(t, func(name string, params map[string]interface{}) (interface{}, *marionettetest.Error) {
				switch name {
				case "WebDriver:FindElement":
					if params["value"] == "search-q" {
						return marionettetest.Ref("search"), nil
					}
					return nil, tt.resultErr
				case "WebDriver:IsElementDisplayed":
					return marionettetest.Value(true), nil
				case "WebDriver:ElementSendKeys":
					return nil, nil
				}
				return nil, &marionettetest.Error{Code: "unknown command"}
			})

			err := d.tapFirstSearchResult(context.Background(), "Twitter")
			require.Error(t, err)
			assert.Equal(t, tt.wantNotFound, errors.Is(err, ErrAppNotFound), "got %v", err)
			if !tt.wantNotFound {
				var merr *marionette.Error
				require.ErrorAs(t, err, &merr)
				assert.Equal(t, "javascript error", merr.Code)
			}
		})
	}
}

// recordingSession is a marionette.Session that runs no device at all.
type recordingSession struct {
	scripts []string
	frames  int
}

func (s *recordingSession) FindElement(context.Context, marionette.Locator) (*marionette.Element, error) {
	return nil, marionette.ErrNoSuchElement
}

func (s *recordingSession) FindElements(context.Context, marionette.Locator) ([]*marionette.Element, error) {
	return nil, nil
}

func (s *recordingSession) SwitchToFrame(context.Context, *marionette.Element) error {
	s.frames++
	return nil
}

func (s *recordingSession) ExecuteScript(_ context.Context, script string, _ ...interface{}) (interface{}, error) {
	s.scripts = append(s.scripts, script)
	return []interface{}{"app://camera.gaiamobile.org", 42}, nil
}

func (s *recordingSession) ExecuteAsyncScript(_ context.Context, script string, _ ...interface{}) (interface{}, error) {
	s.scripts = append(s.scripts, script)
	return nil, nil
}

func TestDevice_OverAnySession(t *testing.T) {
	s := &recordingSession{}
	d := New(s)

	require.NoError(t, d.ReloadCSS(context.Background()))
	killed, err := d.KillAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"app://camera.gaiamobile.org"}, killed)
	assert.Equal(t, 2, s.frames)
	require.Len(t, s.scripts, 2)
	assert.Contains(t, s.scripts[0], "forceReload")
	assert.Contains(t, s.scripts[1], "getRunningApps")
}
