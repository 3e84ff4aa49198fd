package install

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cmds "github.com/kumar303/ezboot/internal/cmd"
	"github.com/kumar303/ezboot/internal/gaia"
	"github.com/kumar303/ezboot/internal/marionette"
	"github.com/kumar303/ezboot/internal/marionette/marionettetest"
	"github.com/kumar303/ezboot/internal/msg"
	"github.com/kumar303/ezboot/internal/poll"
)

func newDevice(t *testing.T, h marionettetest.Handler) *gaia.Device {
	t.Helper()

	srv, err := marionettetest.NewServer(h)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	mc, err := marionette.Dial(context.Background(), srv.Addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mc.Close() })
	require.NoError(t, mc.NewSession(context.Background()))

	return gaia.New(mc)
}

func TestInstallError(t *testing.T) {
	app := &cmds.App{}
	other := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "marketplace missing", err: fmt.Errorf("Marketplace Dev: %w", gaia.ErrMarketplaceNotInstalled), want: msg.MarketplaceMissing},
		{name: "no search results", err: gaia.ErrAppNotFound, want: msg.AppNotFound},
		{name: "timeout", err: &poll.TimeoutError{Message: "element not displayed"}, want: msg.NoInternet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var usage *cmds.UsageError
			require.ErrorAs(t, installError(app, tt.err), &usage)
			assert.Equal(t, tt.want, usage.Message)
		})
	}

	assert.NoError(t, installError(app, nil))
	assert.Equal(t, other, installError(app, other))
}

// installHandler answers like a device on which every install prompt is confirmed.
type installHandler struct {
	mu        sync.Mutex
	scripts   []string
	manifests []interface{}
	tapped    bool
	prompt    bool
}

func (h *installHandler) handle(name string, params map[string]interface{}) (interface{}, *marionettetest.Error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch name {
	case "WebDriver:SwitchToFrame":
		return nil, nil
	case "WebDriver:ExecuteScript":
		script, _ := params["script"].(string)
		h.scripts = append(h.scripts, script)
		if strings.Contains(script, "mozApps.install") {
			h.manifests = append(h.manifests, params["args"].([]interface{})...)
			h.prompt = true
		}
		if strings.Contains(script, "getRunningApps") {
			return marionettetest.Value([]string{}), nil
		}
		return marionettetest.Value(false), nil
	case "WebDriver:FindElement":
		if params["value"] == "app-install-install-button" && h.prompt && !h.tapped {
			return marionettetest.Ref("yes"), nil
		}
		return nil, marionettetest.NoSuchElement
	case "WebDriver:IsElementDisplayed":
		return marionettetest.Value(true), nil
	case "Marionette:SingleTap":
		h.tapped = true
		return nil, nil
	}
	return nil, &marionettetest.Error{Code: "unknown command"}
}

func TestInstall_Manifest(t *testing.T) {
	h := &installHandler{}
	d := newDevice(t, h.handle)

	err := Install(context.Background(), &cmds.App{}, d, Options{
		Manifest: "https://example.com/manifest.webapp",
		App:      "ignored",
	})
	require.NoError(t, err)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, []interface{}{"https://example.com/manifest.webapp"}, h.manifests)
	assert.True(t, h.tapped)
	require.GreaterOrEqual(t, len(h.scripts), 3)
	assert.Contains(t, h.scripts[0], "ls.unlock(true)")
	assert.Contains(t, h.scripts[1], "getRunningApps")
}

func TestInstall_ManifestWithoutPrompt(t *testing.T) {
	timeout := gaia.InstallTimeout
	gaia.InstallTimeout = 50 * time.Millisecond
	defer func() { gaia.InstallTimeout = timeout }()

	d := newDevice(t, func(name string, params map[string]interface{}) (interface{}, *marionettetest.Error) {
		switch name {
		case "WebDriver:SwitchToFrame":
			return nil, nil
		case "WebDriver:ExecuteScript":
			return marionettetest.Value(false), nil
		case "WebDriver:FindElement":
			return nil, marionettetest.NoSuchElement
		}
		return nil, &marionettetest.Error{Code: "unknown command"}
	})

	err := Install(context.Background(), &cmds.App{}, d, Options{Manifest: "https://example.com/manifest.webapp"})
	var usage *cmds.UsageError
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, msg.NoInternet, usage.Message)
}
