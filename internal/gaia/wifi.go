package gaia

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kumar303/ezboot/internal/marionette"
)

// Key management schemes understood by the Wi-Fi manager.
const (
	KeyWPAPSK = "WPA-PSK"
	KeyWEP    = "WEP"
)

// ErrUnknownKeyManagement is returned for key management schemes other than WPA-PSK and WEP.
var ErrUnknownKeyManagement = errors.New("unknown key management")

// WifiTimeout bounds how long to wait for an association.
var WifiTimeout = 60 * time.Second

// Network describes a Wi-Fi network to join.
type Network struct {
	SSID          string
	KeyManagement string
	Password      string
}

// NewNetwork validates the key management scheme, which is case insensitive.
func NewNetwork(ssid, key, password string) (Network, error) {
	key = strings.ToUpper(key)
	switch key {
	case KeyWPAPSK, KeyWEP:
	default:
		return Network{}, fmt.Errorf("%w %q", ErrUnknownKeyManagement, key)
	}
	return Network{SSID: ssid, KeyManagement: key, Password: password}, nil
}

// params returns the object handed to mozWifiManager.associate.
func (n Network) params() map[string]string {
	passKey := "psk"
	if n.KeyManagement == KeyWEP {
		passKey = "wep"
	}
	return map[string]string{
		"ssid":          n.SSID,
		"keyManagement": n.KeyManagement,
		passKey:         n.Password,
	}
}

const enableWifiScript = `
var resolve = arguments[arguments.length - 1];
var req = navigator.mozSettings.createLock().set({'wifi.enabled': true});
req.onsuccess = function() { resolve(true); };
req.onerror = function() { resolve(false); };
`

const associateScript = `
var resolve = arguments[arguments.length - 1];
var network = arguments[0];
var manager = navigator.mozWifiManager;
var conn = manager.connection;
if (conn.status === 'connected' && conn.network && conn.network.ssid === network.ssid) {
  resolve(true);
  return;
}
var req = manager.associate(network);
req.onsuccess = function() { resolve(true); };
req.onerror = function() { resolve(false); };
`

const wifiStatusScript = `
var manager = navigator.mozWifiManager;
return manager.enabled ? manager.connection.status : 'disabled';
`

// EnableWifi turns Wi-Fi on and waits for the radio to come up.
func (d *Device) EnableWifi(ctx context.Context) error {
	if err := d.mc.SwitchToFrame(ctx, nil); err != nil {
		return err
	}

	v, err := d.mc.ExecuteAsyncScript(ctx, enableWifiScript)
	if err != nil {
		return fmt.Errorf("enable wifi: %w", err)
	}
	if ok, _ := v.(bool); !ok {
		return errors.New("enable wifi: settings request failed")
	}

	return marionette.WaitForCondition(ctx, WifiTimeout, "wifi was not enabled", func(ctx context.Context) (bool, error) {
		v, err := d.mc.ExecuteScript(ctx, wifiStatusScript)
		status, _ := v.(string)
		return status != "disabled", err
	})
}

// ConnectToWifi joins n and waits until the connection is established.
func (d *Device) ConnectToWifi(ctx context.Context, n Network) error {
	if err := d.mc.SwitchToFrame(ctx, nil); err != nil {
		return err
	}

	v, err := d.mc.ExecuteAsyncScript(ctx, associateScript, n.params())
	if err != nil {
		return fmt.Errorf("connect to %s: %w", n.SSID, err)
	}
	if ok, _ := v.(bool); !ok {
		return fmt.Errorf("connect to %s: association request failed", n.SSID)
	}

	return marionette.WaitForCondition(ctx, WifiTimeout, fmt.Sprintf("could not connect to wifi network %s", n.SSID), func(ctx context.Context) (bool, error) {
		v, err := d.mc.ExecuteScript(ctx, wifiStatusScript)
		status, _ := v.(string)
		return status == "connected", err
	})
}
