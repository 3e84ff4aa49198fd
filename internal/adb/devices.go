package adb

import (
	"bufio"
	"strings"
)

// Device is an entry of `adb devices -l`.
type Device struct {
	Serial      string
	State       string // "device", "offline", "unauthorized", ...
	Model       string
	Product     string
	Device      string
	USB         string
	TransportID string
}

// IsOnline returns true if the device is ready for commands.
func (d Device) IsOnline() bool {
	return d.State == "device"
}

// ParseDevices parses the output of `adb devices -l`.
func ParseDevices(output string) []Device {
	var devices []Device

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}

		d := Device{Serial: parts[0], State: parts[1]}
		for _, part := range parts[2:] {
			key, value, ok := strings.Cut(part, ":")
			if !ok {
				continue
			}
			switch key {
			case "model":
				d.Model = value
			case "product":
				d.Product = value
			case "device":
				d.Device = value
			case "usb":
				d.USB = value
			case "transport_id":
				d.TransportID = value
			}
		}
		devices = append(devices, d)
	}

	return devices
}

// Matches reports whether id identifies d. Accepted forms are the serial, "usb:<path>" and the
// product or device name.
func (d Device) Matches(id string) bool {
	if id == "" {
		return false
	}
	switch {
	case id == d.Serial:
		return true
	case d.USB != "" && id == "usb:"+d.USB:
		return true
	case id == d.Product || id == d.Device:
		return true
	}
	return false
}
