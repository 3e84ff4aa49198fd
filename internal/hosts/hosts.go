// Package hosts edits the device hosts file and discovers the addresses the device can reach us on.
package hosts

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// DevicePath is the hosts file on the device.
const DevicePath = "/system/etc/hosts"

// Marker prefixes every comment line written by Rewrite.
const Marker = "# ezboot:"

// ErrNoInterfaces is returned when no usable IPv4 address was found.
var ErrNoInterfaces = errors.New(`no useable interfaces found. Are you connected to a network that your device will be able to "see"?`)

// UnknownInterfaceError is returned when an interface name does not exist.
type UnknownInterfaceError struct {
	Name      string
	Available []string
}

func (e *UnknownInterfaceError) Error() string {
	return fmt.Sprintf("unknown interface %q. Choose one of: %s", e.Name, strings.Join(e.Available, ", "))
}

// Rewrite binds host to ip. Previous bindings of host and lines carrying Marker are dropped and the new
// binding is appended. Every returned line ends with a newline.
func Rewrite(lines []string, host, ip string) []string {
	kept := lo.Reject(lines, func(ln string, _ int) bool {
		return strings.HasSuffix(strings.TrimSpace(ln), host) || strings.HasPrefix(ln, Marker)
	})
	kept = lo.Map(kept, func(ln string, _ int) string {
		if strings.HasSuffix(ln, "\n") {
			return ln
		}
		return ln + "\n"
	})

	return append(kept,
		Marker+" bind command added this:\n",
		fmt.Sprintf("%s\t\t    %s\n", ip, host),
	)
}

// Split breaks file content into lines, keeping line endings.
func Split(content string) []string {
	if content == "" {
		return nil
	}
	return strings.SplitAfter(strings.TrimSuffix(content, "\n"), "\n")
}

// Address is an IPv4 address assigned to a local interface.
type Address struct {
	Interface string
	IP        string
}

func (a Address) String() string {
	return fmt.Sprintf("%s (%s)", a.IP, a.Interface)
}

// Interface is the subset of net.Interface used for address discovery.
type Interface interface {
	Name() string
	Addrs() ([]net.Addr, error)
}

type netInterface struct {
	iface net.Interface
}

func (i netInterface) Name() string {
	return i.iface.Name
}

func (i netInterface) Addrs() ([]net.Addr, error) {
	return i.iface.Addrs()
}

// SystemInterfaces returns the interfaces of this machine.
func SystemInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	return lo.Map(ifaces, func(i net.Interface, _ int) Interface {
		return netInterface{iface: i}
	}), nil
}

// Addresses returns the non-loopback IPv4 addresses of ifaces sorted by address. When name is set only that
// interface is considered.
func Addresses(ifaces []Interface, name string) ([]Address, error) {
	if name != "" {
		match, ok := lo.Find(ifaces, func(i Interface) bool { return i.Name() == name })
		if !ok {
			return nil, &UnknownInterfaceError{
				Name:      name,
				Available: lo.Map(ifaces, func(i Interface, _ int) string { return i.Name() }),
			}
		}
		ifaces = []Interface{match}
	}

	var out []Address
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			return nil, fmt.Errorf("interface %s: %w", iface.Name(), err)
		}
		for _, a := range addrs {
			ip := addrIP(a)
			if ip == nil || ip.To4() == nil || strings.HasPrefix(ip.String(), "127") {
				continue
			}
			out = append(out, Address{Interface: iface.Name(), IP: ip.String()})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].IP < out[j].IP })
	return out, nil
}

func addrIP(a net.Addr) net.IP {
	switch v := a.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	}
	return nil
}
