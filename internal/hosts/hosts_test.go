package hosts

import (
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewrite(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "append",
			input: "127.0.0.1\t\t    localhost\n",
			want: "127.0.0.1\t\t    localhost\n" +
				"# ezboot: bind command added this:\n" +
				"10.0.1.5\t\t    mp.dev\n",
		},
		{
			name: "replace previous binding",
			input: "127.0.0.1\t\t    localhost\n" +
				"# ezboot: bind command added this:\n" +
				"192.168.0.2\t\t    mp.dev\n",
			want: "127.0.0.1\t\t    localhost\n" +
				"# ezboot: bind command added this:\n" +
				"10.0.1.5\t\t    mp.dev\n",
		},
		{
			name:  "missing trailing newline",
			input: "127.0.0.1 localhost",
			want: "127.0.0.1 localhost\n" +
				"# ezboot: bind command added this:\n" +
				"10.0.1.5\t\t    mp.dev\n",
		},
		{
			name:  "empty file",
			input: "",
			want: "# ezboot: bind command added this:\n" +
				"10.0.1.5\t\t    mp.dev\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Join(Rewrite(Split(tt.input), "mp.dev", "10.0.1.5"), "")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Rewrite() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRewrite_Idempotent(t *testing.T) {
	once := Rewrite(Split("127.0.0.1 localhost\n"), "mp.dev", "10.0.1.5")
	twice := Rewrite(once, "mp.dev", "10.0.1.5")
	assert.Equal(t, once, twice)
}

type fakeInterface struct {
	name  string
	addrs []net.Addr
	err   error
}

func (f fakeInterface) Name() string               { return f.name }
func (f fakeInterface) Addrs() ([]net.Addr, error) { return f.addrs, f.err }

func ipNet(s string) net.Addr {
	ip, n, _ := net.ParseCIDR(s)
	n.IP = ip
	return n
}

func TestAddresses(t *testing.T) {
	ifaces := []Interface{
		fakeInterface{name: "lo0", addrs: []net.Addr{ipNet("127.0.0.1/8"), ipNet("::1/128")}},
		fakeInterface{name: "en1", addrs: []net.Addr{ipNet("192.168.1.20/24")}},
		fakeInterface{name: "en0", addrs: []net.Addr{ipNet("10.0.1.5/24"), ipNet("fe80::1/64")}},
	}

	got, err := Addresses(ifaces, "")
	require.NoError(t, err)
	want := []Address{{Interface: "en0", IP: "10.0.1.5"}, {Interface: "en1", IP: "192.168.1.20"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Addresses() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "10.0.1.5 (en0)", got[0].String())

	got, err = Addresses(ifaces, "en1")
	require.NoError(t, err)
	assert.Equal(t, []Address{{Interface: "en1", IP: "192.168.1.20"}}, got)

	_, err = Addresses(ifaces, "wlan0")
	var uerr *UnknownInterfaceError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, []string{"lo0", "en1", "en0"}, uerr.Available)
}

func TestAddresses_InterfaceError(t *testing.T) {
	ifaces := []Interface{fakeInterface{name: "en0", err: errors.New("boom")}}

	_, err := Addresses(ifaces, "")
	assert.ErrorContains(t, err, "interface en0: boom")
}
