//go:build linux

package route

import (
	"errors"
	"net"
	"net/netip"
	"testing"

	"github.com/jsimonetti/rtnetlink"
	"golang.org/x/sys/unix"
)

func fakeInterfaces(t *testing.T) {
	t.Helper()
	orig := interfaceByIndex
	interfaceByIndex = func(index int) (*net.Interface, error) {
		switch index {
		case 1:
			return &net.Interface{Index: 1, Name: "eth0", Flags: net.FlagUp}, nil
		case 2:
			return &net.Interface{Index: 2, Name: "eth1"}, nil
		}
		return nil, errors.New("no such network interface")
	}
	t.Cleanup(func() { interfaceByIndex = orig })
}

func TestRouteFromMessages(t *testing.T) {
	fakeInterfaces(t)
	ip := netip.MustParseAddr("192.0.2.100")

	tests := []struct {
		name    string
		msgs    []rtnetlink.RouteMessage
		want    Route
		wantErr bool
	}{
		{
			name: "via gateway",
			msgs: []rtnetlink.RouteMessage{
				{
					Family: unix.AF_INET,
					Attributes: rtnetlink.RouteAttributes{
						Dst:      ip.AsSlice(),
						Gateway:  netip.MustParseAddr("192.0.2.1").AsSlice(),
						Src:      netip.MustParseAddr("192.0.2.10").AsSlice(),
						OutIface: 1,
					},
				},
			},
			want: Route{
				Destination: ip,
				Gateway:     netip.MustParseAddr("192.0.2.1"),
				Source:      netip.MustParseAddr("192.0.2.10"),
			},
		},
		{
			name: "directly connected",
			msgs: []rtnetlink.RouteMessage{
				{
					Family: unix.AF_INET,
					Attributes: rtnetlink.RouteAttributes{
						Dst:      ip.AsSlice(),
						Src:      netip.MustParseAddr("192.0.2.10").AsSlice(),
						OutIface: 1,
					},
				},
			},
			want: Route{
				Destination: ip,
				Source:      netip.MustParseAddr("192.0.2.10"),
			},
		},
		{
			name:    "no routes",
			msgs:    nil,
			wantErr: true,
		},
		{
			name: "multiple routes error",
			msgs: []rtnetlink.RouteMessage{
				{Attributes: rtnetlink.RouteAttributes{Dst: ip.AsSlice(), Src: ip.AsSlice(), OutIface: 1}},
				{Attributes: rtnetlink.RouteAttributes{Dst: ip.AsSlice(), Src: ip.AsSlice(), OutIface: 1}},
			},
			wantErr: true,
		},
		{
			name: "destination mismatch",
			msgs: []rtnetlink.RouteMessage{
				{Attributes: rtnetlink.RouteAttributes{Dst: netip.MustParseAddr("192.0.2.99").AsSlice(), Src: ip.AsSlice(), OutIface: 1}},
			},
			wantErr: true,
		},
		{
			name: "invalid source",
			msgs: []rtnetlink.RouteMessage{
				{Attributes: rtnetlink.RouteAttributes{Dst: ip.AsSlice(), Src: []byte{}, OutIface: 1}},
			},
			wantErr: true,
		},
		{
			name: "interface down",
			msgs: []rtnetlink.RouteMessage{
				{Attributes: rtnetlink.RouteAttributes{Dst: ip.AsSlice(), Src: ip.AsSlice(), OutIface: 2}},
			},
			wantErr: true,
		},
		{
			name: "unknown interface",
			msgs: []rtnetlink.RouteMessage{
				{Attributes: rtnetlink.RouteAttributes{Dst: ip.AsSlice(), Src: ip.AsSlice(), OutIface: 9}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := routeFromMessages(ip, tt.msgs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("routeFromMessages() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Destination != tt.want.Destination || got.Gateway != tt.want.Gateway || got.Source != tt.want.Source {
				t.Errorf("routeFromMessages() = %+v, want %+v", got, tt.want)
			}
			if got.InterfaceName() != "eth0" {
				t.Errorf("InterfaceName() = %q, want eth0", got.InterfaceName())
			}
		})
	}
}

func TestGet_Linux(t *testing.T) {
	fakeInterfaces(t)
	ip := netip.MustParseAddr("192.0.2.1")

	tests := []struct {
		name    string
		ip      netip.Addr
		msgs    []rtnetlink.RouteMessage
		err     error
		wantErr bool
	}{
		{
			name: "successful fetch",
			ip:   ip,
			msgs: []rtnetlink.RouteMessage{
				{
					Family: unix.AF_INET,
					Attributes: rtnetlink.RouteAttributes{
						Dst:      ip.AsSlice(),
						Src:      netip.MustParseAddr("192.0.2.10").AsSlice(),
						OutIface: 1,
					},
				},
			},
		},
		{
			name:    "fetch error",
			ip:      ip,
			err:     errors.New("dial failed"),
			wantErr: true,
		},
		{
			name:    "IPv6 rejected",
			ip:      netip.MustParseAddr("2001:db8::1"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := fetchRoutes
			fetchRoutes = func(ip netip.Addr) ([]rtnetlink.RouteMessage, error) { return tt.msgs, tt.err }
			defer func() { fetchRoutes = orig }()

			_, err := Get(tt.ip)

			if (err != nil) != tt.wantErr {
				t.Errorf("Get() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRoute_String(t *testing.T) {
	r := Route{
		Destination: netip.MustParseAddr("192.0.2.100"),
		Gateway:     netip.MustParseAddr("192.0.2.1"),
		Source:      netip.MustParseAddr("192.0.2.10"),
		Interface:   &net.Interface{Name: "eth0"},
	}
	want := "192.0.2.100 from 192.0.2.10 dev eth0 via 192.0.2.1"
	if got := r.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
