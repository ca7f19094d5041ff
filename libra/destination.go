// Package libra implements the SOCKS5 proxy handshake: the wire codec, the
// stage-carrying decoder, and the client/server state machines defined in
// RFC 1928 and RFC 1929.
package libra

import (
	"fmt"
	"net"
)

// Address family tags, as carried on the wire in the ATYP field.
const (
	AtypIPv4   = 0x01
	AtypDomain = 0x03
	AtypIPv6   = 0x04
)

// Destination is a tagged union over the three SOCKS5 address families: an
// IPv4 host, an IPv6 host, or a domain name, always paired with a port.
type Destination struct {
	atyp byte
	addr []byte
	port uint16
}

// NewDestinationFromBytes builds a Destination from a raw (family, address
// bytes, port) triple, the shape the wire decoder produces. addr must be 4
// bytes for AtypIPv4, 16 bytes for AtypIPv6, or 1..255 bytes for AtypDomain.
func NewDestinationFromBytes(atyp byte, addr []byte, port uint16) (Destination, error) {
	switch atyp {
	case AtypIPv4:
		if len(addr) != net.IPv4len {
			return Destination{}, fmt.Errorf("%w: ipv4 address must be %d bytes, got %d", errAddressLength, net.IPv4len, len(addr))
		}
	case AtypIPv6:
		if len(addr) != net.IPv6len {
			return Destination{}, fmt.Errorf("%w: ipv6 address must be %d bytes, got %d", errAddressLength, net.IPv6len, len(addr))
		}
	case AtypDomain:
		if len(addr) < 1 || len(addr) > 255 {
			return Destination{}, fmt.Errorf("%w: domain must be 1..255 bytes, got %d", errAddressLength, len(addr))
		}
	default:
		return Destination{}, fmt.Errorf("%w: atyp %d", errAddressTypeNotSupported, atyp)
	}
	return Destination{atyp: atyp, addr: addr, port: port}, nil
}

// NewDestinationFromAddr builds a Destination from a native IPv4 or IPv6
// socket address.
func NewDestinationFromAddr(ip net.IP, port uint16) (Destination, error) {
	if v4 := ip.To4(); v4 != nil {
		return Destination{atyp: AtypIPv4, addr: v4, port: port}, nil
	}
	if v6 := ip.To16(); v6 != nil {
		return Destination{atyp: AtypIPv6, addr: v6, port: port}, nil
	}
	return Destination{}, fmt.Errorf("%w: not an IPv4 or IPv6 address", errAddressLength)
}

// NewDestinationFromDomain builds a Destination carrying a domain name.
func NewDestinationFromDomain(domain string, port uint16) (Destination, error) {
	if len(domain) < 1 || len(domain) > 255 {
		return Destination{}, fmt.Errorf("%w: domain must be 1..255 bytes, got %d", errAddressLength, len(domain))
	}
	return Destination{atyp: AtypDomain, addr: []byte(domain), port: port}, nil
}

// Atyp returns the address-family tag.
func (d Destination) Atyp() byte { return d.atyp }

// Port returns the destination port.
func (d Destination) Port() uint16 { return d.port }

// Host returns the address as a string: a dotted-quad or colon-hex IP for
// the IP families, or the domain verbatim for AtypDomain.
func (d Destination) Host() string {
	switch d.atyp {
	case AtypIPv4, AtypIPv6:
		return net.IP(d.addr).String()
	case AtypDomain:
		return string(d.addr)
	default:
		return ""
	}
}

// IP returns the address as a net.IP and true, or false if this Destination
// is a domain name.
func (d Destination) IP() (net.IP, bool) {
	if d.atyp == AtypDomain {
		return nil, false
	}
	return net.IP(d.addr), true
}

// Bytes returns the raw address bytes as carried on the wire (no length
// prefix, no port).
func (d Destination) Bytes() []byte { return d.addr }

// String renders a dial target: "ip:port" or "domain:port".
func (d Destination) String() string {
	return net.JoinHostPort(d.Host(), fmt.Sprintf("%d", d.port))
}
