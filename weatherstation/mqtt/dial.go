package mqtt

import (
	"context"
	"errors"
	"net"
)

// NetDialer dials the broker at addr ("host:port") with the host network
// stack.
func NetDialer(addr string) DialFunc {
	return func(ctx context.Context) (Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// splitHostPort splits a host:port string into separate host and port components.
// Returns an error if the format is invalid.
func splitHostPort(addr string) (host, port string, err error) {
	// Find the last colon to support IPv6 addresses
	colonIdx := -1
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			colonIdx = i
			break
		}
	}
	if colonIdx == -1 {
		return "", "", errors.New("missing port in address")
	}

	host = addr[:colonIdx]
	port = addr[colonIdx+1:]
	if host == "" {
		return "", "", errors.New("empty host")
	}
	if port == "" {
		return "", "", errors.New("empty port")
	}
	return host, port, nil
}

// parsePort converts a port string to uint16.
// Returns 0 if parsing fails or the value does not fit (caller should validate).
func parsePort(portStr string) uint16 {
	if portStr == "" {
		return 0
	}
	var port uint32
	for i := 0; i < len(portStr); i++ {
		if portStr[i] < '0' || portStr[i] > '9' {
			return 0
		}
		port = port*10 + uint32(portStr[i]-'0')
		if port > 0xffff {
			return 0
		}
	}
	return uint16(port)
}
