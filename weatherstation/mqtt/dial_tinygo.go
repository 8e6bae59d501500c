//go:build tinygo

package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"time"

	"github.com/soypat/lneto/tcp"
	"github.com/soypat/lneto/x/xnet"
)

// lnetoConn closes by waiting for the TCP close handshake and then aborting,
// so the underlying tcp.Conn can be dialed again.
type lnetoConn struct {
	conn *tcp.Conn
	log  *slog.Logger
}

func (c *lnetoConn) Read(p []byte) (int, error)    { return c.conn.Read(p) }
func (c *lnetoConn) Write(p []byte) (int, error)   { return c.conn.Write(p) }
func (c *lnetoConn) SetDeadline(t time.Time) error { return c.conn.SetDeadline(t) }

func (c *lnetoConn) Close() error {
	c.log.Debug("tcpconn:closing")
	err := c.conn.Close()
	for i := 0; i < 50 && !c.conn.State().IsClosed(); i++ {
		time.Sleep(100 * time.Millisecond)
	}
	c.conn.Abort()
	return err
}

// LnetoDialer resolves addr ("host:port", host may be an IP) through the
// stack's DNS and dials it with one reusable TCP connection.
func LnetoDialer(stack *xnet.StackAsync, addr string, bufSize int, logger *slog.Logger) (DialFunc, error) {
	const pollTime = 5 * time.Millisecond

	host, portStr, err := splitHostPort(addr)
	if err != nil {
		return nil, errors.New("parsing host:port from " + addr + ": " + err.Error())
	}
	port := parsePort(portStr)
	if port == 0 {
		return nil, errors.New("invalid port in " + addr)
	}

	var conn tcp.Conn
	err = conn.Configure(tcp.ConnConfig{
		RxBuf:             make([]byte, bufSize),
		TxBuf:             make([]byte, bufSize),
		TxPacketQueueSize: 3,
	})
	if err != nil {
		return nil, errors.New("tcp configure:" + err.Error())
	}
	rstack := stack.StackRetrying(pollTime)
	wrapped := &lnetoConn{conn: &conn, log: logger}

	return func(ctx context.Context) (Conn, error) {
		brokerAddr, err := netip.ParseAddr(host)
		if err != nil {
			logger.Info("dns:resolving", slog.String("host", host))
			addrs, err := rstack.DoLookupIP(host, 5*time.Second, 3)
			if err != nil {
				return nil, errors.New("dns lookup for " + host + ": " + err.Error())
			}
			if len(addrs) == 0 {
				return nil, errors.New("dns lookup for " + host + ": no addresses returned")
			}
			brokerAddr = addrs[0]
		}

		// Use stack's PRNG for random port
		localPort := uint16(stack.Prand32()>>17) + 1024
		logger.Info("socket:dialing", slog.String("addr", brokerAddr.String()), slog.Uint64("localPort", uint64(localPort)))
		err = rstack.DoDialTCP(&conn, localPort, netip.AddrPortFrom(brokerAddr, port), 10*time.Second, 3)
		if err != nil {
			conn.Abort()
			return nil, errors.New("dial: " + err.Error())
		}
		return wrapped, nil
	}, nil
}
