//go:build tinygo

package httpd

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/soypat/lneto/tcp"
	"github.com/soypat/lneto/x/xnet"
)

// TCPListener accepts connections on one port of the lneto stack. It owns a
// single tcp.Conn, so at most one client is served at a time; the conn is
// reopened for listening once the previous client closes.
type TCPListener struct {
	stack *xnet.StackAsync
	conn  tcp.Conn
	port  uint16
	log   *slog.Logger
}

// NewTCPListener configures the connection buffers for a listener on port.
func NewTCPListener(stack *xnet.StackAsync, port uint16, bufSize int, logger *slog.Logger) (*TCPListener, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	l := &TCPListener{stack: stack, port: port, log: logger}
	err := l.conn.Configure(tcp.ConnConfig{
		RxBuf:             make([]byte, bufSize),
		TxBuf:             make([]byte, bufSize),
		TxPacketQueueSize: 3,
	})
	if err != nil {
		return nil, errors.New("tcp configure:" + err.Error())
	}
	return l, nil
}

// Accept blocks until a client completes the TCP handshake.
func (l *TCPListener) Accept() (io.ReadWriteCloser, error) {
	l.conn.Abort()
	if err := l.stack.ListenTCP(&l.conn, l.port); err != nil {
		return nil, errors.New("listen: " + err.Error())
	}
	for {
		state := l.conn.State()
		if state == tcp.StateEstablished {
			break
		}
		if state != tcp.StateListen && state != tcp.StateSynRcvd {
			return nil, errors.New("listen: connection entered " + state.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
	l.log.Debug("httpd:accepted", slog.Uint64("port", uint64(l.port)))
	return &tcpConn{conn: &l.conn}, nil
}

type tcpConn struct {
	conn *tcp.Conn
}

// Reads and writes carry no deadline; a stalled client holds the server.
func (c *tcpConn) Read(p []byte) (int, error)  { return c.conn.Read(p) }
func (c *tcpConn) Write(p []byte) (int, error) { return c.conn.Write(p) }

func (c *tcpConn) Close() error {
	err := c.conn.Close()
	for i := 0; i < 20 && !c.conn.State().IsClosed(); i++ {
		time.Sleep(50 * time.Millisecond)
	}
	return err
}
