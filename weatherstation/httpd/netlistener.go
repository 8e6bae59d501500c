package httpd

import (
	"io"
	"net"
)

// NetListener adapts a net.Listener for Serve.
type NetListener struct {
	net.Listener
}

func (l NetListener) Accept() (io.ReadWriteCloser, error) {
	return l.Listener.Accept()
}
