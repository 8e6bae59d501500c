//go:build tinygo

package wifi

import (
	"errors"
	"log/slog"
	"net/netip"
	"time"

	"github.com/soypat/cyw43439"
	"github.com/soypat/lneto/x/xnet"
)

const mtu = cyw43439.MTU

// StackConfig configures the lneto stack.
type StackConfig struct {
	// Hostname is used for DHCP requests.
	Hostname string
	// MaxTCPPorts is the number of TCP ports to open for the stack.
	MaxTCPPorts int
	// RandSeed is an optional random seed for the stack's PRNG.
	RandSeed int64
	// RequestedAddr is the preferred IP address to request via DHCP.
	// If DHCP fails and this is set, it will be used as a static IP.
	RequestedAddr netip.Addr
	// APAddr is the static address in access point mode. Defaults to
	// DefaultAPAddr.
	APAddr netip.Addr
	// APChannel is the access point channel, 1 when zero.
	APChannel uint8
}

// DefaultAPAddr is the station's address in access point mode.
var DefaultAPAddr = netip.AddrFrom4([4]byte{192, 168, 4, 1})

// Stack wraps the lneto StackAsync and CYW43439 device for network operations.
type Stack struct {
	s       xnet.StackAsync
	dev     *cyw43439.Device
	log     *slog.Logger
	sendbuf []byte
}

func newStack(dev *cyw43439.Device, cfg StackConfig, seed int64, logger *slog.Logger) (*Stack, error) {
	mac, err := dev.HardwareAddr6()
	if err != nil {
		return nil, errors.New("get hardware address:" + err.Error())
	}
	stack := &Stack{
		dev:     dev,
		log:     logger,
		sendbuf: make([]byte, mtu),
	}
	err = stack.s.Reset(xnet.StackConfig{
		Hostname:        cfg.Hostname,
		MaxTCPConns:     max(cfg.MaxTCPPorts, 1),
		RandSeed:        seed ^ cfg.RandSeed,
		HardwareAddress: mac,
		MTU:             mtu,
	})
	if err != nil {
		return nil, errors.New("stack reset:" + err.Error())
	}
	dev.RecvEthHandle(func(pkt []byte) error {
		return stack.s.Demux(pkt, 0)
	})
	return stack, nil
}

// dhcp performs DHCP configuration and returns the assigned address. Every
// exchange is bounded so the whole call returns within timeout.
func (s *Stack) dhcp(requested netip.Addr, timeout time.Duration) (netip.Addr, error) {
	if !requested.IsValid() {
		requested = netip.AddrFrom4([4]byte{})
	} else if !requested.Is4() {
		return netip.Addr{}, errors.New("only dhcpv4 supported")
	}

	const (
		pollTime    = 50 * time.Millisecond
		dhcpTries   = 3
		arpTries    = 4
		maxDHCPWait = 3 * time.Second
		maxARPWait  = 500 * time.Millisecond
	)
	deadline := time.Now().Add(timeout)
	rstack := s.s.StackRetrying(pollTime)

	s.log.Info("dhcp:starting")
	results, err := rstack.DoDHCPv4(requested.As4(), min(maxDHCPWait, timeout/dhcpTries), dhcpTries)
	if err != nil {
		if !requested.IsUnspecified() {
			s.log.Info("dhcp:static-fallback", slog.String("ip", requested.String()))
			s.s.SetIPAddr(requested)
			return requested, nil
		}
		return netip.Addr{}, errors.New("dhcp failed:" + err.Error())
	}

	err = s.s.AssimilateDHCPResults(results)
	if err != nil {
		return netip.Addr{}, errors.New("assimilate dhcp:" + err.Error())
	}

	// Resolve and set the router hardware address as the gateway
	arpWait := min(maxARPWait, time.Until(deadline)/arpTries)
	if arpWait <= 0 {
		return netip.Addr{}, errors.New("resolve gateway: out of time")
	}
	gatewayHW, err := rstack.DoResolveHardwareAddress6(results.Router, arpWait, arpTries)
	if err != nil {
		return netip.Addr{}, errors.New("resolve gateway:" + err.Error())
	}
	s.s.SetGateway6(gatewayHW)

	s.log.Info("dhcp:complete",
		slog.String("ourIP", results.AssignedAddr.String()),
		slog.String("router", results.Router.String()),
		slog.Uint64("lease_sec", uint64(results.TLease)),
	)
	return results.AssignedAddr, nil
}

// RecvAndSend processes one incoming packet and at most one outgoing one.
func (s *Stack) RecvAndSend() (send, recv int, err error) {
	gotPacket, errRecv := s.dev.PollOne()
	if gotPacket {
		recv = 1
	}
	if errRecv != nil {
		s.log.Error("stack:poll", slog.String("err", errRecv.Error()))
	}

	send, err = s.s.Encapsulate(s.sendbuf, -1, 0)
	if err != nil {
		s.log.Error("stack:encapsulate", slog.Int("plen", send), slog.String("err", err.Error()))
	} else {
		err = errRecv
	}
	if send == 0 {
		return send, recv, err
	}

	err = s.dev.SendEth(s.sendbuf[:send])
	if err != nil {
		s.log.Error("stack:send", slog.Int("plen", send), slog.String("err", err.Error()))
	}
	return send, recv, err
}

// loopForever pumps packets between the radio and lneto. It backs off
// briefly when there is no traffic so the single TinyGo core is shared.
func (s *Stack) loopForever() {
	for {
		send, recv, _ := s.RecvAndSend()
		if send == 0 && recv == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// LnetoStack returns the underlying lneto StackAsync for TCP and DNS.
func (s *Stack) LnetoStack() *xnet.StackAsync {
	return &s.s
}

// Addr returns the current IP address of the stack.
func (s *Stack) Addr() netip.Addr {
	return s.s.Addr()
}

// setStatic assigns addr without DHCP, as used in access point mode.
func (s *Stack) setStatic(addr netip.Addr) error {
	if !addr.Is4() {
		return errors.New("static address must be IPv4")
	}
	s.s.SetIPAddr(addr)
	s.log.Info("stack:static", slog.String("ip", addr.String()))
	return nil
}
