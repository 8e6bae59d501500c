package sim

import (
	"errors"
	"net/netip"
	"sync"
	"time"

	"github.com/harveysanders/picoweather/weatherstation/errcode"
	"github.com/harveysanders/picoweather/weatherstation/wifi"
)

// Radio is a wifi.Interface for the host. Associate succeeds once Delay has
// passed since the first attempt for a network, unless Unreachable is set.
type Radio struct {
	Networks    []wifi.AccessPoint
	Password    string // empty accepts any password
	Delay       time.Duration
	Unreachable bool
	Addr        netip.Addr
	// APAddr is returned by BroadcastOn; an invalid address makes broadcast
	// mode unsupported.
	APAddr netip.Addr

	now func() time.Time

	mu        sync.Mutex
	ssid      string
	firstSeen time.Time
}

func (r *Radio) Scan() ([]wifi.AccessPoint, error) {
	out := make([]wifi.AccessPoint, len(r.Networks))
	copy(out, r.Networks)
	return out, nil
}

func (r *Radio) Associate(ssid, password string, timeout time.Duration) (netip.Addr, error) {
	if r.Unreachable || !r.visible(ssid) {
		return netip.Addr{}, errors.New("sim: network " + ssid + " not found")
	}
	if r.Password != "" && password != r.Password {
		return netip.Addr{}, errors.New("sim: authentication rejected")
	}
	now := r.clock()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ssid != ssid {
		r.ssid = ssid
		r.firstSeen = now
	}
	if now.Sub(r.firstSeen) < r.Delay {
		return netip.Addr{}, errors.New("sim: joining")
	}
	return r.Addr, nil
}

func (r *Radio) BroadcastOn(ssid, password string) (netip.Addr, error) {
	if !r.APAddr.IsValid() {
		return netip.Addr{}, errcode.Unsupported
	}
	return r.APAddr, nil
}

func (r *Radio) visible(ssid string) bool {
	for _, ap := range r.Networks {
		if ap.SSID == ssid {
			return true
		}
	}
	return false
}

func (r *Radio) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}
