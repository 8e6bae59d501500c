package wifi

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/harveysanders/picoweather/weatherstation/errcode"
)

var errNoLink = errors.New("no link")

type fakeRadio struct {
	mu           sync.Mutex
	aps          []AccessPoint
	scanErr      error
	successAfter int // attempts before Associate succeeds; <0 never succeeds
	attempts     int
	addr         netip.Addr
	apErr        error
	stateInScan  func() State
	scanState    State

	// block makes each attempt take this long, or the attempt timeout when
	// honorTimeout is set and it is shorter.
	block        time.Duration
	honorTimeout bool
	timeouts     []time.Duration
}

func (f *fakeRadio) Scan() ([]AccessPoint, error) {
	if f.stateInScan != nil {
		f.scanState = f.stateInScan()
	}
	return f.aps, f.scanErr
}

func (f *fakeRadio) Associate(ssid, password string, timeout time.Duration) (netip.Addr, error) {
	if d := f.block; d > 0 {
		if f.honorTimeout {
			d = min(d, timeout)
		}
		time.Sleep(d)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	f.timeouts = append(f.timeouts, timeout)
	if f.successAfter >= 0 && f.attempts > f.successAfter {
		return f.addr, nil
	}
	return netip.Addr{}, errNoLink
}

func (f *fakeRadio) BroadcastOn(ssid, password string) (netip.Addr, error) {
	if f.apErr != nil {
		return netip.Addr{}, f.apErr
	}
	return netip.MustParseAddr("192.168.4.1"), nil
}

func (f *fakeRadio) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func TestScanReturnsToIdle(t *testing.T) {
	radio := &fakeRadio{aps: []AccessPoint{{"home", -42}, {"cafe", -80}}}
	a := New(radio, Config{}, nil)
	radio.stateInScan = a.State

	aps := a.Scan()
	if len(aps) != 2 || aps[0].SSID != "home" {
		t.Fatalf("Scan()=%v", aps)
	}
	if radio.scanState != Scanning {
		t.Fatalf("state during scan=%v want scanning", radio.scanState)
	}
	if a.State() != Idle {
		t.Fatalf("state after scan=%v want idle", a.State())
	}
}

func TestScanErrorIsEmpty(t *testing.T) {
	a := New(&fakeRadio{scanErr: errors.New("radio busy")}, Config{}, nil)
	if aps := a.Scan(); len(aps) != 0 {
		t.Fatalf("Scan()=%v want empty", aps)
	}
	if a.State() != Idle {
		t.Fatalf("state=%v want idle", a.State())
	}
}

func TestConnectSucceedsAfterPolling(t *testing.T) {
	want := netip.MustParseAddr("10.0.0.42")
	radio := &fakeRadio{successAfter: 2, addr: want}
	a := New(radio, Config{PollInterval: time.Millisecond}, nil)

	got, err := a.Connect(context.Background(), "home", "secret", time.Second)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if got != want || a.Addr() != want {
		t.Fatalf("addr=%v/%v want %v", got, a.Addr(), want)
	}
	if a.State() != Associated {
		t.Fatalf("state=%v want associated", a.State())
	}
	if n := radio.attemptCount(); n != 3 {
		t.Fatalf("attempts=%d want 3", n)
	}
}

func TestConnectTimeoutFails(t *testing.T) {
	radio := &fakeRadio{successAfter: -1}
	a := New(radio, Config{PollInterval: 5 * time.Millisecond}, nil)

	start := time.Now()
	_, err := a.Connect(context.Background(), "nowhere", "", 30*time.Millisecond)
	elapsed := time.Since(start)

	if !errors.Is(err, errcode.AssociationTimeout) {
		t.Fatalf("err=%v want AssociationTimeout", err)
	}
	if !errors.Is(err, errNoLink) {
		t.Fatalf("last radio error not wrapped: %v", err)
	}
	if a.State() != Failed {
		t.Fatalf("state=%v want failed", a.State())
	}
	if elapsed < 30*time.Millisecond {
		t.Fatalf("gave up after %v, before the timeout", elapsed)
	}

	// No automatic retry once failed.
	n := radio.attemptCount()
	time.Sleep(20 * time.Millisecond)
	if radio.attemptCount() != n {
		t.Fatal("radio polled after the attempt failed")
	}
}

func TestConnectTimeoutBoundRealClock(t *testing.T) {
	if testing.Short() {
		t.Skip("uses a 3 second timeout")
	}
	radio := &fakeRadio{successAfter: -1}
	a := New(radio, Config{}, nil)

	start := time.Now()
	_, err := a.Connect(context.Background(), "unreachable", "pw", 3*time.Second)
	elapsed := time.Since(start)
	if !errors.Is(err, errcode.AssociationTimeout) {
		t.Fatalf("err=%v want AssociationTimeout", err)
	}
	if elapsed < 3*time.Second || elapsed > 4*time.Second {
		t.Fatalf("failed after %v, want within 3-4s", elapsed)
	}
	// Polled once per second: t=0,1,2,3.
	if n := radio.attemptCount(); n < 3 || n > 5 {
		t.Fatalf("attempts=%d want about 4", n)
	}
}

func TestConnectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := New(&fakeRadio{successAfter: -1}, Config{PollInterval: time.Hour}, nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := a.Connect(ctx, "home", "pw", time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	if a.State() != Failed {
		t.Fatalf("state=%v want failed", a.State())
	}
}

func TestConnectRejectedWhenAssociated(t *testing.T) {
	a := New(&fakeRadio{addr: netip.MustParseAddr("10.0.0.2")}, Config{}, nil)
	if _, err := a.Connect(context.Background(), "home", "pw", time.Second); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	_, err := a.Connect(context.Background(), "home", "pw", time.Second)
	if !errors.Is(err, errcode.Busy) {
		t.Fatalf("err=%v want Busy", err)
	}
	if a.State() != Associated {
		t.Fatalf("state=%v want associated", a.State())
	}
}

func TestConnectRetryAfterFailure(t *testing.T) {
	radio := &fakeRadio{successAfter: 3, addr: netip.MustParseAddr("10.0.0.3")}
	a := New(radio, Config{PollInterval: time.Millisecond}, nil)

	_, err := a.Connect(context.Background(), "home", "pw", 0)
	if !errors.Is(err, errcode.AssociationTimeout) {
		t.Fatalf("zero timeout: err=%v want AssociationTimeout", err)
	}
	if radio.attemptCount() != 0 {
		t.Fatalf("attempts=%d want 0", radio.attemptCount())
	}
	if a.State() != Failed {
		t.Fatalf("state=%v want failed", a.State())
	}
	if _, err := a.Connect(context.Background(), "home", "pw", time.Second); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
}

func TestEnableBroadcastIndependentOfStation(t *testing.T) {
	a := New(&fakeRadio{successAfter: -1}, Config{}, nil)
	addr, err := a.EnableBroadcast("station-ap", "12345678")
	if err != nil {
		t.Fatalf("EnableBroadcast: %v", err)
	}
	if a.Broadcast() != BroadcastOn || a.BroadcastAddr() != addr {
		t.Fatalf("broadcast=%v addr=%v", a.Broadcast(), a.BroadcastAddr())
	}
	if a.State() != Idle {
		t.Fatalf("station state=%v want idle", a.State())
	}
}

func TestEnableBroadcastFailure(t *testing.T) {
	a := New(&fakeRadio{apErr: errcode.Unsupported}, Config{}, nil)
	_, err := a.EnableBroadcast("station-ap", "12345678")
	if !errors.Is(err, errcode.BroadcastSetup) {
		t.Fatalf("err=%v want BroadcastSetup", err)
	}
	if a.Broadcast() != BroadcastOff {
		t.Fatal("broadcast on after failure")
	}
}

func TestConnectNoAttemptAfterDeadline(t *testing.T) {
	radio := &fakeRadio{successAfter: -1, block: 40 * time.Millisecond}
	a := New(radio, Config{PollInterval: time.Millisecond}, nil)

	_, err := a.Connect(context.Background(), "home", "pw", 30*time.Millisecond)
	if !errors.Is(err, errcode.AssociationTimeout) {
		t.Fatalf("err=%v want AssociationTimeout", err)
	}
	if n := radio.attemptCount(); n != 1 {
		t.Fatalf("attempts=%d want 1", n)
	}
}

func TestConnectPassesRemainingTime(t *testing.T) {
	const timeout = 50 * time.Millisecond
	radio := &fakeRadio{successAfter: -1, block: time.Hour, honorTimeout: true}
	a := New(radio, Config{PollInterval: time.Millisecond}, nil)

	start := time.Now()
	_, err := a.Connect(context.Background(), "home", "pw", timeout)
	elapsed := time.Since(start)
	if !errors.Is(err, errcode.AssociationTimeout) {
		t.Fatalf("err=%v want AssociationTimeout", err)
	}
	if elapsed > timeout+100*time.Millisecond {
		t.Fatalf("failed after %v with a %v timeout", elapsed, timeout)
	}
	radio.mu.Lock()
	defer radio.mu.Unlock()
	if len(radio.timeouts) == 0 {
		t.Fatal("radio never attempted")
	}
	for i, d := range radio.timeouts {
		if d <= 0 || d > timeout {
			t.Fatalf("attempt %d got timeout %v, want within (0, %v]", i, d, timeout)
		}
	}
}

func TestConnectBlockingRadioRealClock(t *testing.T) {
	if testing.Short() {
		t.Skip("uses a 3 second timeout")
	}
	// Each attempt blocks 2 s and ignores the timeout it is given.
	radio := &fakeRadio{successAfter: -1, block: 2 * time.Second}
	a := New(radio, Config{}, nil)

	start := time.Now()
	_, err := a.Connect(context.Background(), "unreachable", "pw", 3*time.Second)
	elapsed := time.Since(start)
	if !errors.Is(err, errcode.AssociationTimeout) {
		t.Fatalf("err=%v want AssociationTimeout", err)
	}
	if a.State() != Failed {
		t.Fatalf("state=%v want failed", a.State())
	}
	if elapsed < 3*time.Second || elapsed > 4*time.Second {
		t.Fatalf("failed after %v, want within 3-4s", elapsed)
	}
}

func TestBroadcastFallbackAfterTimeout(t *testing.T) {
	a := New(&fakeRadio{successAfter: -1}, Config{PollInterval: time.Millisecond}, nil)
	if _, err := a.Connect(context.Background(), "home", "pw", 10*time.Millisecond); !errors.Is(err, errcode.AssociationTimeout) {
		t.Fatalf("Connect err=%v want AssociationTimeout", err)
	}
	addr, err := a.EnableBroadcast("station-ap", "12345678")
	if err != nil {
		t.Fatalf("EnableBroadcast after failed connect: %v", err)
	}
	if addr != netip.MustParseAddr("192.168.4.1") || a.BroadcastAddr() != addr {
		t.Fatalf("broadcast addr=%v/%v", addr, a.BroadcastAddr())
	}
	if a.State() != Failed || a.Broadcast() != BroadcastOn {
		t.Fatalf("state=%v broadcast=%v want failed/on", a.State(), a.Broadcast())
	}
}
