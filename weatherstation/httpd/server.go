// Package httpd is the station's HTTP interface: a resilient request-line
// parser and a single-connection server that routes to a fixed set of
// handlers.
//
// The server handles one connection at a time and always answers with a 200:
// malformed or unrecognized requests get the status page rather than an
// error. There is no keep-alive; every connection is closed after one
// response.
package httpd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/harveysanders/picoweather/weatherstation/errcode"
	"github.com/harveysanders/picoweather/weatherstation/led"
	"github.com/harveysanders/picoweather/weatherstation/telemetry"
)

// Listener yields one accepted connection at a time.
type Listener interface {
	Accept() (io.ReadWriteCloser, error)
}

// MessageSink shows a user message on the display without blocking.
type MessageSink interface {
	ShowMessage(msg string) bool
}

// Config for a Server. Zero fields take defaults: 1024 byte requests,
// /data as the telemetry endpoint.
type Config struct {
	MaxRequestBytes int
	DataPath        string
	Title           string
}

// Route identifies which handler served a request.
type Route uint8

const (
	RouteStatus Route = iota
	RouteColor
	RouteMessage
	RouteData
)

func (r Route) String() string {
	switch r {
	case RouteColor:
		return "color"
	case RouteMessage:
		return "message"
	case RouteData:
		return "data"
	default:
		return "status"
	}
}

// Server answers requests against the shared telemetry state.
type Server struct {
	state   *telemetry.State
	display MessageSink
	led     led.Driver
	cfg     Config
	log     *slog.Logger
}

// NewServer creates a Server. display and actuator may be nil, in which case
// the corresponding routes only update state.
func NewServer(state *telemetry.State, display MessageSink, actuator led.Driver, cfg Config, logger *slog.Logger) *Server {
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = 1024
	}
	if cfg.DataPath == "" {
		cfg.DataPath = "/data"
	}
	if cfg.Title == "" {
		cfg.Title = "Pico W Weather Station"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		state:   state,
		display: display,
		led:     actuator,
		cfg:     cfg,
		log:     logger,
	}
}

// Serve accepts and handles connections one at a time until ctx is done.
// Accept errors are logged and retried. Serve returns ctx.Err().
func (s *Server) Serve(ctx context.Context, l Listener) error {
	s.log.Info("httpd:serving")
	for {
		conn, err := l.Accept()
		if ctx.Err() != nil {
			if conn != nil {
				conn.Close()
			}
			return ctx.Err()
		}
		if err != nil {
			s.log.Error("httpd:accept", slog.String("err", err.Error()))
			time.Sleep(100 * time.Millisecond)
			continue
		}
		s.ServeConn(conn)
	}
}

// ServeConn reads one request from conn, writes exactly one response and
// closes conn.
func (s *Server) ServeConn(conn io.ReadWriteCloser) {
	defer conn.Close()

	raw, err := readRequest(conn, s.cfg.MaxRequestBytes)
	if err != nil {
		s.log.Warn("httpd:read", slog.String("err", err.Error()))
	}
	req, err := Parse(raw)
	if err != nil {
		s.log.Warn("httpd:parse", slog.String("err", err.Error()), slog.Int("len", len(raw)))
	}

	route, resp := s.Handle(req)
	s.log.Info("httpd:request",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.String("route", route.String()),
	)
	if _, err := resp.WriteTo(conn); err != nil {
		s.log.Error("httpd:write", slog.String("err", err.Error()))
	}
}

// Handle routes req. Routes are tried in a fixed order and the first match
// wins:
//
//  1. query has r, g and b: set the actuator color
//  2. query has msg: show the message on the display
//  3. path is the data endpoint: JSON telemetry snapshot
//  4. anything else: the status page
//
// Routes 1 and 2 answer with the status page. A color request with a
// non-numeric channel changes nothing and gets the status page as well. The
// zero Request routes to the status page.
func (s *Server) Handle(req Request) (Route, Response) {
	if hasAll(req.Query, "r", "g", "b") {
		if err := s.setColor(req.Query); err != nil {
			s.log.Warn("httpd:color-rejected", slog.String("err", err.Error()))
			return RouteStatus, s.statusPage()
		}
		return RouteColor, s.statusPage()
	}
	if msg, ok := req.Query["msg"]; ok {
		if s.display != nil && !s.display.ShowMessage(msg) {
			s.log.Warn("httpd:message-dropped")
		}
		return RouteMessage, s.statusPage()
	}
	if req.Path == s.cfg.DataPath {
		return RouteData, s.data()
	}
	return RouteStatus, s.statusPage()
}

func (s *Server) setColor(q map[string]string) error {
	var ch [3]int
	for i, k := range [3]string{"r", "g", "b"} {
		v, err := parseChannel(q[k])
		if err != nil {
			return &errcode.E{C: errcode.InvalidParams, Op: "httpd.setColor", Msg: k + "=" + q[k], Err: err}
		}
		ch[i] = v
	}
	c := telemetry.ClampColor(ch[0], ch[1], ch[2])
	s.state.SetColor(c)
	led.Apply(s.led, c, s.log)
	return nil
}

// parseChannel parses a decimal integer. Values too large for int saturate
// and are clamped later like any other out-of-range value.
func parseChannel(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) {
		return v, nil
	}
	return v, err
}

func (s *Server) data() Response {
	body, err := json.Marshal(s.state.Snapshot())
	if err != nil {
		// Snapshot encoding cannot fail for finite values; fall back to the page.
		s.log.Error("httpd:encode", slog.String("err", err.Error()))
		return s.statusPage()
	}
	return Response{ContentType: contentJSON, Body: body}
}

func (s *Server) statusPage() Response {
	return Response{
		ContentType: contentHTML,
		Body:        renderPage(s.cfg.Title, s.state.Snapshot(), s.state.Color()),
	}
}

func hasAll(q map[string]string, keys ...string) bool {
	for _, k := range keys {
		if _, ok := q[k]; !ok {
			return false
		}
	}
	return true
}

var (
	crlfcrlf = []byte("\r\n\r\n")
	lflf     = []byte("\n\n")
)

// readRequest reads until the end of the header block, the size bound, or
// EOF. Whatever was read is returned even when err is non-nil.
func readRequest(r io.Reader, limit int) ([]byte, error) {
	buf := make([]byte, limit)
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if bytes.Contains(buf[:n], crlfcrlf) || bytes.Contains(buf[:n], lflf) {
			break
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return buf[:n], err
		}
	}
	return buf[:n], nil
}
