package httpd

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/harveysanders/picoweather/weatherstation/errcode"
)

// Request is the part of an HTTP request the station routes on. Headers and
// body are not parsed.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
}

// Parse extracts the method, path and query from the request line of raw.
// It fails with errcode.MalformedRequest when there is no request line with
// at least a method and a target.
func Parse(raw []byte) (Request, error) {
	line := raw
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(string(line))
	if len(fields) < 2 {
		return Request{}, &errcode.E{C: errcode.MalformedRequest, Op: "httpd.Parse", Msg: "no request line"}
	}

	req := Request{Method: fields[0], Path: fields[1]}
	if path, query, ok := strings.Cut(fields[1], "?"); ok {
		req.Path = path
		req.Query = ParseQuery(query)
	} else {
		req.Query = map[string]string{}
	}
	return req, nil
}

// ParseQuery splits a query string on '&' and each pair on its first '='.
// Pairs without '=' or with an empty key are skipped rather than failing the
// whole query; hand-typed URLs produce them. Later duplicates win. Keys and
// values are percent-decoded.
func ParseQuery(q string) map[string]string {
	m := make(map[string]string)
	for _, pair := range strings.Split(q, "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		k = decode(k)
		if k == "" {
			continue
		}
		m[k] = decode(v)
	}
	return m
}

// decode percent-decodes s with form semantics ('+' is a space). Input with
// a broken escape falls back to decoding only %20.
func decode(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return strings.ReplaceAll(s, "%20", " ")
}
