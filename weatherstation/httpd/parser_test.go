package httpd

import (
	"errors"
	"testing"

	"github.com/harveysanders/picoweather/weatherstation/errcode"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]string
	}{
		{"rgb", "r=10&g=20&b=30", map[string]string{"r": "10", "g": "20", "b": "30"}},
		{"empty pair dropped", "r=10&&b=30", map[string]string{"r": "10", "b": "30"}},
		{"pair without equals dropped", "r=10&junk&b=30", map[string]string{"r": "10", "b": "30"}},
		{"split on first equals", "msg=a=b", map[string]string{"msg": "a=b"}},
		{"empty value kept", "msg=", map[string]string{"msg": ""}},
		{"empty key dropped", "=x&r=1", map[string]string{"r": "1"}},
		{"later duplicate wins", "r=1&r=2", map[string]string{"r": "2"}},
		{"percent space", "msg=hello%20world", map[string]string{"msg": "hello world"}},
		{"plus is space", "msg=hello+world", map[string]string{"msg": "hello world"}},
		{"full percent decoding", "msg=caf%C3%A9%21", map[string]string{"msg": "café!"}},
		{"broken escape keeps %20 decoding", "msg=100%%20sure", map[string]string{"msg": "100% sure"}},
		{"empty", "", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseQuery(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseQuery(%q)=%v want %v", tt.in, got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Fatalf("ParseQuery(%q)[%q]=%q want %q", tt.in, k, got[k], v)
				}
			}
		})
	}
}

func TestParse(t *testing.T) {
	req, err := Parse([]byte("GET /?r=10&g=20&b=30 HTTP/1.1\r\nHost: 10.0.0.2\r\n\r\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if req.Method != "GET" || req.Path != "/" {
		t.Fatalf("method=%q path=%q", req.Method, req.Path)
	}
	if req.Query["r"] != "10" || req.Query["g"] != "20" || req.Query["b"] != "30" {
		t.Fatalf("query=%v", req.Query)
	}

	req, err = Parse([]byte("GET /data HTTP/1.1\r\n\r\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if req.Path != "/data" || req.Query == nil || len(req.Query) != 0 {
		t.Fatalf("req=%+v", req)
	}
}

func TestParseToleratesMissingVersionAndBareLF(t *testing.T) {
	req, err := Parse([]byte("POST /data\nX: y\n\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if req.Method != "POST" || req.Path != "/data" {
		t.Fatalf("req=%+v", req)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, in := range []string{"", "\r\n", "GET\r\n\r\n", "   \n"} {
		_, err := Parse([]byte(in))
		if !errors.Is(err, errcode.MalformedRequest) {
			t.Errorf("Parse(%q) err=%v want MalformedRequest", in, err)
		}
	}
}
