package httpd

import (
	"io"
	"strconv"
)

const (
	contentHTML = "text/html"
	contentJSON = "application/json"
)

// Response is always a 200 with a content type and body; the connection is
// closed after it is written.
type Response struct {
	ContentType string
	Body        []byte
}

// WriteTo writes the status line, headers and body.
func (r Response) WriteTo(w io.Writer) (int64, error) {
	head := make([]byte, 0, 128)
	head = append(head, "HTTP/1.1 200 OK\r\nContent-Type: "...)
	head = append(head, r.ContentType...)
	head = append(head, "\r\nContent-Length: "...)
	head = strconv.AppendInt(head, int64(len(r.Body)), 10)
	head = append(head, "\r\nConnection: close\r\n\r\n"...)

	n, err := w.Write(head)
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(r.Body)
	return int64(n + m), err
}
