package response

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedResponse is returned when transport output has no blank line
// separating the header section from the body.
var ErrMalformedResponse = errors.New("malformed response: no blank line between header and body")

// Split divides raw output lines at the first empty line. Lines before it are
// the header, lines strictly after it the body.
func Split(lines []string) (header, body []string, err error) {
	for i, line := range lines {
		if line == "" {
			return lines[:i], lines[i+1:], nil
		}
	}
	return nil, nil, fmt.Errorf("%w (%d lines of output)", ErrMalformedResponse, len(lines))
}

// Response is a replayed request's output split into its two sections.
type Response struct {
	HeaderLines []string
	BodyLines   []string

	Proto      string
	StatusCode int
	Status     string
	Headers    map[string]string
	Duration   time.Duration
}

// FromLines splits and parses transport output. Interim 1xx header blocks
// (e.g. "100 Continue") are skipped.
func FromLines(lines []string) (*Response, error) {
	header, body, err := Split(lines)
	if err != nil {
		return nil, err
	}

	for isInterim(header) {
		next, rest, err := Split(body)
		if err != nil {
			break
		}
		header, body = next, rest
	}

	return Parse(header, body), nil
}

// Parse builds a Response from already split sections.
func Parse(header, body []string) *Response {
	r := &Response{
		HeaderLines: header,
		BodyLines:   body,
		Headers:     make(map[string]string),
	}

	for i, line := range header {
		if i == 0 && strings.HasPrefix(line, "HTTP/") {
			r.Proto, r.StatusCode, r.Status = parseStatusLine(line)
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if existing := r.Header(key); existing != "" {
			value = existing + ", " + value
			r.deleteHeader(key)
		}
		r.Headers[key] = value
	}

	return r
}

func parseStatusLine(line string) (proto string, code int, status string) {
	parts := strings.SplitN(line, " ", 3)
	proto = parts[0]
	if len(parts) > 1 {
		code, _ = strconv.Atoi(parts[1])
		status = parts[1]
	}
	if len(parts) > 2 {
		status = parts[1] + " " + parts[2]
	}
	return proto, code, status
}

func isInterim(header []string) bool {
	if len(header) == 0 || !strings.HasPrefix(header[0], "HTTP/") {
		return false
	}
	_, code, _ := parseStatusLine(header[0])
	return code >= 100 && code < 200
}

func (r *Response) BodyString() string {
	return strings.Join(r.BodyLines, "\n")
}

func (r *Response) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (r *Response) deleteHeader(key string) {
	for k := range r.Headers {
		if strings.EqualFold(k, key) {
			delete(r.Headers, k)
		}
	}
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	ct := r.ContentType()
	return strings.Contains(ct, "application/json") || strings.Contains(ct, "+json")
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
