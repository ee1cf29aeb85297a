// Utilities for lifting a session out of a browser "Copy as cURL" capture.
package shared

import (
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
)

var (
	curlHeaderRe = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	curlCookieRe = regexp.MustCompile(`(?:-b|--cookie)\s+'([^']+)'|(?:-b|--cookie)\s+"([^"]+)"`)
	curlURLRe    = regexp.MustCompile(`(https?://[^\s'"]+)`)
)

// excluded from captured headers; the transport sets these itself
var volatileHeaders = map[string]bool{
	"cookie":          true,
	"content-length":  true,
	"content-type":    true,
	"host":            true,
	"accept-encoding": true,
}

// SessionCapture holds the headers and cookie string of one authenticated browser request.
type SessionCapture struct {
	URL     string
	Headers http.Header
	Cookie  string
}

// ParseCurlFile reads a .sh file containing a cURL command and extracts the session.
func ParseCurlFile(path string) (*SessionCapture, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(content)
}

// ParseCurlCommand parses a cURL command string and extracts headers and cookies.
func ParseCurlCommand(data []byte) (*SessionCapture, error) {
	curlCmd := string(data)
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	capture := &SessionCapture{Headers: http.Header{}}

	// header values may carry URLs (Referer, Origin)
	if m := curlURLRe.FindStringSubmatch(curlHeaderRe.ReplaceAllString(curlCmd, "")); len(m) > 1 {
		capture.URL = m[1]
	}

	for _, match := range curlHeaderRe.FindAllStringSubmatch(curlCmd, -1) {
		key, value, ok := splitHeader(firstGroup(match))
		if !ok {
			continue
		}

		if strings.EqualFold(key, "cookie") {
			if capture.Cookie == "" {
				capture.Cookie = value
			}
			continue
		}
		if volatileHeaders[strings.ToLower(key)] {
			continue
		}
		capture.Headers.Set(key, value)
	}

	// -b wins over a Cookie header
	if m := curlCookieRe.FindStringSubmatch(curlCmd); len(m) > 1 {
		capture.Cookie = firstGroup(m)
	}

	if len(capture.Headers) == 0 && capture.Cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrMissingCredentials)
	}

	return capture, nil
}

// Cookies splits the captured cookie string into individual [http.Cookie] values.
func (c *SessionCapture) Cookies() []*http.Cookie {
	var cookies []*http.Cookie
	for _, pair := range strings.Split(c.Cookie, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	return cookies
}

// CookieValue returns the named cookie value, if captured.
func (c *SessionCapture) CookieValue(name string) (string, bool) {
	for _, ck := range c.Cookies() {
		if ck.Name == name {
			return ck.Value, true
		}
	}
	return "", false
}

// Apply copies the captured headers and cookie onto h.
func (c *SessionCapture) Apply(h http.Header) {
	for key, values := range c.Headers {
		for _, v := range values {
			h.Set(key, v)
		}
	}
	if c.Cookie != "" {
		h.Set("Cookie", c.Cookie)
	}
}

func firstGroup(match []string) string {
	if match[1] != "" {
		return match[1]
	}
	return match[2]
}

func splitHeader(line string) (string, string, bool) {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), true
}
