package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// URLError reports a configured URL that cannot be used.
type URLError struct {
	Field   string
	Message string
	URL     string
}

func (e URLError) Error() string {
	return fmt.Sprintf("%s: %s (url: %s)", e.Field, e.Message, e.URL)
}

// URL checks that raw is an absolute http(s) URL with a host. An empty value
// passes; required fields are checked by the caller.
func URL(raw, field string, requireHTTPS bool) error {
	_, err := parseHTTP(raw, field, requireHTTPS)
	return err
}

// PublicURL is URL for prefixes that paths get appended to, such as the
// server base URL or the media URL. Query strings and fragments would end up
// in the middle of every generated link, so they are rejected.
func PublicURL(raw, field string, requireHTTPS bool) error {
	parsed, err := parseHTTP(raw, field, requireHTTPS)
	if err != nil || parsed == nil {
		return err
	}
	if parsed.RawQuery != "" || parsed.ForceQuery {
		return URLError{Field: field, Message: "must not contain query parameters", URL: raw}
	}
	if parsed.Fragment != "" {
		return URLError{Field: field, Message: "must not contain a fragment", URL: raw}
	}
	return nil
}

// Origin checks a browser origin as sent in the Origin header:
// scheme://host[:port] with nothing after it.
func Origin(raw, field string) error {
	parsed, err := parseHTTP(raw, field, false)
	if err != nil || parsed == nil {
		return err
	}
	if (parsed.Path != "" && parsed.Path != "/") || parsed.RawQuery != "" || parsed.Fragment != "" || parsed.User != nil {
		return URLError{Field: field, Message: "origin must be scheme://host[:port] only", URL: raw}
	}
	if strings.HasSuffix(raw, "/") {
		return URLError{Field: field, Message: "origin must not end with a slash", URL: raw}
	}
	return nil
}

func parseHTTP(raw, field string, requireHTTPS bool) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, URLError{Field: field, Message: "invalid URL format", URL: raw}
	}
	if parsed.Scheme == "" {
		return nil, URLError{Field: field, Message: "URL must include a scheme (http:// or https://)", URL: raw}
	}
	if parsed.Host == "" {
		return nil, URLError{Field: field, Message: "URL must include a host", URL: raw}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, URLError{Field: field, Message: "URL scheme must be http or https", URL: raw}
	}
	if requireHTTPS && scheme != "https" {
		return nil, URLError{Field: field, Message: "URL must use HTTPS in production", URL: raw}
	}
	return parsed, nil
}
