package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Session is the opaque session context handed to the fetch collaborator.
// The pipeline never inspects or logs its contents.
type Session struct {
	SessionID string
	CSRFToken string
	UserAgent string
}

// CookieHeader renders the session as a Cookie header value
func (s *Session) CookieHeader() string {
	var cookies []string
	if s.SessionID != "" {
		cookies = append(cookies, fmt.Sprintf("sessionid=%s", s.SessionID))
	}
	if s.CSRFToken != "" {
		cookies = append(cookies, fmt.Sprintf("csrftoken=%s", s.CSRFToken))
	}
	return strings.Join(cookies, "; ")
}

var cookieLineSplit = regexp.MustCompile(`\t+|\s{2,}`)

// ParseNetscapeCookies parses a Netscape HTTP Cookie File into a name/value
// map. Lines have seven tab-separated fields (domain, flag, path, secure,
// expiration, name, value); a simple two-field "name value" form is also
// accepted. Comments and blank lines are skipped.
func ParseNetscapeCookies(content string) map[string]string {
	cookies := make(map[string]string)

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := cookieLineSplit.Split(line, -1)
		switch {
		case len(parts) >= 7:
			cookies[parts[5]] = parts[6]
		case len(parts) == 2:
			cookies[parts[0]] = parts[1]
		}
	}

	return cookies
}

// SessionFromCookies builds a Session from parsed cookies. The sessionid
// cookie is required; csrftoken is optional.
func SessionFromCookies(cookies map[string]string) (*Session, error) {
	sessionID := cookies["sessionid"]
	if sessionID == "" {
		return nil, errors.New("no sessionid cookie found")
	}

	return &Session{
		SessionID: sessionID,
		CSRFToken: cookies["csrftoken"],
	}, nil
}
