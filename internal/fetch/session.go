package fetch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// SessionCookie is one pre-provisioned login cookie.
type SessionCookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

// Session holds login cookies for boards that hide posts from anonymous
// visitors. Cookies are provisioned out of band and loaded from a JSON
// file at startup.
type Session struct {
	Cookies []SessionCookie `json:"cookies"`
}

// LoadSession reads a session cookie file. An empty path means no session
// and returns nil without error.
func LoadSession(path string) (*Session, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	return &s, nil
}

// HTTPCookies converts the session into cookies usable with a cookie jar.
func (s *Session) HTTPCookies() []*http.Cookie {
	if s == nil {
		return nil
	}
	out := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		out = append(out, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   path,
		})
	}
	return out
}
