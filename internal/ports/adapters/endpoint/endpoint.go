// Package endpoint holds the guards shared by the remote adapters: which
// base URLs they may be pointed at and how credentials are masked in errors.
package endpoint

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Policy names a service endpoint setting. Name is the environment prefix
// used in error messages (OPENROUTER gives OPENROUTER_BASE_URL and
// OPENROUTER_ALLOWED_HOSTS).
type Policy struct {
	Name    string
	Default string
	Hosts   []string
}

var (
	OpenAI = Policy{
		Name:    "OPENAI",
		Default: "https://api.openai.com/v1",
		Hosts:   []string{"api.openai.com"},
	}
	OpenRouter = Policy{
		Name:    "OPENROUTER",
		Default: "https://openrouter.ai",
		Hosts:   []string{"openrouter.ai", "api.openrouter.ai"},
	}
	Gemini = Policy{
		Name:    "GEMINI",
		Default: "https://generativelanguage.googleapis.com",
		Hosts:   []string{"generativelanguage.googleapis.com"},
	}
)

// Normalize trims the URL and its trailing slashes; empty means Default.
func (p Policy) Normalize(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = p.Default
	}
	return strings.TrimRight(baseURL, "/")
}

// Validate accepts only absolute https URLs without credentials, query or
// fragment whose host is in allowed, or in Hosts when allowed is empty.
func (p Policy) Validate(baseURL string, allowed []string) error {
	baseURL = p.Normalize(baseURL)
	setting := p.Name + "_BASE_URL"
	bad := func(reason string, args ...any) error {
		return fmt.Errorf("invalid %s %q: %s", setting, baseURL, fmt.Sprintf(reason, args...))
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", setting, err)
	}
	switch {
	case !u.IsAbs() || u.Host == "":
		return bad("absolute URL with host is required")
	case u.User != nil:
		return bad("userinfo is not allowed")
	case u.RawQuery != "" || u.Fragment != "":
		return bad("query and fragment are not allowed")
	case !strings.EqualFold(u.Scheme, "https"):
		return bad("https is required")
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return bad("host is required")
	}
	if _, ok := p.allowedHosts(allowed)[host]; !ok {
		return bad("host %q is not in %s_ALLOWED_HOSTS", host, p.Name)
	}
	return nil
}

func (p Policy) allowedHosts(allowed []string) map[string]struct{} {
	out := hostSet(allowed)
	if len(out) == 0 {
		return hostSet(p.Hosts)
	}
	return out
}

func hostSet(hosts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		v = strings.Trim(v, "/")
		if i := strings.Index(v, ":"); i >= 0 {
			v = v[:i]
		}
		if v != "" {
			out[v] = struct{}{}
		}
	}
	return out
}

var (
	bearerRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authRE   = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	keyRE    = regexp.MustCompile(`(?i)((?:api[_-]?key|x-goog-api-key|key)\s*[:=]\s*)([^\n\r,;&"]+)`)
)

// Redact masks the given keys and anything shaped like a credential in s, so
// remote error bodies can be surfaced in logs and errors.
func Redact(s string, keys ...string) string {
	if s == "" {
		return s
	}
	for _, k := range keys {
		if k != "" {
			s = strings.ReplaceAll(s, k, "[REDACTED]")
		}
	}
	s = bearerRE.ReplaceAllString(s, "Bearer [REDACTED]")
	s = authRE.ReplaceAllString(s, "${1}[REDACTED]")
	return keyRE.ReplaceAllString(s, "${1}[REDACTED]")
}
