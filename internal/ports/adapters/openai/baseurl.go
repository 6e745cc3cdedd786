package openai

import (
	"fmt"
	"net/url"
	"strings"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// apiRoots maps the default hosts to the path their chat API lives under.
// A base URL given without a path gets the root of its host.
var apiRoots = map[string]string{
	"api.openai.com": "/v1",
	"openrouter.ai":  "/api/v1",
}

// BaseURLError reports an OPENAI_API_BASE value that cannot be used.
// URL never carries credentials.
type BaseURLError struct {
	URL    string
	Reason string
}

func (e *BaseURLError) Error() string {
	if e.URL == "" {
		return "invalid OPENAI_API_BASE: " + e.Reason
	}
	return fmt.Sprintf("invalid OPENAI_API_BASE %q: %s", e.URL, e.Reason)
}

// ResolveBaseURL validates baseURL against the allow-list and returns the
// canonical form handed to the client: lowercase https origin plus the API
// path, without a trailing slash. An empty baseURL means DefaultBaseURL.
//
// Allow-list entries are hosts, optionally with a port; an entry without a
// port matches any port. An empty list falls back to the OpenAI and
// OpenRouter hosts.
func ResolveBaseURL(baseURL string, allowedHosts []string) (string, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", &BaseURLError{Reason: "not a valid URL"}
	}
	shown := withoutUserinfo(u)
	if !u.IsAbs() || u.Hostname() == "" {
		return "", &BaseURLError{URL: shown, Reason: "absolute URL with host is required"}
	}
	if u.User != nil {
		return "", &BaseURLError{URL: shown, Reason: "userinfo is not allowed"}
	}
	if u.RawQuery != "" || u.Fragment != "" || u.ForceQuery {
		return "", &BaseURLError{URL: shown, Reason: "query and fragment are not allowed"}
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return "", &BaseURLError{URL: shown, Reason: "https is required"}
	}

	host := strings.ToLower(u.Hostname())
	hostPort := strings.ToLower(u.Host)
	allowed := normalizeAllowedHosts(allowedHosts)
	_, okHost := allowed[host]
	_, okHostPort := allowed[hostPort]
	if !okHost && !okHostPort {
		return "", &BaseURLError{URL: shown, Reason: fmt.Sprintf("host %q is not in OPENAI_ALLOWED_HOSTS", host)}
	}

	path := strings.TrimRight(u.EscapedPath(), "/")
	if path == "" {
		path = apiRoots[host]
	}
	return "https://" + hostPort + path, nil
}

// ValidateBaseURL reports whether ResolveBaseURL accepts baseURL.
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	_, err := ResolveBaseURL(baseURL, allowedHosts)
	return err
}

func withoutUserinfo(u *url.URL) string {
	c := *u
	c.User = nil
	return c.String()
}

func normalizeAllowedHosts(allowedHosts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(allowedHosts))
	for _, h := range allowedHosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		if i := strings.IndexByte(v, '/'); i >= 0 {
			v = v[:i]
		}
		if v == "" {
			continue
		}
		out[v] = struct{}{}
	}
	if len(out) == 0 {
		out = make(map[string]struct{}, len(apiRoots))
		for h := range apiRoots {
			out[h] = struct{}{}
		}
	}
	return out
}
