package webhook

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Priya8975/chatlog-relay/internal/domain"
)

// webhookPath matches /api/webhooks/{id}/{token}, optionally versioned.
var webhookPath = regexp.MustCompile(`^/api(?:/v[0-9]+)?/webhooks/([0-9]{17,20})/([A-Za-z0-9._-]{60,})/?$`)

// Endpoint is a parsed webhook URL.
type Endpoint struct {
	URL   *url.URL
	ID    string
	Token string
}

// String returns the full URL including the token.
func (e Endpoint) String() string {
	return e.URL.String()
}

// Redacted returns the URL with the token masked, safe for logs and APIs.
func (e Endpoint) Redacted() string {
	path := strings.TrimSuffix(e.URL.Path, "/")
	path = strings.TrimSuffix(path, e.Token)
	return fmt.Sprintf("%s://%s%s****", e.URL.Scheme, e.URL.Host, path)
}

// Parser validates webhook URLs against a set of allowed hosts.
type Parser struct {
	allowed map[string]struct{}
}

// NewParser creates a parser that accepts webhooks served by hosts.
func NewParser(hosts []string) *Parser {
	allowed := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			allowed[h] = struct{}{}
		}
	}
	return &Parser{allowed: allowed}
}

// Parse returns the endpoint for raw or an InvalidEndpoint error.
func (p *Parser) Parse(raw string) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Endpoint{}, invalid("webhook url is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, invalid("webhook url does not parse")
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return Endpoint{}, invalid(fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	if _, ok := p.allowed[strings.ToLower(u.Hostname())]; !ok {
		return Endpoint{}, invalid(fmt.Sprintf("host %q is not a webhook host", u.Hostname()))
	}

	m := webhookPath.FindStringSubmatch(u.Path)
	if m == nil {
		return Endpoint{}, invalid("path is not /api/webhooks/{id}/{token}")
	}

	u.RawQuery = ""
	u.Fragment = ""
	return Endpoint{URL: u, ID: m[1], Token: m[2]}, nil
}

// Redact masks the token of raw for logging. Unparseable input is reduced to
// its host.
func (p *Parser) Redact(raw string) string {
	if ep, err := p.Parse(raw); err == nil {
		return ep.Redacted()
	}
	if u, err := url.Parse(strings.TrimSpace(raw)); err == nil && u.Host != "" {
		return u.Scheme + "://" + u.Host + "/****"
	}
	return "<invalid>"
}

func invalid(reason string) error {
	return domain.NewError(domain.InvalidEndpoint, reason, domain.ErrInvalidEndpoint)
}
