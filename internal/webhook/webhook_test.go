package webhook

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

var (
	testID    = "123456789012345678"
	testToken = strings.Repeat("Ab9_-", 13)
)

// hookURL builds a webhook URL served by srv.
func hookURL(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return srv.URL + "/api/webhooks/" + testID + "/" + testToken
}

// serverParser returns a parser that accepts srv's host.
func serverParser(t *testing.T, srv *httptest.Server) *Parser {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing server url: %v", err)
	}
	return NewParser([]string{u.Hostname()})
}
