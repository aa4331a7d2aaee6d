package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/sakif/gitgate/internal/apperror"
)

// newTestProvider returns a GitHubProvider whose token endpoint and API
// base point at the given test servers.
func newTestProvider(tokenURL, apiURL string) *GitHubProvider {
	p := NewGitHubProvider("client-id", "client-secret", "http://localhost:8080/auth/github/callback")
	if tokenURL != "" {
		p.config.Endpoint = oauth2.Endpoint{TokenURL: tokenURL}
	}
	if apiURL != "" {
		p.apiBaseURL = apiURL
	}
	return p
}

// =========================================================================
// AuthURL TESTS
// =========================================================================

func TestAuthURL_ContainsClientIDScopesAndState(t *testing.T) {
	p := NewGitHubProvider("my-client-id", "secret", "http://localhost:8080/cb")

	rawURL, state := p.AuthURL()
	if state == "" {
		t.Fatal("AuthURL() returned empty state")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("AuthURL() returned unparsable URL: %v", err)
	}

	q := u.Query()
	if got := q.Get("client_id"); got != "my-client-id" {
		t.Errorf("client_id = %q, want %q", got, "my-client-id")
	}
	if got := q.Get("state"); got != state {
		t.Errorf("state in URL = %q, want %q", got, state)
	}
	if scope := q.Get("scope"); !strings.Contains(scope, "user:email") {
		t.Errorf("scope = %q, should request user:email", scope)
	}
}

func TestAuthURL_FreshStatePerCall(t *testing.T) {
	p := NewGitHubProvider("id", "secret", "http://localhost/cb")

	_, state1 := p.AuthURL()
	_, state2 := p.AuthURL()
	if state1 == state2 {
		t.Error("AuthURL() returned the same state twice")
	}
}

// =========================================================================
// Exchange TESTS
// =========================================================================

func TestExchange_Success(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"gho_testtoken","token_type":"bearer"}`))
	}))
	defer tokenSrv.Close()

	p := newTestProvider(tokenSrv.URL, "")

	token, err := p.Exchange(context.Background(), "valid-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if token != "gho_testtoken" {
		t.Errorf("Exchange() token = %q, want %q", token, "gho_testtoken")
	}
}

func TestExchange_ProviderError(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad_verification_code","error_description":"The code passed is incorrect or expired."}`))
	}))
	defer tokenSrv.Close()

	p := newTestProvider(tokenSrv.URL, "")

	_, err := p.Exchange(context.Background(), "expired-code")
	if !errors.Is(err, apperror.ErrProviderExchange) {
		t.Fatalf("Exchange() error = %v, want wrapped ErrProviderExchange", err)
	}
}

func TestExchange_NetworkFailure(t *testing.T) {
	// Point at a server that's already closed
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	tokenSrv.Close()

	p := newTestProvider(tokenSrv.URL, "")

	_, err := p.Exchange(context.Background(), "any-code")
	if !errors.Is(err, apperror.ErrProviderExchange) {
		t.Fatalf("Exchange() error = %v, want wrapped ErrProviderExchange", err)
	}
}

// =========================================================================
// FetchProfile TESTS
// =========================================================================

// newProfileAPIServer fakes the two GitHub API endpoints FetchProfile hits.
func newProfileAPIServer(t *testing.T, userBody, emailsBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Error("missing Bearer authorization on /user call")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(userBody))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(emailsBody))
	})
	return httptest.NewServer(mux)
}

func TestFetchProfile_SelectsPrimaryEmail(t *testing.T) {
	api := newProfileAPIServer(t,
		`{"id":42,"login":"alice","name":"Alice Park","avatar_url":"https://example.com/a.png"}`,
		`[{"email":"old@x.com","primary":false},{"email":"a@x.com","primary":true}]`,
	)
	defer api.Close()

	p := newTestProvider("", api.URL)

	profile, err := p.FetchProfile(context.Background(), "gho_testtoken")
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}

	if profile.ExternalID != "42" {
		t.Errorf("ExternalID = %q, want %q", profile.ExternalID, "42")
	}
	if profile.Username != "Alice Park" {
		t.Errorf("Username = %q, want display name %q", profile.Username, "Alice Park")
	}
	if profile.Email != "a@x.com" {
		t.Errorf("Email = %q, want primary %q", profile.Email, "a@x.com")
	}
	if profile.AvatarURL != "https://example.com/a.png" {
		t.Errorf("AvatarURL = %q", profile.AvatarURL)
	}
}

func TestFetchProfile_FallsBackToLogin(t *testing.T) {
	api := newProfileAPIServer(t,
		`{"id":7,"login":"bob","name":"","avatar_url":""}`,
		`[]`,
	)
	defer api.Close()

	p := newTestProvider("", api.URL)

	profile, err := p.FetchProfile(context.Background(), "gho_testtoken")
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if profile.Username != "bob" {
		t.Errorf("Username = %q, want login fallback %q", profile.Username, "bob")
	}
	if profile.Email != "" {
		t.Errorf("Email = %q, want empty when no primary exists", profile.Email)
	}
}

func TestFetchProfile_APIErrorStatus(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	}))
	defer api.Close()

	p := newTestProvider("", api.URL)

	_, err := p.FetchProfile(context.Background(), "gho_testtoken")
	if !errors.Is(err, apperror.ErrProviderProfile) {
		t.Fatalf("FetchProfile() error = %v, want wrapped ErrProviderProfile", err)
	}
}

func TestFetchProfile_InvalidUserID(t *testing.T) {
	api := newProfileAPIServer(t, `{"id":0,"login":""}`, `[]`)
	defer api.Close()

	p := newTestProvider("", api.URL)

	_, err := p.FetchProfile(context.Background(), "gho_testtoken")
	if !errors.Is(err, apperror.ErrProviderProfile) {
		t.Fatalf("FetchProfile() error = %v, want wrapped ErrProviderProfile", err)
	}
}
