package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"golang.org/x/oauth2"

	"github.com/hokkyo/photoframe/backend/internal/auth"
	"github.com/hokkyo/photoframe/backend/internal/crypto"
	"github.com/hokkyo/photoframe/backend/internal/handler"
	"github.com/hokkyo/photoframe/backend/internal/store"
)

type noopTokenSetter struct{}

func (noopTokenSetter) SetToken(context.Context, string) error { return nil }
func (noopTokenSetter) ClearToken()                            {}

func newAuthHandler(cfg *oauth2.Config) *handler.AuthHandler {
	svc := auth.NewService(cfg, store.NewMemory(), crypto.NewMockEncryptor(), noopTokenSetter{}, auth.NewNotifier())
	return handler.NewAuthHandler(svc, testJWTSecret)
}

func configuredOAuth() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/auth/callback",
	}
}

func TestLogin_RedirectsToProvider(t *testing.T) {
	h := newAuthHandler(configuredOAuth())

	resp, err := h.Login(context.Background(), events.APIGatewayProxyRequest{})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("Expected 302, got %d", resp.StatusCode)
	}

	location := resp.Headers["Location"]
	if !strings.Contains(location, "state=") {
		t.Errorf("Expected state parameter in auth URL, got %s", location)
	}
	if !strings.Contains(location, "access_type=offline") {
		t.Errorf("Expected offline access in auth URL, got %s", location)
	}
}

func TestLogin_UnconfiguredClient(t *testing.T) {
	h := newAuthHandler(&oauth2.Config{})

	resp, err := h.Login(context.Background(), events.APIGatewayProxyRequest{})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 for missing client credentials, got %d", resp.StatusCode)
	}
}

func TestCallback_ProviderError(t *testing.T) {
	h := newAuthHandler(configuredOAuth())

	resp, err := h.Callback(context.Background(), events.APIGatewayProxyRequest{
		QueryStringParameters: map[string]string{"error": "access_denied"},
	})
	if err != nil {
		t.Fatalf("Callback failed: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("Expected 302, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Headers["Location"], "error=auth") {
		t.Errorf("Expected error marker in redirect, got %s", resp.Headers["Location"])
	}
}

func TestCallback_MissingCode(t *testing.T) {
	h := newAuthHandler(configuredOAuth())

	resp, err := h.Callback(context.Background(), events.APIGatewayProxyRequest{
		QueryStringParameters: map[string]string{},
	})
	if err != nil {
		t.Fatalf("Callback failed: %v", err)
	}
	if !strings.Contains(resp.Headers["Location"], "error=auth") {
		t.Errorf("Expected error marker in redirect, got %s", resp.Headers["Location"])
	}
}

func TestCallback_StateMismatch(t *testing.T) {
	h := newAuthHandler(configuredOAuth())

	// No sign-in was started, so any state is a mismatch.
	resp, err := h.Callback(context.Background(), events.APIGatewayProxyRequest{
		QueryStringParameters: map[string]string{
			"code":  "some-code",
			"state": "forged-state",
		},
	})
	if err != nil {
		t.Fatalf("Callback failed: %v", err)
	}
	if !strings.Contains(resp.Headers["Location"], "error=auth") {
		t.Errorf("Expected error marker in redirect, got %s", resp.Headers["Location"])
	}
}

func TestStatus_NeedsNoSession(t *testing.T) {
	h := newAuthHandler(configuredOAuth())

	resp, err := h.Status(context.Background(), events.APIGatewayProxyRequest{})
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var status map[string]bool
	if err := json.Unmarshal([]byte(resp.Body), &status); err != nil {
		t.Fatalf("Invalid response body: %v", err)
	}
	if status["signedIn"] {
		t.Error("Expected signedIn false without a session")
	}
}

func TestGetUser_Unauthorized(t *testing.T) {
	h := newAuthHandler(configuredOAuth())

	resp, err := h.GetUser(context.Background(), events.APIGatewayProxyRequest{})
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	h := newAuthHandler(configuredOAuth())

	resp, err := h.Logout(context.Background(), events.APIGatewayProxyRequest{})
	if err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	cookies := resp.MultiValueHeaders["Set-Cookie"]
	if len(cookies) != 1 || !strings.Contains(cookies[0], "frame_session=;") {
		t.Errorf("Expected cleared frame_session cookie, got %v", cookies)
	}
	if !strings.Contains(cookies[0], "Max-Age=0") {
		t.Errorf("Expected Max-Age=0, got %s", cookies[0])
	}
}
