package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hokkyo/photoframe/backend/internal/auth"
)

// AuthHandler handles the sign-in flow and session queries.
type AuthHandler struct {
	authService *auth.Service
	jwtSecret   string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(s *auth.Service, jwtSecret string) *AuthHandler {
	return &AuthHandler{authService: s, jwtSecret: jwtSecret}
}

// Login initiates the OAuth2 flow. A fresh state is generated per attempt
// and verified at the callback.
func (h *AuthHandler) Login(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	state := uuid.New().String()
	url, err := h.authService.BeginSignIn(ctx, state)
	if err != nil {
		fmt.Printf("BeginSignIn error: %v\n", err)
		if err == auth.ErrConfigurationMissing {
			return errorResponse(http.StatusServiceUnavailable, "OAuth client is not configured"), nil
		}
		return errorResponse(http.StatusInternalServerError, "Failed to start sign-in"), nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"Location": url,
		},
	}, nil
}

// Callback handles the OAuth2 redirect from the provider. Every failure
// sends the browser back to the frame UI with an error marker; the frame
// shows the setup screen again.
func (h *AuthHandler) Callback(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if provErr := req.QueryStringParameters["error"]; provErr != "" {
		fmt.Printf("Callback provider error: %s\n", provErr)
		return redirectToFrame("/?error=auth"), nil
	}

	code := req.QueryStringParameters["code"]
	if code == "" {
		return redirectToFrame("/?error=auth"), nil
	}

	if err := h.authService.VerifyState(ctx, req.QueryStringParameters["state"]); err != nil {
		fmt.Printf("VerifyState error: %v\n", err)
		return redirectToFrame("/?error=auth"), nil
	}

	if err := h.authService.CompleteSignIn(ctx, code); err != nil {
		fmt.Printf("CompleteSignIn error: %v\n", err)
		return redirectToFrame("/?error=auth"), nil
	}

	user, ok := h.authService.CurrentUser()
	if !ok {
		return redirectToFrame("/?error=auth"), nil
	}

	// Generate JWT Session Token for the frame UI
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"name":  user.Name,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	}
	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := jwtToken.SignedString([]byte(h.jwtSecret))
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Failed to sign token"), nil
	}

	resp := redirectToFrame("/?success=true")
	resp.MultiValueHeaders = map[string][]string{
		"Set-Cookie": {sessionCookie(signedToken, 86400)},
	}
	return resp, nil
}

// Logout clears the held session and the frame session cookie.
func (h *AuthHandler) Logout(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	h.authService.SignOut(ctx)

	resp := jsonResponse(http.StatusOK, map[string]bool{"success": true})
	resp.MultiValueHeaders = map[string][]string{
		"Set-Cookie": {sessionCookie("", 0)},
	}
	return resp, nil
}

// GetUser returns the signed-in user's profile.
func (h *AuthHandler) GetUser(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetFrameUserID(req, h.jwtSecret); err != nil {
		return unauthorized(), nil
	}

	user, ok := h.authService.CurrentUser()
	if !ok {
		return unauthorized(), nil
	}
	return jsonResponse(http.StatusOK, user), nil
}

// Status reports whether a session is held. The frame polls this to decide
// between the setup screen and the slideshow; it needs no cookie.
func (h *AuthHandler) Status(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return jsonResponse(http.StatusOK, map[string]bool{
		"signedIn": h.authService.IsSignedIn(),
	}), nil
}

// redirectToFrame builds a 302 to the frame UI.
func redirectToFrame(path string) events.APIGatewayProxyResponse {
	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"Location": frontendURL + path,
		},
	}
}

// sessionCookie builds the frame session cookie. SameSite should match
// between Callback and Logout.
func sessionCookie(token string, maxAge int) string {
	sameSite := "Lax"
	if os.Getenv("DEV_MODE") != "true" {
		sameSite = "None"
	}
	return fmt.Sprintf("frame_session=%s; HttpOnly; Path=/; Max-Age=%d; SameSite=%s; Secure", token, maxAge, sameSite)
}
