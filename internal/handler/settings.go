package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/hokkyo/photoframe/backend/internal/settings"
)

// SettingsHandler reads and patches the frame preferences.
type SettingsHandler struct {
	settings  *settings.Service
	jwtSecret string
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(s *settings.Service, jwtSecret string) *SettingsHandler {
	return &SettingsHandler{settings: s, jwtSecret: jwtSecret}
}

// GetSettings returns the full preference set, defaults applied.
func (h *SettingsHandler) GetSettings(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetFrameUserID(req, h.jwtSecret); err != nil {
		return unauthorized(), nil
	}

	prefs, err := h.settings.Preferences(ctx)
	if err != nil {
		fmt.Printf("Preferences error: %v\n", err)
		return errorResponse(http.StatusInternalServerError, "Failed to read settings"), nil
	}
	return jsonResponse(http.StatusOK, prefs), nil
}

// UpdateSettings applies a partial preference update and returns the
// resulting full set.
func (h *SettingsHandler) UpdateSettings(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetFrameUserID(req, h.jwtSecret); err != nil {
		return unauthorized(), nil
	}

	var patch settings.Patch
	if err := json.Unmarshal([]byte(req.Body), &patch); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body"), nil
	}

	if err := h.settings.Apply(ctx, patch); err != nil {
		if errors.Is(err, settings.ErrInvalidInterval) {
			return errorResponse(http.StatusBadRequest, "Interval must be at least one second"), nil
		}
		fmt.Printf("Apply error: %v\n", err)
		return errorResponse(http.StatusInternalServerError, "Failed to update settings"), nil
	}

	prefs, err := h.settings.Preferences(ctx)
	if err != nil {
		fmt.Printf("Preferences error: %v\n", err)
		return errorResponse(http.StatusInternalServerError, "Failed to read settings"), nil
	}
	return jsonResponse(http.StatusOK, prefs), nil
}
