package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/hokkyo/photoframe/backend/internal/model"
	"github.com/hokkyo/photoframe/backend/internal/settings"
	"github.com/hokkyo/photoframe/backend/internal/slideshow"
)

// SlideshowHandler drives the playback controller.
type SlideshowHandler struct {
	controller *slideshow.Controller
	aggregator *slideshow.Aggregator
	settings   *settings.Service
	jwtSecret  string
}

// NewSlideshowHandler creates a new SlideshowHandler.
func NewSlideshowHandler(c *slideshow.Controller, agg *slideshow.Aggregator, st *settings.Service, jwtSecret string) *SlideshowHandler {
	return &SlideshowHandler{controller: c, aggregator: agg, settings: st, jwtSecret: jwtSecret}
}

type slideshowStatus struct {
	Playing bool         `json:"playing"`
	Index   int          `json:"index"`
	Count   int          `json:"count"`
	Current *model.Photo `json:"current,omitempty"`
}

// Status returns the playback state and the photo on display.
func (h *SlideshowHandler) Status(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetFrameUserID(req, h.jwtSecret); err != nil {
		return unauthorized(), nil
	}

	playing, index, count := h.controller.Status()
	status := slideshowStatus{Playing: playing, Index: index, Count: count}
	if photo, ok := h.controller.Current(); ok {
		status.Current = &photo
	}
	return jsonResponse(http.StatusOK, status), nil
}

// Refresh re-collects the photo sequence and loads it into the controller,
// rewinding to the first photo. The advance interval is re-read so a
// settings change takes effect here too.
func (h *SlideshowHandler) Refresh(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetFrameUserID(req, h.jwtSecret); err != nil {
		return unauthorized(), nil
	}

	photos, err := h.aggregator.Collect(ctx)
	if err != nil {
		if errors.Is(err, slideshow.ErrNotConfigured) || errors.Is(err, slideshow.ErrInvalidFolderURL) {
			return errorResponse(http.StatusConflict, "No root folder configured"), nil
		}
		fmt.Printf("Collect error: %v\n", err)
		return errorResponse(http.StatusInternalServerError, "Failed to refresh photos"), nil
	}

	prefs, err := h.settings.Preferences(ctx)
	if err != nil {
		fmt.Printf("Preferences error: %v\n", err)
		return errorResponse(http.StatusInternalServerError, "Failed to read preferences"), nil
	}

	h.controller.SetInterval(time.Duration(prefs.IntervalSeconds) * time.Second)
	h.controller.SetPhotos(photos)

	return jsonResponse(http.StatusOK, map[string]int{"count": len(photos)}), nil
}

// Play starts the advance timer.
func (h *SlideshowHandler) Play(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetFrameUserID(req, h.jwtSecret); err != nil {
		return unauthorized(), nil
	}
	h.controller.Play()
	return h.Status(ctx, req)
}

// Pause stops the advance timer.
func (h *SlideshowHandler) Pause(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetFrameUserID(req, h.jwtSecret); err != nil {
		return unauthorized(), nil
	}
	h.controller.Pause()
	return h.Status(ctx, req)
}

// Next advances to the next photo immediately.
func (h *SlideshowHandler) Next(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetFrameUserID(req, h.jwtSecret); err != nil {
		return unauthorized(), nil
	}
	h.controller.Next()
	return h.Status(ctx, req)
}

// Previous steps back one photo.
func (h *SlideshowHandler) Previous(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetFrameUserID(req, h.jwtSecret); err != nil {
		return unauthorized(), nil
	}
	h.controller.Previous()
	return h.Status(ctx, req)
}
