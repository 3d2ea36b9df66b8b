package handler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/hokkyo/photoframe/backend/internal/model"
	"github.com/hokkyo/photoframe/backend/internal/settings"
	"github.com/hokkyo/photoframe/backend/internal/slideshow"
)

// FolderLister lists the sub-folders of a folder; the drive lister
// implements it.
type FolderLister interface {
	ListSubfolders(ctx context.Context, folderID string) ([]model.Folder, error)
}

// PhotoHandler serves the aggregated photo sequence and the folder tree
// the settings screen picks from.
type PhotoHandler struct {
	aggregator *slideshow.Aggregator
	settings   *settings.Service
	folders    FolderLister
	jwtSecret  string
}

// NewPhotoHandler creates a new PhotoHandler.
func NewPhotoHandler(agg *slideshow.Aggregator, st *settings.Service, folders FolderLister, jwtSecret string) *PhotoHandler {
	return &PhotoHandler{aggregator: agg, settings: st, folders: folders, jwtSecret: jwtSecret}
}

// ListPhotos returns the deduplicated photo sequence for the current folder
// selection. A configured-but-empty selection is 200 with an empty list;
// a missing root folder is 409 so the frame shows the setup screen.
func (h *PhotoHandler) ListPhotos(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetFrameUserID(req, h.jwtSecret); err != nil {
		return unauthorized(), nil
	}

	photos, err := h.aggregator.Collect(ctx)
	if err != nil {
		if errors.Is(err, slideshow.ErrNotConfigured) || errors.Is(err, slideshow.ErrInvalidFolderURL) {
			return errorResponse(http.StatusConflict, "No root folder configured"), nil
		}
		fmt.Printf("Collect error: %v\n", err)
		return errorResponse(http.StatusInternalServerError, "Failed to list photos"), nil
	}

	prefs, err := h.settings.Preferences(ctx)
	if err != nil {
		fmt.Printf("Preferences error: %v\n", err)
		return errorResponse(http.StatusInternalServerError, "Failed to read preferences"), nil
	}
	if prefs.Shuffle {
		rand.Shuffle(len(photos), func(i, j int) {
			photos[i], photos[j] = photos[j], photos[i]
		})
	}

	return jsonResponse(http.StatusOK, photos), nil
}

// ListFolders returns the sub-folders of the configured root folder.
func (h *PhotoHandler) ListFolders(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetFrameUserID(req, h.jwtSecret); err != nil {
		return unauthorized(), nil
	}

	rootURL, err := h.settings.RootFolderURL(ctx)
	if err != nil {
		fmt.Printf("RootFolderURL error: %v\n", err)
		return errorResponse(http.StatusInternalServerError, "Failed to read root folder"), nil
	}
	if rootURL == "" {
		return errorResponse(http.StatusConflict, "No root folder configured"), nil
	}

	rootID, err := slideshow.ParseRootFolderID(rootURL)
	if err != nil {
		return errorResponse(http.StatusConflict, "Root folder URL is not valid"), nil
	}

	folders, err := h.folders.ListSubfolders(ctx, rootID)
	if err != nil {
		fmt.Printf("ListSubfolders error: %v\n", err)
		return errorResponse(http.StatusInternalServerError, "Failed to list folders"), nil
	}

	return jsonResponse(http.StatusOK, folders), nil
}
