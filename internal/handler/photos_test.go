package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/hokkyo/photoframe/backend/internal/handler"
	"github.com/hokkyo/photoframe/backend/internal/model"
	"github.com/hokkyo/photoframe/backend/internal/settings"
	"github.com/hokkyo/photoframe/backend/internal/slideshow"
	"github.com/hokkyo/photoframe/backend/internal/store"
)

// fakeDrive serves canned listings for both photos and sub-folders.
type fakeDrive struct {
	photos  map[string][]model.Photo
	folders []model.Folder
	err     error
}

func (f *fakeDrive) ListPhotos(_ context.Context, folderID string) ([]model.Photo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.photos[folderID], nil
}

func (f *fakeDrive) ListSubfolders(_ context.Context, folderID string) ([]model.Folder, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.folders, nil
}

func newPhotoHandler(drive *fakeDrive) (*handler.PhotoHandler, *settings.Service) {
	svc := settings.NewService(store.NewMemory())
	agg := slideshow.NewAggregator(drive, svc)
	return handler.NewPhotoHandler(agg, svc, drive, testJWTSecret), svc
}

func TestListPhotos_Unauthorized(t *testing.T) {
	h, _ := newPhotoHandler(&fakeDrive{})

	resp, err := h.ListPhotos(context.Background(), events.APIGatewayProxyRequest{})
	if err != nil {
		t.Fatalf("ListPhotos failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}
}

func TestListPhotos_NotConfigured(t *testing.T) {
	h, _ := newPhotoHandler(&fakeDrive{})

	resp, err := h.ListPhotos(context.Background(), authedRequest())
	if err != nil {
		t.Fatalf("ListPhotos failed: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for unconfigured frame, got %d", resp.StatusCode)
	}
}

func TestListPhotos_ReturnsAggregatedSequence(t *testing.T) {
	drive := &fakeDrive{photos: map[string][]model.Photo{
		"ROOT1": {{ID: "a", Name: "a.jpg"}, {ID: "b", Name: "b.jpg"}},
	}}
	h, svc := newPhotoHandler(drive)
	if err := svc.SetRootFolderURL(context.Background(), "https://drive.example.com/drive/folders/ROOT1"); err != nil {
		t.Fatalf("SetRootFolderURL failed: %v", err)
	}

	resp, err := h.ListPhotos(context.Background(), authedRequest())
	if err != nil {
		t.Fatalf("ListPhotos failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}

	var photos []model.Photo
	if err := json.Unmarshal([]byte(resp.Body), &photos); err != nil {
		t.Fatalf("Invalid response body: %v", err)
	}
	if len(photos) != 2 {
		t.Errorf("Expected 2 photos, got %d", len(photos))
	}
}

func TestListPhotos_ConfiguredButEmptyIsOK(t *testing.T) {
	h, svc := newPhotoHandler(&fakeDrive{photos: map[string][]model.Photo{}})
	if err := svc.SetRootFolderURL(context.Background(), "https://drive.example.com/drive/folders/ROOT1"); err != nil {
		t.Fatalf("SetRootFolderURL failed: %v", err)
	}

	resp, err := h.ListPhotos(context.Background(), authedRequest())
	if err != nil {
		t.Fatalf("ListPhotos failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 for configured empty folder, got %d", resp.StatusCode)
	}

	var photos []model.Photo
	if err := json.Unmarshal([]byte(resp.Body), &photos); err != nil {
		t.Fatalf("Invalid response body: %v", err)
	}
	if len(photos) != 0 {
		t.Errorf("Expected empty list, got %d photos", len(photos))
	}
}

func TestListPhotos_ShuffleKeepsTheSameSet(t *testing.T) {
	drive := &fakeDrive{photos: map[string][]model.Photo{
		"ROOT1": {{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
	}}
	h, svc := newPhotoHandler(drive)
	ctx := context.Background()
	if err := svc.SetRootFolderURL(ctx, "https://drive.example.com/drive/folders/ROOT1"); err != nil {
		t.Fatalf("SetRootFolderURL failed: %v", err)
	}
	shuffle := true
	if err := svc.Apply(ctx, settings.Patch{Shuffle: &shuffle}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	resp, err := h.ListPhotos(ctx, authedRequest())
	if err != nil {
		t.Fatalf("ListPhotos failed: %v", err)
	}

	var photos []model.Photo
	if err := json.Unmarshal([]byte(resp.Body), &photos); err != nil {
		t.Fatalf("Invalid response body: %v", err)
	}
	seen := make(map[string]bool)
	for _, p := range photos {
		seen[p.ID] = true
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		if !seen[id] {
			t.Errorf("Shuffle lost photo %q", id)
		}
	}
	if len(photos) != 4 {
		t.Errorf("Expected 4 photos after shuffle, got %d", len(photos))
	}
}

func TestListFolders_ReturnsSubfolders(t *testing.T) {
	drive := &fakeDrive{folders: []model.Folder{{ID: "sub1", Name: "Holiday"}}}
	h, svc := newPhotoHandler(drive)
	if err := svc.SetRootFolderURL(context.Background(), "https://drive.example.com/drive/folders/ROOT1"); err != nil {
		t.Fatalf("SetRootFolderURL failed: %v", err)
	}

	resp, err := h.ListFolders(context.Background(), authedRequest())
	if err != nil {
		t.Fatalf("ListFolders failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}

	var folders []model.Folder
	if err := json.Unmarshal([]byte(resp.Body), &folders); err != nil {
		t.Fatalf("Invalid response body: %v", err)
	}
	if len(folders) != 1 || folders[0].ID != "sub1" {
		t.Errorf("Unexpected folders: %v", folders)
	}
}

func TestListFolders_NotConfigured(t *testing.T) {
	h, _ := newPhotoHandler(&fakeDrive{})

	resp, err := h.ListFolders(context.Background(), authedRequest())
	if err != nil {
		t.Fatalf("ListFolders failed: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409, got %d", resp.StatusCode)
	}
}

func TestListFolders_ListingFailure(t *testing.T) {
	drive := &fakeDrive{err: errors.New("boom")}
	h, svc := newPhotoHandler(drive)
	if err := svc.SetRootFolderURL(context.Background(), "https://drive.example.com/drive/folders/ROOT1"); err != nil {
		t.Fatalf("SetRootFolderURL failed: %v", err)
	}

	resp, err := h.ListFolders(context.Background(), authedRequest())
	if err != nil {
		t.Fatalf("ListFolders failed: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", resp.StatusCode)
	}
}
