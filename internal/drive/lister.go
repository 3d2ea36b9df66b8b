// Package drive translates folder identifiers and a bearer token into
// enumerations of child folders and child image files on Google Drive.
package drive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/hokkyo/photoframe/backend/internal/model"
)

const (
	folderMIMEType  = "application/vnd.google-apps.folder"
	imageMIMEPrefix = "image/"

	// listPageSize caps each listing call. Folders holding more entries than
	// one page are truncated unless the caller pages with ListPhotosPage.
	listPageSize = 100

	listFields = "nextPageToken, files(id, name, mimeType, thumbnailLink, webContentLink, size)"
)

// ErrUnauthenticated is returned when a listing is attempted before a
// bearer token has been set. Absence of a token is a hard error, not an
// empty result.
var ErrUnauthenticated = errors.New("drive: no access token set")

// RequestError is a non-2xx response from the provider. It is surfaced
// as-is; no retry is performed here.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("drive request failed: status %d: %s", e.StatusCode, e.Body)
}

// Lister enumerates folders and image files. The token is injected by the
// auth service on sign-in/restore and cleared on sign-out; consumers never
// touch it directly.
type Lister struct {
	opts []option.ClientOption

	mu  sync.RWMutex
	svc *gdrive.Service
}

// NewLister creates a Lister. Extra client options (e.g. an endpoint
// override) are applied to every service it builds; tests use this to point
// at a local fake.
func NewLister(opts ...option.ClientOption) *Lister {
	return &Lister{opts: opts}
}

// SetToken adopts the given access token for all subsequent listing calls.
func (l *Lister) SetToken(ctx context.Context, accessToken string) error {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, l.opts...)
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("unable to create drive service: %w", err)
	}

	l.mu.Lock()
	l.svc = svc
	l.mu.Unlock()
	return nil
}

// ClearToken drops the current token. Subsequent listings fail with
// ErrUnauthenticated.
func (l *Lister) ClearToken() {
	l.mu.Lock()
	l.svc = nil
	l.mu.Unlock()
}

// HasToken reports whether a token is currently set.
func (l *Lister) HasToken() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.svc != nil
}

func (l *Lister) service() (*gdrive.Service, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.svc == nil {
		return nil, ErrUnauthenticated
	}
	return l.svc, nil
}

// ListPhotos lists the image files directly inside folderID, capped at one
// page. The cap is a documented completeness boundary of the slideshow:
// callers needing every entry of an oversized folder must use ListPhotosPage.
func (l *Lister) ListPhotos(ctx context.Context, folderID string) ([]model.Photo, error) {
	photos, _, err := l.ListPhotosPage(ctx, folderID, "")
	return photos, err
}

// ListPhotosPage lists one page of image files inside folderID and returns
// the continuation token for the next page ("" when exhausted).
func (l *Lister) ListPhotosPage(ctx context.Context, folderID, pageToken string) ([]model.Photo, string, error) {
	svc, err := l.service()
	if err != nil {
		return nil, "", err
	}

	q := fmt.Sprintf("'%s' in parents and trashed = false", folderID)
	call := svc.Files.List().
		Q(q).
		PageSize(listPageSize).
		Fields(googleapi.Field(listFields)).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	r, err := call.Do()
	if err != nil {
		return nil, "", asRequestError(err)
	}

	photos := []model.Photo{}
	for _, f := range r.Files {
		if !strings.HasPrefix(f.MimeType, imageMIMEPrefix) {
			continue
		}
		preview := f.ThumbnailLink
		if preview == "" {
			preview = previewURL(f.Id)
		}
		photos = append(photos, model.Photo{
			ID:         f.Id,
			Name:       f.Name,
			MIMEType:   f.MimeType,
			PreviewURL: preview,
			Size:       f.Size,
		})
	}
	return photos, r.NextPageToken, nil
}

// ListSubfolders lists the folders directly inside folderID, capped at one
// page like ListPhotos.
func (l *Lister) ListSubfolders(ctx context.Context, folderID string) ([]model.Folder, error) {
	svc, err := l.service()
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf("'%s' in parents and trashed = false and mimeType = '%s'", folderID, folderMIMEType)
	r, err := svc.Files.List().
		Q(q).
		PageSize(listPageSize).
		Fields(googleapi.Field(listFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, asRequestError(err)
	}

	folders := []model.Folder{}
	for _, f := range r.Files {
		folders = append(folders, model.Folder{ID: f.Id, Name: f.Name})
	}
	return folders, nil
}

// previewURL derives a displayable URL from the file id alone, for files
// the provider returned no thumbnail link for. The URL does not embed the
// token; fetching it requires the bearer token as an Authorization header.
func previewURL(id string) string {
	return fmt.Sprintf("https://www.googleapis.com/drive/v3/files/%s?alt=media", id)
}

func asRequestError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return &RequestError{StatusCode: gErr.Code, Body: gErr.Message}
	}
	return err
}
