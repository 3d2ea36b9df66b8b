// Package slideshow turns the stored folder selection into the flat,
// deduplicated photo sequence the frame displays, and drives the timed
// advance through it.
package slideshow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sync"

	"github.com/hokkyo/photoframe/backend/internal/model"
)

var (
	// ErrNotConfigured means no root folder URL has been stored yet. It is
	// distinct from a configured folder that happens to be empty.
	ErrNotConfigured = errors.New("slideshow: no root folder configured")

	// ErrInvalidFolderURL means the stored root URL carries no /folders/
	// segment to extract an id from.
	ErrInvalidFolderURL = errors.New("slideshow: root folder url has no /folders/ segment")
)

var folderIDPattern = regexp.MustCompile(`/folders/([A-Za-z0-9_-]+)`)

// ParseRootFolderID extracts the folder id from a shared-folder URL, the
// path segment following "/folders/".
func ParseRootFolderID(rawURL string) (string, error) {
	m := folderIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidFolderURL, rawURL)
	}
	return m[1], nil
}

// PhotoLister is the listing capability the aggregator fans out over; the
// drive lister implements it.
type PhotoLister interface {
	ListPhotos(ctx context.Context, folderID string) ([]model.Photo, error)
}

// SelectionSource supplies the stored folder selection; the settings
// service implements it.
type SelectionSource interface {
	RootFolderURL(ctx context.Context) (string, error)
	SelectedFolderIDs(ctx context.Context) ([]string, error)
}

// SentinelRootID marks the configured root folder inside a selection.
const SentinelRootID = "root"

// Aggregator combines the root folder selection with the selected
// sub-folder ids into one photo sequence.
type Aggregator struct {
	lister    PhotoLister
	selection SelectionSource
}

// NewAggregator creates an aggregator over the given lister and selection.
func NewAggregator(lister PhotoLister, selection SelectionSource) *Aggregator {
	return &Aggregator{lister: lister, selection: selection}
}

// Collect lists every selected folder concurrently and merges the results.
// Folders are merged in the selection's stored order, each keeping its
// arrival order; a photo reachable from two folders appears once, first
// seen wins. A single folder's listing failure is logged and skipped —
// siblings are unaffected and the photos that did load are still returned.
// Only an unresolvable root URL fails the whole operation.
func (a *Aggregator) Collect(ctx context.Context) ([]model.Photo, error) {
	rootURL, err := a.selection.RootFolderURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("read root folder url: %w", err)
	}
	if rootURL == "" {
		return nil, ErrNotConfigured
	}

	rootID, err := ParseRootFolderID(rootURL)
	if err != nil {
		return nil, err
	}

	ids, err := a.selection.SelectedFolderIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("read folder selection: %w", err)
	}

	resolved := make([]string, len(ids))
	for i, id := range ids {
		if id == SentinelRootID {
			resolved[i] = rootID
		} else {
			resolved[i] = id
		}
	}

	// Fan out one listing per folder; fan in behind the WaitGroup. Failed
	// branches leave a nil slot and never cancel their siblings.
	results := make([][]model.Photo, len(resolved))
	var wg sync.WaitGroup
	for i, folderID := range resolved {
		wg.Add(1)
		go func(i int, folderID string) {
			defer wg.Done()
			photos, err := a.lister.ListPhotos(ctx, folderID)
			if err != nil {
				log.Printf("slideshow: listing folder %s failed: %v", folderID, err)
				return
			}
			results[i] = photos
		}(i, folderID)
	}
	wg.Wait()

	seen := make(map[string]struct{})
	merged := []model.Photo{}
	for _, photos := range results {
		for _, p := range photos {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			merged = append(merged, p)
		}
	}
	return merged, nil
}
