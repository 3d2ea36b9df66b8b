// Package settings persists the folder selection and display preferences.
// Every change is written through to the store immediately, and readers
// always go back to the store, so a restart or a concurrent settings page
// never sees stale state.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/hokkyo/photoframe/backend/internal/model"
	"github.com/hokkyo/photoframe/backend/internal/store"
)

// SentinelRootID is the reserved folder id representing the configured root
// folder rather than a provider-issued identifier.
const SentinelRootID = "root"

// ErrInvalidInterval rejects a slideshow interval below one second.
var ErrInvalidInterval = errors.New("settings: interval must be at least one second")

// Persisted key names. These are a compatibility surface: existing frames
// carry state under them, so renaming one is a breaking change.
const (
	keyRootFolderURL   = "settings.root_folder_url"
	keySelectedFolders = "settings.selected_folders"
	keyShowClock       = "settings.show_clock"
	keyShowPhotoInfo   = "settings.show_photo_info"
	keyShuffle         = "settings.shuffle"
	keyOverlayOpacity  = "settings.overlay_opacity"
	keyIntervalSeconds = "settings.interval_seconds"
)

// Defaults for unset preferences.
const (
	defaultShowClock       = true
	defaultShowPhotoInfo   = false
	defaultShuffle         = false
	defaultOverlayOpacity  = 0.3
	defaultIntervalSeconds = 10
)

// Service reads and writes preferences in the store.
type Service struct {
	store store.Store
}

// NewService creates a settings service over the given store.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// RootFolderURL returns the stored root folder URL, or "" when the frame
// has not been configured yet.
func (s *Service) RootFolderURL(ctx context.Context) (string, error) {
	v, err := s.store.Get(ctx, keyRootFolderURL)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// SetRootFolderURL persists the root folder URL.
func (s *Service) SetRootFolderURL(ctx context.Context, url string) error {
	return s.store.Set(ctx, keyRootFolderURL, url)
}

// SelectedFolderIDs returns the selected folder ids in stored order,
// defaulting to the root sentinel when nothing is stored.
func (s *Service) SelectedFolderIDs(ctx context.Context) ([]string, error) {
	v, err := s.store.Get(ctx, keySelectedFolders)
	if errors.Is(err, store.ErrNotFound) {
		return []string{SentinelRootID}, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal([]byte(v), &ids); err != nil {
		return nil, fmt.Errorf("malformed selected folder list: %w", err)
	}
	if len(ids) == 0 {
		return []string{SentinelRootID}, nil
	}
	return ids, nil
}

// SetSelectedFolderIDs persists the folder selection.
func (s *Service) SetSelectedFolderIDs(ctx context.Context, ids []string) error {
	b, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal selected folder list: %w", err)
	}
	return s.store.Set(ctx, keySelectedFolders, string(b))
}

// Preferences assembles the full preference set, applying defaults for
// unset keys.
func (s *Service) Preferences(ctx context.Context) (model.Preferences, error) {
	p := model.Preferences{}

	var err error
	if p.RootFolderURL, err = s.RootFolderURL(ctx); err != nil {
		return p, err
	}
	if p.SelectedFolderIDs, err = s.SelectedFolderIDs(ctx); err != nil {
		return p, err
	}
	if p.ShowClock, err = s.getBool(ctx, keyShowClock, defaultShowClock); err != nil {
		return p, err
	}
	if p.ShowPhotoInfo, err = s.getBool(ctx, keyShowPhotoInfo, defaultShowPhotoInfo); err != nil {
		return p, err
	}
	if p.Shuffle, err = s.getBool(ctx, keyShuffle, defaultShuffle); err != nil {
		return p, err
	}
	if p.OverlayOpacity, err = s.getFloat(ctx, keyOverlayOpacity, defaultOverlayOpacity); err != nil {
		return p, err
	}
	if p.IntervalSeconds, err = s.getInt(ctx, keyIntervalSeconds, defaultIntervalSeconds); err != nil {
		return p, err
	}
	return p, nil
}

// Patch is a partial preference update; nil fields are left untouched.
type Patch struct {
	RootFolderURL     *string   `json:"rootFolderUrl,omitempty"`
	SelectedFolderIDs *[]string `json:"selectedFolderIds,omitempty"`
	ShowClock         *bool     `json:"showClock,omitempty"`
	ShowPhotoInfo     *bool     `json:"showPhotoInfo,omitempty"`
	Shuffle           *bool     `json:"shuffle,omitempty"`
	OverlayOpacity    *float64  `json:"overlayOpacity,omitempty"`
	IntervalSeconds   *int      `json:"intervalSeconds,omitempty"`
}

// Apply persists every present field of the patch. Each field is written
// independently so a single toggle does not rewrite unrelated keys.
// An invalid field rejects the whole patch before anything is written.
func (s *Service) Apply(ctx context.Context, p Patch) error {
	if p.IntervalSeconds != nil && *p.IntervalSeconds < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidInterval, *p.IntervalSeconds)
	}
	if p.RootFolderURL != nil {
		if err := s.SetRootFolderURL(ctx, *p.RootFolderURL); err != nil {
			return err
		}
	}
	if p.SelectedFolderIDs != nil {
		if err := s.SetSelectedFolderIDs(ctx, *p.SelectedFolderIDs); err != nil {
			return err
		}
	}
	if p.ShowClock != nil {
		if err := s.store.Set(ctx, keyShowClock, strconv.FormatBool(*p.ShowClock)); err != nil {
			return err
		}
	}
	if p.ShowPhotoInfo != nil {
		if err := s.store.Set(ctx, keyShowPhotoInfo, strconv.FormatBool(*p.ShowPhotoInfo)); err != nil {
			return err
		}
	}
	if p.Shuffle != nil {
		if err := s.store.Set(ctx, keyShuffle, strconv.FormatBool(*p.Shuffle)); err != nil {
			return err
		}
	}
	if p.OverlayOpacity != nil {
		if err := s.store.Set(ctx, keyOverlayOpacity, strconv.FormatFloat(*p.OverlayOpacity, 'f', -1, 64)); err != nil {
			return err
		}
	}
	if p.IntervalSeconds != nil {
		if err := s.store.Set(ctx, keyIntervalSeconds, strconv.Itoa(*p.IntervalSeconds)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) getBool(ctx context.Context, key string, def bool) (bool, error) {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("malformed %s value %q: %w", key, v, err)
	}
	return b, nil
}

func (s *Service) getFloat(ctx context.Context, key string, def float64) (float64, error) {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("malformed %s value %q: %w", key, v, err)
	}
	return f, nil
}

func (s *Service) getInt(ctx context.Context, key string, def int) (int, error) {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("malformed %s value %q: %w", key, v, err)
	}
	return n, nil
}
