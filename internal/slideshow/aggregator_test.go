package slideshow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hokkyo/photoframe/backend/internal/model"
)

type fakeLister struct {
	mu      sync.Mutex
	photos  map[string][]model.Photo
	fail    map[string]error
	queried []string
}

func (f *fakeLister) ListPhotos(_ context.Context, folderID string) ([]model.Photo, error) {
	f.mu.Lock()
	f.queried = append(f.queried, folderID)
	f.mu.Unlock()
	if err, ok := f.fail[folderID]; ok {
		return nil, err
	}
	return f.photos[folderID], nil
}

type fakeSelection struct {
	rootURL string
	ids     []string
}

func (f *fakeSelection) RootFolderURL(context.Context) (string, error) {
	return f.rootURL, nil
}

func (f *fakeSelection) SelectedFolderIDs(context.Context) ([]string, error) {
	if len(f.ids) == 0 {
		return []string{SentinelRootID}, nil
	}
	return f.ids, nil
}

func photo(id string) model.Photo {
	return model.Photo{ID: id, Name: id + ".jpg", MIMEType: "image/jpeg"}
}

func TestParseRootFolderID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"shared folder url", "https://drive.example.com/drive/folders/XYZ123?usp=sharing", "XYZ123", false},
		{"plain folder url", "https://drive.example.com/drive/folders/abc_DEF-42", "abc_DEF-42", false},
		{"no folders segment", "https://drive.example.com/drive/", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRootFolderID(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFolderURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollect_DeduplicatesByID(t *testing.T) {
	lister := &fakeLister{photos: map[string][]model.Photo{
		"ROOT1": {photo("A"), photo("B")},
		"sub1":  {photo("A"), photo("C")},
	}}
	sel := &fakeSelection{
		rootURL: "https://drive.example.com/drive/folders/ROOT1",
		ids:     []string{"root", "sub1"},
	}

	photos, err := NewAggregator(lister, sel).Collect(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"A", "B", "C"}, ids, "photo A must appear exactly once, first seen wins")
}

func TestCollect_SentinelResolvesToRootID(t *testing.T) {
	lister := &fakeLister{photos: map[string][]model.Photo{}}
	sel := &fakeSelection{
		rootURL: "https://drive.example.com/drive/folders/ROOT1",
		ids:     []string{"root", "sub1"},
	}

	_, err := NewAggregator(lister, sel).Collect(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ROOT1", "sub1"}, lister.queried)
}

func TestCollect_PartialFailureKeepsSurvivors(t *testing.T) {
	lister := &fakeLister{
		photos: map[string][]model.Photo{
			"ROOT1": {photo("A")},
			"sub1":  {photo("B")},
		},
		fail: map[string]error{
			"sub2": errors.New("boom"),
		},
	}
	sel := &fakeSelection{
		rootURL: "https://drive.example.com/drive/folders/ROOT1",
		ids:     []string{"root", "sub1", "sub2"},
	}

	photos, err := NewAggregator(lister, sel).Collect(context.Background())
	require.NoError(t, err, "one folder's failure must not fail the aggregation")

	ids := make([]string, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"A", "B"}, ids)
}

func TestCollect_SelectionOrderIsPreserved(t *testing.T) {
	lister := &fakeLister{photos: map[string][]model.Photo{
		"ROOT1": {photo("r1"), photo("r2")},
		"sub1":  {photo("s1")},
	}}
	sel := &fakeSelection{
		rootURL: "https://drive.example.com/drive/folders/ROOT1",
		ids:     []string{"sub1", "root"},
	}

	photos, err := NewAggregator(lister, sel).Collect(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"s1", "r1", "r2"}, ids)
}

func TestCollect_NotConfigured(t *testing.T) {
	agg := NewAggregator(&fakeLister{}, &fakeSelection{rootURL: ""})

	_, err := agg.Collect(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCollect_InvalidRootURL(t *testing.T) {
	agg := NewAggregator(&fakeLister{}, &fakeSelection{rootURL: "https://drive.example.com/drive/"})

	_, err := agg.Collect(context.Background())
	assert.ErrorIs(t, err, ErrInvalidFolderURL)
}

func TestCollect_ConfiguredButEmptyIsNotAnError(t *testing.T) {
	lister := &fakeLister{photos: map[string][]model.Photo{}}
	sel := &fakeSelection{rootURL: "https://drive.example.com/drive/folders/ROOT1"}

	photos, err := NewAggregator(lister, sel).Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, photos)
}
