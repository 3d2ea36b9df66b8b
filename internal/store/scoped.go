package store

import "context"

// Scoped wraps a Store and prefixes every key with "frame:<id>:", so
// several frames can share one backend without key collisions.
type Scoped struct {
	inner  Store
	prefix string
}

// NewScoped returns a store scoped to the given frame id.
func NewScoped(inner Store, frameID string) *Scoped {
	return &Scoped{inner: inner, prefix: "frame:" + frameID + ":"}
}

func (s *Scoped) Get(ctx context.Context, key string) (string, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *Scoped) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}
