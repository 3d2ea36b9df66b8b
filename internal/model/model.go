package model

import "time"

// User is the profile portion of an authenticated session, as returned by
// the identity provider's userinfo endpoint.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	PhotoURL string `json:"picture,omitempty"`
}

// Token is the OAuth2 credential portion of a session. It is persisted
// encrypted; see the crypto package.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// Expired reports whether the access token is past its expiry.
// A zero expiry means the provider gave no hint; treat it as still valid.
func (t Token) Expired() bool {
	if t.Expiry.IsZero() {
		return false
	}
	return time.Now().After(t.Expiry)
}

// Session is an authenticated identity: a session exists if and only if
// both the user record and the token are present.
type Session struct {
	User  User
	Token Token
}

// AuthAttempt is the transient state of one in-flight OAuth round trip.
// An attempt older than its validity window must be discarded, never exchanged.
type AuthAttempt struct {
	Code        string
	InitiatedAt time.Time
}

// Folder is a named container from the storage provider.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Photo is a displayable image reference. PreviewURL is the provider's
// thumbnail link when one was returned, otherwise a URL derived from the id
// that requires the bearer token as a request header at fetch time.
type Photo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MIMEType   string `json:"mimeType"`
	PreviewURL string `json:"previewUrl"`
	Size       int64  `json:"size"`
}

// Preferences holds the user-tunable slideshow settings. Every field is
// persisted independently in the store so a single toggle never rewrites
// the rest.
type Preferences struct {
	RootFolderURL     string   `json:"rootFolderUrl"`
	SelectedFolderIDs []string `json:"selectedFolderIds"`
	ShowClock         bool     `json:"showClock"`
	ShowPhotoInfo     bool     `json:"showPhotoInfo"`
	Shuffle           bool     `json:"shuffle"`
	OverlayOpacity    float64  `json:"overlayOpacity"`
	IntervalSeconds   int      `json:"intervalSeconds"`
}
