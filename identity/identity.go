// Package identity adapts the external identity provider: it verifies ID
// tokens and publishes "current identity changed" events.
package identity

// Identity is a signed-in user. A nil *Identity means nobody is signed in.
type Identity struct {
	UserID      string `json:"uid"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// Same reports whether a and b refer to the same user. Two nil identities are the same.
func Same(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UserID == b.UserID
}
