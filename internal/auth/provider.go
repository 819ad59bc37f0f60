package auth

import "context"

// Provider resolves the signed-in user for the feed screen. Sign-in itself
// happens elsewhere; the engine only needs to know who, if anyone, is acting.
type Provider interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

// StaticProvider is a Provider pinned to one user, used by the headless
// harness and by tests. An empty id means signed out.
type StaticProvider struct {
	userID string
}

// NewStaticProvider constructs a provider for the given user id.
func NewStaticProvider(userID string) *StaticProvider {
	return &StaticProvider{userID: userID}
}

// CurrentUserID returns the pinned user id.
func (p *StaticProvider) CurrentUserID(context.Context) (string, bool) {
	return p.userID, p.userID != ""
}
