package credentials

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// CloudDNSScope is the OAuth scope required for record changes.
const CloudDNSScope = "https://www.googleapis.com/auth/ndev.clouddns.readwrite"

// Provider supplies bearer tokens on demand. Implementations cache tokens
// internally; Invalidate drops any cached state so the next Token call mints
// a fresh one. The store client calls Invalidate after an authentication
// failure and retries the request once.
type Provider interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// Google provides tokens from Application Default Credentials (service
// account key or metadata server, whichever the environment offers).
type Google struct {
	mu     sync.Mutex
	scopes []string
	source oauth2.TokenSource
}

// NewGoogle resolves Application Default Credentials for the Cloud DNS
// scope. Failure here means the environment has no usable credentials at
// all, which is fatal at startup.
func NewGoogle(ctx context.Context) (*Google, error) {
	g := &Google{scopes: []string{CloudDNSScope}}
	source, err := google.DefaultTokenSource(ctx, g.scopes...)
	if err != nil {
		return nil, fmt.Errorf("resolving application default credentials: %w", err)
	}
	g.source = source
	return g, nil
}

// Token returns a valid bearer token, refreshing through the underlying
// token source as needed.
func (g *Google) Token(ctx context.Context) (string, error) {
	g.mu.Lock()
	source := g.source
	g.mu.Unlock()

	if source == nil {
		fresh, err := google.DefaultTokenSource(ctx, g.scopes...)
		if err != nil {
			return "", fmt.Errorf("re-resolving application default credentials: %w", err)
		}
		g.mu.Lock()
		g.source = fresh
		g.mu.Unlock()
		source = fresh
	}

	tok, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("fetching bearer token: %w", err)
	}
	return tok.AccessToken, nil
}

// Invalidate discards the cached token source. The next Token call rebuilds
// it, which forces a fresh token even if the old one had not yet expired
// locally.
func (g *Google) Invalidate() {
	g.mu.Lock()
	g.source = nil
	g.mu.Unlock()
}

// Static is a fixed-token Provider for tests and local development.
type Static string

func (s Static) Token(context.Context) (string, error) { return string(s), nil }

func (s Static) Invalidate() {}
