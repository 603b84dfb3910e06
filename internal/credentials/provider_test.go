package credentials

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestStatic(t *testing.T) {
	p := Static("fixed-token")

	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixed-token", tok)

	// Invalidate is a no-op for a fixed token.
	p.Invalidate()
	tok, err = p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixed-token", tok)
}

func TestGoogle_TokenFromSource(t *testing.T) {
	g := &Google{
		scopes: []string{CloudDNSScope},
		source: oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: "source-token",
			Expiry:      time.Now().Add(time.Hour),
		}),
	}

	tok, err := g.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "source-token", tok)
}

func TestGoogle_InvalidateDropsSource(t *testing.T) {
	g := &Google{
		scopes: []string{CloudDNSScope},
		source: oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: "source-token",
			Expiry:      time.Now().Add(time.Hour),
		}),
	}

	g.Invalidate()

	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Nil(t, g.source, "Invalidate must drop the cached token source")
}
