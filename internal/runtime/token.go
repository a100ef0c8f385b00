package runtime

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// TokenSource provides bearer tokens for runtime calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// DefaultTokenSource builds a token source from application default
// credentials with the cloud-platform scope.
func DefaultTokenSource(ctx context.Context) (TokenSource, error) {
	ts, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("failed to load application default credentials: %w", err)
	}
	return &googleTokenSource{ts: ts}, nil
}

type googleTokenSource struct {
	ts oauth2.TokenSource
}

func (g *googleTokenSource) Token(_ context.Context) (string, error) {
	tok, err := g.ts.Token()
	if err != nil {
		return "", fmt.Errorf("failed to fetch access token: %w", err)
	}
	return tok.AccessToken, nil
}

// StaticTokenSource returns the same token on every call. Tests use it.
type StaticTokenSource string

// Token returns the fixed token.
func (s StaticTokenSource) Token(_ context.Context) (string, error) {
	return string(s), nil
}
