// Package secrets resolves credentials from Google Secret Manager.
package secrets

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/option"
	secretmanager "google.golang.org/api/secretmanager/v1"
)

// Provider resolves named secrets.
type Provider interface {
	Access(ctx context.Context, name string) (string, error)
}

// Manager reads secrets from Google Secret Manager using application
// default credentials.
type Manager struct {
	project string
	svc     *secretmanager.Service
}

// NewManager creates a Secret Manager provider for the given project.
// Extra client options are used by tests to point at a fake endpoint.
func NewManager(ctx context.Context, project string, opts ...option.ClientOption) (*Manager, error) {
	if project == "" {
		return nil, fmt.Errorf("secret manager requires a project id")
	}

	svc, err := secretmanager.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager service: %w", err)
	}

	return &Manager{project: project, svc: svc}, nil
}

// Access returns the latest version of the named secret.
func (m *Manager) Access(ctx context.Context, name string) (string, error) {
	resource := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", m.project, name)

	resp, err := m.svc.Projects.Secrets.Versions.Access(resource).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to access secret %q: %w", name, err)
	}
	if resp.Payload == nil {
		return "", fmt.Errorf("secret %q has no payload", name)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Payload.Data)
	if err != nil {
		return "", fmt.Errorf("failed to decode secret %q: %w", name, err)
	}
	return string(data), nil
}

// Static serves secrets from a fixed map. Tests and environment-only
// deployments use it in place of Secret Manager.
type Static map[string]string

// Access returns the named entry.
func (s Static) Access(_ context.Context, name string) (string, error) {
	v, ok := s[name]
	if !ok {
		return "", fmt.Errorf("unknown secret %q", name)
	}
	return v, nil
}

// Resolve returns a credential: the literal value when set, otherwise the
// named secret from the provider.
func Resolve(ctx context.Context, p Provider, literal, secretName string) (string, error) {
	if literal != "" {
		return literal, nil
	}
	if p == nil {
		return "", fmt.Errorf("no credential configured and no secret provider available")
	}
	return p.Access(ctx, secretName)
}
