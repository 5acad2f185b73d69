package llm

import (
	"context"

	"knowthepast/pkg/model"
)

// Provider defines the interface for interacting with generative model services.
type Provider interface {
	// GenerateJSON sends a prompt constrained by schema and unmarshals the response into target.
	GenerateJSON(ctx context.Context, name, prompt string, schema *Schema, target any) error

	// GenerateImage sends a prompt to the image model and returns the first inline image.
	GenerateImage(ctx context.Context, name, prompt string) (model.Image, error)

	// HealthCheck verifies that the provider is configured and reachable.
	HealthCheck(ctx context.Context) error

	// HasProfile checks if the provider has a specific profile configured.
	HasProfile(name string) bool
}
