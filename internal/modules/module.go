// Package modules defines the audit module contract and the registry
// audit commands draw from. Each module collects one slice of tenant
// posture and returns it as a plain JSON-shaped payload keyed under
// the module's ID in the evaluation root.
package modules

import "context"

// GraphAPI is the slice of the Graph client a module is allowed to
// use. Modules read; they never mutate the tenant.
type GraphAPI interface {
	Get(ctx context.Context, path string) (map[string]any, error)
	GetAll(ctx context.Context, path string) ([]map[string]any, error)
}

// Module collects audit data for one concern.
type Module interface {
	ID() string
	Title() string
	Description() string

	// Provider names the cloud this module audits ("entra", "aws",
	// "gcp"). Rule packs and module selection are scoped by it.
	Provider() string

	// Run fetches and summarizes the module's data. The returned
	// payload must be JSON-shaped: maps, slices, scalars.
	Run(ctx context.Context, api GraphAPI) (map[string]any, error)
}
