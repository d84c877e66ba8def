package main

import (
	"context"
	"fmt"
)

const lifecycleActive = "ACTIVE"

// IdentitySource provides the compartment hierarchy of a tenancy.
type IdentitySource interface {
	// Tenancy fetches the tenancy record itself, which doubles as the
	// root compartment of the hierarchy.
	Tenancy(ctx context.Context, tenancyID string) (Compartment, error)

	// CompartmentsPage returns one page of compartments in the subtree
	// below rootID, with the continuation token for the next page.
	CompartmentsPage(ctx context.Context, rootID string, page *string) ([]Compartment, *string, error)
}

// discoverCompartments returns every ACTIVE compartment the caller can
// access in the tenancy, root included, sorted by name. The root tenancy
// is not part of the subtree listing so it is fetched separately and
// always treated as active.
func discoverCompartments(ctx context.Context, src IdentitySource, tenancyID string) ([]Compartment, error) {
	root, err := src.Tenancy(ctx, tenancyID)
	if err != nil {
		return nil, fmt.Errorf("fetching tenancy %s: %w", tenancyID, err)
	}
	root.LifecycleState = lifecycleActive
	root.IsRoot = true

	listed, err := listPages(ctx, "compartments", func(ctx context.Context, page *string) ([]Compartment, *string, error) {
		return src.CompartmentsPage(ctx, tenancyID, page)
	})
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{root.ID: true}
	compartments := []Compartment{root}
	for _, c := range listed {
		if c.LifecycleState != lifecycleActive {
			logger.Debug("Skipping compartment %s (state %s)", c.Name, c.LifecycleState)
			continue
		}
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		compartments = append(compartments, c)
	}

	sortByDisplayName(compartments, func(c Compartment) (string, string) {
		return c.Name, c.ID
	})

	logger.Info("Found %d accessible compartments", len(compartments))
	return compartments, nil
}
