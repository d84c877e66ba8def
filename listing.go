package main

import (
	"context"
	"fmt"
	"sort"
)

// pageFunc fetches one page of a listing. The returned cursor points at the
// next page, or is nil when the listing is exhausted. A zero-length page with
// a non-nil cursor is legal.
type pageFunc[T any] func(ctx context.Context, page *string) ([]T, *string, error)

// listPages drains a paginated listing by following the continuation cursor
// until the provider stops returning one. Listing is all-or-nothing per
// scope: any page error aborts the whole listing and propagates, so callers
// never see a silently truncated result.
func listPages[T any](ctx context.Context, scope string, fetch pageFunc[T]) ([]T, error) {
	var all []T
	var page *string
	for pageCount := 1; ; pageCount++ {
		logger.Debug("Fetching page %d of %s", pageCount, scope)
		items, next, err := fetch(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("listing %s (page %d): %w", scope, pageCount, err)
		}
		all = append(all, items...)
		if next == nil {
			return all, nil
		}
		page = next
	}
}

// sortByDisplayName orders items by display name ascending (byte order),
// with the identifier as tie-break. The provider is asked for this order
// too, but enforcing it locally keeps the report deterministic even when a
// source does not honor the sort request.
func sortByDisplayName[T any](items []T, key func(T) (name, id string)) {
	sort.Slice(items, func(i, j int) bool {
		ni, ii := key(items[i])
		nj, ij := key(items[j])
		if ni != nj {
			return ni < nj
		}
		return ii < ij
	})
}
