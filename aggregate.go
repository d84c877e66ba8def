package main

import (
	"context"
	"fmt"
	"sync"
)

// ProgressObserver receives traversal milestones. Implementations must be
// safe for concurrent use.
type ProgressObserver interface {
	CompartmentsDiscovered(n int)
	CompartmentStarted(name string)
	CompartmentSkipped(name string)
	CompartmentFinished(name string)
	InfrastructureFound(compartment, name string)
}

type nopObserver struct{}

func (nopObserver) CompartmentsDiscovered(int)      {}
func (nopObserver) CompartmentStarted(string)       {}
func (nopObserver) CompartmentSkipped(string)       {}
func (nopObserver) CompartmentFinished(string)      {}
func (nopObserver) InfrastructureFound(_, _ string) {}

// Aggregator walks the tenancy and assembles the inventory report.
type Aggregator struct {
	identity  IdentitySource
	db        DatabaseSource
	tenancyID string
	workers   int
	observer  ProgressObserver
	filters   FilterConfig
}

func NewAggregator(clients *Clients, workers int, observer ProgressObserver, filters FilterConfig) *Aggregator {
	if workers <= 0 {
		workers = 5
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Aggregator{
		identity:  clients.Identity,
		db:        clients.Database,
		tenancyID: clients.TenancyID,
		workers:   workers,
		observer:  observer,
		filters:   filters,
	}
}

// Run discovers compartments and scans them concurrently. Compartments are
// processed by a bounded worker pool, but results are merged in discovery
// order so the report is deterministic. The first fatal error cancels the
// remaining work and fails the whole run.
func (a *Aggregator) Run(ctx context.Context) (*Report, Totals, error) {
	var totals Totals

	compartments, err := discoverCompartments(ctx, a.identity, a.tenancyID)
	if err != nil {
		return nil, totals, err
	}
	compartments = applyCompartmentFilter(compartments, a.filters)

	a.observer.CompartmentsDiscovered(len(compartments))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*CompartmentReport, len(compartments))
	sem := make(chan struct{}, a.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for i, compartment := range compartments {
		wg.Add(1)
		go func(i int, compartment Compartment) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				fail(ctx.Err())
				return
			}

			report, err := a.scanCompartment(ctx, compartment)
			if err != nil {
				fail(err)
				return
			}
			results[i] = report
			a.observer.CompartmentFinished(compartment.Name)
		}(i, compartment)
	}
	wg.Wait()

	// A worker that finished cleanly after the context died still means an
	// incomplete traversal.
	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		return nil, Totals{}, firstErr
	}

	report := &Report{
		TenancyID:    a.tenancyID,
		Compartments: []CompartmentReport{},
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		report.Compartments = append(report.Compartments, *r)
		totals.Infrastructures += len(r.Infrastructures)
		for _, infra := range r.Infrastructures {
			totals.VMClusters += len(infra.VMClusters)
		}
	}

	logger.Info("Found %d Exadata infrastructures and %d VM clusters", totals.Infrastructures, totals.VMClusters)
	return report, totals, nil
}

// scanCompartment returns nil without error when the compartment holds no
// Exadata infrastructure, so empty compartments stay out of the report.
func (a *Aggregator) scanCompartment(ctx context.Context, compartment Compartment) (*CompartmentReport, error) {
	a.observer.CompartmentStarted(compartment.Name)

	infras, err := listInfrastructures(ctx, a.db, compartment.ID)
	if err != nil {
		return nil, fmt.Errorf("compartment %s: %w", compartment.Name, err)
	}
	if len(infras) == 0 {
		a.observer.CompartmentSkipped(compartment.Name)
		return nil, nil
	}

	report := &CompartmentReport{
		CompartmentID:   compartment.ID,
		CompartmentName: compartment.Name,
		Infrastructures: []InfrastructureReport{},
	}

	for _, infra := range infras {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a.observer.InfrastructureFound(compartment.Name, infra.Name)

		infraReport, err := fetchInfrastructureDetail(ctx, a.db, infra.ID)
		if err != nil {
			return nil, fmt.Errorf("compartment %s: %w", compartment.Name, err)
		}

		clusters, err := listVMClusters(ctx, a.db, compartment.ID, infra.ID)
		if err != nil {
			return nil, fmt.Errorf("compartment %s: %w", compartment.Name, err)
		}
		for _, cluster := range clusters {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			clusterReport, err := fetchVMClusterDetail(ctx, a.db, cluster.ID)
			if err != nil {
				return nil, fmt.Errorf("compartment %s: %w", compartment.Name, err)
			}
			infraReport.VMClusters = append(infraReport.VMClusters, *clusterReport)
		}

		report.Infrastructures = append(report.Infrastructures, *infraReport)
	}

	return report, nil
}
