package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
)

func TestMain(m *testing.M) {
	logger = NewLogger(LogLevelSilent)
	os.Exit(m.Run())
}

// fakeIdentity serves a canned tenancy and compartment listing, split into
// pages to exercise cursor handling.
type fakeIdentity struct {
	tenancy    Compartment
	tenancyErr error
	pages      [][]Compartment
	listErr    error
}

func (f *fakeIdentity) Tenancy(ctx context.Context, tenancyID string) (Compartment, error) {
	if f.tenancyErr != nil {
		return Compartment{}, f.tenancyErr
	}
	return f.tenancy, nil
}

func (f *fakeIdentity) CompartmentsPage(ctx context.Context, rootID string, page *string) ([]Compartment, *string, error) {
	if f.listErr != nil {
		return nil, nil, f.listErr
	}
	return pageOf(f.pages, page)
}

// fakeDatabase serves canned Exadata records keyed by the parent resource.
// failures injects an error for a single operation/id pair, keyed
// "op:id" with ops list-infras, get-infra, ocpus, unallocated,
// list-clusters, get-cluster, iorm and patches.
type fakeDatabase struct {
	infras         map[string][]Infrastructure
	infraDetails   map[string]Infrastructure
	ocpus          map[string]*OcpuUsage
	unallocated    map[string]*UnallocatedResources
	clusters       map[string][]VMCluster
	clusterDetails map[string]VMCluster
	iorm           map[string]*IormConfig
	patches        map[string][]PatchInfo
	failures       map[string]error
}

func (f *fakeDatabase) fail(op, id string) error {
	if f.failures == nil {
		return nil
	}
	return f.failures[op+":"+id]
}

func (f *fakeDatabase) InfrastructuresPage(ctx context.Context, compartmentID string, page *string) ([]Infrastructure, *string, error) {
	if err := f.fail("list-infras", compartmentID); err != nil {
		return nil, nil, err
	}
	return f.infras[compartmentID], nil, nil
}

func (f *fakeDatabase) Infrastructure(ctx context.Context, id string) (Infrastructure, error) {
	if err := f.fail("get-infra", id); err != nil {
		return Infrastructure{}, err
	}
	infra, ok := f.infraDetails[id]
	if !ok {
		return Infrastructure{}, fmt.Errorf("no such infrastructure: %s", id)
	}
	return infra, nil
}

func (f *fakeDatabase) InfrastructureOcpus(ctx context.Context, id string) (*OcpuUsage, error) {
	if err := f.fail("ocpus", id); err != nil {
		return nil, err
	}
	return f.ocpus[id], nil
}

func (f *fakeDatabase) InfrastructureUnallocated(ctx context.Context, id string) (*UnallocatedResources, error) {
	if err := f.fail("unallocated", id); err != nil {
		return nil, err
	}
	return f.unallocated[id], nil
}

func (f *fakeDatabase) VMClustersPage(ctx context.Context, compartmentID, infraID string, page *string) ([]VMCluster, *string, error) {
	if err := f.fail("list-clusters", infraID); err != nil {
		return nil, nil, err
	}
	return f.clusters[infraID], nil, nil
}

func (f *fakeDatabase) VMCluster(ctx context.Context, id string) (VMCluster, error) {
	if err := f.fail("get-cluster", id); err != nil {
		return VMCluster{}, err
	}
	cluster, ok := f.clusterDetails[id]
	if !ok {
		return VMCluster{}, fmt.Errorf("no such VM cluster: %s", id)
	}
	return cluster, nil
}

func (f *fakeDatabase) VMClusterIormConfig(ctx context.Context, id string) (*IormConfig, error) {
	if err := f.fail("iorm", id); err != nil {
		return nil, err
	}
	return f.iorm[id], nil
}

func (f *fakeDatabase) VMClusterPatchesPage(ctx context.Context, clusterID string, page *string) ([]PatchInfo, *string, error) {
	if err := f.fail("patches", clusterID); err != nil {
		return nil, nil, err
	}
	return f.patches[clusterID], nil, nil
}

// pageOf serves pre-split pages using the slice index as the cursor.
func pageOf[T any](pages [][]T, page *string) ([]T, *string, error) {
	idx := 0
	if page != nil {
		var err error
		idx, err = strconv.Atoi(*page)
		if err != nil {
			return nil, nil, err
		}
	}
	if idx >= len(pages) {
		return nil, nil, nil
	}
	if idx == len(pages)-1 {
		return pages[idx], nil, nil
	}
	next := strconv.Itoa(idx + 1)
	return pages[idx], &next, nil
}
