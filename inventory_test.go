package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func testInfra(id, name string) Infrastructure {
	return Infrastructure{ID: id, Name: name, LifecycleState: "ACTIVE", Shape: "ExadataCC.X9M"}
}

func testCluster(id, name, infraID string) VMCluster {
	return VMCluster{ID: id, Name: name, InfrastructureID: infraID, LifecycleState: "AVAILABLE"}
}

func TestFetchInfrastructureDetail(t *testing.T) {
	db := &fakeDatabase{
		infraDetails: map[string]Infrastructure{"i1": testInfra("i1", "exa1")},
		ocpus:        map[string]*OcpuUsage{"i1": {TotalCount: 100, ConsumedCount: 42}},
		unallocated:  map[string]*UnallocatedResources{"i1": {Ocpus: 58, MemoryGBs: 512}},
	}

	report, err := fetchInfrastructureDetail(context.Background(), db, "i1")
	if err != nil {
		t.Fatalf("fetchInfrastructureDetail failed: %v", err)
	}
	if report.Infrastructure.Name != "exa1" {
		t.Errorf("wrong base record: %+v", report.Infrastructure)
	}
	if report.OcpuUsage == nil || report.OcpuUsage.ConsumedCount != 42 {
		t.Errorf("missing OCPU usage: %+v", report.OcpuUsage)
	}
	if report.Unallocated == nil || report.Unallocated.Ocpus != 58 {
		t.Errorf("missing unallocated resources: %+v", report.Unallocated)
	}
	if report.VMClusters == nil {
		t.Error("VMClusters must be initialized")
	}
}

func TestFetchInfrastructureDetailOptionalFailures(t *testing.T) {
	db := &fakeDatabase{
		infraDetails: map[string]Infrastructure{"i1": testInfra("i1", "exa1")},
		failures: map[string]error{
			"ocpus:i1":       errors.New("not supported on this shape"),
			"unallocated:i1": errors.New("internal error"),
		},
	}

	report, err := fetchInfrastructureDetail(context.Background(), db, "i1")
	if err != nil {
		t.Fatalf("optional failures must not fail the fetch: %v", err)
	}
	if report.OcpuUsage != nil {
		t.Errorf("OcpuUsage should be nil after fetch failure, got %+v", report.OcpuUsage)
	}
	if report.Unallocated != nil {
		t.Errorf("Unallocated should be nil after fetch failure, got %+v", report.Unallocated)
	}
}

func TestFetchInfrastructureDetailMandatoryFailure(t *testing.T) {
	db := &fakeDatabase{
		failures: map[string]error{"get-infra:i1": errors.New("404")},
	}

	_, err := fetchInfrastructureDetail(context.Background(), db, "i1")
	if err == nil {
		t.Fatal("expected error for failed base fetch")
	}
	if !strings.Contains(err.Error(), "i1") {
		t.Errorf("error should name the resource: %v", err)
	}
}

func TestFetchVMClusterDetail(t *testing.T) {
	db := &fakeDatabase{
		clusterDetails: map[string]VMCluster{"v1": testCluster("v1", "cl1", "i1")},
		iorm:           map[string]*IormConfig{"v1": {LifecycleState: "ENABLED", Objective: "AUTO"}},
		patches: map[string][]PatchInfo{"v1": {
			{ID: "p1"}, {ID: "p2"},
		}},
	}

	report, err := fetchVMClusterDetail(context.Background(), db, "v1")
	if err != nil {
		t.Fatalf("fetchVMClusterDetail failed: %v", err)
	}
	if report.Name != "cl1" {
		t.Errorf("wrong base record: %+v", report.VMCluster)
	}
	if report.IormConfig == nil || report.IormConfig.Objective != "AUTO" {
		t.Errorf("missing IORM config: %+v", report.IormConfig)
	}
	if len(report.Patches) != 2 {
		t.Errorf("got %d patches, want 2", len(report.Patches))
	}
}

func TestFetchVMClusterDetailPatchTruncation(t *testing.T) {
	var history []PatchInfo
	for i := 0; i < 9; i++ {
		history = append(history, PatchInfo{ID: fmt.Sprintf("p%d", i)})
	}
	db := &fakeDatabase{
		clusterDetails: map[string]VMCluster{"v1": testCluster("v1", "cl1", "i1")},
		patches:        map[string][]PatchInfo{"v1": history},
	}

	report, err := fetchVMClusterDetail(context.Background(), db, "v1")
	if err != nil {
		t.Fatalf("fetchVMClusterDetail failed: %v", err)
	}
	if len(report.Patches) != maxPatchHistory {
		t.Fatalf("got %d patches, want %d", len(report.Patches), maxPatchHistory)
	}
	// The first entries in provider order are kept.
	if report.Patches[0].ID != "p0" || report.Patches[maxPatchHistory-1].ID != "p4" {
		t.Errorf("wrong patches kept: %+v", report.Patches)
	}
}

func TestFetchVMClusterDetailOptionalFailures(t *testing.T) {
	db := &fakeDatabase{
		clusterDetails: map[string]VMCluster{"v1": testCluster("v1", "cl1", "i1")},
		failures: map[string]error{
			"iorm:v1":    errors.New("not reachable"),
			"patches:v1": errors.New("throttled"),
		},
	}

	report, err := fetchVMClusterDetail(context.Background(), db, "v1")
	if err != nil {
		t.Fatalf("optional failures must not fail the fetch: %v", err)
	}
	if report.IormConfig != nil {
		t.Errorf("IormConfig should be nil after fetch failure, got %+v", report.IormConfig)
	}
	if report.Patches == nil || len(report.Patches) != 0 {
		t.Errorf("Patches should stay empty but non-nil, got %+v", report.Patches)
	}
}

func TestListInfrastructuresSorted(t *testing.T) {
	db := &fakeDatabase{
		infras: map[string][]Infrastructure{
			"c1": {testInfra("i2", "beta"), testInfra("i1", "alpha")},
		},
	}

	got, err := listInfrastructures(context.Background(), db, "c1")
	if err != nil {
		t.Fatalf("listInfrastructures failed: %v", err)
	}
	if len(got) != 2 || got[0].Name != "alpha" || got[1].Name != "beta" {
		t.Errorf("infrastructures not sorted by name: %v", got)
	}
}

func TestListVMClustersEmpty(t *testing.T) {
	db := &fakeDatabase{}

	got, err := listVMClusters(context.Background(), db, "c1", "i1")
	if err != nil {
		t.Fatalf("empty listing must not fail: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d clusters, want 0", len(got))
	}
}
