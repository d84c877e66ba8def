package main

import (
	"context"
	"fmt"
)

// maxPatchHistory bounds how much patch history is kept per VM cluster.
const maxPatchHistory = 5

// DatabaseSource provides Exadata infrastructure and VM cluster records.
// List operations return one page at a time, detail operations returning a
// pointer report optional data whose absence is tolerated.
type DatabaseSource interface {
	InfrastructuresPage(ctx context.Context, compartmentID string, page *string) ([]Infrastructure, *string, error)
	Infrastructure(ctx context.Context, id string) (Infrastructure, error)
	InfrastructureOcpus(ctx context.Context, id string) (*OcpuUsage, error)
	InfrastructureUnallocated(ctx context.Context, id string) (*UnallocatedResources, error)

	VMClustersPage(ctx context.Context, compartmentID, infraID string, page *string) ([]VMCluster, *string, error)
	VMCluster(ctx context.Context, id string) (VMCluster, error)
	VMClusterIormConfig(ctx context.Context, id string) (*IormConfig, error)
	VMClusterPatchesPage(ctx context.Context, clusterID string, page *string) ([]PatchInfo, *string, error)
}

func listInfrastructures(ctx context.Context, db DatabaseSource, compartmentID string) ([]Infrastructure, error) {
	infras, err := listPages(ctx, "Exadata infrastructures", func(ctx context.Context, page *string) ([]Infrastructure, *string, error) {
		return db.InfrastructuresPage(ctx, compartmentID, page)
	})
	if err != nil {
		return nil, err
	}
	sortByDisplayName(infras, func(i Infrastructure) (string, string) {
		return i.Name, i.ID
	})
	return infras, nil
}

func listVMClusters(ctx context.Context, db DatabaseSource, compartmentID, infraID string) ([]VMCluster, error) {
	clusters, err := listPages(ctx, "VM clusters", func(ctx context.Context, page *string) ([]VMCluster, *string, error) {
		return db.VMClustersPage(ctx, compartmentID, infraID, page)
	})
	if err != nil {
		return nil, err
	}
	sortByDisplayName(clusters, func(c VMCluster) (string, string) {
		return c.Name, c.ID
	})
	return clusters, nil
}

// fetchInfrastructureDetail assembles the full record for one
// infrastructure. The base record is mandatory, OCPU usage and unallocated
// resources are best effort and stay nil when their fetch fails.
func fetchInfrastructureDetail(ctx context.Context, db DatabaseSource, infraID string) (*InfrastructureReport, error) {
	infra, err := db.Infrastructure(ctx, infraID)
	if err != nil {
		return nil, fmt.Errorf("fetching infrastructure %s: %w", infraID, err)
	}

	report := &InfrastructureReport{
		Infrastructure: infra,
		VMClusters:     []VMClusterReport{},
	}

	ocpus, err := db.InfrastructureOcpus(ctx, infraID)
	if err != nil {
		logger.Verbose("OCPU usage unavailable for %s: %v", infra.Name, err)
	} else {
		report.OcpuUsage = ocpus
	}

	unallocated, err := db.InfrastructureUnallocated(ctx, infraID)
	if err != nil {
		logger.Verbose("Unallocated resources unavailable for %s: %v", infra.Name, err)
	} else {
		report.Unallocated = unallocated
	}

	return report, nil
}

// fetchVMClusterDetail assembles the full record for one VM cluster. IORM
// configuration and patch history are best effort.
func fetchVMClusterDetail(ctx context.Context, db DatabaseSource, clusterID string) (*VMClusterReport, error) {
	cluster, err := db.VMCluster(ctx, clusterID)
	if err != nil {
		return nil, fmt.Errorf("fetching VM cluster %s: %w", clusterID, err)
	}

	report := &VMClusterReport{
		VMCluster: cluster,
		Patches:   []PatchInfo{},
	}

	iorm, err := db.VMClusterIormConfig(ctx, clusterID)
	if err != nil {
		logger.Verbose("IORM config unavailable for %s: %v", cluster.Name, err)
	} else {
		report.IormConfig = iorm
	}

	patches, err := listPages(ctx, "VM cluster patches", func(ctx context.Context, page *string) ([]PatchInfo, *string, error) {
		return db.VMClusterPatchesPage(ctx, clusterID, page)
	})
	if err != nil {
		logger.Verbose("Patch history unavailable for %s: %v", cluster.Name, err)
	} else {
		if len(patches) > maxPatchHistory {
			patches = patches[:maxPatchHistory]
		}
		report.Patches = patches
	}

	return report, nil
}
