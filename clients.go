package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/database"
	"github.com/oracle/oci-go-sdk/v65/identity"
	"github.com/sony/gobreaker"
)

const maxServiceRetries = 3

// Clients bundles the provider session handed to the traversal. The core
// only ever sees the two source interfaces, never the SDK clients.
type Clients struct {
	TenancyID string
	Identity  IdentitySource
	Database  DatabaseSource
}

// initClients builds the OCI session from a config-file profile and wraps
// the service clients into provider-agnostic sources. Configuration problems
// surface here, before any traversal starts.
func initClients(ctx context.Context, auth AuthConfig) (*Clients, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	profile := auth.Profile
	if profile == "" {
		profile = "DEFAULT"
	}
	provider := common.CustomProfileConfigProvider(auth.ConfigFile, profile)

	tenancyID, err := provider.TenancyOCID()
	if err != nil {
		return nil, fmt.Errorf("invalid OCI configuration (profile %s): %w", profile, err)
	}

	identityClient, err := identity.NewIdentityClientWithConfigurationProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity client: %w", err)
	}

	databaseClient, err := database.NewDatabaseClientWithConfigurationProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create database client: %w", err)
	}

	return &Clients{
		TenancyID: tenancyID,
		Identity:  &ociIdentitySource{client: identityClient, breaker: newServiceBreaker("identity")},
		Database:  &ociDatabaseSource{client: databaseClient, breaker: newServiceBreaker("database")},
	}, nil
}

func newServiceBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
}

// isTransientError checks if the error is transient and should be retried
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// withRetry executes an operation, retrying transient failures with
// exponential backoff and jitter (capped at 30s per wait).
func withRetry(ctx context.Context, operation func() error, maxRetries int, operationName string) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		if !isTransientError(err) {
			return err
		}

		if attempt == maxRetries {
			return fmt.Errorf("operation '%s' failed after %d attempts: %w", operationName, maxRetries+1, err)
		}

		backoff := time.Duration(math.Min(math.Pow(2, float64(attempt)), 30)) * time.Second
		jitter := time.Duration(float64(backoff) * 0.1 * (2*rand.Float64() - 1))
		sleepTime := backoff + jitter
		if sleepTime < 0 {
			sleepTime = backoff
		}

		logger.Verbose("Retrying %s in %v (attempt %d/%d): %v", operationName, sleepTime, attempt+1, maxRetries+1, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepTime):
		}
	}
	return nil
}

// invoke runs one service call through the circuit breaker and the
// transient-error retry loop.
func invoke(ctx context.Context, breaker *gobreaker.CircuitBreaker, operationName string, call func() error) error {
	return withRetry(ctx, func() error {
		_, err := breaker.Execute(func() (interface{}, error) {
			return nil, call()
		})
		return err
	}, maxServiceRetries, operationName)
}

// ociIdentitySource adapts the OCI identity client to IdentitySource.
type ociIdentitySource struct {
	client  identity.IdentityClient
	breaker *gobreaker.CircuitBreaker
}

func (s *ociIdentitySource) Tenancy(ctx context.Context, tenancyID string) (Compartment, error) {
	var resp identity.GetTenancyResponse
	err := invoke(ctx, s.breaker, "GetTenancy", func() error {
		var err error
		resp, err = s.client.GetTenancy(ctx, identity.GetTenancyRequest{
			TenancyId: common.String(tenancyID),
		})
		return err
	})
	if err != nil {
		return Compartment{}, err
	}

	return Compartment{
		ID:   deref(resp.Id),
		Name: deref(resp.Name),
	}, nil
}

func (s *ociIdentitySource) CompartmentsPage(ctx context.Context, rootID string, page *string) ([]Compartment, *string, error) {
	req := identity.ListCompartmentsRequest{
		CompartmentId:          common.String(rootID),
		CompartmentIdInSubtree: common.Bool(true),
		AccessLevel:            identity.ListCompartmentsAccessLevelAccessible,
		SortBy:                 identity.ListCompartmentsSortByName,
		SortOrder:              identity.ListCompartmentsSortOrderAsc,
		Page:                   page,
	}

	var resp identity.ListCompartmentsResponse
	err := invoke(ctx, s.breaker, "ListCompartments", func() error {
		var err error
		resp, err = s.client.ListCompartments(ctx, req)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	compartments := make([]Compartment, 0, len(resp.Items))
	for _, item := range resp.Items {
		compartments = append(compartments, Compartment{
			ID:             deref(item.Id),
			Name:           deref(item.Name),
			LifecycleState: string(item.LifecycleState),
		})
	}
	return compartments, resp.OpcNextPage, nil
}

// ociDatabaseSource adapts the OCI database client to DatabaseSource.
type ociDatabaseSource struct {
	client  database.DatabaseClient
	breaker *gobreaker.CircuitBreaker
}

func (s *ociDatabaseSource) InfrastructuresPage(ctx context.Context, compartmentID string, page *string) ([]Infrastructure, *string, error) {
	req := database.ListExadataInfrastructuresRequest{
		CompartmentId: common.String(compartmentID),
		SortBy:        database.ListExadataInfrastructuresSortByDisplayname,
		SortOrder:     database.ListExadataInfrastructuresSortOrderAsc,
		Page:          page,
	}

	var resp database.ListExadataInfrastructuresResponse
	err := invoke(ctx, s.breaker, "ListExadataInfrastructures", func() error {
		var err error
		resp, err = s.client.ListExadataInfrastructures(ctx, req)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	infras := make([]Infrastructure, 0, len(resp.Items))
	for _, item := range resp.Items {
		infras = append(infras, infrastructureFromSummary(item))
	}
	return infras, resp.OpcNextPage, nil
}

func (s *ociDatabaseSource) Infrastructure(ctx context.Context, id string) (Infrastructure, error) {
	var resp database.GetExadataInfrastructureResponse
	err := invoke(ctx, s.breaker, "GetExadataInfrastructure", func() error {
		var err error
		resp, err = s.client.GetExadataInfrastructure(ctx, database.GetExadataInfrastructureRequest{
			ExadataInfrastructureId: common.String(id),
		})
		return err
	})
	if err != nil {
		return Infrastructure{}, err
	}
	return infrastructureFromModel(resp.ExadataInfrastructure), nil
}

// The OCPU usage operation is documented for Autonomous Exadata
// infrastructure; calling it with another infrastructure OCID is rejected
// server-side, which the caller absorbs as an absent record.
func (s *ociDatabaseSource) InfrastructureOcpus(ctx context.Context, id string) (*OcpuUsage, error) {
	var resp database.GetExadataInfrastructureOcpusResponse
	err := invoke(ctx, s.breaker, "GetExadataInfrastructureOcpus", func() error {
		var err error
		resp, err = s.client.GetExadataInfrastructureOcpus(ctx, database.GetExadataInfrastructureOcpusRequest{
			AutonomousExadataInfrastructureId: common.String(id),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return ocpuUsageFromModel(resp.OcpUs), nil
}

func ocpuUsageFromModel(m database.OcpUs) *OcpuUsage {
	return &OcpuUsage{
		TotalCount:    derefFloat32(m.TotalCpu),
		ConsumedCount: derefFloat32(m.ConsumedCpu),
	}
}

func (s *ociDatabaseSource) InfrastructureUnallocated(ctx context.Context, id string) (*UnallocatedResources, error) {
	var resp database.GetExadataInfrastructureUnAllocatedResourcesResponse
	err := invoke(ctx, s.breaker, "GetExadataInfrastructureUnAllocatedResources", func() error {
		var err error
		resp, err = s.client.GetExadataInfrastructureUnAllocatedResources(ctx, database.GetExadataInfrastructureUnAllocatedResourcesRequest{
			ExadataInfrastructureId: common.String(id),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	unallocated := resp.ExadataInfrastructureUnAllocatedResources
	return &UnallocatedResources{
		Ocpus:             derefInt(unallocated.Ocpus),
		MemoryGBs:         derefInt(unallocated.MemoryInGBs),
		ExadataStorageTBs: derefFloat64(unallocated.ExadataStorageInTBs),
		LocalStorageGBs:   derefInt(unallocated.LocalStorageInGbs),
	}, nil
}

func (s *ociDatabaseSource) VMClustersPage(ctx context.Context, compartmentID, infraID string, page *string) ([]VMCluster, *string, error) {
	req := database.ListVmClustersRequest{
		CompartmentId: common.String(compartmentID),
		SortBy:        database.ListVmClustersSortByDisplayname,
		SortOrder:     database.ListVmClustersSortOrderAsc,
		Page:          page,
	}
	if infraID != "" {
		req.ExadataInfrastructureId = common.String(infraID)
	}

	var resp database.ListVmClustersResponse
	err := invoke(ctx, s.breaker, "ListVmClusters", func() error {
		var err error
		resp, err = s.client.ListVmClusters(ctx, req)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	clusters := make([]VMCluster, 0, len(resp.Items))
	for _, item := range resp.Items {
		clusters = append(clusters, vmClusterFromSummary(item))
	}
	return clusters, resp.OpcNextPage, nil
}

func (s *ociDatabaseSource) VMCluster(ctx context.Context, id string) (VMCluster, error) {
	var resp database.GetVmClusterResponse
	err := invoke(ctx, s.breaker, "GetVmCluster", func() error {
		var err error
		resp, err = s.client.GetVmCluster(ctx, database.GetVmClusterRequest{
			VmClusterId: common.String(id),
		})
		return err
	})
	if err != nil {
		return VMCluster{}, err
	}
	return vmClusterFromModel(resp.VmCluster), nil
}

// The database service exposes IORM reads only for cloud VM clusters and
// DB systems; neither accepts a Cloud@Customer VM cluster OCID, so the
// tuning record is always absent from this adapter.
func (s *ociDatabaseSource) VMClusterIormConfig(ctx context.Context, id string) (*IormConfig, error) {
	return nil, nil
}

func (s *ociDatabaseSource) VMClusterPatchesPage(ctx context.Context, clusterID string, page *string) ([]PatchInfo, *string, error) {
	var resp database.ListVmClusterPatchesResponse
	err := invoke(ctx, s.breaker, "ListVmClusterPatches", func() error {
		var err error
		resp, err = s.client.ListVmClusterPatches(ctx, database.ListVmClusterPatchesRequest{
			VmClusterId: common.String(clusterID),
			Page:        page,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	patches := make([]PatchInfo, 0, len(resp.Items))
	for _, item := range resp.Items {
		patches = append(patches, PatchInfo{
			ID:             deref(item.Id),
			Description:    deref(item.Description),
			Version:        deref(item.Version),
			LifecycleState: string(item.LifecycleState),
			TimeReleased:   derefTime(item.TimeReleased),
		})
	}
	return patches, resp.OpcNextPage, nil
}

func infrastructureFromSummary(item database.ExadataInfrastructureSummary) Infrastructure {
	return Infrastructure{
		ID:                    deref(item.Id),
		CompartmentID:         deref(item.CompartmentId),
		Name:                  deref(item.DisplayName),
		LifecycleState:        string(item.LifecycleState),
		Shape:                 deref(item.Shape),
		ComputeCount:          derefInt(item.ComputeCount),
		StorageCount:          derefInt(item.StorageCount),
		CpusEnabled:           derefInt(item.CpusEnabled),
		MaxCpuCount:           derefInt(item.MaxCpuCount),
		MemorySizeGBs:         derefInt(item.MemorySizeInGBs),
		MaxMemoryGBs:          derefInt(item.MaxMemoryInGBs),
		DbNodeStorageGBs:      derefInt(item.DbNodeStorageSizeInGBs),
		DataStorageTBs:        derefFloat64(item.DataStorageSizeInTBs),
		MaxDataStorageTBs:     derefFloat64(item.MaxDataStorageInTBs),
		AdminNetworkCIDR:      deref(item.AdminNetworkCIDR),
		InfiniBandNetworkCIDR: deref(item.InfiniBandNetworkCIDR),
		Gateway:               deref(item.Gateway),
		StorageServerVersion:  deref(item.StorageServerVersion),
		DbServerVersion:       deref(item.DbServerVersion),
		MaintenanceSLOStatus:  string(item.MaintenanceSLOStatus),
		TimeCreated:           derefTime(item.TimeCreated),
	}
}

func infrastructureFromModel(item database.ExadataInfrastructure) Infrastructure {
	return Infrastructure{
		ID:                    deref(item.Id),
		CompartmentID:         deref(item.CompartmentId),
		Name:                  deref(item.DisplayName),
		LifecycleState:        string(item.LifecycleState),
		Shape:                 deref(item.Shape),
		ComputeCount:          derefInt(item.ComputeCount),
		StorageCount:          derefInt(item.StorageCount),
		CpusEnabled:           derefInt(item.CpusEnabled),
		MaxCpuCount:           derefInt(item.MaxCpuCount),
		MemorySizeGBs:         derefInt(item.MemorySizeInGBs),
		MaxMemoryGBs:          derefInt(item.MaxMemoryInGBs),
		DbNodeStorageGBs:      derefInt(item.DbNodeStorageSizeInGBs),
		DataStorageTBs:        derefFloat64(item.DataStorageSizeInTBs),
		MaxDataStorageTBs:     derefFloat64(item.MaxDataStorageInTBs),
		AdminNetworkCIDR:      deref(item.AdminNetworkCIDR),
		InfiniBandNetworkCIDR: deref(item.InfiniBandNetworkCIDR),
		Gateway:               deref(item.Gateway),
		StorageServerVersion:  deref(item.StorageServerVersion),
		DbServerVersion:       deref(item.DbServerVersion),
		MaintenanceSLOStatus:  string(item.MaintenanceSLOStatus),
		TimeCreated:           derefTime(item.TimeCreated),
	}
}

func vmClusterFromSummary(item database.VmClusterSummary) VMCluster {
	return VMCluster{
		ID:                     deref(item.Id),
		CompartmentID:          deref(item.CompartmentId),
		InfrastructureID:       deref(item.ExadataInfrastructureId),
		Name:                   deref(item.DisplayName),
		LifecycleState:         string(item.LifecycleState),
		Shape:                  deref(item.Shape),
		GiVersion:              deref(item.GiVersion),
		SystemVersion:          deref(item.SystemVersion),
		CpusEnabled:            derefInt(item.CpusEnabled),
		OcpusEnabled:           derefFloat32(item.OcpusEnabled),
		MemorySizeGBs:          derefInt(item.MemorySizeInGBs),
		DbNodeStorageGBs:       derefInt(item.DbNodeStorageSizeInGBs),
		DataStorageTBs:         derefFloat64(item.DataStorageSizeInTBs),
		LicenseModel:           string(item.LicenseModel),
		LocalBackupEnabled:     derefBool(item.IsLocalBackupEnabled),
		SparseDiskgroupEnabled: derefBool(item.IsSparseDiskgroupEnabled),
		DbServerCount:          len(item.DbServers),
		TimeCreated:            derefTime(item.TimeCreated),
	}
}

func vmClusterFromModel(item database.VmCluster) VMCluster {
	return VMCluster{
		ID:                     deref(item.Id),
		CompartmentID:          deref(item.CompartmentId),
		InfrastructureID:       deref(item.ExadataInfrastructureId),
		Name:                   deref(item.DisplayName),
		LifecycleState:         string(item.LifecycleState),
		Shape:                  deref(item.Shape),
		GiVersion:              deref(item.GiVersion),
		SystemVersion:          deref(item.SystemVersion),
		CpusEnabled:            derefInt(item.CpusEnabled),
		OcpusEnabled:           derefFloat32(item.OcpusEnabled),
		MemorySizeGBs:          derefInt(item.MemorySizeInGBs),
		DbNodeStorageGBs:       derefInt(item.DbNodeStorageSizeInGBs),
		DataStorageTBs:         derefFloat64(item.DataStorageSizeInTBs),
		LicenseModel:           string(item.LicenseModel),
		LocalBackupEnabled:     derefBool(item.IsLocalBackupEnabled),
		SparseDiskgroupEnabled: derefBool(item.IsSparseDiskgroupEnabled),
		DbServerCount:          len(item.DbServers),
		TimeCreated:            derefTime(item.TimeCreated),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefFloat32(v *float32) float32 {
	if v == nil {
		return 0
	}
	return *v
}

func derefFloat64(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefBool(v *bool) bool {
	if v == nil {
		return false
	}
	return *v
}

func derefTime(t *common.SDKTime) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.Time
}
