package gke

import (
	"sync"
	"testing"

	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/container"
	"github.com/pulumi/pulumi/sdk/v3/go/common/resource"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funky-dev/agent-workspace-infra/internal/config"
)

type mocks int

func (mocks) NewResource(args pulumi.MockResourceArgs) (string, resource.PropertyMap, error) {
	outputs := args.Inputs.Mappable()
	if _, has := args.Inputs["name"]; !has {
		outputs["name"] = args.Name
	}
	return args.Name + "-id", resource.NewPropertyMapFromMap(outputs), nil
}

func (mocks) Call(args pulumi.MockCallArgs) (resource.PropertyMap, error) {
	return args.Args, nil
}

func testConfig() *config.Config {
	return &config.Config{
		ClusterName:               "agent-workspace-cluster",
		Location:                  "us-central1",
		GKEVersion:                "1.31.5-gke.1023000",
		MachineType:               "n2-standard-4",
		NodePoolName:              "agent-pool",
		AgentSandboxVersion:       "v0.1.0",
		SnapshotsBucketNamePrefix: "agent-snapshots-",
		SnapshotFolder:            "snapshots",
		SnapshotNamespace:         "agent-sandbox",
		SnapshotKSAName:           "snapshot-writer",
	}
}

func TestNewCluster(t *testing.T) {
	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		c, err := NewCluster(ctx, testConfig(), "test-project")
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)

		pulumi.All(c.Cluster.Name, c.Cluster.Location, c.NodePool.Cluster).ApplyT(func(vs []interface{}) error {
			defer wg.Done()
			assert.Equal(t, "agent-workspace-cluster", vs[0])
			assert.Equal(t, "us-central1", vs[1])
			// Referential consistency: the node pool always points at the
			// declared cluster.
			assert.Equal(t, vs[0], vs[2])
			return nil
		})

		c.NodePool.NodeConfig.ApplyT(func(nc container.NodePoolNodeConfig) error {
			defer wg.Done()
			require.NotNil(t, nc.SandboxConfig)
			assert.Equal(t, "gvisor", nc.SandboxConfig.SandboxType)
			require.NotNil(t, nc.ImageType)
			assert.Equal(t, "COS_CONTAINERD", *nc.ImageType)
			return nil
		})

		wg.Wait()
		return nil
	}, pulumi.WithMocks("agent-workspace", "test", mocks(0)))
	require.NoError(t, err)
}

func TestNewClusterWorkloadIdentityPool(t *testing.T) {
	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		c, err := NewCluster(ctx, testConfig(), "test-project")
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(1)
		c.Cluster.WorkloadIdentityConfig.ApplyT(func(wi container.ClusterWorkloadIdentityConfig) error {
			defer wg.Done()
			require.NotNil(t, wi.WorkloadPool)
			assert.Equal(t, "test-project.svc.id.goog", *wi.WorkloadPool)
			return nil
		})
		wg.Wait()
		return nil
	}, pulumi.WithMocks("agent-workspace", "test", mocks(0)))
	require.NoError(t, err)
}

func TestNewSnapshotStorage(t *testing.T) {
	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		store, err := NewSnapshotStorage(ctx, testConfig(), "test-project")
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(1)
		pulumi.All(store.Bucket.Name, store.Folder.Name, store.Folder.Bucket).ApplyT(func(vs []interface{}) error {
			defer wg.Done()
			assert.Equal(t, "agent-snapshots-test-project", vs[0])
			assert.Equal(t, "snapshots/", vs[1])
			// The managed folder lives in the snapshots bucket.
			assert.Equal(t, vs[0], vs[2])
			return nil
		})
		wg.Wait()
		return nil
	}, pulumi.WithMocks("agent-workspace", "test", mocks(0)))
	require.NoError(t, err)
}

func TestNewSnapshotAccess(t *testing.T) {
	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		store, err := NewSnapshotStorage(ctx, testConfig(), "test-project")
		require.NoError(t, err)

		access, err := NewSnapshotAccess(ctx, &SnapshotAccessArgs{
			ProjectID:      "test-project",
			ProjectNumber:  pulumi.String("123456789012"),
			Namespace:      pulumi.String("agent-sandbox"),
			ServiceAccount: pulumi.String("snapshot-writer"),
			Storage:        store,
		})
		require.NoError(t, err)
		assert.Len(t, access.Resources(), 4)

		var wg sync.WaitGroup
		wg.Add(1)
		pulumi.All(
			access.NamespaceViewer.Member,
			access.KSAFolderWriter.Member,
			access.RobotObjectUser.Member,
			access.KSAObjectUser.Bucket,
		).ApplyT(func(vs []interface{}) error {
			defer wg.Done()
			assert.Equal(t,
				"principalSet://iam.googleapis.com/projects/123456789012/locations/global/workloadIdentityPools/test-project.svc.id.goog/namespace/agent-sandbox",
				vs[0])
			assert.Equal(t,
				"principal://iam.googleapis.com/projects/123456789012/locations/global/workloadIdentityPools/test-project.svc.id.goog/subject/ns/agent-sandbox/sa/snapshot-writer",
				vs[1])
			assert.Equal(t,
				"serviceAccount:service-123456789012@container-engine-robot.iam.gserviceaccount.com",
				vs[2])
			assert.Equal(t, "agent-snapshots-test-project", vs[3])
			return nil
		})
		wg.Wait()
		return nil
	}, pulumi.WithMocks("agent-workspace", "test", mocks(0)))
	require.NoError(t, err)
}
