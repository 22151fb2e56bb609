// Package gke declares the Google Cloud resources of the agent workspace:
// the Standard GKE cluster, its gVisor node pool, and the GCS-backed pod
// snapshot storage with its IAM wiring. Declarations are handed to the
// Pulumi engine; nothing here talks to the cloud APIs directly.
package gke

import (
	"fmt"

	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/container"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/funky-dev/agent-workspace-infra/internal/config"
)

// Cluster bundles the cluster and its agent node pool.
type Cluster struct {
	Cluster  *container.Cluster
	NodePool *container.NodePool
}

// NewCluster declares a Standard GKE cluster with the pod-snapshot addon and
// workload identity enabled, plus a node pool that runs workloads under the
// gVisor sandbox. The node pool references the cluster by name, so the
// engine always creates and destroys them in the right order.
func NewCluster(ctx *pulumi.Context, cfg *config.Config, projectID string) (*Cluster, error) {
	cluster, err := container.NewCluster(ctx, "standard-cluster", &container.ClusterArgs{
		Name:               pulumi.String(cfg.ClusterName),
		Location:           pulumi.String(cfg.Location),
		InitialNodeCount:   pulumi.Int(1),
		MinMasterVersion:   pulumi.String(cfg.GKEVersion),
		DeletionProtection: pulumi.Bool(false),
		AddonsConfig: &container.ClusterAddonsConfigArgs{
			PodSnapshotConfig: &container.ClusterAddonsConfigPodSnapshotConfigArgs{
				Enabled: pulumi.Bool(true),
			},
		},
		WorkloadIdentityConfig: &container.ClusterWorkloadIdentityConfigArgs{
			WorkloadPool: pulumi.Sprintf("%s.svc.id.goog", projectID),
		},
		NodeConfig: &container.ClusterNodeConfigArgs{
			MachineType: pulumi.String(cfg.MachineType),
			WorkloadMetadataConfig: &container.ClusterNodeConfigWorkloadMetadataConfigArgs{
				Mode: pulumi.String("GKE_METADATA"),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare cluster: %w", err)
	}

	nodePool, err := container.NewNodePool(ctx, "agent-workspace-node-pool", &container.NodePoolArgs{
		Name:      pulumi.String(cfg.NodePoolName),
		Cluster:   cluster.Name,
		Location:  pulumi.String(cfg.Location),
		NodeCount: pulumi.Int(1),
		Version:   pulumi.String(cfg.GKEVersion),
		NodeConfig: &container.NodePoolNodeConfigArgs{
			MachineType: pulumi.String(cfg.MachineType),
			ImageType:   pulumi.String("COS_CONTAINERD"),
			SandboxConfig: &container.NodePoolNodeConfigSandboxConfigArgs{
				SandboxType: pulumi.String("gvisor"),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare node pool: %w", err)
	}

	return &Cluster{Cluster: cluster, NodePool: nodePool}, nil
}
