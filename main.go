// Package main declares the agent-workspace infrastructure stack: a
// Standard GKE cluster with a gVisor-sandboxed node pool, the agent-sandbox
// controller and extensions from their GitHub release, GCS-backed pod
// snapshots, the sandbox template with a warm pool, and the Cloud Build
// pipeline that deploys the workspace API.
//
// All diffing, ordering, and apply/destroy semantics belong to the Pulumi
// engine; this program is a single synchronous pass of declarations.
package main

import (
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/organizations"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	pcfg "github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	"github.com/funky-dev/agent-workspace-infra/internal/cloudbuild"
	"github.com/funky-dev/agent-workspace-infra/internal/config"
	"github.com/funky-dev/agent-workspace-infra/internal/gke"
	"github.com/funky-dev/agent-workspace-infra/internal/workload"
)

func main() {
	pulumi.Run(run)
}

func run(ctx *pulumi.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// The project id comes from the stack configuration (gcp:project), not
	// the environment, so it always matches the one the provider targets.
	projectID := pcfg.Require(ctx, "gcp:project")
	project := organizations.LookupProjectOutput(ctx, organizations.LookupProjectOutputArgs{
		ProjectId: pulumi.StringPtr(projectID),
	})

	cluster, err := gke.NewCluster(ctx, cfg, projectID)
	if err != nil {
		return err
	}

	store, err := gke.NewSnapshotStorage(ctx, cfg, projectID)
	if err != nil {
		return err
	}

	identity, err := workload.NewSnapshotIdentity(ctx, cfg)
	if err != nil {
		return err
	}

	access, err := gke.NewSnapshotAccess(ctx, &gke.SnapshotAccessArgs{
		ProjectID:      projectID,
		ProjectNumber:  project.Number(),
		Namespace:      identity.NamespaceName(),
		ServiceAccount: identity.ServiceAccountName(),
		Storage:        store,
	})
	if err != nil {
		return err
	}

	manifests, err := workload.NewManifests(ctx, cfg, cluster.NodePool)
	if err != nil {
		return err
	}

	policy, err := workload.NewSnapshotPolicy(ctx, &workload.SnapshotPolicyArgs{
		Bucket:    store.Bucket.Name,
		Folder:    cfg.SnapshotFolder,
		Namespace: identity.NamespaceName(),
		DependsOn: append([]pulumi.Resource{manifests.Extensions, store.Folder}, access.Resources()...),
	})
	if err != nil {
		return err
	}

	sandbox, err := workload.NewSandbox(ctx, &workload.SandboxArgs{
		Namespace:        identity.NamespaceName(),
		ServiceAccount:   identity.ServiceAccountName(),
		TemplateRevision: cfg.SandboxTemplateRevision,
		WarmPoolReplicas: cfg.SandboxWarmPoolReplicas,
		DependsOn:        []pulumi.Resource{manifests.Extensions, identity.ServiceAccount, policy.Policy},
	})
	if err != nil {
		return err
	}

	pipeline, err := cloudbuild.NewPipeline(ctx, cfg, projectID, project.Number())
	if err != nil {
		return err
	}

	ctx.Export("project_id", pulumi.String(projectID))
	ctx.Export("region", pulumi.String(cfg.Location))
	ctx.Export("cluster_name", cluster.Cluster.Name)
	ctx.Export("node_pool_name", cluster.NodePool.Name)
	ctx.Export("agent_sandbox_version", pulumi.String(cfg.AgentSandboxVersion))
	ctx.Export("snapshots_bucket_name", store.Bucket.Name)
	ctx.Export("snapshot_folder", store.Folder.Name)
	ctx.Export("pod_snapshot_gcs_read_writer_role", store.ReadWriterRole.Name)
	ctx.Export("snapshot_namespace", identity.NamespaceName())
	ctx.Export("snapshot_ksa_name", identity.ServiceAccountName())
	ctx.Export("project_number", project.Number())
	ctx.Export("pod_snapshot_storage_config", policy.StorageConfig.Metadata.Name())
	ctx.Export("pod_snapshot_policy", policy.Policy.Metadata.Name())
	ctx.Export("sandbox_template", sandbox.Template.Metadata.Name())
	ctx.Export("sandbox_template_revision", pulumi.String(cfg.SandboxTemplateRevision))
	ctx.Export("sandbox_warm_pool", sandbox.WarmPool.Metadata.Name())
	ctx.Export("sandbox_warm_pool_replicas", pulumi.Int(cfg.SandboxWarmPoolReplicas))
	ctx.Export("fastapi_cloudbuild_trigger_id", pipeline.Trigger.TriggerId)
	return nil
}
