package gke

import (
	"fmt"

	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/projects"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/storage"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/funky-dev/agent-workspace-infra/internal/config"
)

// SnapshotStorage is the GCS side of pod snapshots: a hierarchical-namespace
// bucket, the managed folder snapshots land in, and the custom role that
// grants write access to it.
type SnapshotStorage struct {
	Bucket         *storage.Bucket
	Folder         *storage.ManagedFolder
	ReadWriterRole *projects.IAMCustomRole
}

// NewSnapshotStorage declares the snapshots bucket and its custom IAM role.
// The bucket name is project-scoped to keep it globally unique.
func NewSnapshotStorage(ctx *pulumi.Context, cfg *config.Config, projectID string) (*SnapshotStorage, error) {
	bucket, err := storage.NewBucket(ctx, "snapshots-bucket", &storage.BucketArgs{
		Name:                     pulumi.String(cfg.SnapshotsBucketName(projectID)),
		Location:                 pulumi.String(cfg.Location),
		UniformBucketLevelAccess: pulumi.Bool(true),
		HierarchicalNamespace: &storage.BucketHierarchicalNamespaceArgs{
			Enabled: pulumi.Bool(true),
		},
		SoftDeletePolicy: &storage.BucketSoftDeletePolicyArgs{
			RetentionDurationSeconds: pulumi.Int(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare snapshots bucket: %w", err)
	}

	folder, err := storage.NewManagedFolder(ctx, "snapshots-managed-folder", &storage.ManagedFolderArgs{
		Bucket: bucket.Name,
		Name:   pulumi.String(cfg.SnapshotFolderPath()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare snapshots folder: %w", err)
	}

	role, err := projects.NewIAMCustomRole(ctx, "pod-snapshot-gcs-read-writer-role", &projects.IAMCustomRoleArgs{
		Project: pulumi.String(projectID),
		RoleId:  pulumi.String("podSnapshotGcsReadWriter"),
		Title:   pulumi.String("podSnapshotGcsReadWriter"),
		Permissions: pulumi.StringArray{
			pulumi.String("storage.objects.get"),
			pulumi.String("storage.objects.create"),
			pulumi.String("storage.objects.delete"),
			pulumi.String("storage.folders.create"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare snapshot role: %w", err)
	}

	return &SnapshotStorage{Bucket: bucket, Folder: folder, ReadWriterRole: role}, nil
}
