package gke

import (
	"fmt"

	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/storage"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// SnapshotAccessArgs carries the identities that read and write the
// snapshots bucket. Namespace and ServiceAccount are outputs of the
// in-cluster resources so the bindings follow them.
type SnapshotAccessArgs struct {
	ProjectID      string
	ProjectNumber  pulumi.StringInput
	Namespace      pulumi.StringInput
	ServiceAccount pulumi.StringInput
	Storage        *SnapshotStorage
}

// SnapshotAccess holds the bucket IAM bindings for pod snapshots: the
// workload-identity principals of the snapshot namespace and its service
// account, and the GKE snapshot controller's robot service agent.
type SnapshotAccess struct {
	NamespaceViewer *storage.BucketIAMMember
	KSAFolderWriter *storage.BucketIAMMember
	KSAObjectUser   *storage.BucketIAMMember
	RobotObjectUser *storage.BucketIAMMember
}

// NewSnapshotAccess declares the four bucket IAM bindings.
func NewSnapshotAccess(ctx *pulumi.Context, args *SnapshotAccessArgs) (*SnapshotAccess, error) {
	namespacePrincipal := pulumi.Sprintf(
		"principalSet://iam.googleapis.com/projects/%s/locations/global/workloadIdentityPools/%s.svc.id.goog/namespace/%s",
		args.ProjectNumber, args.ProjectID, args.Namespace,
	)
	ksaPrincipal := pulumi.Sprintf(
		"principal://iam.googleapis.com/projects/%s/locations/global/workloadIdentityPools/%s.svc.id.goog/subject/ns/%s/sa/%s",
		args.ProjectNumber, args.ProjectID, args.Namespace, args.ServiceAccount,
	)
	robotAgent := pulumi.Sprintf(
		"serviceAccount:service-%s@container-engine-robot.iam.gserviceaccount.com",
		args.ProjectNumber,
	)

	viewer, err := storage.NewBucketIAMMember(ctx, "snapshot-namespace-bucket-viewer", &storage.BucketIAMMemberArgs{
		Bucket: args.Storage.Bucket.Name,
		Member: namespacePrincipal,
		Role:   pulumi.String("roles/storage.bucketViewer"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare namespace viewer binding: %w", err)
	}

	folderWriter, err := storage.NewBucketIAMMember(ctx, "snapshot-ksa-folder-writer", &storage.BucketIAMMemberArgs{
		Bucket: args.Storage.Bucket.Name,
		Member: ksaPrincipal,
		Role:   args.Storage.ReadWriterRole.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare folder writer binding: %w", err)
	}

	objectUser, err := storage.NewBucketIAMMember(ctx, "snapshot-ksa-object-user", &storage.BucketIAMMemberArgs{
		Bucket: args.Storage.Bucket.Name,
		Member: ksaPrincipal,
		Role:   pulumi.String("roles/storage.objectUser"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare object user binding: %w", err)
	}

	robotUser, err := storage.NewBucketIAMMember(ctx, "gke-snapshot-controller-object-user", &storage.BucketIAMMemberArgs{
		Bucket: args.Storage.Bucket.Name,
		Member: robotAgent,
		Role:   pulumi.String("roles/storage.objectUser"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare controller binding: %w", err)
	}

	return &SnapshotAccess{
		NamespaceViewer: viewer,
		KSAFolderWriter: folderWriter,
		KSAObjectUser:   objectUser,
		RobotObjectUser: robotUser,
	}, nil
}

// Resources returns the bindings for use as dependencies of the in-cluster
// snapshot configuration.
func (a *SnapshotAccess) Resources() []pulumi.Resource {
	return []pulumi.Resource{a.NamespaceViewer, a.KSAFolderWriter, a.KSAObjectUser, a.RobotObjectUser}
}
