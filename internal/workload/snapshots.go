package workload

import (
	"fmt"

	"github.com/pulumi/pulumi-kubernetes/sdk/v4/go/kubernetes"
	"github.com/pulumi/pulumi-kubernetes/sdk/v4/go/kubernetes/apiextensions"
	metav1 "github.com/pulumi/pulumi-kubernetes/sdk/v4/go/kubernetes/meta/v1"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

const (
	podSnapshotAPIVersion = "podsnapshot.gke.io/v1alpha1"
	storageConfigName     = "cpu-pssc-gcs"
	snapshotPolicyName    = "cpu-psp"
)

// SnapshotPolicyArgs ties the GCS snapshot store to the workload namespace.
// DependsOn must include the extensions manifest (which installs the CRDs)
// and every bucket IAM binding, so the controller never sees a policy it
// cannot act on.
type SnapshotPolicyArgs struct {
	Bucket    pulumi.StringInput
	Folder    string
	Namespace pulumi.StringOutput
	DependsOn []pulumi.Resource
}

// SnapshotPolicy is the in-cluster half of pod snapshots: the storage config
// pointing at the bucket and the policy selecting sandbox workloads.
type SnapshotPolicy struct {
	StorageConfig *apiextensions.CustomResource
	Policy        *apiextensions.CustomResource
}

// NewSnapshotPolicy declares the PodSnapshotStorageConfig and the
// PodSnapshotPolicy for sandbox workloads. Snapshots are triggered manually
// and the workload resumes after the checkpoint.
func NewSnapshotPolicy(ctx *pulumi.Context, args *SnapshotPolicyArgs) (*SnapshotPolicy, error) {
	storageConfig, err := apiextensions.NewCustomResource(ctx, storageConfigName, &apiextensions.CustomResourceArgs{
		ApiVersion: pulumi.String(podSnapshotAPIVersion),
		Kind:       pulumi.String("PodSnapshotStorageConfig"),
		Metadata: &metav1.ObjectMetaArgs{
			Name: pulumi.String(storageConfigName),
		},
		OtherFields: kubernetes.UntypedArgs{
			"spec": pulumi.Map{
				"snapshotStorageConfig": pulumi.Map{
					"gcs": pulumi.Map{
						"bucket": args.Bucket,
						"path":   pulumi.String(args.Folder),
					},
				},
			},
		},
	}, pulumi.DependsOn(args.DependsOn))
	if err != nil {
		return nil, fmt.Errorf("failed to declare snapshot storage config: %w", err)
	}

	policy, err := apiextensions.NewCustomResource(ctx, snapshotPolicyName, &apiextensions.CustomResourceArgs{
		ApiVersion: pulumi.String(podSnapshotAPIVersion),
		Kind:       pulumi.String("PodSnapshotPolicy"),
		Metadata: &metav1.ObjectMetaArgs{
			Name:      pulumi.String(snapshotPolicyName),
			Namespace: args.Namespace,
		},
		OtherFields: kubernetes.UntypedArgs{
			"spec": pulumi.Map{
				"storageConfigName": pulumi.String(storageConfigName),
				"selector": pulumi.Map{
					"matchLabels": pulumi.Map{
						"app": pulumi.String(workloadAppLabel),
					},
				},
				"triggerConfig": pulumi.Map{
					"type":           pulumi.String("manual"),
					"postCheckpoint": pulumi.String("resume"),
				},
			},
		},
	}, pulumi.DependsOn([]pulumi.Resource{storageConfig}))
	if err != nil {
		return nil, fmt.Errorf("failed to declare snapshot policy: %w", err)
	}

	return &SnapshotPolicy{StorageConfig: storageConfig, Policy: policy}, nil
}
