// Package workload declares the in-cluster resources of the agent
// workspace: the agent-sandbox release manifests, the pod snapshot
// configuration, and the sandbox template with its warm pool.
//
// Everything here goes through the default Kubernetes provider, which reads
// the ambient kubeconfig. Cluster credentials must be fetched (gcloud
// container clusters get-credentials) before pulumi up.
package workload

import (
	"fmt"

	corev1 "github.com/pulumi/pulumi-kubernetes/sdk/v4/go/kubernetes/core/v1"
	metav1 "github.com/pulumi/pulumi-kubernetes/sdk/v4/go/kubernetes/meta/v1"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/funky-dev/agent-workspace-infra/internal/config"
)

// SnapshotIdentity is the namespace sandbox workloads run in and the
// service account snapshots are written under.
type SnapshotIdentity struct {
	Namespace      *corev1.Namespace
	ServiceAccount *corev1.ServiceAccount
}

// NewSnapshotIdentity declares the snapshot namespace and its KSA.
func NewSnapshotIdentity(ctx *pulumi.Context, cfg *config.Config) (*SnapshotIdentity, error) {
	ns, err := corev1.NewNamespace(ctx, "snapshot-namespace", &corev1.NamespaceArgs{
		Metadata: &metav1.ObjectMetaArgs{
			Name: pulumi.String(cfg.SnapshotNamespace),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare snapshot namespace: %w", err)
	}

	sa, err := corev1.NewServiceAccount(ctx, "snapshot-ksa", &corev1.ServiceAccountArgs{
		Metadata: &metav1.ObjectMetaArgs{
			Name:      pulumi.String(cfg.SnapshotKSAName),
			Namespace: ns.Metadata.Name(),
		},
	}, pulumi.DependsOn([]pulumi.Resource{ns}))
	if err != nil {
		return nil, fmt.Errorf("failed to declare snapshot service account: %w", err)
	}

	return &SnapshotIdentity{Namespace: ns, ServiceAccount: sa}, nil
}

// NamespaceName is the resolved namespace name, for IAM principals and
// namespaced resources.
func (i *SnapshotIdentity) NamespaceName() pulumi.StringOutput {
	return i.Namespace.Metadata.Name().Elem()
}

// ServiceAccountName is the resolved KSA name.
func (i *SnapshotIdentity) ServiceAccountName() pulumi.StringOutput {
	return i.ServiceAccount.Metadata.Name().Elem()
}
