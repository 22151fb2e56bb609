// Package config defines the environment-sourced configuration for the stack.
package config

import (
	"fmt"
	"strings"
)

// Config holds the stack configuration. All values are read once from the
// environment at program start. The GCP project id is deliberately absent:
// it comes from the Pulumi stack configuration (gcp:project), not the
// environment.
type Config struct {
	// ClusterName is the GKE cluster name.
	ClusterName string
	// Location is the GCP region the cluster and its storage live in.
	Location string
	// GKEVersion pins the control plane and node pool Kubernetes version.
	GKEVersion string
	// MachineType is used for both the default node config and the agent pool.
	MachineType string
	// NodePoolName names the gVisor-sandboxed agent node pool.
	NodePoolName string

	// AgentSandboxVersion selects the agent-sandbox GitHub release whose
	// manifests are applied to the cluster, e.g. "v0.1.0".
	AgentSandboxVersion string

	// SnapshotsBucketNamePrefix is prepended to the project id to form the
	// globally unique snapshots bucket name.
	SnapshotsBucketNamePrefix string
	// SnapshotFolder is the managed folder inside the bucket that holds
	// pod snapshots. Stored without a trailing slash.
	SnapshotFolder string
	// SnapshotNamespace is the namespace sandbox workloads run in.
	SnapshotNamespace string
	// SnapshotKSAName is the Kubernetes service account snapshots are
	// written under, bound to GCS via workload identity.
	SnapshotKSAName string

	// SandboxTemplateRevision is recorded as an annotation on the sandbox
	// template so rollouts can be traced back to a template change.
	SandboxTemplateRevision string
	// SandboxWarmPoolReplicas is the number of pre-warmed sandboxes.
	SandboxWarmPoolReplicas int

	FastAPIAppName       string
	FastAPIContainerPort int
	FastAPIServicePort   int

	CloudBuildFile       string
	CloudBuildBranchName string
	CloudBuildLocation   string
	CloudBuildRepository string
}

// Validate reports the first missing required value by its environment key,
// so a broken deploy fails before any resource is declared.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"CLUSTER_NAME", c.ClusterName},
		{"GKE_LOCATION", c.Location},
		{"GKE_VERSION", c.GKEVersion},
		{"MACHINE_TYPE", c.MachineType},
		{"NODE_POOL_NAME", c.NodePoolName},
		{"AGENT_SANDBOX_VERSION", c.AgentSandboxVersion},
		{"SNAPSHOTS_BUCKET_NAME_PREFIX", c.SnapshotsBucketNamePrefix},
		{"SNAPSHOT_FOLDER", c.SnapshotFolder},
		{"SNAPSHOT_NAMESPACE", c.SnapshotNamespace},
		{"SNAPSHOT_KSA_NAME", c.SnapshotKSAName},
		{"SANDBOX_TEMPLATE_REVISION", c.SandboxTemplateRevision},
		{"FASTAPI_APP_NAME", c.FastAPIAppName},
		{"CLOUDBUILD_FILE", c.CloudBuildFile},
		{"CLOUDBUILD_BRANCH_NAME", c.CloudBuildBranchName},
		{"CLOUDBUILD_LOCATION", c.CloudBuildLocation},
		{"CLOUDBUILD_REPOSITORY", c.CloudBuildRepository},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("missing required environment variable: %s", r.key)
		}
	}
	return nil
}

// SnapshotsBucketName returns the project-scoped bucket name.
func (c *Config) SnapshotsBucketName(projectID string) string {
	return c.SnapshotsBucketNamePrefix + projectID
}

// SnapshotFolderPath returns the managed-folder path, which GCS requires to
// end in a slash.
func (c *Config) SnapshotFolderPath() string {
	return strings.TrimRight(c.SnapshotFolder, "/") + "/"
}
