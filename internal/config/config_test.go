package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	for key, value := range map[string]string{
		"CLUSTER_NAME":                 "agent-workspace-cluster",
		"GKE_LOCATION":                 "us-central1",
		"GKE_VERSION":                  "1.31.5-gke.1023000",
		"MACHINE_TYPE":                 "n2-standard-4",
		"NODE_POOL_NAME":               "agent-pool",
		"AGENT_SANDBOX_VERSION":        "v0.1.0",
		"SNAPSHOTS_BUCKET_NAME_PREFIX": "agent-snapshots-",
		"SNAPSHOT_FOLDER":              "snapshots",
		"SNAPSHOT_NAMESPACE":           "agent-sandbox",
		"SNAPSHOT_KSA_NAME":            "snapshot-writer",
		"SANDBOX_TEMPLATE_REVISION":    "rev-42",
		"FASTAPI_APP_NAME":             "workspace-api",
		"CLOUDBUILD_FILE":              "cloudbuild.yaml",
		"CLOUDBUILD_BRANCH_NAME":       "main",
		"CLOUDBUILD_LOCATION":          "us-central1",
		"CLOUDBUILD_REPOSITORY":        "projects/p/locations/us-central1/connections/c/repositories/r",
	} {
		t.Setenv(key, value)
	}
}

func TestLoad(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "agent-workspace-cluster", cfg.ClusterName)
	assert.Equal(t, "us-central1", cfg.Location)
	assert.Equal(t, "1.31.5-gke.1023000", cfg.GKEVersion)
	assert.Equal(t, "agent-pool", cfg.NodePoolName)
	assert.Equal(t, "v0.1.0", cfg.AgentSandboxVersion)
	assert.Equal(t, "snapshot-writer", cfg.SnapshotKSAName)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultWarmPoolReplicas, cfg.SandboxWarmPoolReplicas)
	assert.Equal(t, DefaultContainerPort, cfg.FastAPIContainerPort)
	assert.Equal(t, DefaultServicePort, cfg.FastAPIServicePort)
}

func TestLoad_ExplicitIntegers(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SANDBOX_WARM_POOL_REPLICAS", "5")
	t.Setenv("FASTAPI_CONTAINER_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.SandboxWarmPoolReplicas)
	assert.Equal(t, 9000, cfg.FastAPIContainerPort)
	assert.Equal(t, DefaultServicePort, cfg.FastAPIServicePort)
}

func TestLoad_BadInteger(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SANDBOX_WARM_POOL_REPLICAS", "many")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SANDBOX_WARM_POOL_REPLICAS")
	assert.Contains(t, err.Error(), "many")
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AGENT_SANDBOX_VERSION", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGENT_SANDBOX_VERSION")
}

func TestLoad_Deterministic(t *testing.T) {
	setRequiredEnv(t)

	first, err := Load()
	require.NoError(t, err)
	second, err := Load()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSnapshotsBucketName(t *testing.T) {
	cfg := &Config{SnapshotsBucketNamePrefix: "agent-snapshots-"}
	assert.Equal(t, "agent-snapshots-my-project", cfg.SnapshotsBucketName("my-project"))
}

func TestSnapshotFolderPath(t *testing.T) {
	assert.Equal(t, "snapshots/", (&Config{SnapshotFolder: "snapshots"}).SnapshotFolderPath())
	assert.Equal(t, "snapshots/", (&Config{SnapshotFolder: "snapshots/"}).SnapshotFolderPath())
}
