package config

import (
	"fmt"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults for the optional integer keys.
const (
	DefaultWarmPoolReplicas = 2
	DefaultContainerPort    = 8080
	DefaultServicePort      = 80
)

var envKeys = []string{
	"CLUSTER_NAME",
	"GKE_LOCATION",
	"GKE_VERSION",
	"MACHINE_TYPE",
	"NODE_POOL_NAME",
	"AGENT_SANDBOX_VERSION",
	"SNAPSHOTS_BUCKET_NAME_PREFIX",
	"SNAPSHOT_FOLDER",
	"SNAPSHOT_NAMESPACE",
	"SNAPSHOT_KSA_NAME",
	"SANDBOX_TEMPLATE_REVISION",
	"SANDBOX_WARM_POOL_REPLICAS",
	"FASTAPI_APP_NAME",
	"FASTAPI_CONTAINER_PORT",
	"FASTAPI_SERVICE_PORT",
	"CLOUDBUILD_FILE",
	"CLOUDBUILD_BRANCH_NAME",
	"CLOUDBUILD_LOCATION",
	"CLOUDBUILD_REPOSITORY",
}

// Load reads the configuration from the environment. A .env file in the
// working directory is honored when present; real environment variables win
// over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	cfg := &Config{
		ClusterName:               v.GetString("CLUSTER_NAME"),
		Location:                  v.GetString("GKE_LOCATION"),
		GKEVersion:                v.GetString("GKE_VERSION"),
		MachineType:               v.GetString("MACHINE_TYPE"),
		NodePoolName:              v.GetString("NODE_POOL_NAME"),
		AgentSandboxVersion:       v.GetString("AGENT_SANDBOX_VERSION"),
		SnapshotsBucketNamePrefix: v.GetString("SNAPSHOTS_BUCKET_NAME_PREFIX"),
		SnapshotFolder:            v.GetString("SNAPSHOT_FOLDER"),
		SnapshotNamespace:         v.GetString("SNAPSHOT_NAMESPACE"),
		SnapshotKSAName:           v.GetString("SNAPSHOT_KSA_NAME"),
		SandboxTemplateRevision:   v.GetString("SANDBOX_TEMPLATE_REVISION"),
		FastAPIAppName:            v.GetString("FASTAPI_APP_NAME"),
		CloudBuildFile:            v.GetString("CLOUDBUILD_FILE"),
		CloudBuildBranchName:      v.GetString("CLOUDBUILD_BRANCH_NAME"),
		CloudBuildLocation:        v.GetString("CLOUDBUILD_LOCATION"),
		CloudBuildRepository:      v.GetString("CLOUDBUILD_REPOSITORY"),
	}

	var err error
	if cfg.SandboxWarmPoolReplicas, err = intValue(v, "SANDBOX_WARM_POOL_REPLICAS", DefaultWarmPoolReplicas); err != nil {
		return nil, err
	}
	if cfg.FastAPIContainerPort, err = intValue(v, "FASTAPI_CONTAINER_PORT", DefaultContainerPort); err != nil {
		return nil, err
	}
	if cfg.FastAPIServicePort, err = intValue(v, "FASTAPI_SERVICE_PORT", DefaultServicePort); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// intValue parses an optional integer key, falling back to def when unset.
func intValue(v *viper.Viper, key string, def int) (int, error) {
	raw := v.GetString(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got: %s", key, raw)
	}
	return n, nil
}
