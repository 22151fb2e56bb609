package workload

import (
	"fmt"

	"github.com/pulumi/pulumi-kubernetes/sdk/v4/go/kubernetes/yaml"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/funky-dev/agent-workspace-infra/internal/config"
)

const releaseBaseURL = "https://github.com/kubernetes-sigs/agent-sandbox/releases/download"

// ManifestURL returns the download URL for one file of an agent-sandbox
// release, e.g. ManifestURL("v0.1.0", "manifest.yaml").
func ManifestURL(version, file string) string {
	return fmt.Sprintf("%s/%s/%s", releaseBaseURL, version, file)
}

// Manifests are the agent-sandbox controller and extensions bundles, both
// taken from the same release.
type Manifests struct {
	Controller *yaml.ConfigFile
	Extensions *yaml.ConfigFile
}

// NewManifests applies the two release manifests once the node pool exists.
// Extensions ship the CRDs the sandbox resources below depend on, so they
// are ordered after the controller.
func NewManifests(ctx *pulumi.Context, cfg *config.Config, nodePool pulumi.Resource) (*Manifests, error) {
	controller, err := yaml.NewConfigFile(ctx, "agent-sandbox-manifest", &yaml.ConfigFileArgs{
		File:           ManifestURL(cfg.AgentSandboxVersion, "manifest.yaml"),
		ResourcePrefix: "agent-sandbox-manifest",
	}, pulumi.DependsOn([]pulumi.Resource{nodePool}))
	if err != nil {
		return nil, fmt.Errorf("failed to apply controller manifest: %w", err)
	}

	extensions, err := yaml.NewConfigFile(ctx, "agent-sandbox-extensions", &yaml.ConfigFileArgs{
		File:           ManifestURL(cfg.AgentSandboxVersion, "extensions.yaml"),
		ResourcePrefix: "agent-sandbox-extensions",
	}, pulumi.DependsOn([]pulumi.Resource{controller}))
	if err != nil {
		return nil, fmt.Errorf("failed to apply extensions manifest: %w", err)
	}

	return &Manifests{Controller: controller, Extensions: extensions}, nil
}
