// Package cloudbuild declares the build pipeline that deploys the workspace
// API: a dedicated service account with the roles a GKE deploy needs, and a
// push trigger on the configured branch.
package cloudbuild

import (
	"fmt"
	"strconv"

	cb "github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/cloudbuild"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/projects"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/serviceaccount"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/funky-dev/agent-workspace-infra/internal/config"
)

// Pipeline is the Cloud Build deploy pipeline.
type Pipeline struct {
	ServiceAccount *serviceaccount.Account
	Trigger        *cb.Trigger
}

// projectRoles are granted to the build service account.
var projectRoles = []struct {
	name string
	role string
}{
	{"cloudbuild-gke-developer", "roles/container.developer"},
	{"cloudbuild-gke-viewer", "roles/container.clusterViewer"},
	{"cloudbuild-storage-admin", "roles/storage.admin"},
	{"cloudbuild-logging-writer", "roles/logging.logWriter"},
}

// agentRoles let the Cloud Build service agent run builds as the account.
var agentRoles = []struct {
	name string
	role string
}{
	{"cloudbuild-sa-user", "roles/iam.serviceAccountUser"},
	{"cloudbuild-sa-token-creator", "roles/iam.serviceAccountTokenCreator"},
}

// NewPipeline declares the build service account, its IAM bindings, and the
// push trigger. The trigger depends on every binding so the first build does
// not race its own permissions.
func NewPipeline(ctx *pulumi.Context, cfg *config.Config, projectID string, projectNumber pulumi.StringInput) (*Pipeline, error) {
	sa, err := serviceaccount.NewAccount(ctx, "agent-workspace-cloudbuild-sa", &serviceaccount.AccountArgs{
		AccountId:   pulumi.String("agentworkspacebuild"),
		DisplayName: pulumi.String("Agent Workspace Cloud Build"),
		Project:     pulumi.String(projectID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare build service account: %w", err)
	}

	member := pulumi.Sprintf("serviceAccount:%s", sa.Email)
	serviceAgent := pulumi.Sprintf(
		"serviceAccount:service-%s@gcp-sa-cloudbuild.iam.gserviceaccount.com",
		projectNumber,
	)

	bindings := make([]pulumi.Resource, 0, len(projectRoles)+len(agentRoles))
	for _, r := range projectRoles {
		m, err := projects.NewIAMMember(ctx, r.name, &projects.IAMMemberArgs{
			Project: pulumi.String(projectID),
			Role:    pulumi.String(r.role),
			Member:  member,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to declare %s binding: %w", r.role, err)
		}
		bindings = append(bindings, m)
	}
	for _, r := range agentRoles {
		m, err := serviceaccount.NewIAMMember(ctx, r.name, &serviceaccount.IAMMemberArgs{
			ServiceAccountId: sa.Name,
			Role:             pulumi.String(r.role),
			Member:           serviceAgent,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to declare %s binding: %w", r.role, err)
		}
		bindings = append(bindings, m)
	}

	trigger, err := cb.NewTrigger(ctx, "fastapi-cloudbuild-trigger", &cb.TriggerArgs{
		Name:        pulumi.Sprintf("%s-main-trigger", cfg.FastAPIAppName),
		Description: pulumi.Sprintf("Build and deploy %s on push to %s", cfg.FastAPIAppName, cfg.CloudBuildBranchName),
		Location:    pulumi.String(cfg.CloudBuildLocation),
		Filename:    pulumi.String(cfg.CloudBuildFile),
		RepositoryEventConfig: &cb.TriggerRepositoryEventConfigArgs{
			Repository: pulumi.String(cfg.CloudBuildRepository),
			Push: &cb.TriggerRepositoryEventConfigPushArgs{
				Branch: pulumi.String(cfg.CloudBuildBranchName),
			},
		},
		Substitutions: pulumi.StringMap{
			"_APP_NAME":       pulumi.String(cfg.FastAPIAppName),
			"_CONTAINER_PORT": pulumi.String(strconv.Itoa(cfg.FastAPIContainerPort)),
			"_SERVICE_PORT":   pulumi.String(strconv.Itoa(cfg.FastAPIServicePort)),
		},
		ServiceAccount: pulumi.Sprintf("projects/%s/serviceAccounts/%s", projectID, sa.Email),
	}, pulumi.DependsOn(bindings))
	if err != nil {
		return nil, fmt.Errorf("failed to declare build trigger: %w", err)
	}

	return &Pipeline{ServiceAccount: sa, Trigger: trigger}, nil
}
