package workload

import (
	"fmt"

	"github.com/pulumi/pulumi-kubernetes/sdk/v4/go/kubernetes"
	"github.com/pulumi/pulumi-kubernetes/sdk/v4/go/kubernetes/apiextensions"
	metav1 "github.com/pulumi/pulumi-kubernetes/sdk/v4/go/kubernetes/meta/v1"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

const (
	sandboxAPIVersion = "extensions.agents.x-k8s.io/v1alpha1"
	templateName      = "python-runtime-template"
	warmPoolName      = "python-sandbox-warmpool"

	// workloadAppLabel selects sandbox pods for the snapshot policy.
	workloadAppLabel = "agent-sandbox-workload"
)

// sandboxLoop is the placeholder payload of the python runtime sandbox. It
// only has to produce observable progress so snapshots can be exercised.
const sandboxLoop = `import time
i = 0
while True:
    print(f"Count: {i}", flush=True)
    i += 1
    time.sleep(1)
`

// SandboxArgs parameterizes the sandbox template and its warm pool.
type SandboxArgs struct {
	Namespace        pulumi.StringOutput
	ServiceAccount   pulumi.StringOutput
	TemplateRevision string
	WarmPoolReplicas int
	DependsOn        []pulumi.Resource
}

// Sandbox is the python runtime template and the warm pool kept ready from
// it.
type Sandbox struct {
	Template *apiextensions.CustomResource
	WarmPool *apiextensions.CustomResource
}

// NewSandbox declares the SandboxTemplate and SandboxWarmPool. The template
// runs under the gvisor runtime class and the snapshot KSA; its revision is
// recorded as an annotation so rollouts can be traced.
func NewSandbox(ctx *pulumi.Context, args *SandboxArgs) (*Sandbox, error) {
	template, err := apiextensions.NewCustomResource(ctx, templateName, &apiextensions.CustomResourceArgs{
		ApiVersion: pulumi.String(sandboxAPIVersion),
		Kind:       pulumi.String("SandboxTemplate"),
		Metadata: &metav1.ObjectMetaArgs{
			Name:      pulumi.String(templateName),
			Namespace: args.Namespace,
			Annotations: pulumi.StringMap{
				"funky.dev/template-revision": pulumi.String(args.TemplateRevision),
			},
		},
		OtherFields: kubernetes.UntypedArgs{
			"spec": pulumi.Map{
				"podTemplate": pulumi.Map{
					"metadata": pulumi.Map{
						"labels": pulumi.Map{
							"app": pulumi.String(workloadAppLabel),
						},
					},
					"spec": pulumi.Map{
						"serviceAccountName": args.ServiceAccount,
						"runtimeClassName":   pulumi.String("gvisor"),
						"containers": pulumi.Array{
							pulumi.Map{
								"name":    pulumi.String("my-container"),
								"image":   pulumi.String("python:3.13-slim"),
								"command": pulumi.StringArray{pulumi.String("python3"), pulumi.String("-c")},
								"args":    pulumi.StringArray{pulumi.String(sandboxLoop)},
								"resources": pulumi.Map{
									"requests": pulumi.Map{
										"cpu":               pulumi.String("250m"),
										"memory":            pulumi.String("512Mi"),
										"ephemeral-storage": pulumi.String("1Gi"),
									},
									"limits": pulumi.Map{
										"cpu":               pulumi.String("1"),
										"memory":            pulumi.String("2Gi"),
										"ephemeral-storage": pulumi.String("4Gi"),
									},
								},
							},
						},
					},
				},
			},
		},
	}, pulumi.DependsOn(args.DependsOn))
	if err != nil {
		return nil, fmt.Errorf("failed to declare sandbox template: %w", err)
	}

	warmPool, err := apiextensions.NewCustomResource(ctx, warmPoolName, &apiextensions.CustomResourceArgs{
		ApiVersion: pulumi.String(sandboxAPIVersion),
		Kind:       pulumi.String("SandboxWarmPool"),
		Metadata: &metav1.ObjectMetaArgs{
			Name:      pulumi.String(warmPoolName),
			Namespace: args.Namespace,
		},
		OtherFields: kubernetes.UntypedArgs{
			"spec": pulumi.Map{
				"replicas": pulumi.Int(args.WarmPoolReplicas),
				"sandboxTemplateRef": pulumi.Map{
					"name": pulumi.String(templateName),
				},
			},
		},
	}, pulumi.DependsOn([]pulumi.Resource{template}))
	if err != nil {
		return nil, fmt.Errorf("failed to declare sandbox warm pool: %w", err)
	}

	return &Sandbox{Template: template, WarmPool: warmPool}, nil
}
