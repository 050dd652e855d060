package upgrade

import (
	"bytes"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"
)

const (
	PlanNamespace      = "system-upgrade"
	ServerPlanName     = "k3s-server"
	AgentPlanName      = "k3s-agent"
	planServiceAccount = "system-upgrade"
	upgradeImage       = "rancher/k3s-upgrade"
	masterRoleLabel    = "node-role.kubernetes.io/master"
	planLabel          = "k3s-upgrade"
)

// WorkerConcurrency is how many workers upgrade at once: all but one,
// and at least one.
func WorkerConcurrency(workers int) int {
	return max(workers-1, 1)
}

// Plans returns the server Plan followed by the agent Plan.
func Plans(version string, workers int) []*unstructured.Unstructured {
	return []*unstructured.Unstructured{
		serverPlan(version),
		agentPlan(version, WorkerConcurrency(workers)),
	}
}

func serverPlan(version string) *unstructured.Unstructured {
	return plan(ServerPlanName, "server", map[string]any{
		"concurrency":        int64(1),
		"version":            version,
		"nodeSelector":       masterSelector("In"),
		"serviceAccountName": planServiceAccount,
		"tolerations": []any{
			map[string]any{
				"key":      "CriticalAddonsOnly",
				"operator": "Equal",
				"value":    "true",
				"effect":   "NoExecute",
			},
		},
		"cordon":  true,
		"upgrade": map[string]any{"image": upgradeImage},
	})
}

func agentPlan(version string, concurrency int) *unstructured.Unstructured {
	return plan(AgentPlanName, "agent", map[string]any{
		"concurrency":        int64(concurrency),
		"version":            version,
		"nodeSelector":       masterSelector("NotIn"),
		"serviceAccountName": planServiceAccount,
		"prepare": map[string]any{
			"image": upgradeImage,
			"args":  []any{"prepare", ServerPlanName},
		},
		"cordon":  true,
		"upgrade": map[string]any{"image": upgradeImage},
	})
}

func plan(name, role string, spec map[string]any) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "upgrade.cattle.io/v1",
		"kind":       "Plan",
		"metadata": map[string]any{
			"name":      name,
			"namespace": PlanNamespace,
			"labels":    map[string]any{planLabel: role},
		},
		"spec": spec,
	}}
}

func masterSelector(operator string) map[string]any {
	return map[string]any{
		"matchExpressions": []any{
			map[string]any{
				"key":      masterRoleLabel,
				"operator": operator,
				"values":   []any{"true"},
			},
		},
	}
}

// RenderPlans renders the Plans as a multi-document YAML stream.
func RenderPlans(plans []*unstructured.Unstructured) ([]byte, error) {
	var buf bytes.Buffer
	for i, p := range plans {
		if i > 0 {
			buf.WriteString("---\n")
		}
		out, err := yaml.Marshal(p.Object)
		if err != nil {
			return nil, fmt.Errorf("failed to render plan %s: %w", p.GetName(), err)
		}
		buf.Write(out)
	}
	return buf.Bytes(), nil
}
