package k8sclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"

	"github.com/imamik/k3zner/internal/config"
)

// WaitForNodes polls until every node is known to the API server.
func (c *client) WaitForNodes(ctx context.Context, names []string, timeout time.Duration) error {
	pending := make(map[string]bool, len(names))
	for _, name := range names {
		pending[name] = true
	}

	err := wait.PollUntilContextTimeout(ctx, c.pollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		for name := range pending {
			_, err := c.clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
			switch {
			case err == nil:
				delete(pending, name)
			case apierrors.IsNotFound(err):
			default:
				// Transient API errors are retried on the next tick.
				return false, nil
			}
		}
		return len(pending) == 0, nil
	})
	if err != nil {
		missing := make([]string, 0, len(pending))
		for name := range pending {
			missing = append(missing, name)
		}
		return fmt.Errorf("nodes did not register within %v (missing: %s): %w", timeout, strings.Join(missing, ", "), err)
	}
	return nil
}

// LabelNodes merges labels into every named node.
func (c *client) LabelNodes(ctx context.Context, names []string, labels []config.Label) error {
	if len(labels) == 0 {
		return nil
	}
	for _, name := range names {
		err := c.updateNode(ctx, name, func(node *corev1.Node) {
			if node.Labels == nil {
				node.Labels = make(map[string]string, len(labels))
			}
			for _, l := range labels {
				node.Labels[l.Key] = l.Value
			}
		})
		if err != nil {
			return fmt.Errorf("failed to label node %s: %w", name, err)
		}
	}
	return nil
}

// TaintNodes adds taints to every named node, replacing a taint with the
// same key and effect.
func (c *client) TaintNodes(ctx context.Context, names []string, taints []config.Label) error {
	if len(taints) == 0 {
		return nil
	}
	parsed := make([]corev1.Taint, 0, len(taints))
	for _, t := range taints {
		taint, err := ParseTaint(t)
		if err != nil {
			return err
		}
		parsed = append(parsed, taint)
	}

	for _, name := range names {
		err := c.updateNode(ctx, name, func(node *corev1.Node) {
			for _, taint := range parsed {
				node.Spec.Taints = mergeTaint(node.Spec.Taints, taint)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to taint node %s: %w", name, err)
		}
	}
	return nil
}

func (c *client) updateNode(ctx context.Context, name string, mutate func(*corev1.Node)) error {
	return retry.RetryOnConflict(retry.DefaultRetry, func() error {
		node, err := c.clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		mutate(node)
		_, err = c.clientset.CoreV1().Nodes().Update(ctx, node, metav1.UpdateOptions{})
		return err
	})
}

// ParseTaint converts key=value:Effect into a node taint.
func ParseTaint(l config.Label) (corev1.Taint, error) {
	value, effect, ok := strings.Cut(l.Value, ":")
	if l.Key == "" || !ok {
		return corev1.Taint{}, fmt.Errorf("invalid taint %q: expected key=value:Effect", l.String())
	}
	switch corev1.TaintEffect(effect) {
	case corev1.TaintEffectNoSchedule, corev1.TaintEffectPreferNoSchedule, corev1.TaintEffectNoExecute:
	default:
		return corev1.Taint{}, fmt.Errorf("invalid taint %q: unknown effect %s", l.String(), effect)
	}
	return corev1.Taint{Key: l.Key, Value: value, Effect: corev1.TaintEffect(effect)}, nil
}

func mergeTaint(taints []corev1.Taint, taint corev1.Taint) []corev1.Taint {
	for i := range taints {
		if taints[i].Key == taint.Key && taints[i].Effect == taint.Effect {
			taints[i].Value = taint.Value
			return taints
		}
	}
	return append(taints, taint)
}
