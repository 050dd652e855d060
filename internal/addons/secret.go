package addons

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Secret the cloud controller manager and the CSI driver read their API
// credentials from.
const (
	HCloudSecretNamespace = "kube-system"
	HCloudSecretName      = "hcloud"
)

// HCloudSecret builds the hcloud secret. network is the name of the private
// network the nodes are attached to.
func HCloudSecret(token, network string) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      HCloudSecretName,
			Namespace: HCloudSecretNamespace,
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{
			"token":   []byte(token),
			"network": []byte(network),
		},
	}
}
