package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"network", Network("demo"), "demo"},
		{"firewall", Firewall("demo"), "demo"},
		{"ssh key", SSHKey("demo"), "demo"},
		{"load balancer", APILoadBalancer("demo"), "demo-api"},
		{"masters group", MastersPlacementGroup("demo"), "demo-masters"},
		{"pool group", PlacementGroup("demo", "small"), "demo-small"},
		{"master id", MasterInstanceID(2), "master2"},
		{"worker id", WorkerInstanceID("small", 3), "pool-small-worker3"},
		{"master server", Server("demo", "cpx21", MasterInstanceID(1)), "demo-cpx21-master1"},
		{"worker server", Server("demo", "cpx31", WorkerInstanceID("big", 1)), "demo-cpx31-pool-big-worker1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.got)
		})
	}
}
