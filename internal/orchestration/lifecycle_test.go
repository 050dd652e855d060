package orchestration_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/k3zner/internal/addons/k8sclient"
	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/orchestration"
	"github.com/imamik/k3zner/internal/provisioning"
	"github.com/imamik/k3zner/internal/provisioning/upgrade"
	"github.com/imamik/k3zner/internal/util/labels"
)

var _ = Describe("Cluster lifecycle", func() {
	var (
		h          *orchestration.Harness
		reconciler *orchestration.Reconciler
	)

	BeforeEach(func() {
		var err error
		h, err = orchestration.NewHarness(GinkgoT().TempDir(), 3)
		Expect(err).NotTo(HaveOccurred())
		reconciler = h.Reconciler(orchestration.WithObserver(
			provisioning.NewLogrObserver(logf.Log.WithName("lifecycle"))))
	})

	Context("when creating an HA cluster", func() {
		var state *provisioning.State

		BeforeEach(func() {
			var err error
			state, err = reconciler.Create(ctx)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should create one of each shared resource", func() {
			Expect(h.Cloud.Counts()).To(Equal(map[string]int{
				"network":         1,
				"firewall":        1,
				"ssh key":         1,
				"placement group": 2,
				"load balancer":   1,
				"server":          5,
			}))
		})

		It("should point the kubeconfig at the load balancer", func() {
			Expect(state.LoadBalancer).NotTo(BeNil())
			lbIP := state.LoadBalancer.PublicNet.IPv4.IP.String()
			Expect(string(state.Kubeconfig)).To(ContainSubstring("https://" + lbIP + ":6443"))
			Expect(h.Spec.KubeconfigPath).To(BeAnExistingFile())
		})

		It("should bootstrap the leader before any follower", func() {
			leader := state.Topology.FirstMaster().Name
			var order []string
			for _, call := range h.Executor.Calls() {
				if strings.Contains(call.Command, "get.k3s.io") {
					order = append(order, call.Host.Name)
				}
			}
			Expect(order).To(HaveLen(5))
			Expect(order[0]).To(Equal(leader))
			Expect(h.Executor.CommandsFor(leader)).To(ContainElement(ContainSubstring("--cluster-init")))
		})

		It("should label every server with cluster and role", func() {
			for _, s := range state.Topology.All() {
				Expect(s.Labels).To(HaveKeyWithValue(labels.KeyCluster, "demo"))
				Expect(s.Labels).To(HaveKey(labels.KeyRole))
			}
		})

		It("should create the hcloud secret and apply the add-ons", func() {
			secret, err := h.Clientset.CoreV1().Secrets("kube-system").Get(ctx, "hcloud", metav1.GetOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(secret.Data).To(HaveKeyWithValue("network", []byte("demo")))
			Expect(h.KubectlCalls()).To(HaveLen(3))
		})

		It("should be idempotent", func() {
			_, err := reconciler.Create(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(h.Cloud.CreateCalls("server")).To(Equal(5))
			Expect(h.Cloud.CreateCalls("load balancer")).To(Equal(1))
		})

		It("should submit upgrade plans and persist the new version", func() {
			Expect(reconciler.Upgrade(ctx, upgrade.ProvisionerOptions{TargetVersion: "v1.31.0+k3s1"})).To(Succeed())

			plan, err := h.Dynamic.Resource(k8sclient.PlanGVR).Namespace(upgrade.PlanNamespace).
				Get(ctx, upgrade.AgentPlanName, metav1.GetOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(plan.Object["spec"]).To(HaveKeyWithValue("version", "v1.31.0+k3s1"))

			reloaded, err := config.LoadFile(h.SpecPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.K3sVersion).To(Equal("v1.31.0+k3s1"))
		})

		It("should refuse a downgrade", func() {
			err := reconciler.Upgrade(ctx, upgrade.ProvisionerOptions{TargetVersion: "v1.29.0+k3s1"})
			Expect(err).To(MatchError(ContainSubstring("must be newer")))
		})

		It("should leave nothing behind after delete", func() {
			Expect(reconciler.Delete(ctx)).To(Succeed())
			for kind, n := range h.Cloud.Counts() {
				Expect(n).To(BeZero(), "%s left after delete", kind)
			}
		})
	})

	Context("when deleting a cluster that was never created", func() {
		It("should succeed without changes", func() {
			Expect(reconciler.Delete(ctx)).To(Succeed())
			Expect(h.Cloud.CreateCalls("network")).To(BeZero())
		})
	})
})
