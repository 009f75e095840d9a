package orchestrator

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/cuemby/nbsched/pkg/log"
	"github.com/cuemby/nbsched/pkg/types"
	"github.com/rs/zerolog"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// KubeClient implements Client on a Kubernetes clientset
type KubeClient struct {
	clientset kubernetes.Interface
	streamer  Streamer
	opts      Options
	logger    zerolog.Logger
}

// NewKubeClient creates a client from an existing clientset
func NewKubeClient(clientset kubernetes.Interface, streamer Streamer, opts Options) *KubeClient {
	return &KubeClient{
		clientset: clientset,
		streamer:  streamer,
		opts:      opts,
		logger:    log.WithComponent("orchestrator"),
	}
}

// NewForConfig builds a client from a kubeconfig path, or from the in-cluster
// service account when the path is empty
func NewForConfig(kubeconfig string, opts Options) (*KubeClient, error) {
	var (
		config *rest.Config
		err    error
	)
	if kubeconfig == "" {
		config, err = rest.InClusterConfig()
	} else {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	streamer := NewSPDYStreamer(config, clientset.CoreV1().RESTClient())
	return NewKubeClient(clientset, streamer, opts), nil
}

// CreateWorkload implements Client
func (c *KubeClient) CreateWorkload(ctx context.Context, spec WorkloadSpec) error {
	name := types.WorkloadName(spec.ID)

	job, err := BuildJob(spec, c.opts)
	if err != nil {
		return &Error{Op: "create workload", Name: name, Kind: ErrMutationFailed, Err: err}
	}

	_, err = c.clientset.BatchV1().Jobs(c.opts.Namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		return wrapAPIError("create workload", name, err, ErrMutationFailed)
	}

	c.logger.Debug().Str("workload", name).Msg("job created")
	return nil
}

// ListWorkloads implements Client. A job is owned only when its name is the
// one its id label derives; every other job is ignored.
func (c *KubeClient) ListWorkloads(ctx context.Context) ([]types.Workload, error) {
	list, err := c.clientset.BatchV1().Jobs(c.opts.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: types.WorkloadLabel,
	})
	if err != nil {
		return nil, wrapAPIError("list workloads", "", err, ErrUnavailable)
	}

	workloads := make([]types.Workload, 0, len(list.Items))
	for _, job := range list.Items {
		if !types.IsWorkloadName(job.Name) {
			continue
		}
		id, err := types.ParseID(job.Labels[types.WorkloadLabel])
		if err != nil {
			c.logger.Warn().Err(err).Str("workload", job.Name).Msg("ignoring job with bad id label")
			continue
		}
		if job.Name != types.WorkloadName(id) {
			c.logger.Debug().Str("workload", job.Name).Int("task_id", id).Msg("ignoring job not named after its id label")
			continue
		}
		workloads = append(workloads, types.Workload{
			ID:        id,
			Name:      job.Name,
			Succeeded: job.Status.Succeeded > 0,
		})
	}

	sort.Slice(workloads, func(i, j int) bool { return workloads[i].ID < workloads[j].ID })
	return workloads, nil
}

// DeleteWorkload implements Client
func (c *KubeClient) DeleteWorkload(ctx context.Context, id int) error {
	name := types.WorkloadName(id)
	err := c.clientset.BatchV1().Jobs(c.opts.Namespace).Delete(ctx, name, deleteOptions())
	if err != nil {
		return wrapAPIError("delete workload", name, err, ErrMutationFailed)
	}

	c.logger.Debug().Str("workload", name).Msg("job deleted")
	return nil
}

// CreateEndpoint implements Client
func (c *KubeClient) CreateEndpoint(ctx context.Context, id int) error {
	name := types.EndpointName(id)
	svc := BuildService(id, c.opts)

	_, err := c.clientset.CoreV1().Services(c.opts.Namespace).Create(ctx, svc, metav1.CreateOptions{})
	if err != nil {
		return wrapAPIError("create endpoint", name, err, ErrMutationFailed)
	}

	c.logger.Debug().Str("endpoint", name).Int("node_port", types.NodePort(id)).Msg("service created")
	return nil
}

// ListEndpoints implements Client. Like ListWorkloads it only reports
// services named after their id label.
func (c *KubeClient) ListEndpoints(ctx context.Context) ([]int, error) {
	list, err := c.clientset.CoreV1().Services(c.opts.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: types.EndpointLabel,
	})
	if err != nil {
		return nil, wrapAPIError("list endpoints", "", err, ErrUnavailable)
	}

	ids := make([]int, 0, len(list.Items))
	for _, svc := range list.Items {
		if !types.IsEndpointName(svc.Name) {
			continue
		}
		id, err := types.ParseID(svc.Labels[types.EndpointLabel])
		if err != nil {
			c.logger.Warn().Err(err).Str("endpoint", svc.Name).Msg("ignoring service with bad id label")
			continue
		}
		if svc.Name != types.EndpointName(id) {
			c.logger.Debug().Str("endpoint", svc.Name).Int("task_id", id).Msg("ignoring service not named after its id label")
			continue
		}
		ids = append(ids, id)
	}

	sort.Ints(ids)
	return ids, nil
}

// DeleteEndpoint implements Client
func (c *KubeClient) DeleteEndpoint(ctx context.Context, id int) error {
	name := types.EndpointName(id)
	err := c.clientset.CoreV1().Services(c.opts.Namespace).Delete(ctx, name, deleteOptions())
	if err != nil {
		return wrapAPIError("delete endpoint", name, err, ErrMutationFailed)
	}

	c.logger.Debug().Str("endpoint", name).Msg("service deleted")
	return nil
}

// ExecProbe implements Client
func (c *KubeClient) ExecProbe(ctx context.Context, workloadName string, command []string) (LineReader, error) {
	pod, err := c.runningPod(ctx, workloadName)
	if err != nil {
		return nil, &Error{Op: "exec probe", Name: workloadName, Kind: ErrProbeNotReady, Err: err}
	}

	streamCtx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()

	go func() {
		err := c.streamer.Stream(streamCtx, c.opts.Namespace, pod, ContainerName, command, pw)
		_ = pw.CloseWithError(err)
	}()

	return NewLineStream(pr, func() {
		cancel()
		_ = pr.Close()
	}), nil
}

// runningPod finds a running pod created for the named job
func (c *KubeClient) runningPod(ctx context.Context, workloadName string) (string, error) {
	pods, err := c.clientset.CoreV1().Pods(c.opts.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "job-name=" + workloadName,
	})
	if err != nil {
		return "", err
	}

	for _, pod := range pods.Items {
		if pod.Status.Phase == corev1.PodRunning && pod.DeletionTimestamp == nil {
			return pod.Name, nil
		}
	}
	return "", fmt.Errorf("no running pod for %s", workloadName)
}

func deleteOptions() metav1.DeleteOptions {
	propagation := metav1.DeletePropagationForeground
	grace := DeleteGracePeriod
	return metav1.DeleteOptions{
		PropagationPolicy:  &propagation,
		GracePeriodSeconds: &grace,
	}
}
