package orchestrator

import (
	"context"
	"io"
	"net/http"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
)

// Streamer runs a command in a pod container and copies its stdout to w.
// It returns when the command exits or ctx is cancelled.
type Streamer interface {
	Stream(ctx context.Context, namespace, pod, container string, command []string, stdout io.Writer) error
}

// spdyStreamer executes over the pods/exec subresource
type spdyStreamer struct {
	config *rest.Config
	client rest.Interface
}

// NewSPDYStreamer returns a Streamer using the SPDY exec protocol
func NewSPDYStreamer(config *rest.Config, client rest.Interface) Streamer {
	return &spdyStreamer{config: config, client: client}
}

func (s *spdyStreamer) Stream(ctx context.Context, namespace, pod, container string, command []string, stdout io.Writer) error {
	req := s.client.Post().
		Resource("pods").
		Name(pod).
		Namespace(namespace).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: container,
			Command:   command,
			Stdout:    true,
		}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(s.config, http.MethodPost, req.URL())
	if err != nil {
		return err
	}

	return executor.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdout: stdout,
	})
}
