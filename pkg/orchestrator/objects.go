package orchestrator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cuemby/nbsched/pkg/types"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

const (
	// ContainerName is the notebook container inside every workload pod
	ContainerName = "notebook-site"

	// BackoffLimit bounds pod retries before the job gives up
	BackoffLimit int32 = 4

	// DeleteGracePeriod is passed to every delete call, in seconds
	DeleteGracePeriod int64 = 5

	// ProgramEnv names the env variable holding the notebook file
	ProgramEnv = "PY_FILE"

	volumeName = "vol"
	dataPath   = "/data"
	scriptPath = "/scripts"
)

// Options are the cluster-wide knobs for object construction
type Options struct {
	Namespace   string
	Image       string
	VolumeClaim string
}

// BuildJob renders the Job for a workload spec
func BuildJob(spec WorkloadSpec, opts Options) (*batchv1.Job, error) {
	cpu, err := resource.ParseQuantity(spec.Resources.CPU)
	if err != nil {
		return nil, fmt.Errorf("invalid cpu share %q: %w", spec.Resources.CPU, err)
	}
	memory, err := resource.ParseQuantity(spec.Resources.Memory)
	if err != nil {
		return nil, fmt.Errorf("invalid memory share %q: %w", spec.Resources.Memory, err)
	}

	labels := map[string]string{types.WorkloadLabel: strconv.Itoa(spec.ID)}
	backoff := BackoffLimit

	container := corev1.Container{
		Name:  ContainerName,
		Image: opts.Image,
		Env: []corev1.EnvVar{
			{Name: ProgramEnv, Value: spec.Program},
		},
		VolumeMounts: []corev1.VolumeMount{
			{Name: volumeName, MountPath: dataPath, SubPath: "data"},
			{Name: volumeName, MountPath: scriptPath, SubPath: ScriptSubPath(spec.Owner, spec.ID)},
		},
		Resources: corev1.ResourceRequirements{
			Limits: corev1.ResourceList{
				corev1.ResourceCPU:    cpu,
				corev1.ResourceMemory: memory,
			},
			Requests: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("0"),
				corev1.ResourceMemory: resource.MustParse("0"),
			},
		},
	}

	return &batchv1.Job{
		TypeMeta: metav1.TypeMeta{APIVersion: "batch/v1", Kind: "Job"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      types.WorkloadName(spec.ID),
			Namespace: opts.Namespace,
			Labels:    labels,
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: &backoff,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					Containers:    []corev1.Container{container},
					Volumes: []corev1.Volume{
						{
							Name: volumeName,
							VolumeSource: corev1.VolumeSource{
								PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
									ClaimName: opts.VolumeClaim,
								},
							},
						},
					},
				},
			},
		},
	}, nil
}

// BuildService renders the NodePort Service exposing a workload
func BuildService(id int, opts Options) *corev1.Service {
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      types.EndpointName(id),
			Namespace: opts.Namespace,
			Labels:    map[string]string{types.EndpointLabel: strconv.Itoa(id)},
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeNodePort,
			Selector: map[string]string{types.WorkloadLabel: strconv.Itoa(id)},
			Ports: []corev1.ServicePort{
				{
					Port:       types.NotebookPort,
					TargetPort: intstr.FromInt32(types.NotebookPort),
					NodePort:   int32(types.NodePort(id)),
				},
			},
		},
	}
}

// ScriptSubPath is the volume sub path holding a task's scripts. It is scoped
// by owner and task id so retries of different tasks never share files.
func ScriptSubPath(owner string, id int) string {
	return fmt.Sprintf("internal/%s/%d", sanitizeOwner(owner), id)
}

// sanitizeOwner keeps owner names usable as a single path element
func sanitizeOwner(owner string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(owner))

	cleaned = strings.Trim(cleaned, ".")
	if cleaned == "" {
		return "_"
	}
	return cleaned
}
