package cluster

import (
	"github.com/google/uuid"
	kubebatch "k8s.io/api/batch/v1"
	kubecore "k8s.io/api/core/v1"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/constructum-ci/constructum/pkg/configs"
	"github.com/constructum-ci/constructum/pkg/domain"
)

// ConfigMapName is the ConfigMap providing the client workload's
// environment (store endpoints, git server, ...).
const ConfigMapName = "constructum-cfg"

// ScratchMountPath is where every workload of a pipeline mounts the
// shared scratch volume.
const ScratchMountPath = "/data"

var scratchVolumeSize = resource.MustParse("2Gi")

// ScratchVolumeSpec is the pipeline's shared scratch volume:
// shared-writable, reclaimed by labeled delete.
func ScratchVolumeSpec(pipelineID uuid.UUID) *kubecore.PersistentVolumeClaim {
	return &kubecore.PersistentVolumeClaim{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:   domain.ScratchVolumeName(pipelineID),
			Labels: map[string]string{domain.PipelineLabel: pipelineID.String()},
		},
		Spec: kubecore.PersistentVolumeClaimSpec{
			AccessModes: []kubecore.PersistentVolumeAccessMode{
				kubecore.ReadWriteMany,
			},
			Resources: kubecore.VolumeResourceRequirements{
				Requests: kubecore.ResourceList{
					kubecore.ResourceStorage: scratchVolumeSize,
				},
			},
		},
	}
}

// ClientWorkload describes the workload running the supervisor program
// for one pipeline.
type ClientWorkload struct {
	PipelineID     uuid.UUID
	Image          string
	ServiceAccount string
}

// StepWorkload describes the workload executing a single step.
type StepWorkload struct {
	PipelineID uuid.UUID

	// StepName must already be normalized.
	StepName string

	Image string

	// Argv are the arguments of the shell entrypoint (`sh`).
	Argv []string

	WorkDir string

	// Annotations are the secret-injection annotations; empty when the
	// step injects no secrets.
	Annotations map[string]string

	// ServiceAccount grants secret access; set iff Annotations is.
	ServiceAccount string
}

// ClientWorkloadSpec builds the client job. Its environment comes from
// the constructum-cfg ConfigMap, plus the pipeline's own uuid.
func ClientWorkloadSpec(w ClientWorkload) *kubebatch.Job {
	name := domain.ClientWorkloadName(w.PipelineID)
	automount := true
	return jobSpec(w.PipelineID, name, kubecore.Container{
		Name:            domain.ContainerName(name),
		Image:           w.Image,
		ImagePullPolicy: kubecore.PullAlways,
		EnvFrom: []kubecore.EnvFromSource{
			{
				ConfigMapRef: &kubecore.ConfigMapEnvSource{
					LocalObjectReference: kubecore.LocalObjectReference{Name: ConfigMapName},
				},
			},
		},
		Env: []kubecore.EnvVar{
			{Name: configs.EnvPrefix + "PIPELINE_UUID", Value: w.PipelineID.String()},
		},
	}, nil, w.ServiceAccount, &automount)
}

// StepWorkloadSpec builds a step job: single shell entrypoint, scratch
// volume at /data, and the secret-injection annotations when the step
// uses secrets.
func StepWorkloadSpec(w StepWorkload) *kubebatch.Job {
	name := domain.StepWorkloadName(w.PipelineID, w.StepName)
	return jobSpec(w.PipelineID, name, kubecore.Container{
		Name:            domain.ContainerName(w.StepName),
		Image:           w.Image,
		ImagePullPolicy: kubecore.PullAlways,
		Command:         []string{"sh"},
		Args:            w.Argv,
		WorkingDir:      w.WorkDir,
	}, w.Annotations, w.ServiceAccount, nil)
}

func jobSpec(
	pipelineID uuid.UUID,
	name string,
	container kubecore.Container,
	annotations map[string]string,
	serviceAccount string,
	automountToken *bool,
) *kubebatch.Job {
	backoffLimit := int32(0)
	labels := map[string]string{domain.PipelineLabel: pipelineID.String()}

	container.VolumeMounts = append(container.VolumeMounts, kubecore.VolumeMount{
		Name:      "scratch",
		MountPath: ScratchMountPath,
	})

	return &kubebatch.Job{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:   name,
			Labels: labels,
		},
		Spec: kubebatch.JobSpec{
			BackoffLimit: &backoffLimit,
			Template: kubecore.PodTemplateSpec{
				ObjectMeta: kubeapimeta.ObjectMeta{
					Labels:      labels,
					Annotations: annotations,
				},
				Spec: kubecore.PodSpec{
					RestartPolicy:                kubecore.RestartPolicyNever,
					ServiceAccountName:           serviceAccount,
					AutomountServiceAccountToken: automountToken,
					Containers:                   []kubecore.Container{container},
					Volumes: []kubecore.Volume{
						{
							Name: "scratch",
							VolumeSource: kubecore.VolumeSource{
								PersistentVolumeClaim: &kubecore.PersistentVolumeClaimVolumeSource{
									ClaimName: domain.ScratchVolumeName(pipelineID),
								},
							},
						},
					},
				},
			},
		},
	}
}
