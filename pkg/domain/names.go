package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// PipelineLabel is the label keyed on every cluster resource owned by a
// pipeline. Deletes select on it, so resources are reclaimed even when a
// name is lost.
const PipelineLabel = "constructum-pipeline"

// ScratchVolumeName is the name of the pipeline's shared scratch PVC.
func ScratchVolumeName(pipelineID uuid.UUID) string {
	return fmt.Sprintf("pipeline-%s-pvc", pipelineID)
}

// ClientWorkloadName is the name of the workload running the supervisor
// program for the pipeline.
func ClientWorkloadName(pipelineID uuid.UUID) string {
	return fmt.Sprintf("pipeline-%s-client", pipelineID)
}

// StepWorkloadName is the name of the workload executing a single step.
// stepName must already be normalized (see manifest.NormalizeName).
func StepWorkloadName(pipelineID uuid.UUID, stepName string) string {
	return fmt.Sprintf("pipeline-%s-%s", pipelineID, stepName)
}

// ContainerName names the single container of a workload.
func ContainerName(workloadName string) string {
	return workloadName + "-container"
}

// LogCacheKey is the live-log cache key for a step.
//
// The format is a wire contract with log readers:
// job:<workload_name>:step:<step_name>.
func LogCacheKey(workloadName string, stepName string) string {
	return fmt.Sprintf("job:%s:step:%s", workloadName, stepName)
}

// ArchiveKey is the object store key of a pod's archived logs.
func ArchiveKey(podName string, workloadName string) string {
	return fmt.Sprintf("%s-%s.txt", podName, workloadName)
}
