package cluster

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	kubebatch "k8s.io/api/batch/v1"
	kubecore "k8s.io/api/core/v1"
	kubeapierr "k8s.io/apimachinery/pkg/api/errors"

	"github.com/constructum-ci/constructum/pkg/domain"
	"github.com/constructum-ci/constructum/pkg/utils/retry"
)

// Outcome is the terminal condition of a workload.
type Outcome string

const (
	Succeeded Outcome = "Succeeded"
	Failed    Outcome = "Failed"
)

// BlobSink receives archived pod logs. Satisfied by objectstore.Bucket.
type BlobSink interface {
	Put(ctx context.Context, key string, payload []byte) error
}

// Cluster is the namespaced gateway the supervisor and the admission
// server go through for every orchestrator mutation.
//
// All creates treat AlreadyExists as success and all deletes treat
// NotFound as success, so every operation is safe to re-run during
// recovery.
type Cluster struct {
	client       K8sClient
	namespace    string
	pollInterval time.Duration
}

type Option func(*Cluster)

// WithPollInterval overrides the completion/readiness polling cadence.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Cluster) { c.pollInterval = interval }
}

func Attach(client K8sClient, namespace string, options ...Option) Cluster {
	c := Cluster{client: client, namespace: namespace, pollInterval: 3 * time.Second}
	for _, opt := range options {
		opt(&c)
	}
	return c
}

func (c Cluster) Namespace() string {
	return c.namespace
}

// EnsureScratchVolume creates the pipeline's scratch volume if it does
// not exist yet.
func (c Cluster) EnsureScratchVolume(ctx context.Context, pipelineID uuid.UUID) error {
	_, err := c.client.CreatePVC(ctx, c.namespace, ScratchVolumeSpec(pipelineID))
	if err != nil && !kubeapierr.IsAlreadyExists(err) {
		return fmt.Errorf("creating scratch volume for pipeline %s: %w", pipelineID, err)
	}
	return nil
}

// EnsureClientWorkload creates the pipeline's client workload if it does
// not exist yet.
func (c Cluster) EnsureClientWorkload(ctx context.Context, w ClientWorkload) error {
	_, err := c.client.CreateJob(ctx, c.namespace, ClientWorkloadSpec(w))
	if err != nil && !kubeapierr.IsAlreadyExists(err) {
		return fmt.Errorf("creating client workload for pipeline %s: %w", w.PipelineID, err)
	}
	return nil
}

// CreateStepWorkload creates the workload executing one step.
func (c Cluster) CreateStepWorkload(ctx context.Context, w StepWorkload) error {
	_, err := c.client.CreateJob(ctx, c.namespace, StepWorkloadSpec(w))
	if err != nil && !kubeapierr.IsAlreadyExists(err) {
		return fmt.Errorf("creating workload for step %s of pipeline %s: %w", w.StepName, w.PipelineID, err)
	}
	return nil
}

// WaitTerminal blocks until the workload observes a Complete or Failed
// condition, and reports which. Safe to invoke against an
// already-terminated workload.
func (c Cluster) WaitTerminal(ctx context.Context, workloadName string) (Outcome, error) {
	return retry.Blocking(ctx, retry.StaticBackoff(c.pollInterval), func() (Outcome, error) {
		job, err := c.client.GetJob(ctx, c.namespace, workloadName)
		if err != nil {
			return "", fmt.Errorf("watching workload %s: %w", workloadName, err)
		}
		for _, cond := range job.Status.Conditions {
			if cond.Status != kubecore.ConditionTrue {
				continue
			}
			switch cond.Type {
			case kubebatch.JobComplete:
				return Succeeded, nil
			case kubebatch.JobFailed:
				return Failed, nil
			}
		}
		return "", retry.ErrRetry
	})
}

// StreamLogs follows the log streams of the workload's pods and feeds
// each chunk to sink, tagged with the pod name. It returns when every
// stream has closed, i.e. when the pods have terminated.
//
// Before opening a stream it polls for the pod to leave Pending, since a
// just-created workload has no log endpoint yet.
func (c Cluster) StreamLogs(ctx context.Context, workloadName string, container string, sink func(pod string, chunk []byte) error) error {
	pods, err := c.waitForPods(ctx, workloadName)
	if err != nil {
		return err
	}

	for _, pod := range pods {
		if err := c.streamPod(ctx, pod, container, sink); err != nil {
			return err
		}
	}
	return nil
}

func (c Cluster) waitForPods(ctx context.Context, workloadName string) ([]string, error) {
	return retry.Blocking(ctx, retry.StaticBackoff(c.pollInterval), func() ([]string, error) {
		pods, err := c.client.FindPods(ctx, c.namespace, "job-name="+workloadName)
		if err != nil {
			return nil, fmt.Errorf("finding pods of workload %s: %w", workloadName, err)
		}
		if len(pods) == 0 {
			return nil, retry.ErrRetry
		}
		names := make([]string, 0, len(pods))
		for _, pod := range pods {
			if pod.Status.Phase == kubecore.PodPending {
				return nil, retry.ErrRetry
			}
			names = append(names, pod.Name)
		}
		return names, nil
	})
}

func (c Cluster) streamPod(ctx context.Context, podName string, container string, sink func(pod string, chunk []byte) error) error {
	stream, err := c.client.Log(ctx, c.namespace, podName, container, true)
	if err != nil {
		return fmt.Errorf("opening log stream of pod %s: %w", podName, err)
	}
	defer stream.Close()

	buf := make([]byte, 4096)
	for {
		n, err := stream.Read(buf)
		if 0 < n {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if serr := sink(podName, chunk); serr != nil {
				return serr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading log stream of pod %s: %w", podName, err)
		}
	}
}

// ArchiveLogs fetches the full logs of each pod of the workload and puts
// them into sink under <pod>-<workload>.txt. It returns the keys written.
func (c Cluster) ArchiveLogs(ctx context.Context, workloadName string, container string, sink BlobSink) ([]string, error) {
	pods, err := c.client.FindPods(ctx, c.namespace, "job-name="+workloadName)
	if err != nil {
		return nil, fmt.Errorf("finding pods of workload %s: %w", workloadName, err)
	}

	keys := []string{}
	for _, pod := range pods {
		stream, err := c.client.Log(ctx, c.namespace, pod.Name, container, false)
		if err != nil {
			return keys, fmt.Errorf("fetching logs of pod %s: %w", pod.Name, err)
		}
		payload, err := io.ReadAll(stream)
		stream.Close()
		if err != nil {
			return keys, fmt.Errorf("fetching logs of pod %s: %w", pod.Name, err)
		}

		key := domain.ArchiveKey(pod.Name, workloadName)
		if err := sink.Put(ctx, key, payload); err != nil {
			return keys, fmt.Errorf("archiving logs of pod %s: %w", pod.Name, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// DeleteWorkload removes the workload and its pods. Gone already is fine.
func (c Cluster) DeleteWorkload(ctx context.Context, workloadName string) error {
	pods, err := c.client.FindPods(ctx, c.namespace, "job-name="+workloadName)
	if err != nil {
		return fmt.Errorf("finding pods of workload %s: %w", workloadName, err)
	}
	for _, pod := range pods {
		if err := c.client.DeletePod(ctx, c.namespace, pod.Name); err != nil && !kubeapierr.IsNotFound(err) {
			return fmt.Errorf("deleting pod %s: %w", pod.Name, err)
		}
	}
	if err := c.client.DeleteJob(ctx, c.namespace, workloadName); err != nil && !kubeapierr.IsNotFound(err) {
		return fmt.Errorf("deleting workload %s: %w", workloadName, err)
	}
	return nil
}

// DeleteScratchVolume removes every volume labeled for the pipeline.
func (c Cluster) DeleteScratchVolume(ctx context.Context, pipelineID uuid.UUID) error {
	pvcs, err := c.client.FindPVCs(ctx, c.namespace, domain.PipelineLabel+"="+pipelineID.String())
	if err != nil {
		return fmt.Errorf("finding scratch volumes of pipeline %s: %w", pipelineID, err)
	}
	for _, pvc := range pvcs {
		if err := c.client.DeletePVC(ctx, c.namespace, pvc.Name); err != nil && !kubeapierr.IsNotFound(err) {
			return fmt.Errorf("deleting scratch volume %s: %w", pvc.Name, err)
		}
	}
	return nil
}
