package mock

import (
	"context"
	"errors"
	"io"

	kubebatch "k8s.io/api/batch/v1"
	kubecore "k8s.io/api/core/v1"

	"github.com/constructum-ci/constructum/pkg/cluster"
)

// NewCluster returns a cluster.Cluster over a MockClient.
//
// You can fake orchestrator behaviours or spy usage through the mock.
func NewCluster(options ...cluster.Option) (cluster.Cluster, *MockClient) {
	client := NewMockClient()
	return cluster.Attach(client, "fake-namespace", options...), client
}

type MockClient struct {
	Impl struct {
		GetPVC    func(ctx context.Context, namespace string, name string) (*kubecore.PersistentVolumeClaim, error)
		CreatePVC func(ctx context.Context, namespace string, pvc *kubecore.PersistentVolumeClaim) (*kubecore.PersistentVolumeClaim, error)
		DeletePVC func(ctx context.Context, namespace string, name string) error
		FindPVCs  func(ctx context.Context, namespace string, labelSelector string) ([]kubecore.PersistentVolumeClaim, error)

		GetJob    func(ctx context.Context, namespace string, name string) (*kubebatch.Job, error)
		CreateJob func(ctx context.Context, namespace string, job *kubebatch.Job) (*kubebatch.Job, error)
		DeleteJob func(ctx context.Context, namespace string, name string) error

		GetPod    func(ctx context.Context, namespace string, name string) (*kubecore.Pod, error)
		DeletePod func(ctx context.Context, namespace string, name string) error
		FindPods  func(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Pod, error)

		Log func(ctx context.Context, namespace string, podname string, container string, follow bool) (io.ReadCloser, error)
	}
	Called struct {
		GetPVC    uint64
		CreatePVC uint64
		DeletePVC uint64
		FindPVCs  uint64

		GetJob    uint64
		CreateJob uint64
		DeleteJob uint64

		GetPod    uint64
		DeletePod uint64
		FindPods  uint64

		Log uint64
	}
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

var _ cluster.K8sClient = &MockClient{}

func (m *MockClient) GetPVC(ctx context.Context, namespace string, name string) (*kubecore.PersistentVolumeClaim, error) {
	m.Called.GetPVC += 1
	if m.Impl.GetPVC == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.GetPVC(ctx, namespace, name)
}

func (m *MockClient) CreatePVC(ctx context.Context, namespace string, pvc *kubecore.PersistentVolumeClaim) (*kubecore.PersistentVolumeClaim, error) {
	m.Called.CreatePVC += 1
	if m.Impl.CreatePVC == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.CreatePVC(ctx, namespace, pvc)
}

func (m *MockClient) DeletePVC(ctx context.Context, namespace string, name string) error {
	m.Called.DeletePVC += 1
	if m.Impl.DeletePVC == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.DeletePVC(ctx, namespace, name)
}

func (m *MockClient) FindPVCs(ctx context.Context, namespace string, labelSelector string) ([]kubecore.PersistentVolumeClaim, error) {
	m.Called.FindPVCs += 1
	if m.Impl.FindPVCs == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.FindPVCs(ctx, namespace, labelSelector)
}

func (m *MockClient) GetJob(ctx context.Context, namespace string, name string) (*kubebatch.Job, error) {
	m.Called.GetJob += 1
	if m.Impl.GetJob == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.GetJob(ctx, namespace, name)
}

func (m *MockClient) CreateJob(ctx context.Context, namespace string, job *kubebatch.Job) (*kubebatch.Job, error) {
	m.Called.CreateJob += 1
	if m.Impl.CreateJob == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.CreateJob(ctx, namespace, job)
}

func (m *MockClient) DeleteJob(ctx context.Context, namespace string, name string) error {
	m.Called.DeleteJob += 1
	if m.Impl.DeleteJob == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.DeleteJob(ctx, namespace, name)
}

func (m *MockClient) GetPod(ctx context.Context, namespace string, name string) (*kubecore.Pod, error) {
	m.Called.GetPod += 1
	if m.Impl.GetPod == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.GetPod(ctx, namespace, name)
}

func (m *MockClient) DeletePod(ctx context.Context, namespace string, name string) error {
	m.Called.DeletePod += 1
	if m.Impl.DeletePod == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.DeletePod(ctx, namespace, name)
}

func (m *MockClient) FindPods(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Pod, error) {
	m.Called.FindPods += 1
	if m.Impl.FindPods == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.FindPods(ctx, namespace, labelSelector)
}

func (m *MockClient) Log(ctx context.Context, namespace string, podname string, container string, follow bool) (io.ReadCloser, error) {
	m.Called.Log += 1
	if m.Impl.Log == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Log(ctx, namespace, podname, container, follow)
}
