package mocks

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/constructum-ci/constructum/pkg/db"
	"github.com/constructum-ci/constructum/pkg/domain"
)

type StepInterface struct {
	Impl struct {
		CreateBatch     func(ctx context.Context, steps []domain.Step) error
		Get             func(ctx context.Context, id uuid.UUID) (domain.Step, error)
		ListForPipeline func(ctx context.Context, pipelineID uuid.UUID) ([]domain.Step, error)
		SetStatus       func(ctx context.Context, id uuid.UUID, status domain.StepStatus) error
		AppendLogKeys   func(ctx context.Context, id uuid.UUID, keys ...string) error
	}

	Calls struct {
		CreateBatch     CallLog[[]domain.Step]
		Get             CallLog[uuid.UUID]
		ListForPipeline CallLog[uuid.UUID]
		SetStatus       CallLog[struct {
			ID     uuid.UUID
			Status domain.StepStatus
		}]
		AppendLogKeys CallLog[struct {
			ID   uuid.UUID
			Keys []string
		}]
	}
}

func NewStepInterface() *StepInterface {
	return &StepInterface{}
}

var _ db.StepInterface = &StepInterface{}

func (m *StepInterface) CreateBatch(ctx context.Context, steps []domain.Step) error {
	m.Calls.CreateBatch = append(m.Calls.CreateBatch, steps)
	if m.Impl.CreateBatch != nil {
		return m.Impl.CreateBatch(ctx, steps)
	}
	panic(errors.New("it should not be called"))
}

func (m *StepInterface) Get(ctx context.Context, id uuid.UUID) (domain.Step, error) {
	m.Calls.Get = append(m.Calls.Get, id)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, id)
	}
	panic(errors.New("it should not be called"))
}

func (m *StepInterface) ListForPipeline(ctx context.Context, pipelineID uuid.UUID) ([]domain.Step, error) {
	m.Calls.ListForPipeline = append(m.Calls.ListForPipeline, pipelineID)
	if m.Impl.ListForPipeline != nil {
		return m.Impl.ListForPipeline(ctx, pipelineID)
	}
	panic(errors.New("it should not be called"))
}

func (m *StepInterface) SetStatus(ctx context.Context, id uuid.UUID, status domain.StepStatus) error {
	m.Calls.SetStatus = append(m.Calls.SetStatus, struct {
		ID     uuid.UUID
		Status domain.StepStatus
	}{ID: id, Status: status})
	if m.Impl.SetStatus != nil {
		return m.Impl.SetStatus(ctx, id, status)
	}
	panic(errors.New("it should not be called"))
}

func (m *StepInterface) AppendLogKeys(ctx context.Context, id uuid.UUID, keys ...string) error {
	m.Calls.AppendLogKeys = append(m.Calls.AppendLogKeys, struct {
		ID   uuid.UUID
		Keys []string
	}{ID: id, Keys: keys})
	if m.Impl.AppendLogKeys != nil {
		return m.Impl.AppendLogKeys(ctx, id, keys...)
	}
	panic(errors.New("it should not be called"))
}
