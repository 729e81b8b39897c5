package mocks

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/constructum-ci/constructum/pkg/db"
	"github.com/constructum-ci/constructum/pkg/domain"
)

type PipelineInterface struct {
	Impl struct {
		Admit          func(ctx context.Context, repositoryID uuid.UUID, commit string) (domain.Pipeline, error)
		Get            func(ctx context.Context, id uuid.UUID) (domain.Pipeline, error)
		List              func(ctx context.Context) ([]domain.Pipeline, error)
		ListForRepository func(ctx context.Context, repositoryID uuid.UUID) ([]domain.Pipeline, error)
		ListUnfinished    func(ctx context.Context) ([]domain.Pipeline, error)
		Finish         func(ctx context.Context, id uuid.UUID, status domain.PipelineStatus) error
	}

	Calls struct {
		Admit CallLog[struct {
			RepositoryID uuid.UUID
			Commit       string
		}]
		Get            CallLog[uuid.UUID]
		List              CallLog[struct{}]
		ListForRepository CallLog[uuid.UUID]
		ListUnfinished    CallLog[struct{}]
		Finish         CallLog[struct {
			ID     uuid.UUID
			Status domain.PipelineStatus
		}]
	}
}

func NewPipelineInterface() *PipelineInterface {
	return &PipelineInterface{}
}

var _ db.PipelineInterface = &PipelineInterface{}

func (m *PipelineInterface) Admit(ctx context.Context, repositoryID uuid.UUID, commit string) (domain.Pipeline, error) {
	m.Calls.Admit = append(m.Calls.Admit, struct {
		RepositoryID uuid.UUID
		Commit       string
	}{RepositoryID: repositoryID, Commit: commit})
	if m.Impl.Admit != nil {
		return m.Impl.Admit(ctx, repositoryID, commit)
	}
	panic(errors.New("it should not be called"))
}

func (m *PipelineInterface) Get(ctx context.Context, id uuid.UUID) (domain.Pipeline, error) {
	m.Calls.Get = append(m.Calls.Get, id)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, id)
	}
	panic(errors.New("it should not be called"))
}

func (m *PipelineInterface) List(ctx context.Context) ([]domain.Pipeline, error) {
	m.Calls.List = append(m.Calls.List, struct{}{})
	if m.Impl.List != nil {
		return m.Impl.List(ctx)
	}
	panic(errors.New("it should not be called"))
}

func (m *PipelineInterface) ListForRepository(ctx context.Context, repositoryID uuid.UUID) ([]domain.Pipeline, error) {
	m.Calls.ListForRepository = append(m.Calls.ListForRepository, repositoryID)
	if m.Impl.ListForRepository != nil {
		return m.Impl.ListForRepository(ctx, repositoryID)
	}
	panic(errors.New("it should not be called"))
}

func (m *PipelineInterface) ListUnfinished(ctx context.Context) ([]domain.Pipeline, error) {
	m.Calls.ListUnfinished = append(m.Calls.ListUnfinished, struct{}{})
	if m.Impl.ListUnfinished != nil {
		return m.Impl.ListUnfinished(ctx)
	}
	panic(errors.New("it should not be called"))
}

func (m *PipelineInterface) Finish(ctx context.Context, id uuid.UUID, status domain.PipelineStatus) error {
	m.Calls.Finish = append(m.Calls.Finish, struct {
		ID     uuid.UUID
		Status domain.PipelineStatus
	}{ID: id, Status: status})
	if m.Impl.Finish != nil {
		return m.Impl.Finish(ctx, id, status)
	}
	panic(errors.New("it should not be called"))
}
