package mocks

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/constructum-ci/constructum/pkg/db"
	"github.com/constructum-ci/constructum/pkg/domain"
)

type RepositoryInterface struct {
	Impl struct {
		Register        func(ctx context.Context, repo domain.Repository) (domain.Repository, error)
		Get             func(ctx context.Context, id uuid.UUID) (domain.Repository, error)
		GetByExternalID func(ctx context.Context, externalID int64) (domain.Repository, error)
		List            func(ctx context.Context) ([]domain.Repository, error)
		Disable         func(ctx context.Context, id uuid.UUID) (domain.Repository, error)
	}

	Calls struct {
		Register        CallLog[domain.Repository]
		Get             CallLog[uuid.UUID]
		GetByExternalID CallLog[int64]
		List            CallLog[struct{}]
		Disable         CallLog[uuid.UUID]
	}
}

func NewRepositoryInterface() *RepositoryInterface {
	return &RepositoryInterface{}
}

var _ db.RepositoryInterface = &RepositoryInterface{}

func (m *RepositoryInterface) Register(ctx context.Context, repo domain.Repository) (domain.Repository, error) {
	m.Calls.Register = append(m.Calls.Register, repo)
	if m.Impl.Register != nil {
		return m.Impl.Register(ctx, repo)
	}
	panic(errors.New("it should not be called"))
}

func (m *RepositoryInterface) Get(ctx context.Context, id uuid.UUID) (domain.Repository, error) {
	m.Calls.Get = append(m.Calls.Get, id)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, id)
	}
	panic(errors.New("it should not be called"))
}

func (m *RepositoryInterface) GetByExternalID(ctx context.Context, externalID int64) (domain.Repository, error) {
	m.Calls.GetByExternalID = append(m.Calls.GetByExternalID, externalID)
	if m.Impl.GetByExternalID != nil {
		return m.Impl.GetByExternalID(ctx, externalID)
	}
	panic(errors.New("it should not be called"))
}

func (m *RepositoryInterface) List(ctx context.Context) ([]domain.Repository, error) {
	m.Calls.List = append(m.Calls.List, struct{}{})
	if m.Impl.List != nil {
		return m.Impl.List(ctx)
	}
	panic(errors.New("it should not be called"))
}

func (m *RepositoryInterface) Disable(ctx context.Context, id uuid.UUID) (domain.Repository, error) {
	m.Calls.Disable = append(m.Calls.Disable, id)
	if m.Impl.Disable != nil {
		return m.Impl.Disable(ctx, id)
	}
	panic(errors.New("it should not be called"))
}
