package mock

import (
	"context"
	"errors"

	"github.com/constructum-ci/constructum/pkg/gitserver"
)

type GitServer struct {
	Impl struct {
		GetRepo         func(ctx context.Context, owner string, name string) (gitserver.Repo, error)
		ListRepos       func(ctx context.Context) ([]gitserver.Repo, error)
		RegisterWebhook func(ctx context.Context, owner string, name string, callbackURL string) (gitserver.Webhook, error)
		RemoveWebhook   func(ctx context.Context, owner string, name string, webhookID int64) error
	}

	Called struct {
		GetRepo         uint64
		ListRepos       uint64
		RegisterWebhook uint64
		RemoveWebhook   uint64
	}
}

func New() *GitServer {
	return &GitServer{}
}

var _ gitserver.Interface = &GitServer{}

func (m *GitServer) GetRepo(ctx context.Context, owner string, name string) (gitserver.Repo, error) {
	m.Called.GetRepo += 1
	if m.Impl.GetRepo == nil {
		return gitserver.Repo{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.GetRepo(ctx, owner, name)
}

func (m *GitServer) ListRepos(ctx context.Context) ([]gitserver.Repo, error) {
	m.Called.ListRepos += 1
	if m.Impl.ListRepos == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.ListRepos(ctx)
}

func (m *GitServer) RegisterWebhook(ctx context.Context, owner string, name string, callbackURL string) (gitserver.Webhook, error) {
	m.Called.RegisterWebhook += 1
	if m.Impl.RegisterWebhook == nil {
		return gitserver.Webhook{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.RegisterWebhook(ctx, owner, name, callbackURL)
}

func (m *GitServer) RemoveWebhook(ctx context.Context, owner string, name string, webhookID int64) error {
	m.Called.RemoveWebhook += 1
	if m.Impl.RemoveWebhook == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.RemoveWebhook(ctx, owner, name, webhookID)
}
