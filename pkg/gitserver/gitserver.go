// Package gitserver is the client of the hosted git service (Gitea):
// repository lookup and push webhook management.
package gitserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrRepoNotFound : the git server knows no such repository.
var ErrRepoNotFound = errors.New("repository not found on git server")

// Repo is a repository as the git server reports it.
type Repo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
	SSHURL   string `json:"ssh_url"`
	CloneURL string `json:"clone_url"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// Webhook is the registered push hook.
type Webhook struct {
	ID int64 `json:"id"`
}

type Interface interface {
	// GetRepo verifies the repository exists and returns it.
	GetRepo(ctx context.Context, owner string, name string) (Repo, error)

	ListRepos(ctx context.Context) ([]Repo, error)

	// RegisterWebhook adds a push webhook delivering to callbackURL.
	RegisterWebhook(ctx context.Context, owner string, name string, callbackURL string) (Webhook, error)

	RemoveWebhook(ctx context.Context, owner string, name string, webhookID int64) error
}

type Client struct {
	client *resty.Client
}

var _ Interface = &Client{}

// New builds a client of the Gitea API at endpoint, authenticating with
// an access token.
func New(endpoint string, token string) *Client {
	client := resty.New().
		SetBaseURL(endpoint + "/api/v1").
		SetTimeout(time.Second * 10).
		SetRetryCount(3)

	client.Header.Add("Authorization", "token "+token)

	return &Client{client: client}
}

func (c *Client) GetRepo(ctx context.Context, owner string, name string) (Repo, error) {
	repo := Repo{}
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&repo).
		SetPathParams(map[string]string{"owner": owner, "name": name}).
		Get("/repos/{owner}/{name}")
	if err != nil {
		return Repo{}, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return Repo{}, fmt.Errorf("%w: %s/%s", ErrRepoNotFound, owner, name)
	}
	if resp.IsError() {
		return Repo{}, fmt.Errorf("fetching repo %s/%s: %s", owner, name, resp.Status())
	}
	return repo, nil
}

func (c *Client) ListRepos(ctx context.Context) ([]Repo, error) {
	repos := []Repo{}
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&repos).
		Get("/repos/search")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("listing repos: %s", resp.Status())
	}
	return repos, nil
}

func (c *Client) RegisterWebhook(ctx context.Context, owner string, name string, callbackURL string) (Webhook, error) {
	hook := Webhook{}
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&hook).
		SetPathParams(map[string]string{"owner": owner, "name": name}).
		SetBody(map[string]interface{}{
			"type":   "gitea",
			"active": true,
			"events": []string{"push"},
			"config": map[string]string{
				"url":          callbackURL,
				"content_type": "json",
			},
		}).
		Post("/repos/{owner}/{name}/hooks")
	if err != nil {
		return Webhook{}, err
	}
	if resp.IsError() {
		return Webhook{}, fmt.Errorf("registering webhook on %s/%s: %s", owner, name, resp.Status())
	}
	return hook, nil
}

func (c *Client) RemoveWebhook(ctx context.Context, owner string, name string, webhookID int64) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"owner": owner,
			"name":  name,
			"id":    fmt.Sprint(webhookID),
		}).
		Delete("/repos/{owner}/{name}/hooks/{id}")
	if err != nil {
		return err
	}
	// a hook gone already is as removed as it gets
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("removing webhook %d on %s/%s: %s", webhookID, owner, name, resp.Status())
	}
	return nil
}
