package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apierr "github.com/constructum-ci/constructum/pkg/api/errors"
	apijobs "github.com/constructum-ci/constructum/pkg/api/jobs"
	apirepos "github.com/constructum-ci/constructum/pkg/api/repos"
	"github.com/constructum-ci/constructum/pkg/db"
	"github.com/constructum-ci/constructum/pkg/domain"
	"github.com/constructum-ci/constructum/pkg/gitserver"
)

// FindRepositoryHandler handles GET /api/repos.
func FindRepositoryHandler(dbRepo db.RepositoryInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		repositories, err := dbRepo.List(c.Request().Context())
		if err != nil {
			return apierr.InternalServerError(err)
		}

		resp := make([]apirepos.Detail, 0, len(repositories))
		for _, r := range repositories {
			resp = append(resp, apirepos.ComposeDetail(r))
		}

		c.JSON(http.StatusOK, resp)

		return nil
	}
}

// GetRepositoryHandler handles GET /api/repos/:repoId.
func GetRepositoryHandler(dbRepo db.RepositoryInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		repoID, err := uuid.Parse(c.Param("repoId"))
		if err != nil {
			return apierr.BadRequest(`"repoId" should be a UUID`, err)
		}

		repository, err := dbRepo.Get(c.Request().Context(), repoID)
		if err != nil {
			if errors.Is(err, db.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		c.JSON(http.StatusOK, apirepos.ComposeDetail(repository))

		return nil
	}
}

// FindRepositoryJobHandler handles GET /api/repos/:repoId/jobs : the
// repository's pipelines, oldest first.
func FindRepositoryJobHandler(dbRepo db.RepositoryInterface, dbPipeline db.PipelineInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		repoID, err := uuid.Parse(c.Param("repoId"))
		if err != nil {
			return apierr.BadRequest(`"repoId" should be a UUID`, err)
		}
		ctx := c.Request().Context()

		if _, err := dbRepo.Get(ctx, repoID); err != nil {
			if errors.Is(err, db.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		pipelines, err := dbPipeline.ListForRepository(ctx, repoID)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		resp := make([]apijobs.Summary, 0, len(pipelines))
		for _, p := range pipelines {
			resp = append(resp, apijobs.ComposeSummary(p))
		}

		c.JSON(http.StatusOK, resp)

		return nil
	}
}

// RepositoryRegisterHandler handles POST /api/repos: verify the
// repository exists on the git server, register its push webhook, and
// record the repository as enabled.
func RepositoryRegisterHandler(
	dbRepo db.RepositoryInterface,
	git gitserver.Interface,
	callbackURL string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		spec := apirepos.RegisterSpec{}
		if err := c.Bind(&spec); err != nil {
			return apierr.BadRequest("registration does not parse", err)
		}
		if spec.Owner == "" || spec.Name == "" {
			return apierr.BadRequest(`required fields: "owner" and "name"`, nil)
		}
		ctx := c.Request().Context()

		repo, err := git.GetRepo(ctx, spec.Owner, spec.Name)
		if err != nil {
			if errors.Is(err, gitserver.ErrRepoNotFound) {
				return apierr.BadRequest("no such repository on the git server", err)
			}
			return apierr.ServiceUnavailable("git server did not respond", err)
		}

		webhook, err := git.RegisterWebhook(ctx, spec.Owner, spec.Name, callbackURL)
		if err != nil {
			return apierr.ServiceUnavailable("could not register the push webhook", err)
		}

		// the stored URL is what the pipeline client clones from
		registered, err := dbRepo.Register(ctx, domain.Repository{
			ExternalID: repo.ID,
			URL:        repo.CloneURL,
			Owner:      spec.Owner,
			Name:       spec.Name,
			WebhookID:  &webhook.ID,
			Enabled:    true,
		})
		if err != nil {
			if errors.Is(err, db.ErrConflict) {
				return apierr.Conflict(
					"repository is already registered", apierr.WithError(err),
				)
			}
			return apierr.InternalServerError(err)
		}

		c.JSON(http.StatusOK, apirepos.ComposeDetail(registered))

		return nil
	}
}

// RepositoryUnregisterHandler handles DELETE /api/repos/:repoId : soft
// delete. The repository and its pipeline history stay queryable; the
// push webhook is removed from the git server best-effort.
func RepositoryUnregisterHandler(dbRepo db.RepositoryInterface, git gitserver.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		repoID, err := uuid.Parse(c.Param("repoId"))
		if err != nil {
			return apierr.BadRequest(`"repoId" should be a UUID`, err)
		}
		ctx := c.Request().Context()

		repository, err := dbRepo.Disable(ctx, repoID)
		if err != nil {
			if errors.Is(err, db.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		if repository.WebhookID != nil {
			if err := git.RemoveWebhook(
				ctx, repository.Owner, repository.Name, *repository.WebhookID,
			); err != nil {
				// the registration is already disabled; a stale hook on
				// the git server only produces rejected deliveries
				c.Logger().Warnf(
					"webhook %d of %s/%s not removed: %s",
					*repository.WebhookID, repository.Owner, repository.Name, err,
				)
			}
		}

		repository.Enabled = false
		repository.WebhookID = nil
		c.JSON(http.StatusOK, apirepos.ComposeDetail(repository))

		return nil
	}
}

// FindKnownRepositoryHandler handles GET /api/known_repos : every
// repository the git server reports, annotated with whether it is
// registered here.
func FindKnownRepositoryHandler(dbRepo db.RepositoryInterface, git gitserver.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		ctx := c.Request().Context()

		known, err := git.ListRepos(ctx)
		if err != nil {
			return apierr.ServiceUnavailable("git server did not respond", err)
		}

		registered, err := dbRepo.List(ctx)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		byExternalID := map[int64]domain.Repository{}
		for _, r := range registered {
			byExternalID[r.ExternalID] = r
		}

		resp := make([]apirepos.Known, 0, len(known))
		for _, repo := range known {
			if r, ok := byExternalID[repo.ID]; ok {
				resp = append(resp, apirepos.ComposeKnown(repo, &r))
				continue
			}
			resp = append(resp, apirepos.ComposeKnown(repo, nil))
		}

		c.JSON(http.StatusOK, resp)

		return nil
	}
}
