package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apierr "github.com/constructum-ci/constructum/pkg/api/errors"
	apijobs "github.com/constructum-ci/constructum/pkg/api/jobs"
	"github.com/constructum-ci/constructum/pkg/db"
	"github.com/constructum-ci/constructum/pkg/domain"
	"github.com/constructum-ci/constructum/pkg/logcache"
	"github.com/constructum-ci/constructum/pkg/objectstore"
)

// FindJobHandler handles GET /api/jobs.
func FindJobHandler(dbPipeline db.PipelineInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		pipelines, err := dbPipeline.List(c.Request().Context())
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

// GetJobHandler handles GET /api/jobs/:jobId : the pipeline with its
// steps in ordinal order.
func GetJobHandler(dbPipeline db.PipelineInterface, dbStep db.StepInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		jobID, err := uuid.Parse(c.Param("jobId"))
		if err != nil {
			return apierr.BadRequest(`"jobId" should be a UUID`, err)
		}
		ctx := c.Request().Context()

		pipeline, err := dbPipeline.Get(ctx, jobID)
		if err != nil {
			if errors.Is(err, db.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		steps, err := dbStep.ListForPipeline(ctx, jobID)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		c.JSON(http.StatusOK, apijobs.ComposeDetail(pipeline, steps))

		return nil
	}
}

// GetJobLogHandler handles GET /api/jobs/:jobId/logs : one log buffer
// per step, each resolved the way the step log endpoint resolves it.
func GetJobLogHandler(
	dbPipeline db.PipelineInterface,
	dbStep db.StepInterface,
	cache logcache.Cache,
	bucket objectstore.Bucket,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		jobID, err := uuid.Parse(c.Param("jobId"))
		if err != nil {
			return apierr.BadRequest(`"jobId" should be a UUID`, err)
		}
		ctx := c.Request().Context()

		if _, err := dbPipeline.Get(ctx, jobID); err != nil {
			if errors.Is(err, db.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		steps, err := dbStep.ListForPipeline(ctx, jobID)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		contents := []string{}
		for _, step := range steps {
			content, err := stepLog(ctx, jobID, step, cache, bucket)
			if err != nil {
				return apierr.InternalServerError(err)
			}
			contents = append(contents, content)
		}

		if len(contents) == 0 {
			c.JSON(http.StatusOK, domain.NoLogs())
			return nil
		}
		c.JSON(http.StatusOK, domain.ManyLogs(contents))

		return nil
	}
}

// GetStepLogHandler handles GET /api/jobs/:jobId/steps/:stepId/logs.
//
// The live cache is preferred; on miss the step's archived blobs are
// concatenated. A step with neither yields the empty log response.
func GetStepLogHandler(
	dbStep db.StepInterface,
	cache logcache.Cache,
	bucket objectstore.Bucket,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		jobID, err := uuid.Parse(c.Param("jobId"))
		if err != nil {
			return apierr.BadRequest(`"jobId" should be a UUID`, err)
		}
		stepID, err := uuid.Parse(c.Param("stepId"))
		if err != nil {
			return apierr.BadRequest(`"stepId" should be a UUID`, err)
		}
		ctx := c.Request().Context()

		step, err := dbStep.Get(ctx, stepID)
		if err != nil {
			if errors.Is(err, db.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}
		if step.PipelineID != jobID {
			return apierr.NotFound()
		}

		key := domain.LogCacheKey(
			domain.StepWorkloadName(jobID, step.Name), step.Name,
		)
		if buffered, ok, err := cache.Get(ctx, key); err != nil {
			return apierr.InternalServerError(err)
		} else if ok {
			c.JSON(http.StatusOK, domain.SingleLog(buffered))
			return nil
		}

		if len(step.LogKeys) == 0 {
			c.JSON(http.StatusOK, domain.NoLogs())
			return nil
		}

		archived, err := bucket.Aggregate(ctx, step.LogKeys)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		c.JSON(http.StatusOK, domain.SingleLog(string(archived)))

		return nil
	}
}

// stepLog resolves one step's log content: live cache first, archived
// blobs second, empty otherwise.
func stepLog(
	ctx context.Context,
	pipelineID uuid.UUID,
	step domain.Step,
	cache logcache.Cache,
	bucket objectstore.Bucket,
) (string, error) {
	key := domain.LogCacheKey(
		domain.StepWorkloadName(pipelineID, step.Name), step.Name,
	)
	if buffered, ok, err := cache.Get(ctx, key); err != nil {
		return "", err
	} else if ok {
		return buffered, nil
	}

	if len(step.LogKeys) == 0 {
		return "", nil
	}
	archived, err := bucket.Aggregate(ctx, step.LogKeys)
	if err != nil {
		return "", err
	}
	return string(archived), nil
}
