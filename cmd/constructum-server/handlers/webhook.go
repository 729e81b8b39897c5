package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/constructum-ci/constructum/pkg/admission"
	apierr "github.com/constructum-ci/constructum/pkg/api/errors"
	"github.com/constructum-ci/constructum/pkg/manifest"
	"github.com/constructum-ci/constructum/pkg/secrets"
)

// Consumer admits a push event. admission.Admission satisfies this.
type Consumer interface {
	Consume(ctx context.Context, event admission.PushEvent) (uuid.UUID, error)
}

// WebhookHandler handles POST /api/webhook: the git server's push
// notification. On admission it responds 200 with the new pipeline's
// id.
func WebhookHandler(consumer Consumer) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		event := admission.PushEvent{}
		if err := c.Bind(&event); err != nil {
			return apierr.BadRequest("push event does not parse", err)
		}
		if event.After == "" {
			return apierr.BadRequest(`required field missing: "after"`, nil)
		}

		pipelineID, err := consumer.Consume(c.Request().Context(), event)
		if err != nil {
			if errors.Is(err, admission.ErrUnknownRepository) {
				return apierr.NotFound()
			}
			if errors.Is(err, admission.ErrRepositoryDisabled) {
				return apierr.Conflict("repository is disabled", apierr.WithError(err))
			}
			if errors.Is(err, admission.ErrManifestInvalid) {
				return apierr.BadRequest(
					"the commit has no valid "+manifest.FileName, err,
				)
			}
			if errors.Is(err, secrets.ErrInvalidConfiguration) {
				return apierr.BadRequest(
					"the manifest's secret configuration is invalid", err,
				)
			}
			return apierr.InternalServerError(err)
		}

		c.JSON(http.StatusOK, struct {
			JobUUID string `json:"job_uuid"`
		}{JobUUID: pipelineID.String()})

		return nil
	}
}
