package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/constructum-ci/constructum/cmd/constructum-server/handlers"
	httptestutil "github.com/constructum-ci/constructum/internal/testutils/http"
	apijobs "github.com/constructum-ci/constructum/pkg/api/jobs"
	"github.com/constructum-ci/constructum/pkg/db"
	dbmocks "github.com/constructum-ci/constructum/pkg/db/mocks"
	"github.com/constructum-ci/constructum/pkg/domain"
	"github.com/constructum-ci/constructum/pkg/utils/cmp"
)

// fakeCache serves Get from a fixed map.
type fakeCache struct {
	entries map[string]string
}

func (f fakeCache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.entries[key]
	return ok, nil
}

func (f fakeCache) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := f.entries[key]
	return value, ok, nil
}

func (f fakeCache) SetEx(context.Context, string, string) error {
	return errors.New("it should not be called")
}

func (f fakeCache) Append(context.Context, string, string) error {
	return errors.New("it should not be called")
}

// fakeBucket serves Get and Aggregate from a fixed map.
type fakeBucket struct {
	blobs map[string][]byte
}

func (f fakeBucket) Put(context.Context, string, []byte) error {
	return errors.New("it should not be called")
}

func (f fakeBucket) Get(_ context.Context, key string) ([]byte, error) {
	blob, ok := f.blobs[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return blob, nil
}

func (f fakeBucket) Aggregate(ctx context.Context, keys []string) ([]byte, error) {
	aggregated := []byte{}
	for _, key := range keys {
		blob, err := f.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		aggregated = append(aggregated, blob...)
	}
	return aggregated, nil
}

func TestFindJobHandler(t *testing.T) {
	t.Run("it responds with every pipeline", func(t *testing.T) {
		pipelines := []domain.Pipeline{
			{
				ID: uuid.New(), Seq: 1, RepositoryID: uuid.New(),
				Commit: "aaaa0000", Finished: true, Status: domain.Complete,
			},
			{
				ID: uuid.New(), Seq: 2, RepositoryID: uuid.New(),
				Commit: "bbbb1111", Finished: false, Status: domain.InProgress,
			},
		}

		mockPipeline := dbmocks.NewPipelineInterface()
		mockPipeline.Impl.List = func(context.Context) ([]domain.Pipeline, error) {
			return pipelines, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/jobs")

		testee := handlers.FindJobHandler(mockPipeline)
		if err := testee(c); err != nil {
			t.Fatalf("error is not expected. error = %v", err)
		}
		if respRec.Code != http.StatusOK {
			t.Errorf("unmatch: status code: %d (want: %d)", respRec.Code, http.StatusOK)
		}

		actual := []apijobs.Summary{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatalf("response body is not JSON: %v", err)
		}

		expected := []apijobs.Summary{
			apijobs.ComposeSummary(pipelines[0]),
			apijobs.ComposeSummary(pipelines[1]),
		}
		if !cmp.SliceEq(actual, expected) {
			t.Errorf("unmatch: body: %+v (want: %+v)", actual, expected)
		}
	})

	t.Run("it responds 500 when listing fails", func(t *testing.T) {
		mockPipeline := dbmocks.NewPipelineInterface()
		mockPipeline.Impl.List = func(context.Context) ([]domain.Pipeline, error) {
			return nil, errors.New("fake database outage")
		}

		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/jobs")

		testee := handlers.FindJobHandler(mockPipeline)
		err := testee(c)
		if err == nil {
			t.Fatal("error is expected")
		}
		herr := new(echo.HTTPError)
		if !errors.As(err, &herr) {
			t.Fatalf("unmatch: error type: %+v is not echo.HTTPError", err)
		}
		if herr.Code != http.StatusInternalServerError {
			t.Errorf(
				"unmatch: status code: %d != %d",
				herr.Code, http.StatusInternalServerError,
			)
		}
	})
}

func TestGetJobHandler(t *testing.T) {
	t.Run("it responds with the pipeline and its steps", func(t *testing.T) {
		pipelineID := uuid.New()
		pipeline := domain.Pipeline{
			ID: pipelineID, Seq: 3, RepositoryID: uuid.New(),
			Commit: "cccc2222", Finished: false, Status: domain.InProgress,
		}
		steps := []domain.Step{
			{
				ID: uuid.New(), PipelineID: pipelineID, Ordinal: 0,
				Name: "build", Image: "golang:1.23",
				Commands: []string{"make"},
				Status:   domain.StepSuccess,
				LogKeys:  []string{"pod-x-job-x.txt"},
			},
			{
				ID: uuid.New(), PipelineID: pipelineID, Ordinal: 1,
				Name: "test", Image: "golang:1.23",
				Commands: []string{"make test"},
				Status:   domain.StepInProgress,
			},
		}

		mockPipeline := dbmocks.NewPipelineInterface()
		mockPipeline.Impl.Get = func(_ context.Context, id uuid.UUID) (domain.Pipeline, error) {
			if id != pipelineID {
				t.Errorf("Get called with unexpected id: %s (want: %s)", id, pipelineID)
			}
			return pipeline, nil
		}
		mockStep := dbmocks.NewStepInterface()
		mockStep.Impl.ListForPipeline = func(context.Context, uuid.UUID) ([]domain.Step, error) {
			return steps, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/jobs/"+pipelineID.String())
		c.SetParamNames("jobId")
		c.SetParamValues(pipelineID.String())

		testee := handlers.GetJobHandler(mockPipeline, mockStep)
		if err := testee(c); err != nil {
			t.Fatalf("error is not expected. error = %v", err)
		}

		actual := apijobs.Detail{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatalf("response body is not JSON: %v", err)
		}
		expected := apijobs.ComposeDetail(pipeline, steps)
		if actual.Summary != expected.Summary {
			t.Errorf("unmatch: summary: %+v (want: %+v)", actual.Summary, expected.Summary)
		}
		if !cmp.SliceEqWith(
			actual.Steps, expected.Steps,
			func(a, b apijobs.Step) bool {
				return a.ID == b.ID && a.Ordinal == b.Ordinal &&
					a.Status == b.Status && cmp.SliceEq(a.LogKeys, b.LogKeys)
			},
		) {
			t.Errorf("unmatch: steps: %+v (want: %+v)", actual.Steps, expected.Steps)
		}
	})

	t.Run("it responds 404 for an unknown pipeline", func(t *testing.T) {
		pipelineID := uuid.New()

		mockPipeline := dbmocks.NewPipelineInterface()
		mockPipeline.Impl.Get = func(_ context.Context, id uuid.UUID) (domain.Pipeline, error) {
			return domain.Pipeline{}, db.Missing{Table: "pipeline", Identity: id.String()}
		}
		mockStep := dbmocks.NewStepInterface()

		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/jobs/"+pipelineID.String())
		c.SetParamNames("jobId")
		c.SetParamValues(pipelineID.String())

		testee := handlers.GetJobHandler(mockPipeline, mockStep)
		err := testee(c)
		if err == nil {
			t.Fatal("error is expected")
		}
		herr := new(echo.HTTPError)
		if !errors.As(err, &herr) {
			t.Fatalf("unmatch: error type: %+v is not echo.HTTPError", err)
		}
		if herr.Code != http.StatusNotFound {
			t.Errorf("unmatch: status code: %d != %d", herr.Code, http.StatusNotFound)
		}
	})

	t.Run("it responds 400 for a malformed id", func(t *testing.T) {
		mockPipeline := dbmocks.NewPipelineInterface()
		mockStep := dbmocks.NewStepInterface()

		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/jobs/not-a-uuid")
		c.SetParamNames("jobId")
		c.SetParamValues("not-a-uuid")

		testee := handlers.GetJobHandler(mockPipeline, mockStep)
		err := testee(c)
		if err == nil {
			t.Fatal("error is expected")
		}
		herr := new(echo.HTTPError)
		if !errors.As(err, &herr) {
			t.Fatalf("unmatch: error type: %+v is not echo.HTTPError", err)
		}
		if herr.Code != http.StatusBadRequest {
			t.Errorf("unmatch: status code: %d != %d", herr.Code, http.StatusBadRequest)
		}
	})
}

func TestGetStepLogHandler(t *testing.T) {
	pipelineID := uuid.New()
	stepID := uuid.New()
	step := domain.Step{
		ID: stepID, PipelineID: pipelineID, Ordinal: 0,
		Name: "build", Image: "golang:1.23",
		Commands: []string{"make"},
		Status:   domain.StepInProgress,
	}

	request := func(
		t *testing.T,
		step domain.Step,
		cache fakeCache,
		bucket fakeBucket,
	) (*echo.HTTPError, map[string]any) {
		t.Helper()

		mockStep := dbmocks.NewStepInterface()
		mockStep.Impl.Get = func(_ context.Context, id uuid.UUID) (domain.Step, error) {
			if id != stepID {
				return domain.Step{}, db.Missing{Table: "step", Identity: id.String()}
			}
			return step, nil
		}

		e := echo.New()
		target := "/api/jobs/" + pipelineID.String() + "/steps/" + stepID.String() + "/logs"
		c, respRec := httptestutil.Get(e, target)
		c.SetParamNames("jobId", "stepId")
		c.SetParamValues(pipelineID.String(), stepID.String())

		testee := handlers.GetStepLogHandler(mockStep, cache, bucket)
		if err := testee(c); err != nil {
			herr := new(echo.HTTPError)
			if !errors.As(err, &herr) {
				t.Fatalf("unmatch: error type: %+v is not echo.HTTPError", err)
			}
			return herr, nil
		}

		body := map[string]any{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &body); err != nil {
			t.Fatalf("response body is not JSON: %v", err)
		}
		return nil, body
	}

	t.Run("it prefers the live cache", func(t *testing.T) {
		key := domain.LogCacheKey(
			domain.StepWorkloadName(pipelineID, step.Name), step.Name,
		)
		cache := fakeCache{entries: map[string]string{key: "live output\n"}}
		bucket := fakeBucket{}

		herr, body := request(t, step, cache, bucket)
		if herr != nil {
			t.Fatalf("error is not expected. error = %v", herr)
		}
		if body["logs"] != "live output\n" {
			t.Errorf(`unmatch: logs: %v (want: "live output\n")`, body["logs"])
		}
	})

	t.Run("it falls back to the archived blobs, concatenated", func(t *testing.T) {
		archived := step
		archived.Status = domain.StepSuccess
		archived.LogKeys = []string{"pod-a.txt", "pod-b.txt"}

		cache := fakeCache{}
		bucket := fakeBucket{blobs: map[string][]byte{
			"pod-a.txt": []byte("first half\n"),
			"pod-b.txt": []byte("second half\n"),
		}}

		herr, body := request(t, archived, cache, bucket)
		if herr != nil {
			t.Fatalf("error is not expected. error = %v", herr)
		}
		if body["logs"] != "first half\nsecond half\n" {
			t.Errorf("unmatch: logs: %v", body["logs"])
		}
	})

	t.Run("it responds with the empty log shape when nothing exists", func(t *testing.T) {
		herr, body := request(t, step, fakeCache{}, fakeBucket{})
		if herr != nil {
			t.Fatalf("error is not expected. error = %v", herr)
		}
		if body["logs"] != nil {
			t.Errorf("unmatch: logs: %v (want: null)", body["logs"])
		}
	})

	t.Run("it responds 404 when the step belongs to another pipeline", func(t *testing.T) {
		stray := step
		stray.PipelineID = uuid.New()

		herr, _ := request(t, stray, fakeCache{}, fakeBucket{})
		if herr == nil {
			t.Fatal("error is expected")
		}
		if herr.Code != http.StatusNotFound {
			t.Errorf("unmatch: status code: %d != %d", herr.Code, http.StatusNotFound)
		}
	})
}

func TestGetJobLogHandler(t *testing.T) {
	t.Run("it aggregates one buffer per step", func(t *testing.T) {
		pipelineID := uuid.New()
		pipeline := domain.Pipeline{
			ID: pipelineID, Seq: 1, RepositoryID: uuid.New(),
			Commit: "dddd3333", Finished: false, Status: domain.InProgress,
		}
		build := domain.Step{
			ID: uuid.New(), PipelineID: pipelineID, Ordinal: 0,
			Name: "build", Status: domain.StepSuccess,
			LogKeys: []string{"pod-build.txt"},
		}
		test := domain.Step{
			ID: uuid.New(), PipelineID: pipelineID, Ordinal: 1,
			Name: "test", Status: domain.StepInProgress,
		}

		mockPipeline := dbmocks.NewPipelineInterface()
		mockPipeline.Impl.Get = func(context.Context, uuid.UUID) (domain.Pipeline, error) {
			return pipeline, nil
		}
		mockStep := dbmocks.NewStepInterface()
		mockStep.Impl.ListForPipeline = func(context.Context, uuid.UUID) ([]domain.Step, error) {
			return []domain.Step{build, test}, nil
		}

		liveKey := domain.LogCacheKey(
			domain.StepWorkloadName(pipelineID, test.Name), test.Name,
		)
		cache := fakeCache{entries: map[string]string{liveKey: "testing...\n"}}
		bucket := fakeBucket{blobs: map[string][]byte{
			"pod-build.txt": []byte("built\n"),
		}}

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/jobs/"+pipelineID.String()+"/logs")
		c.SetParamNames("jobId")
		c.SetParamValues(pipelineID.String())

		testee := handlers.GetJobLogHandler(mockPipeline, mockStep, cache, bucket)
		if err := testee(c); err != nil {
			t.Fatalf("error is not expected. error = %v", err)
		}

		body := struct {
			Logs []string `json:"logs"`
		}{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &body); err != nil {
			t.Fatalf("response body is not JSON: %v", err)
		}
		if !cmp.SliceEq(body.Logs, []string{"built\n", "testing...\n"}) {
			t.Errorf("unmatch: logs: %v", body.Logs)
		}
	})
}
