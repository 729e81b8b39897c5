package registry_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/constructum-ci/constructum/pkg/registry"
)

func TestSupervisorRegistry(t *testing.T) {
	t.Run("it admits each pipeline once", func(t *testing.T) {
		testee := registry.New()
		pipelineID := uuid.New()

		if !testee.Add(pipelineID) {
			t.Errorf("expected first Add to succeed")
		}
		if testee.Add(pipelineID) {
			t.Errorf("expected second Add to be refused")
		}
		if !testee.Contains(pipelineID) {
			t.Errorf("expected the pipeline to be tracked")
		}

		testee.Remove(pipelineID)
		if testee.Contains(pipelineID) {
			t.Errorf("expected the pipeline to be gone")
		}
		if !testee.Add(pipelineID) {
			t.Errorf("expected Add after Remove to succeed")
		}
	})

	t.Run("it admits exactly one of many concurrent Adds", func(t *testing.T) {
		testee := registry.New()
		pipelineID := uuid.New()

		admitted := make(chan bool, 16)
		wg := sync.WaitGroup{}
		for range [16]struct{}{} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				admitted <- testee.Add(pipelineID)
			}()
		}
		wg.Wait()
		close(admitted)

		wins := 0
		for ok := range admitted {
			if ok {
				wins += 1
			}
		}
		if wins != 1 {
			t.Errorf("expected a single winner, got %d", wins)
		}
		if testee.Size() != 1 {
			t.Errorf("expected one tracked pipeline, got %d", testee.Size())
		}
	})
}
