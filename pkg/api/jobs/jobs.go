// Package jobs declares the wire types of the job read API.
package jobs

import (
	"github.com/constructum-ci/constructum/pkg/domain"
)

// Summary is a pipeline as the list endpoint reports it.
type Summary struct {
	ID           string `json:"id"`
	Seq          int    `json:"seq"`
	RepositoryID string `json:"repositoryId"`
	Commit       string `json:"commit"`
	Status       string `json:"status"`
	Finished     bool   `json:"finished"`
}

// Step is one step of a pipeline detail.
type Step struct {
	ID      string   `json:"id"`
	Ordinal int      `json:"ordinal"`
	Name    string   `json:"name"`
	Image   string   `json:"image"`
	Status  string   `json:"status"`
	LogKeys []string `json:"logKeys"`
}

// Detail is a pipeline with its steps, in ordinal order.
type Detail struct {
	Summary
	Steps []Step `json:"steps"`
}

func ComposeSummary(p domain.Pipeline) Summary {
	return Summary{
		ID:           p.ID.String(),
		Seq:          p.Seq,
		RepositoryID: p.RepositoryID.String(),
		Commit:       p.Commit,
		Status:       p.Status.String(),
		Finished:     p.Finished,
	}
}

func ComposeStep(s domain.Step) Step {
	keys := []string{}
	keys = append(keys, s.LogKeys...)
	return Step{
		ID:      s.ID.String(),
		Ordinal: s.Ordinal,
		Name:    s.Name,
		Image:   s.Image,
		Status:  s.Status.String(),
		LogKeys: keys,
	}
}

func ComposeDetail(p domain.Pipeline, steps []domain.Step) Detail {
	detail := Detail{Summary: ComposeSummary(p), Steps: []Step{}}
	for _, s := range steps {
		detail.Steps = append(detail.Steps, ComposeStep(s))
	}
	return detail
}
