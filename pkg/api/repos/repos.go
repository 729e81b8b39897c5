// Package repos declares the wire types of the repository API.
package repos

import (
	"github.com/constructum-ci/constructum/pkg/domain"
	"github.com/constructum-ci/constructum/pkg/gitserver"
)

// RegisterSpec is the body of a repository registration request.
type RegisterSpec struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// Detail is a registered repository.
type Detail struct {
	ID         string `json:"id"`
	ExternalID int64  `json:"externalId"`
	URL        string `json:"url"`
	Owner      string `json:"owner"`
	Name       string `json:"name"`
	Enabled    bool   `json:"enabled"`
	BuildSeq   int    `json:"buildSeq"`
}

// Known is a repository as the git server reports it, annotated with
// its registration state here.
type Known struct {
	ExternalID int64  `json:"externalId"`
	FullName   string `json:"fullName"`
	HTMLURL    string `json:"htmlUrl"`
	CloneURL   string `json:"cloneUrl"`

	// Registered : an enabled registration exists for this repository.
	Registered bool `json:"registered"`

	// ID is the registration's id, when Registered.
	ID string `json:"id,omitempty"`
}

func ComposeDetail(r domain.Repository) Detail {
	return Detail{
		ID:         r.ID.String(),
		ExternalID: r.ExternalID,
		URL:        r.URL,
		Owner:      r.Owner,
		Name:       r.Name,
		Enabled:    r.Enabled,
		BuildSeq:   r.BuildSeq,
	}
}

// ComposeKnown merges a git server listing with its registration, if
// any. registered may be nil.
func ComposeKnown(repo gitserver.Repo, registered *domain.Repository) Known {
	known := Known{
		ExternalID: repo.ID,
		FullName:   repo.FullName,
		HTMLURL:    repo.HTMLURL,
		CloneURL:   repo.CloneURL,
	}
	if registered != nil && registered.Enabled {
		known.Registered = true
		known.ID = registered.ID.String()
	}
	return known
}
