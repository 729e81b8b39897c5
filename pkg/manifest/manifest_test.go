package manifest_test

import (
	"errors"
	"testing"

	"github.com/constructum-ci/constructum/pkg/manifest"
	"github.com/constructum-ci/constructum/pkg/utils/cmp"
	"github.com/constructum-ci/constructum/pkg/utils/try"
)

func TestParse(t *testing.T) {
	t.Run("it parses a plain two-step manifest", func(t *testing.T) {
		doc := []byte(`
version: 1
steps:
  - name: build
    image: "img:1"
    pull: Always
    commands:
      - make
  - name: test
    image: "img:1"
    commands:
      - make test
`)
		m := try.To(manifest.Parse(doc)).OrFatal(t)

		if m.Version != 1 {
			t.Errorf("unexpected version: %d", m.Version)
		}
		if len(m.Steps) != 2 {
			t.Fatalf("unexpected step count: %d", len(m.Steps))
		}
		if m.Steps[0].Name != "build" || m.Steps[1].Name != "test" {
			t.Errorf("unexpected step names: %s, %s", m.Steps[0].Name, m.Steps[1].Name)
		}
		if m.Steps[1].Pull != manifest.PullAlways {
			t.Errorf("pull policy does not default to Always: %s", m.Steps[1].Pull)
		}
		if !cmp.SliceEq(m.Steps[1].Commands, []string{"make test"}) {
			t.Errorf("unexpected commands: %v", m.Steps[1].Commands)
		}
	})

	t.Run("it normalizes step names", func(t *testing.T) {
		doc := []byte(`
version: 1
steps:
  - name: "  Build   and Package  "
    image: "img:1"
    commands: [make]
`)
		m := try.To(manifest.Parse(doc)).OrFatal(t)
		if m.Steps[0].Name != "build_and_package" {
			t.Errorf("unexpected normalized name: %s", m.Steps[0].Name)
		}
	})

	t.Run("it parses secret declarations and step references", func(t *testing.T) {
		doc := []byte(`
version: 1
secrets:
  - name: registry-token
    location: registry
    key: token
steps:
  - name: push
    image: "img:1"
    commands: [make push]
    secrets:
      - name: registry-token
        var_name: REGISTRY_TOKEN
`)
		m := try.To(manifest.Parse(doc)).OrFatal(t)
		if len(m.Secrets) != 1 {
			t.Fatalf("unexpected secret count: %d", len(m.Secrets))
		}
		s := m.Secrets[0]
		if s.Name != "registry-token" || s.Location != "registry" || s.Key != "token" {
			t.Errorf("unexpected secret: %+v", s)
		}
		if len(m.Steps[0].Secrets) != 1 || m.Steps[0].Secrets[0].Name != "registry-token" {
			t.Errorf("unexpected step secrets: %+v", m.Steps[0].Secrets)
		}
	})

	t.Run("it rejects manifests without steps", func(t *testing.T) {
		if _, err := manifest.Parse([]byte("version: 1")); !errors.Is(err, manifest.ErrInvalid) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("it rejects an unknown pull policy", func(t *testing.T) {
		doc := []byte(`
version: 1
steps:
  - name: build
    image: "img:1"
    pull: Sometimes
    commands: [make]
`)
		if _, err := manifest.Parse(doc); !errors.Is(err, manifest.ErrInvalid) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("it rejects broken yaml", func(t *testing.T) {
		if _, err := manifest.Parse([]byte("steps: [")); !errors.Is(err, manifest.ErrInvalid) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestNormalizeName(t *testing.T) {
	for name, testcase := range map[string]struct {
		given    string
		expected string
	}{
		"plain names pass through lowered": {"Build", "build"},
		"runs of whitespace collapse":      {"  Build   and Package  ", "build_and_package"},
		"tabs count as whitespace":         {"unit\ttests", "unit_tests"},
		"empty stays empty":                {"   ", ""},
	} {
		t.Run(name, func(t *testing.T) {
			if actual := manifest.NormalizeName(testcase.given); actual != testcase.expected {
				t.Errorf("unexpected name: %s (expected: %s)", actual, testcase.expected)
			}
		})
	}
}
