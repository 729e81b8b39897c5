package secrets_test

import (
	"context"
	"errors"
	"testing"

	"github.com/constructum-ci/constructum/pkg/manifest"
	"github.com/constructum-ci/constructum/pkg/secrets"
	"github.com/constructum-ci/constructum/pkg/utils/cmp"
	"github.com/constructum-ci/constructum/pkg/utils/try"
)

type fakeStore struct {
	subkeys map[string][]string
	err     error
	calls   []string
}

func (f *fakeStore) ListSubkeys(_ context.Context, location string) ([]string, error) {
	f.calls = append(f.calls, location)
	if f.err != nil {
		return nil, f.err
	}
	return f.subkeys[location], nil
}

func TestResolve(t *testing.T) {
	t.Run("it materializes declared secrets found in the store", func(t *testing.T) {
		m := try.To(manifest.Parse([]byte(`
secrets:
  - name: registry_token
    location: registry
    key: token
  - name: deploy_key
    location: deploy
    key: ssh_key
steps:
  - name: build
    image: golang:1.23
    commands: ["go build ./..."]
    secrets:
      - name: registry_token
        var_name: REGISTRY_TOKEN
`))).OrFatal(t)

		store := &fakeStore{subkeys: map[string][]string{
			"registry": {"token", "user"},
			"deploy":   {"ssh_key"},
		}}
		conf := try.To(secrets.Resolve(context.Background(), m, store)).OrFatal(t)

		if !cmp.SliceEq(store.calls, []string{"registry", "deploy"}) {
			t.Errorf("unexpected store lookups: %v", store.calls)
		}
		if !cmp.SliceEq(conf.Secrets(), []secrets.MaterializedSecret{
			{ObjectName: "registry_token", SecretPath: "registry", SecretKey: "token"},
			{ObjectName: "deploy_key", SecretPath: "deploy", SecretKey: "ssh_key"},
		}) {
			t.Errorf("unexpected materialized secrets: %+v", conf.Secrets())
		}
	})

	t.Run("it resolves a secretless manifest without touching the store", func(t *testing.T) {
		m := try.To(manifest.Parse([]byte(`
steps:
  - name: test
    image: golang:1.23
    commands: ["go test ./..."]
`))).OrFatal(t)

		conf := try.To(secrets.Resolve(context.Background(), m, nil)).OrFatal(t)
		if !conf.Empty() {
			t.Errorf("expected empty config, got %+v", conf.Secrets())
		}
	})

	t.Run("it rejects duplicate declarations", func(t *testing.T) {
		m := try.To(manifest.Parse([]byte(`
secrets:
  - name: token
    location: a
    key: k
  - name: token
    location: b
    key: k
steps:
  - name: s
    image: img
    commands: ["true"]
`))).OrFatal(t)

		_, err := secrets.Resolve(context.Background(), m, &fakeStore{})
		if !errors.Is(err, secrets.ErrDuplicateSecret) {
			t.Errorf("expected ErrDuplicateSecret, got %v", err)
		}
		if !errors.Is(err, secrets.ErrInvalidConfiguration) {
			t.Errorf("expected error in the invalid-configuration family, got %v", err)
		}
	})

	t.Run("it rejects a key absent from the store", func(t *testing.T) {
		m := try.To(manifest.Parse([]byte(`
secrets:
  - name: token
    location: registry
    key: token
steps:
  - name: s
    image: img
    commands: ["true"]
`))).OrFatal(t)

		store := &fakeStore{subkeys: map[string][]string{"registry": {"user"}}}
		_, err := secrets.Resolve(context.Background(), m, store)
		if !errors.Is(err, secrets.ErrMissingSecret) {
			t.Errorf("expected ErrMissingSecret, got %v", err)
		}
	})

	t.Run("it rejects a step referencing an undeclared secret", func(t *testing.T) {
		m := try.To(manifest.Parse([]byte(`
secrets:
  - name: token
    location: registry
    key: token
steps:
  - name: s
    image: img
    commands: ["true"]
    secrets:
      - name: other
        var_name: OTHER
`))).OrFatal(t)

		store := &fakeStore{subkeys: map[string][]string{"registry": {"token"}}}
		_, err := secrets.Resolve(context.Background(), m, store)
		if !errors.Is(err, secrets.ErrUnknownStepSecret) {
			t.Errorf("expected ErrUnknownStepSecret, got %v", err)
		}
	})

	t.Run("it rejects step references when no secrets are declared", func(t *testing.T) {
		m := try.To(manifest.Parse([]byte(`
steps:
  - name: s
    image: img
    commands: ["true"]
    secrets:
      - name: ghost
        var_name: GHOST
`))).OrFatal(t)

		_, err := secrets.Resolve(context.Background(), m, nil)
		if !errors.Is(err, secrets.ErrUnknownStepSecret) {
			t.Errorf("expected ErrUnknownStepSecret, got %v", err)
		}
	})

	t.Run("it fails when the store is unreachable", func(t *testing.T) {
		m := try.To(manifest.Parse([]byte(`
secrets:
  - name: token
    location: registry
    key: token
steps:
  - name: s
    image: img
    commands: ["true"]
`))).OrFatal(t)

		wantErr := errors.New("fake outage")
		_, err := secrets.Resolve(context.Background(), m, &fakeStore{err: wantErr})
		if !errors.Is(err, wantErr) {
			t.Errorf("expected the store error to propagate, got %v", err)
		}
	})
}

func TestMaterializedSecretConfig(t *testing.T) {
	conf := secrets.NewMaterializedSecretConfig([]secrets.MaterializedSecret{
		{ObjectName: "registry_token", SecretPath: "registry", SecretKey: "token"},
		{ObjectName: "deploy_key", SecretPath: "deploy", SecretKey: "ssh_key"},
	})

	t.Run("it renders the injector annotations", func(t *testing.T) {
		ann := conf.Annotations(secrets.DefaultRole)
		want := map[string]string{
			"vault.hashicorp.com/agent-inject":                        "true",
			"vault.hashicorp.com/role":                                "constructum",
			"vault.hashicorp.com/agent-inject-secret-registry_token":  "registry",
			"vault.hashicorp.com/agent-inject-secret-deploy_key":      "deploy",
			"vault.hashicorp.com/agent-inject-template-registry_token": `{{ with secret "constructum/registry" -}}
export REGISTRY_TOKEN="{{ .Data.data.token }}"
{{- end }}`,
			"vault.hashicorp.com/agent-inject-template-deploy_key": `{{ with secret "constructum/deploy" -}}
export DEPLOY_KEY="{{ .Data.data.ssh_key }}"
{{- end }}`,
		}
		if !cmp.MapEq(ann, want) {
			t.Errorf("unexpected annotations:\ngot  %v\nwant %v", ann, want)
		}
	})

	t.Run("it renders no annotations for an empty config", func(t *testing.T) {
		empty := secrets.NewMaterializedSecretConfig(nil)
		if ann := empty.Annotations(secrets.DefaultRole); len(ann) != 0 {
			t.Errorf("expected no annotations, got %v", ann)
		}
	})

	t.Run("it renders the source preamble in declaration order", func(t *testing.T) {
		want := []string{
			". /vault/secrets/registry_token",
			". /vault/secrets/deploy_key",
		}
		if got := conf.SourcePreamble(); !cmp.SliceEq(got, want) {
			t.Errorf("unexpected preamble: got %v, want %v", got, want)
		}
	})

	t.Run("it narrows to the secrets a step references", func(t *testing.T) {
		sub := try.To(conf.ForStep([]manifest.StepSecret{
			{Name: "deploy_key", VarName: "DEPLOY_KEY"},
		})).OrFatal(t)
		if !cmp.SliceEq(sub.Secrets(), []secrets.MaterializedSecret{
			{ObjectName: "deploy_key", SecretPath: "deploy", SecretKey: "ssh_key"},
		}) {
			t.Errorf("unexpected subset: %+v", sub.Secrets())
		}
	})

	t.Run("it refuses to narrow to an unknown name", func(t *testing.T) {
		_, err := conf.ForStep([]manifest.StepSecret{{Name: "ghost", VarName: "GHOST"}})
		if !errors.Is(err, secrets.ErrUnknownStepSecret) {
			t.Errorf("expected ErrUnknownStepSecret, got %v", err)
		}
	})
}
