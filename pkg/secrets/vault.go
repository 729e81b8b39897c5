package secrets

import (
	"context"
	"errors"
	"fmt"

	vault "github.com/hashicorp/vault/api"
)

// Mount is the KV v2 mount holding every constructum secret.
const Mount = "constructum"

type vaultStore struct {
	client *vault.Client
}

// NewVaultStore connects a MetadataStore to the Vault server at address.
// The token is taken from the process environment (VAULT_TOKEN) or the
// token helper, as usual for the Vault client.
func NewVaultStore(address string) (MetadataStore, error) {
	config := vault.DefaultConfig()
	config.Address = address
	client, err := vault.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("connecting to vault at %s: %w", address, err)
	}
	return &vaultStore{client: client}, nil
}

// ListSubkeys reads the KV v2 entry at location under the constructum
// mount and returns its key names. A location that does not exist yields
// no subkeys rather than an error; validation turns that into a missing
// secret.
func (v *vaultStore) ListSubkeys(ctx context.Context, location string) ([]string, error) {
	secret, err := v.client.KVv2(Mount).Get(ctx, location)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading secret %s: %w", location, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}
	subkeys := make([]string, 0, len(secret.Data))
	for key := range secret.Data {
		subkeys = append(subkeys, key)
	}
	return subkeys, nil
}
