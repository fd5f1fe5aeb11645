package providers

import (
	"github.com/hashicorp/vault/api"

	"github.com/mmorev/ctrender/pkg/core"
	"github.com/mmorev/ctrender/pkg/logging"
)

type VaultClient interface {
	Read(path string) (*api.Secret, error)
}

type Vault struct {
	client VaultClient
	logger logging.Logger
}

// NewVault builds a Vault secret resolver. Connection settings come from the
// standard VAULT_* environment; a non-empty address or token argument
// overrides them.
func NewVault(logger logging.Logger, address, token string) (*Vault, error) {
	conf := api.DefaultConfig()
	err := conf.ReadEnvironment()
	if err != nil {
		return nil, err
	}
	if address != "" {
		conf.Address = address
	}

	client, err := api.NewClient(conf)
	if err != nil {
		return nil, err
	}
	if token != "" {
		client.SetToken(token)
	}

	return &Vault{client: client.Logical(), logger: logger}, nil
}

func (v *Vault) Name() string {
	return "vault"
}

// Read returns the secret document at path, or nil when no secret exists
// there. Data is the raw logical payload, so kv-v2 secrets keep their
// nested "data" key.
func (v *Vault) Read(path string) (*core.SecretDocument, error) {
	v.logger.WithField("path", path).Debug("read secret")
	secret, err := v.client.Read(path)
	if err != nil {
		return nil, classifyRenderError(v.Name(), path, err)
	}

	if secret == nil || len(secret.Data) == 0 {
		return nil, nil
	}

	for _, w := range secret.Warnings {
		v.logger.WithField("path", path).Warn("vault: %s", w)
	}

	return &core.SecretDocument{Path: path, Data: secret.Data}, nil
}
