//go:build integration
// +build integration

package integration_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mmorev/ctrender/pkg/core"
	"github.com/mmorev/ctrender/pkg/logging"
	"github.com/mmorev/ctrender/pkg/providers"
	"github.com/mmorev/ctrender/pkg/render"
)

type SecretData = map[string]interface{}

func TestRenderAgainstVault(t *testing.T) {
	ctx := context.Background()
	const testToken = "vault-token"

	req := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			AlwaysPullImage: false,
			Image:           "vault:1.6.3",
			ExposedPorts:    []string{"8200/tcp"},
			Env:             map[string]string{"VAULT_DEV_ROOT_TOKEN_ID": testToken},
			WaitingFor:      wait.ForLog("Vault server started!").WithStartupTimeout(20 * time.Second)},

		Started: true,
	}

	vaultContainer, err := testcontainers.GenericContainer(ctx, req)
	assert.NoError(t, err)
	defer vaultContainer.Terminate(ctx) //nolint

	ip, err := vaultContainer.Host(ctx)
	assert.NoError(t, err)
	port, err := vaultContainer.MappedPort(ctx, "8200")
	assert.NoError(t, err)
	host := fmt.Sprintf("http://%s:%s", ip, port.Port())

	//
	// pre-insert data w/API
	//
	config := &api.Config{Address: host}
	client, err := api.NewClient(config)
	assert.NoError(t, err)
	client.SetToken(testToken)
	_, err = client.Logical().Write("secret/data/test", SecretData{"data": SecretData{"secretkey": "shazam"}})
	assert.NoError(t, err)

	//
	// resolve through the provider and a full render
	//
	p, err := providers.NewVault(logging.New(), host, testToken)
	assert.NoError(t, err)

	doc, err := p.Read("secret/data/test")
	assert.NoError(t, err)
	nested := doc.Data["data"].(map[string]interface{})
	assert.Equal(t, "shazam", nested["secretkey"])

	r := render.New(nil, p, core.RenderContext{}, logging.New())
	out, err := r.Render("t", `{{ with secret "secret/data/test" }}app.name={{ index .Data.data "secretkey" }}{{ end }}`)
	assert.NoError(t, err)
	assert.Equal(t, "app.name=shazam", string(out))
}
