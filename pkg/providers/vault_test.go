package providers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/golang/mock/gomock"
	"github.com/hashicorp/vault/api"

	"github.com/mmorev/ctrender/pkg/core"
	"github.com/mmorev/ctrender/pkg/providers/mock_providers"
)

func TestVaultRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mock_providers.NewMockVaultClient(ctrl)
	path := "secret/data/prod/billing-svc"
	// kv-v2 nests the payload under "data"
	out := api.Secret{
		Data: map[string]interface{}{
			"data": map[string]interface{}{
				"MG_KEY":    "shazam",
				"SMTP_PASS": "mailman",
			},
		},
	}
	client.EXPECT().Read(gomock.Eq(path)).Return(&out, nil).AnyTimes()
	client.EXPECT().Read(gomock.Eq("secret/data/prod/nothing")).Return(nil, nil).AnyTimes()
	v := Vault{
		client: client,
		logger: GetTestLogger(),
	}

	doc, err := v.Read(path)
	assert.Nil(t, err)
	assert.Equal(t, doc.Path, path)
	nested := doc.Data["data"].(map[string]interface{})
	assert.Equal(t, nested["MG_KEY"], "shazam")

	doc, err = v.Read("secret/data/prod/nothing")
	assert.Nil(t, err)
	assert.True(t, doc == nil)
}

func TestVaultFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mock_providers.NewMockVaultClient(ctrl)
	client.EXPECT().Read(gomock.Eq("secret/denied")).Return(nil, &api.ResponseError{
		StatusCode: http.StatusForbidden,
		Errors:     []string{"permission denied"},
	}).AnyTimes()
	client.EXPECT().Read(gomock.Eq("secret/unreachable")).Return(nil, errors.New("connection refused")).AnyTimes()
	v := Vault{
		client: client,
		logger: GetTestLogger(),
	}

	var rerr *core.RenderError

	_, err := v.Read("secret/denied")
	assert.True(t, errors.As(err, &rerr))
	assert.Equal(t, rerr.Kind, core.AuthFailure)

	_, err = v.Read("secret/unreachable")
	assert.True(t, errors.As(err, &rerr))
	assert.Equal(t, rerr.Kind, core.ConnectionFailure)
}
