package providers

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/golang/mock/gomock"
	"github.com/hashicorp/consul/api"

	"github.com/mmorev/ctrender/pkg/core"
	"github.com/mmorev/ctrender/pkg/providers/mock_providers"
)

func TestConsulGet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mock_providers.NewMockConsulClient(ctrl)
	path := "settings/prod/billing-svc/mg-key"
	out := api.KVPair{
		Key:   path,
		Value: []byte("shazam"),
	}
	client.EXPECT().Get(gomock.Eq(path), gomock.Any()).Return(&out, nil, nil).AnyTimes()
	client.EXPECT().Get(gomock.Eq("settings/prod/nothing"), gomock.Any()).Return(nil, nil, nil).AnyTimes()
	s := Consul{
		client: client,
		logger: GetTestLogger(),
	}

	kv, err := s.Get(path)
	assert.Nil(t, err)
	assert.Equal(t, kv.Key, path)
	assert.Equal(t, kv.Value, "shazam")

	// a missing key is not an error at this layer
	kv, err = s.Get("settings/prod/nothing")
	assert.Nil(t, err)
	assert.True(t, kv == nil)
}

func TestConsulList(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mock_providers.NewMockConsulClient(ctrl)
	prefix := "settings/prod/billing-svc/"
	outlist := api.KVPairs{
		{
			Key:   "settings/prod/billing-svc/smtp-pass",
			Value: []byte("mailman"),
		},
		{
			Key:   "settings/prod/billing-svc/",
			Value: nil,
		},
		{
			Key:   "settings/prod/billing-svc/mg-key",
			Value: []byte("shazam"),
		},
	}
	client.EXPECT().List(gomock.Eq(prefix), gomock.Any()).Return(outlist, nil, nil).AnyTimes()
	s := Consul{
		client: client,
		logger: GetTestLogger(),
	}

	pairs, err := s.List(prefix)
	assert.Nil(t, err)
	assert.Equal(t, len(pairs), 2)
	assert.Equal(t, pairs[0].Value, "shazam")
	assert.Equal(t, pairs[1].Value, "mailman")
}

func TestConsulFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mock_providers.NewMockConsulClient(ctrl)
	client.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil, errors.New("connection refused")).AnyTimes()
	client.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, nil, errors.New("Unexpected response code: 403 (ACL not found)")).AnyTimes()
	s := Consul{
		client: client,
		logger: GetTestLogger(),
	}

	_, err := s.Get("settings/prod/billing-svc")
	assert.NotNil(t, err)
	var rerr *core.RenderError
	assert.True(t, errors.As(err, &rerr))
	assert.Equal(t, rerr.Kind, core.ConnectionFailure)

	_, err = s.List("settings/prod/")
	assert.True(t, errors.As(err, &rerr))
	assert.Equal(t, rerr.Kind, core.AuthFailure)
}
