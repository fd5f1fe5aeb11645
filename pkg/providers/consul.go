package providers

import (
	"sort"
	"strings"

	"github.com/hashicorp/consul/api"

	"github.com/mmorev/ctrender/pkg/core"
	"github.com/mmorev/ctrender/pkg/logging"
)

type ConsulClient interface {
	Get(key string, q *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error)
	List(prefix string, q *api.QueryOptions) (api.KVPairs, *api.QueryMeta, error)
}

type Consul struct {
	client ConsulClient
	logger logging.Logger
}

// NewConsul builds a Consul KV resolver. Connection settings come from the
// standard CONSUL_HTTP_* environment; a non-empty address or token argument
// overrides them.
func NewConsul(logger logging.Logger, address, token string) (*Consul, error) {
	conf := api.DefaultConfig()
	if address != "" {
		conf.Address = address
	}
	if token != "" {
		conf.Token = token
	}
	client, err := api.NewClient(conf)
	if err != nil {
		return nil, err
	}
	return &Consul{client: client.KV(), logger: logger}, nil
}

func (a *Consul) Name() string {
	return "consul"
}

// Get returns the pair at path, or nil when the key does not exist.
func (a *Consul) Get(path string) (*core.KVPair, error) {
	a.logger.WithField("path", path).Debug("read key")
	kv, _, err := a.client.Get(path, nil)
	if err != nil {
		return nil, classifyRenderError(a.Name(), path, err)
	}
	if kv == nil {
		return nil, nil
	}
	return &core.KVPair{Key: kv.Key, Value: string(kv.Value)}, nil
}

// List returns every pair under prefix, sorted by key. Folder placeholders
// (keys ending in "/") are skipped.
func (a *Consul) List(prefix string) ([]core.KVPair, error) {
	a.logger.WithField("prefix", prefix).Debug("list keys")
	kvs, _, err := a.client.List(prefix, nil)
	if err != nil {
		return nil, classifyRenderError(a.Name(), prefix, err)
	}
	pairs := []core.KVPair{}
	for _, kv := range kvs {
		if strings.HasSuffix(kv.Key, "/") {
			continue
		}
		pairs = append(pairs, core.KVPair{Key: kv.Key, Value: string(kv.Value)})
	}
	sort.Sort(core.PairsByKey(pairs))
	return pairs, nil
}
