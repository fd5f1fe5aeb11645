package render

import (
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/alecthomas/assert"

	"github.com/mmorev/ctrender/pkg/core"
	"github.com/mmorev/ctrender/pkg/logging"
)

// in-memory resolvers, enough to drive the full function set
type inMemKV struct {
	kvs map[string]string
	err error
}

func (im *inMemKV) Name() string { return "inmem-consul" }

func (im *inMemKV) Get(path string) (*core.KVPair, error) {
	if im.err != nil {
		return nil, im.err
	}
	v, ok := im.kvs[path]
	if !ok {
		return nil, nil
	}
	return &core.KVPair{Key: path, Value: v}, nil
}

func (im *inMemKV) List(prefix string) ([]core.KVPair, error) {
	if im.err != nil {
		return nil, im.err
	}
	pairs := []core.KVPair{}
	for k, v := range im.kvs {
		if strings.HasPrefix(k, prefix) {
			pairs = append(pairs, core.KVPair{Key: k, Value: v})
		}
	}
	sort.Sort(core.PairsByKey(pairs))
	return pairs, nil
}

type inMemSecrets struct {
	docs map[string]map[string]interface{}
}

func (im *inMemSecrets) Name() string { return "inmem-vault" }

func (im *inMemSecrets) Read(path string) (*core.SecretDocument, error) {
	data, ok := im.docs[path]
	if !ok {
		return nil, nil
	}
	return &core.SecretDocument{Path: path, Data: data}, nil
}

func testLogger() logging.Logger {
	logger := logging.New()
	logger.SetLevel("null")
	return logger
}

func testRenderer() *Renderer {
	consul := &inMemKV{kvs: map[string]string{
		"app/config/openkey":    "42",
		"app/config/db/user":    "svc",
		"app/config/db/pass":    "hunter2",
		"app/config/redis/port": "6379",
	}}
	vault := &inMemSecrets{docs: map[string]map[string]interface{}{
		"secret/data/test": {
			"data": map[string]interface{}{"secretkey": "shazam"},
		},
	}}
	return New(consul, vault, core.RenderContext{"ENV_NAME": "dev"}, testLogger())
}

func TestRenderKey(t *testing.T) {
	r := testRenderer()

	out, err := r.Render("t", `key={{ key "app/config/openkey" }}`)
	assert.Nil(t, err)
	assert.Equal(t, string(out), "key=42")
}

func TestRenderDeterministic(t *testing.T) {
	r := testRenderer()
	tmpl := `{{ range tree "app/config" }}{{ .Key }}={{ .Value }}
{{ end }}`

	first, err := r.Render("t", tmpl)
	assert.Nil(t, err)
	second, err := r.Render("t", tmpl)
	assert.Nil(t, err)
	assert.Equal(t, string(first), string(second))
	assert.Contains(t, string(first), "db/pass=hunter2")
}

func TestRenderLsDirectChildrenOnly(t *testing.T) {
	r := testRenderer()

	out, err := r.Render("t", `{{ range ls "app/config" }}{{ .Key }} {{ end }}`)
	assert.Nil(t, err)
	assert.Equal(t, string(out), "openkey ")
}

func TestRenderSecret(t *testing.T) {
	r := testRenderer()

	out, err := r.Render("t", `{{ with secret "secret/data/test" }}app.name={{ index .Data.data "secretkey" }}{{ end }}`)
	assert.Nil(t, err)
	assert.Equal(t, string(out), "app.name=shazam")
}

func TestRenderEnvUsesContextOnly(t *testing.T) {
	t.Setenv("ENV_NAME", "process-env-leak")
	r := testRenderer()

	out, err := r.Render("t", `{{ env "ENV_NAME" }} {{ env "UNSET_NAME" }} {{ envOrDefault "UNSET_NAME" "fallback" }}`)
	assert.Nil(t, err)
	assert.Equal(t, string(out), "dev  fallback")
}

func TestRenderMissingKey(t *testing.T) {
	r := testRenderer()

	_, err := r.Render("t", `{{ key "app/config/nope" }}`)
	var rerr *core.RenderError
	assert.True(t, errors.As(err, &rerr))
	assert.Equal(t, rerr.Kind, core.MissingKey)
	assert.Equal(t, rerr.Path, "app/config/nope")

	out, err := r.Render("t", `{{ keyOrDefault "app/config/nope" "fallback" }}`)
	assert.Nil(t, err)
	assert.Equal(t, string(out), "fallback")
}

func TestRenderSyntaxError(t *testing.T) {
	r := testRenderer()

	_, err := r.Render("t", `{{ key "unterminated }}`)
	var rerr *core.RenderError
	assert.True(t, errors.As(err, &rerr))
	assert.Equal(t, rerr.Kind, core.TemplateSyntax)
}

func TestRenderResolverFailurePropagates(t *testing.T) {
	consul := &inMemKV{err: core.NewRenderError(core.ConnectionFailure, "app/config/openkey", errors.New("connection refused"))}
	r := New(consul, nil, core.RenderContext{}, testLogger())

	_, err := r.Render("t", `{{ key "app/config/openkey" }}`)
	var rerr *core.RenderError
	assert.True(t, errors.As(err, &rerr) || errors.As(r.resolveErr, &rerr))
	assert.Equal(t, rerr.Kind, core.ConnectionFailure)
}

func TestRenderUnconfiguredBackend(t *testing.T) {
	r := New(nil, nil, core.RenderContext{}, testLogger())

	_, err := r.Render("t", `{{ key "app/config/openkey" }}`)
	var rerr *core.RenderError
	assert.True(t, errors.As(err, &rerr))
	assert.Equal(t, rerr.Kind, core.ConnectionFailure)
}

func TestRenderCustomDelims(t *testing.T) {
	r := New(testRenderer().consul, nil, core.RenderContext{}, testLogger(), WithDelims("[[", "]]"))

	out, err := r.Render("t", `key=[[ key "app/config/openkey" ]] raw={{ untouched }}`)
	assert.Nil(t, err)
	assert.Equal(t, string(out), "key=42 raw={{ untouched }}")
}

func TestRenderEncoders(t *testing.T) {
	r := testRenderer()

	out, err := r.Render("t", `{{ with secret "secret/data/test" }}{{ toJson .Data.data }}{{ end }}`)
	assert.Nil(t, err)
	assert.Equal(t, string(out), `{"secretkey":"shazam"}`)

	out, err = r.Render("t", `{{ with secret "secret/data/test" }}{{ toYaml .Data.data }}{{ end }}`)
	assert.Nil(t, err)
	assert.Equal(t, string(out), "secretkey: shazam")

	out, err = r.Render("t", `{{ indent 2 "a\nb" }}`)
	assert.Nil(t, err)
	assert.Equal(t, string(out), "  a\n  b")
}
