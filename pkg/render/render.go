package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/mmorev/ctrender/pkg/core"
	"github.com/mmorev/ctrender/pkg/logging"
)

// Renderer evaluates a template once against the configured KV backends and
// a fixed environment context. There is no watch loop: every directive is
// resolved exactly one time, so a render is deterministic for a given KV
// state.
type Renderer struct {
	consul core.KVResolver
	vault  core.SecretResolver
	env    core.RenderContext
	logger logging.Logger

	leftDelim  string
	rightDelim string

	// first resolution failure of the current render; text/template folds
	// function errors into its own error text, so the typed error is kept
	// aside for the caller
	resolveErr error
}

type Opt func(*Renderer)

// WithDelims overrides the default {{ }} template delimiters.
func WithDelims(left, right string) Opt {
	return func(r *Renderer) {
		r.leftDelim = left
		r.rightDelim = right
	}
}

// New builds a renderer. Either backend may be nil; templates that reach
// for an unconfigured backend fail with a ConnectionFailure render error.
func New(consul core.KVResolver, vault core.SecretResolver, env core.RenderContext, logger logging.Logger, opts ...Opt) *Renderer {
	r := &Renderer{
		consul: consul,
		vault:  vault,
		env:    env,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render resolves every directive in tmpl and returns the rendered bytes.
// Failures carry a core.RenderError with a kind the caller can branch on.
func (r *Renderer) Render(name, tmpl string) ([]byte, error) {
	tt, err := template.New(name).Delims(r.leftDelim, r.rightDelim).Funcs(r.funcMap()).Parse(tmpl)
	if err != nil {
		return nil, core.NewRenderError(core.TemplateSyntax, name, err)
	}

	r.resolveErr = nil
	var output bytes.Buffer
	if err := tt.Execute(&output, nil); err != nil {
		var rerr *core.RenderError
		if errors.As(err, &rerr) {
			return nil, rerr
		}
		if r.resolveErr != nil {
			return nil, r.resolveErr
		}
		return nil, core.NewRenderError(core.TemplateSyntax, name, err)
	}

	r.logger.WithFields(map[string]interface{}{"template": name, "bytes": output.Len()}).Debug("rendered template")
	return output.Bytes(), nil
}

func (r *Renderer) funcMap() template.FuncMap {
	return template.FuncMap{
		"key":          r.key,
		"keyOrDefault": r.keyOrDefault,
		"keyExists":    r.keyExists,
		"ls":           r.ls,
		"tree":         r.tree,
		"secret":       r.secret,
		"env":          r.envFunc,
		"envOrDefault": r.envOrDefault,
		"toJson":       toJSON,
		"toYaml":       toYAML,
		"indent":       indent,
	}
}

// fail keeps the first typed resolution error of the current render so the
// caller gets it back even though text/template stringifies function errors.
func (r *Renderer) fail(err error) error {
	if r.resolveErr == nil {
		r.resolveErr = err
	}
	return err
}

func (r *Renderer) key(path string) (string, error) {
	if r.consul == nil {
		return "", r.fail(core.NewRenderError(core.ConnectionFailure, path, errConsulNotConfigured))
	}
	kv, err := r.consul.Get(path)
	if err != nil {
		return "", r.fail(err)
	}
	if kv == nil {
		return "", r.fail(core.NewRenderError(core.MissingKey, path, nil))
	}
	return kv.Value, nil
}

func (r *Renderer) keyOrDefault(path, dflt string) (string, error) {
	if r.consul == nil {
		return "", r.fail(core.NewRenderError(core.ConnectionFailure, path, errConsulNotConfigured))
	}
	kv, err := r.consul.Get(path)
	if err != nil {
		return "", r.fail(err)
	}
	if kv == nil {
		return dflt, nil
	}
	return kv.Value, nil
}

func (r *Renderer) keyExists(path string) (bool, error) {
	if r.consul == nil {
		return false, r.fail(core.NewRenderError(core.ConnectionFailure, path, errConsulNotConfigured))
	}
	kv, err := r.consul.Get(path)
	if err != nil {
		return false, r.fail(err)
	}
	return kv != nil, nil
}

// ls lists the immediate children of prefix with their key basenames.
func (r *Renderer) ls(prefix string) ([]core.KVPair, error) {
	pairs, err := r.tree(prefix)
	if err != nil {
		return nil, err
	}
	direct := []core.KVPair{}
	for _, p := range pairs {
		if !strings.Contains(p.Key, "/") {
			direct = append(direct, p)
		}
	}
	return direct, nil
}

// tree lists everything under prefix recursively; keys are relative to the
// prefix.
func (r *Renderer) tree(prefix string) ([]core.KVPair, error) {
	if r.consul == nil {
		return nil, r.fail(core.NewRenderError(core.ConnectionFailure, prefix, errConsulNotConfigured))
	}
	base := prefix
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	pairs, err := r.consul.List(base)
	if err != nil {
		return nil, r.fail(err)
	}
	rel := []core.KVPair{}
	for _, p := range pairs {
		key := strings.TrimPrefix(p.Key, base)
		if key == "" {
			continue
		}
		rel = append(rel, core.KVPair{Key: key, Value: p.Value})
	}
	return rel, nil
}

func (r *Renderer) secret(path string) (*core.SecretDocument, error) {
	if r.vault == nil {
		return nil, r.fail(core.NewRenderError(core.ConnectionFailure, path, errVaultNotConfigured))
	}
	doc, err := r.vault.Read(path)
	if err != nil {
		return nil, r.fail(err)
	}
	if doc == nil {
		return nil, r.fail(core.NewRenderError(core.MissingKey, path, nil))
	}
	return doc, nil
}

// envFunc looks up the render context, never the process environment. An
// unset name renders as an empty string, matching consul-template.
func (r *Renderer) envFunc(name string) string {
	return r.env.Lookup(name)
}

func (r *Renderer) envOrDefault(name, dflt string) string {
	if v, ok := r.env[name]; ok && v != "" {
		return v
	}
	return dflt
}

func toJSON(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func toYAML(v interface{}) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(b), "\n"), nil
}

func indent(spaces int, s string) string {
	pad := strings.Repeat(" ", spaces)
	return pad + strings.ReplaceAll(s, "\n", "\n"+pad)
}

var (
	errConsulNotConfigured = errorString("consul backend is not configured")
	errVaultNotConfigured  = errorString("vault backend is not configured")
)

type errorString string

func (e errorString) Error() string { return string(e) }
