package pkg

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/joho/godotenv"
	"github.com/karrick/godirwalk"
	"github.com/mitchellh/go-homedir"
	ansiblevault "github.com/sosedoff/ansible-vault-go"

	"github.com/mmorev/ctrender/pkg/core"
	"github.com/mmorev/ctrender/pkg/deliver"
	"github.com/mmorev/ctrender/pkg/logging"
	"github.com/mmorev/ctrender/pkg/providers"
	"github.com/mmorev/ctrender/pkg/render"
	"github.com/mmorev/ctrender/pkg/utils"
)

const ansibleVaultHeader = "$ANSIBLE_VAULT;"

// CTRender wires the render and delivery halves together: it loads template
// sources, renders them once against Consul/Vault, and hands the artifact
// to the delivery manager.
type CTRender struct {
	Config    *RenderFile
	Porcelain *Porcelain
	Populate  *core.Populate
	Logger    logging.Logger
	Env       core.RenderContext

	consul    core.KVResolver
	vault     core.SecretResolver
	deliverer *deliver.Manager
}

func NewCTRender(cfg *RenderFile, logger logging.Logger) *CTRender {
	return &CTRender{
		Config:    cfg,
		Porcelain: &Porcelain{Out: os.Stdout},
		Populate:  core.NewPopulate(cfg.Opts),
		Logger:    logger,
		Env:       core.RenderContext{},
		deliverer: deliver.New(logger),
	}
}

// Connect builds the backend clients. CLI arguments win over the config
// file; both fall back to the standard CONSUL_HTTP_* / VAULT_* environment.
// Clients are constructed eagerly but do not dial until a template reaches
// for them.
func (c *CTRender) Connect(consulAddr, consulToken, vaultAddr, vaultToken string) error {
	if c.Config.Consul != nil {
		if consulAddr == "" {
			consulAddr = c.Config.Consul.Address
		}
		if consulToken == "" {
			consulToken = c.Config.Consul.Token
		}
	}
	consul, err := providers.NewConsul(c.Logger.WithField("backend", "consul"), consulAddr, consulToken)
	if err != nil {
		return err
	}
	c.consul = consul

	if c.Config.Vault != nil {
		if vaultAddr == "" {
			vaultAddr = c.Config.Vault.Address
		}
		if vaultToken == "" {
			vaultToken = c.Config.Vault.Token
		}
	}
	vault, err := providers.NewVault(c.Logger.WithField("backend", "vault"), vaultAddr, vaultToken)
	if err != nil {
		return err
	}
	c.vault = vault
	return nil
}

// LoadEnv assembles the render context: ambient environment when carry_env
// is set, then the env file, then explicit pairs, later sources winning.
func (c *CTRender) LoadEnv(pairs map[string]string) error {
	env := map[string]string{}

	if c.Config.CarryEnv {
		for _, kv := range os.Environ() {
			k, v, _ := strings.Cut(kv, "=")
			env[k] = v
		}
	}

	if c.Config.EnvFile != "" {
		path, err := homedir.Expand(c.Config.EnvFile)
		if err != nil {
			return err
		}
		fileEnv, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("loading env file %s: %w", path, err)
		}
		env = utils.Merge(env, fileEnv)
	}

	c.Env = core.RenderContext(utils.Merge(env, pairs))
	return nil
}

// RenderSpec renders a single template spec and delivers it. A template
// that renders to empty output is reported as skipped and the destination
// is left alone.
func (c *CTRender) RenderSpec(spec core.TemplateSpec, check, diff bool) (*core.DeliveryResult, error) {
	spec = c.Populate.Spec(spec)
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	name, body, err := c.loadSource(spec)
	if err != nil {
		return nil, err
	}

	mode := spec.Mode
	if mode == "preserve" {
		src, err := homedir.Expand(spec.Src)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(src)
		if err != nil {
			return nil, err
		}
		mode = fmt.Sprintf("%04o", info.Mode().Perm())
	}

	artifact, err := c.renderer().Render(name, body)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(artifact)) == 0 {
		c.Logger.WithField("template", name).Warn("template rendered to empty output, skipping delivery")
		return &core.DeliveryResult{Dest: spec.Dest, Skipped: true}, nil
	}

	return c.deliverer.Deliver(artifact, spec.Dest, core.DeliveryOptions{
		Backup:   spec.Backup,
		Validate: spec.Validate,
		Force:    spec.Force,
		Check:    check,
		Diff:     diff,
		Mode:     mode,
		Owner:    spec.Owner,
		Group:    spec.Group,
		Env:      c.Env,
	})
}

// Apply renders every template in the config file, expanding directory
// sources, and stops at the first failure.
func (c *CTRender) Apply(check, diff bool) ([]*core.DeliveryResult, error) {
	if len(c.Config.Templates) == 0 {
		return nil, fmt.Errorf("no templates configured in %s", c.Config.LoadedFrom)
	}

	results := []*core.DeliveryResult{}
	for _, spec := range c.Config.Templates {
		expanded, err := c.expandDir(c.Populate.Spec(spec))
		if err != nil {
			return results, err
		}
		for _, s := range expanded {
			res, err := c.RenderSpec(s, check, diff)
			if err != nil {
				return results, fmt.Errorf("template for %s: %w", s.Dest, err)
			}
			results = append(results, res)
		}
	}
	return results, nil
}

// expandDir turns a directory source into one spec per template file, each
// destined for the matching path under the spec's dest directory.
func (c *CTRender) expandDir(spec core.TemplateSpec) ([]core.TemplateSpec, error) {
	if spec.Src == "" {
		return []core.TemplateSpec{spec}, nil
	}
	src, err := homedir.Expand(spec.Src)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(src)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []core.TemplateSpec{spec}, nil
	}

	specs := []core.TemplateSpec{}
	err = godirwalk.Walk(src, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(src, osPathname)
			if err != nil {
				return err
			}
			one := spec
			one.Src = osPathname
			one.Dest = filepath.Join(spec.Dest, strings.TrimSuffix(rel, ".ctmpl"))
			specs = append(specs, one)
			return nil
		},
		Unsorted: false,
	})
	if err != nil {
		return nil, err
	}
	return specs, nil
}

func (c *CTRender) renderer() *render.Renderer {
	opts := []render.Opt{}
	if c.Config.LeftDelim != "" && c.Config.RightDelim != "" {
		opts = append(opts, render.WithDelims(c.Config.LeftDelim, c.Config.RightDelim))
	}
	return render.New(c.consul, c.vault, c.Env, c.Logger, opts...)
}

// loadSource reads the template body from the spec's inline content or its
// source file. Ansible-Vault encrypted sources are decrypted with the
// passphrase from ANSIBLE_VAULT_PASSPHRASE.
func (c *CTRender) loadSource(spec core.TemplateSpec) (string, string, error) {
	if spec.Content != "" {
		return "inline", spec.Content, nil
	}

	src, err := homedir.Expand(spec.Src)
	if err != nil {
		return "", "", err
	}
	raw, err := os.ReadFile(src)
	if err != nil {
		return "", "", fmt.Errorf("reading template source: %w", err)
	}

	body := string(raw)
	if strings.HasPrefix(body, ansibleVaultHeader) {
		body, err = ansiblevault.Decrypt(body, os.Getenv("ANSIBLE_VAULT_PASSPHRASE"))
		if err != nil {
			return "", "", fmt.Errorf("decrypting template source %s: %w", src, err)
		}
	}
	return utils.LastSegment(src), body, nil
}

func validateSpec(spec core.TemplateSpec) error {
	if spec.Src == "" && spec.Content == "" {
		return fmt.Errorf("template needs one of src or content")
	}
	if spec.Src != "" && spec.Content != "" {
		return fmt.Errorf("ambiguous template: src and content are mutually exclusive")
	}
	if spec.Dest == "" {
		return fmt.Errorf("template needs a dest")
	}
	return nil
}

// SetupNewProject renders a starter config file through the wizard.
func (c *CTRender) SetupNewProject(fname string) error {
	answers, err := c.Porcelain.StartWizard()
	if err != nil {
		return err
	}
	if err := c.writeRenderFile(fname, answers); err != nil {
		return err
	}

	c.Porcelain.DidCreateNewFile(fname)
	return nil
}

func (c *CTRender) writeRenderFile(fname string, answers *core.WizardAnswers) error {
	t, err := template.New("ctrender").Parse(RenderFileTemplate)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, answers); err != nil {
		return err
	}
	return utils.WriteFileInPath(filepath.Base(fname), filepath.Dir(fname), buf.Bytes())
}
