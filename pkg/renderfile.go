package pkg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/mmorev/ctrender/pkg/core"
)

type BackendConfig struct {
	Address string `yaml:"address,omitempty"`
	Token   string `yaml:"token,omitempty"`
}

// RenderFile is the .ctrender.yml project file: connection settings for the
// KV backends, the environment handed to templates, and the set of
// templates an `apply` run delivers.
type RenderFile struct {
	Project    string              `yaml:"project,omitempty"`
	Opts       map[string]string   `yaml:"opts,omitempty"`
	CarryEnv   bool                `yaml:"carry_env,omitempty"`
	EnvFile    string              `yaml:"env_file,omitempty"`
	Consul     *BackendConfig      `yaml:"consul,omitempty"`
	Vault      *BackendConfig      `yaml:"vault,omitempty"`
	LeftDelim  string              `yaml:"left_delimiter,omitempty"`
	RightDelim string              `yaml:"right_delimiter,omitempty"`
	Templates  []core.TemplateSpec `yaml:"templates,omitempty"`
	LoadedFrom string
}

func NewRenderFile(s string) (*RenderFile, error) {
	yamlFile, err := os.ReadFile(s)
	if err != nil {
		return nil, err
	}
	rf := &RenderFile{}
	err = yaml.Unmarshal(yamlFile, rf)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s, err)
	}
	rf.LoadedFrom = s
	return rf, nil
}
