package core

// RenderContext is the environment mapping exposed to templates through the
// `env` function. Rendering never reads the ambient process environment, so
// a render is fully determined by the template, the KV state and this
// context.
type RenderContext map[string]string

// Lookup returns the value for name, or the empty string when unset.
func (rc RenderContext) Lookup(name string) string {
	return rc[name]
}

// KVPair is a single Consul key/value entry.
type KVPair struct {
	Key   string
	Value string
}

type PairsByKey []KVPair

func (a PairsByKey) Len() int           { return len(a) }
func (a PairsByKey) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a PairsByKey) Less(i, j int) bool { return a[i].Key < a[j].Key }

// SecretDocument is a structured secret read from Vault. Data carries the
// raw logical-read payload, so kv-v2 documents keep their nested "data" key
// and templates can use `index .Data.data "field"` unchanged.
type SecretDocument struct {
	Path string
	Data map[string]interface{}
}

// KVResolver reads plain key/value data by path (Consul).
type KVResolver interface {
	Name() string
	Get(path string) (*KVPair, error)
	List(prefix string) ([]KVPair, error)
}

// SecretResolver reads structured secret documents by path (Vault).
type SecretResolver interface {
	Name() string
	Read(path string) (*SecretDocument, error)
}

// TemplateSpec describes one template to render and deliver. Exactly one of
// Src and Content must be set.
type TemplateSpec struct {
	Src      string `yaml:"src,omitempty"`
	Content  string `yaml:"content,omitempty"`
	Dest     string `yaml:"dest"`
	Mode     string `yaml:"mode,omitempty"`
	Owner    string `yaml:"owner,omitempty"`
	Group    string `yaml:"group,omitempty"`
	Backup   bool   `yaml:"backup,omitempty"`
	Validate string `yaml:"validate,omitempty"`
	Force    bool   `yaml:"force,omitempty"`
}

// DeliveryOptions controls how a rendered artifact is installed at its
// destination.
type DeliveryOptions struct {
	// Backup keeps a timestamped copy of the pre-existing destination
	// before it is replaced.
	Backup bool
	// Validate is an external command run against the staged file before
	// commit. A %s placeholder is replaced with the staged path.
	Validate string
	// Force commits even when the destination content already matches.
	Force bool
	// Check computes the would-be result without touching the destination.
	Check bool
	// Diff attaches a unified diff of old vs. new content to the result.
	Diff bool

	// Destination metadata. Mode is an octal string such as "0600"; empty
	// preserves the prior file's mode, or 0644 for a new file.
	// Owner and Group accept names or numeric ids.
	Mode  string
	Owner string
	Group string

	// Env is exported to the validate command, typically the RenderContext.
	Env map[string]string
}

// DeliveryResult is the outcome of a single delivery.
type DeliveryResult struct {
	Dest       string `json:"dest"`
	Changed    bool   `json:"changed"`
	Skipped    bool   `json:"skipped,omitempty"`
	BackupPath string `json:"backup_path,omitempty"`
	Diff       string `json:"diff,omitempty"`
	Checksum   string `json:"checksum,omitempty"`
}

type WizardAnswers struct {
	Project     string
	Backends    []string
	BackendKeys map[string]bool
}
