package core

import (
	"fmt"
	"os"
	"strings"
)

type Opts map[string]string

// Populate substitutes `{{name}}` placeholders in template paths and
// destinations from an opts map. Opt values prefixed with `env:` are taken
// from the process environment, with an optional default after a comma:
// `env:STAGE,development`.
type Populate struct {
	opts map[string]string
}

func NewPopulate(opts Opts) *Populate {
	return &Populate{
		opts: opts,
	}
}

func (p *Populate) FindAndReplace(path string) string {
	populated := path
	for k, v := range p.opts {
		val := v
		if strings.HasPrefix(v, "env:") {
			evar, dflt := parseDefaultValue(strings.TrimPrefix(v, "env:"))
			val = os.Getenv(evar)
			if val == "" {
				val = dflt
			}
		}
		populated = strings.ReplaceAll(populated, fmt.Sprintf("{{%s}}", k), val)
	}
	return populated
}

// Spec populates the path-like fields of a template spec, leaving delivery
// flags untouched.
func (p *Populate) Spec(spec TemplateSpec) TemplateSpec {
	out := spec
	out.Src = p.FindAndReplace(spec.Src)
	out.Dest = p.FindAndReplace(spec.Dest)
	out.Validate = p.FindAndReplace(spec.Validate)
	return out
}

func parseDefaultValue(s string) (string, string) {
	key, dflt, _ := strings.Cut(s, ",")
	return key, strings.TrimSpace(dflt)
}
