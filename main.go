package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/mmorev/ctrender/pkg"
	"github.com/mmorev/ctrender/pkg/core"
	"github.com/mmorev/ctrender/pkg/logging"
)

var CLI struct {
	Config  string `short:"c" help:"Path to .ctrender.yml"`
	Verbose bool   `short:"v" help:"Verbose (debug) logging"`

	Render struct {
		Dest        string            `arg:"" name:"dest" help:"Destination path for the rendered file"`
		Src         string            `optional:"" short:"s" help:"Path to the template source (consul-template format)"`
		Content     string            `optional:"" help:"Inline template, instead of --src"`
		Backup      bool              `optional:"" help:"Keep a timestamped backup of the previous destination"`
		Validate    string            `optional:"" help:"Validation command, run against the staged file; use %s for its path"`
		Check       bool              `optional:"" help:"Report the would-be change without writing"`
		Diff        bool              `optional:"" help:"Report a unified diff of the change"`
		Force       bool              `optional:"" help:"Commit even when the content is unchanged"`
		Mode        string            `optional:"" help:"Destination file mode, octal or 'preserve'"`
		Owner       string            `optional:"" help:"Destination owner (name or uid)"`
		Group       string            `optional:"" help:"Destination group (name or gid)"`
		ConsulAddr  string            `optional:"" name:"consul-addr" help:"Consul server address"`
		ConsulToken string            `optional:"" name:"consul-token" help:"Consul authorization token"`
		VaultAddr   string            `optional:"" name:"vault-addr" help:"Vault server address"`
		VaultToken  string            `optional:"" name:"vault-token" help:"Vault authorization token"`
		Env         map[string]string `optional:"" help:"K=V pairs exposed to the template's env function"`
		EnvFile     string            `optional:"" name:"env-file" help:"Dotenv file loaded into the template environment"`
		JSON        bool              `optional:"" name:"json" help:"Print the delivery result as JSON"`
	} `cmd:"" help:"Render a template from Consul/Vault data and deliver it to a destination"`

	Apply struct {
		Check bool `optional:"" help:"Report would-be changes without writing"`
		Diff  bool `optional:"" help:"Report unified diffs of the changes"`
	} `cmd:"" help:"Render and deliver every template in the config file"`

	New struct {
	} `cmd:"" help:"Create a new ctrender configuration file"`

	Version struct {
	} `cmd:"" help:"ctrender version"`
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

//nolint
func main() {
	ctx := kong.Parse(&CLI)

	// below commands don't require a config file
	//nolint
	switch ctx.Command() {
	case "version":
		fmt.Printf("ctrender %v\n", version)
		fmt.Printf("Revision %v, date: %v\n", commit, date)
		os.Exit(0)
	}

	logger := logging.GetRoot()
	if CLI.Verbose {
		logger.SetLevel("debug")
	}

	renderyml := ".ctrender.yml"
	if CLI.Config != "" {
		renderyml = CLI.Config
	}

	if ctx.Command() == "new" {
		ct := pkg.NewCTRender(&pkg.RenderFile{}, logger)
		ct.Porcelain.Out = os.Stderr
		if _, err := os.Stat(renderyml); err == nil && !ct.Porcelain.AskForConfirmation(fmt.Sprintf("The file %s already exists. Do you want to override it with new settings?", renderyml)) {
			os.Exit(0)
		}

		if err := ct.SetupNewProject(renderyml); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := pkg.NewRenderFile(renderyml)
	if err != nil {
		// a one-shot render works without a config file
		if ctx.Command() != "render <dest>" || CLI.Config != "" {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		cfg = &pkg.RenderFile{}
	}

	ct := pkg.NewCTRender(cfg, logger)

	switch ctx.Command() {
	case "render <dest>":
		if err := ct.Connect(CLI.Render.ConsulAddr, CLI.Render.ConsulToken, CLI.Render.VaultAddr, CLI.Render.VaultToken); err != nil {
			bail(err)
		}
		if CLI.Render.EnvFile != "" {
			ct.Config.EnvFile = CLI.Render.EnvFile
		}
		if err := ct.LoadEnv(CLI.Render.Env); err != nil {
			bail(err)
		}

		spec := core.TemplateSpec{
			Src:      CLI.Render.Src,
			Content:  CLI.Render.Content,
			Dest:     CLI.Render.Dest,
			Mode:     CLI.Render.Mode,
			Owner:    CLI.Render.Owner,
			Group:    CLI.Render.Group,
			Backup:   CLI.Render.Backup,
			Validate: CLI.Render.Validate,
			Force:    CLI.Render.Force,
		}
		res, err := ct.RenderSpec(spec, CLI.Render.Check, CLI.Render.Diff)
		if err != nil {
			bail(err)
		}

		if CLI.Render.JSON {
			out, err := json.Marshal(res)
			if err != nil {
				bail(err)
			}
			fmt.Println(string(out))
		} else {
			ct.Porcelain.DidDeliver(res)
			ct.Porcelain.PrintDiff(res.Diff)
		}

	case "apply":
		if err := ct.Connect("", "", "", ""); err != nil {
			bail(err)
		}
		if err := ct.LoadEnv(nil); err != nil {
			bail(err)
		}

		ct.Porcelain.PrintContext(cfg.Project, cfg.LoadedFrom)
		results, err := ct.Apply(CLI.Apply.Check, CLI.Apply.Diff)
		for _, res := range results {
			ct.Porcelain.DidDeliver(res)
			ct.Porcelain.PrintDiff(res.Diff)
		}
		if err != nil {
			bail(err)
		}

	default:
		println(ctx.Command())
		os.Exit(1)
	}
}

// kill the current process with a bad exit code, but without a Go panic
func bail(e error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", e)
	os.Exit(1)
}
