package pkg

import (
	"fmt"
	"io"
	"sort"
	"strings"

	survey "github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/jftuga/ellipsis"
	"github.com/samber/lo"

	"github.com/mmorev/ctrender/pkg/core"
)

type Porcelain struct {
	Out io.Writer
}

var backendHumanToMachine = map[string]string{
	"Consul KV":          "consul",
	"Vault by Hashicorp": "vault",
}

func (p *Porcelain) StartWizard() (*core.WizardAnswers, error) {
	displayBackends := lo.Keys(backendHumanToMachine)
	sort.Strings(displayBackends)

	var qs = []*survey.Question{
		{
			Name: "project",
			Prompt: &survey.Input{
				Message: "Project name?",
			},
			Validate: survey.Required,
		},
		{
			Name: "backends",
			Prompt: &survey.MultiSelect{
				Message: "Select your KV backends",
				Options: displayBackends,
			},
		},
	}

	answers := core.WizardAnswers{}
	err := survey.Ask(qs, &answers)
	if err != nil {
		return nil, err
	}

	if len(answers.Backends) == 0 {
		return nil, fmt.Errorf("you need to select at least one backend")
	}

	answers.BackendKeys = map[string]bool{}
	for _, label := range answers.Backends {
		answers.BackendKeys[backendHumanToMachine[label]] = true
	}

	return &answers, nil
}

func (p *Porcelain) DidCreateNewFile(fname string) {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(p.Out, "Created file: %v\n", green(fname))
}

func (p *Porcelain) AskForConfirmation(msg string) bool {
	yesno := false
	prompt := &survey.Confirm{
		Message: msg,
	}
	_ = survey.AskOne(prompt, &yesno)
	return yesno
}

func (p *Porcelain) VSpace(size int) {
	fmt.Fprint(p.Out, strings.Repeat("\n", size))
}

func (p *Porcelain) PrintContext(projectName, loadedFrom string) {
	green := color.New(color.FgGreen).SprintFunc()
	white := color.New(color.FgWhite).SprintFunc()

	fmt.Fprintf(p.Out, "-*- %s: rendering for %s using %s -*-\n", white("ctrender"), green(projectName), green(loadedFrom))
}

// DidDeliver reports one delivery outcome in a compact, colored line.
func (p *Porcelain) DidDeliver(res *core.DeliveryResult) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	dest := ellipsis.Shorten(res.Dest, 60) //nolint: gomnd
	switch {
	case res.Skipped:
		fmt.Fprintf(p.Out, "[%s] %s\n", yellow("skipped"), dest)
	case res.Changed:
		fmt.Fprintf(p.Out, "[%s] %s\n", green("changed"), dest)
	default:
		fmt.Fprintf(p.Out, "[%s] %s\n", gray("unchanged"), dest)
	}
	if res.BackupPath != "" {
		fmt.Fprintf(p.Out, "        backup: %s\n", gray(res.BackupPath))
	}
}

// PrintDiff colors a unified diff by line prefix.
func (p *Porcelain) PrintDiff(diff string) {
	if diff == "" {
		return
	}
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			fmt.Fprintln(p.Out, green(line))
		case strings.HasPrefix(line, "-"):
			fmt.Fprintln(p.Out, red(line))
		case strings.HasPrefix(line, "@@"):
			fmt.Fprintln(p.Out, gray(line))
		default:
			fmt.Fprintln(p.Out, line)
		}
	}
}
