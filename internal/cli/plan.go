package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lexcr-io/lexcr/internal/engine"
	"github.com/lexcr-io/lexcr/internal/resource"
)

var (
	planStateFile string
	planDestroy   bool
)

var planCmd = &cobra.Command{
	Use:   "plan <desired.yaml>",
	Short: "Show the operations a bot definition would apply",
	Long: `Diffs a local bot definition against a previously applied one and
prints the operations an invocation would perform, without calling Lex.

The definition file holds the bot's resource properties as YAML, in the
same shape the CloudFormation template declares them. With --destroy the
file is treated as the applied state and the teardown plan is shown.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planStateFile, "state", "s", "", "Previously applied definition to diff against")
	planCmd.Flags().BoolVarP(&planDestroy, "destroy", "d", false, "Plan the teardown of the definition")
}

func runPlan(cmd *cobra.Command, args []string) error {
	tree, err := loadDefinition(args[0])
	if err != nil {
		return err
	}

	var plan *engine.Plan
	if planDestroy {
		plan = engine.DiffLiveOnly(tree)
	} else {
		var live *resource.Tree
		if planStateFile != "" {
			live, err = loadDefinition(planStateFile)
			if err != nil {
				return err
			}
		}
		plan = engine.Diff(tree, live)
	}

	fmt.Println("Plan Summary:")
	fmt.Printf("  Create:  %d\n", plan.Summary.Create)
	fmt.Printf("  Update:  %d\n", plan.Summary.Update)
	fmt.Printf("  Delete:  %d\n", plan.Summary.Delete)
	fmt.Printf("  NoOp:    %d\n", plan.Summary.NoOp)

	if len(plan.Ops) == 0 {
		fmt.Println("\nNo changes. Bot is up-to-date.")
		return nil
	}

	fmt.Println()
	for _, op := range plan.Ops {
		symbol, color := "~", "\033[33m"
		switch op.Action {
		case engine.ActionCreate:
			symbol, color = "+", "\033[32m"
		case engine.ActionDelete:
			symbol, color = "-", "\033[31m"
		}
		fmt.Printf("%s  %s %s\033[0m\n", color, symbol, op.Address)
	}
	return nil
}

func loadDefinition(path string) (*resource.Tree, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var props map[string]any
	if err := yaml.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	tree, err := resource.Normalize(props)
	if err != nil {
		return nil, fmt.Errorf("invalid definition %s: %w", path, err)
	}
	return tree, nil
}
