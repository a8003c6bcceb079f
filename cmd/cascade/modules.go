package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cascadekit/cascade/internal/capability"
	"github.com/cascadekit/cascade/internal/config"
	"github.com/cascadekit/cascade/pkg/models"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Inspect and manage capability modules",
	Long: `Manage the capability modules created for work items.

Modules requested by work items (via a 'requires' field) are created on
first use under the modules directory and tracked with usage statistics.
Temporary modules are kept or deleted after every run based on usage;
'modules reconcile' runs that pass standalone.`,
}

var modulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered capability modules",
	RunE:  runModulesList,
}

var modulesReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Apply the keep/delete pass to temporary modules now",
	RunE:  runModulesReconcile,
}

var modulesVerifyCmd = &cobra.Command{
	Use:   "verify <name>",
	Short: "Interpret a module's plugin source and report its capabilities",
	Args:  cobra.ExactArgs(1),
	RunE:  runModulesVerify,
}

func init() {
	modulesCmd.AddCommand(modulesListCmd)
	modulesCmd.AddCommand(modulesReconcileCmd)
	modulesCmd.AddCommand(modulesVerifyCmd)
}

func openModuleRegistry() (*capability.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	registry, err := capability.Open(cfg.Modules.Dir,
		capability.WithRetention(capability.RetentionPolicy{
			RecentDays: cfg.Retention.RecentDays,
			StaleDays:  cfg.Retention.StaleDays,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("open capability registry: %w", err)
	}
	return registry, nil
}

func runModulesList(cmd *cobra.Command, args []string) error {
	registry, err := openModuleRegistry()
	if err != nil {
		return err
	}

	modules := registry.List()
	if len(modules) == 0 {
		fmt.Println("No capability modules registered.")
		return nil
	}

	for _, m := range modules {
		kind := "permanent"
		if m.Temporary {
			kind = "temporary"
		}
		attr := color.FgGreen
		if m.Status == models.ModuleRetired {
			attr = color.FgRed
		}
		line := fmt.Sprintf("%s (%s, %s): used %d times, last %s ago",
			m.Name, kind, m.Status, m.UsageCount,
			formatRunDuration(time.Since(m.LastUsedAt)))
		if len(m.Capabilities) > 0 {
			line += ": " + strings.Join(m.Capabilities, ", ")
		}
		printStatus("•", line, attr)
	}
	return nil
}

func runModulesReconcile(cmd *cobra.Command, args []string) error {
	registry, err := openModuleRegistry()
	if err != nil {
		return err
	}

	decisions, rerr := registry.Reconcile()
	if len(decisions) == 0 {
		fmt.Println("No temporary modules to reconcile.")
		return rerr
	}

	for _, d := range decisions {
		attr := color.FgGreen
		if d.Action == models.ActionDelete {
			attr = color.FgRed
		}
		printStatus(string(d.Action), fmt.Sprintf("%s (%s)", d.Module, d.Reason), attr)
	}
	return rerr
}

func runModulesVerify(cmd *cobra.Command, args []string) error {
	registry, err := openModuleRegistry()
	if err != nil {
		return err
	}

	caps, err := registry.VerifyModulePlugin(args[0])
	if err != nil {
		return fmt.Errorf("verify module %s: %w", args[0], err)
	}

	printStatus("✓", fmt.Sprintf("%s: plugin evaluates cleanly", args[0]), color.FgGreen)
	if len(caps) > 0 {
		fmt.Printf("  capabilities: %s\n", strings.Join(caps, ", "))
	}
	return nil
}
