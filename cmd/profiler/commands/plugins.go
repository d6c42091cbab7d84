/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: plugins.go
Description: Plugins command for the Akaylee Profiler. Lists the semantic type matchers
known to the registry, built-in and loaded from plugin files, with their kind, base type
and thresholds.
*/

package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// ListPlugins lists every semantic type the registry can build
func ListPlugins(cmd *cobra.Command, args []string) error {
	printHeader("🧩 Akaylee Profiler - Semantic Types")

	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	registry, err := loadRegistry()
	if err != nil {
		return err
	}
	if _, err := registry.BuildAll(); err != nil {
		return fmt.Errorf("failed to build matchers: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEMANTIC TYPE\tKIND\tBASE TYPE\tPRIORITY\tTHRESHOLD\tDESCRIPTION")
	for _, d := range registry.Definitions() {
		threshold := "default"
		if d.Threshold > 0 {
			threshold = fmt.Sprint(d.Threshold)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", d.SemanticType, d.Kind, d.BaseType, d.Priority, threshold, d.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Println()
	labelColor.Print("Validators: ")
	fmt.Println(registry.Keys())
	okColor.Println("✨ Use --plugins to add definitions from YAML files")
	return nil
}
