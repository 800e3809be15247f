package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/csvinsight-cli/internal/templates"
	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect the fallback analysis templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates in selection order with their trigger keywords",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, t := range templates.All() {
			triggers := strings.Join(t.AnyOf, " | ")
			if len(t.AllOf) > 0 {
				all := strings.Join(t.AllOf, " + ")
				if triggers != "" {
					triggers += " | " + all
				} else {
					triggers = all
				}
			}
			if triggers == "" {
				triggers = "(fallback)"
			}
			fmt.Fprintf(out, "%-17s %-24s %s\n", t.Name, t.Title, triggers)
		}
		return nil
	},
}

var templatesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a template's program",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, ok := templates.Get(args[0])
		if !ok {
			names := make([]string, 0, len(templates.All()))
			for _, t := range templates.All() {
				names = append(names, t.Name)
			}
			return fmt.Errorf("unknown template: %s (available: %s)", args[0], strings.Join(names, ", "))
		}
		fmt.Fprint(cmd.OutOrStdout(), t.Code)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesShowCmd)
}
