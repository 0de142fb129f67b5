package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/strandline/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and validate reference catalogs",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [catalog.yaml]",
	Short: "Validate a catalog (default: the configured or embedded catalog)",
	Long: `Validate checks a catalog against its schema and the semantic rules every
run depends on: unique rsids and rule ids, effect alleles within the
reference pair, policies total over every reachable state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := appConfig.Catalog.Path
		if len(args) == 1 {
			path = args[0]
		}

		cat, err := catalog.Load(path)
		if err != nil {
			return err
		}

		name := path
		if name == "" {
			name = "embedded catalog"
		}
		ref := cat.Ref()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s valid: version %s (%s), %d markers, %d rules\n",
			name, ref.Version, ref.Build, ref.Markers, ref.Rules)
		return nil
	},
}

var catalogRulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List interpretation rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(appConfig.Catalog.Path)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RULE\tPANEL\tPOLICY\tMARKERS\tLABEL")
		for _, r := range cat.Rules() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Panel, r.Policy, strings.Join(r.Markers, ","), r.Label)
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("write rules: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "%d rules\n", len(cat.Rules()))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogRulesCmd)
}
