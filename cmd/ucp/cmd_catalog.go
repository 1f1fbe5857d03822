package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var catalogDump bool

var validateCmd = &cobra.Command{
	Use:   "validate [document.json...]",
	Short: "Check the catalog and, optionally, documents against it",
	Long: `Validates the active question catalog. Every document given is then
parsed and checked against the catalog: unknown fields, invalid choices and
sections holding more items than allowed are reported.`,
	RunE: runValidate,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the sections and questions of the active catalog",
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogDump, "dump", false, "Print the catalog as YAML")
}

func runValidate(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.Close()

	// setup already parsed the catalog; Validate is repeated for the report.
	if err := env.cat.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	fmt.Printf("catalog %s: ok (%d sections, %d invented questions, %d checkpoints)\n",
		env.cat.Version, len(env.cat.Sections), len(env.cat.Invented), len(env.cat.Checkpoints))

	failed := 0
	for _, path := range args {
		if _, err := env.store.Load(path); err != nil {
			failed++
			fmt.Printf("%s: %v\n", path, err)
			continue
		}
		fmt.Printf("%s: ok\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed validation", failed, len(args))
	}
	return nil
}

func runCatalog(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.Close()

	if catalogDump {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(env.cat); err != nil {
			return err
		}
		return enc.Close()
	}

	for i, sec := range env.cat.Sections {
		limit := "single"
		switch {
		case sec.MaxItems == 0:
			limit = "unbounded"
		case sec.MaxItems > 1:
			limit = fmt.Sprintf("up to %d", sec.MaxItems)
		}
		fmt.Printf("%2d. %s [%s, %s]\n", i+1, sec.Title, sec.ID, limit)
		for _, f := range sec.Fields {
			fmt.Printf("      %-24s %-16s %s\n", f.Key, f.Type, f.Label)
		}
	}
	if len(env.cat.Invented) > 0 {
		fmt.Println("\nInvented questions:")
		for _, q := range env.cat.Invented {
			fmt.Printf("      %-24s %-16s %s\n", q.ID, q.Type, strings.TrimSpace(q.Text))
		}
	}
	return nil
}
