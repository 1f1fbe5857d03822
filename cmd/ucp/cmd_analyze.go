package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ucpllm/internal/analysis"
	"ucpllm/internal/protocol"
)

var analyzeApply bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <document.json>",
	Short: "Ask the configured language model for an analytical summary",
	Long: `Sends the exported protocol of a document to the configured analysis
provider (groq or gemini) and prints the summary it returns.

With --apply the summary is written into the document and saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeApply, "apply", false, "Store the summary in the document")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.Close()

	path := args[0]
	doc, err := env.store.Load(path)
	if err != nil {
		return err
	}

	analyzer, err := analysis.FromConfig(ctx, env.cfg)
	if err != nil {
		return err
	}
	coord := analysis.NewCoordinator(analyzer, env.cfg.AnalysisTimeout())

	id, err := coord.Submit(ctx, env.renderer.Render(doc, protocol.Export))
	if err != nil {
		return err
	}
	logger.Info("Analysis submitted", zap.String("request", id), zap.String("provider", analyzer.Name()))

	res, err := coord.Wait(ctx)
	if err != nil {
		coord.Cancel()
		return err
	}
	if err := res.Err(); err != nil {
		return err
	}
	fmt.Println(res.Text)

	if !analyzeApply {
		return nil
	}
	ref := env.cat.Bindings.AnalysisSummary
	def, _, ok := env.cat.Section(ref.Section)
	if !ok {
		return fmt.Errorf("catalog has no section %q for the analysis summary", ref.Section)
	}
	if err := doc.SetAnalysisSummary(def, ref.Field, res.Text); err != nil {
		return err
	}
	saved, err := env.store.Save(ctx, doc, path)
	if err != nil {
		return err
	}
	fmt.Printf("\nSaved analysis to %s\n", saved)
	return nil
}
