package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ucpllm/cmd/ucp/tui"
	"ucpllm/internal/analysis"
	"ucpllm/internal/interview"
	"ucpllm/internal/logging"
)

// runInterview starts the interactive interview TUI.
func runInterview(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	coord := newCoordinator(ctx, env)
	session := interview.NewSession(env.cat, env.renderer, interview.WithCoordinator(coord))
	logging.Boot("interview session %s starting", session.ID)

	var docPath string
	if len(args) == 1 {
		docPath = args[0]
	}
	existing, err := env.store.Files.List()
	if err != nil {
		logging.StoreError("list %s: %v", env.store.Files.Dir(), err)
	}

	model := tui.New(tui.Config{
		Context:        ctx,
		Session:        session,
		Store:          env.store,
		DocPath:        docPath,
		Existing:       existing,
		AskMentalState: env.cfg.Interview.AskMentalState,
		PreviewStyle:   env.cfg.Render.PreviewStyle,
		AppName:        env.cfg.Render.AppName,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("interview failed: %w", err)
	}
	session.CancelAnalysis()
	return nil
}

// newCoordinator returns a coordinator over the configured provider. A
// missing provider leaves the coordinator unavailable, which skips the offer.
func newCoordinator(ctx context.Context, env *environment) *analysis.Coordinator {
	analyzer, err := analysis.FromConfig(ctx, env.cfg)
	if err != nil {
		if !errors.Is(err, analysis.ErrNoAnalyzer) {
			logging.AnalysisError("analysis provider unavailable: %v", err)
		}
		return analysis.NewCoordinator(nil, 0)
	}
	return analysis.NewCoordinator(analyzer, env.cfg.AnalysisTimeout())
}
