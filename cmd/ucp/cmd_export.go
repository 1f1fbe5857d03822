package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ucpllm/internal/protocol"
	"ucpllm/internal/store"
	"ucpllm/internal/watch"
)

var (
	previewPretty bool

	exportOutput string
	exportWatch  bool
	exportJobs   int
)

var previewCmd = &cobra.Command{
	Use:   "preview <document.json>",
	Short: "Print the human preview of a document",
	Long: `Prints every section and field, including empty ones, the way the
interview shows them. Use --pretty to render it as styled markdown.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

var exportCmd = &cobra.Command{
	Use:   "export <document.json>...",
	Short: "Write the final protocol for one or more documents",
	Long: `Renders the User Context Protocol of each document and writes it next
to the source as <name>.txt. Several documents are exported concurrently.

With --watch a single document is re-exported whenever it changes.

Examples:
  ucp export .ucp/documents/lina.json
  ucp export -o - lina.json
  ucp export --watch lina.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

func init() {
	previewCmd.Flags().BoolVar(&previewPretty, "pretty", false, "Render as styled markdown")

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file for a single document (- for stdout)")
	exportCmd.Flags().BoolVarP(&exportWatch, "watch", "w", false, "Re-export whenever the document changes")
	exportCmd.Flags().IntVarP(&exportJobs, "jobs", "j", 4, "Documents exported in parallel")
}

func runPreview(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.Close()

	doc, err := env.store.Load(args[0])
	if err != nil {
		return err
	}
	text := env.renderer.Render(doc, protocol.Preview)
	if previewPretty {
		r, err := glamour.NewTermRenderer(
			glamour.WithStylePath(env.cfg.Render.PreviewStyle),
			glamour.WithWordWrap(100),
		)
		if err == nil {
			if out, err := r.Render(text); err == nil {
				text = out
			}
		}
	}
	fmt.Println(text)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportOutput != "" && len(args) > 1 {
		return fmt.Errorf("--output needs exactly one document")
	}
	if exportWatch && len(args) > 1 {
		return fmt.Errorf("--watch needs exactly one document")
	}

	env, err := setup()
	if err != nil {
		return err
	}
	defer env.Close()

	if exportOutput == "-" {
		doc, err := env.store.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Print(env.renderer.Render(doc, protocol.Export))
		return nil
	}

	if exportWatch {
		return watchExport(cmd.Context(), env, args[0])
	}

	written, err := exportAll(cmd.Context(), env, args)
	for _, w := range written {
		fmt.Printf("Wrote %s\n", w)
	}
	return err
}

// exportOne renders one document to its export file and returns the path.
func exportOne(env *environment, path, output string) (string, error) {
	doc, err := env.store.Load(path)
	if err != nil {
		return "", err
	}
	if output == "" {
		output = store.ExportPath(path)
	}
	if err := store.WriteFile(output, []byte(env.renderer.Render(doc, protocol.Export))); err != nil {
		return "", err
	}
	logger.Debug("Exported document", zap.String("document", path), zap.String("output", output))
	return output, nil
}

// exportAll exports paths concurrently, bounded by --jobs. The first
// failure cancels documents not yet started.
func exportAll(ctx context.Context, env *environment, paths []string) ([]string, error) {
	g, ctx := errgroup.WithContext(ctx)
	if exportJobs > 0 {
		g.SetLimit(exportJobs)
	}

	var mu sync.Mutex
	var written []string
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := exportOne(env, path, exportOutput)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			mu.Lock()
			written = append(written, out)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	sort.Strings(written)
	return written, err
}

// watchExport exports path once, then again after every settled change,
// until interrupted.
func watchExport(ctx context.Context, env *environment, path string) error {
	out, err := exportOne(env, path, exportOutput)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", out)

	w, err := watch.New(filepath.Dir(path), func(ctx context.Context, changed string) error {
		out, err := exportOne(env, path, exportOutput)
		if err != nil {
			fmt.Fprintf(os.Stderr, "export %s: %v\n", path, err)
			return err
		}
		fmt.Printf("Wrote %s\n", out)
		return nil
	}, watch.WithFiles(path))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := w.Start(ctx); err != nil {
		_ = w.Close()
		return err
	}
	defer w.Stop()

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", path)
	<-ctx.Done()
	return nil
}
