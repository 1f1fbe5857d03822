package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyRestoreCmd = &cobra.Command{
	Use:   "restore <snapshot-id>",
	Short: "Write a snapshot back over its document",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryRestore,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum snapshots to list")
	historyCmd.AddCommand(historyRestoreCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.Close()

	h, err := env.openHistory()
	if err != nil {
		return err
	}
	snaps, err := h.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Println("No snapshots recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSAVED\tNAME\tPATH")
	for _, s := range snaps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.SavedAt.Local().Format("2006-01-02 15:04:05"), s.PreferredName, s.Path)
	}
	return w.Flush()
}

func runHistoryRestore(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.Close()

	if _, err := env.openHistory(); err != nil {
		return err
	}
	_, path, err := env.store.Restore(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("restore %s: %w", args[0], err)
	}
	logger.Info("Snapshot restored", zap.String("id", args[0]), zap.String("path", path))
	fmt.Printf("Restored %s to %s\n", args[0], path)
	return nil
}
