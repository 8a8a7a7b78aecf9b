// Command countctl inspects and repairs the counter snapshot files offline.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"msgcounter/internal/config"
	"msgcounter/internal/domain"
	"msgcounter/internal/repository"
	"msgcounter/internal/store"
	"msgcounter/pkg/logger"
)

// fileFlags are shared by every subcommand
type fileFlags struct {
	dataDir     string
	countsFile  string
	backupFile  string
	delayedFile string
	logLevel    string
}

func (f *fileFlags) paths() repository.FilePaths {
	return repository.ResolveFilePaths(f.dataDir, f.countsFile, f.backupFile, f.delayedFile)
}

// logger writes load diagnostics to stderr so they never mix with command output
func (f *fileFlags) logger(w io.Writer) (*logger.Logger, error) {
	return logger.New(f.logLevel, logger.WithConsole(), logger.WithOutput(w))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := config.LoadFiles()
	flags := &fileFlags{}

	root := &cobra.Command{
		Use:          "countctl",
		Short:        "Inspect and repair message counter snapshots",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.dataDir, "data-dir", defaults.DataDir, "directory holding the snapshot files")
	pf.StringVar(&flags.countsFile, "counts-file", defaults.CountsFile, "JSON file of total counts")
	pf.StringVar(&flags.backupFile, "backup-file", defaults.BackupFile, "line backup of total counts")
	pf.StringVar(&flags.delayedFile, "delayed-file", defaults.DelayedFile, "line backup of delayed counts")
	pf.StringVar(&flags.logLevel, "log-level", defaults.LogLevel, "log level for load diagnostics")

	root.AddCommand(newLeaderboardCmd(flags), newRestoreCmd(flags))
	return root
}

func newLeaderboardCmd(flags *fileFlags) *cobra.Command {
	var kind string
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the top users from the snapshot files",
		Long: `Print a leaderboard from the snapshot files without connecting to Discord.

Users are listed by ID since no name lookup is made. Totals are read from the
JSON file, falling back to the line backup when it is missing or corrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			counterKind, err := domain.ParseCounterKind(kind)
			if err != nil {
				return err
			}
			if limit < 1 {
				return fmt.Errorf("limit must be at least 1, got %d", limit)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			log, err := flags.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			repo := repository.NewFileRepository(flags.paths(), log)
			snap, err := repo.Load(ctx)
			if err != nil {
				return fmt.Errorf("failed to load snapshot: %w", err)
			}

			counterStore := store.NewCounterStore(0)
			counterStore.Restore(snap)
			return printLeaderboard(cmd.OutOrStdout(), counterKind, counterStore.TopN(counterKind, limit))
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(domain.CounterTotal), "counter to rank: total or delayed")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of users to print")
	return cmd
}

func printLeaderboard(w io.Writer, kind domain.CounterKind, entries []domain.LeaderboardEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintf(w, "No %s message counts recorded yet.\n", kind)
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%d. %s: %d messages\n", e.Rank, e.UserID, e.Count); err != nil {
			return err
		}
	}
	return nil
}

func newRestoreCmd(flags *fileFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Rebuild the JSON counts file from the line backup",
		Long: `Rebuild the JSON file of total counts from its line backup.

The JSON file is left alone when it already loads cleanly, unless --force is given.
Malformed backup lines are reported and skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := flags.paths()
			out := cmd.OutOrStdout()

			if !force {
				if _, err := repository.LoadCounts(paths.Counts); err == nil {
					return fmt.Errorf("%s is readable; pass --force to overwrite it", paths.Counts)
				}
			}

			counts, skipped, err := repository.LoadLineBackup(paths.Backup)
			if err != nil {
				if errors.Is(err, repository.ErrSnapshotNotFound) {
					return fmt.Errorf("no line backup to restore from: %w", err)
				}
				return err
			}
			for _, s := range skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s:%d: %q (%v)\n", paths.Backup, s.Line, s.Text, s.Err)
			}

			if err := repository.SaveStructured(counts, paths.Counts); err != nil {
				return fmt.Errorf("failed to write %s: %w", paths.Counts, err)
			}

			fmt.Fprintf(out, "Restored %d users into %s (%d lines skipped)\n", len(counts), paths.Counts, len(skipped))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite a readable JSON counts file")
	return cmd
}
