package main

import (
	"fmt"
	"time"

	"github.com/dfryer1193/micropub/blog/persistence"
	"github.com/dfryer1193/micropub/shared/config"
	"github.com/dfryer1193/micropub/shared/db/sqlite"
	"github.com/spf13/cobra"
)

var (
	logLimit int
	logPath  string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent commits from the publication journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		dbCfg := sqlite.NewSQLiteConfig(cfg.JournalPath)
		dbCfg.ReadOnly = true
		database := sqlite.NewSQLiteDB(dbCfg)
		if err := database.Connect(); err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer database.Close()

		journal := persistence.NewCommitJournal(database.DB())
		out := cmd.OutOrStdout()

		if logPath != "" {
			state, err := journal.GetPostState(cmd.Context(), logPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Path:      %s\n", state.Path)
			fmt.Fprintf(out, "URL:       %s\n", state.URL)
			fmt.Fprintf(out, "Kind:      %s\n", state.Kind)
			fmt.Fprintf(out, "Published: %t\n", state.Published)
			fmt.Fprintf(out, "Updated:   %s\n", state.UpdatedAt.Format(time.RFC3339))
			return nil
		}

		commits, err := journal.ListRecentCommits(cmd.Context(), logLimit)
		if err != nil {
			return err
		}
		for _, c := range commits {
			fmt.Fprintf(out, "%s  %-9s %s  %s\n", c.CreatedAt.Format(time.RFC3339), c.Action, c.Path, c.URL)
		}
		return nil
	},
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "number of commits to show")
	logCmd.Flags().StringVar(&logPath, "path", "", "show the journalled state of one repository path")
	rootCmd.AddCommand(logCmd)
}
