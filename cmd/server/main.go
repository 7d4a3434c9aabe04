package main

import (
	"fmt"
	"os"

	"github.com/dfryer1193/micropub/shared/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:          "micropub",
	Short:        "Micropub endpoint that commits posts to a GitHub repository",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Micropub server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := setupLogging(cfg); err != nil {
			return err
		}

		srv, err := newServer(cfg)
		if err != nil {
			return fmt.Errorf("initializing server: %w", err)
		}
		defer func() {
			if err := srv.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close journal")
			}
		}()

		return srv.Run(cmd.Context())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		fmt.Printf("Configuration OK\n\n")
		fmt.Printf("Me:         %s\n", cfg.Me)
		fmt.Printf("Site URL:   %s\n", cfg.SiteURL)
		fmt.Printf("Repository: %s/%s\n", cfg.GithubUser, cfg.GithubRepo)
		if cfg.GithubBranch != "" {
			fmt.Printf("Branch:     %s\n", cfg.GithubBranch)
		}
		fmt.Printf("Media dir:  %s\n", cfg.MediaDir)
		fmt.Printf("Timezone:   %s\n", cfg.Timezone)
		fmt.Printf("Listen:     %s\n", cfg.Addr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("MICROPUB_CONFIG"), "path to the TOML config file")

	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}
