package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"coolbot/bot"
	"coolbot/config"
	"coolbot/database"
	"coolbot/handlers"
	"coolbot/models"
	"coolbot/syncjobs"
	"coolbot/telemetry"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "coolbot",
	Short: "Support forum moderation and automation bot",
	Long: `coolbot runs the support forum bot: post lifecycle, auto responses,
automoderation, documentation search, contributor verification and paging.

Examples:
  coolbot                          # Same as "coolbot serve"
  coolbot sql "SELECT * FROM docs" # Run a statement against the store
  coolbot sync docs                # Refresh the documentation cache once`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to Discord and run until interrupted",
	RunE:  runServe,
}

var sqlCmd = &cobra.Command{
	Use:   "sql <statement>",
	Short: "Run a SQL statement against the bot database",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		res, err := store.Eval(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(res.Format())
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:       "sync docs|contributors",
	Short:     "Run one of the periodic sync jobs now",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"docs", "contributors"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		client := &http.Client{Timeout: 30 * time.Second}
		switch args[0] {
		case "docs":
			updated, status := syncjobs.NewDocsSyncer(client, cfg.Sync.DocsURL, store).Sync(cmd.Context())
			if status.Error != "" {
				return errors.New(status.Error)
			}
			fmt.Printf("Docs updated: %t (%d entries, status %d)\n", updated, status.DocsCount, status.ResponseStatus)
		case "contributors":
			gh := syncjobs.NewGitHub(client, cfg.Sync.GithubAPI)
			status, err := syncjobs.NewContributorSyncer(gh, cfg.Sync.GithubRepos, store).Sync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Contributors: %d seen, %d new across %d repos\n", status.Seen, status.Inserted, status.Repos)
			for _, e := range status.RepoErrors {
				fmt.Println("  " + e)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, sqlCmd, syncCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}

// setup loads the configuration and opens the store.
func setup() (*models.Config, *database.Store, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("error loading config: %w", err)
	}
	store, err := database.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing database: %w", err)
	}
	return cfg, store, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, store, err := setup()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := telemetry.Init(ctx, cfg.Telemetry, "coolbot", version); err != nil {
		log.Printf("Telemetry disabled: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.Shutdown(shutdownCtx)
	}()

	app, err := bot.Open(cfg, store)
	if err != nil {
		return err
	}
	return app.Run(ctx, handlers.Register)
}
