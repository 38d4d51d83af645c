// Package main is the operator tool for bulk imports and seeding.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"meeting-tracker/internal/config"
	"meeting-tracker/internal/importer"
	"meeting-tracker/internal/logger"
	"meeting-tracker/internal/store"
)

var (
	usersFile     string
	customersFile string
	photoDir      string
	userPassword  string
	adminEmail    string
	adminPassword string

	rootCmd = &cobra.Command{
		Use:          "admin",
		Short:        "Meeting tracker administration",
		SilenceUsage: true,
	}

	importUsersCmd = &cobra.Command{
		Use:   "import-users",
		Short: "Create or update users from a semicolon separated file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withImporter(cmd.Context(), importer.Options{DefaultPassword: userPassword, PhotoDir: photoDir},
				func(ctx context.Context, im *importer.Importer) (importer.Result, error) {
					f, err := os.Open(usersFile)
					if err != nil {
						return importer.Result{}, err
					}
					defer f.Close()
					return im.Users(ctx, f)
				})
		},
	}

	importCustomersCmd = &cobra.Command{
		Use:   "import-customers",
		Short: "Create customers listed one per line, skipping existing ones",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withImporter(cmd.Context(), importer.Options{},
				func(ctx context.Context, im *importer.Importer) (importer.Result, error) {
					f, err := os.Open(customersFile)
					if err != nil {
						return importer.Result{}, err
					}
					defer f.Close()
					return im.Customers(ctx, f)
				})
		},
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Create an administrator and sample customers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withImporter(cmd.Context(), importer.Options{},
				func(ctx context.Context, im *importer.Importer) (importer.Result, error) {
					return im.Seed(ctx, adminEmail, adminPassword)
				})
		},
	}
)

func init() {
	importUsersCmd.Flags().StringVar(&usersFile, "file", "Users.csv", "user file (ID;display_name;Email;rank_bucket;Role)")
	importUsersCmd.Flags().StringVar(&photoDir, "photos", "public/photos", "directory holding <ID>.jpg photos")
	importUsersCmd.Flags().StringVar(&userPassword, "password", os.Getenv("IMPORT_DEFAULT_PASSWORD"), "initial password for new users")

	importCustomersCmd.Flags().StringVar(&customersFile, "file", "clients.csv", "customer file, header then one name per line")

	seedCmd.Flags().StringVar(&adminEmail, "email", "admin@example.com", "administrator e-mail")
	seedCmd.Flags().StringVar(&adminPassword, "password", os.Getenv("SEED_ADMIN_PASSWORD"), "administrator password")

	rootCmd.AddCommand(importUsersCmd, importCustomersCmd, seedCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type run func(ctx context.Context, im *importer.Importer) (importer.Result, error)

func withImporter(ctx context.Context, opts importer.Options, fn run) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Storage.Backend != "postgres" {
		return errors.New("admin commands require storage.backend=postgres")
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.App.Name+"-admin")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	st := store.New(log, cfg.Postgres)
	if err := st.OnStart(ctx); err != nil {
		log.Errorw("storage start error", "error", err)
		return err
	}
	defer func() { _ = st.OnStop(context.Background()) }()

	res, err := fn(ctx, importer.New(log, st, opts))
	if err != nil {
		log.Errorw("command failed", "error", err)
		return err
	}
	report(log, res)
	return nil
}

func report(log *zap.SugaredLogger, res importer.Result) {
	log.Infow("done", "created", res.Created, "updated", res.Updated, "skipped", res.Skipped, "failed", res.Failed)
	fmt.Println(res)
}
