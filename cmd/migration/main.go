// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/netSkope/dump-migration-tool/internal/config"
	dmlog "github.com/netSkope/dump-migration-tool/internal/log"
	"github.com/netSkope/dump-migration-tool/internal/s3"
	"github.com/netSkope/dump-migration-tool/internal/store"
	"github.com/netSkope/dump-migration-tool/internal/util"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const logName = "migration"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "migration",
		Short:         "Migrate legacy SQL dump tables into the CRM database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newRunCmd(),
		newVerifyCmd(),
		newSchemasCmd(),
		newVersionCmd(),
	)
	return root
}

// env is what every command needs after flag parsing.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	cleanup func() error
	aws     *aws.Config
	s3      *s3.Client
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, cleanup, err := dmlog.NewLogger(dmlog.Options{
		Dir:    cfg.LogDir,
		Name:   logName,
		Debug:  cfg.Debug,
		Stdout: cfg.LogStdout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	e := &env{cfg: cfg, logger: logger, cleanup: cleanup}

	if cfg.NeedsAWS() {
		awsCfg, err := util.LoadAWSConfig(cmd.Context(), cfg.AWSRegion, util.AWSCredentials{
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			SessionToken:    cfg.AWSSessionToken,
		})
		if err != nil {
			_ = cleanup()
			return nil, err
		}
		e.aws = &awsCfg
		if cfg.NeedsS3() {
			e.s3 = s3.NewClient(awsCfg, logger)
		}
	}
	return e, nil
}

// connect opens the destination database and waits for it to answer. Nothing
// is cleared before this succeeds.
func connect(ctx context.Context, e *env) (*store.SQLClient, error) {
	cfg := e.cfg
	pwd := cfg.DBPassword
	if pwd == "" && cfg.DBSecret != "" {
		var err error
		if pwd, err = util.ResolveDBPassword(ctx, *e.aws, cfg.DBSecret); err != nil {
			return nil, fmt.Errorf("failed to resolve destination password: %w", err)
		}
	}

	db, err := store.OpenSQLClient(cfg.DBAddress(), cfg.DBUser, pwd, cfg.DBTimeout, cfg.DBType, cfg.DBDatabase())
	if err != nil {
		return nil, fmt.Errorf("destination unreachable: %w", err)
	}
	if err := db.PingWithRetry(ctx, cfg.DBConnectAttempts, cfg.DBConnectDelay, e.logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("destination unreachable: %w", err)
	}
	e.logger.Info("Connected to destination",
		zap.String("db_type", cfg.DBType),
		zap.String("database", cfg.DBDatabase()))
	return db, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "migration %s\n", version)
		},
	}
}
