package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/slmtnm/s4json/internal/config"
	"github.com/slmtnm/s4json/internal/gateway"
	"github.com/slmtnm/s4json/internal/logger"
	"github.com/slmtnm/s4json/internal/server"
	"github.com/slmtnm/s4json/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the bucket over a JSON API",
	Long: `Serve exposes the S3 bucket over HTTP:

  GET /api/buckets          date buckets, newest first
  GET /api/files/{bucket}   JSON files of a bucket, newest first
  GET /api/file/{path...}   {"content": "..."} of one file
  GET /healthz, /metrics

Browsers started with --remote read through it.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.String("addr", "", "Listen address (default :$PORT, :3000)")
	viper.BindPFlags(f)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	logger.Console(os.Stderr, cfg.LogLevel)

	if err := cfg.ValidateStore(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, source, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info().Str("source", source).Str("addr", cfg.Addr).Msg("Connected to bucket")

	return server.New(gateway.Instrument(gw), cfg.Addr).Run(ctx)
}

// openStore connects to the configured bucket and checks it is reachable.
func openStore(ctx context.Context, cfg *config.Config) (gateway.Gateway, string, error) {
	s3, err := store.NewS3Client(ctx, cfg)
	if err != nil {
		return nil, "", fmt.Errorf("error creating S3 client: %w", err)
	}
	if err := s3.HeadBucket(ctx); err != nil {
		return nil, "", fmt.Errorf("error accessing bucket '%s': %w", cfg.Bucket, err)
	}
	return s3, "s3://" + cfg.Bucket, nil
}
