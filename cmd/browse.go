package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/slmtnm/s4json/internal/cache"
	"github.com/slmtnm/s4json/internal/config"
	"github.com/slmtnm/s4json/internal/gateway"
	"github.com/slmtnm/s4json/internal/logger"
	"github.com/slmtnm/s4json/internal/tui"
)

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logger.Init(f, cfg.LogLevel)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, source, err := openGateway(ctx, cfg, isatty.IsTerminal(os.Stdin.Fd()))
	if err != nil {
		return err
	}

	var address string
	if len(args) > 0 {
		address = args[0]
	}
	model := tui.New(ctx, cache.New(gateway.Instrument(gw)), tui.Options{
		Source:  source,
		Address: address,
		Refresh: cfg.Refresh,
	})

	logger.Info().Str("source", source).Str("address", address).Msg("starting browser")
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// openGateway picks the remote API when configured and S3 otherwise. With
// interactive set, missing credentials start the .s3cfg setup.
func openGateway(ctx context.Context, cfg *config.Config, interactive bool) (gateway.Gateway, string, error) {
	if cfg.Remote != "" {
		c, err := gateway.NewClient(cfg.Remote)
		if err != nil {
			return nil, "", err
		}
		return c, cfg.Remote, nil
	}

	err := cfg.ValidateStore()
	if errors.Is(err, config.ErrNoCredentials) && interactive {
		home, herr := os.UserHomeDir()
		if herr != nil {
			home = "."
		}
		s3cfg, serr := config.Setup(os.Stdin, os.Stdout, home)
		if serr != nil {
			return nil, "", fmt.Errorf("%w: %w", err, serr)
		}
		cfg.Merge(s3cfg)
		err = cfg.ValidateStore()
	}
	if err != nil {
		return nil, "", err
	}

	return openStore(ctx, cfg)
}
