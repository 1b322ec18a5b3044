// Package cli implements the palette command line client.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/palette/internal/cache"
	"github.com/HerbHall/palette/internal/config"
	"github.com/HerbHall/palette/internal/entitlement"
	"github.com/HerbHall/palette/internal/event"
	"github.com/HerbHall/palette/internal/remote"
	"github.com/HerbHall/palette/internal/store"
	"github.com/HerbHall/palette/internal/themestore"
	"github.com/HerbHall/palette/internal/version"
	"github.com/HerbHall/palette/pkg/preset"
)

const upgradeHint = "This palette requires a premium subscription. Upgrade, then run `palette pull` to refresh."

type rootState struct {
	configPath string
	token      string
	verbose    bool
	local      bool
}

// app is the per-invocation wiring: config, local cache, remote client and
// the theme store built on them.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *store.DB
	client *remote.Client
	bus    *event.Bus
	store  *themestore.Store
	token  string
}

// NewRootCmd builds the palette command tree.
func NewRootCmd() *cobra.Command {
	state := &rootState{}

	cmd := &cobra.Command{
		Use:          "palette",
		Short:        "Inspect and change your theme palette",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&state.configPath, "config", "", "config file (default: palette.yaml in ., ./configs, /etc/palette)")
	cmd.PersistentFlags().StringVar(&state.token, "token", "", "bearer token for the profile service (overrides auth.token)")
	cmd.PersistentFlags().BoolVarP(&state.verbose, "verbose", "v", false, "log at the configured level instead of warn")
	cmd.PersistentFlags().BoolVar(&state.local, "local", false, "do not push changes to the profile service")

	cmd.AddCommand(
		newShowCmd(state),
		newModeCmd(state),
		newPresetCmd(state),
		newCustomCmd(state),
		newUseCustomCmd(state),
		newResetCmd(state),
		newPresetsCmd(),
		newPullCmd(state),
		newPushCmd(state),
		newWatchCmd(state),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version.Info())
			},
		},
	)
	return cmd
}

func openApp(ctx context.Context, state *rootState) (*app, error) {
	cfg, err := config.Load(state.configPath)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Logging
	if !state.verbose {
		logCfg.Level = "warn"
	}
	logger, err := config.NewLogger(logCfg)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		db.Close()
		return nil, err
	}
	kv, err := cache.NewSQLiteKV(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}

	mode := cfg.Theme.ColorMode()
	client := remote.NewClient(cfg.Remote, logger.Named("remote"))
	bus := event.NewBus(logger.Named("event"))
	st := themestore.New(themestore.Options{
		Local:       cache.NewLocal(kv, mode, logger.Named("cache")),
		Remote:      client,
		Gate:        entitlement.NewGate(client, cfg.Entitlement, logger.Named("entitlement")),
		Catalog:     preset.Builtin(),
		Bus:         bus,
		Logger:      logger.Named("themestore"),
		DefaultMode: mode,
	})
	if err := st.Load(ctx); err != nil {
		db.Close()
		return nil, err
	}

	token := state.token
	if token == "" {
		token = cfg.Auth.Token
	}
	return &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		client: client,
		bus:    bus,
		store:  st,
		token:  token,
	}, nil
}

// close drains queued cache writes before closing the database.
func (a *app) close() error {
	err := a.store.Close()
	if cerr := a.db.Close(); err == nil {
		err = cerr
	}
	_ = a.logger.Sync()
	return err
}

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, state *rootState, fn func(ctx context.Context, a *app) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, state)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	return fn(ctx, a)
}

// mutate refreshes the entitlement when a token is set, applies fn, and
// pushes the result unless --local was given.
func mutate(cmd *cobra.Command, state *rootState, fn func(s *themestore.Store) error) error {
	return withApp(cmd, state, func(ctx context.Context, a *app) error {
		if a.token != "" {
			a.store.RefreshEntitlement(ctx, a.token)
		}
		if err := fn(a.store); err != nil {
			if errors.Is(err, themestore.ErrPremiumRequired) {
				fmt.Fprintln(cmd.ErrOrStderr(), upgradeHint)
			}
			return err
		}
		if a.token != "" && !state.local {
			if err := a.store.SaveToRemote(ctx, a.token); err != nil {
				// Local state is already updated; report but keep it.
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
		}
		return renderStatus(cmd.OutOrStdout(), a.store)
	})
}

func requireToken(a *app) error {
	if a.token == "" {
		return errors.New("no token: set auth.token, PALETTE_AUTH_TOKEN or --token")
	}
	return nil
}
