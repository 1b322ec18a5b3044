package main

//	@title						Palette Profile API
//	@version					0.1.0
//	@description				Stores theme preferences and premium entitlements for palette clients.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/HerbHall/palette/api/swagger"
	"github.com/HerbHall/palette/internal/auth"
	"github.com/HerbHall/palette/internal/config"
	"github.com/HerbHall/palette/internal/event"
	"github.com/HerbHall/palette/internal/profile"
	"github.com/HerbHall/palette/internal/server"
	"github.com/HerbHall/palette/internal/store"
	"github.com/HerbHall/palette/internal/version"
	"github.com/HerbHall/palette/internal/ws"
	"github.com/HerbHall/palette/pkg/preset"
)

func main() {
	// Subcommand dispatch (before flag.Parse).
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "token":
			runToken(os.Args[2:])
			return
		case "grant":
			runGrant(os.Args[2:])
			return
		case "version":
			fmt.Println(version.Info())
			return
		}
	}

	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("paletted starting", zap.String("version", version.Short()))

	if cfg.Source != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", cfg.Source),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDatabase(ctx, cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("path", cfg.Database.Path),
	)

	bus := event.NewBus(logger.Named("event"))

	repo, err := profile.NewSQLiteRepository(ctx, db)
	if err != nil {
		logger.Fatal("failed to initialize profile repository", zap.Error(err))
	}
	catalog := preset.Builtin()
	profileHandler := profile.NewHandler(repo, catalog, bus, logger.Named("profile"))
	logger.Info("profile service initialized",
		zap.String("component", "profile"),
		zap.Int("presets", catalog.Len()),
	)

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		if !cfg.Server.DevMode {
			logger.Fatal("auth.jwt_secret is required outside dev mode",
				zap.String("component", "auth"),
			)
		}
		// Tokens from `paletted token` will not validate against this secret.
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			logger.Fatal("failed to generate JWT secret", zap.Error(err))
		}
		secret = hex.EncodeToString(b)
		logger.Warn("using auto-generated JWT secret (dev mode)", zap.String("component", "auth"))
	}
	tokens := auth.NewTokenService([]byte(secret), cfg.Auth.AccessTokenTTL)
	logger.Info("auth initialized",
		zap.String("component", "auth"),
		zap.Duration("access_token_ttl", tokens.AccessTokenTTL()),
	)

	wsHandler := ws.NewHandler(tokens, bus, logger.Named("ws"))
	defer wsHandler.Close()
	logger.Info("websocket handler initialized", zap.String("component", "ws"))

	addr := cfg.Server.Addr()
	srv := server.New(server.Options{
		Addr:   addr,
		Logger: logger,
		Ready: func(ctx context.Context) error {
			return db.Ping(ctx)
		},
		Auth:    auth.AuthMiddleware(tokens),
		DevMode: cfg.Server.DevMode,
		Routes:  []server.RouteRegistrar{profileHandler, wsHandler},
	})

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("paletted ready", zap.String("addr", addr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("paletted stopped")
}

// openDatabase opens the profile database and refuses one written by a
// newer release.
func openDatabase(ctx context.Context, path string) (*store.DB, error) {
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
