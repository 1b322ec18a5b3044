package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/HerbHall/palette/internal/auth"
	"github.com/HerbHall/palette/internal/config"
	"github.com/HerbHall/palette/internal/profile"
)

// runToken prints a bearer token for a user, signed with auth.jwt_secret.
func runToken(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: paletted token [--config path] <user-id>")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("failed to load configuration: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		fatalf("auth.jwt_secret is not set; tokens would not survive a restart")
	}

	tokens := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTokenTTL)
	token, err := tokens.IssueAccessToken(fs.Arg(0))
	if err != nil {
		fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}

// runGrant sets or clears a user's premium entitlement.
func runGrant(args []string) {
	fs := flag.NewFlagSet("grant", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	revoke := fs.Bool("revoke", false, "clear the premium flag instead of setting it")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: paletted grant [--config path] [--revoke] <user-id>")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}
	userID := fs.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, err := openDatabase(ctx, cfg.Database.Path)
	if err != nil {
		fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	repo, err := profile.NewSQLiteRepository(ctx, db)
	if err != nil {
		fatalf("failed to initialize profile repository: %v", err)
	}
	if err := repo.SetPremium(ctx, userID, !*revoke); err != nil {
		fatalf("update entitlement: %v", err)
	}

	if *revoke {
		fmt.Printf("premium revoked for %s\n", userID)
	} else {
		fmt.Printf("premium granted to %s\n", userID)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
