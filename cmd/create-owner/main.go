package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/app"
	"github.com/jafarshop/storefront/internal/config"
	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/identity"
	"github.com/jafarshop/storefront/internal/repository"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run cmd/create-owner/main.go <email> <password> [display-name]")
		fmt.Println("Example: go run cmd/create-owner/main.go owner@jafarshop.com \"s3cret-pass\" \"Store Owner\"")
		os.Exit(1)
	}

	email := os.Args[1]
	password := os.Args[2]
	displayName := "Store Owner"
	if len(os.Args) > 3 {
		displayName = os.Args[3]
	}
	if len(password) < 6 {
		fmt.Fprintln(os.Stderr, "Password must be at least 6 characters")
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.Driver == "memory" {
		fmt.Fprintln(os.Stderr, "STORAGE_DRIVER=memory keeps nothing; use bbolt or postgres")
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	store, closeStore, err := app.OpenStorage(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	ctx := context.Background()
	provider := identity.NewProvider(store, identity.Options{Secret: []byte(cfg.Auth.JWTSecret)}, logger)

	account, err := provider.CreateAccount(ctx, email, password, displayName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create account: %v\n", err)
		os.Exit(1)
	}

	// Owners are approved sellers from the start so they can review requests.
	now := time.Now()
	owner := domain.User{
		ID:            account.UID,
		Email:         account.Email,
		EmailVerified: true,
		DisplayName:   displayName,
		Seller: domain.SellerProfile{
			IsSeller:               true,
			SellerVerified:         true,
			SellerApproved:         true,
			SellerIdentityVerified: true,
			RequestedAt:            &now,
		},
		CreatedAt: now,
	}
	profile := repository.NewDocument[domain.User](store, repository.UserDataKey(owner.ID))
	if err := profile.Save(ctx, owner); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save owner profile: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Owner account created successfully!\n\n")
	fmt.Printf("User ID: %s\n", owner.ID)
	fmt.Printf("Email: %s\n", owner.Email)
	fmt.Printf("Display Name: %s\n", owner.DisplayName)
	fmt.Printf("\nSign in with POST /v1/auth/login and use the returned token in the Authorization header:\n")
	fmt.Printf("Authorization: Bearer <token>\n")
}
