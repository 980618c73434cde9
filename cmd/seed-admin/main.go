// Command seed-admin provisions or promotes an admin account. It is
// meant to be run once against a fresh database before the first
// deployment.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"pravacash/internal/auth"
	"pravacash/internal/config"
	"pravacash/internal/core"
	"pravacash/internal/storage"
)

func main() {
	_ = godotenv.Load()

	email := flag.String("email", "", "admin email address")
	name := flag.String("name", "Administrator", "display name")
	password := flag.String("password", "", "password, min 8 characters")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("configuration invalid: %v", err)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	normalized := core.NormalizeEmail(*email)

	// Promote instead of failing when the account already exists.
	if existing, err := repo.GetUserByEmail(ctx, normalized); err == nil {
		if existing.Role == core.RoleAdmin {
			fmt.Printf("%s is already an admin\n", normalized)
			return
		}
		if err := repo.UpdateUserRole(ctx, existing.ID, core.RoleAdmin); err != nil {
			log.Fatalf("promote user: %v", err)
		}
		fmt.Printf("promoted %s to admin\n", normalized)
		return
	} else if !errors.Is(err, core.ErrNotFound) {
		log.Fatalf("look up user: %v", err)
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user := core.User{
		Email:        normalized,
		Name:         *name,
		PasswordHash: hash,
		Role:         core.RoleAdmin,
	}
	if err := user.Validate(); err != nil {
		log.Fatalf("invalid account: %v", err)
	}

	created, err := repo.CreateUser(ctx, user)
	if err != nil {
		log.Fatalf("create admin: %v", err)
	}

	fmt.Printf("created admin %s (%s)\n", created.Email, created.ID)
}
