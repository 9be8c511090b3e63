package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/lhclegal/lhc-backend/internal/config"
	"github.com/lhclegal/lhc-backend/internal/db"
	"github.com/lhclegal/lhc-backend/internal/logger"
	"github.com/lhclegal/lhc-backend/internal/users"
)

func main() {
	var (
		username = flag.String("username", "", "admin display name")
		email    = flag.String("email", "", "admin email")
		password = flag.String("password", "", "admin password (or ADMIN_PASSWORD)")
		promote  = flag.Bool("promote", false, "grant admin to an existing account with this email")
	)
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("ADMIN_PASSWORD")
	}
	if *email == "" || (*password == "" && !*promote) {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	log := logger.New(logger.Config{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	if err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	d, err := db.Connect(cfg.DatabaseURL, db.Options{})
	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	defer db.Close(d)

	if err := users.Init(d); err != nil {
		log.Error("migration failed", "err", err)
		os.Exit(1)
	}
	users.SetHashCost(cfg.Auth.BcryptCost)

	policy := users.DefaultPasswordPolicy()
	policy.MinLength = cfg.Auth.PasswordMinLength

	u, created, err := users.CreateAdmin(context.Background(), users.NewGormStore(d), users.AdminSpec{
		Username: *username,
		Email:    *email,
		Password: *password,
		Promote:  *promote,
	}, policy)
	if errors.Is(err, users.ErrDuplicate) {
		fmt.Println("An account with this email already exists (use -promote to make it admin).")
		os.Exit(1)
	}
	if errors.Is(err, users.ErrInvalidAdmin) {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error("create admin failed", "err", err)
		os.Exit(1)
	}

	if created {
		fmt.Printf("✓ Admin %s created (id %s)\n", u.Email, u.ID)
	} else {
		fmt.Printf("✓ %s is now an admin\n", u.Email)
	}
}
