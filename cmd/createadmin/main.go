// Command createadmin creates or resets a staff account from the command
// line, used to bootstrap the first admin.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/dentalespejo/clinic-platform/internal/users"
)

func main() {
	_ = godotenv.Load()

	var (
		name     = flag.String("name", "", "display name")
		email    = flag.String("email", "", "login email")
		password = flag.String("password", "", "password, at least 8 characters")
		role     = flag.String("role", string(users.RoleAdmin), "admin, doctor or receptionist")
	)
	flag.Parse()

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	req := users.CreateUserRequest{
		Name:     *name,
		Email:    *email,
		Password: *password,
		Role:     *role,
	}
	if err := req.Validate(); err != nil {
		log.Fatalf("invalid input: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	hash, err := users.HashPassword(req.Password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	repo := users.NewPostgresRepository(pool)
	u, err := repo.Create(ctx, &users.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         users.Role(req.Role),
		IsActive:     true,
	})
	if err != nil {
		if !errors.Is(err, users.ErrEmailTaken) {
			log.Fatalf("create user: %v", err)
		}
		// Account exists, reset its password and role instead.
		existing, lookupErr := repo.GetByEmail(ctx, req.Email)
		if lookupErr != nil {
			log.Fatalf("lookup user: %v", lookupErr)
		}
		active := true
		u, err = repo.Update(ctx, existing.ID, &users.UpdateUserRequest{
			Role:     &req.Role,
			IsActive: &active,
		}, hash)
		if err != nil {
			log.Fatalf("update user: %v", err)
		}
		log.Printf("existing account updated: %s (%s)", u.Email, u.Role)
		return
	}

	log.Printf("account created: %s (%s)", u.Email, u.Role)
}
