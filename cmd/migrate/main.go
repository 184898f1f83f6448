package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"homegrid.io/internal/auth"
	"homegrid.io/internal/migrate"
)

func main() {
	log.SetFlags(0)
	var (
		dsn            = flag.String("dsn", os.Getenv("HOMEGRID_PG_DSN"), "PostgreSQL DSN")
		migrationsPath = flag.String("migrations", "ops/migrations/sql", "Path to SQL migrations")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or HOMEGRID_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|status|admin]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, *migrationsPath)

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	case "admin":
		err = seedAdmin(ctx, db)
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

// seedAdmin creates or updates the initial admin account. The password must
// be hashed in Go, so this cannot live in a plain SQL seed file.
func seedAdmin(ctx context.Context, db *sql.DB) error {
	email := strings.ToLower(strings.TrimSpace(os.Getenv("HOMEGRID_ADMIN_EMAIL")))
	password := os.Getenv("HOMEGRID_ADMIN_PASSWORD")
	name := strings.TrimSpace(os.Getenv("HOMEGRID_ADMIN_NAME"))
	if email == "" || password == "" {
		return fmt.Errorf("HOMEGRID_ADMIN_EMAIL and HOMEGRID_ADMIN_PASSWORD are required")
	}
	if name == "" {
		name = "Administrator"
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		insert into users (email, name, role, password_hash)
		values ($1, $2, $3, $4)
		on conflict (email) do update
		set name = excluded.name, role = excluded.role, password_hash = excluded.password_hash
	`, email, name, auth.RoleAdmin, hash)
	if err != nil {
		return fmt.Errorf("upsert admin: %w", err)
	}
	log.Printf("admin account %s ready", email)
	return nil
}
