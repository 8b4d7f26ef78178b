// Command migrate manages the PostgreSQL schema with goose.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"studyswap.org/migrations"
)

func main() {
	dsn := flag.String("dsn", os.Getenv("STUDYSWAP_PG_DSN"), "PostgreSQL DSN")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 || *dsn == "" {
		fmt.Fprintln(os.Stderr, "Usage: migrate -dsn <dsn> <command>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  up       Migrate to the latest version")
		fmt.Fprintln(os.Stderr, "  down     Roll back one version")
		fmt.Fprintln(os.Stderr, "  status   Show migration status")
		fmt.Fprintln(os.Stderr, "  version  Show current version")
		os.Exit(1)
	}

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("set dialect: %v", err)
	}

	cmd := args[0]
	switch cmd {
	case "up":
		err = goose.Up(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	case "version":
		err = goose.Version(db, ".")
	default:
		log.Fatalf("unknown command: %s", cmd)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}
