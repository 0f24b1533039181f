package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
)

// Removes expired refresh tokens. Intended for a cron schedule on
// deployments where the server's hourly purge is not running.
func main() {
	url := os.Getenv("DATABASE_URL")
	if len(os.Args) > 1 {
		url = os.Args[1]
	}
	if url == "" {
		fmt.Fprintln(os.Stderr, "Usage: cleanup <connection-string> (or set DATABASE_URL)")
		os.Exit(1)
	}

	conn, err := pgx.Connect(context.Background(), url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(context.Background())

	result, err := conn.Exec(context.Background(), "DELETE FROM refresh_tokens WHERE expires_at < NOW()")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cleanup failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Deleted %d expired refresh tokens.\n", result.RowsAffected())
}
