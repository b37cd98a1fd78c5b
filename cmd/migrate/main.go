// migrate applies the embedded SQL migrations; go run ./cmd/migrate -direction up.
package main

import (
	"flag"
	"fmt"
	"os"

	"bizreport/api/internal/config"
	"bizreport/api/internal/database"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	dsn := flag.String("dsn", "", "Postgres DSN (defaults to postgres.dsn from config)")
	flag.Parse()

	if *dsn == "" {
		cfg, err := config.LoadPostgres()
		if err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(1)
		}
		*dsn = cfg.DSN
	}

	if err := database.Migrate(*dsn, *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
