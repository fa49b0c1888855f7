// migrate-to-postgres copies a campaign database from SQLite to PostgreSQL.
//
// Usage:
//
//	go run ./cmd/migrate-to-postgres \
//	    -sqlite data/campaign.db \
//	    -pg-host localhost \
//	    -pg-port 5432 \
//	    -pg-user campaign \
//	    -pg-password campaign \
//	    -pg-database campaign
package main

import (
	"flag"
	"log"

	"github.com/milocarbol/dndcampaign/internal/database"
)

func main() {
	// Parse command-line flags
	sqlitePath := flag.String("sqlite", "data/campaign.db", "Path to SQLite database")
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "campaign", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "", "PostgreSQL password")
	pgDatabase := flag.String("pg-database", "campaign", "PostgreSQL database name")
	pgSSLMode := flag.String("pg-sslmode", "disable", "PostgreSQL SSL mode")
	dryRun := flag.Bool("dry-run", false, "Show what would be migrated without making changes")
	flag.Parse()

	log.Println("SQLite to PostgreSQL Migration Tool")
	log.Println("====================================")

	log.Printf("Opening SQLite database: %s", *sqlitePath)
	src, err := database.Open(*sqlitePath)
	if err != nil {
		log.Fatalf("Failed to open SQLite database: %v", err)
	}
	defer src.Close()

	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = *pgHost
	pgCfg.Port = *pgPort
	pgCfg.User = *pgUser
	pgCfg.Password = *pgPassword
	pgCfg.Database = *pgDatabase
	pgCfg.SSLMode = *pgSSLMode

	// Opening applies the schema to PostgreSQL.
	log.Printf("Opening PostgreSQL database: %s@%s:%d/%s", *pgUser, *pgHost, *pgPort, *pgDatabase)
	dst, err := database.OpenWithConfig(database.Config{Driver: string(database.DialectPostgres), Postgres: pgCfg})
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL database: %v", err)
	}
	defer dst.Close()

	if *dryRun {
		log.Println("DRY RUN MODE - No changes will be made")
	}

	results, err := src.CopyTo(dst, *dryRun)
	for _, r := range results {
		log.Printf("Migrated table %s: %d rows read, %d written", r.Table, r.Read, r.Written)
	}
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	var total int64
	for _, r := range results {
		total += r.Written
	}
	log.Println("====================================")
	log.Printf("Migration complete! Total rows migrated: %d", total)
	if *dryRun {
		log.Println("(DRY RUN - No actual changes were made)")
	}
}
