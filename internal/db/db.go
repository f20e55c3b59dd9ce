// internal/db/db.go
package db

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"

	"github.com/unclebandit/hyperdrip/internal/config"
)

var DB *sql.DB

// Init opens and pings the Postgres connection used by the lead
// store. Falls back to building a DSN from the individual DB_* pieces
// when DATABASE_URL isn't set, matching the teacher's connection
// bring-up.
func Init(cfg *config.Config) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
		)
	}

	log.Println("DB_HOST:", cfg.DBHost)
	log.Println("DB_NAME:", cfg.DBName)

	var err error
	DB, err = sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err)
	}

	if err = DB.Ping(); err != nil {
		log.Fatalf("failed to ping DB: %v", err)
	}

	log.Println("✅ connected to database")
}
