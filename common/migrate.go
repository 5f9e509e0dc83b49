package common

import (
	"database/sql"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// RunMigrations reads and executes the given SQL migration file(s).
func RunMigrations(db *sql.DB, paths ...string) error {
	for _, path := range paths {
		log.Infof("running migration: %s", path)

		sqlBytes, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read migration file: %w", err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			return fmt.Errorf("exec migration %s: %w", path, err)
		}
	}
	log.Infof("applied %d migration(s)", len(paths))
	return nil
}
