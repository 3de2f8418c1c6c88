// Package migrations embeds the SQL schema for the vibrant profile store.
//
// Files follow YYYYMMDD_HHMMSS_description.{up,down}.sql and live at the root
// of FS.
package migrations

import (
	"embed"

	"github.com/nerrad567/vibrant/internal/infrastructure/database"
)

//go:embed *.sql
var FS embed.FS

// Dir is the directory inside FS holding the migration files.
const Dir = "."

// All loads every embedded migration, oldest first.
func All() ([]database.Migration, error) {
	return database.Migrations(FS, Dir)
}
