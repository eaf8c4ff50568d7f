// Package migrations embeds the table-creation SQL into the binary.
//
// Importing this package registers the files with the database package so
// DB.Migrate can apply them without the SQL present on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/smarthome-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
