// Package migrations embeds the journal schema into the binary so the
// scratch image needs no SQL files on disk.
package migrations

import (
	"embed"

	"github.com/casamack/tibber-refiner/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
}
