// Package migrations embeds the schema SQL into the binary so homesynth
// can migrate its store on startup without shipping loose files.
package migrations

import (
	"embed"

	"github.com/dwrignell/homesynth/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "." // SQL files sit at the root of this FS
}
