package auth

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for the portal schema. Each
// dialect keeps its own copy under data/sql/migrations/<dialect>.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
