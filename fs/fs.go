// Package appfs embeds the SQL migrations and the templates.
package appfs

import "embed"

//go:embed migrations templates/web/*.gohtml templates/email/*.txt templates/email/*.gohtml
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	WebTemplatesDir   = "templates/web"
	EmailTemplatesDir = "templates/email"
)
