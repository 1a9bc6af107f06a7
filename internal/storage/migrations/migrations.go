// Package migrations embeds the schema for every supported database.
// Files follow golang-migrate naming: NNNN_name.up.sql / NNNN_name.down.sql.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
