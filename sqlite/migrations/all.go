// Package migrations embeds the SQL scripts which define the taskd schema.
package migrations

import "embed"

//go:embed *.sql
var All embed.FS
