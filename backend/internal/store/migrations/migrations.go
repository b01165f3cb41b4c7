// Package migrations embeds the article store SQL migrations for goose.
//
// Files follow the goose naming convention NNNNN_description.sql and are applied in order.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
