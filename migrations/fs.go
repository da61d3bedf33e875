// Package migrations embeds the SQL schema for the server database and the device cache.
package migrations

import "embed"

// FS holds postgres/*.sql (server) and sqlite/*.sql (device cache).
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
