// Package web holds the embedded single-page shell served at the root.
package web

import "embed"

//go:embed static
var Static embed.FS
