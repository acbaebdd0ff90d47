// Package ui holds the dashboard's HTML templates and static assets.
package ui

import "embed"

//go:embed templates static
var Files embed.FS
