// Package portal provides embedded assets for production builds.
package portal

import "embed"

// Embedded portal shell. In dev mode templates and static files are read
// from disk instead so edits show up without a rebuild.

//go:embed all:web/static
var StaticFS embed.FS

//go:embed all:web/templates
var TemplateFS embed.FS
