// ABOUTME: Embeds page templates, static assets and the home page markdown
// ABOUTME: Provides the filesystems loaded by New

package webui

import "embed"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

//go:embed docs/*.md
var docsFS embed.FS
