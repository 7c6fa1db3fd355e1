//go:build !embed
// +build !embed

package web

import (
	"net/http"
)

// Stub used when building without the 'embed' tag: the server falls back to
// serving frontend/dist from disk if it exists. Building with -tags=embed
// compiles static_embed.go instead, which carries the built dashboard.
func embeddedStaticFS() (http.FileSystem, error) {
	return nil, nil
}
