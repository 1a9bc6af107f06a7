// Package web embeds the static frontend served at "/".
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

// FS returns the frontend files rooted at the static directory.
func FS() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err) // the directory is embedded at build time
	}
	return sub
}
