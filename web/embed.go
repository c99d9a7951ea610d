// Package web ships the page templates and browser assets inside the binary.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/layouts/*.html templates/partials/*.html templates/pages/*.html
//go:embed static/css/* static/js/*
var assets embed.FS

// Templates returns the template tree rooted at layouts/, partials/ and pages/.
func Templates() fs.FS {
	return mustSub("templates")
}

// Static returns the browser assets rooted at css/ and js/.
func Static() fs.FS {
	return mustSub("static")
}

// mustSub cannot fail for directories named in the embed patterns above.
func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(assets, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
