// Package swagger serves the OpenAPI description of the HTTP API.
package swagger

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed openapi/*
var content embed.FS

// GetHandler serves the embedded files; mount it under a stripped prefix.
func GetHandler() (http.Handler, error) {
	subFS, err := fs.Sub(content, "openapi")
	if err != nil {
		return nil, err
	}

	return http.FileServer(http.FS(subFS)), nil
}
