package handlers

import (
	"embed"
	"io/fs"
	"log"
	"net/http"
)

//go:embed static/*
var staticFS embed.FS

// Static serves the client assets under /static/
func (h *Handler) Static() http.Handler {
	assets, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Printf("Failed to mount static assets: %v", err)
		return http.NotFoundHandler()
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(assets)))
}
