package server

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
)

//go:embed static/*
var staticFiles embed.FS

// asset is one embedded file ready to serve
type asset struct {
	data        []byte
	contentType string
	etag        string
}

// assetIndex maps "css/site.css" style names to their content
type assetIndex map[string]asset

// loadAssets reads every embedded css, js and image file once at startup
func loadAssets() (assetIndex, error) {
	root, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	index := assetIndex{}
	err = fs.WalkDir(root, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(root, name)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(data)
		index[name] = asset{
			data:        data,
			contentType: assetContentType(name, data),
			etag:        `"` + hex.EncodeToString(sum[:8]) + `"`,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}
	return index, nil
}

func assetContentType(name string, data []byte) string {
	ctype := mime.TypeByExtension(strings.ToLower(path.Ext(name)))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	if strings.HasPrefix(ctype, "text/") && !strings.Contains(strings.ToLower(ctype), "charset=") {
		ctype += "; charset=utf-8"
	}
	return ctype
}

// AssetHandler serves the {file} path value from one asset folder. A matching
// If-None-Match answers 304.
func (s *Server) AssetHandler(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := path.Join(dir, r.PathValue("file"))
		a, ok := s.assets[name]
		if !ok || !fs.ValidPath(name) {
			logError(r.Method, r.URL.Path, "no such asset")
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}

		w.Header().Set("ETag", a.etag)
		if r.Header.Get("If-None-Match") == a.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", a.contentType)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		_, _ = w.Write(a.data)
	}
}
