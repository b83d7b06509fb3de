package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// newDemoApp returns the HTTP application whose traffic is mirrored to the
// gateway.
func newDemoApp(logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if r.Method == http.MethodGet {
			_, _ = fmt.Fprintf(w, "%s %s\n", r.Method, r.URL.RequestURI())
			return
		}
		if _, err := io.Copy(w, r.Body); err != nil {
			logger.Warn("Echo failed", "error", err)
		}
	})

	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"query":  r.URL.Query(),
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST a multipart form", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		type file struct {
			Field string `json:"field"`
			Name  string `json:"name"`
			Size  int64  `json:"size"`
		}
		var files []file
		for field, headers := range r.MultipartForm.File {
			for _, h := range headers {
				files = append(files, file{Field: field, Name: h.Filename, Size: h.Size})
			}
		}
		logger.Info("Received upload", "files", len(files))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"fields": r.MultipartForm.Value, "files": files})
	})

	return mux
}
