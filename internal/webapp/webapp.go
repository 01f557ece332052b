// Package webapp serves a built single-page app from a directory on disk.
// It keeps an in-memory index of the files present so a request for a
// hashed bundle that no longer exists can be told apart from an SPA route,
// and reports those misses to the asset recovery monitor.
package webapp

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

type Config struct {
	// Dir is the root of the built app, typically the Vite dist output.
	Dir    string
	Logger *slog.Logger
}

// Handler serves the app shell and its hashed assets.
type Handler struct {
	dir    string
	logger *slog.Logger

	// NotifyMiss is called with the request path whenever an asset-like
	// request misses the index. The recovery monitor decides whether the
	// miss qualifies as a stale script. Set before the handler serves.
	NotifyMiss func(ref string) bool

	mu    sync.RWMutex
	index map[string]struct{}
}

func New(cfg Config) (*Handler, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if _, err := os.Stat(filepath.Join(cfg.Dir, "index.html")); err != nil {
		return nil, fmt.Errorf("webapp dir %s has no index.html: %w", cfg.Dir, err)
	}

	h := &Handler{dir: cfg.Dir, logger: cfg.Logger}
	if err := h.Rescan(); err != nil {
		return nil, err
	}
	return h, nil
}

// Rescan rebuilds the asset index from disk. It doubles as the recovery
// monitor's reload action: when a deployment rotates hashed bundles under a
// running server, rescanning picks up the new file names so the next page
// load finds them.
func (h *Handler) Rescan() error {
	index := make(map[string]struct{})
	err := fs.WalkDir(os.DirFS(h.dir), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		index["/"+p] = struct{}{}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning webapp dir: %w", err)
	}

	h.mu.Lock()
	h.index = index
	h.mu.Unlock()
	h.logger.Info("webapp asset index rebuilt", "dir", h.dir, "assets", len(index))
	return nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p := path.Clean("/" + r.URL.Path)
	if p == "/" || p == "/index.html" {
		h.serveIndex(w, r)
		return
	}

	if h.known(p) {
		if strings.HasPrefix(p, "/assets/") {
			// Hashed bundles never change content under the same name.
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		}
		http.ServeFile(w, r, filepath.Join(h.dir, filepath.FromSlash(p)))
		return
	}

	if path.Ext(p) != "" {
		// An asset we do not have. A stale chunk reference left in a
		// cached index.html is the classic cause after a redeploy.
		if h.NotifyMiss != nil {
			h.NotifyMiss(p)
		}
		http.NotFound(w, r)
		return
	}

	// Anything without an extension is an SPA route.
	h.serveIndex(w, r)
}

// serveIndex sends the app shell. The entry point must never be cached:
// after a redeploy the browser has to see the new hashed asset names on the
// very next load.
func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
}

func (h *Handler) known(p string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.index[p]
	return ok
}
