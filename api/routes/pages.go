package routes

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/popspot-backend/pkg/logger"
)

var (
	publicPages    = []string{"/", "/auth", "/auth/callback", "/reset-password"}
	protectedPages = []string{
		"/profile",
		"/stores",
		"/stores/new",
		"/stores/{storeId}",
		"/stores/{storeId}/edit",
		"/favorites",
		"/collaborations",
	}
)

// Pages serves the built browser app. Known app routes get index.html,
// protected ones only with a session cookie; files in the static dir are
// served as-is and anything else redirects home.
type Pages struct {
	dir        string
	cookieName string
	logg       *logger.Logger
}

func NewPages(dir, cookieName string, logg *logger.Logger) *Pages {
	return &Pages{dir: dir, cookieName: cookieName, logg: logg}
}

func (p *Pages) Register(r chi.Router) {
	for _, page := range publicPages {
		r.Get(page, p.serveIndex)
	}
	r.Group(func(r chi.Router) {
		r.Use(p.requireSessionCookie)
		for _, page := range protectedPages {
			r.Get(page, p.serveIndex)
		}
	})
	r.NotFound(p.fallback)
}

func (p *Pages) requireSessionCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(p.cookieName)
		if err != nil || c.Value == "" {
			http.Redirect(w, r, "/auth", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (p *Pages) serveIndex(w http.ResponseWriter, r *http.Request) {
	index := filepath.Join(p.dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		p.logg.Warn(p.logg.WithField(r.Context(), "static_dir", p.dir), "index.html missing")
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, index)
}

func (p *Pages) fallback(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		if file, ok := p.staticFile(r.URL.Path); ok {
			http.ServeFile(w, r, file)
			return
		}
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// staticFile maps a request path into the static dir, refusing traversal and
// directories.
func (p *Pages) staticFile(urlPath string) (string, bool) {
	if p.dir == "" {
		return "", false
	}
	clean := path.Clean("/" + urlPath)
	if clean == "/" || strings.HasSuffix(clean, "/index.html") {
		return "", false
	}
	file := filepath.Join(p.dir, filepath.FromSlash(clean))
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		return "", false
	}
	return file, true
}
