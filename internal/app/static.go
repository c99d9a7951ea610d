package app

import (
	"log/slog"
	"mime"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/pactum-saas/pactum-web/web"
)

// Some minimal base images ship without /etc/mime.types; the browser refuses
// scripts served as text/plain under nosniff.
var assetTypes = map[string]string{
	".css": "text/css; charset=utf-8",
	".js":  "text/javascript; charset=utf-8",
}

var registerAssetTypes = sync.OnceFunc(func() {
	for ext, typ := range assetTypes {
		if mime.TypeByExtension(ext) != "" {
			continue
		}
		if err := mime.AddExtensionType(ext, typ); err != nil {
			slog.Default().Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
		}
	}
})

// mountStatic serves the embedded browser assets under /static/. Assets never
// touch the session.
func mountStatic(r chi.Router) {
	registerAssetTypes()
	files := http.StripPrefix("/static/", http.FileServer(http.FS(web.Static())))
	r.Handle("/static/*", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, req)
	}))
}
