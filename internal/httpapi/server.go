// Package httpapi exposes the game over HTTP/JSON: the REST endpoints
// under /api/v1 and the static client files. Handlers decode and
// validate on the calling goroutine, then run the use-case body on the
// strand.
package httpapi

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dogpark/server/internal/app"
	"github.com/dogpark/server/internal/strand"
)

// Server dispatches API requests into the application through the
// strand and serves the static client from wwwRoot.
type Server struct {
	app     *app.App
	strand  *strand.Strand
	wwwRoot string
	log     *zap.Logger
}

func NewServer(a *app.App, st *strand.Strand, wwwRoot string, log *zap.Logger) *Server {
	return &Server{app: a, strand: st, wwwRoot: wwwRoot, log: log}
}

// Handler builds the route table. API routes match before the static
// fallback; an /api path with no route is a client error, not a file.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/maps", s.handleMaps)
	r.HandleFunc("/api/v1/maps/{id}", s.handleMapByID)
	r.HandleFunc("/api/v1/game/join", s.handleJoin)
	r.HandleFunc("/api/v1/game/players", s.handlePlayers)
	r.HandleFunc("/api/v1/game/state", s.handleState)
	r.HandleFunc("/api/v1/game/player/action", s.handleAction)
	r.HandleFunc("/api/v1/game/tick", s.handleTick)
	r.HandleFunc("/api/v1/game/records", s.handleRecords)
	r.PathPrefix("/api").HandlerFunc(s.handleUnknownAPI)
	r.PathPrefix("/").HandlerFunc(s.handleStatic)
	return s.logRequests(r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(started)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

var contentTypes = map[string]string{
	".htm":  "text/html",
	".html": "text/html",
	".css":  "text/css",
	".txt":  "text/plain",
	".js":   "text/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpe":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".ico":  "image/vnd.microsoft.icon",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".svg":  "image/svg+xml",
	".svgz": "image/svg+xml",
	".mp3":  "audio/mpeg",
}

// handleStatic serves client files from wwwRoot. Directory requests get
// index.html; paths escaping the root and missing files are 404s.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	rel := path.Clean("/" + r.URL.Path)
	target := filepath.Join(s.wwwRoot, filepath.FromSlash(rel))
	root := filepath.Clean(s.wwwRoot)
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		s.writeFileNotFound(w, r)
		return
	}

	info, err := os.Stat(target)
	if err == nil && info.IsDir() {
		target = filepath.Join(target, "index.html")
		info, err = os.Stat(target)
	}
	if err != nil || info.IsDir() {
		s.writeFileNotFound(w, r)
		return
	}

	ctype, ok := contentTypes[strings.ToLower(filepath.Ext(target))]
	if !ok {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)

	f, err := os.Open(target)
	if err != nil {
		s.writeFileNotFound(w, r)
		return
	}
	defer f.Close()
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) writeFileNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusNotFound, errorBody{
		Code:    "fileNotFound",
		Message: "File not found",
	})
}
