package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/scripthub/scripthub/internal/metrics"
	"github.com/scripthub/scripthub/internal/projects"
)

// DefaultMaxBodyBytes caps a save body when Options leaves it unset.
const DefaultMaxBodyBytes = 10 << 20

// Store is the project store the handler serves.
type Store interface {
	List() ([]string, error)
	Open(name string) (*projects.Project, error)
	Save(name, text string) (string, error)
}

// Options configures a Handler.
type Options struct {
	// StaticDir is served for GET requests that match no endpoint.
	// Empty disables static serving (plain 404).
	StaticDir string

	// MaxBodyBytes caps the size of a save body.
	MaxBodyBytes int64

	// Metrics receives project counters. Nil disables them.
	Metrics *metrics.Metrics
}

// Handler routes project requests to the store.
type Handler struct {
	store   Store
	static  http.Handler
	maxBody int64
	metrics *metrics.Metrics
	extra   map[string]http.Handler
}

// New creates a Handler serving st.
func New(st Store, opts Options) *Handler {
	h := &Handler{
		store:   st,
		static:  http.NotFoundHandler(),
		maxBody: opts.MaxBodyBytes,
		metrics: opts.Metrics,
		extra:   make(map[string]http.Handler),
	}
	if opts.StaticDir != "" {
		h.static = http.FileServer(http.Dir(opts.StaticDir))
	}
	if h.maxBody <= 0 {
		h.maxBody = DefaultMaxBodyBytes
	}
	h.Mount("/healthz", http.HandlerFunc(h.health))
	return h
}

// Mount attaches an additional GET endpoint at the exact path. It must be
// called before the handler starts serving.
func (h *Handler) Mount(path string, handler http.Handler) {
	h.extra[path] = handler
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		switch r.URL.Path {
		case "/projects":
			h.listProjects(w, r)
		case "/open":
			h.openProject(w, r)
		default:
			h.serveOther(w, r)
		}

	case http.MethodHead:
		h.serveOther(w, r)

	case http.MethodPost:
		if !isSavePath(r.URL) {
			writeFault(w, msgUnknownEndpoint)
			return
		}
		h.saveProject(w, r)

	default:
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
	}
}

// --- route handlers ---------------------------------------------------------

// listProjects serves GET /projects.
func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.List()
	if err != nil {
		internalError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	if h.metrics != nil {
		h.metrics.SetProjects(len(names))
	}
	writeJSON(w, r, names)
}

// openProject serves GET /open?file=<name>.
func (h *Handler) openProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Open(r.URL.Query().Get("file"))
	switch {
	case errors.Is(err, projects.ErrMissingFilename):
		writeFault(w, msgMissingFilename)
		return
	case errors.Is(err, projects.ErrNotFound):
		writeFault(w, msgFileNotFound)
		return
	case err != nil:
		internalError(w, r, err)
		return
	}
	writeJSON(w, r, OpenResponse{Filename: p.Filename, Text: p.Text})
}

// saveProject serves POST /save.
func (h *Handler) saveProject(w http.ResponseWriter, r *http.Request) {
	var req *SaveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err := dec.Decode(&req); err != nil {
		internalError(w, r, err)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		internalError(w, r, fmt.Errorf("save body: trailing data after JSON value: %v", err))
		return
	}
	if req == nil {
		internalError(w, r, errors.New("save body is null"))
		return
	}

	var name, text string
	if req.Filename != nil {
		name = *req.Filename
	}
	if len(req.Text) > 0 {
		if string(req.Text) == "null" {
			internalError(w, r, errors.New("save body: text is null"))
			return
		}
		if err := json.Unmarshal(req.Text, &text); err != nil {
			internalError(w, r, fmt.Errorf("save body: text: %w", err))
			return
		}
	}

	base, err := h.store.Save(name, text)
	switch {
	case errors.Is(err, projects.ErrMissingFilename):
		writeFault(w, msgMissingFilename)
		return
	case err != nil:
		internalError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveSave(len(text))
	}
	slog.Info("project saved", "file", base, "size", humanize.Bytes(uint64(len(text))))
	writeJSON(w, r, SaveResponse{Saved: true, File: base})
}

// health serves GET /healthz.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, HealthResponse{Status: "ok"})
}

// serveOther dispatches mounted endpoints and falls back to static files.
func (h *Handler) serveOther(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if handler, ok := h.extra[r.URL.Path]; ok {
			handler.ServeHTTP(w, r)
			return
		}
	}
	h.static.ServeHTTP(w, r)
}

// --- helpers ----------------------------------------------------------------

// isSavePath reports whether u is exactly /save. Any query string, even an
// empty "?", makes it an unknown endpoint.
func isSavePath(u *url.URL) bool {
	return u.Path == "/save" && u.RawQuery == "" && !u.ForceQuery
}

// writeJSON writes v as a 200 JSON response with an exact Content-Length.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	out, err := json.Marshal(v)
	if err != nil {
		internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	w.Write(out) //nolint:errcheck
}

// writeFault writes msg as a bare 400 body. A nil Content-Type entry stops
// net/http from sniffing one.
func writeFault(w http.ResponseWriter, msg string) {
	w.Header()["Content-Type"] = nil
	w.WriteHeader(http.StatusBadRequest)
	w.Write([]byte(msg)) //nolint:errcheck
}

// internalError logs err and writes a generic 500.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", RequestID(r.Context()),
		"err", err,
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
