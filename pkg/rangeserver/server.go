// Package rangeserver is the example HTTP/WebSocket server: a
// range-request handler mapping Range: bytes=s-e onto File.Stream, plus
// a WebSocket feed of the façade's parse lifecycle events. It keeps the
// shape of a small config-plus-client-registry server (a config, a
// client registry, SetupRoutes) with no auth, no provider pools, no
// external manifest.
package rangeserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"rarstream/pkg/archive"
	"rarstream/pkg/config"
	"rarstream/pkg/rlog"
)

// Server exposes one already-constructed archive.Package over HTTP
// range requests and a WebSocket event/log feed.
type Server struct {
	cfg *config.Config
	pkg *archive.Package

	clientsMu sync.Mutex
	clients   map[*Client]bool
}

// NewServer builds a Server around pkg. Parse is not called here --
// the caller decides when parsing happens (e.g. lazily, on first
// request) by calling s.Parse.
func NewServer(cfg *config.Config, pkg *archive.Package) *Server {
	return &Server{cfg: cfg, pkg: pkg, clients: make(map[*Client]bool)}
}

// SetupRoutes registers this server's handlers on mux: one method
// owning all route registration.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /files", s.handleListFiles)
	mux.HandleFunc("GET /files/{name}", s.handleFileRange)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// Parse runs archive.Package.Parse, broadcasting each lifecycle event
// to connected WebSocket clients as it happens.
func (s *Server) Parse(ctx context.Context, opts archive.ParseOptions) ([]*archive.File, error) {
	return s.pkg.Parse(ctx, opts, archive.Callbacks{
		ParsingStart: func() {
			rlog.Info("parsing started")
			s.broadcast(WSMessage{Type: "parsing-start"})
		},
		FileParsed: func(f *archive.File) {
			rlog.Debug("file parsed", "name", f.Name(), "length", f.Length(), "complete", f.Complete())
			payload, _ := json.Marshal(fileInfo{
				Name:     f.Name(),
				Length:   f.Length(),
				Complete: f.Complete(),
				Method:   f.Method(),
				Warnings: f.Warnings(),
			})
			s.broadcast(WSMessage{Type: "file-parsed", Payload: payload})
		},
		ParsingComplete: func(files []*archive.File) {
			rlog.Info("parsing complete", "files", len(files))
			payload, _ := json.Marshal(toFileInfos(files))
			s.broadcast(WSMessage{Type: "parsing-complete", Payload: payload})
		},
	})
}

type fileInfo struct {
	Name     string   `json:"name"`
	Length   int64    `json:"length"`
	Complete bool     `json:"complete"`
	Method   byte     `json:"method"`
	Warnings []string `json:"warnings,omitempty"`
}

func toFileInfos(files []*archive.File) []fileInfo {
	out := make([]fileInfo, len(files))
	for i, f := range files {
		out[i] = fileInfo{
			Name:     f.Name(),
			Length:   f.Length(),
			Complete: f.Complete(),
			Method:   f.Method(),
			Warnings: f.Warnings(),
		}
	}
	return out
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.Parse(r.Context(), archive.ParseOptions{MaxFiles: s.cfg.MaxInnerFiles})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toFileInfos(files))
}

func (s *Server) findFile(ctx context.Context, name string) (*archive.File, error) {
	files, err := s.Parse(ctx, archive.ParseOptions{MaxFiles: s.cfg.MaxInnerFiles})
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.Name() == name {
			return f, nil
		}
	}
	return nil, nil
}
