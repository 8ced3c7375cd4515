// Package server exposes an engine over HTTP. Verbs map onto engine
// operations: GET reads a snapshot, PUT replaces, PATCH merges, POST pushes
// a new ordered child and DELETE detaches.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"treesync/common"
	"treesync/engine"
	"treesync/query"
	"treesync/tree"
)

// Server maps REST requests onto a synchronization engine.
type Server struct {
	engine *engine.Engine
	logger *zap.Logger
	router *mux.Router
}

// NewServer creates a new server for the given engine.
func NewServer(eng *engine.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		engine: eng,
		logger: logger,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	data := s.router.PathPrefix("/data").Subrouter()
	data.PathPrefix("/").HandlerFunc(s.handleData)
	data.HandleFunc("", s.handleData)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"ready":  s.engine.Ready(),
	})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	path := tree.FromString(r.URL.Path[len("/data"):])

	switch r.Method {
	case http.MethodGet:
		s.handleGet(w, r, path)
	case http.MethodPut:
		s.handlePut(w, r, path)
	case http.MethodPatch:
		s.handlePatch(w, r, path)
	case http.MethodPost:
		s.handlePost(w, r, path)
	case http.MethodDelete:
		s.handleDelete(w, r, path)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGet reads a snapshot. The orderBy=priority and limitToLast query
// parameters request an ordered view; any other filter fails loudly with
// 400 rather than returning unfiltered results.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, path tree.Path) {
	snap := s.engine.SnapshotFor(path)

	params := r.URL.Query()
	if params.Get("orderBy") == "" && params.Get("limitToLast") == "" {
		if !snap.Exists() {
			s.writeJSON(w, http.StatusOK, nil)
			return
		}
		s.writeJSON(w, http.StatusOK, snap.Export())
		return
	}

	if orderBy := params.Get("orderBy"); orderBy != "" && orderBy != "priority" {
		s.writeError(w, http.StatusBadRequest, common.ErrUnsupportedQuery{Filter: "orderBy=" + orderBy})
		return
	}

	q := query.New(snap).OrderByPriority()
	if raw := params.Get("limitToLast"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, common.ErrUnsupportedQuery{Filter: "limitToLast=" + raw})
			return
		}
		q = q.LimitToLast(n)
	}

	children, err := q.Run()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	// Ordered views are returned as a key/value pair list so the order
	// survives JSON object key randomization.
	result := make([]map[string]interface{}, 0, len(children))
	for _, child := range children {
		result = append(result, map[string]interface{}{
			"key":   child.Key,
			"value": child.Snapshot.Export(),
		})
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request, path tree.Path) {
	node, ok := s.readPayload(w, r)
	if !ok {
		return
	}

	var applyErr error
	s.engine.Set(path, exportOrNil(node), func(err error) { applyErr = err })
	s.finish(w, applyErr, map[string]interface{}{"path": path.String()})
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request, path tree.Path) {
	node, ok := s.readPayload(w, r)
	if !ok {
		return
	}

	var applyErr error
	s.engine.Update(path, exportOrNil(node), func(err error) { applyErr = err })
	s.finish(w, applyErr, map[string]interface{}{"path": path.String()})
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request, path tree.Path) {
	node, ok := s.readPayload(w, r)
	if !ok {
		return
	}

	var applyErr error
	key := s.engine.Push(path, exportOrNil(node), func(err error) { applyErr = err })
	s.finish(w, applyErr, map[string]interface{}{"name": key})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, path tree.Path) {
	var applyErr error
	s.engine.Delete(path, func(err error) { applyErr = err })
	s.finish(w, applyErr, map[string]interface{}{"path": path.String()})
}

// readPayload parses the request body as a raw payload. Malformed payloads
// yield a 400 without touching engine state.
func (s *Server) readPayload(w http.ResponseWriter, r *http.Request) (tree.Node, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return nil, false
	}

	node, err := tree.ParseRaw(string(body))
	if err != nil {
		s.logger.Warn("malformed payload",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		s.writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return node, true
}

func (s *Server) finish(w http.ResponseWriter, applyErr error, body map[string]interface{}) {
	if applyErr != nil {
		s.writeError(w, http.StatusInternalServerError, applyErr)
		return
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]interface{}{"error": err.Error()})
}

// exportOrNil turns a parsed payload node back into the plain value the
// engine API accepts, keeping nil as the delete marker.
func exportOrNil(node tree.Node) interface{} {
	if node == nil {
		return nil
	}
	return tree.Export(node)
}
