package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/gmllt/listboard/internal/board"
	"github.com/gmllt/listboard/internal/export"
	"github.com/gmllt/listboard/internal/session"
)

const maxBodyBytes = 1 << 20

type server struct {
	cfg      *Config
	sessions *session.Store
	// sink is nil when exports are not archived.
	sink export.Sink
}

func newRouter(s *server) *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions/{sid}", s.handleDeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{sid}/board", s.handleGetBoard).Methods("GET")
	api.HandleFunc("/sessions/{sid}/actions", s.handleAction).Methods("POST")
	api.HandleFunc("/sessions/{sid}/drag", s.handleDrag).Methods("POST")
	api.HandleFunc("/sessions/{sid}/prompts", s.handleRequestInput).Methods("POST")
	api.HandleFunc("/sessions/{sid}/prompts/{token}", s.handleResolveInput).Methods("POST")
	api.HandleFunc("/sessions/{sid}/lists/{lid}/export", s.handleExport).Methods("GET")
	api.HandleFunc("/sessions/{sid}/ws", s.handleWS).Methods("GET")

	r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.cfg.StaticDir)))
	return r
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[%s] %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrUnknownPrompt):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrBadPromptKind), errors.Is(err, board.ErrUnknownAction):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Printf("Error: %v", err)
	}
	http.Error(w, err.Error(), status)
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

type sessionResponse struct {
	ID    string       `json:"id"`
	Board *board.Board `json:"board"`
}

func (s *server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, b := s.sessions.Create()
	log.Printf("Session created: %s", id)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id, Board: b})
}

func (s *server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sid"]
	if err := s.sessions.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	log.Printf("Session deleted: %s", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	b, err := s.sessions.Board(mux.Vars(r)["sid"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *server) handleAction(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	a, err := board.DecodeAction(data)
	if err != nil {
		log.Printf("Error decoding action: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.apply(w, mux.Vars(r)["sid"], a)
}

// handleDrag takes the drop result of a drag gesture as is.
func (s *server) handleDrag(w http.ResponseWriter, r *http.Request) {
	var a board.Reorder
	if err := decodeBody(r, &a); err != nil {
		log.Printf("Error decoding drag result: %v", err)
		http.Error(w, "invalid drag result", http.StatusBadRequest)
		return
	}
	s.apply(w, mux.Vars(r)["sid"], a)
}

func (s *server) apply(w http.ResponseWriter, sid string, a board.Action) {
	b, err := s.sessions.Apply(sid, a)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("Applied %s to session %s", board.TypeOf(a), sid)
	writeJSON(w, http.StatusOK, b)
}

type promptRequest struct {
	Kind   session.Kind `json:"kind"`
	ListID string       `json:"list_id"`
}

func (s *server) handleRequestInput(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid prompt request", http.StatusBadRequest)
		return
	}
	p, err := s.sessions.RequestInput(mux.Vars(r)["sid"], req.Kind, req.ListID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *server) handleResolveInput(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var resp session.Response
	if err := decodeBody(r, &resp); err != nil {
		http.Error(w, "invalid prompt response", http.StatusBadRequest)
		return
	}
	b, err := s.sessions.ResolveInput(vars["sid"], vars["token"], resp)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	b, err := s.sessions.Board(vars["sid"])
	if err != nil {
		writeError(w, err)
		return
	}
	l := b.List(vars["lid"])
	if l == nil {
		http.Error(w, "list not found", http.StatusNotFound)
		return
	}
	data, err := export.Bytes(s.cfg.Export.Sheet, l.Cards)
	if err != nil {
		writeError(w, err)
		return
	}
	name := export.FileName(s.cfg.Export.Filename, l)
	if s.sink != nil {
		if err := s.sink.Put(r.Context(), name, data); err != nil {
			log.Printf("Error archiving export %s: %v", name, err)
		}
	}
	log.Printf("Exported list %s: %d cards", l.ID, len(l.Cards))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
