package main

import (
	"fmt"
	"net/http"
)

// runTrigger starts a background run unless one is already in flight.
type runTrigger interface {
	Trigger() bool
}

type Server struct {
	runs runTrigger
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.ProcessDealsHandler)
	mux.HandleFunc("/process-deals", s.ProcessDealsHandler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	})
	return mux
}

// ProcessDealsHandler starts a run asynchronously so the response is not
// held for the catalog fetches and publishing.
func (s *Server) ProcessDealsHandler(w http.ResponseWriter, r *http.Request) {
	if !s.runs.Trigger() {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintln(w, "Deal processing already in progress.")
		return
	}
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintln(w, "Deal processing started.")
}
