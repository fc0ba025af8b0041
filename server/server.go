// Package server mounts the backend HTTP API: graph analysis, notebook
// upload, graph and sequential execution, catalog browsing, and static
// frontend serving.
package server

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"

	"github.com/notebook-systems/nbdag/nbgraph"
	"github.com/notebook-systems/nbdag/notebook"
	"github.com/notebook-systems/nbdag/pycell"
)

// Opts configures a Server.  Nil collaborators disable their endpoints
// rather than failing at startup.
type Opts struct {
	Runner     nbgraph.Runner     // executes /api/run_graph payloads
	CellRunner nbgraph.CellRunner // executes legacy /api/run payloads
	Catalog    nbgraph.Catalog    // archives uploads; nil disables archiving
	StaticDir  string             // frontend files; empty disables
}

// Server is the backend http.Handler.
type Server struct {
	opts Opts
	mux  *http.ServeMux
}

func New(opts Opts) *Server {
	srv := &Server{
		opts: opts,
		mux:  http.NewServeMux(),
	}

	srv.mux.HandleFunc("/api/graph", srv.handleGraph)
	srv.mux.HandleFunc("/api/upload", srv.handleUpload)
	srv.mux.HandleFunc("/api/run_graph", srv.handleRunGraph)
	srv.mux.HandleFunc("/api/run", srv.handleRun)
	srv.mux.HandleFunc("/api/notebooks", srv.handleNotebooks)
	srv.mux.HandleFunc("/api/notebooks/", srv.handleNotebookGraph)
	srv.mux.HandleFunc("/", srv.handleIndex)
	if opts.StaticDir != "" {
		srv.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}
	return srv
}

func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	srv.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		klog.Errorf("encoding response: %v", err)
	}
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type cellsPayload struct {
	Cells []string `json:"cells"`
}

func (srv *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	var payload cellsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, pycell.BuildGraph(payload.Cells))
}

type uploadReply struct {
	Filename string        `json:"filename"`
	Graph    nbgraph.Graph `json:"graph"`
}

func (srv *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile("nb")
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "missing notebook file: "+err.Error())
		return
	}
	defer file.Close()

	if !strings.HasSuffix(header.Filename, ".ipynb") {
		errorJSON(w, http.StatusBadRequest, "Please upload a .ipynb file")
		return
	}

	doc, err := io.ReadAll(file)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}

	cells, err := notebook.Cells(doc)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	// Uploads that parsed are archived; a full catalog or read-only db
	// should not fail the request.
	if srv.opts.Catalog != nil && !srv.opts.Catalog.IsReadOnly() {
		if _, err := srv.opts.Catalog.Put(header.Filename, doc); err != nil {
			klog.Warningf("archiving %q: %v", header.Filename, err)
		}
	}

	writeJSON(w, http.StatusOK, uploadReply{
		Filename: header.Filename,
		Graph:    pycell.BuildGraph(cells),
	})
}

func (srv *Server) handleRunGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if srv.opts.Runner == nil {
		errorJSON(w, http.StatusServiceUnavailable, "no executor configured")
		return
	}
	defer r.Body.Close()

	var req nbgraph.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := srv.opts.Runner.RunGraph(r.Context(), req)
	if err != nil {
		// A failed cell is an ok:false result, not an error; errors here
		// mean the payload never ran at all.
		if errors.Cause(err) == nbgraph.ErrCycle {
			errorJSON(w, http.StatusBadRequest, err.Error())
			return
		}
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (srv *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if srv.opts.CellRunner == nil {
		errorJSON(w, http.StatusServiceUnavailable, "no executor configured")
		return
	}
	defer r.Body.Close()

	var payload cellsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := srv.opts.CellRunner.RunCells(r.Context(), payload.Cells)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (srv *Server) handleNotebooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if srv.opts.Catalog == nil {
		errorJSON(w, http.StatusServiceUnavailable, "no catalog configured")
		return
	}

	entries, err := srv.opts.Catalog.List()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleNotebookGraph re-derives a dependency graph from an archived
// upload: GET /api/notebooks/{name}/graph
func (srv *Server) handleNotebookGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if srv.opts.Catalog == nil {
		errorJSON(w, http.StatusServiceUnavailable, "no catalog configured")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/notebooks/")
	name, ok := strings.CutSuffix(rest, "/graph")
	if !ok || name == "" {
		http.NotFound(w, r)
		return
	}

	doc, err := srv.opts.Catalog.Get(name)
	if err != nil {
		if errors.Cause(err) == nbgraph.ErrNotebookNotFound {
			errorJSON(w, http.StatusNotFound, err.Error())
			return
		}
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}

	cells, err := notebook.Cells(doc)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pycell.BuildGraph(cells))
}

func (srv *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || srv.opts.StaticDir == "" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(srv.opts.StaticDir, "index.html"))
}
