package client_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notebook-systems/nbdag/client"
	"github.com/notebook-systems/nbdag/nbgraph"
)

func TestClientRunGraph(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/run_graph", r.URL.Path)

		var req nbgraph.RunRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Nodes, 2)
		assert.Len(t, req.Edges, 1)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(nbgraph.RunResult{
			OK:   true,
			Logs: []nbgraph.RunLog{{Node: "cell-1", Component: "cell-1", Stdout: "hi\n"}},
		})
	}))
	defer ts.Close()

	c := client.New(ts.URL + "/")
	res, err := c.RunGraph(context.Background(), nbgraph.RunRequest{
		Nodes: []nbgraph.RunNode{{ID: "cell-1", Code: "x = 1"}, {ID: "cell-2", Code: "print(x)"}},
		Edges: []nbgraph.RunEdge{{Source: "cell-1", Target: "cell-2"}},
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	require.Len(t, res.Logs, 1)
	assert.Equal(t, "hi\n", res.Logs[0].Stdout)
}

func TestClientGraphFromCells(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/graph", r.URL.Path)

		var req struct {
			Cells []string `json:"cells"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"x = 1", "print(x)"}, req.Cells)

		json.NewEncoder(w).Encode(nbgraph.Graph{
			Nodes: []nbgraph.Node{{ID: "cell-1", Label: "Cell 1", Code: "x = 1"}},
			Edges: []nbgraph.Edge{},
		})
	}))
	defer ts.Close()

	g, err := client.New(ts.URL).GraphFromCells(context.Background(), []string{"x = 1", "print(x)"})
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, "cell-1", g.Nodes[0].ID)
}

func TestClientUpload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload", r.URL.Path)

		file, header, err := r.FormFile("nb")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "demo.ipynb", header.Filename)
		doc, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"cells": []}`), doc)

		json.NewEncoder(w).Encode(client.UploadResult{
			Filename: header.Filename,
			Graph:    nbgraph.Graph{Nodes: []nbgraph.Node{}, Edges: []nbgraph.Edge{}},
		})
	}))
	defer ts.Close()

	res, err := client.New(ts.URL).Upload(context.Background(), "demo.ipynb", []byte(`{"cells": []}`))
	require.NoError(t, err)
	assert.Equal(t, "demo.ipynb", res.Filename)
	assert.NotNil(t, res.Graph.Nodes)
}

func TestClientErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "dependency cycle detected"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	_, err := client.New(ts.URL).RunGraph(context.Background(), nbgraph.RunRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "dependency cycle detected")
}
