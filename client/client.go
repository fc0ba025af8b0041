// Package client is a thin HTTP client for the nbdag backend API.
package client

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/notebook-systems/nbdag/nbgraph"
)

// Client calls a remote nbdag backend.  It satisfies nbgraph.Runner and
// nbgraph.CellRunner, so a session can run cells on a remote server the
// same way it runs them on the embedded interpreter.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{},
	}
}

type cellsPayload struct {
	Cells []string `json:"cells"`
}

// RunGraph submits a dependency subgraph to /api/run_graph.
func (c *Client) RunGraph(ctx context.Context, req nbgraph.RunRequest) (nbgraph.RunResult, error) {
	var res nbgraph.RunResult
	err := c.postJSON(ctx, "/api/run_graph", req, &res)
	return res, err
}

// RunCells submits cell sources for sequential execution to /api/run.
func (c *Client) RunCells(ctx context.Context, cells []string) (nbgraph.CellRunResult, error) {
	var res nbgraph.CellRunResult
	err := c.postJSON(ctx, "/api/run", cellsPayload{Cells: cells}, &res)
	return res, err
}

// GraphFromCells asks the server to analyze cell sources into a
// dependency graph via /api/graph.
func (c *Client) GraphFromCells(ctx context.Context, cells []string) (nbgraph.Graph, error) {
	var g nbgraph.Graph
	err := c.postJSON(ctx, "/api/graph", cellsPayload{Cells: cells}, &g)
	return g, err
}

// UploadResult is the /api/upload response: the archived filename plus
// the dependency graph parsed out of the document.
type UploadResult struct {
	Filename string        `json:"filename"`
	Graph    nbgraph.Graph `json:"graph"`
}

// Upload posts a notebook document to /api/upload as a multipart form.
func (c *Client) Upload(ctx context.Context, filename string, doc []byte) (UploadResult, error) {
	var res UploadResult

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("nb", filename)
	if err == nil {
		_, err = part.Write(doc)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return res, errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/upload", &body)
	if err != nil {
		return res, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	err = c.do(req, &res)
	return res, err
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WithStack(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if out == nil {
		return nil
	}
	return errors.WithStack(json.Unmarshal(body, out))
}
