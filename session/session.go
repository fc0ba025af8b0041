// Package session is the single-owner controller for one editing session:
// it holds the authoritative graph snapshot, the selection and two-click
// connect state, and the derived drawing plan, which is recomputed
// wholesale after every mutation.
package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/plan-systems/klog"

	"github.com/notebook-systems/nbdag/layout"
	"github.com/notebook-systems/nbdag/nbgraph"
)

// ConnectMode says what a two-click endpoint pick will do.
type ConnectMode int

const (
	ModeNone ConnectMode = iota
	ModeAdd
	ModeRemove
)

// State is where the two-click connect flow currently stands.
type State int

const (
	Idle State = iota
	AwaitingFirst
	AwaitingSecond
)

// Session methods are synchronous and unlocked: one owner drives them, and
// each mutation runs to completion before the next event.  Runs are the
// exception; issuing one grabs runMu and cancels whatever run is still in
// flight, so a stale run can never outlive the request that replaced it.
type Session struct {
	graph    nbgraph.Graph
	plan     layout.DrawingPlan
	selected string

	mode      ConnectMode
	firstPick string

	runner nbgraph.Runner

	runMu     sync.Mutex
	runGen    int
	cancelRun context.CancelFunc
}

func New(runner nbgraph.Runner) *Session {
	sess := &Session{
		graph: nbgraph.Graph{
			Nodes: []nbgraph.Node{},
			Edges: []nbgraph.Edge{},
		},
		runner: runner,
	}
	sess.replan()
	return sess
}

// Graph returns the current graph snapshot.  Treat it as read-only; every
// mutation goes through a session method and replaces the snapshot.
func (sess *Session) Graph() nbgraph.Graph {
	return sess.graph
}

// Plan returns the drawing plan derived from the current graph.
func (sess *Session) Plan() layout.DrawingPlan {
	return sess.plan
}

// Selected returns the selected cell id, or "" when nothing is selected.
func (sess *Session) Selected() string {
	return sess.selected
}

// State reports the connect flow position.
func (sess *Session) State() State {
	switch {
	case sess.mode == ModeNone:
		return Idle
	case sess.firstPick == "":
		return AwaitingFirst
	default:
		return AwaitingSecond
	}
}

// SetGraph replaces the whole graph, e.g. after an upload.  Selection and
// any half-finished connect flow refer to the old graph and are dropped.
func (sess *Session) SetGraph(g nbgraph.Graph) {
	sess.graph = g
	sess.selected = ""
	sess.mode = ModeNone
	sess.firstPick = ""
	sess.replan()
}

// AddNode appends a fresh cell and returns its id.
func (sess *Session) AddNode() string {
	g, id := nbgraph.AddNode(sess.graph)
	sess.graph = g
	sess.replan()
	return id
}

// RemoveNode removes the named cell, or the selected one when id is empty.
// A selection or pending endpoint pick naming the removed cell is cleared.
func (sess *Session) RemoveNode(id string) error {
	if id == "" {
		id = sess.selected
	}
	if id == "" {
		return nbgraph.ErrNoSelection
	}

	g, err := nbgraph.RemoveNode(sess.graph, id)
	if err != nil {
		return err
	}
	sess.graph = g
	if sess.selected == id {
		sess.selected = ""
	}
	if sess.firstPick == id {
		sess.firstPick = ""
	}
	sess.replan()
	return nil
}

// Connect inserts the edge (src, dst); duplicates, self-loops, and unknown
// endpoints are silent no-ops.
func (sess *Session) Connect(src, dst string) {
	sess.graph = nbgraph.Connect(sess.graph, src, dst)
	sess.replan()
}

// Disconnect removes the edge (src, dst) if present.
func (sess *Session) Disconnect(src, dst string) {
	sess.graph = nbgraph.Disconnect(sess.graph, src, dst)
	sess.replan()
}

// SetCode replaces one cell's source text.
func (sess *Session) SetCode(id, code string) error {
	g, err := nbgraph.SetCode(sess.graph, id, code)
	if err != nil {
		return err
	}
	sess.graph = g
	sess.replan()
	return nil
}

// StartConnect arms the two-click flow: the next two node clicks become the
// endpoints of an edge insert (ModeAdd) or removal (ModeRemove).
func (sess *Session) StartConnect(mode ConnectMode) {
	sess.mode = mode
	sess.firstPick = ""
}

// ClickNode feeds one node click through the session.  Outside a connect
// flow a click moves the selection.  Inside one, the first click picks the
// source and the second completes the edge action and disarms the flow.
// Clicks on unknown ids are ignored.
func (sess *Session) ClickNode(id string) {
	if _, ok := nbgraph.GetNode(sess.graph, id); !ok {
		return
	}

	switch {
	case sess.mode == ModeNone:
		sess.selected = id
	case sess.firstPick == "":
		sess.firstPick = id
	default:
		if sess.mode == ModeAdd {
			sess.graph = nbgraph.Connect(sess.graph, sess.firstPick, id)
		} else {
			sess.graph = nbgraph.Disconnect(sess.graph, sess.firstPick, id)
		}
		sess.mode = ModeNone
		sess.firstPick = ""
		sess.replan()
	}
}

// RunSelected runs the selected cell and everything it depends on.
func (sess *Session) RunSelected(ctx context.Context) (nbgraph.RunResult, error) {
	if sess.selected == "" {
		return nbgraph.RunResult{}, nbgraph.ErrNoSelection
	}
	return sess.RunNode(ctx, sess.selected)
}

// RunNode runs one cell plus its ancestor closure.
func (sess *Session) RunNode(ctx context.Context, id string) (nbgraph.RunResult, error) {
	if _, ok := nbgraph.GetNode(sess.graph, id); !ok {
		return nbgraph.RunResult{}, errors.Wrap(nbgraph.ErrNodeNotFound, id)
	}

	ids := nbgraph.Ancestors(sess.graph, id)
	ids.Add(id)
	sub := nbgraph.Project(sess.graph, ids)
	return sess.runPayload(ctx, nbgraph.NewRunRequest(sub))
}

// RunAll runs every cell in order-key order.
func (sess *Session) RunAll(ctx context.Context) (nbgraph.RunResult, error) {
	return sess.runPayload(ctx, nbgraph.NewRunRequest(nbgraph.FullProjection(sess.graph)))
}

// runPayload issues one run, canceling whatever run was still in flight.
// A run that is itself superseded before returning reports the runner's
// error (typically context.Canceled) for the caller to discard.
func (sess *Session) runPayload(ctx context.Context, req nbgraph.RunRequest) (nbgraph.RunResult, error) {
	if sess.runner == nil {
		return nbgraph.RunResult{}, errors.New("session has no runner")
	}

	sess.runMu.Lock()
	if sess.cancelRun != nil {
		klog.Infof("superseding in-flight run")
		sess.cancelRun()
	}
	runCtx, cancel := context.WithCancel(ctx)
	sess.cancelRun = cancel
	sess.runGen++
	gen := sess.runGen
	sess.runMu.Unlock()

	result, err := sess.runner.RunGraph(runCtx, req)

	sess.runMu.Lock()
	if sess.runGen == gen {
		sess.cancelRun = nil
	}
	sess.runMu.Unlock()
	cancel()

	return result, err
}

// Apply executes one parsed command.  Run commands return the run result;
// edit commands return (nil, nil) on success.
func (sess *Session) Apply(ctx context.Context, cmd *Command) (*nbgraph.RunResult, error) {
	switch {
	case cmd.Add:
		sess.AddNode()
		return nil, nil

	case cmd.Remove:
		return nil, sess.RemoveNode(cmd.RemoveID)

	case cmd.Connect != nil:
		sess.Connect(cmd.Connect.Source, cmd.Connect.Target)
		return nil, nil

	case cmd.Disconnect != nil:
		sess.Disconnect(cmd.Disconnect.Source, cmd.Disconnect.Target)
		return nil, nil

	case cmd.Code != nil:
		return nil, sess.SetCode(cmd.Code.ID, cmd.Code.Code)

	case cmd.Run:
		var (
			result nbgraph.RunResult
			err    error
		)
		switch {
		case cmd.RunAll:
			result, err = sess.RunAll(ctx)
		case cmd.RunID != "":
			result, err = sess.RunNode(ctx, cmd.RunID)
		default:
			result, err = sess.RunSelected(ctx)
		}
		if err != nil {
			return nil, err
		}
		return &result, nil
	}

	return nil, errors.New("empty command")
}

func (sess *Session) replan() {
	sess.plan = layout.Plan(sess.graph)
}
