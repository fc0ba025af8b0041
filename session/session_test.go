package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notebook-systems/nbdag/nbgraph"
	"github.com/notebook-systems/nbdag/session"
)

// captureRunner records every run request and returns a canned result.
type captureRunner struct {
	mu     sync.Mutex
	reqs   []nbgraph.RunRequest
	result nbgraph.RunResult
}

func (r *captureRunner) RunGraph(ctx context.Context, req nbgraph.RunRequest) (nbgraph.RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return r.result, nil
}

func (r *captureRunner) last(t *testing.T) nbgraph.RunRequest {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.reqs)
	return r.reqs[len(r.reqs)-1]
}

// stallRunner blocks inside RunGraph until released or canceled.
type stallRunner struct {
	started chan struct{}
	release chan struct{}
}

func (r *stallRunner) RunGraph(ctx context.Context, req nbgraph.RunRequest) (nbgraph.RunResult, error) {
	r.started <- struct{}{}
	select {
	case <-r.release:
		return nbgraph.RunResult{OK: true}, nil
	case <-ctx.Done():
		return nbgraph.RunResult{}, ctx.Err()
	}
}

func chainSession(runner nbgraph.Runner) *session.Session {
	sess := session.New(runner)
	sess.AddNode() // cell-1
	sess.AddNode() // cell-2
	sess.AddNode() // cell-3
	sess.Connect("cell-1", "cell-2")
	sess.Connect("cell-2", "cell-3")
	return sess
}

func TestSessionEditing(t *testing.T) {
	sess := session.New(nil)

	id1 := sess.AddNode()
	id2 := sess.AddNode()
	assert.Equal(t, "cell-1", id1)
	assert.Equal(t, "cell-2", id2)
	assert.Len(t, sess.Plan().Nodes, 2)

	require.NoError(t, sess.SetCode("cell-1", "x = 1"))
	node, ok := nbgraph.GetNode(sess.Graph(), "cell-1")
	require.True(t, ok)
	assert.Equal(t, "x = 1", node.Code)

	sess.Connect("cell-1", "cell-2")
	assert.True(t, nbgraph.HasEdge(sess.Graph(), "cell-1", "cell-2"))
	assert.Len(t, sess.Plan().Edges, 1)

	sess.Disconnect("cell-1", "cell-2")
	assert.Empty(t, sess.Plan().Edges)
}

func TestSessionSelection(t *testing.T) {
	sess := session.New(nil)
	sess.AddNode()
	sess.AddNode()

	t.Run("clicks move the selection", func(t *testing.T) {
		sess.ClickNode("cell-1")
		assert.Equal(t, "cell-1", sess.Selected())
		sess.ClickNode("cell-2")
		assert.Equal(t, "cell-2", sess.Selected())
	})

	t.Run("unknown ids are ignored", func(t *testing.T) {
		sess.ClickNode("cell-9")
		assert.Equal(t, "cell-2", sess.Selected())
	})

	t.Run("removing the selected cell clears the selection", func(t *testing.T) {
		require.NoError(t, sess.RemoveNode(""))
		assert.Empty(t, sess.Selected())
		_, ok := nbgraph.GetNode(sess.Graph(), "cell-2")
		assert.False(t, ok)
	})

	t.Run("removal with no selection is a precondition error", func(t *testing.T) {
		assert.ErrorIs(t, sess.RemoveNode(""), nbgraph.ErrNoSelection)
	})
}

func TestSessionConnectFlow(t *testing.T) {
	t.Run("two clicks insert an edge", func(t *testing.T) {
		sess := session.New(nil)
		sess.AddNode()
		sess.AddNode()

		assert.Equal(t, session.Idle, sess.State())
		sess.StartConnect(session.ModeAdd)
		assert.Equal(t, session.AwaitingFirst, sess.State())

		sess.ClickNode("cell-1")
		assert.Equal(t, session.AwaitingSecond, sess.State())

		sess.ClickNode("cell-2")
		assert.Equal(t, session.Idle, sess.State())
		assert.True(t, nbgraph.HasEdge(sess.Graph(), "cell-1", "cell-2"))
	})

	t.Run("two clicks remove an edge", func(t *testing.T) {
		sess := session.New(nil)
		sess.AddNode()
		sess.AddNode()
		sess.Connect("cell-1", "cell-2")

		sess.StartConnect(session.ModeRemove)
		sess.ClickNode("cell-1")
		sess.ClickNode("cell-2")
		assert.Equal(t, session.Idle, sess.State())
		assert.False(t, nbgraph.HasEdge(sess.Graph(), "cell-1", "cell-2"))
	})

	t.Run("removing the first pick rewinds to the first click", func(t *testing.T) {
		sess := session.New(nil)
		sess.AddNode()
		sess.AddNode()

		sess.StartConnect(session.ModeAdd)
		sess.ClickNode("cell-1")
		require.NoError(t, sess.RemoveNode("cell-1"))
		assert.Equal(t, session.AwaitingFirst, sess.State())
	})

	t.Run("replacing the graph drops the flow", func(t *testing.T) {
		sess := session.New(nil)
		sess.AddNode()
		sess.StartConnect(session.ModeAdd)
		sess.ClickNode("cell-1")

		sess.SetGraph(nbgraph.Graph{})
		assert.Equal(t, session.Idle, sess.State())
		assert.Empty(t, sess.Selected())
	})
}

func TestSessionRunShaping(t *testing.T) {
	runner := &captureRunner{result: nbgraph.RunResult{OK: true}}
	sess := chainSession(runner)
	sess.AddNode() // cell-4, isolated
	ctx := context.Background()

	t.Run("run node sends the ancestor closure", func(t *testing.T) {
		_, err := sess.RunNode(ctx, "cell-3")
		require.NoError(t, err)

		req := runner.last(t)
		ids := make([]string, len(req.Nodes))
		for i, n := range req.Nodes {
			ids[i] = n.ID
		}
		assert.Equal(t, []string{"cell-1", "cell-2", "cell-3"}, ids)
		assert.Len(t, req.Edges, 2)
	})

	t.Run("run selected requires a selection", func(t *testing.T) {
		_, err := sess.RunSelected(ctx)
		assert.ErrorIs(t, err, nbgraph.ErrNoSelection)

		sess.ClickNode("cell-2")
		_, err = sess.RunSelected(ctx)
		require.NoError(t, err)

		req := runner.last(t)
		ids := make([]string, len(req.Nodes))
		for i, n := range req.Nodes {
			ids[i] = n.ID
		}
		assert.Equal(t, []string{"cell-1", "cell-2"}, ids)
	})

	t.Run("run all sends everything in order", func(t *testing.T) {
		_, err := sess.RunAll(ctx)
		require.NoError(t, err)

		req := runner.last(t)
		require.Len(t, req.Nodes, 4)
		assert.Equal(t, "cell-4", req.Nodes[3].ID)
	})

	t.Run("unknown cell is reported", func(t *testing.T) {
		_, err := sess.RunNode(ctx, "cell-9")
		assert.ErrorIs(t, err, nbgraph.ErrNodeNotFound)
	})

	t.Run("no runner configured", func(t *testing.T) {
		bare := chainSession(nil)
		_, err := bare.RunAll(ctx)
		assert.Error(t, err)
	})
}

func TestSessionRunSupersede(t *testing.T) {
	runner := &stallRunner{
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	sess := chainSession(runner)

	first := make(chan error, 1)
	go func() {
		_, err := sess.RunAll(context.Background())
		first <- err
	}()
	<-runner.started

	second := make(chan error, 1)
	go func() {
		_, err := sess.RunAll(context.Background())
		second <- err
	}()
	<-runner.started
	close(runner.release)

	assert.ErrorIs(t, <-first, context.Canceled)
	assert.NoError(t, <-second)
}

func TestSessionApply(t *testing.T) {
	runner := &captureRunner{result: nbgraph.RunResult{OK: true}}
	sess := session.New(runner)
	ctx := context.Background()

	apply := func(t *testing.T, line string) (*nbgraph.RunResult, error) {
		t.Helper()
		cmd, err := session.ParseCommand(line)
		require.NoError(t, err)
		return sess.Apply(ctx, cmd)
	}

	res, err := apply(t, "add")
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = apply(t, "add")
	require.NoError(t, err)
	_, err = apply(t, `code cell-1 "x = 1"`)
	require.NoError(t, err)
	_, err = apply(t, `code cell-2 "print(x)"`)
	require.NoError(t, err)

	_, err = apply(t, "connect cell-1 cell-2")
	require.NoError(t, err)
	assert.True(t, nbgraph.HasEdge(sess.Graph(), "cell-1", "cell-2"))

	res, err = apply(t, "run all")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.OK)

	_, err = apply(t, "remove")
	assert.ErrorIs(t, err, nbgraph.ErrNoSelection)

	_, err = apply(t, "remove cell-2")
	require.NoError(t, err)
	assert.Len(t, sess.Graph().Nodes, 1)

	_, err = apply(t, "disconnect cell-1 cell-2")
	require.NoError(t, err)
}
