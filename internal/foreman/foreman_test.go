package foreman

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/core/eventbus"
	"github.com/colonyops/foreman/internal/core/eventbus/testbus"
	"github.com/colonyops/foreman/internal/core/hosting"
	"github.com/colonyops/foreman/internal/core/lane"
	"github.com/colonyops/foreman/internal/core/role"
	"github.com/colonyops/foreman/internal/data/db"
	"github.com/colonyops/foreman/internal/data/stores"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// mergeCall records one Merge invocation against the fake host.
type mergeCall struct {
	Source string
	Target string
	Opts   hosting.MergeOptions
}

type scriptedMerge struct {
	result hosting.MergeResult
	err    error
}

// fakeHost implements hosting.Host for testing. Merge outcomes are scripted
// in FIFO order; unscripted merges succeed cleanly.
type fakeHost struct {
	mu        sync.Mutex
	created   []string
	deleted   []string
	merges    []mergeCall
	script    []scriptedMerge
	createErr error

	// When blocking is armed, Merge signals mergeStarted and then waits for
	// mergeRelease to close before returning.
	mergeStarted chan struct{}
	mergeRelease chan struct{}
}

func newFakeHost() *fakeHost {
	return &fakeHost{}
}

// blockMerges makes subsequent Merge calls park until releaseMerges is called.
func (h *fakeHost) blockMerges() {
	h.mergeStarted = make(chan struct{}, 8)
	h.mergeRelease = make(chan struct{})
}

func (h *fakeHost) releaseMerges() {
	close(h.mergeRelease)
}

// scriptMerge queues a merge outcome; consumed in call order.
func (h *fakeHost) scriptMerge(result hosting.MergeResult, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.script = append(h.script, scriptedMerge{result: result, err: err})
}

func (h *fakeHost) scriptConflict(files ...string) {
	h.scriptMerge(hosting.MergeResult{
		Clean:         false,
		ConflictFiles: files,
		Reason:        "overlapping edits",
	}, nil)
}

func (h *fakeHost) CreateBranch(_ context.Context, name, _ string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.createErr != nil {
		return h.createErr
	}
	h.created = append(h.created, name)
	return nil
}

func (h *fakeHost) Merge(_ context.Context, source, target string, opts hosting.MergeOptions) (hosting.MergeResult, error) {
	if h.mergeStarted != nil {
		h.mergeStarted <- struct{}{}
		<-h.mergeRelease
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.merges = append(h.merges, mergeCall{Source: source, Target: target, Opts: opts})
	if len(h.script) > 0 {
		next := h.script[0]
		h.script = h.script[1:]
		return next.result, next.err
	}
	return hosting.MergeResult{Clean: true, CommitSHA: fmt.Sprintf("sha-%d", len(h.merges))}, nil
}

func (h *fakeHost) DeleteBranch(_ context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleted = append(h.deleted, name)
	return nil
}

func (h *fakeHost) DiffSummary(_ context.Context, _, _ string) (hosting.DiffStats, error) {
	return hosting.DiffStats{Files: 2, Additions: 40, Deletions: 7}, nil
}

func (h *fakeHost) createdBranches() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.created))
	copy(out, h.created)
	return out
}

func (h *fakeHost) deletedBranches() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.deleted))
	copy(out, h.deleted)
	return out
}

func (h *fakeHost) mergeCalls() []mergeCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]mergeCall, len(h.merges))
	copy(out, h.merges)
	return out
}

// testApp bundles a fully wired App over a temp SQLite database, a recording
// bus, and a fake host.
type testApp struct {
	*App
	host   *fakeHost
	bus    *testbus.Bus
	lanes  lane.Queue
	tokens *lane.Tokens
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg, err := config.Load("", t.TempDir())
	require.NoError(t, err)
	return newTestAppWithConfig(t, cfg)
}

func newTestAppWithConfig(t *testing.T, cfg *config.Config) *testApp {
	t.Helper()

	database, err := db.Open(cfg.DataDir, db.DefaultOpenOptions())
	require.NoError(t, err, "open database")
	t.Cleanup(func() { _ = database.Close() })

	tb := testbus.New(t)
	log := zerolog.New(io.Discard)

	branches := stores.NewBranchStore(database)
	transitions := stores.NewTransitionStore(database)
	approvals := stores.NewApprovalStore(database)
	agents := stores.NewAgentStore(database)
	lanes := stores.NewLaneStore(database)
	kvStore := stores.NewKVStore(database)
	notifications := stores.NewNotifyStore(database)

	host := newFakeHost()
	tokens := lane.NewTokens()

	registry := NewRegistry(branches, transitions, tb.EventBus, log)
	router := NewRouter(registry, branches, agents, host, cfg, tb.EventBus, log)
	gate := NewGate(registry, branches, approvals, lanes, agents, host, cfg, tb.EventBus, log)
	serializer := NewSerializer(registry, branches, lanes, tokens, agents, host, cfg, tb.EventBus, log)
	staleness := NewStaleness(branches, kvStore, tb.EventBus, cfg.Staleness, log)

	// Full alert pipeline, as wired at startup.
	eventbus.NewNotificationRouter(tb.EventBus).Register()
	NewAlertSink(notifications, tb.EventBus, log).Register()

	app := NewApp(registry, router, gate, serializer, staleness, notifications, cfg, tb.EventBus, database)

	return &testApp{
		App:    app,
		host:   host,
		bus:    tb,
		lanes:  lanes,
		tokens: tokens,
	}
}

// addAgent reports an agent available for the given role.
func (ta *testApp) addAgent(t *testing.T, roleTag, agentID string) {
	t.Helper()
	require.NoError(t, ta.ReportAgentAvailable(context.Background(), roleTag, agentID))
}

// submit submits a work item and returns the created branch.
func (ta *testApp) submit(t *testing.T, opts SubmitOptions) branchRecord {
	t.Helper()
	b, err := ta.SubmitWork(context.Background(), opts)
	require.NoError(t, err)
	return branchRecord{ta: ta, t: t, id: b.ID}
}

// branchRecord is a test handle for driving one branch through its lifecycle.
type branchRecord struct {
	ta *testApp
	t  *testing.T
	id string
}

func (br branchRecord) complete(summary string) branchRecord {
	br.t.Helper()
	_, err := br.ta.ReportWorkComplete(context.Background(), br.id, summary)
	require.NoError(br.t, err)
	return br
}

func (br branchRecord) requestReview() branchRecord {
	br.t.Helper()
	_, err := br.ta.RequestReview(context.Background(), br.id)
	require.NoError(br.t, err)
	return br
}

func (br branchRecord) approve(roleTag string) branchRecord {
	br.t.Helper()
	_, err := br.ta.RecordApprovalDecision(context.Background(), br.id, roleTag, "approve", DecisionOptions{})
	require.NoError(br.t, err)
	return br
}

func (br branchRecord) current() branch.Branch {
	br.t.Helper()
	b, err := br.ta.Registry.Get(context.Background(), br.id)
	require.NoError(br.t, err)
	return b
}

// mustGet fetches a branch by ID, failing the test on error.
func (ta *testApp) mustGet(t *testing.T, id string) branch.Branch {
	t.Helper()
	b, err := ta.Registry.Get(context.Background(), id)
	require.NoError(t, err)
	return b
}

// seedBranch plants a branch directly in the store, bypassing the router.
// Used to start lifecycle tests from an arbitrary state.
func seedBranch(t *testing.T, ta *testApp, id string, state branch.State) branch.Branch {
	t.Helper()
	now := time.Now().UTC()
	item := branch.WorkItem{
		ID:        "wi-" + id,
		Role:      role.Backend,
		Title:     "Task " + id,
		CreatedAt: now,
	}
	b := branch.Branch{
		ID:         id,
		WorkItemID: item.ID,
		Role:       item.Role,
		Title:      item.Title,
		Target:     lane.Integration,
		State:      state,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, ta.Registry.branches.Create(context.Background(), b, item))
	return b
}

// Ensure the fake implements the interface at compile time.
var _ hosting.Host = (*fakeHost)(nil)
