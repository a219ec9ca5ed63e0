package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"vodbridge/internal/archive"
	"vodbridge/internal/config"
	"vodbridge/internal/history"
	"vodbridge/internal/ledger"
	"vodbridge/internal/notifications"
	"vodbridge/internal/pipeline"
	"vodbridge/internal/quota"
	"vodbridge/internal/testsupport"
	"vodbridge/internal/upload"
	"vodbridge/internal/vod"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	cfg      *config.Config
	clock    *testsupport.FakeClock
	lister   *testsupport.StaticLister
	transfer *testsupport.FakeTransfer
	ledger   *ledger.Ledger
	history  *history.History
	archive  *archive.Store
	notifier *recordingNotifier
	sched    *pipeline.Scheduler
	la       *time.Location
}

func losAngeles(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func newHarness(t *testing.T, vods []vod.Record, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	la := losAngeles(t)
	h := &harness{
		cfg:      cfg,
		clock:    testsupport.NewFakeClock(time.Date(2024, 5, 6, 23, 58, 0, 0, la)),
		lister:   &testsupport.StaticLister{Records: vods},
		transfer: &testsupport.FakeTransfer{},
		ledger:   ledger.Open(cfg.LedgerPath(), nil),
		history:  history.Open(cfg.HistoryPath()),
		notifier: &recordingNotifier{},
		la:       la,
	}
	h.transfer.Endpoint = func(call testsupport.TransferCall) string {
		return "https://upload.example/" + call.Title
	}

	store, err := archive.Open(context.Background(), cfg.ArchivePath())
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	h.archive = store

	h.sched = h.build(t, pipeline.OptionsFromConfig(cfg))
	return h
}

func (h *harness) build(t *testing.T, opts pipeline.Options) *pipeline.Scheduler {
	t.Helper()
	loc, err := h.cfg.QuotaLocation()
	if err != nil {
		t.Fatalf("quota location: %v", err)
	}
	governor, err := quota.New(loc, h.cfg.Quota.ResetHour, h.cfg.Quota.ResetMinute)
	if err != nil {
		t.Fatalf("quota.New: %v", err)
	}
	cache := vod.NewCache(h.lister, vod.CacheOptions{
		Threshold:     h.cfg.DurationThreshold(),
		Attempts:      3,
		Backoff:       h.cfg.FetchBackoff(),
		RefreshRate:   h.cfg.RefreshRate(),
		CheckInterval: h.cfg.CheckInterval(),
		Sleep:         h.clock.Sleep,
	})
	sched, err := pipeline.New(opts, pipeline.Deps{
		Cache:    cache,
		Ledger:   h.ledger,
		History:  h.history,
		Governor: governor,
		Transfer: h.transfer,
		Archive:  h.archive,
		Notifier: h.notifier,
		Clock:    h.clock,
	})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return sched
}

func (h *harness) vodAt(id, title string, created time.Time) vod.Record {
	return vod.Record{
		ID:        id,
		Title:     title,
		URL:       "https://www.twitch.tv/videos/" + id,
		CreatedAt: created,
		Duration:  3 * time.Hour,
	}
}

func (h *harness) record(t *testing.T, name string, mod time.Time) string {
	t.Helper()
	return testsupport.WriteRecording(t, h.cfg.Paths.WatchDir, name, 64, mod)
}

func (h *harness) ledgerIDs(t *testing.T) []string {
	t.Helper()
	entries, err := h.ledger.LoadAll()
	if err != nil {
		t.Fatalf("ledger.LoadAll: %v", err)
	}
	return ledger.IDs(entries)
}

func (h *harness) completed(t *testing.T) []string {
	t.Helper()
	ids, err := h.history.List()
	if err != nil {
		t.Fatalf("history.List: %v", err)
	}
	return ids
}

type published struct {
	Event   notifications.Event
	Context string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	label, _ := payload["context"].(string)
	n.events = append(n.events, published{Event: event, Context: label})
	return nil
}

func (n *recordingNotifier) errors() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		if e.Event == notifications.EventError {
			out = append(out, e.Context)
		}
	}
	return out
}

// blockStateWrites makes the lock file beside path a directory so every
// locked write to path fails. The returned func restores writes.
func blockStateWrites(t *testing.T, path string) func() {
	t.Helper()
	lock := path + ".lock"
	if err := os.RemoveAll(lock); err != nil {
		t.Fatalf("remove lock: %v", err)
	}
	if err := os.MkdirAll(lock, 0o755); err != nil {
		t.Fatalf("create lock dir: %v", err)
	}
	return func() {
		if err := os.RemoveAll(lock); err != nil {
			t.Fatalf("restore lock: %v", err)
		}
	}
}

func titles(calls []testsupport.TransferCall) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Title)
	}
	return out
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestCycleUploadsNewMatch(t *testing.T) {
	la := losAngeles(t)
	h := newHarness(t, nil)
	rec := h.vodAt("100", "Stream A", time.Date(2024, 5, 6, 18, 0, 0, 0, la))
	h.lister.Records = []vod.Record{rec}
	path := h.record(t, "a.mp4", time.Date(2024, 5, 6, 21, 5, 0, 0, la))

	if err := h.sched.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle returned error: %v", err)
	}

	calls := h.transfer.Calls()
	if len(calls) != 1 || calls[0].Path != path || calls[0].Endpoint != "" {
		t.Fatalf("unexpected transfer calls %+v", calls)
	}
	if diff := cmp.Diff([]string{"100"}, h.completed(t)); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	if ids := h.ledgerIDs(t); len(ids) != 0 {
		t.Fatalf("expected empty ledger, got %v", ids)
	}
	if exists(path) {
		t.Fatal("expected recording moved out of the watch folder")
	}
	moved := filepath.Join(h.cfg.Paths.CompletedDir, "a.mp4")
	if !exists(moved) {
		t.Fatalf("expected recording at %s", moved)
	}

	entry, err := h.archive.Get(context.Background(), "100")
	if err != nil || entry == nil {
		t.Fatalf("expected archive entry, got %v %v", entry, err)
	}
	if entry.Result.VideoID != "vid-a" || entry.FilePath != moved {
		t.Fatalf("unexpected archive entry %+v", entry)
	}
}

func TestQuotaPauseKeepsEntryAndResumesFirst(t *testing.T) {
	la := losAngeles(t)
	h := newHarness(t, nil)
	recA := h.vodAt("a", "Stream A", time.Date(2024, 5, 6, 18, 0, 0, 0, la))
	recB := h.vodAt("b", "Stream B", time.Date(2024, 5, 5, 18, 0, 0, 0, la))
	recC := h.vodAt("c", "Stream C", time.Date(2024, 5, 4, 18, 0, 0, 0, la))
	h.lister.Records = []vod.Record{recA, recB, recC}
	pathA := h.record(t, "1-a.mp4", time.Date(2024, 5, 6, 20, 0, 0, 0, la))
	h.record(t, "2-b.mp4", time.Date(2024, 5, 5, 20, 0, 0, 0, la))

	quotaHits := 0
	h.transfer.Outcome = func(call testsupport.TransferCall) (*upload.Result, error) {
		if call.Title == "Stream A" && quotaHits == 0 {
			quotaHits++
			return nil, upload.ErrExceededQuota
		}
		return &upload.Result{VideoID: "vid-" + call.Title, Title: call.Title}, nil
	}

	if err := h.sched.Cycle(context.Background()); err != nil {
		t.Fatalf("first cycle: %v", err)
	}

	if diff := cmp.Diff([]time.Duration{12 * time.Minute}, h.clock.Sleeps()); diff != "" {
		t.Fatalf("quota sleep mismatch (-want +got):\n%s", diff)
	}
	entries, err := h.ledger.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	entryA, ok := entries["a"]
	if !ok || len(entries) != 1 {
		t.Fatalf("expected only A in ledger, got %+v", entries)
	}
	if entryA.ResumeEndpoint != "https://upload.example/Stream A" || entryA.FilePath != pathA {
		t.Fatalf("unexpected ledger entry %+v", entryA)
	}
	if diff := cmp.Diff([]string{"b"}, h.completed(t)); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	if !exists(pathA) {
		t.Fatal("paused recording must stay in the watch folder")
	}

	h.record(t, "3-c.mp4", time.Date(2024, 5, 4, 20, 0, 0, 0, la))
	if err := h.sched.Cycle(context.Background()); err != nil {
		t.Fatalf("second cycle: %v", err)
	}

	calls := h.transfer.Calls()
	want := []string{"Stream A", "Stream B", "Stream A", "Stream C"}
	if diff := cmp.Diff(want, titles(calls)); diff != "" {
		t.Fatalf("transfer order mismatch (-want +got):\n%s", diff)
	}
	if calls[2].Endpoint != "https://upload.example/Stream A" {
		t.Fatalf("expected resume with saved endpoint, got %q", calls[2].Endpoint)
	}
	if diff := cmp.Diff([]string{"b", "a", "c"}, h.completed(t)); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	if ids := h.ledgerIDs(t); len(ids) != 0 {
		t.Fatalf("expected empty ledger, got %v", ids)
	}
}

func TestTerminalFailureClearsEntryAndKeepsFile(t *testing.T) {
	la := losAngeles(t)
	h := newHarness(t, nil)
	h.lister.Records = []vod.Record{h.vodAt("9", "Broken", time.Date(2024, 5, 6, 18, 0, 0, 0, la))}
	path := h.record(t, "broken.mp4", time.Date(2024, 5, 6, 19, 0, 0, 0, la))
	h.transfer.Outcome = func(testsupport.TransferCall) (*upload.Result, error) {
		return nil, upload.ErrReachedRetryMax
	}

	if err := h.sched.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle returned error: %v", err)
	}

	if ids := h.ledgerIDs(t); len(ids) != 0 {
		t.Fatalf("expected ledger cleared, got %v", ids)
	}
	if ids := h.completed(t); len(ids) != 0 {
		t.Fatalf("expected no history, got %v", ids)
	}
	if !exists(path) {
		t.Fatal("failed recording must stay in the watch folder")
	}
	if sleeps := h.clock.Sleeps(); len(sleeps) != 0 {
		t.Fatalf("terminal failure must not sleep, got %v", sleeps)
	}
}

func TestCompletedVODIsRelocatedWithoutUpload(t *testing.T) {
	la := losAngeles(t)
	h := newHarness(t, nil)
	h.lister.Records = []vod.Record{h.vodAt("7", "Done", time.Date(2024, 5, 6, 18, 0, 0, 0, la))}
	path := h.record(t, "done.mp4", time.Date(2024, 5, 6, 19, 0, 0, 0, la))
	if err := h.history.Mark(context.Background(), "7"); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	if err := h.sched.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle returned error: %v", err)
	}

	if calls := h.transfer.Calls(); len(calls) != 0 {
		t.Fatalf("expected no uploads, got %+v", calls)
	}
	if exists(path) || !exists(filepath.Join(h.cfg.Paths.CompletedDir, "done.mp4")) {
		t.Fatal("expected completed recording relocated")
	}
}

func TestDryRunMutatesNothing(t *testing.T) {
	la := losAngeles(t)
	h := newHarness(t, nil, testsupport.WithDryRun(true))
	h.lister.Records = []vod.Record{
		h.vodAt("1", "New", time.Date(2024, 5, 6, 18, 0, 0, 0, la)),
		h.vodAt("2", "Old", time.Date(2024, 5, 5, 18, 0, 0, 0, la)),
	}
	newPath := h.record(t, "new.mp4", time.Date(2024, 5, 6, 19, 0, 0, 0, la))
	oldPath := h.record(t, "old.mp4", time.Date(2024, 5, 5, 19, 0, 0, 0, la))
	if err := h.history.Mark(context.Background(), "2"); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	if err := h.sched.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle returned error: %v", err)
	}

	if calls := h.transfer.Calls(); len(calls) != 0 {
		t.Fatalf("dry run invoked transfer: %+v", calls)
	}
	if ids := h.ledgerIDs(t); len(ids) != 0 {
		t.Fatalf("dry run wrote ledger: %v", ids)
	}
	if diff := cmp.Diff([]string{"2"}, h.completed(t)); diff != "" {
		t.Fatalf("dry run changed history (-want +got):\n%s", diff)
	}
	if !exists(newPath) || !exists(oldPath) {
		t.Fatal("dry run moved recordings")
	}
}

func TestRecoverResumesLedgerAndKeepsMissingFiles(t *testing.T) {
	la := losAngeles(t)
	h := newHarness(t, nil)
	ctx := context.Background()
	rec := h.vodAt("r", "Resumed", time.Date(2024, 5, 6, 18, 0, 0, 0, la))
	path := h.record(t, "resumed.mp4", time.Date(2024, 5, 6, 19, 0, 0, 0, la))
	if err := h.ledger.Save(ctx, "r", "https://upload.example/session-1", path, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ghost := h.vodAt("g", "Ghost", time.Date(2024, 5, 1, 18, 0, 0, 0, la))
	if err := h.ledger.Save(ctx, "g", "", filepath.Join(h.cfg.Paths.WatchDir, "ghost.mp4"), ghost); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := h.sched.Recover(ctx); err != nil {
		t.Fatalf("Recover returned error: %v", err)
	}

	calls := h.transfer.Calls()
	if len(calls) != 1 || calls[0].Endpoint != "https://upload.example/session-1" {
		t.Fatalf("unexpected transfer calls %+v", calls)
	}
	if diff := cmp.Diff([]string{"g"}, h.ledgerIDs(t)); diff != "" {
		t.Fatalf("ledger mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"r"}, h.completed(t)); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestRecoverClearsEntryForCompletedVOD(t *testing.T) {
	la := losAngeles(t)
	h := newHarness(t, nil)
	ctx := context.Background()
	rec := h.vodAt("x", "Crashed", time.Date(2024, 5, 6, 18, 0, 0, 0, la))
	path := h.record(t, "crashed.mp4", time.Date(2024, 5, 6, 19, 0, 0, 0, la))
	if err := h.ledger.Save(ctx, "x", "", path, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := h.history.Mark(ctx, "x"); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	if err := h.sched.Recover(ctx); err != nil {
		t.Fatalf("Recover returned error: %v", err)
	}

	if calls := h.transfer.Calls(); len(calls) != 0 {
		t.Fatalf("completed vod uploaded again: %+v", calls)
	}
	if ids := h.ledgerIDs(t); len(ids) != 0 {
		t.Fatalf("expected ledger cleared, got %v", ids)
	}
	if exists(path) {
		t.Fatal("expected recording relocated")
	}
}

func TestCycleFailsWhenVODListingUnavailable(t *testing.T) {
	h := newHarness(t, nil)
	h.lister.Err = errors.New("twitch api timeout")

	err := h.sched.Cycle(context.Background())
	if !vod.IsUnavailable(err) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	want := []time.Duration{h.cfg.FetchBackoff(), 2 * h.cfg.FetchBackoff()}
	if diff := cmp.Diff(want, h.clock.Sleeps()); diff != "" {
		t.Fatalf("backoff mismatch (-want +got):\n%s", diff)
	}
}

func TestRunRefreshesCacheWhenStale(t *testing.T) {
	h := newHarness(t, nil)
	h.cfg.Twitch.RefreshRate = 2 * h.cfg.Workflow.CheckInterval
	opts := pipeline.OptionsFromConfig(h.cfg)
	opts.MaxCycles = 5
	sched := h.build(t, opts)

	if err := sched.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if sched.Cycles() != 5 {
		t.Fatalf("expected 5 cycles, got %d", sched.Cycles())
	}
	// Refresh on cycles 1, 3 and 5.
	if got := h.lister.Calls(); got != 3 {
		t.Fatalf("expected 3 refreshes, got %d", got)
	}
	if got := len(h.clock.Sleeps()); got != 4 {
		t.Fatalf("expected 4 idle sleeps, got %d", got)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.clock.OnSleep = func(n int, _ time.Duration) error {
		if n >= 2 {
			cancel()
			return context.Canceled
		}
		return nil
	}

	err := h.sched.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if h.sched.Cycles() != 2 {
		t.Fatalf("expected 2 cycles before cancel, got %d", h.sched.Cycles())
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := pipeline.New(pipeline.Options{}, pipeline.Deps{}); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func TestLedgerWriteFailureSkipsFileWithoutStoppingRun(t *testing.T) {
	la := losAngeles(t)
	h := newHarness(t, nil)
	h.lister.Records = []vod.Record{
		h.vodAt("a", "Stream A", time.Date(2024, 5, 6, 18, 0, 0, 0, la)),
		h.vodAt("b", "Stream B", time.Date(2024, 5, 5, 18, 0, 0, 0, la)),
	}
	pathA := h.record(t, "a.mp4", time.Date(2024, 5, 6, 20, 0, 0, 0, la))
	pathB := h.record(t, "b.mp4", time.Date(2024, 5, 5, 20, 0, 0, 0, la))
	restore := blockStateWrites(t, h.cfg.LedgerPath())

	opts := pipeline.OptionsFromConfig(h.cfg)
	opts.MaxCycles = 2
	sched := h.build(t, opts)
	if err := sched.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if sched.Cycles() != 2 {
		t.Fatalf("expected 2 cycles, got %d", sched.Cycles())
	}
	if calls := h.transfer.Calls(); len(calls) != 0 {
		t.Fatalf("upload started without a ledger entry: %+v", calls)
	}
	want := []string{"ledger save", "ledger save", "ledger save", "ledger save"}
	if diff := cmp.Diff(want, h.notifier.errors()); diff != "" {
		t.Fatalf("error notifications mismatch (-want +got):\n%s", diff)
	}
	if !exists(pathA) || !exists(pathB) {
		t.Fatal("recordings must stay in the watch folder")
	}

	restore()
	if err := sched.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, h.completed(t)); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestHistoryWriteFailureKeepsEntryAndRetriesWithoutReupload(t *testing.T) {
	la := losAngeles(t)
	h := newHarness(t, nil)
	h.lister.Records = []vod.Record{
		h.vodAt("a", "Stream A", time.Date(2024, 5, 6, 18, 0, 0, 0, la)),
		h.vodAt("b", "Stream B", time.Date(2024, 5, 5, 18, 0, 0, 0, la)),
	}
	pathA := h.record(t, "a.mp4", time.Date(2024, 5, 6, 20, 0, 0, 0, la))
	pathB := h.record(t, "b.mp4", time.Date(2024, 5, 5, 20, 0, 0, 0, la))
	restore := blockStateWrites(t, h.cfg.HistoryPath())

	if err := h.sched.Cycle(context.Background()); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if diff := cmp.Diff([]string{"Stream A", "Stream B"}, titles(h.transfer.Calls())); diff != "" {
		t.Fatalf("transfer mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, h.ledgerIDs(t)); diff != "" {
		t.Fatalf("ledger mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"history write", "history write"}, h.notifier.errors()); diff != "" {
		t.Fatalf("error notifications mismatch (-want +got):\n%s", diff)
	}
	if !exists(pathA) || !exists(pathB) {
		t.Fatal("unrecorded uploads must stay in the watch folder")
	}

	restore()
	if err := h.sched.Cycle(context.Background()); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if got := len(h.transfer.Calls()); got != 2 {
		t.Fatalf("expected no re-upload, got %d transfers", got)
	}
	if diff := cmp.Diff([]string{"a", "b"}, h.completed(t)); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	if ids := h.ledgerIDs(t); len(ids) != 0 {
		t.Fatalf("expected empty ledger, got %v", ids)
	}
	if exists(pathA) || exists(pathB) {
		t.Fatal("expected recordings relocated after the history write")
	}
}

func TestUnreadableStateSkipsCycle(t *testing.T) {
	la := losAngeles(t)
	h := newHarness(t, nil)
	h.lister.Records = []vod.Record{h.vodAt("a", "Stream A", time.Date(2024, 5, 6, 18, 0, 0, 0, la))}
	path := h.record(t, "a.mp4", time.Date(2024, 5, 6, 20, 0, 0, 0, la))
	if err := os.MkdirAll(h.cfg.LedgerPath(), 0o755); err != nil {
		t.Fatalf("create ledger dir: %v", err)
	}

	opts := pipeline.OptionsFromConfig(h.cfg)
	opts.MaxCycles = 2
	sched := h.build(t, opts)
	if err := sched.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if sched.Cycles() != 2 {
		t.Fatalf("expected 2 cycles, got %d", sched.Cycles())
	}
	if calls := h.transfer.Calls(); len(calls) != 0 {
		t.Fatalf("expected no uploads, got %+v", calls)
	}
	want := []string{"state read", "state read", "state read"}
	if diff := cmp.Diff(want, h.notifier.errors()); diff != "" {
		t.Fatalf("error notifications mismatch (-want +got):\n%s", diff)
	}
	if !exists(path) {
		t.Fatal("recording must stay in the watch folder")
	}
}

func TestMissingLedgerFileNotifiesOnce(t *testing.T) {
	la := losAngeles(t)
	h := newHarness(t, nil)
	ctx := context.Background()
	ghost := h.vodAt("g", "Ghost", time.Date(2024, 5, 1, 18, 0, 0, 0, la))
	if err := h.ledger.Save(ctx, "g", "", filepath.Join(h.cfg.Paths.WatchDir, "ghost.mp4"), ghost); err != nil {
		t.Fatalf("Save: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := h.sched.Cycle(ctx); err != nil {
			t.Fatalf("Cycle %d: %v", i, err)
		}
	}
	var missing int
	for _, e := range h.notifier.events {
		if e.Event == notifications.EventMissingFile {
			missing++
		}
	}
	if missing != 1 {
		t.Fatalf("expected one missing-file notification, got %d", missing)
	}
}
