package app

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/optimus/internal/domain"
	"github.com/samvad-hq/optimus/internal/storage"
	"github.com/samvad-hq/optimus/pkg/optimus"
	"github.com/samvad-hq/optimus/pkg/publishers"
)

// fakeClient returns preset bytes or an error and records the call.
type fakeClient struct {
	out    []byte
	err    error
	image  []byte
	option optimus.Option
	calls  int
}

func (f *fakeClient) Optimize(_ context.Context, image []byte, option optimus.Option) ([]byte, error) {
	f.calls++
	f.image = image
	f.option = option
	return f.out, f.err
}

func (f *fakeClient) Endpoint() string { return optimus.DefaultEndpoint }

type fakeReader struct {
	data map[string][]byte
}

func (f fakeReader) Read(_ context.Context, ref string) ([]byte, error) {
	data, ok := f.data[ref]
	if !ok {
		return nil, errors.New("no such image")
	}
	return data, nil
}

// fakeStore keeps runs in memory.
type fakeStore struct {
	mu   sync.Mutex
	runs []domain.Run
	err  error
}

func (f *fakeStore) Close() error { return nil }
func (f *fakeStore) Record(run domain.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return f.err
}
func (f *fakeStore) Recent(limit int) ([]domain.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Run, 0, len(f.runs))
	for i := len(f.runs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, f.runs[i])
	}
	return out, nil
}

// fakeEvents records published events and can inject errors.
type fakeEvents struct {
	events []publishers.Event
	err    error
	closed bool
}

func (f *fakeEvents) Publish(_ context.Context, evt publishers.Event) (int, error) {
	f.events = append(f.events, evt)
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}
func (f *fakeEvents) Size() int    { return 1 }
func (f *fakeEvents) Close() error { f.closed = true; return nil }

type written struct {
	path string
	data []byte
}

func newTestOptimizer(client *fakeClient, store storage.Store, events EventPublisher) (*Optimizer, *[]written) {
	o := newOptimizer(client, fakeReader{data: map[string][]byte{
		"photos/cat.jpg": []byte("jpeg-in"),
	}}, store, events, nil)
	var files []written
	o.writeFile = func(path string, data []byte) error {
		files = append(files, written{path: path, data: data})
		return nil
	}
	o.newID = func() string { return "run-1" }
	clock := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	o.now = func() time.Time {
		clock = clock.Add(250 * time.Millisecond)
		return clock
	}
	return o, &files
}

func TestOptimizerRunWritesRecordsAndPublishes(t *testing.T) {
	client := &fakeClient{out: []byte("webp-out")}
	store := &fakeStore{}
	events := &fakeEvents{}
	o, files := newTestOptimizer(client, store, events)

	run, err := o.Run(context.Background(), Job{Source: "photos/cat.jpg", Option: optimus.OptionWebP})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(client.image) != "jpeg-in" || client.option != optimus.OptionWebP {
		t.Fatalf("client called with %q/%s", client.image, client.option)
	}
	if len(*files) != 1 || (*files)[0].path != filepath.Join("photos", "cat.webp") || string((*files)[0].data) != "webp-out" {
		t.Fatalf("unexpected writes %#v", *files)
	}
	if run.Status != domain.RunStatusSucceeded || run.InputBytes != 7 || run.OutputBytes != 8 || run.ID != "run-1" {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.Duration() != 250*time.Millisecond {
		t.Fatalf("duration = %s", run.Duration())
	}
	if len(store.runs) != 1 || store.runs[0].Output != filepath.Join("photos", "cat.webp") {
		t.Fatalf("history not recorded: %#v", store.runs)
	}
	if len(events.events) != 1 || events.events[0].Run.ID != "run-1" {
		t.Fatalf("event not published: %#v", events.events)
	}
}

func TestOptimizerRunUsesDefaultOptionAndStdout(t *testing.T) {
	client := &fakeClient{out: []byte("out")}
	o, files := newTestOptimizer(client, &fakeStore{}, nil)
	o.defaultOption = optimus.OptionClean
	var stdout bytes.Buffer
	o.Stdout = &stdout

	if _, err := o.Run(context.Background(), Job{Source: "photos/cat.jpg", Output: StdoutOutput}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if client.option != optimus.OptionClean {
		t.Fatalf("option = %s", client.option)
	}
	if stdout.String() != "out" || len(*files) != 0 {
		t.Fatalf("stdout=%q files=%#v", stdout.String(), *files)
	}
}

func TestOptimizerRunRecordsAPIErrors(t *testing.T) {
	apiErr := &optimus.Error{Kind: optimus.KindTooManyRequests, StatusCode: 429, Message: "rate limited"}
	client := &fakeClient{err: apiErr}
	store := &fakeStore{}
	events := &fakeEvents{err: errors.New("sink down")}
	o, files := newTestOptimizer(client, store, events)

	run, err := o.Run(context.Background(), Job{Source: "photos/cat.jpg"})
	if !errors.Is(err, optimus.ErrTooManyRequests) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if len(*files) != 0 {
		t.Fatalf("no output expected on failure, got %#v", *files)
	}
	if run.Status != domain.RunStatusFailed || run.ErrorKind != "too_many_requests" || run.OutputBytes != 0 {
		t.Fatalf("unexpected run %+v", run)
	}
	if len(store.runs) != 1 || len(events.events) != 1 {
		t.Fatalf("failure should still be recorded and published")
	}
}

func TestOptimizerRunSourceErrorSkipsAPI(t *testing.T) {
	client := &fakeClient{out: []byte("x")}
	o, _ := newTestOptimizer(client, &fakeStore{}, nil)

	run, err := o.Run(context.Background(), Job{Source: "missing.png"})
	if err == nil || !strings.Contains(err.Error(), "read image") {
		t.Fatalf("expected read error, got %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("API must not be called when the source fails")
	}
	if run.ErrorKind != "" {
		t.Fatalf("source errors carry no API kind, got %q", run.ErrorKind)
	}
}

func TestOptimizerHistoryAndClose(t *testing.T) {
	store := &fakeStore{}
	events := &fakeEvents{}
	o, _ := newTestOptimizer(&fakeClient{out: []byte("x")}, store, events)
	for i := 0; i < 3; i++ {
		if _, err := o.Run(context.Background(), Job{Source: "photos/cat.jpg"}); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}
	runs, err := o.History(2)
	if err != nil || len(runs) != 2 {
		t.Fatalf("History: %d runs err=%v", len(runs), err)
	}
	if err := o.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !events.closed {
		t.Fatalf("publishers not closed")
	}
}

func TestOutputPath(t *testing.T) {
	cases := []struct {
		source string
		option optimus.Option
		want   string
	}{
		{"cat.jpg", optimus.OptionOptimize, "cat.optimized.jpg"},
		{"cat.jpg", optimus.OptionWebP, "cat.webp"},
		{filepath.Join("a", "b", "dog.png"), optimus.OptionClean, filepath.Join("a", "b", "dog.optimized.png")},
		{"https://cdn.example.com/img/bird.gif?v=2", optimus.OptionOptimize, "bird.optimized.gif"},
		{"s3://bucket/path/fish.jpeg", optimus.OptionWebP, "fish.webp"},
		{"file:///tmp/in/raw.jpg", optimus.OptionOptimize, "raw.optimized.jpg"},
	}
	for _, tc := range cases {
		if got := OutputPath(tc.source, tc.option); got != tc.want {
			t.Fatalf("OutputPath(%q, %s) = %q, want %q", tc.source, tc.option, got, tc.want)
		}
	}
}

func TestNewOptimizerFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(filepath.Join(dir, "history.db"))
	o, err := NewOptimizer(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewOptimizer: %v", err)
	}
	defer o.Close()

	if o.client.Endpoint() != "https://eu.optimus.test" {
		t.Fatalf("endpoint = %s", o.client.Endpoint())
	}
	if runs, err := o.History(10); err != nil || len(runs) != 0 {
		t.Fatalf("fresh history: %v %v", runs, err)
	}
}
