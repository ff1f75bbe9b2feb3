package collection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"photo-browser/internal/record"
)

type fakeStore struct {
	mu     sync.Mutex
	states map[string]record.CheckState
	writes int
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: make(map[string]record.CheckState)}
}

func (f *fakeStore) LoadCheckStates(context.Context) (map[string]record.CheckState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]record.CheckState, len(f.states))
	for k, v := range f.states {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) SetCheckState(_ context.Context, path string, state record.CheckState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if state == record.Unchecked {
		delete(f.states, path)
	} else {
		f.states[path] = state
	}
	return nil
}

func (f *fakeStore) get(path string) (record.CheckState, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[path], f.writes
}

func touch(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func newTest(t *testing.T, opts Options) *Collection {
	t.Helper()
	if opts.Root == "" {
		opts.Root = t.TempDir()
	}
	c, err := New(context.Background(), opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNewLoadError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("disk gone")
	if _, err := New(context.Background(), Options{Root: t.TempDir(), Store: store}); err == nil {
		t.Error("Expected error when check states cannot be loaded")
	}
}

func TestAdd(t *testing.T) {
	c := newTest(t, Options{})
	dir := c.Root()

	tests := []struct {
		name      string
		path      string
		wantAdded bool
		wantNil   bool
	}{
		{name: "RAW file", path: filepath.Join(dir, "a.CR2"), wantAdded: true},
		{name: "JPEG file", path: filepath.Join(dir, "b.jpg"), wantAdded: true},
		{name: "Duplicate", path: filepath.Join(dir, "b.jpg"), wantAdded: false},
		{name: "Unsupported", path: filepath.Join(dir, "notes.txt"), wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, added := c.Add(tt.path)
			if added != tt.wantAdded {
				t.Errorf("Expected added=%v, got %v", tt.wantAdded, added)
			}
			if (r == nil) != tt.wantNil {
				t.Errorf("Expected nil=%v, got %v", tt.wantNil, r)
			}
		})
	}

	if c.Len() != 2 {
		t.Errorf("Expected 2 records, got %d", c.Len())
	}
	r := c.Get(filepath.Join(dir, "a.CR2"))
	if r == nil || c.ByID(r.ID()) != r {
		t.Error("Get and ByID should find the same record")
	}
}

func TestHooks(t *testing.T) {
	var added, removed []string
	c := newTest(t, Options{
		OnAdd:    func(r *record.Record) { added = append(added, filepath.Base(r.Path())) },
		OnRemove: func(r *record.Record) { removed = append(removed, filepath.Base(r.Path())) },
	})

	path := filepath.Join(c.Root(), "a.jpg")
	c.Add(path)
	c.Add(path)
	r := c.Get(path)
	if !c.Remove(path) {
		t.Fatal("Remove should report an existing record")
	}
	if c.Remove(path) {
		t.Error("second Remove should report nothing removed")
	}

	if len(added) != 1 || len(removed) != 1 {
		t.Errorf("Expected one add and one remove, got %v / %v", added, removed)
	}
	if !r.Destroyed() {
		t.Error("removed record should be destroyed")
	}
}

func TestPairing(t *testing.T) {
	c := newTest(t, Options{})
	dir := c.Root()

	raw, _ := c.Add(filepath.Join(dir, "IMG_0001.CR2"))
	jpg, _ := c.Add(filepath.Join(dir, "img_0001.jpg"))
	png, _ := c.Add(filepath.Join(dir, "IMG_0001.png"))
	other, _ := c.Add(filepath.Join(dir, "sub", "IMG_0001.jpg"))

	if raw.Neighbor() != jpg || jpg.Neighbor() != raw {
		t.Fatal("RAW should pair with the first processed file of the same stem")
	}
	if png.Neighbor() != nil || other.Neighbor() != nil {
		t.Error("extra or other-directory files must stay unpaired")
	}

	c.Remove(jpg.Path())
	if raw.Neighbor() != png {
		t.Error("RAW should pair with the remaining processed file")
	}

	c.Remove(png.Path())
	if raw.Neighbor() != nil {
		t.Error("RAW should be unpaired once no processed file is left")
	}
}

func TestItems(t *testing.T) {
	c := newTest(t, Options{})
	dir := c.Root()

	c.Add(filepath.Join(dir, "c.jpg"))
	c.Add(filepath.Join(dir, "B.CR2"))
	c.Add(filepath.Join(dir, "b.jpg"))
	c.Add(filepath.Join(dir, "a.nef"))

	names := func(rs []*record.Record) []string {
		var out []string
		for _, r := range rs {
			out = append(out, filepath.Base(r.Path()))
		}
		return out
	}

	tests := []struct {
		name string
		mode record.ViewMode
		want []string
	}{
		{name: "Separate", mode: record.ViewMode{}, want: []string{"a.nef", "B.CR2", "b.jpg", "c.jpg"}},
		{name: "Combined", mode: record.ViewMode{CombineRawJPEG: true}, want: []string{"a.nef", "b.jpg", "c.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(c.Items(tt.mode))
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestCheckStatePersistence(t *testing.T) {
	store := newFakeStore()
	dir := t.TempDir()
	marked := filepath.Join(dir, "keep.jpg")
	store.states[marked] = record.Checked

	c := newTest(t, Options{Root: dir, Store: store})

	r, _ := c.Add(marked)
	if r.Checked(record.ViewMode{}) != record.Checked {
		t.Error("stored mark should be restored on Add")
	}
	if _, writes := store.get(marked); writes != 0 {
		t.Errorf("restoring a mark must not write it back, got %d writes", writes)
	}

	r.SetChecked(record.PartiallyChecked, record.ViewMode{})
	if got, _ := store.get(marked); got != record.PartiallyChecked {
		t.Errorf("Expected partially_checked stored, got %s", got)
	}

	r.SetChecked(record.Unchecked, record.ViewMode{})
	if got, _ := store.get(marked); got != record.Unchecked {
		t.Errorf("Expected mark cleared, got %s", got)
	}

	// re-adding after removal restores the in-memory mark
	r.SetChecked(record.Checked, record.ViewMode{})
	c.Remove(marked)
	r2, _ := c.Add(marked)
	if r2.Checked(record.ViewMode{}) != record.Checked {
		t.Error("mark should survive remove and re-add")
	}
}

func TestCombinedCheckPersistsBoth(t *testing.T) {
	store := newFakeStore()
	combine := record.ViewMode{CombineRawJPEG: true}
	c := newTest(t, Options{Store: store, Mode: combine})
	dir := c.Root()

	raw, _ := c.Add(filepath.Join(dir, "x.cr2"))
	jpg, _ := c.Add(filepath.Join(dir, "x.jpg"))

	jpg.SetChecked(record.Checked, c.Mode())
	for _, r := range []*record.Record{raw, jpg} {
		if got, _ := store.get(r.Path()); got != record.Checked {
			t.Errorf("%s: Expected checked stored, got %s", filepath.Base(r.Path()), got)
		}
	}
}

func TestStats(t *testing.T) {
	c := newTest(t, Options{})
	dir := c.Root()

	raw, _ := c.Add(filepath.Join(dir, "a.cr2"))
	c.Add(filepath.Join(dir, "a.jpg"))
	c.Add(filepath.Join(dir, "b.nef"))
	c.Add(filepath.Join(dir, "c.png"))
	raw.SetChecked(record.Checked, record.ViewMode{})
	raw.SetState(record.Metadata)

	s := c.Stats()
	if s.Raw != 2 || s.Processed != 2 || s.Pairs != 1 || s.Checked != 1 {
		t.Errorf("Unexpected stats: %+v", s)
	}
	if s.ByState["metadata"] != 1 || s.ByState["unknown"] != 3 {
		t.Errorf("Unexpected state counts: %v", s.ByState)
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.cr2"))
	touch(t, filepath.Join(dir, "a.jpg"))
	touch(t, filepath.Join(dir, "nested", "b.png"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, ".hidden", "c.jpg"))
	touch(t, filepath.Join(dir, ".d.jpg"))

	c := newTest(t, Options{Root: dir})

	res, err := c.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if res.Added != 3 || res.Removed != 0 {
		t.Errorf("Expected 3 added, got %+v", res)
	}

	if err := os.Remove(filepath.Join(dir, "a.jpg")); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(dir, "d.jpg"))

	res, err = c.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if res.Added != 1 || res.Removed != 1 {
		t.Errorf("Expected 1 added and 1 removed, got %+v", res)
	}
	if c.Get(filepath.Join(dir, "a.cr2")).Neighbor() != nil {
		t.Error("RAW should lose its neighbor when the JPEG disappears")
	}
}

func TestScanCancelled(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.jpg"))
	c := newTest(t, Options{Root: dir})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Scan(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRemoveTree(t *testing.T) {
	c := newTest(t, Options{})
	dir := c.Root()

	c.Add(filepath.Join(dir, "keep.jpg"))
	c.Add(filepath.Join(dir, "sub", "a.jpg"))
	c.Add(filepath.Join(dir, "sub", "deeper", "b.cr2"))
	c.Add(filepath.Join(dir, "subway.jpg"))

	if n := c.RemoveTree(filepath.Join(dir, "sub")); n != 2 {
		t.Errorf("Expected 2 removed, got %d", n)
	}
	if c.Len() != 2 {
		t.Errorf("Expected 2 records left, got %d", c.Len())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	c := newTest(t, Options{Root: dir})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch returned %v", err)
		}
	}()

	// give the watcher time to register the root
	time.Sleep(200 * time.Millisecond)

	file := touch(t, filepath.Join(dir, "new.jpg"))
	waitFor(t, func() bool { return c.Get(file) != nil })

	nested := touch(t, filepath.Join(dir, "later", "n.cr2"))
	waitFor(t, func() bool { return c.Get(nested) != nil })

	if err := os.Remove(file); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return c.Get(file) == nil })
}

func TestEventType(t *testing.T) {
	if eventType(0) != "unknown" {
		t.Errorf("Expected unknown for empty op, got %s", eventType(0))
	}
}
