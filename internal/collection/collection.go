package collection

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"photo-browser/internal/logging"
	"photo-browser/internal/media"
	"photo-browser/internal/metrics"
	"photo-browser/internal/record"

	"github.com/google/uuid"
)

// Store persists check marks. catalog.Catalog implements it.
type Store interface {
	LoadCheckStates(ctx context.Context) (map[string]record.CheckState, error)
	SetCheckState(ctx context.Context, path string, state record.CheckState) error
}

// Options configures a Collection.
type Options struct {
	// Root is the library directory scanned and watched.
	Root string
	// Mode is the initial view mode.
	Mode record.ViewMode
	// Record is passed to every record the collection creates.
	Record record.Options
	// Store persists check marks. Nil keeps them in memory only.
	Store Store
	// OnAdd runs after a record joins the collection.
	OnAdd func(*record.Record)
	// OnRemove runs after a record leaves the collection, before it is
	// destroyed.
	OnRemove func(*record.Record)
}

// Collection is the set of records being browsed.
type Collection struct {
	root string
	opts Options
	log  logging.Logger

	mu     sync.RWMutex
	mode   record.ViewMode
	byPath map[string]*record.Record
	byID   map[uuid.UUID]*record.Record
	groups map[string][]*record.Record
	marks  map[string]record.CheckState
}

// New creates an empty collection and loads the stored check marks.
func New(ctx context.Context, opts Options) (*Collection, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library directory: %w", err)
	}

	c := &Collection{
		root:   root,
		opts:   opts,
		log:    logging.For("collection"),
		mode:   opts.Mode,
		byPath: make(map[string]*record.Record),
		byID:   make(map[uuid.UUID]*record.Record),
		groups: make(map[string][]*record.Record),
		marks:  make(map[string]record.CheckState),
	}

	if opts.Store != nil {
		marks, err := opts.Store.LoadCheckStates(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load check states: %w", err)
		}
		c.marks = marks
		c.log.Info("Restored %d check marks", len(marks))
	}
	return c, nil
}

// Root returns the absolute library directory.
func (c *Collection) Root() string { return c.root }

// Mode returns the current view mode.
func (c *Collection) Mode() record.ViewMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// SetMode changes the view mode.
func (c *Collection) SetMode(mode record.ViewMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
}

// Add creates the record for path. It returns the record and true when it
// was added, the existing record and false when path is already present,
// and nil and false for unsupported files.
func (c *Collection) Add(path string) (*record.Record, bool) {
	path, err := filepath.Abs(path)
	if err != nil || media.KindOf(path) == media.KindOther {
		return nil, false
	}

	c.mu.Lock()
	if r, ok := c.byPath[path]; ok {
		c.mu.Unlock()
		return r, false
	}
	r := record.New(path, c.opts.Record)
	mark := c.marks[path]
	c.byPath[path] = r
	c.byID[r.ID()] = r
	key := media.PairKey(path)
	c.groups[key] = append(c.groups[key], r)
	raw, processed := pairOf(c.groups[key])
	c.mu.Unlock()

	// restore the mark before persisting starts so it is not written back
	r.SetChecked(mark, record.ViewMode{})
	r.Subscribe(record.ListenerFuncs{OnCheckStateChanged: c.persist})
	if raw != nil && processed != nil && (r == raw || r == processed) {
		record.Pair(raw, processed)
	}

	c.log.Debug("added %s", filepath.Base(path))
	if c.opts.OnAdd != nil {
		c.opts.OnAdd(r)
	}
	return r, true
}

// Remove destroys the record for path. It reports whether one existed.
func (c *Collection) Remove(path string) bool {
	path, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	c.mu.Lock()
	r, ok := c.byPath[path]
	if !ok {
		c.mu.Unlock()
		return false
	}
	delete(c.byPath, path)
	delete(c.byID, r.ID())
	key := media.PairKey(path)
	group := slices.DeleteFunc(c.groups[key], func(g *record.Record) bool { return g == r })
	if len(group) == 0 {
		delete(c.groups, key)
	} else {
		c.groups[key] = group
	}
	raw, processed := pairOf(group)
	c.mu.Unlock()

	if c.opts.OnRemove != nil {
		c.opts.OnRemove(r)
	}
	r.Destroy()

	// another file with the same stem may take the freed slot
	if raw != nil && processed != nil && raw.Neighbor() != processed {
		record.Pair(raw, processed)
	}

	c.log.Debug("removed %s", filepath.Base(path))
	return true
}

// RemoveTree removes every record at or below dir and returns how many
// were removed.
func (c *Collection) RemoveTree(dir string) int {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return 0
	}
	prefix := dir + string(filepath.Separator)

	c.mu.RLock()
	var paths []string
	for p := range c.byPath {
		if p == dir || strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	c.mu.RUnlock()

	n := 0
	for _, p := range paths {
		if c.Remove(p) {
			n++
		}
	}
	return n
}

// Get returns the record for path, or nil.
func (c *Collection) Get(path string) *record.Record {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byPath[path]
}

// ByID returns the record with the given identifier, or nil.
func (c *Collection) ByID(id uuid.UUID) *record.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byID[id]
}

// Len returns the number of records, visible or not.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byPath)
}

// Items returns the records visible under mode, sorted by file name and
// then by path.
func (c *Collection) Items(mode record.ViewMode) []*record.Record {
	c.mu.RLock()
	all := make([]*record.Record, 0, len(c.byPath))
	for _, r := range c.byPath {
		all = append(all, r)
	}
	c.mu.RUnlock()

	items := slices.DeleteFunc(all, func(r *record.Record) bool { return !r.Visible(mode) })
	slices.SortFunc(items, compareRecords)
	return items
}

// Stats implements metrics.StatsProvider.
func (c *Collection) Stats() metrics.Stats {
	c.mu.RLock()
	all := make([]*record.Record, 0, len(c.byPath))
	for _, r := range c.byPath {
		all = append(all, r)
	}
	c.mu.RUnlock()

	stats := metrics.Stats{ByState: make(map[string]int)}
	for _, r := range all {
		switch r.Kind() {
		case media.KindRaw:
			stats.Raw++
			if n := r.Neighbor(); n != nil && n.Kind() == media.KindProcessed {
				stats.Pairs++
			}
		case media.KindProcessed:
			stats.Processed++
		}
		if r.Checked(record.ViewMode{}) != record.Unchecked {
			stats.Checked++
		}
		stats.ByState[r.State().String()]++
	}
	return stats
}

// Close destroys every record.
func (c *Collection) Close() {
	c.mu.Lock()
	all := make([]*record.Record, 0, len(c.byPath))
	for _, r := range c.byPath {
		all = append(all, r)
	}
	c.byPath = make(map[string]*record.Record)
	c.byID = make(map[uuid.UUID]*record.Record)
	c.groups = make(map[string][]*record.Record)
	c.mu.Unlock()

	for _, r := range all {
		if c.opts.OnRemove != nil {
			c.opts.OnRemove(r)
		}
		r.Destroy()
	}
}

func (c *Collection) persist(r *record.Record, state, prev record.CheckState) {
	if state == prev {
		return
	}

	c.mu.Lock()
	if state == record.Unchecked {
		delete(c.marks, r.Path())
	} else {
		c.marks[r.Path()] = state
	}
	c.mu.Unlock()

	if c.opts.Store == nil {
		return
	}
	if err := c.opts.Store.SetCheckState(context.Background(), r.Path(), state); err != nil {
		c.log.Error("failed to store check state for %s: %v", r.Path(), err)
	}
}

// pairOf picks the first RAW and the first processed record of a group.
func pairOf(group []*record.Record) (raw, processed *record.Record) {
	for _, r := range group {
		switch r.Kind() {
		case media.KindRaw:
			if raw == nil {
				raw = r
			}
		case media.KindProcessed:
			if processed == nil {
				processed = r
			}
		}
	}
	return raw, processed
}

func compareRecords(a, b *record.Record) int {
	an, bn := strings.ToLower(filepath.Base(a.Path())), strings.ToLower(filepath.Base(b.Path()))
	if n := strings.Compare(an, bn); n != 0 {
		return n
	}
	return strings.Compare(a.Path(), b.Path())
}
