package record

import (
	"weak"

	"photo-browser/internal/media"
)

// Pair links a and b as siblings. Either may be nil, which only clears the
// other's link.
func Pair(a, b *Record) {
	if a != nil {
		a.SetNeighbor(b)
	}
	if b != nil {
		b.SetNeighbor(a)
	}
}

// SetNeighbor sets the sibling without taking ownership of it. Nil clears
// the link.
func (r *Record) SetNeighbor(n *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n == nil || n == r {
		r.neighbor = weak.Pointer[Record]{}
		return
	}
	r.neighbor = weak.Make(n)
}

// Neighbor returns the sibling, or nil if there is none, it was destroyed
// or it has been collected.
func (r *Record) Neighbor() *Record {
	r.mu.Lock()
	n := r.neighbor.Value()
	r.mu.Unlock()

	if n == nil || n.Destroyed() {
		return nil
	}
	return n
}

// DetachNeighbor clears the link in both directions.
func (r *Record) DetachNeighbor() {
	r.mu.Lock()
	n := r.neighbor.Value()
	r.neighbor = weak.Pointer[Record]{}
	r.mu.Unlock()

	if n != nil {
		n.detach(r)
	}
}

// detach clears r's link if it still points at gone.
func (r *Record) detach(gone *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.neighbor.Value() == gone {
		r.neighbor = weak.Pointer[Record]{}
	}
}

// ownChecked returns the mark stored on this record.
func (r *Record) ownChecked() CheckState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checked
}

// Checked returns the mark presented for this record under mode.
func (r *Record) Checked(mode ViewMode) CheckState {
	own := r.ownChecked()
	n := r.Neighbor()
	var sibling CheckState
	if n != nil {
		sibling = n.ownChecked()
	}
	return pairedCheckState(own, sibling, n != nil && n.kind == media.KindProcessed, r.kind == media.KindRaw, mode)
}

// SetChecked sets the user mark. In combine mode with a sibling present the
// mark is written to both records so the pair stays consistent; each
// record whose mark changed notifies its listeners.
func (r *Record) SetChecked(c CheckState, mode ViewMode) {
	if mode.CombineRawJPEG {
		if n := r.Neighbor(); n != nil {
			n.storeChecked(c)
		}
	}
	r.storeChecked(c)
}

func (r *Record) storeChecked(c CheckState) {
	r.mu.Lock()
	prev := r.checked
	if prev == c || r.destroyed {
		r.mu.Unlock()
		return
	}
	r.checked = c
	version := r.bump(fieldChecked)
	listeners := r.listeners
	r.mu.Unlock()

	for _, sub := range listeners {
		sub.post(fieldChecked, version, func(l Listener) { l.CheckStateChanged(r, c, prev) })
	}
}

// Visible reports whether the record is listed under mode. In combine
// mode a RAW record with a processed sibling is hidden behind it.
func (r *Record) Visible(mode ViewMode) bool {
	if !mode.CombineRawJPEG || r.kind != media.KindRaw {
		return true
	}
	n := r.Neighbor()
	return n == nil || n.kind != media.KindProcessed
}
