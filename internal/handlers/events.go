package handlers

import (
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"sync"
	"time"

	"photo-browser/internal/logging"
	"photo-browser/internal/metrics"
	"photo-browser/internal/record"

	"golang.org/x/image/math/f64"
)

const (
	clientBuffer      = 256
	eventsPerRecord   = 4
	keepAliveInterval = 30 * time.Second
)

// Event types
const (
	EventAdded     = "added"
	EventRemoved   = "removed"
	EventState     = "state"
	EventThumbnail = "thumbnail"
	EventImage     = "image"
	EventChecked   = "checked"
	EventRegion    = "region"
)

// Rect is a pixel rectangle in decoded image coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Event is one item change pushed to event stream clients.
type Event struct {
	Type      string      `json:"type"`
	ID        string      `json:"id"`
	Path      string      `json:"path,omitempty"`
	State     string      `json:"state,omitempty"`
	Previous  string      `json:"previous,omitempty"`
	Message   string      `json:"message,omitempty"`
	Width     int         `json:"width,omitempty"`
	Height    int         `json:"height,omitempty"`
	Region    *Rect       `json:"region,omitempty"`
	Transform *[6]float64 `json:"transform,omitempty"`
}

// client is one connected event stream. Each record it follows holds a
// subscription whose sink writes into ch.
type client struct {
	ch      chan Event
	subs    map[*record.Record]func()
	dropped int
	mu      sync.Mutex
}

// send never blocks; a client too slow to keep up loses events.
func (c *client) send(ev Event) {
	select {
	case c.ch <- ev:
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
	}
}

// sink is the record.Listener of one client on one record.
type sink struct {
	c *client
}

func (s sink) StateChanged(r *record.Record, newState, oldState record.State) {
	s.c.send(Event{
		Type:     EventState,
		ID:       r.ID().String(),
		State:    newState.String(),
		Previous: oldState.String(),
		Message:  r.ErrorMessage(),
	})
}

func (s sink) ThumbnailChanged(r *record.Record, thumbnail image.Image) {
	size := thumbnail.Bounds().Size()
	s.c.send(Event{Type: EventThumbnail, ID: r.ID().String(), Width: size.X, Height: size.Y})
}

func (s sink) DecodedImageChanged(r *record.Record, img image.Image, transform f64.Aff3) {
	size := img.Bounds().Size()
	m := [6]float64(transform)
	s.c.send(Event{Type: EventImage, ID: r.ID().String(), Width: size.X, Height: size.Y, Transform: &m})
}

func (s sink) CheckStateChanged(r *record.Record, newState, oldState record.CheckState) {
	s.c.send(Event{
		Type:     EventChecked,
		ID:       r.ID().String(),
		State:    newState.String(),
		Previous: oldState.String(),
	})
}

func (s sink) PreviewRegionUpdated(r *record.Record, region image.Rectangle) {
	s.c.send(Event{
		Type: EventRegion,
		ID:   r.ID().String(),
		Region: &Rect{
			X:      region.Min.X,
			Y:      region.Min.Y,
			Width:  region.Dx(),
			Height: region.Dy(),
		},
	})
}

// Events fans record notifications out to event stream clients. A client
// subscribes to every tracked record when it connects, so the records'
// replay gives it their current values before any live change.
type Events struct {
	log     logging.Logger
	mu      sync.Mutex
	records map[*record.Record]struct{}
	clients map[*client]struct{}
}

func NewEvents() *Events {
	return &Events{
		log:     logging.For("events"),
		records: make(map[*record.Record]struct{}),
		clients: make(map[*client]struct{}),
	}
}

// Track starts forwarding r's changes to connected and future clients.
func (e *Events) Track(r *record.Record) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.records[r]; ok {
		return
	}
	e.records[r] = struct{}{}
	for c := range e.clients {
		c.send(Event{Type: EventAdded, ID: r.ID().String(), Path: r.Path()})
		c.subs[r] = r.Subscribe(sink{c: c})
	}
}

// Untrack stops forwarding r's changes and tells clients it is gone.
func (e *Events) Untrack(r *record.Record) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.records[r]; !ok {
		return
	}
	delete(e.records, r)
	for c := range e.clients {
		if unsubscribe := c.subs[r]; unsubscribe != nil {
			unsubscribe()
			delete(c.subs, r)
		}
		c.send(Event{Type: EventRemoved, ID: r.ID().String(), Path: r.Path()})
	}
}

// Tracked returns the number of records being forwarded.
func (e *Events) Tracked() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.records)
}

// Clients returns the number of connected clients.
func (e *Events) Clients() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.clients)
}

func (e *Events) connect() *client {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := &client{
		ch:   make(chan Event, clientBuffer+eventsPerRecord*len(e.records)),
		subs: make(map[*record.Record]func(), len(e.records)),
	}
	for r := range e.records {
		c.send(Event{Type: EventAdded, ID: r.ID().String(), Path: r.Path()})
		c.subs[r] = r.Subscribe(sink{c: c})
	}
	e.clients[c] = struct{}{}
	metrics.EventSubscribers.Inc()
	return c
}

func (e *Events) disconnect(c *client) {
	e.mu.Lock()
	delete(e.clients, c)
	subs := c.subs
	c.subs = nil
	e.mu.Unlock()

	for _, unsubscribe := range subs {
		unsubscribe()
	}
	metrics.EventSubscribers.Dec()

	c.mu.Lock()
	dropped := c.dropped
	c.mu.Unlock()
	if dropped > 0 {
		e.log.Warn("event client disconnected after dropping %d events", dropped)
	}
}

// ServeHTTP streams events as text/event-stream until the client goes away.
func (e *Events) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	c := e.connect()
	defer e.disconnect(c)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev := <-c.ch:
			if err := writeEvent(w, ev); err != nil {
				e.log.Debug("event stream write failed: %v", err)
				return
			}
			// drain what is already queued before flushing
			for n := len(c.ch); n > 0; n-- {
				if err := writeEvent(w, <-c.ch); err != nil {
					return
				}
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
