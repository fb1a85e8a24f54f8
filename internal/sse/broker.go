// Package sse implements a Server-Sent Events broker that pushes workspace
// tree and run events to open editors.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event represents an SSE event for the subscribers of one workspace.
type Event struct {
	Workspace string      `json:"-"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
}

type subscription struct {
	ch        chan []byte
	workspace string
}

type nodeEventReq struct {
	workspace string
	kind      string
	path      string
}

// Broker manages SSE client connections and broadcasts events.
//
// A single internal event loop (goroutine) owns the client set and the
// per-workspace tree throttle timestamps. Public methods talk to the loop
// through channels. Every client is bound to one workspace and only sees
// that workspace's events.
type Broker struct {
	treeMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	nodeEventCh   chan nodeEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. tree.updated is emitted at most once
// per treeThrottle for each workspace.
func NewBroker(treeThrottle time.Duration) *Broker {
	if treeThrottle <= 0 {
		treeThrottle = 2 * time.Second
	}

	b := &Broker{
		treeMin:       treeThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		nodeEventCh:   make(chan nodeEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	lastTree := make(map[string]time.Time)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		msg := fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)
		raw := []byte(msg)

		for ch, ws := range clients {
			if ws != event.Workspace {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.workspace

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.nodeEventCh:
			data := map[string]string{"workspace": req.workspace, "path": req.path}
			switch req.kind {
			case "created":
				broadcast(Event{Workspace: req.workspace, Type: "node.created", Data: data})
			case "updated":
				broadcast(Event{Workspace: req.workspace, Type: "buffer.updated", Data: data})
				continue
			case "deleted":
				broadcast(Event{Workspace: req.workspace, Type: "node.deleted", Data: data})
			case "closed":
				// Session over: tell its editors, then drop them and the throttle entry.
				broadcast(Event{Workspace: req.workspace, Type: "workspace.closed", Data: map[string]string{"workspace": req.workspace}})
				for ch, ws := range clients {
					if ws == req.workspace {
						delete(clients, ch)
						close(ch)
					}
				}
				delete(lastTree, req.workspace)
				continue
			}

			now := time.Now()
			if now.Sub(lastTree[req.workspace]) >= b.treeMin {
				lastTree[req.workspace] = now
				broadcast(Event{Workspace: req.workspace, Type: "tree.updated", Data: map[string]string{"workspace": req.workspace}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client for workspace and returns its channel. The
// channel is closed when the workspace is closed or the broker stops.
func (b *Broker) Subscribe(workspace string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, workspace: workspace}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to the clients of event.Workspace.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishNodeEvent publishes a tree or buffer change. Structural changes
// (created, deleted) are followed by a throttled tree.updated event.
// kind "closed" ends the workspace's stream.
func (b *Broker) PublishNodeEvent(workspace, kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.nodeEventCh <- nodeEventReq{workspace: workspace, kind: kind, path: path}:
	case <-b.stopped:
	}
}

// PublishRun announces a finished run.
func (b *Broker) PublishRun(workspace, status string, bytes int64) {
	b.Publish(Event{Workspace: workspace, Type: "run.finished", Data: map[string]any{
		"workspace": workspace,
		"status":    status,
		"bytes":     bytes,
	}})
}

// Serve streams the events of one workspace until the client disconnects
// or the workspace is closed.
func (b *Broker) Serve(w http.ResponseWriter, r *http.Request, workspace string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(workspace)
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
