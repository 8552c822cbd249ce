package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/flemzord/modgate/internal/event"
	"github.com/flemzord/modgate/internal/journal"
)

const streamWriteTimeout = 5 * time.Second

// Stream fans bus notifications out to websocket clients. Publish never
// blocks: a client whose queue is full is disconnected.
type Stream struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
	buffer  int
	logger  *slog.Logger
}

type streamClient struct {
	module string
	ch     chan journal.Entry
}

// NewStream creates a stream with a per-client queue of buffer entries.
func NewStream(buffer int, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		clients: make(map[*streamClient]struct{}),
		buffer:  buffer,
		logger:  logger,
	}
}

// Publish is a bus listener.
func (s *Stream) Publish(e event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) == 0 {
		return
	}

	entry, err := journal.NewEntry(e)
	if err != nil {
		s.logger.Debug("stream: event not encodable", "event", string(e.Name), "error", err)
		return
	}
	for c := range s.clients {
		if c.module != "" && c.module != entry.Module {
			continue
		}
		select {
		case c.ch <- entry:
		default:
			s.logger.Warn("stream: client too slow, disconnecting")
			s.dropLocked(c)
		}
	}
}

// Len returns the number of connected clients.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects every client.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		s.dropLocked(c)
	}
}

func (s *Stream) subscribe(module string) *streamClient {
	c := &streamClient{module: module, ch: make(chan journal.Entry, s.buffer)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	return c
}

func (s *Stream) unsubscribe(c *streamClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(c)
}

func (s *Stream) dropLocked(c *streamClient) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.ch)
}

// ServeHTTP upgrades the request to a websocket and streams journal entries
// as JSON text messages. The optional module query parameter filters by
// module id.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Error("stream: websocket accept failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusInternalError, "unexpected close")
	}()

	c := s.subscribe(r.URL.Query().Get("module"))
	defer s.unsubscribe(c)

	// Client messages are ignored; CloseRead notices the peer going away.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-c.ch:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "stream closed")
				return
			}
			if err := s.write(ctx, conn, entry); err != nil {
				s.logger.Debug("stream: write failed", "error", err)
				return
			}
		}
	}
}

func (s *Stream) write(ctx context.Context, conn *websocket.Conn, entry journal.Entry) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, entry)
}
