package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jakechorley/support-match/pkg/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// parseQuery reads a subscription filter from URL parameters:
// collection (repeatable), id, requesterId, volunteerId
func parseQuery(r *http.Request) (events.Query, error) {
	values := r.URL.Query()
	q := events.Query{
		DocumentID:  values.Get("id"),
		RequesterID: values.Get("requesterId"),
		VolunteerID: values.Get("volunteerId"),
	}
	for _, c := range values["collection"] {
		collection := events.Collection(c)
		switch collection {
		case events.CollectionRequesters, events.CollectionVolunteers, events.CollectionRequests, events.CollectionMatches:
			q.Collections = append(q.Collections, collection)
		default:
			return events.Query{}, fmt.Errorf("%w: unknown collection %q", errBadRequest, c)
		}
	}
	return q, nil
}

// subscribe streams matching change events over a websocket until either side closes.
// A client that falls behind is disconnected with a try-again-later close frame.
func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe(q)
	defer sub.Cancel()

	// The read loop only handles control frames and notices the peer leaving
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("Subscriber read error", zap.Error(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscription closed")
				_ = conn.WriteMessage(websocket.CloseMessage, msg)
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				s.logger.Debug("Failed to write event", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-gone:
			return

		case <-r.Context().Done():
			return
		}
	}
}
