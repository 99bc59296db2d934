package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MsgConnected         MessageType = "connected"
	MsgResponseSubmitted MessageType = "response_submitted"
	MsgAnalyticsUpdate   MessageType = "analytics_update"
	MsgSurveyClosed      MessageType = "survey_closed"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Connection is one live subscriber of a survey
type Connection struct {
	SurveyID string
	OwnerID  string
	Send     chan []byte
}

// NewConnection creates a subscriber with a buffered send queue
func NewConnection(surveyID, ownerID string) *Connection {
	return &Connection{
		SurveyID: surveyID,
		OwnerID:  ownerID,
		Send:     make(chan []byte, 256),
	}
}

type broadcastMessage struct {
	surveyID string
	data     []byte
	close    bool
}

// Hub fans survey events out to live subscribers
type Hub struct {
	// survey id -> subscribers
	conns map[string]map[*Connection]struct{}
	mu    sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *broadcastMessage
	done       chan struct{}

	log *zap.Logger
}

// NewHub creates a new WebSocket hub. Run must be started before use.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		conns:      make(map[string]map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *broadcastMessage, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// closes every subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for surveyID := range h.conns {
			h.closeSurvey(surveyID)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.SurveyID] == nil {
				h.conns[conn.SurveyID] = make(map[*Connection]struct{})
			}
			h.conns[conn.SurveyID][conn] = struct{}{}
			h.mu.Unlock()
			h.log.Debug("subscriber connected", zap.String("surveyId", conn.SurveyID), zap.String("ownerId", conn.OwnerID))

		case conn := <-h.unregister:
			h.mu.Lock()
			if subs, ok := h.conns[conn.SurveyID]; ok {
				if _, ok := subs[conn]; ok {
					delete(subs, conn)
					close(conn.Send)
					if len(subs) == 0 {
						delete(h.conns, conn.SurveyID)
					}
					h.log.Debug("subscriber disconnected", zap.String("surveyId", conn.SurveyID))
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			if msg.close {
				h.mu.Lock()
				h.closeSurvey(msg.surveyID)
				h.mu.Unlock()
				continue
			}
			h.mu.RLock()
			for conn := range h.conns[msg.surveyID] {
				select {
				case conn.Send <- msg.data:
				default:
					// slow subscriber, drop
				}
			}
			h.mu.RUnlock()
		}
	}
}

// closeSurvey sends a final notice and closes every subscriber of surveyID.
// Caller holds h.mu.
func (h *Hub) closeSurvey(surveyID string) {
	data, _ := json.Marshal(&Message{Type: MsgSurveyClosed, Payload: json.RawMessage(`{}`)})
	for conn := range h.conns[surveyID] {
		select {
		case conn.Send <- data:
		default:
		}
		close(conn.Send)
	}
	delete(h.conns, surveyID)
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Subscribers returns the number of live subscribers of a survey
func (h *Hub) Subscribers(surveyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[surveyID])
}

// BroadcastToSurvey sends a message to every subscriber of a survey (implements service.Broadcaster)
func (h *Hub) BroadcastToSurvey(surveyID string, msgType string, payload interface{}) {
	data, err := Encode(MessageType(msgType), payload)
	if err != nil {
		h.log.Error("encode live message", zap.String("type", msgType), zap.Error(err))
		return
	}
	h.send(&broadcastMessage{surveyID: surveyID, data: data})
}

// DisconnectSurvey closes every subscriber of a survey (implements service.Broadcaster)
func (h *Hub) DisconnectSurvey(surveyID string) {
	h.send(&broadcastMessage{surveyID: surveyID, close: true})
}

func (h *Hub) send(msg *broadcastMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// Encode wraps payload in the message envelope
func Encode(msgType MessageType, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Message{Type: msgType, Payload: data})
}
