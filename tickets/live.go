package tickets

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"eventtts/mq"
	"eventtts/utils"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveCount is what browsers receive for one event.
type LiveCount struct {
	EventID     primitive.ObjectID `json:"eventId"`
	TicketsLeft int                `json:"ticketsLeft"`
	SoldOut     bool               `json:"soldOut"`
}

type client struct {
	send chan []byte
}

// Hub fans inventory updates out to websocket clients watching an event.
type Hub struct {
	mu   sync.Mutex
	subs map[primitive.ObjectID]map[*client]struct{}
	log  *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.L()
	}
	return &Hub{subs: make(map[primitive.ObjectID]map[*client]struct{}), log: log}
}

// Start subscribes to src and forwards updates until ctx ends.
func (h *Hub) Start(ctx context.Context, src mq.Publisher) {
	updates, cancel := src.Subscribe(ctx)
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-updates:
				if !ok {
					return
				}
				h.broadcast(u)
			}
		}
	}()
}

func (h *Hub) broadcast(u mq.InventoryUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range u.EventIDs {
		watchers := h.subs[id]
		if len(watchers) == 0 {
			continue
		}
		msg, err := json.Marshal(LiveCount{EventID: id, TicketsLeft: u.TicketsLeft, SoldOut: u.SoldOut})
		if err != nil {
			h.log.Error("marshal live count", zap.Error(err))
			continue
		}
		for c := range watchers {
			select {
			case c.send <- msg:
			default:
				// too slow; the writer sees the closed channel and hangs up
				delete(watchers, c)
				close(c.send)
			}
		}
	}
}

func (h *Hub) add(id primitive.ObjectID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[id] == nil {
		h.subs[id] = make(map[*client]struct{})
	}
	h.subs[id][c] = struct{}{}
}

func (h *Hub) remove(id primitive.ObjectID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	watchers := h.subs[id]
	if _, ok := watchers[c]; ok {
		delete(watchers, c)
		close(c.send)
	}
	if len(watchers) == 0 {
		delete(h.subs, id)
	}
}

// Watchers returns how many clients follow the event.
func (h *Hub) Watchers(id primitive.ObjectID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}

// ServeLive upgrades the request and streams LiveCount messages for the
// event until the client goes away.
func (h *Hub) ServeLive(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ParseObjectID(ps.ByName("eventid"))
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{send: make(chan []byte, sendBuffer)}
	h.add(id, c)
	go h.writeLoop(conn, c)

	// reads only detect the close; clients send nothing
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(id, c)
	conn.Close()
}

func (h *Hub) writeLoop(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				conn.Close()
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				conn.Close()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				conn.Close()
				return
			}
		}
	}
}
