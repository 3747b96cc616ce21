package hub

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/DoyleJ11/duel-rooms/internal/events"
	"github.com/DoyleJ11/duel-rooms/internal/room"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRegistryClosed = errors.New("room registry closed")
)

type HubMsg interface{ isHubMsg() }

type AddRoom struct {
	Room  *room.Room
	Reply chan AddResult
}

type AddResult struct {
	ID  uint32
	Err error
}

type GetRoom struct {
	ID    uint32
	Reply chan *room.Room
}

type ListRooms struct {
	Reply chan []*room.Room
}

type RemoveRoom struct {
	ID uint32
}

type ShutdownHub struct{}

func (AddRoom) isHubMsg()     {}
func (GetRoom) isHubMsg()     {}
func (ListRooms) isHubMsg()   {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Hub owns the id → room table. Every access goes through its loop.
type Hub struct {
	inbox  chan HubMsg
	rooms  map[uint32]*room.Room
	nextID uint32
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	events events.Publisher
}

func NewHub(parent context.Context, logger *zap.Logger, pub events.Publisher) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pub == nil {
		pub = events.Nop{}
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[uint32]*room.Room),
		nextID: 1,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		events: pub,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) post(m HubMsg) bool {
	if h.ctx.Err() != nil {
		return false
	}
	select {
	case h.inbox <- m:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Add registers r and returns its id.
func (h *Hub) Add(r *room.Room) (uint32, error) {
	reply := make(chan AddResult, 1)
	if !h.post(AddRoom{Room: r, Reply: reply}) {
		return 0, ErrRegistryClosed
	}
	select {
	case res := <-reply:
		return res.ID, res.Err
	case <-h.ctx.Done():
		return 0, ErrRegistryClosed
	}
}

func (h *Hub) Remove(id uint32) {
	h.post(RemoveRoom{ID: id})
}

func (h *Hub) Get(id uint32) (*room.Room, error) {
	reply := make(chan *room.Room, 1)
	if !h.post(GetRoom{ID: id, Reply: reply}) {
		return nil, ErrRegistryClosed
	}
	select {
	case r := <-reply:
		if r == nil {
			return nil, ErrRoomNotFound
		}
		return r, nil
	case <-h.ctx.Done():
		return nil, ErrRegistryClosed
	}
}

// GetAllRoomsProperties snapshots every room, ordered by id. The rooms are
// read outside the hub loop so a busy room never stalls the registry.
func (h *Hub) GetAllRoomsProperties() []room.Properties {
	reply := make(chan []*room.Room, 1)
	if !h.post(ListRooms{Reply: reply}) {
		return nil
	}
	var rooms []*room.Room
	select {
	case rooms = <-reply:
	case <-h.ctx.Done():
		return nil
	}
	out := make([]room.Properties, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Properties())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Shutdown stops accepting rooms and asks every room to close. Rooms in the
// middle of a duel finish it first.
func (h *Hub) Shutdown() {
	h.post(ShutdownHub{})
}

// Stop cancels the hub loop.
func (h *Hub) Stop() { h.cancel() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case AddRoom:
				if h.closed {
					msg.Reply <- AddResult{Err: ErrRegistryClosed}
					break
				}
				id := h.allocateID()
				h.rooms[id] = msg.Room
				h.publish(events.SubjectRoomCreated, id)
				msg.Reply <- AddResult{ID: id}

			case GetRoom:
				msg.Reply <- h.rooms[msg.ID] // May be nil

			case ListRooms:
				rooms := make([]*room.Room, 0, len(h.rooms))
				for _, r := range h.rooms {
					rooms = append(rooms, r)
				}
				msg.Reply <- rooms

			case RemoveRoom:
				if _, ok := h.rooms[msg.ID]; ok {
					delete(h.rooms, msg.ID)
					h.publish(events.SubjectRoomRemoved, msg.ID)
				}

			case ShutdownHub:
				h.closed = true
				h.logger.Info("hub shutting down", zap.Int("rooms", len(h.rooms)))
				for _, r := range h.rooms {
					// Never block the hub on a room inbox.
					go r.Post(room.TryClose{})
				}
			}
		}
	}
}

func (h *Hub) allocateID() uint32 {
	for {
		id := h.nextID
		h.nextID++
		if id == 0 {
			continue
		}
		if _, used := h.rooms[id]; !used {
			return id
		}
	}
}

func (h *Hub) publish(subject string, id uint32) {
	if err := h.events.Publish(subject, events.RoomEvent{ID: id}); err != nil {
		h.logger.Warn("publish room event", zap.String("subject", subject), zap.Error(err))
	}
}
