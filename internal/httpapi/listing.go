package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/duel-rooms/internal/room"
	pub "github.com/DoyleJ11/duel-rooms/pkg/types"
)

// RoomLister is the part of the hub the listing needs.
type RoomLister interface {
	GetAllRoomsProperties() []room.Properties
}

// Listing serves a cached JSON view of every room. Run keeps it fresh.
type Listing struct {
	rooms  RoomLister
	logger *zap.Logger

	mu   sync.RWMutex
	body []byte
}

func NewListing(rooms RoomLister, logger *zap.Logger) *Listing {
	l := &Listing{rooms: rooms, logger: logger}
	l.body, _ = json.Marshal(pub.Listing{Rooms: []pub.RoomListing{}})
	return l
}

func BuildListing(props []room.Properties) pub.Listing {
	out := pub.Listing{Rooms: make([]pub.RoomListing, 0, len(props))}
	for _, p := range props {
		info := p.Info
		entry := pub.RoomListing{
			RoomID:         p.ID,
			RoomNotes:      p.Notes,
			NeedPass:       p.Passworded,
			Team1:          info.T1Count,
			Team2:          info.T2Count,
			BestOf:         info.BestOf,
			DuelFlag:       info.DuelFlags,
			ForbiddenTypes: info.ForbiddenTypes,
			ExtraRules:     info.ExtraRules,
			StartLP:        info.StartingLP,
			StartHand:      info.StartingDrawCount,
			DrawCount:      info.DrawCountPerTurn,
			TimeLimit:      info.TimeLimitInSeconds,
			Rule:           uint8(info.Allowed),
			NoCheck:        info.DontCheckDeck,
			NoShuffle:      info.DontShuffleDeck,
			BanlistHash:    info.BanlistHash,
			IStart:         "waiting",
			Users:          make([]pub.RoomUser, 0, len(p.Duelists)),
		}
		if p.Started {
			entry.IStart = "start"
		}
		for pos, name := range p.Duelists {
			entry.Users = append(entry.Users, pub.RoomUser{Name: name, Pos: pos})
		}
		sort.Slice(entry.Users, func(i, j int) bool { return entry.Users[i].Pos < entry.Users[j].Pos })
		out.Rooms = append(out.Rooms, entry)
	}
	return out
}

func (l *Listing) Refresh() error {
	body, err := json.Marshal(BuildListing(l.rooms.GetAllRoomsProperties()))
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.body = body
	l.mu.Unlock()
	return nil
}

// Run refreshes the listing every interval until ctx ends.
func (l *Listing) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := l.Refresh(); err != nil {
			l.logger.Warn("refresh room listing", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (l *Listing) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	l.mu.RLock()
	body := l.body
	l.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
