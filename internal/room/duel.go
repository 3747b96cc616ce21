package room

import (
	"context"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/DoyleJ11/duel-rooms/internal/duel"
	"github.com/DoyleJ11/duel-rooms/internal/session"
	"github.com/DoyleJ11/duel-rooms/internal/types"
)

func (r *Room) engineContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.ctx, r.deps.EngineTimeout)
}

// beginDuel creates the duel, places every deck and runs the engine up to
// its first prompt. The returned event, if any, must be fed back to the
// session machine.
func (r *Room) beginDuel(team0First bool) session.Event {
	if err := r.setupDuel(team0First); err != nil {
		r.logger.Error("start duel", zap.Error(err))
		return session.DuelFailed{}
	}
	r.logger.Info("duel started", zap.Bool("team0_first", team0First))
	return r.drive()
}

func (r *Room) setupDuel(team0First bool) error {
	if r.deps.Engines == nil {
		return fmt.Errorf("no duel engine configured: %w", duel.ErrEngineFailure)
	}
	ctx, cancel := r.engineContext()
	defer cancel()

	eng, err := r.deps.Engines.Open(ctx)
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	info := r.opts.Info
	player := duel.PlayerOptions{
		StartingLP:        info.StartingLP,
		StartingDrawCount: info.StartingDrawCount,
		DrawCountPerTurn:  info.DrawCountPerTurn,
	}
	opts := duel.Options{
		Seed:  [4]uint64{rand.Uint64(), rand.Uint64(), rand.Uint64(), rand.Uint64()},
		Flags: info.DuelFlags,
		Team1: player,
		Team2: player,
	}
	h, err := eng.Create(ctx, opts)
	if err != nil {
		_ = eng.Close()
		return fmt.Errorf("create duel: %w", err)
	}
	r.duel = &runningDuel{engine: eng, handle: h}

	counts := [2]uint8{info.T1Count, info.T2Count}
	for team := uint8(0); team < 2; team++ {
		// The engine's first team always moves first.
		engineTeam := team
		if !team0First {
			engineTeam = 1 - team
		}
		for slot := uint8(0); slot < counts[team]; slot++ {
			if err := r.placeDeck(ctx, session.Position{Team: team, Slot: slot}, engineTeam); err != nil {
				return err
			}
		}
	}
	if err := eng.Start(ctx, h); err != nil {
		return fmt.Errorf("start duel: %w", err)
	}
	return nil
}

func (r *Room) placeDeck(ctx context.Context, pos session.Position, engineTeam uint8) error {
	id, ok := r.duelists[pos]
	if !ok {
		return fmt.Errorf("seat %d/%d empty", pos.Team, pos.Slot)
	}
	m := r.clients[id]
	if m == nil || m.deck == nil {
		return fmt.Errorf("seat %d/%d has no deck", pos.Team, pos.Slot)
	}

	main := append([]uint32(nil), m.deck.Main...)
	if !r.opts.Info.DontShuffleDeck {
		rand.Shuffle(len(main), func(i, j int) { main[i], main[j] = main[j], main[i] })
	}
	place := func(code, loc uint32) error {
		return r.duel.engine.AddCard(ctx, r.duel.handle, duel.CardInfo{
			Team:     engineTeam,
			Duelist:  pos.Slot,
			Code:     code,
			Con:      engineTeam,
			Location: loc,
			Position: duel.PositionFaceDownDefense,
		})
	}
	for _, code := range main {
		if err := place(code, duel.LocationDeck); err != nil {
			return fmt.Errorf("add card %d: %w", code, err)
		}
	}
	for _, code := range m.deck.Extra {
		if err := place(code, duel.LocationExtra); err != nil {
			return fmt.Errorf("add card %d: %w", code, err)
		}
	}
	return nil
}

// drive processes the duel until it waits for a response or ends,
// forwarding every message batch to the room.
func (r *Room) drive() session.Event {
	if r.duel == nil {
		return nil
	}
	ctx, cancel := r.engineContext()
	defer cancel()
	for {
		status, err := r.duel.engine.Process(ctx, r.duel.handle)
		if err != nil {
			r.logger.Error("duel process", zap.Error(err))
			return session.DuelFailed{}
		}
		msgs, err := r.duel.engine.GetMessages(ctx, r.duel.handle)
		if err != nil {
			r.logger.Error("duel messages", zap.Error(err))
			return session.DuelFailed{}
		}
		if len(msgs) > 0 {
			r.sendAll(types.DuelMessage(msgs))
		}
		switch status {
		case duel.StatusContinue:
		case duel.StatusAwaiting:
			return nil
		case duel.StatusEnd:
			r.logger.Info("duel finished")
			r.teardownDuel()
			return session.DuelEnded{}
		default:
			r.logger.Error("duel process", zap.Uint8("status", uint8(status)))
			return session.DuelFailed{}
		}
	}
}

// replayField shows a late spectator the board as it stands.
func (r *Room) replayField(id session.ClientID) {
	m := r.clients[id]
	if m == nil || r.duel == nil {
		return
	}
	ctx, cancel := r.engineContext()
	defer cancel()
	field, err := r.duel.engine.QueryField(ctx, r.duel.handle)
	if err != nil {
		r.logger.Warn("query field", zap.Error(err))
		return
	}
	if len(field) > 0 {
		m.client.Send(types.DuelMessage(field))
	}
}

func (r *Room) onResponse(m *member, data []byte) {
	if _, ok := r.state.(*session.Dueling); !ok || r.duel == nil || m.pos.IsSpectator() {
		return
	}
	ctx, cancel := r.engineContext()
	err := r.duel.engine.SetResponse(ctx, r.duel.handle, data)
	cancel()
	if err != nil {
		r.logger.Error("duel response", zap.Error(err))
		r.dispatch(session.DuelFailed{})
		return
	}
	if ev := r.drive(); ev != nil {
		r.dispatch(ev)
	}
}

// teardownDuel destroys the running duel and releases its engine.
func (r *Room) teardownDuel() {
	if r.duel == nil {
		return
	}
	d := r.duel
	r.duel = nil
	// Runs during shutdown too, so it must not inherit the room context.
	ctx, cancel := context.WithTimeout(context.Background(), r.deps.EngineTimeout)
	defer cancel()
	if err := d.engine.Destroy(ctx, d.handle); err != nil {
		r.logger.Warn("destroy duel", zap.Error(err))
	}
	if err := d.engine.Close(); err != nil {
		r.logger.Warn("close engine", zap.Error(err))
	}
}
