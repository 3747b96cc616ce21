package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/duel-rooms/internal/card"
	"github.com/DoyleJ11/duel-rooms/internal/deck"
	"github.com/DoyleJ11/duel-rooms/internal/duel"
	"github.com/DoyleJ11/duel-rooms/internal/events"
	"github.com/DoyleJ11/duel-rooms/internal/session"
	"github.com/DoyleJ11/duel-rooms/internal/types"
)

var (
	ErrWrongPassword = errors.New("wrong room password")
	ErrRoomClosed    = errors.New("room closed")
	ErrBadTeamSize   = errors.New("team sizes must be between 1 and 3")
)

const defaultEngineTimeout = 5 * time.Second

// Client is a connection as seen by a room. The room never owns it: Send
// must not block and Disconnect must be safe to call more than once.
type Client interface {
	ID() session.ClientID
	Name() string
	Send(msg types.ServerMessage)
	Disconnect()
}

// Owner is the registry a room belongs to.
type Owner interface {
	Add(r *Room) (uint32, error)
	Remove(id uint32)
}

type Options struct {
	Info     types.HostInfo
	Limits   deck.Limits
	Banlist  *card.Banlist
	Password string
	Notes    string
}

func (o Options) Validate() error {
	if o.Info.T1Count < 1 || o.Info.T1Count > 3 || o.Info.T2Count < 1 || o.Info.T2Count > 3 {
		return ErrBadTeamSize
	}
	return nil
}

type Deps struct {
	Catalog       card.Catalog
	Engines       duel.Provider
	Events        events.Publisher
	Logger        *zap.Logger
	EngineTimeout time.Duration
}

// Messages a room accepts through Post.
type Msg interface{ isRoomMsg() }

type Join struct{ Client Client }

// Leave reports that a client's connection is gone.
type Leave struct{ ID session.ClientID }

type Chat struct {
	ID   session.ClientID
	Text string
}

type ToDuelist struct{ ID session.ClientID }

type ToObserver struct{ ID session.ClientID }

type UpdateDeck struct {
	ID   session.ClientID
	Main []uint32
	Side []uint32
}

type Ready struct {
	ID    session.ClientID
	Value bool
}

type Kick struct {
	ID  session.ClientID
	Pos uint8
}

type TryStart struct{ ID session.ClientID }

type ChooseRPS struct {
	ID    session.ClientID
	Value uint8
}

type TurnChoice struct {
	ID         session.ClientID
	GoingFirst bool
}

type Rematch struct {
	ID     session.ClientID
	Answer bool
}

// Response forwards a duelist's answer to the duel engine.
type Response struct {
	ID   session.ClientID
	Data []byte
}

type TryClose struct{}

type GetState struct {
	Reply chan View
}

func (Join) isRoomMsg()       {}
func (Leave) isRoomMsg()      {}
func (Chat) isRoomMsg()       {}
func (ToDuelist) isRoomMsg()  {}
func (ToObserver) isRoomMsg() {}
func (UpdateDeck) isRoomMsg() {}
func (Ready) isRoomMsg()      {}
func (Kick) isRoomMsg()       {}
func (TryStart) isRoomMsg()   {}
func (ChooseRPS) isRoomMsg()  {}
func (TurnChoice) isRoomMsg() {}
func (Rematch) isRoomMsg()    {}
func (Response) isRoomMsg()   {}
func (TryClose) isRoomMsg()   {}
func (GetState) isRoomMsg()   {}

// View is a copy of the room internals for tests and debugging.
type View struct {
	State    string
	Host     session.ClientID
	Clients  int
	Duelists map[session.Position]session.ClientID
	Ready    map[session.ClientID]bool
	Dueling  bool
}

// Properties is the listing snapshot of a room.
type Properties struct {
	ID         uint32
	Info       types.HostInfo
	Notes      string
	Passworded bool
	State      string
	Started    bool
	Duelists   map[uint8]string
}

type member struct {
	client   Client
	pos      session.Position
	lastTeam uint8
	ready    bool
	deck     *deck.Deck
}

type runningDuel struct {
	engine duel.Engine
	handle duel.Handle
}

// Room serializes every event for one room on its own goroutine. The
// membership maps are written only by that goroutine, under mu, so
// Properties can read them from anywhere.
type Room struct {
	id     uint32
	inbox  chan Msg
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	owner  Owner
	opts   Options
	deps   Deps
	logger *zap.Logger

	mu       sync.RWMutex
	clients  map[session.ClientID]*member
	duelists map[session.Position]session.ClientID
	host     session.ClientID
	state    session.State

	emptied bool
	duel    *runningDuel
}

// New registers the room with owner and starts its event loop.
func New(parent context.Context, owner Owner, opts Options, deps Deps) (*Room, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Limits == (deck.Limits{}) {
		opts.Limits = deck.DefaultLimits()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Catalog == nil {
		deps.Catalog = card.NewMemoryCatalog()
	}
	if deps.EngineTimeout <= 0 {
		deps.EngineTimeout = defaultEngineTimeout
	}

	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		inbox:    make(chan Msg, 64),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		owner:    owner,
		opts:     opts,
		deps:     deps,
		clients:  make(map[session.ClientID]*member),
		duelists: make(map[session.Position]session.ClientID),
		state:    &session.Waiting{},
	}
	id, err := owner.Add(r)
	if err != nil {
		cancel()
		return nil, err
	}
	r.mu.Lock()
	r.id = id
	r.mu.Unlock()
	r.logger = deps.Logger.With(zap.Uint32("room", r.id))
	r.logger.Info("room created",
		zap.Uint8("team1", opts.Info.T1Count),
		zap.Uint8("team2", opts.Info.T2Count),
		zap.Bool("passworded", opts.Password != ""))

	go r.loop()
	return r, nil
}

func (r *Room) ID() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.id
}

// Done is closed once the room has stopped and released its clients.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) CheckPassword(pass string) error {
	if r.opts.Password == "" || r.opts.Password == pass {
		return nil
	}
	return ErrWrongPassword
}

// Post queues m for the room. It reports false once the room is gone.
func (r *Room) Post(m Msg) bool {
	if r.ctx.Err() != nil {
		return false
	}
	select {
	case r.inbox <- m:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *Room) Properties() Properties {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := Properties{
		ID:         r.id,
		Info:       r.opts.Info,
		Notes:      r.opts.Notes,
		Passworded: r.opts.Password != "",
		State:      r.state.Name(),
		Duelists:   make(map[uint8]string, len(r.duelists)),
	}
	_, waiting := r.state.(*session.Waiting)
	p.Started = !waiting
	for pos, id := range r.duelists {
		if m := r.clients[id]; m != nil {
			p.Duelists[r.encode(pos)] = m.client.Name()
		}
	}
	return p
}

func (r *Room) loop() {
	defer close(r.done)
	defer r.cancel()
	for {
		select {
		case <-r.ctx.Done():
			r.teardown()
			r.owner.Remove(r.id)
			return
		case m := <-r.inbox:
			r.handle(m)
			// A room closed before anyone joined has nobody left to remove.
			if _, closing := r.state.(*session.Closing); closing && len(r.clients) == 0 {
				r.emptied = true
			}
			if r.emptied {
				r.teardown()
				r.logger.Info("room removed")
				r.cancel()
				r.owner.Remove(r.id)
				return
			}
		}
	}
}

// teardown releases the duel engine and disconnects whoever is left.
func (r *Room) teardown() {
	r.teardownDuel()
	for id := range r.clients {
		r.drop(id)
	}
}

func (r *Room) handle(m Msg) {
	switch msg := m.(type) {
	case Join:
		r.onJoin(msg.Client)
	case Leave:
		r.onLeave(msg.ID)
	case Chat:
		r.withMember(msg.ID, func(mb *member) { r.onChat(mb, msg.Text) })
	case ToDuelist:
		r.inWaiting(msg.ID, r.onToDuelist)
	case ToObserver:
		r.inWaiting(msg.ID, r.onToObserver)
	case UpdateDeck:
		r.inWaiting(msg.ID, func(mb *member) { r.onUpdateDeck(mb, msg.Main, msg.Side) })
	case Ready:
		r.inWaiting(msg.ID, func(mb *member) { r.onReady(mb, msg.Value) })
	case Kick:
		r.inWaiting(msg.ID, func(mb *member) { r.onKick(mb, msg.Pos) })
	case TryStart:
		r.withMember(msg.ID, func(*member) { r.dispatch(session.TryStart{Client: msg.ID}) })
	case ChooseRPS:
		r.withMember(msg.ID, func(*member) { r.dispatch(session.ChooseRPS{Client: msg.ID, Value: msg.Value}) })
	case TurnChoice:
		r.withMember(msg.ID, func(*member) {
			r.dispatch(session.TurnChoice{Client: msg.ID, GoingFirst: msg.GoingFirst})
		})
	case Rematch:
		r.withMember(msg.ID, func(*member) { r.dispatch(session.Rematch{Client: msg.ID, Answer: msg.Answer}) })
	case Response:
		r.withMember(msg.ID, func(mb *member) { r.onResponse(mb, msg.Data) })
	case TryClose:
		r.dispatch(session.Shutdown{})
	case GetState:
		msg.Reply <- r.view()
	default:
		panic(fmt.Sprintf("room: unhandled message %T", m))
	}
}

// withMember drops messages from clients that already left.
func (r *Room) withMember(id session.ClientID, fn func(*member)) {
	mb := r.clients[id]
	if mb == nil {
		r.logger.Debug("message from unknown client dropped", zap.String("client", string(id)))
		return
	}
	fn(mb)
}

func (r *Room) inWaiting(id session.ClientID, fn func(*member)) {
	if _, ok := r.state.(*session.Waiting); !ok {
		return
	}
	r.withMember(id, fn)
}

func (r *Room) view() View {
	v := View{
		State:    r.state.Name(),
		Host:     r.host,
		Clients:  len(r.clients),
		Duelists: make(map[session.Position]session.ClientID, len(r.duelists)),
		Ready:    make(map[session.ClientID]bool),
		Dueling:  r.duel != nil,
	}
	for pos, id := range r.duelists {
		v.Duelists[pos] = id
	}
	for id, mb := range r.clients {
		v.Ready[id] = mb.ready
	}
	return v
}

func (r *Room) setState(s session.State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	r.logger.Info("room state", zap.String("state", s.Name()))
	if err := r.deps.Events.Publish(events.SubjectRoomState, events.RoomEvent{ID: r.id, State: s.Name()}); err != nil {
		r.logger.Warn("publish room state", zap.Error(err))
	}
}

func (r *Room) deckRules() deck.Rules {
	return deck.Rules{
		Limits:         r.opts.Limits,
		ForbiddenTypes: r.opts.Info.ForbiddenTypes,
		Allowed:        r.opts.Info.Allowed,
		Banlist:        r.opts.Banlist,
	}
}
