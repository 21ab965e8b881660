// apps/go-server/internal/engine/engine.go
//
// Match engine: matchmaking, move routing, timed round resolution and
// disconnect handling for every active room.
// Responsibilities:
//   - Pair connections through the matchmaking queue and create rooms.
//   - Validate plays against the authoritative match state.
//   - Drive reveal → compare → next turn with scheduled continuations.
//   - Tear rooms down on game over or disconnect and record the outcome.
//
// Notes:
//   - Engine is single-threaded: every method must run on the goroutine
//     that owns it (see Loop and Service).
//   - A scheduled task carries its room ID and expected phase; on wake it
//     re-checks both, so a task that outlives its room is a no-op.

package engine

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/cardduel/apps/go-server/internal/game"
	"github.com/robalobadob/cardduel/apps/go-server/internal/matchmaking"
	"github.com/robalobadob/cardduel/apps/go-server/internal/protocol"
	"github.com/robalobadob/cardduel/apps/go-server/internal/session"
	"github.com/robalobadob/cardduel/apps/go-server/internal/store"
)

// Sender delivers a message to one connection. Sends to connections that
// are gone must be dropped silently, and Send must not block.
type Sender interface {
	Send(conn string, msg protocol.Outbound)
}

// Recorder receives finished matches.
type Recorder interface {
	Record(r store.MatchResult)
}

// Config holds the match tunables.
type Config struct {
	Rules         game.Rules
	RevealDelay   time.Duration // both cards visible → round resolved
	NextTurnDelay time.Duration // round resolved → next turn
}

// DefaultConfig is the standard match pace.
var DefaultConfig = Config{
	Rules:         game.DefaultRules,
	RevealDelay:   time.Second,
	NextTurnDelay: 2 * time.Second,
}

// Engine owns the room repository, the queue and the session registry.
type Engine struct {
	cfg      Config
	out      Sender
	sched    Scheduler
	rec      Recorder
	rooms    store.Rooms
	queue    *matchmaking.Queue
	sessions *session.Registry
	timers   map[string]Timer // pending continuation per room
	newID    func() string
	rng      *rand.Rand
	now      func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithRecorder stores finished matches.
func WithRecorder(r Recorder) Option { return func(e *Engine) { e.rec = r } }

// WithRooms replaces the in-memory room repository.
func WithRooms(r store.Rooms) Option { return func(e *Engine) { e.rooms = r } }

// WithIDs replaces the room ID generator.
func WithIDs(fn func() string) Option { return func(e *Engine) { e.newID = fn } }

// WithRand fixes the shuffle source.
func WithRand(r *rand.Rand) Option { return func(e *Engine) { e.rng = r } }

// New constructs an engine. sched must run callbacks on the engine's goroutine.
func New(cfg Config, out Sender, sched Scheduler, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		out:      out,
		sched:    sched,
		rooms:    store.NewMemoryRooms(),
		queue:    matchmaking.New(),
		sessions: session.New(),
		timers:   make(map[string]Timer),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Connect registers a new connection.
func (e *Engine) Connect(conn string, p session.Profile) {
	e.sessions.Attach(conn, p)
	log.Debug().Str("conn", conn).Str("user", p.UserID).Msg("connected")
}

// Handle routes one decoded client message.
func (e *Engine) Handle(conn string, in protocol.Inbound) {
	switch m := in.(type) {
	case protocol.FindMatch:
		e.FindMatch(conn)
	case protocol.PlayCard:
		e.PlayCard(conn, m.CardIndex)
	}
}

// FindMatch queues conn, or pairs it with the waiting connection.
func (e *Engine) FindMatch(conn string) {
	if seat, ok := e.sessions.Lookup(conn); ok {
		log.Debug().Str("conn", conn).Str("room", seat.RoomID).Msg("find_match while seated")
		e.sendError(conn, "Already in a match.")
		return
	}

	playerNumber := 0
	if w, ok := e.queue.Waiting(); ok && w != conn {
		playerNumber = 1
	}
	e.out.Send(conn, protocol.AssignPlayerNumber{PlayerNumber: playerNumber, InitialHP: e.cfg.Rules.InitialHP})

	opponent, paired := e.queue.Offer(conn)
	if !paired {
		e.out.Send(conn, protocol.WaitingForOpponent{})
		log.Info().Str("conn", conn).Msg("waiting for opponent")
		return
	}
	e.startMatch(opponent, conn)
}

// startMatch creates a room with p0 as player 0.
func (e *Engine) startMatch(p0, p1 string) {
	id := e.newID()
	players := [2]string{p0, p1}
	names := [2]string{e.sessions.DisplayName(p0, 0), e.sessions.DisplayName(p1, 1)}

	m, err := game.NewMatch(id, players, names, e.cfg.Rules, e.rng)
	if err != nil {
		log.Error().Err(err).Str("room", id).Msg("match setup failed")
		for _, c := range players {
			e.sendError(c, "Could not start a match. Please try again later.")
		}
		return
	}

	e.rooms.Save(m)
	for i, c := range players {
		e.sessions.Seat(c, id, i)
	}
	for i, c := range players {
		e.out.Send(c, protocol.MatchStart(m.Project(i)))
	}
	log.Info().Str("room", id).Str("p0", p0).Str("p1", p1).Msg("match started")
}

// PlayCard applies a play from conn.
func (e *Engine) PlayCard(conn string, cardIndex int) {
	m, player, ok := e.roomOf(conn)
	if !ok {
		e.sendError(conn, "Not currently in a game.")
		return
	}

	card, err := m.Play(player, cardIndex)
	if err != nil {
		log.Debug().Err(err).Str("room", m.ID).Int("player", player).Int("index", cardIndex).Msg("play rejected")
		e.sendError(conn, playErrorText(err))
		return
	}
	log.Debug().Str("room", m.ID).Int("player", player).Str("card", card.String()).Msg("card played")

	e.broadcast(m, protocol.GameStateUpdate)
	if m.Phase == game.PhaseComparing {
		e.schedule(m.ID, game.PhaseComparing, e.cfg.RevealDelay, e.resolve)
	}
}

// resolve runs after the reveal delay.
func (e *Engine) resolve(m *game.Match) {
	res, err := m.Resolve()
	if err != nil {
		log.Warn().Err(err).Str("room", m.ID).Msg("resolve skipped")
		return
	}
	if res.Winner == game.NoWinner {
		log.Warn().Str("room", m.ID).Str("c0", res.Played[0].String()).Str("c1", res.Played[1].String()).
			Msg("comparison produced no winner, round pushed")
	} else {
		log.Info().Str("room", m.ID).Int("winner", res.Winner).Ints("hp", res.HP[:]).Msg("round resolved")
	}

	msg := protocol.RoundResult{
		Winner:      res.Winner,
		PlayedCards: res.Played,
		HP:          res.HP,
		Message:     res.Message,
	}
	if res.Loser != game.NoWinner {
		l := res.Loser
		msg.Loser = &l
	}
	for _, c := range m.Players {
		e.out.Send(c, msg)
	}

	if res.Over {
		e.finish(m)
		return
	}
	e.schedule(m.ID, game.PhaseComparing, e.cfg.NextTurnDelay, e.advance)
}

// advance runs after the next-turn delay.
func (e *Engine) advance(m *game.Match) {
	if err := m.Advance(); err != nil {
		log.Warn().Err(err).Str("room", m.ID).Msg("advance skipped")
		return
	}
	log.Debug().Str("room", m.ID).Int("turn", m.CurrentTurn).Msg("next turn")
	e.broadcast(m, protocol.NextTurn)
}

// finish announces the result of a completed match and closes the room.
func (e *Engine) finish(m *game.Match) {
	over := protocol.GameOver{Winner: m.Winner, Message: m.Summary()}
	for _, c := range m.Players {
		e.out.Send(c, over)
	}
	log.Info().Str("room", m.ID).Int("winner", m.Winner).Str("reason", string(m.Reason)).Msg("game over")
	e.record(m)
	e.teardown(m)
}

// Disconnect forfeits any match conn is in and forgets the connection.
func (e *Engine) Disconnect(conn string) {
	defer e.sessions.Detach(conn)

	if e.queue.RemoveIfWaiting(conn) {
		log.Info().Str("conn", conn).Msg("waiting player left")
	}

	m, leaver, ok := e.roomOf(conn)
	if !ok {
		return
	}
	m.Forfeit(leaver)
	winner := 1 - leaver
	remaining := m.Players[winner]
	e.out.Send(remaining, protocol.GameOver{Winner: winner, Message: m.Summary()})
	e.out.Send(remaining, protocol.ErrorMessage{Message: "Opponent (" + m.Names[leaver] + ") has left the game."})

	log.Info().Str("room", m.ID).Str("conn", conn).Int("player", leaver).Msg("room closed after disconnect")
	e.record(m)
	e.teardown(m)
}

// teardown deletes the room, unseats both players and stops any timer.
func (e *Engine) teardown(m *game.Match) {
	if t, ok := e.timers[m.ID]; ok {
		t.Stop()
		delete(e.timers, m.ID)
	}
	e.rooms.Delete(m.ID)
	for _, c := range m.Players {
		e.sessions.Unseat(c, m.ID)
	}
}

// schedule runs fn on roomID after d, provided the room still exists and
// is still in phase expect.
func (e *Engine) schedule(roomID string, expect game.Phase, d time.Duration, fn func(*game.Match)) {
	e.timers[roomID] = e.sched.AfterFunc(d, func() {
		delete(e.timers, roomID)
		m, err := e.rooms.Get(roomID)
		if err != nil {
			log.Debug().Str("room", roomID).Msg("timer fired for closed room")
			return
		}
		if m.Phase != expect {
			log.Debug().Str("room", roomID).Str("phase", string(m.Phase)).Msg("timer fired for stale phase")
			return
		}
		fn(m)
	})
}

func (e *Engine) record(m *game.Match) {
	if e.rec == nil {
		return
	}
	e.rec.Record(store.MatchResult{
		RoomID:     m.ID,
		Names:      m.Names,
		UserIDs:    [2]string{e.sessions.Profile(m.Players[0]).UserID, e.sessions.Profile(m.Players[1]).UserID},
		HP:         m.HP,
		Winner:     m.Winner,
		Reason:     string(m.Reason),
		Rounds:     m.Rounds,
		FinishedAt: e.now().UTC(),
	})
}

func (e *Engine) roomOf(conn string) (*game.Match, int, bool) {
	seat, ok := e.sessions.Lookup(conn)
	if !ok {
		return nil, 0, false
	}
	m, err := e.rooms.Get(seat.RoomID)
	if err != nil {
		e.sessions.Unseat(conn, seat.RoomID)
		return nil, 0, false
	}
	return m, seat.Player, true
}

func (e *Engine) broadcast(m *game.Match, wrap func(game.Snapshot) protocol.Snapshot) {
	for i, c := range m.Players {
		e.out.Send(c, wrap(m.Project(i)))
	}
}

func (e *Engine) sendError(conn, msg string) {
	e.out.Send(conn, protocol.ErrorMessage{Message: msg})
}

// playErrorText maps rule violations to client-facing text.
func playErrorText(err error) string {
	switch {
	case errors.Is(err, game.ErrNotYourTurn):
		return "Not your turn."
	case errors.Is(err, game.ErrInvalidCardIndex):
		return "Invalid card selection."
	case errors.Is(err, game.ErrRoundInProgress):
		return "Invalid game state to play."
	case errors.Is(err, game.ErrGameOver):
		return "Game is over."
	}
	return "Invalid move."
}

// Stats is a point-in-time view used by diagnostics.
type Stats struct {
	ActiveRooms []string `json:"activeRooms"`
	Waiting     bool     `json:"waiting"`
	Connections int      `json:"connections"`
	Timers      int      `json:"pendingTimers"`
}

// Stats reports current engine occupancy.
func (e *Engine) Stats() Stats {
	_, waiting := e.queue.Waiting()
	return Stats{
		ActiveRooms: e.rooms.IDs(),
		Waiting:     waiting,
		Connections: e.sessions.Connections(),
		Timers:      len(e.timers),
	}
}
