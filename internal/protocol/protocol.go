// apps/go-server/internal/protocol/protocol.go
//
// Wire format for the /ws connection.
// Every frame is a JSON envelope {"t": <event>, "p": <payload>}.
//
// Inbound (client → server) is a closed set decoded by Decode:
//   - find_match (alias find_game), no payload
//   - play_card {cardIndex}
//
// Outbound (server → client) messages implement Outbound and are framed
// by Encode.

package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/robalobadob/cardduel/apps/go-server/internal/game"
)

// Event is the envelope tag.
type Event string

const (
	EventFindMatch Event = "find_match"
	EventFindGame  Event = "find_game" // legacy alias of find_match
	EventPlayCard  Event = "play_card"

	EventAssignPlayerNumber Event = "assign_player_number"
	EventWaitingForOpponent Event = "waiting_for_opponent"
	EventMatchStart         Event = "match_start"
	EventGameStateUpdate    Event = "game_state_update"
	EventNextTurn           Event = "next_turn"
	EventRoundResult        Event = "round_result"
	EventGameOver           Event = "game_over"
	EventErrorMessage       Event = "error_message"
)

var (
	ErrMalformed    = errors.New("malformed message")
	ErrUnknownEvent = errors.New("unknown event")
	ErrBadPayload   = errors.New("invalid payload")
)

// Envelope frames every message.
type Envelope struct {
	T Event           `json:"t"`
	P json.RawMessage `json:"p,omitempty"`
}

// ---------------------------------------------------------------- inbound

// Inbound is implemented by FindMatch and PlayCard only.
type Inbound interface{ inbound() }

type FindMatch struct{}

type PlayCard struct {
	CardIndex int
}

func (FindMatch) inbound() {}
func (PlayCard) inbound()  {}

// Decode parses and validates one client frame.
func Decode(b []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch env.T {
	case EventFindMatch, EventFindGame:
		return FindMatch{}, nil
	case EventPlayCard:
		var p struct {
			CardIndex *int `json:"cardIndex"`
		}
		dec := json.NewDecoder(bytes.NewReader(env.P))
		if len(env.P) == 0 || dec.Decode(&p) != nil || p.CardIndex == nil {
			return nil, fmt.Errorf("%w: play_card requires an integer cardIndex", ErrBadPayload)
		}
		return PlayCard{CardIndex: *p.CardIndex}, nil
	case "":
		return nil, fmt.Errorf("%w: missing event type", ErrMalformed)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, env.T)
}

// --------------------------------------------------------------- outbound

// Outbound is a server → client message.
type Outbound interface {
	Event() Event
}

type AssignPlayerNumber struct {
	PlayerNumber int `json:"playerNumber"`
	InitialHP    int `json:"initialHP"`
}

type WaitingForOpponent struct{}

// Snapshot carries a player-scoped match view under one of the three
// snapshot events.
type Snapshot struct {
	Kind Event `json:"-"`
	game.Snapshot
}

func MatchStart(s game.Snapshot) Snapshot      { return Snapshot{Kind: EventMatchStart, Snapshot: s} }
func GameStateUpdate(s game.Snapshot) Snapshot { return Snapshot{Kind: EventGameStateUpdate, Snapshot: s} }
func NextTurn(s game.Snapshot) Snapshot        { return Snapshot{Kind: EventNextTurn, Snapshot: s} }

// RoundResult reports a resolved round. Winner is -1 on a push and Loser
// is null.
type RoundResult struct {
	Winner      int          `json:"winner"`
	Loser       *int         `json:"loser"`
	PlayedCards [2]game.Card `json:"playedCards"`
	HP          [2]int       `json:"hp"`
	Message     string       `json:"message"`
}

// GameOver ends the match. Winner is -1 for a draw.
type GameOver struct {
	Winner  int    `json:"winner"`
	Message string `json:"message"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

func (AssignPlayerNumber) Event() Event { return EventAssignPlayerNumber }
func (WaitingForOpponent) Event() Event { return EventWaitingForOpponent }
func (s Snapshot) Event() Event         { return s.Kind }
func (RoundResult) Event() Event        { return EventRoundResult }
func (GameOver) Event() Event           { return EventGameOver }
func (ErrorMessage) Event() Event       { return EventErrorMessage }

// Encode frames an outbound message.
func Encode(o Outbound) ([]byte, error) {
	p, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", o.Event(), err)
	}
	return json.Marshal(Envelope{T: o.Event(), P: p})
}
