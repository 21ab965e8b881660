// apps/go-server/internal/game/types.go
//
// Core type definitions for the card duel.
// Defines:
//   - Suit, Card: the 40-card deck (4 suits × ranks 1..10).
//   - Phase: the match engine state (p0_turn / p1_turn / comparing / game_over).
//   - Rules: tunables fixed at match creation.
//   - Match: the authoritative state of a single room.

package game

import (
	"fmt"
	"strconv"
)

// Suit ranks used for tie-breaking: Club < Diamond < Heart < Spade.
type Suit int

const (
	Club Suit = iota + 1
	Diamond
	Heart
	Spade
)

// Suits lists every suit in ascending order.
var Suits = [...]Suit{Club, Diamond, Heart, Spade}

const (
	MinRank = 1
	MaxRank = 10
)

func (s Suit) String() string {
	switch s {
	case Club:
		return "club"
	case Diamond:
		return "diamond"
	case Heart:
		return "heart"
	case Spade:
		return "spade"
	}
	return "suit(" + strconv.Itoa(int(s)) + ")"
}

// Symbol returns the suit glyph used in human-readable messages.
func (s Suit) Symbol() string {
	switch s {
	case Club:
		return "♣"
	case Diamond:
		return "♦"
	case Heart:
		return "♥"
	case Spade:
		return "♠"
	}
	return "?"
}

// MarshalText encodes the suit by name so payloads read {"suit":"spade"}.
func (s Suit) MarshalText() ([]byte, error) {
	if s < Club || s > Spade {
		return nil, fmt.Errorf("invalid suit %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Suit) UnmarshalText(b []byte) error {
	for _, v := range Suits {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown suit %q", string(b))
}

// Card is an immutable (suit, rank) pair.
type Card struct {
	Suit Suit `json:"suit"`
	Rank int  `json:"rank"`
}

// String renders a card as "♠ 10" with rank 1 shown as "A".
func (c Card) String() string {
	rank := strconv.Itoa(c.Rank)
	if c.Rank == 1 {
		rank = "A"
	}
	return c.Suit.Symbol() + " " + rank
}

// Phase is the match engine state.
type Phase string

const (
	PhaseTurn0     Phase = "p0_turn"
	PhaseTurn1     Phase = "p1_turn"
	PhaseComparing Phase = "comparing"
	PhaseGameOver  Phase = "game_over"
)

// TurnPhase returns the turn phase for player i.
func TurnPhase(i int) Phase {
	if i == 1 {
		return PhaseTurn1
	}
	return PhaseTurn0
}

// IsTurn reports whether the phase lets a player act.
func (p Phase) IsTurn() bool { return p == PhaseTurn0 || p == PhaseTurn1 }

// NoWinner marks a drawn match, a pushed round, or an undecided comparison.
const NoWinner = -1

// EndReason records why a match stopped.
type EndReason string

const (
	EndKnockout  EndReason = "knockout"
	EndExhausted EndReason = "hands_exhausted"
	EndForfeit   EndReason = "forfeit"
)

// Rules are fixed for the lifetime of a match.
type Rules struct {
	InitialHP int
	HandSize  int
}

// DefaultRules: 5 HP, 10 cards each.
var DefaultRules = Rules{InitialHP: 5, HandSize: 10}

// Match holds the authoritative state for one room.
type Match struct {
	ID          string    // Room identifier.
	Players     [2]string // Connection ids, index = player number.
	Names       [2]string // Display names.
	Hands       [2][]Card
	HP          [2]int
	Played      [2]*Card // Card committed this round, nil until played.
	CurrentTurn int
	Phase       Phase
	InitialHP   int
	RoundWinner int // NoWinner until a round resolves with a decision.
	Rounds      int // Rounds resolved so far.
	GameOver    bool
	Winner      int // NoWinner for a draw; meaningful once GameOver.
	Reason      EndReason
}
