// apps/go-server/internal/game/match.go
//
// Authoritative state transitions for a single duel.
// Responsibilities:
//   - Create a match: build, shuffle and deal the deck.
//   - Validate and apply plays (turn order, card index).
//   - Resolve a round: compare, apply damage, detect the end of the match.
//   - Advance to the next turn, or end the match early on forfeit.
//
// Notes:
//   - Timing lives in the engine package; everything here is synchronous.
//   - Once GameOver is set no method mutates hands, hp or played cards.
package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

var (
	ErrNotYourTurn      = errors.New("not your turn")
	ErrInvalidCardIndex = errors.New("invalid card selection")
	ErrRoundInProgress  = errors.New("round is being resolved")
	ErrGameOver         = errors.New("game is over")
	ErrInvalidPlayer    = errors.New("invalid player index")
	ErrNotComparing     = errors.New("both cards have not been played")
)

// NewMatch deals a fresh match between two connections.
// Player 0 acts first. A nil rng shuffles with the default source.
func NewMatch(id string, players, names [2]string, rules Rules, rng *rand.Rand) (*Match, error) {
	if rules.InitialHP < 1 {
		return nil, fmt.Errorf("%w: initial hp %d", ErrInvalidRules, rules.InitialHP)
	}
	deck := NewDeck()
	Shuffle(deck, rng)
	hands, _, err := Deal(deck, rules.HandSize)
	if err != nil {
		return nil, fmt.Errorf("deal %d cards: %w", rules.HandSize, err)
	}
	return &Match{
		ID:          id,
		Players:     players,
		Names:       names,
		Hands:       hands,
		HP:          [2]int{rules.InitialHP, rules.InitialHP},
		CurrentTurn: 0,
		Phase:       PhaseTurn0,
		InitialHP:   rules.InitialHP,
		RoundWinner: NoWinner,
		Winner:      NoWinner,
	}, nil
}

// IndexOf returns the player index held by conn, or -1.
func (m *Match) IndexOf(conn string) int {
	for i, p := range m.Players {
		if p == conn {
			return i
		}
	}
	return -1
}

// BothPlayed reports whether both cards for the round are committed.
func (m *Match) BothPlayed() bool { return m.Played[0] != nil && m.Played[1] != nil }

// Play commits the card at cardIndex from player p's hand.
//
// Validation rules:
//   - Match must not be over.
//   - Phase must be a turn phase (not comparing).
//   - p must be the current turn owner.
//   - cardIndex must address a card in p's hand.
//
// State transitions:
//   - Opponent has not played yet → turn passes to the opponent.
//   - Both have played → phase becomes comparing; the caller resolves later.
func (m *Match) Play(p, cardIndex int) (Card, error) {
	if p != 0 && p != 1 {
		return Card{}, ErrInvalidPlayer
	}
	if m.GameOver {
		return Card{}, ErrGameOver
	}
	if m.CurrentTurn != p {
		return Card{}, ErrNotYourTurn
	}
	// While comparing, CurrentTurn still names the player who moved last.
	if m.Phase == PhaseComparing {
		return Card{}, ErrRoundInProgress
	}
	if m.Phase != TurnPhase(p) {
		return Card{}, ErrNotYourTurn
	}
	hand := m.Hands[p]
	if cardIndex < 0 || cardIndex >= len(hand) {
		return Card{}, ErrInvalidCardIndex
	}

	card := hand[cardIndex]
	m.Hands[p] = append(hand[:cardIndex:cardIndex], hand[cardIndex+1:]...)
	m.Played[p] = &card

	if m.BothPlayed() {
		m.Phase = PhaseComparing
	} else {
		m.CurrentTurn = 1 - p
		m.Phase = TurnPhase(m.CurrentTurn)
	}
	return card, nil
}

// RoundResult describes one resolved round.
type RoundResult struct {
	Winner  int // NoWinner on an undecided comparison.
	Loser   int // NoWinner when there is no winner.
	Played  [2]Card
	HP      [2]int
	Message string
	Over    bool // The round ended the match.
}

// Resolve compares the committed cards, applies damage and checks whether
// the match is over. It must be called in the comparing phase.
func (m *Match) Resolve() (RoundResult, error) {
	if m.GameOver {
		return RoundResult{}, ErrGameOver
	}
	if m.Phase != PhaseComparing || !m.BothPlayed() {
		return RoundResult{}, ErrNotComparing
	}
	a, b := *m.Played[0], *m.Played[1]
	res := RoundResult{Winner: NoWinner, Loser: NoWinner, Played: [2]Card{a, b}}

	w := Compare(a, b)
	if w != NoWinner {
		l := 1 - w
		m.HP[l] = max(m.HP[l]-1, 0)
		m.RoundWinner = w
		res.Winner, res.Loser = w, l
		res.Message = fmt.Sprintf("Round result: %s (%s) wins!\n%s (%s) loses 1 HP.",
			m.Names[w], m.Played[w], m.Names[l], m.Played[l])
	} else {
		m.RoundWinner = NoWinner
		res.Message = "Round tied! (anomaly)"
	}
	m.Rounds++
	res.Message += fmt.Sprintf("\nHP: %s=%d, %s=%d", m.Names[0], m.HP[0], m.Names[1], m.HP[1])
	res.HP = m.HP

	if m.ended() {
		m.finish()
		res.Over = true
	}
	return res, nil
}

// ended reports the end condition: any hp at zero or a hand exhausted.
func (m *Match) ended() bool {
	return m.HP[0] <= 0 || m.HP[1] <= 0 || len(m.Hands[0]) == 0 || len(m.Hands[1]) == 0
}

// finish decides the winner, evaluated in order:
//  1. both hp ≤ 0 → draw
//  2. exactly one hp ≤ 0 → the opponent wins
//  3. hands exhausted, unequal hp → higher hp wins
//  4. otherwise → draw
func (m *Match) finish() {
	down0, down1 := m.HP[0] <= 0, m.HP[1] <= 0
	switch {
	case down0 && down1:
		m.Winner, m.Reason = NoWinner, EndKnockout
	case down0:
		m.Winner, m.Reason = 1, EndKnockout
	case down1:
		m.Winner, m.Reason = 0, EndKnockout
	case m.HP[0] != m.HP[1]:
		m.Reason = EndExhausted
		m.Winner = 0
		if m.HP[1] > m.HP[0] {
			m.Winner = 1
		}
	default:
		m.Winner, m.Reason = NoWinner, EndExhausted
	}
	m.GameOver = true
	m.Phase = PhaseGameOver
}

// Advance clears the round and hands the turn to the other player.
func (m *Match) Advance() error {
	if m.GameOver {
		return ErrGameOver
	}
	if m.Phase != PhaseComparing {
		return ErrNotComparing
	}
	m.Played = [2]*Card{}
	m.CurrentTurn = 1 - m.CurrentTurn
	m.Phase = TurnPhase(m.CurrentTurn)
	m.RoundWinner = NoWinner
	return nil
}

// Forfeit ends the match because player leaver left; the other player wins.
// It is a no-op on a match that is already over.
func (m *Match) Forfeit(leaver int) {
	if m.GameOver || (leaver != 0 && leaver != 1) {
		return
	}
	m.Winner = 1 - leaver
	m.Reason = EndForfeit
	m.GameOver = true
	m.Phase = PhaseGameOver
}

// Summary is the human-readable game-over message.
func (m *Match) Summary() string {
	msg := "Game over!"
	switch {
	case !m.GameOver:
		return ""
	case m.Reason == EndForfeit:
		return "Opponent disconnected.\nYou win!"
	case m.Winner == NoWinner:
		msg += "\nDraw!"
	case m.Reason == EndExhausted:
		msg += fmt.Sprintf("\n%s wins with higher HP! (HP: %d vs %d)",
			m.Names[m.Winner], m.HP[m.Winner], m.HP[1-m.Winner])
	default:
		msg += fmt.Sprintf("\n%s wins! (HP: %d)", m.Names[m.Winner], m.HP[m.Winner])
	}
	return msg
}
