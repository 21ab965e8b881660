package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

var (
	// ErrInsufficientCards means the deck cannot fill both hands.
	ErrInsufficientCards = errors.New("insufficient cards to deal")
	// ErrInvalidRules means a match could not be playable at all.
	ErrInvalidRules = errors.New("invalid match rules")
)

// NewDeck returns every (suit, rank) pair exactly once, ordered by suit then rank.
func NewDeck() []Card {
	deck := make([]Card, 0, len(Suits)*MaxRank)
	for _, s := range Suits {
		for r := MinRank; r <= MaxRank; r++ {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// Shuffle permutes deck in place (Fisher–Yates).
// A nil rng uses the package-level source from math/rand/v2.
func Shuffle(deck []Card, rng *rand.Rand) {
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	for i := len(deck) - 1; i > 0; i-- {
		j := intN(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// Deal pops handSize cards per player off the tail of deck, alternating
// player 0 then player 1. The remaining deck is returned alongside.
// Empty hands are never dealt.
func Deal(deck []Card, handSize int) (hands [2][]Card, rest []Card, err error) {
	if handSize < 1 {
		return hands, deck, fmt.Errorf("%w: hand size %d", ErrInvalidRules, handSize)
	}
	if len(deck) < 2*handSize {
		return hands, deck, ErrInsufficientCards
	}
	hands[0] = make([]Card, 0, handSize)
	hands[1] = make([]Card, 0, handSize)
	n := len(deck)
	for i := 0; i < handSize; i++ {
		hands[0] = append(hands[0], deck[n-1])
		hands[1] = append(hands[1], deck[n-2])
		n -= 2
	}
	return hands, deck[:n], nil
}
