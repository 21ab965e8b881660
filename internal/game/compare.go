package game

// Compare decides a round between player 0's card a and player 1's card b.
// Higher rank wins; equal ranks fall back to suit order. It returns 0 or 1
// for the winning player, or NoWinner when the cards are identical, which
// cannot happen with a single deck.
func Compare(a, b Card) int {
	switch {
	case a.Rank > b.Rank:
		return 0
	case b.Rank > a.Rank:
		return 1
	case a.Suit > b.Suit:
		return 0
	case b.Suit > a.Suit:
		return 1
	}
	return NoWinner
}
