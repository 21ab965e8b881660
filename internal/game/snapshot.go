package game

// Snapshot is the player-scoped view of a match. The opponent's hand is
// reduced to a count; their played card only appears once both are committed.
type Snapshot struct {
	PlayerNames       [2]string `json:"playerNames"`
	HP                [2]int    `json:"hp"`
	PlayedCards       [2]*Card  `json:"playedCards"`
	CurrentTurn       int       `json:"currentTurn"`
	Phase             Phase     `json:"phase"`
	InitialHP         int       `json:"initialHP"`
	Hand              []Card    `json:"hand"`
	OpponentCardCount int       `json:"opponentCardCount"`
}

// Project builds the snapshot sent to player i.
func (m *Match) Project(i int) Snapshot {
	s := Snapshot{
		PlayerNames:       m.Names,
		HP:                m.HP,
		CurrentTurn:       m.CurrentTurn,
		Phase:             m.Phase,
		InitialHP:         m.InitialHP,
		Hand:              append([]Card{}, m.Hands[i]...),
		OpponentCardCount: len(m.Hands[1-i]),
	}
	reveal := m.BothPlayed()
	for p, c := range m.Played {
		if c == nil || (p != i && !reveal) {
			continue
		}
		cp := *c
		s.PlayedCards[p] = &cp
	}
	return s
}
