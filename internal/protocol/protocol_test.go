package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/robalobadob/cardduel/apps/go-server/internal/game"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    Inbound
		wantErr error
	}{
		{"find match", `{"t":"find_match"}`, FindMatch{}, nil},
		{"find game alias", `{"t":"find_game","p":{}}`, FindMatch{}, nil},
		{"play card", `{"t":"play_card","p":{"cardIndex":3}}`, PlayCard{CardIndex: 3}, nil},
		{"negative index passes decoding", `{"t":"play_card","p":{"cardIndex":-1}}`, PlayCard{CardIndex: -1}, nil},
		{"missing index", `{"t":"play_card","p":{}}`, nil, ErrBadPayload},
		{"missing payload", `{"t":"play_card"}`, nil, ErrBadPayload},
		{"string index", `{"t":"play_card","p":{"cardIndex":"2"}}`, nil, ErrBadPayload},
		{"fractional index", `{"t":"play_card","p":{"cardIndex":1.5}}`, nil, ErrBadPayload},
		{"unknown", `{"t":"request_next_round"}`, nil, ErrUnknownEvent},
		{"no type", `{"p":{}}`, nil, ErrMalformed},
		{"not json", `hello`, nil, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.frame))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestEncodeSnapshot(t *testing.T) {
	snap := game.Snapshot{
		PlayerNames: [2]string{"Player 1", "Player 2"},
		HP:          [2]int{5, 4},
		Phase:       game.PhaseTurn1,
		CurrentTurn: 1,
		InitialHP:   5,
		Hand:        []game.Card{{Suit: game.Heart, Rank: 7}},
	}
	b, err := Encode(NextTurn(snap))
	if err != nil {
		t.Fatal(err)
	}
	var env struct {
		T string         `json:"t"`
		P map[string]any `json:"p"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatal(err)
	}
	if env.T != "next_turn" {
		t.Errorf("event = %q", env.T)
	}
	for _, k := range []string{"playerNames", "hp", "playedCards", "currentTurn", "phase", "initialHP", "hand", "opponentCardCount"} {
		if _, ok := env.P[k]; !ok {
			t.Errorf("payload missing %q: %s", k, b)
		}
	}
	if _, ok := env.P["Kind"]; ok {
		t.Errorf("kind leaked into payload: %s", b)
	}
}

func TestEncodeRoundResultPush(t *testing.T) {
	b, err := Encode(RoundResult{Winner: game.NoWinner, Message: "tie"})
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if !strings.Contains(s, `"t":"round_result"`) || !strings.Contains(s, `"winner":-1`) || !strings.Contains(s, `"loser":null`) {
		t.Errorf("unexpected frame %s", s)
	}
}

func TestEncodeWaiting(t *testing.T) {
	b, err := Encode(WaitingForOpponent{})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"t":"waiting_for_opponent","p":{}}` {
		t.Errorf("unexpected frame %s", b)
	}
}
