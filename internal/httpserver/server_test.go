package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/robalobadob/cardduel/apps/go-server/internal/auth"
	"github.com/robalobadob/cardduel/apps/go-server/internal/engine"
	"github.com/robalobadob/cardduel/apps/go-server/internal/game"
	"github.com/robalobadob/cardduel/apps/go-server/internal/protocol"
	"github.com/robalobadob/cardduel/apps/go-server/internal/store"
)

type testEnv struct {
	ts  *httptest.Server
	hub *Hub
}

func newTestEnv(t *testing.T, withDB bool) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	hub := NewHub()
	cfg := engine.DefaultConfig
	cfg.RevealDelay = 10 * time.Millisecond
	cfg.NextTurnDelay = 10 * time.Millisecond

	opts := Options{Hub: hub}
	var engOpts []engine.Option
	var db *store.SQLite
	if withDB {
		var err error
		db, err = store.OpenSQLite(filepath.Join(t.TempDir(), "duel.db"))
		if err != nil {
			t.Fatal(err)
		}
		rec := store.NewRecorder(db, 16)
		go rec.Run(ctx)
		engOpts = append(engOpts, engine.WithRecorder(rec))
		opts.Results = db
		opts.Auth = auth.NewService(db, "test-secret", time.Hour)
	}
	svc := engine.NewService(cfg, hub, engOpts...)
	go func() { _ = svc.Run(ctx) }()
	opts.Game = svc

	ts := httptest.NewServer(New(opts).Router())
	t.Cleanup(func() {
		hub.CloseAll()
		ts.Close()
		cancel()
		if db != nil {
			_ = db.Close()
		}
	})
	return &testEnv{ts: ts, hub: hub}
}

func (e *testEnv) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws" + query
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, frame string) {
	t.Helper()
	if err := ws.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// expect reads the next frame and checks its event tag.
func expect(t *testing.T, ws *websocket.Conn, ev protocol.Event) json.RawMessage {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("waiting for %s: %v", ev, err)
	}
	var env protocol.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("bad frame %s: %v", b, err)
	}
	if env.T != ev {
		t.Fatalf("got %s (%s), want %s", env.T, env.P, ev)
	}
	return env.P
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)
	res, err := http.Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d", res.StatusCode)
	}
	var body map[string]bool
	_ = json.NewDecoder(res.Body).Decode(&body)
	if !body["ok"] {
		t.Errorf("body = %v", body)
	}
}

func TestDisabledPersistence(t *testing.T) {
	env := newTestEnv(t, false)
	for _, path := range []string{"/leaderboard", "/matches/recent", "/auth/me"} {
		res, err := http.Get(env.ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", path, res.StatusCode)
		}
	}
}

func TestNotFoundIsJSON(t *testing.T) {
	env := newTestEnv(t, false)
	res, err := http.Get(env.ts.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", res.StatusCode)
	}
}

func TestPairingAndRoundOverWebSocket(t *testing.T) {
	env := newTestEnv(t, false)

	a := env.dial(t, "")
	send(t, a, `{"t":"find_match"}`)
	var assign protocol.AssignPlayerNumber
	_ = json.Unmarshal(expect(t, a, protocol.EventAssignPlayerNumber), &assign)
	if assign.PlayerNumber != 0 || assign.InitialHP != 5 {
		t.Errorf("assign = %+v", assign)
	}
	expect(t, a, protocol.EventWaitingForOpponent)

	b := env.dial(t, "")
	send(t, b, `{"t":"find_game"}`)
	_ = json.Unmarshal(expect(t, b, protocol.EventAssignPlayerNumber), &assign)
	if assign.PlayerNumber != 1 {
		t.Errorf("second player number = %d", assign.PlayerNumber)
	}

	var snap game.Snapshot
	_ = json.Unmarshal(expect(t, a, protocol.EventMatchStart), &snap)
	if len(snap.Hand) != 10 || snap.OpponentCardCount != 10 || snap.Phase != game.PhaseTurn0 {
		t.Errorf("match_start = %+v", snap)
	}
	if snap.PlayerNames != [2]string{"Player 1", "Player 2"} {
		t.Errorf("names = %v", snap.PlayerNames)
	}
	expect(t, b, protocol.EventMatchStart)

	// Out of turn.
	send(t, b, `{"t":"play_card","p":{"cardIndex":0}}`)
	expect(t, b, protocol.EventErrorMessage)

	send(t, a, `{"t":"play_card","p":{"cardIndex":0}}`)
	expect(t, a, protocol.EventGameStateUpdate)
	expect(t, b, protocol.EventGameStateUpdate)

	send(t, b, `{"t":"play_card","p":{"cardIndex":3}}`)
	expect(t, a, protocol.EventGameStateUpdate)
	expect(t, b, protocol.EventGameStateUpdate)

	var rr protocol.RoundResult
	_ = json.Unmarshal(expect(t, a, protocol.EventRoundResult), &rr)
	if rr.HP[0]+rr.HP[1] != 9 {
		t.Errorf("round result hp = %v", rr.HP)
	}
	expect(t, b, protocol.EventRoundResult)

	_ = json.Unmarshal(expect(t, a, protocol.EventNextTurn), &snap)
	if snap.CurrentTurn != 1 || snap.Phase != game.PhaseTurn1 || len(snap.Hand) != 9 {
		t.Errorf("next_turn = %+v", snap)
	}
	expect(t, b, protocol.EventNextTurn)
}

func TestMalformedFrames(t *testing.T) {
	env := newTestEnv(t, false)
	ws := env.dial(t, "")
	for _, frame := range []string{
		`not json`,
		`{"t":"shuffle"}`,
		`{"t":"play_card","p":{"cardIndex":"1"}}`,
		`{"t":"play_card"}`,
	} {
		send(t, ws, frame)
		expect(t, ws, protocol.EventErrorMessage)
	}
	// Not seated yet.
	send(t, ws, `{"t":"play_card","p":{"cardIndex":0}}`)
	expect(t, ws, protocol.EventErrorMessage)
}

func TestSignedInForfeitIsRecorded(t *testing.T) {
	env := newTestEnv(t, true)

	res, err := http.Post(env.ts.URL+"/auth/signup", "application/json",
		strings.NewReader(`{"username":"alice","password":"password123"}`))
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d", res.StatusCode)
	}
	var token string
	for _, c := range res.Cookies() {
		if c.Name == "duel_token" {
			token = c.Value
		}
	}
	if token == "" {
		t.Fatal("no auth cookie")
	}

	a := env.dial(t, "?token="+token)
	send(t, a, `{"t":"find_match"}`)
	expect(t, a, protocol.EventAssignPlayerNumber)
	expect(t, a, protocol.EventWaitingForOpponent)

	b := env.dial(t, "")
	send(t, b, `{"t":"find_match"}`)
	expect(t, b, protocol.EventAssignPlayerNumber)
	var snap game.Snapshot
	_ = json.Unmarshal(expect(t, b, protocol.EventMatchStart), &snap)
	if snap.PlayerNames != [2]string{"alice", "Player 2"} {
		t.Errorf("names = %v", snap.PlayerNames)
	}
	expect(t, a, protocol.EventMatchStart)

	_ = b.Close()
	var over protocol.GameOver
	_ = json.Unmarshal(expect(t, a, protocol.EventGameOver), &over)
	if over.Winner != 0 || over.Message != "Opponent disconnected.\nYou win!" {
		t.Errorf("game_over = %+v", over)
	}
	expect(t, a, protocol.EventErrorMessage)

	// The recorder writes asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for {
		var body recentRes
		res, err := http.Get(env.ts.URL + "/matches/recent")
		if err != nil {
			t.Fatal(err)
		}
		_ = json.NewDecoder(res.Body).Decode(&body)
		res.Body.Close()
		if len(body.Matches) == 1 {
			m := body.Matches[0]
			if m.Winner != 0 || m.Reason != string(game.EndForfeit) || m.Names[0] != "alice" {
				t.Errorf("recorded = %+v", m)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("match result never recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}

	res, err = http.Get(env.ts.URL + "/leaderboard")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	var lb lbRes
	_ = json.NewDecoder(res.Body).Decode(&lb)
	if len(lb.Top) != 1 || lb.Top[0].Username != "alice" || lb.Top[0].Wins != 1 {
		t.Errorf("leaderboard = %+v", lb.Top)
	}
}

type chanRecorder chan store.MatchResult

func (c chanRecorder) Record(r store.MatchResult) { c <- r }

func TestShutdownRecordsForfeits(t *testing.T) {
	hub := NewHub()
	rec := make(chanRecorder, 4)
	svc := engine.NewService(engine.DefaultConfig, hub, engine.WithRecorder(rec))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopped := make(chan struct{})
	go func() {
		_ = svc.Run(ctx)
		close(stopped)
	}()

	srv := New(Options{Game: svc, Hub: hub})
	env := &testEnv{ts: httptest.NewServer(srv.Router()), hub: hub}
	defer env.ts.Close()

	a := env.dial(t, "")
	send(t, a, `{"t":"find_match"}`)
	expect(t, a, protocol.EventAssignPlayerNumber)
	expect(t, a, protocol.EventWaitingForOpponent)
	b := env.dial(t, "")
	send(t, b, `{"t":"find_match"}`)
	expect(t, b, protocol.EventAssignPlayerNumber)
	expect(t, b, protocol.EventMatchStart)

	shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if hub.Len() != 0 {
		t.Errorf("%d sockets still registered", hub.Len())
	}
	// Stop the engine straight away; queued disconnects must still run.
	cancel()
	<-stopped

	select {
	case r := <-rec:
		if r.Reason != string(game.EndForfeit) {
			t.Errorf("recorded %+v", r)
		}
	default:
		t.Fatal("forfeit at shutdown was not recorded")
	}
	if len(rec) != 0 {
		t.Errorf("%d extra results recorded", len(rec))
	}
}
