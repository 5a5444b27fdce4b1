package room

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"blackjack-lite/apps/server/internal/ledger"
	"blackjack-lite/apps/server/internal/store"
	"blackjack-lite/blackjack"
)

func newTestRoom(t *testing.T, seed int64) *Room {
	t.Helper()

	cfg := DefaultRoomConfig()
	cfg.Game.Seed = seed

	game, err := blackjack.NewGame(cfg.Game)
	if err != nil {
		t.Fatalf("NewGame err: %v", err)
	}
	st := store.NewMemoryStore()
	state, err := json.Marshal(game.Snapshot())
	if err != nil {
		t.Fatalf("encode snapshot err: %v", err)
	}
	rec, err := st.Create(context.Background(), "TEST", state, store.StatusWaitingForPlayers)
	if err != nil {
		t.Fatalf("store create err: %v", err)
	}

	return &Room{
		ID:        "TEST",
		Config:    cfg,
		game:      game,
		members:   make(map[string]*MemberConn),
		seatsByU:  make(map[string]int),
		version:   rec.Version,
		events:    make(chan Event, 16),
		done:      make(chan struct{}),
		broadcast: func(string, []byte) {},
		store:     st,
		ledger:    ledger.NewMemoryService(),
	}
}

func TestJoinSeatsPlayerAndPersists(t *testing.T) {
	r := newTestRoom(t, 1)

	if err := r.handleJoin("alice"); err != nil {
		t.Fatalf("join err: %v", err)
	}
	if err := r.handleJoin("bob"); err != nil {
		t.Fatalf("join err: %v", err)
	}

	if r.seatsByU["alice"] != 1 || r.seatsByU["bob"] != 2 {
		t.Fatalf("expected seats 1 and 2, got %d and %d", r.seatsByU["alice"], r.seatsByU["bob"])
	}
	seat, ok := r.game.Seat(1)
	if !ok {
		t.Fatalf("expected engine seat 1")
	}
	if seat.Balance() != r.Config.DefaultBalance {
		t.Fatalf("expected seeded balance %d, got %d", r.Config.DefaultBalance, seat.Balance())
	}

	rec, err := r.store.Load(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("store load err: %v", err)
	}
	if rec.Version != 3 {
		t.Fatalf("expected version 3 after two joins, got %d", rec.Version)
	}
	if rec.Status != store.StatusWaitingForPlayers {
		t.Fatalf("expected waiting status, got %s", rec.Status)
	}
	if r.version != rec.Version {
		t.Fatalf("room version %d out of sync with record %d", r.version, rec.Version)
	}
}

func TestJoinRejectsWhenRoomFull(t *testing.T) {
	r := newTestRoom(t, 1)

	users := []string{"u1", "u2", "u3", "u4", "u5"}
	for _, u := range users {
		if err := r.handleJoin(u); err != nil {
			t.Fatalf("join %s err: %v", u, err)
		}
	}
	if err := r.handleJoin("u6"); !errors.Is(err, blackjack.ErrGameFull) {
		t.Fatalf("expected ErrGameFull, got %v", err)
	}
}

func TestFullRoundSettlesLedgerAndStore(t *testing.T) {
	r := newTestRoom(t, 7)

	if err := r.handleJoin("alice"); err != nil {
		t.Fatalf("join err: %v", err)
	}
	if err := r.handleStartRound("alice"); err != nil {
		t.Fatalf("start round err: %v", err)
	}
	if err := r.handlePlaceBet("alice", 100); err != nil {
		t.Fatalf("place bet err: %v", err)
	}

	// The single bet completes the betting phase and deals immediately.
	for i := 0; r.game.Phase() == blackjack.PhasePlaying; i++ {
		if i > 4 {
			t.Fatalf("round did not end after standing on every hand")
		}
		if err := r.handleAction("alice", r.game.Stand); err != nil {
			t.Fatalf("stand err: %v", err)
		}
	}
	if r.game.Phase() == blackjack.PhaseDealerTurn {
		if r.dealerPlayAt.IsZero() {
			t.Fatalf("expected dealer play to be scheduled")
		}
		if err := r.runDealerLocked(); err != nil {
			t.Fatalf("dealer play err: %v", err)
		}
	}

	if r.game.Phase() != blackjack.PhaseRoundOver {
		t.Fatalf("expected round_over, got %v", r.game.Phase())
	}
	if r.game.LastSettlement() == nil {
		t.Fatalf("expected settlement result")
	}

	seat, _ := r.game.Seat(1)
	balance, err := r.ledger.Balance(context.Background(), "alice", -1)
	if err != nil {
		t.Fatalf("ledger balance err: %v", err)
	}
	if balance != seat.Balance() {
		t.Fatalf("ledger balance %d does not match seat balance %d", balance, seat.Balance())
	}

	rec, err := r.store.Load(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("store load err: %v", err)
	}
	if rec.Status != store.StatusCompleted {
		t.Fatalf("expected completed status, got %s", rec.Status)
	}
}

func TestLeaveWritesBackBalance(t *testing.T) {
	r := newTestRoom(t, 1)

	if err := r.handleJoin("alice"); err != nil {
		t.Fatalf("join err: %v", err)
	}
	if err := r.handleLeave("alice"); err != nil {
		t.Fatalf("leave err: %v", err)
	}

	if _, ok := r.seatsByU["alice"]; ok {
		t.Fatalf("expected seat mapping removed")
	}
	balance, err := r.ledger.Balance(context.Background(), "alice", -1)
	if err != nil {
		t.Fatalf("ledger balance err: %v", err)
	}
	if balance != r.Config.DefaultBalance {
		t.Fatalf("expected written-back balance %d, got %d", r.Config.DefaultBalance, balance)
	}
}

func TestStatusForPhase(t *testing.T) {
	cases := []struct {
		phase     blackjack.Phase
		seatCount int
		want      string
	}{
		{blackjack.PhaseWaiting, 0, store.StatusWaitingForPlayers},
		{blackjack.PhaseBetting, 2, store.StatusActive},
		{blackjack.PhasePlaying, 2, store.StatusActive},
		{blackjack.PhaseDealerTurn, 2, store.StatusActive},
		{blackjack.PhaseRoundOver, 2, store.StatusCompleted},
	}
	for _, tc := range cases {
		if got := statusForPhase(tc.phase, tc.seatCount); got != tc.want {
			t.Fatalf("statusForPhase(%v, %d) = %s, want %s", tc.phase, tc.seatCount, got, tc.want)
		}
	}
}

func TestIsIdleFor(t *testing.T) {
	r := newTestRoom(t, 1)
	r.emptySince = time.Now().Add(-time.Hour)

	if !r.IsIdleFor(time.Minute) {
		t.Fatalf("expected empty room to be idle")
	}

	if err := r.handleJoin("alice"); err != nil {
		t.Fatalf("join err: %v", err)
	}
	if r.IsIdleFor(time.Minute) {
		t.Fatalf("occupied room must not be idle")
	}
}

func TestOfflineSeatReleasedAfterGracePeriod(t *testing.T) {
	r := newTestRoom(t, 1)

	if err := r.handleJoin("alice"); err != nil {
		t.Fatalf("join err: %v", err)
	}
	lost := time.Now().Add(-2 * offlineSeatTTL)
	if err := r.handleConnLost("alice", lost); err != nil {
		t.Fatalf("conn lost err: %v", err)
	}

	r.releaseOfflineSeats(time.Now())

	if _, ok := r.seatsByU["alice"]; ok {
		t.Fatalf("expected offline seat to be released")
	}
	if r.game.SeatCount() != 0 {
		t.Fatalf("expected engine seat removed, got %d", r.game.SeatCount())
	}
}

func TestConnResumeReclaimsHeldSeat(t *testing.T) {
	r := newTestRoom(t, 1)

	if err := r.handleJoin("alice"); err != nil {
		t.Fatalf("join err: %v", err)
	}
	if err := r.handleConnLost("alice", time.Now()); err != nil {
		t.Fatalf("conn lost err: %v", err)
	}
	if r.members["alice"].Online {
		t.Fatalf("expected member offline after connection loss")
	}

	if err := r.handleConnResume("alice", time.Now()); err != nil {
		t.Fatalf("conn resume err: %v", err)
	}
	if !r.members["alice"].Online {
		t.Fatalf("expected member back online")
	}
	if r.seatsByU["alice"] != 1 || r.game.SeatCount() != 1 {
		t.Fatalf("expected original seat kept, seat=%d count=%d",
			r.seatsByU["alice"], r.game.SeatCount())
	}
}

func TestConnResumeAfterSeatReapedRejoins(t *testing.T) {
	r := newTestRoom(t, 1)

	if err := r.handleJoin("alice"); err != nil {
		t.Fatalf("join err: %v", err)
	}
	if err := r.handleConnLost("alice", time.Now().Add(-2*offlineSeatTTL)); err != nil {
		t.Fatalf("conn lost err: %v", err)
	}
	r.releaseOfflineSeats(time.Now())
	if r.game.SeatCount() != 0 {
		t.Fatalf("expected seat reaped before resume")
	}

	if err := r.handleConnResume("alice", time.Now()); err != nil {
		t.Fatalf("conn resume err: %v", err)
	}
	member := r.members["alice"]
	if member == nil || !member.Online {
		t.Fatalf("expected resume to fall back to a fresh join")
	}
	if r.game.SeatCount() != 1 {
		t.Fatalf("expected a seat after rejoin, got %d", r.game.SeatCount())
	}
}

func TestActorDeliversStateBroadcasts(t *testing.T) {
	var mu sync.Mutex
	var received [][]byte
	collect := func(_ string, data []byte) {
		mu.Lock()
		received = append(received, data)
		mu.Unlock()
	}

	st := store.NewMemoryStore()
	r, err := New("AB12", DefaultRoomConfig(), collect, st, ledger.NewMemoryService())
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	defer r.Stop()

	if err := r.SubmitEvent(Event{Type: EventJoin, UserID: "alice"}); err != nil {
		t.Fatalf("submit join err: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) == 0 {
		t.Fatalf("expected at least one broadcast after join")
	}
	var msg StateMessage
	if err := json.Unmarshal(received[len(received)-1], &msg); err != nil {
		t.Fatalf("decode broadcast err: %v", err)
	}
	if msg.Type != "game_state" || msg.RoundID != "AB12" {
		t.Fatalf("unexpected broadcast envelope: %+v", msg)
	}
	if len(msg.Game.Deck) != 0 {
		t.Fatalf("broadcast snapshot must not leak the deck")
	}
}

func TestResumeRebuildsSeatMapping(t *testing.T) {
	r := newTestRoom(t, 3)
	if err := r.handleJoin("alice"); err != nil {
		t.Fatalf("join err: %v", err)
	}
	if err := r.handleStartRound("alice"); err != nil {
		t.Fatalf("start round err: %v", err)
	}

	rec, err := r.store.Load(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("store load err: %v", err)
	}

	resumed, err := Resume(rec, r.Config, func(string, []byte) {}, r.store, r.ledger)
	if err != nil {
		t.Fatalf("resume err: %v", err)
	}
	defer resumed.Stop()

	if resumed.seatsByU["alice"] != 1 {
		t.Fatalf("expected alice back at seat 1, got %d", resumed.seatsByU["alice"])
	}
	if got := resumed.Snapshot().Phase; got != blackjack.PhaseBetting {
		t.Fatalf("expected betting phase after resume, got %v", got)
	}
	if resumed.Version() != rec.Version {
		t.Fatalf("expected resumed version %d, got %d", rec.Version, resumed.Version())
	}
}
