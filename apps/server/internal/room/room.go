package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"blackjack-lite/apps/server/internal/ledger"
	"blackjack-lite/apps/server/internal/store"
	"blackjack-lite/blackjack"
)

// Room hosts a single blackjack round with an actor model. All game
// mutations flow through the event channel; the engine itself is not
// locked.
type Room struct {
	ID     string
	Config Config

	mu       sync.RWMutex
	game     *blackjack.Game
	members  map[string]*MemberConn // userID -> connection
	seatsByU map[string]int         // userID -> seat number
	version  uint64
	closed   bool
	stopOnce sync.Once

	// Event channel for actor pattern
	events chan Event
	done   chan struct{}

	// Dealer turn and lifecycle scheduling.
	dealerPlayAt time.Time
	emptySince   time.Time

	// Callback to broadcast messages
	broadcast func(userID string, data []byte)
	store     store.Store
	ledger    ledger.Service
}

// Config contains room settings.
type Config struct {
	Game           blackjack.Config
	DefaultBalance int64
}

func DefaultRoomConfig() Config {
	return Config{
		Game:           blackjack.DefaultConfig(),
		DefaultBalance: 1000,
	}
}

// MemberConn represents a connected player in the room.
type MemberConn struct {
	UserID   string
	Seat     int
	Online   bool
	LastSeen time.Time
}

// Event types for the actor message queue
type EventType int

const (
	EventJoin EventType = iota
	EventLeave
	EventStartRound
	EventPlaceBet
	EventHit
	EventStand
	EventDoubleDown
	EventSplit
	EventConnLost
	EventConnResume
	EventClose
)

// Event represents a message to the room actor
type Event struct {
	Type      EventType
	UserID    string
	Amount    int64
	Timestamp time.Time
	Response  chan error
}

var ErrRoomClosed = errors.New("room closed")

const (
	dealerPlayDelay = 800 * time.Millisecond
	offlineSeatTTL  = 30 * time.Second
)

// StateMessage is the snapshot envelope broadcast to every member
// after a state change.
type StateMessage struct {
	Type    string             `json:"type"`
	RoundID string             `json:"round_id"`
	Status  string             `json:"status"`
	Game    blackjack.Snapshot `json:"game"`
}

// RoundEndMessage carries the settlement after the dealer finishes.
type RoundEndMessage struct {
	Type       string                     `json:"type"`
	RoundID    string                     `json:"round_id"`
	Settlement blackjack.SettlementResult `json:"settlement"`
	Game       blackjack.Snapshot         `json:"game"`
}

// New creates a room and its durable record. The store rejects the id
// if another round already owns it.
func New(
	id string,
	cfg Config,
	broadcastFn func(userID string, data []byte),
	st store.Store,
	ledgerService ledger.Service,
) (*Room, error) {
	game, err := blackjack.NewGame(cfg.Game)
	if err != nil {
		return nil, err
	}

	state, err := json.Marshal(game.Snapshot())
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rec, err := st.Create(ctx, id, state, store.StatusWaitingForPlayers)
	if err != nil {
		return nil, err
	}

	r := &Room{
		ID:         id,
		Config:     cfg,
		game:       game,
		members:    make(map[string]*MemberConn),
		seatsByU:   make(map[string]int),
		version:    rec.Version,
		events:     make(chan Event, 256),
		done:       make(chan struct{}),
		broadcast:  broadcastFn,
		store:      st,
		ledger:     ledgerService,
		emptySince: time.Now(),
	}

	go r.run()

	log.Printf("[Room %s] Created (seats=%d, decks=%d)", id, cfg.Game.MaxSeats, cfg.Game.NumDecks)
	return r, nil
}

// Resume rebuilds a room from its durable record.
func Resume(
	rec store.Record,
	cfg Config,
	broadcastFn func(userID string, data []byte),
	st store.Store,
	ledgerService ledger.Service,
) (*Room, error) {
	var snap blackjack.Snapshot
	if err := json.Unmarshal(rec.State, &snap); err != nil {
		return nil, fmt.Errorf("decode round %s: %w", rec.RoundID, err)
	}
	game, err := blackjack.Restore(cfg.Game, snap)
	if err != nil {
		return nil, fmt.Errorf("restore round %s: %w", rec.RoundID, err)
	}

	r := &Room{
		ID:         rec.RoundID,
		Config:     cfg,
		game:       game,
		members:    make(map[string]*MemberConn),
		seatsByU:   make(map[string]int),
		version:    rec.Version,
		events:     make(chan Event, 256),
		done:       make(chan struct{}),
		broadcast:  broadcastFn,
		store:      st,
		ledger:     ledgerService,
		emptySince: time.Now(),
	}
	for _, number := range game.SeatNumbers() {
		if s, ok := game.Seat(number); ok {
			r.seatsByU[s.UserID()] = number
		}
	}

	go r.run()

	log.Printf("[Room %s] Resumed at version %d (phase=%v)", r.ID, r.version, game.Phase())
	return r, nil
}

// run is the main actor loop
func (r *Room) run() {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case event := <-r.events:
			err := r.handleEvent(event)
			if event.Response != nil {
				event.Response <- err
			}
		case <-ticker.C:
			r.tick()
		case <-r.done:
			log.Printf("[Room %s] Actor stopped", r.ID)
			return
		}
	}
}

// handleEvent processes a single event
func (r *Room) handleEvent(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed && e.Type != EventClose {
		return ErrRoomClosed
	}

	switch e.Type {
	case EventJoin:
		return r.handleJoin(e.UserID)
	case EventLeave:
		return r.handleLeave(e.UserID)
	case EventStartRound:
		return r.handleStartRound(e.UserID)
	case EventPlaceBet:
		return r.handlePlaceBet(e.UserID, e.Amount)
	case EventHit:
		return r.handleAction(e.UserID, r.game.Hit)
	case EventStand:
		return r.handleAction(e.UserID, r.game.Stand)
	case EventDoubleDown:
		return r.handleAction(e.UserID, r.game.DoubleDown)
	case EventSplit:
		return r.handleAction(e.UserID, r.game.Split)
	case EventConnLost:
		return r.handleConnLost(e.UserID, e.Timestamp)
	case EventConnResume:
		return r.handleConnResume(e.UserID, e.Timestamp)
	case EventClose:
		r.stopLocked()
		return nil
	default:
		return fmt.Errorf("unknown event type: %d", e.Type)
	}
}

func (r *Room) handleJoin(userID string) error {
	now := time.Now()
	if member, exists := r.members[userID]; exists {
		member.Online = true
		member.LastSeen = now
		r.sendState(userID)
		return nil // Already joined
	}

	seat, err := r.freeSeat()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	balance, err := r.ledger.Balance(ctx, userID, r.Config.DefaultBalance)
	cancel()
	if err != nil {
		log.Printf("[Room %s] Balance lookup failed for %s: %v", r.ID, userID, err)
		balance = r.Config.DefaultBalance
	}

	if err := r.game.AddPlayer(seat, userID, balance); err != nil {
		return err
	}
	r.members[userID] = &MemberConn{
		UserID:   userID,
		Seat:     seat,
		Online:   true,
		LastSeen: now,
	}
	r.seatsByU[userID] = seat
	r.updateEmptySinceLocked(now)

	log.Printf("[Room %s] Player %s joined at seat %d with %d", r.ID, userID, seat, balance)

	r.persistLocked()
	r.broadcastState()
	return nil
}

func (r *Room) handleLeave(userID string) error {
	seat, ok := r.seatsByU[userID]
	if !ok {
		return nil
	}

	r.writeBackBalance(userID, seat)
	if err := r.game.RemovePlayer(seat); err != nil {
		return err
	}
	delete(r.seatsByU, userID)
	delete(r.members, userID)
	r.updateEmptySinceLocked(time.Now())

	log.Printf("[Room %s] Player %s left seat %d", r.ID, userID, seat)

	r.maybeScheduleDealerLocked()
	r.persistLocked()
	r.broadcastState()
	return nil
}

func (r *Room) handleStartRound(userID string) error {
	if _, ok := r.seatsByU[userID]; !ok {
		return blackjack.ErrPlayerNotFound
	}
	if err := r.game.StartBetting(); err != nil {
		return err
	}
	log.Printf("[Room %s] Betting started by %s (seats=%d)", r.ID, userID, r.game.SeatCount())

	r.persistLocked()
	r.broadcastState()
	return nil
}

func (r *Room) handlePlaceBet(userID string, amount int64) error {
	seat, ok := r.seatsByU[userID]
	if !ok {
		return blackjack.ErrPlayerNotFound
	}
	if err := r.game.PlaceBet(seat, amount); err != nil {
		return err
	}
	log.Printf("[Room %s] Player %s bet %d at seat %d", r.ID, userID, amount, seat)

	// Once the last seat has a bet the deal happens immediately.
	if r.game.AllBetsPlaced() {
		if err := r.game.StartPlaying(); err != nil {
			return err
		}
		log.Printf("[Room %s] All bets in, cards dealt (phase=%v)", r.ID, r.game.Phase())
		if r.game.Phase() == blackjack.PhaseRoundOver {
			r.handleRoundEndLocked()
			return nil
		}
		r.maybeScheduleDealerLocked()
	}

	r.persistLocked()
	r.broadcastState()
	return nil
}

func (r *Room) handleAction(userID string, action func(int) error) error {
	seat, ok := r.seatsByU[userID]
	if !ok {
		return blackjack.ErrPlayerNotFound
	}
	if err := action(seat); err != nil {
		return err
	}
	r.maybeScheduleDealerLocked()
	r.persistLocked()
	r.broadcastState()
	return nil
}

func (r *Room) handleConnLost(userID string, ts time.Time) error {
	member := r.members[userID]
	if member == nil {
		return nil
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	member.Online = false
	member.LastSeen = ts
	log.Printf("[Room %s] Player %s connection lost", r.ID, userID)
	return nil
}

func (r *Room) handleConnResume(userID string, ts time.Time) error {
	member := r.members[userID]
	if member == nil {
		// The seat was already reaped; treat the resume as a fresh join.
		return r.handleJoin(userID)
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	member.Online = true
	member.LastSeen = ts
	r.sendState(userID)
	log.Printf("[Room %s] Player %s connection resumed", r.ID, userID)
	return nil
}

func (r *Room) tick() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	now := time.Now()
	if !r.dealerPlayAt.IsZero() && !now.Before(r.dealerPlayAt) {
		r.dealerPlayAt = time.Time{}
		if err := r.runDealerLocked(); err != nil {
			log.Printf("[Room %s] dealer play failed: %v", r.ID, err)
		}
	}
	r.releaseOfflineSeats(now)
}

// releaseOfflineSeats removes members that stayed disconnected past the
// grace period, so a vanished player cannot stall the round on their turn.
func (r *Room) releaseOfflineSeats(now time.Time) {
	for userID, member := range r.members {
		if member == nil || member.Online {
			continue
		}
		if now.Sub(member.LastSeen) < offlineSeatTTL {
			continue
		}
		if err := r.handleLeave(userID); err != nil {
			member.LastSeen = now
			log.Printf("[Room %s] auto-leave failed for offline user %s: %v", r.ID, userID, err)
			continue
		}
		log.Printf("[Room %s] Removed offline user %s after %s", r.ID, userID, offlineSeatTTL)
	}
}

// maybeScheduleDealerLocked arms the dealer timer when every player
// seat is done acting.
func (r *Room) maybeScheduleDealerLocked() {
	if r.game.Phase() == blackjack.PhaseDealerTurn {
		if r.dealerPlayAt.IsZero() {
			r.dealerPlayAt = time.Now().Add(dealerPlayDelay)
		}
		return
	}
	r.dealerPlayAt = time.Time{}
}

func (r *Room) runDealerLocked() error {
	if err := r.game.DealerPlay(); err != nil {
		return err
	}
	r.handleRoundEndLocked()
	return nil
}

// handleRoundEndLocked commits settled balances to the ledger and
// broadcasts the settlement.
func (r *Room) handleRoundEndLocked() {
	result := r.game.LastSettlement()
	log.Printf("[Room %s] Round over. Dealer: %d (bust=%v)", r.ID,
		resultDealerValue(result), result != nil && result.DealerBust)

	for userID, seat := range r.seatsByU {
		r.writeBackBalance(userID, seat)
	}

	r.persistLocked()
	r.broadcastRoundEnd(result)
}

func resultDealerValue(result *blackjack.SettlementResult) int {
	if result == nil {
		return 0
	}
	return result.DealerValue
}

func (r *Room) writeBackBalance(userID string, seat int) {
	s, ok := r.game.Seat(seat)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.ledger.SetBalance(ctx, userID, s.Balance()); err != nil {
		log.Printf("[Room %s] Ledger write failed for %s: %v", r.ID, userID, err)
	}
}

func (r *Room) freeSeat() (int, error) {
	for number := 1; number <= r.Config.Game.MaxSeats; number++ {
		if _, taken := r.game.Seat(number); !taken {
			return number, nil
		}
	}
	return 0, blackjack.ErrGameFull
}

// persistLocked saves the durable snapshot through the store CAS. The
// actor is the only writer, so a version conflict means the record was
// touched from outside; the room resyncs to the stored version.
func (r *Room) persistLocked() {
	state, err := json.Marshal(r.game.Snapshot())
	if err != nil {
		log.Printf("[Room %s] snapshot encode failed: %v", r.ID, err)
		return
	}
	status := statusForPhase(r.game.Phase(), r.game.SeatCount())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	next, err := r.store.Save(ctx, r.ID, state, status, r.version)
	if errors.Is(err, store.ErrVersionConflict) {
		rec, loadErr := r.store.Load(ctx, r.ID)
		if loadErr != nil {
			log.Printf("[Room %s] save conflict and reload failed: %v", r.ID, loadErr)
			return
		}
		log.Printf("[Room %s] save conflict at version %d, resyncing to %d", r.ID, r.version, rec.Version)
		r.version = rec.Version
		return
	}
	if err != nil {
		log.Printf("[Room %s] save failed: %v", r.ID, err)
		return
	}
	r.version = next
}

func statusForPhase(phase blackjack.Phase, seatCount int) string {
	switch phase {
	case blackjack.PhaseWaiting:
		return store.StatusWaitingForPlayers
	case blackjack.PhaseRoundOver:
		return store.StatusCompleted
	default:
		if seatCount == 0 {
			return store.StatusWaitingForPlayers
		}
		return store.StatusActive
	}
}

func (r *Room) broadcastState() {
	if r.broadcast == nil {
		return
	}
	msg := StateMessage{
		Type:    "game_state",
		RoundID: r.ID,
		Status:  statusForPhase(r.game.Phase(), r.game.SeatCount()),
		Game:    r.game.PublicSnapshot(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Room %s] state encode failed: %v", r.ID, err)
		return
	}
	for userID := range r.members {
		r.broadcast(userID, data)
	}
}

func (r *Room) broadcastRoundEnd(result *blackjack.SettlementResult) {
	if r.broadcast == nil || result == nil {
		return
	}
	msg := RoundEndMessage{
		Type:       "round_end",
		RoundID:    r.ID,
		Settlement: *result,
		Game:       r.game.PublicSnapshot(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Room %s] round end encode failed: %v", r.ID, err)
		return
	}
	for userID := range r.members {
		r.broadcast(userID, data)
	}
}

func (r *Room) sendState(userID string) {
	if r.broadcast == nil {
		return
	}
	msg := StateMessage{
		Type:    "game_state",
		RoundID: r.ID,
		Status:  statusForPhase(r.game.Phase(), r.game.SeatCount()),
		Game:    r.game.PublicSnapshot(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	r.broadcast(userID, data)
}

func (r *Room) updateEmptySinceLocked(now time.Time) {
	if len(r.seatsByU) == 0 {
		if r.emptySince.IsZero() {
			r.emptySince = now
		}
		return
	}
	r.emptySince = time.Time{}
}

// SubmitEvent sends an event to the actor
func (r *Room) SubmitEvent(e Event) error {
	e.Timestamp = time.Now()
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}

	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrRoomClosed
	}

	select {
	case r.events <- e:
	case <-r.done:
		return ErrRoomClosed
	}

	select {
	case err := <-e.Response:
		return err
	case <-r.done:
		return ErrRoomClosed
	}
}

// Stop shuts down the room actor
func (r *Room) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Room) stopLocked() {
	r.closed = true
	r.dealerPlayAt = time.Time{}
	r.stopOnce.Do(func() {
		close(r.done)
	})
}

func (r *Room) IsIdleFor(ttl time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return true
	}
	if len(r.seatsByU) > 0 {
		return false
	}
	if r.emptySince.IsZero() {
		return false
	}
	return time.Since(r.emptySince) >= ttl
}

func (r *Room) IsClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Snapshot returns the public game state (thread-safe)
func (r *Room) Snapshot() blackjack.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.game.PublicSnapshot()
}

// Version returns the durable record version (thread-safe)
func (r *Room) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Tombstone marks the durable record dead before the room is dropped
// from the lobby.
func (r *Room) Tombstone() {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := json.Marshal(r.game.Snapshot())
	if err != nil {
		log.Printf("[Room %s] tombstone encode failed: %v", r.ID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := r.store.Save(ctx, r.ID, state, store.StatusTombstoned, r.version); err != nil {
		log.Printf("[Room %s] tombstone save failed: %v", r.ID, err)
	}
	r.stopLocked()
}
