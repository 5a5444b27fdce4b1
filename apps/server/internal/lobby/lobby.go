package lobby

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"blackjack-lite/apps/server/internal/ledger"
	"blackjack-lite/apps/server/internal/room"
	"blackjack-lite/apps/server/internal/store"
)

const (
	roundIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roundIDLength   = 4
)

// Lobby manages all live rooms and hands out round IDs.
type Lobby struct {
	mu    sync.RWMutex
	rooms map[string]*room.Room
	rng   *rand.Rand

	store  store.Store
	ledger ledger.Service

	// Default room config
	defaultConfig room.Config

	sweepStop chan struct{}
	sweepOnce sync.Once
}

// New creates a new lobby
func New(st store.Store, ledgerService ledger.Service) *Lobby {
	return &Lobby{
		rooms:         make(map[string]*room.Room),
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		store:         st,
		ledger:        ledgerService,
		defaultConfig: room.DefaultRoomConfig(),
		sweepStop:     make(chan struct{}),
	}
}

// CreateRoom spins up a new room under a fresh round ID. ID collisions
// against the durable store are retried a few times.
func (l *Lobby) CreateRoom(broadcastFn func(userID string, data []byte)) (*room.Room, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for attempt := 0; attempt < 5; attempt++ {
		roundID := l.newRoundIDLocked()
		if _, exists := l.rooms[roundID]; exists {
			continue
		}
		r, err := room.New(roundID, l.defaultConfig, broadcastFn, l.store, l.ledger)
		if errors.Is(err, store.ErrRoundExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		l.rooms[roundID] = r
		log.Printf("[Lobby] Created room %s", roundID)
		return r, nil
	}
	return nil, fmt.Errorf("failed to allocate a round id")
}

func (l *Lobby) newRoundIDLocked() string {
	buf := make([]byte, roundIDLength)
	for i := range buf {
		buf[i] = roundIDAlphabet[l.rng.Intn(len(roundIDAlphabet))]
	}
	return string(buf)
}

// GetRoom returns a live room, resuming it from the store when the
// round is durable but not in memory.
func (l *Lobby) GetRoom(roundID string, broadcastFn func(userID string, data []byte)) *room.Room {
	l.mu.RLock()
	r := l.rooms[roundID]
	l.mu.RUnlock()
	if r != nil && !r.IsClosed() {
		return r
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rec, err := l.store.Load(ctx, roundID)
	if err != nil {
		return nil
	}
	if rec.Status == store.StatusTombstoned {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing := l.rooms[roundID]; existing != nil && !existing.IsClosed() {
		return existing
	}
	resumed, err := room.Resume(rec, l.defaultConfig, broadcastFn, l.store, l.ledger)
	if err != nil {
		log.Printf("[Lobby] Resume of room %s failed: %v", roundID, err)
		return nil
	}
	l.rooms[roundID] = resumed
	log.Printf("[Lobby] Resumed room %s from store", roundID)
	return resumed
}

// ListRooms returns all live round IDs
func (l *Lobby) ListRooms() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.rooms))
	for id := range l.rooms {
		ids = append(ids, id)
	}
	return ids
}

// StartSweeper drops rooms that sat empty for longer than idleTTL,
// tombstoning their durable records.
func (l *Lobby) StartSweeper(interval, idleTTL time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.sweep(idleTTL)
			case <-l.sweepStop:
				return
			}
		}
	}()
}

func (l *Lobby) sweep(idleTTL time.Duration) {
	l.mu.Lock()
	var idle []*room.Room
	for id, r := range l.rooms {
		if r.IsIdleFor(idleTTL) {
			idle = append(idle, r)
			delete(l.rooms, id)
		}
	}
	l.mu.Unlock()

	for _, r := range idle {
		log.Printf("[Lobby] Sweeping idle room %s", r.ID)
		r.Tombstone()
	}
}

// Close stops the sweeper and every live room.
func (l *Lobby) Close() {
	l.sweepOnce.Do(func() {
		close(l.sweepStop)
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	for id, r := range l.rooms {
		r.Stop()
		delete(l.rooms, id)
	}
}
