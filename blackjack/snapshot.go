package blackjack

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"blackjack-lite/card"
)

type SeatSnapshot struct {
	PlayerNumber int    `json:"player_number"`
	UserID       string `json:"user_id"`
	Balance      int64  `json:"balance"`

	Hand      []card.Card `json:"hand"`
	SplitHand []card.Card `json:"split_hand"` // 未分牌时为 null

	CurrentBet int64 `json:"current_bet"`
	SplitBet   int64 `json:"split_bet"`

	HasBet      bool `json:"has_bet"`
	HasActed    bool `json:"has_acted"`
	Stood       bool `json:"stood"`
	Busted      bool `json:"busted"`
	SplitStood  bool `json:"split_stood"`
	SplitBusted bool `json:"split_busted"`

	Result      Result `json:"result"`
	SplitResult Result `json:"split_result"`

	CanDoubleDown    bool `json:"can_double_down"`
	CanSplit         bool `json:"can_split"`
	HasSplit         bool `json:"has_split"`
	PlayingSplitHand bool `json:"playing_split_hand"`
}

// Snapshot 持久化/广播形式. Deck 只出现在持久化形式里,
// 对外快照用 PublicSnapshot 去掉底牌.
type Snapshot struct {
	Phase             Phase                   `json:"phase"`
	CurrentPlayerTurn *int                    `json:"current_player_turn"`
	RoundActive       bool                    `json:"round_active"`
	DealerHand        []card.Card             `json:"dealer_hand"`
	Players           map[string]SeatSnapshot `json:"players"`
	CardsRemaining    int                     `json:"cards_remaining"`
	Deck              []card.Card             `json:"deck,omitempty"`
}

func (g *Game) Snapshot() Snapshot {
	s := g.snapshotNoDeck()
	s.Deck = append([]card.Card{}, g.shoe...)
	return s
}

// PublicSnapshot 不含牌靴内容
func (g *Game) PublicSnapshot() Snapshot {
	return g.snapshotNoDeck()
}

func (g *Game) snapshotNoDeck() Snapshot {
	s := Snapshot{
		Phase:          g.phase,
		RoundActive:    g.roundActive,
		DealerHand:     append([]card.Card{}, g.dealerHand...),
		Players:        make(map[string]SeatSnapshot, len(g.seats)),
		CardsRemaining: g.shoe.Remaining(),
	}
	if g.currentTurn != InvalidSeat {
		turn := g.currentTurn
		s.CurrentPlayerTurn = &turn
	}
	if s.DealerHand == nil {
		s.DealerHand = []card.Card{}
	}
	for n, seat := range g.seats {
		ss := SeatSnapshot{
			PlayerNumber:     n,
			UserID:           seat.userID,
			Balance:          seat.balance,
			Hand:             append([]card.Card{}, seat.hand...),
			CurrentBet:       seat.currentBet,
			SplitBet:         seat.splitBet,
			HasBet:           seat.hasBet,
			HasActed:         seat.hasActed,
			Stood:            seat.stood,
			Busted:           seat.busted,
			SplitStood:       seat.splitStood,
			SplitBusted:      seat.splitBusted,
			Result:           seat.result,
			SplitResult:      seat.splitResult,
			CanDoubleDown:    seat.canDoubleDown,
			CanSplit:         seat.canSplit,
			HasSplit:         seat.hasSplit,
			PlayingSplitHand: seat.playingSplitHand,
		}
		if ss.Hand == nil {
			ss.Hand = []card.Card{}
		}
		if seat.hasSplit {
			ss.SplitHand = append([]card.Card{}, seat.splitHand...)
		}
		s.Players[strconv.Itoa(n)] = ss
	}
	return s
}

// Restore 从持久化快照重建状态机. 快照必须含 Deck (持久化形式).
func Restore(cfg Config, snap Snapshot) (*Game, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Game{
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(seed)),
		phase:       snap.Phase,
		seats:       make(map[int]*Seat, cfg.MaxSeats),
		dealerHand:  append(Hand{}, snap.DealerHand...),
		shoe:        append(card.Shoe{}, snap.Deck...),
		currentTurn: InvalidSeat,
		roundActive: snap.RoundActive,
	}
	if snap.CurrentPlayerTurn != nil {
		g.currentTurn = *snap.CurrentPlayerTurn
	}
	for key, ss := range snap.Players {
		n, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid seat key %q", key)
		}
		seat := &Seat{
			number:           n,
			userID:           ss.UserID,
			balance:          ss.Balance,
			hand:             append(Hand{}, ss.Hand...),
			currentBet:       ss.CurrentBet,
			splitBet:         ss.SplitBet,
			hasBet:           ss.HasBet,
			hasActed:         ss.HasActed,
			stood:            ss.Stood,
			busted:           ss.Busted,
			splitStood:       ss.SplitStood,
			splitBusted:      ss.SplitBusted,
			result:           ss.Result,
			splitResult:      ss.SplitResult,
			canDoubleDown:    ss.CanDoubleDown,
			canSplit:         ss.CanSplit,
			hasSplit:         ss.HasSplit,
			playingSplitHand: ss.PlayingSplitHand,
		}
		if ss.HasSplit {
			seat.splitHand = append(Hand{}, ss.SplitHand...)
		}
		g.seats[n] = seat
	}
	return g, nil
}

// SeatNumbers 快照内座位号升序, 广播/测试用
func (s Snapshot) SeatNumbers() []int {
	nums := make([]int, 0, len(s.Players))
	for key := range s.Players {
		if n, err := strconv.Atoi(key); err == nil {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums
}
