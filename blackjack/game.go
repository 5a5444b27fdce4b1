package blackjack

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"blackjack-lite/card"
)

// Game 回合状态机. 不做任何 I/O, 也不加锁:
// 同一回合的动作必须由调用方串行化 (见 room actor 与 store 的版本比较).
type Game struct {
	cfg Config
	rng *rand.Rand

	phase       Phase
	seats       map[int]*Seat
	dealerHand  Hand
	shoe        card.Shoe
	currentTurn int
	roundActive bool

	lastSettlement *SettlementResult
}

func NewGame(cfg Config) (*Game, error) {
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
		phase:       PhaseWaiting,
		seats:       make(map[int]*Seat, cfg.MaxSeats),
		currentTurn: InvalidSeat,
	}
	g.shoe = card.NewShoe(cfg.NumDecks, g.rng)
	return g, nil
}

func (g *Game) Phase() Phase      { return g.phase }
func (g *Game) RoundActive() bool { return g.roundActive }
func (g *Game) DealerHand() Hand  { return g.dealerHand }
func (g *Game) SeatCount() int    { return len(g.seats) }

// CurrentTurn 返回当前行动座位号, 没有时第二个返回值为 false
func (g *Game) CurrentTurn() (int, bool) {
	if g.currentTurn == InvalidSeat {
		return 0, false
	}
	return g.currentTurn, true
}

func (g *Game) Seat(number int) (*Seat, bool) {
	s, ok := g.seats[number]
	return s, ok
}

// SeatNumbers 座位号升序
func (g *Game) SeatNumbers() []int {
	nums := make([]int, 0, len(g.seats))
	for n := range g.seats {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

func (g *Game) LastSettlement() *SettlementResult { return g.lastSettlement }

// AddPlayer 占用一个座位. 座位号由外部分配 (1..MaxSeats).
func (g *Game) AddPlayer(number int, userID string, balance int64) error {
	if number < 1 || number > g.cfg.MaxSeats {
		return fmt.Errorf("invalid seat %d", number)
	}
	if balance < 0 {
		return fmt.Errorf("balance must be >= 0")
	}
	if len(g.seats) >= g.cfg.MaxSeats {
		return ErrGameFull
	}
	if g.seats[number] != nil {
		return ErrSeatTaken
	}
	s := &Seat{
		number:  number,
		userID:  userID,
		balance: balance,
	}
	s.ResetForRound()
	g.seats[number] = s
	return nil
}

// RemovePlayer 移除座位. 进行中的回合里轮到该座位时重新推算轮转,
// 无人待行动则直接进入庄家阶段.
func (g *Game) RemovePlayer(number int) error {
	if g.seats[number] == nil {
		return ErrPlayerNotFound
	}
	delete(g.seats, number)

	if len(g.seats) == 0 {
		g.phase = PhaseWaiting
		g.roundActive = false
		g.currentTurn = InvalidSeat
		return nil
	}
	if g.phase == PhasePlaying && g.currentTurn == number {
		g.advanceTurn(InvalidSeat)
	}
	return nil
}

// StartBetting 开始下注阶段: 清空各座位与庄家手牌, 必要时重洗牌靴.
func (g *Game) StartBetting() error {
	if g.phase != PhaseWaiting && g.phase != PhaseRoundOver {
		return ErrInvalidPhase
	}
	if len(g.seats) == 0 {
		return ErrNoPlayers
	}
	for _, s := range g.seats {
		s.ResetForRound()
	}
	g.dealerHand = make(Hand, 0, 4)
	if g.shoe.Remaining() < g.cfg.ReshuffleThreshold {
		g.shoe = card.NewShoe(g.cfg.NumDecks, g.rng)
	}
	g.lastSettlement = nil
	g.phase = PhaseBetting
	g.roundActive = true
	g.currentTurn = InvalidSeat
	return nil
}

// PlaceBet 下注并立即扣款. 每个座位每回合只允许下注一次.
func (g *Game) PlaceBet(number int, amount int64) error {
	if g.phase != PhaseBetting {
		return ErrInvalidPhase
	}
	s := g.seats[number]
	if s == nil {
		return ErrPlayerNotFound
	}
	if s.hasBet || amount <= 0 {
		return ErrInvalidBet
	}
	if amount > s.balance {
		return ErrInsufficientBalance
	}
	s.debit(amount)
	s.currentBet = amount
	s.hasBet = true
	return nil
}

// AllBetsPlaced 所有在座玩家都已下注
func (g *Game) AllBetsPlaced() bool {
	if len(g.seats) == 0 {
		return false
	}
	for _, s := range g.seats {
		if !s.hasBet {
			return false
		}
	}
	return true
}

// StartPlaying 发牌并进入行动阶段. 庄家 natural 时按场馆规则提前结算:
// 玩家 natural 算 push, 其余直接输, 不进入 playing.
func (g *Game) StartPlaying() error {
	if g.phase != PhaseBetting {
		return ErrInvalidPhase
	}
	if !g.AllBetsPlaced() {
		return ErrInvalidState("waiting for bets")
	}

	betting := g.bettingSeats()
	if len(betting) == 0 {
		return ErrNoPlayers
	}

	// 两轮交替发牌, 每轮先玩家 (座位号升序) 后庄家
	for round := 0; round < 2; round++ {
		for _, n := range betting {
			c, ok := g.shoe.Pop()
			if !ok {
				return ErrShoeExhausted
			}
			g.seats[n].hand.Add(c)
		}
		c, ok := g.shoe.Pop()
		if !ok {
			return ErrShoeExhausted
		}
		g.dealerHand.Add(c)
	}

	if g.dealerHand.IsNatural() {
		g.resolveDealerNatural(betting)
		return nil
	}

	for _, n := range betting {
		s := g.seats[n]
		s.canDoubleDown = true
		s.canSplit = len(s.hand) == 2 &&
			s.hand[0].Rank() == s.hand[1].Rank() &&
			s.balance >= s.currentBet
		if s.isNatural() {
			// 结果留到结算, 这里只让出行动权
			s.hasActed = true
			s.stood = true
		}
	}

	g.phase = PhasePlaying
	g.advanceTurn(InvalidSeat)
	return nil
}

// Hit 要牌. 已分牌且正在打分牌时重定向到分牌.
func (g *Game) Hit(number int) error {
	s, err := g.actingSeat(number)
	if err != nil {
		return err
	}
	if s.playingSplitHand {
		return g.splitHit(s)
	}

	c, ok := g.shoe.Pop()
	if !ok {
		return ErrShoeExhausted
	}
	s.hand.Add(c)
	s.canDoubleDown = false
	s.canSplit = false

	if s.hand.IsBust() {
		s.busted = true
		s.result = ResultLose
		g.finishPrimary(s)
	}
	return nil
}

// Stand 停牌
func (g *Game) Stand(number int) error {
	s, err := g.actingSeat(number)
	if err != nil {
		return err
	}
	if s.playingSplitHand {
		s.splitStood = true
		s.hasActed = true
		g.advanceTurn(s.number)
		return nil
	}

	s.stood = true
	s.canDoubleDown = false
	s.canSplit = false
	g.finishPrimary(s)
	return nil
}

// DoubleDown 加倍: 补投同额赌注, 只发一张牌, 然后强制停牌.
func (g *Game) DoubleDown(number int) error {
	s, err := g.actingSeat(number)
	if err != nil {
		return err
	}
	if !s.canDoubleDown {
		return ErrCannotDoubleDown
	}

	if s.playingSplitHand {
		if s.splitBet > s.balance {
			return ErrInsufficientBalance
		}
		// 先抽牌再扣款, 牌靴耗尽时座位状态不变
		c, ok := g.shoe.Pop()
		if !ok {
			return ErrShoeExhausted
		}
		s.debit(s.splitBet)
		s.splitBet *= 2
		s.splitHand.Add(c)
		if s.splitHand.IsBust() {
			s.splitBusted = true
			s.splitResult = ResultLose
		} else {
			s.splitStood = true
		}
		s.hasActed = true
		g.advanceTurn(s.number)
		return nil
	}

	if s.currentBet > s.balance {
		return ErrInsufficientBalance
	}
	c, ok := g.shoe.Pop()
	if !ok {
		return ErrShoeExhausted
	}
	s.debit(s.currentBet)
	s.currentBet *= 2
	s.hand.Add(c)
	s.canDoubleDown = false
	s.canSplit = false
	if s.hand.IsBust() {
		s.busted = true
		s.result = ResultLose
	} else {
		s.stood = true
	}
	g.finishPrimary(s)
	return nil
}

// Split 分牌: 主手第二张移入分牌手, 补投同额赌注, 两手各补一张.
// 先打主手; 分牌得到的 21 不算 natural.
func (g *Game) Split(number int) error {
	s, err := g.actingSeat(number)
	if err != nil {
		return err
	}
	if s.hasSplit {
		return ErrAlreadySplit
	}
	if !s.canSplit {
		return ErrCannotSplit
	}
	if s.currentBet > s.balance {
		return ErrInsufficientBalance
	}

	// 分牌要补两张牌, 先确认牌靴够抽再动座位状态
	cards, ok := g.shoe.PopCards(2)
	if !ok {
		return ErrShoeExhausted
	}

	s.splitHand = Hand{s.hand[1], cards[1]}
	s.hand = Hand{s.hand[0], cards[0]}
	s.debit(s.currentBet)
	s.splitBet = s.currentBet

	s.hasSplit = true
	s.canSplit = false
	s.canDoubleDown = true
	s.playingSplitHand = false

	if s.hand.Value() == 21 {
		// 主手直接停牌, 行动权立即转到分牌手
		s.stood = true
		s.playingSplitHand = true
	}
	return nil
}

// DealerPlay 庄家补牌到 17 点或以上, 然后统一结算.
func (g *Game) DealerPlay() error {
	if g.phase != PhaseDealerTurn {
		return ErrInvalidPhase
	}
	for g.dealerHand.Value() < 17 {
		c, ok := g.shoe.Pop()
		if !ok {
			return ErrShoeExhausted
		}
		g.dealerHand.Add(c)
	}
	g.lastSettlement = g.settle()
	g.phase = PhaseRoundOver
	g.roundActive = false
	g.currentTurn = InvalidSeat
	return nil
}

// bettingSeats 已下注座位号升序
func (g *Game) bettingSeats() []int {
	nums := make([]int, 0, len(g.seats))
	for n, s := range g.seats {
		if s.hasBet {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums
}

// actingSeat 行动类动作共用的入口检查
func (g *Game) actingSeat(number int) (*Seat, error) {
	if g.phase != PhasePlaying {
		return nil, ErrInvalidPhase
	}
	s := g.seats[number]
	if s == nil {
		return nil, ErrPlayerNotFound
	}
	if g.currentTurn != number {
		return nil, ErrNotYourTurn
	}
	// 不变量断言: playingSplitHand 只在主手停牌/爆牌后置真
	// (见 finishPrimary 与 Split 的 21 分支), 正常流程到不了这里.
	if s.playingSplitHand && !s.stood && !s.busted {
		return nil, ErrSplitOrdering
	}
	return s, nil
}

func (g *Game) splitHit(s *Seat) error {
	c, ok := g.shoe.Pop()
	if !ok {
		return ErrShoeExhausted
	}
	s.splitHand.Add(c)
	s.canDoubleDown = false
	if s.splitHand.IsBust() {
		s.splitBusted = true
		s.splitResult = ResultLose
		s.hasActed = true
		g.advanceTurn(s.number)
	}
	return nil
}

// finishPrimary 主手停牌/爆牌后: 有待打的分牌手则行动权留在本座位,
// 否则本座位行动结束, 轮转前进.
func (g *Game) finishPrimary(s *Seat) {
	if s.splitPending() {
		s.playingSplitHand = true
		// 分牌手是全新的两张牌, 重新获得加倍资格
		s.canDoubleDown = true
		return
	}
	s.hasActed = true
	g.advanceTurn(s.number)
}

// nextTurn 从 after 之后按座位号升序找第一个主手待行动的座位
func (g *Game) nextTurn(after int) int {
	for _, n := range g.SeatNumbers() {
		if after != InvalidSeat && n <= after {
			continue
		}
		if g.seats[n].pending() {
			return n
		}
	}
	return InvalidSeat
}

func (g *Game) advanceTurn(after int) {
	next := g.nextTurn(after)
	g.currentTurn = next
	if next == InvalidSeat {
		g.phase = PhaseDealerTurn
	}
}

// resolveDealerNatural 庄家天牌: 玩家天牌退注 push, 其余输, 直接终局.
func (g *Game) resolveDealerNatural(betting []int) {
	results := make([]HandResult, 0, len(betting))
	for _, n := range betting {
		s := g.seats[n]
		s.hasActed = true
		s.stood = true
		hr := HandResult{Seat: n, UserID: s.userID, Bet: s.currentBet}
		if s.isNatural() {
			s.result = ResultPush
			s.credit(s.currentBet)
			hr.Credit = s.currentBet
		} else {
			s.result = ResultLose
		}
		hr.Result = s.result
		hr.Balance = s.balance
		results = append(results, hr)
	}
	g.lastSettlement = &SettlementResult{DealerValue: g.dealerHand.Value(), DealerNatural: true, Hands: results}
	g.phase = PhaseRoundOver
	g.roundActive = false
	g.currentTurn = InvalidSeat
}
