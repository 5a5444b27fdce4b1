package blackjack

// Seat 一个座位在单个回合内的全部可变状态
type Seat struct {
	number int
	userID string

	balance int64

	hand      Hand
	splitHand Hand // hasSplit 为 true 时才有意义

	currentBet int64
	splitBet   int64

	hasBet      bool
	hasActed    bool
	stood       bool
	busted      bool
	splitStood  bool
	splitBusted bool

	result      Result
	splitResult Result

	canDoubleDown    bool
	canSplit         bool
	hasSplit         bool
	playingSplitHand bool
}

func (s *Seat) Number() int     { return s.number }
func (s *Seat) UserID() string  { return s.userID }
func (s *Seat) Balance() int64  { return s.balance }
func (s *Seat) Hand() Hand      { return s.hand }
func (s *Seat) SplitHand() Hand { return s.splitHand }

func (s *Seat) CurrentBet() int64 { return s.currentBet }
func (s *Seat) SplitBet() int64   { return s.splitBet }
func (s *Seat) HasBet() bool      { return s.hasBet }
func (s *Seat) HasSplit() bool    { return s.hasSplit }

func (s *Seat) Result() Result      { return s.result }
func (s *Seat) SplitResult() Result { return s.splitResult }

// ResetForRound 清空上一回合的手牌/下注/标记
func (s *Seat) ResetForRound() {
	s.hand = make(Hand, 0, 4)
	s.splitHand = nil
	s.currentBet = 0
	s.splitBet = 0
	s.hasBet = false
	s.hasActed = false
	s.stood = false
	s.busted = false
	s.splitStood = false
	s.splitBusted = false
	s.result = ResultNone
	s.splitResult = ResultNone
	s.canDoubleDown = false
	s.canSplit = false
	s.hasSplit = false
	s.playingSplitHand = false
}

// isNatural 只有未分牌的两张 21 才算 natural
func (s *Seat) isNatural() bool {
	return !s.hasSplit && s.hand.IsNatural()
}

// pending 主手仍待行动 (回合全局轮转只看主手标记)
func (s *Seat) pending() bool {
	return s.hasBet && !s.hasActed && !s.busted && !s.stood
}

// splitPending 分出的手牌尚未打完
func (s *Seat) splitPending() bool {
	return s.hasSplit && !s.splitStood && !s.splitBusted
}

func (s *Seat) credit(amount int64) {
	s.balance += amount
}

func (s *Seat) debit(amount int64) {
	s.balance -= amount
}
