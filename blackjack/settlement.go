package blackjack

// HandResult 单手牌的结算明细
type HandResult struct {
	Seat    int
	UserID  string
	Split   bool
	Result  Result
	Bet     int64
	Credit  int64
	Balance int64
}

type SettlementResult struct {
	DealerValue   int
	DealerBust    bool
	DealerNatural bool
	Hands         []HandResult
}

// settle 对照庄家最终手牌结算所有已下注座位.
// 行动阶段已定输赢的手 (爆牌) 不再改写, 只记入明细.
func (g *Game) settle() *SettlementResult {
	dealerVal := g.dealerHand.Value()
	dealerBust := g.dealerHand.IsBust()
	dealerNat := g.dealerHand.IsNatural()

	out := &SettlementResult{
		DealerValue:   dealerVal,
		DealerBust:    dealerBust,
		DealerNatural: dealerNat,
	}

	for _, n := range g.SeatNumbers() {
		s := g.seats[n]
		if !s.hasBet {
			continue
		}

		if s.result == ResultNone {
			res, credit := settleHand(dealerVal, dealerBust, dealerNat, s.hand.Value(), s.isNatural(), s.currentBet)
			s.result = res
			s.credit(credit)
			out.Hands = append(out.Hands, HandResult{
				Seat: n, UserID: s.userID,
				Result: res, Bet: s.currentBet, Credit: credit, Balance: s.balance,
			})
		} else {
			out.Hands = append(out.Hands, HandResult{
				Seat: n, UserID: s.userID,
				Result: s.result, Bet: s.currentBet, Balance: s.balance,
			})
		}

		if !s.hasSplit {
			continue
		}
		if s.splitResult == ResultNone {
			// 分牌手永远不按 natural 赔付
			res, credit := settleHand(dealerVal, dealerBust, dealerNat, s.splitHand.Value(), false, s.splitBet)
			s.splitResult = res
			s.credit(credit)
			out.Hands = append(out.Hands, HandResult{
				Seat: n, UserID: s.userID, Split: true,
				Result: res, Bet: s.splitBet, Credit: credit, Balance: s.balance,
			})
		} else {
			out.Hands = append(out.Hands, HandResult{
				Seat: n, UserID: s.userID, Split: true,
				Result: s.splitResult, Bet: s.splitBet, Balance: s.balance,
			})
		}
	}
	return out
}

// settleHand 赔付规则:
// - 双方 natural: push, 退回赌注
// - 玩家 natural: 2.5 倍赔付
// - 庄家 natural: 输
// - 庄家爆牌: 赢, 退回双倍
// - 比点数: 高者赢, 相同 push, 低者输 (注金下注时已扣)
func settleHand(dealerVal int, dealerBust, dealerNat bool, value int, natural bool, bet int64) (Result, int64) {
	switch {
	case natural && dealerNat:
		return ResultPush, bet
	case natural:
		return ResultBlackjack, bet * 5 / 2
	case dealerNat:
		return ResultLose, 0
	case dealerBust:
		return ResultWin, bet * 2
	case value > dealerVal:
		return ResultWin, bet * 2
	case value == dealerVal:
		return ResultPush, bet
	default:
		return ResultLose, 0
	}
}
