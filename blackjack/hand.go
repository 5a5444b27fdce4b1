package blackjack

import "blackjack-lite/card"

// Hand 单手牌, 回合内只追加不删除
type Hand []card.Card

func (h *Hand) Add(cards ...card.Card) {
	*h = append(*h, cards...)
}

// Value 21 点算法: A 先按 11 计, 爆牌时每张 A 逐一降为 1
func (h Hand) Value() int {
	total := 0
	aces := 0
	for _, c := range h {
		total += c.Value()
		if c.IsAce() {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

func (h Hand) IsBust() bool {
	return h.Value() > 21
}

// IsNatural 两张牌 21 点; 分牌产生的 21 不算 natural, 由 Seat 层把关
func (h Hand) IsNatural() bool {
	return len(h) == 2 && h.Value() == 21
}
