package card

import "math/rand"

// Shoe 牌靴: 多副牌合并洗匀, 发完即止 (不中途重洗)
type Shoe []Card

// NewShoe 构造 numDecks 副牌的牌靴并用 rng 洗匀
func NewShoe(numDecks int, rng *rand.Rand) Shoe {
	shoe := make(Shoe, 0, numDecks*52)
	for d := 0; d < numDecks; d++ {
		for _, s := range Suits {
			for r := byte(1); r <= 13; r++ {
				shoe = append(shoe, New(s, r))
			}
		}
	}
	rng.Shuffle(len(shoe), func(i, j int) {
		shoe[i], shoe[j] = shoe[j], shoe[i]
	})
	return shoe
}

// Remaining 剩余牌数
func (s Shoe) Remaining() int {
	return len(s)
}

// Pop 从靴顶抽一张
func (s *Shoe) Pop() (Card, bool) {
	if len(*s) == 0 {
		return 0, false
	}
	c := (*s)[0]
	*s = (*s)[1:]
	return c, true
}

// PopCards 从靴顶抽 size 张, 不足时整体失败
func (s *Shoe) PopCards(size int) ([]Card, bool) {
	if size > len(*s) {
		return nil, false
	}
	cards := make([]Card, size)
	copy(cards, (*s)[:size])
	*s = (*s)[size:]
	return cards, true
}
