package card

import "fmt"

type Suit byte

const (
	Spade Suit = iota // ♠️
	Heart             // ♥️
	Club              // ♣️
	Diamond           // ♦️
)

func (s Suit) String() string {
	switch s {
	case Diamond:
		return "♦️"
	case Club:
		return "♣️"
	case Heart:
		return "♥️"
	case Spade:
		return "♠️"
	}
	return "?"
}

// Name 返回外部协议中的花色名
func (s Suit) Name() string {
	switch s {
	case Diamond:
		return "diamonds"
	case Club:
		return "clubs"
	case Heart:
		return "hearts"
	case Spade:
		return "spades"
	}
	return "?"
}

func parseSuitName(name string) (Suit, error) {
	switch name {
	case "spades":
		return Spade, nil
	case "hearts":
		return Heart, nil
	case "clubs":
		return Club, nil
	case "diamonds":
		return Diamond, nil
	}
	return 0, fmt.Errorf("invalid suit: %s", name)
}

// Suits 固定遍历顺序, 构造牌靴时使用
var Suits = [4]Suit{Spade, Heart, Club, Diamond}
