package card

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Card 牌枚举
//
// 编码规则:
// - 高4位: 花色 (0:Spade, 1:Heart, 2:Club, 3:Diamond)
// - 低4位: 点数 (1:A, 2..9, 10:T, 11:J, 12:Q, 13:K)
type Card byte

func (c Card) String() string {
	suit := Suit(c >> 4) // 高4位表示花色
	rank := c & 0x0F     // 低4位表示点数

	rankStr := ""
	switch rank {
	case 1:
		rankStr = "A"
	case 10:
		rankStr = "T"
	case 11:
		rankStr = "J"
	case 12:
		rankStr = "Q"
	case 13:
		rankStr = "K"
	default:
		rankStr = fmt.Sprintf("%d", rank)
	}

	return fmt.Sprintf("%s%s", suit, rankStr)
}

// Rank 获取牌面值 1-13 (A=1, K=13)
func (c Card) Rank() byte {
	return byte(c & 0x0F)
}

// Suit 花色 (0:Spades, 1:Hearts, 2:Clubs, 3:Diamonds)
func (c Card) Suit() Suit {
	return Suit(c >> 4)
}

func (c Card) IsAce() bool {
	return c.Rank() == 1
}

// Value 返回 21 点面值:
// - A 视为 11 (软牌调整由 Hand 负责)
// - J/Q/K 为 10
// - 其它为原始点数
func (c Card) Value() int {
	r := int(c & 0x0F)
	switch {
	case r == 1:
		return 11
	case r >= 10:
		return 10
	default:
		return r
	}
}

// RankName 返回外部协议中的点数名 ("A", "2".."10", "J", "Q", "K").
func (c Card) RankName() string {
	switch r := c.Rank(); r {
	case 1:
		return "A"
	case 10:
		return "10"
	case 11:
		return "J"
	case 12:
		return "Q"
	case 13:
		return "K"
	default:
		return fmt.Sprintf("%d", r)
	}
}

// New 由花色和点数 (1-13) 组装一张牌
func New(s Suit, rank byte) Card {
	return Card(byte(s)<<4 | rank&0x0F)
}

// Parse 将字符串 (如 "As", "Td", "10h") 转换为 Card
func Parse(cardStr string) (Card, error) {
	if len(cardStr) < 2 {
		return 0, fmt.Errorf("invalid card string: %s", cardStr)
	}

	suitChar := cardStr[len(cardStr)-1]
	var suitBase Card

	switch suitChar {
	case 's', 'S':
		suitBase = 0x00
	case 'h', 'H':
		suitBase = 0x10
	case 'c', 'C':
		suitBase = 0x20
	case 'd', 'D':
		suitBase = 0x30
	default:
		return 0, fmt.Errorf("invalid suit: %c", suitChar)
	}

	rankStr := cardStr[:len(cardStr)-1]
	var rankVal Card

	switch strings.ToUpper(rankStr) {
	case "A":
		rankVal = 0x01
	case "2":
		rankVal = 0x02
	case "3":
		rankVal = 0x03
	case "4":
		rankVal = 0x04
	case "5":
		rankVal = 0x05
	case "6":
		rankVal = 0x06
	case "7":
		rankVal = 0x07
	case "8":
		rankVal = 0x08
	case "9":
		rankVal = 0x09
	case "T", "10":
		rankVal = 0x0A
	case "J":
		rankVal = 0x0B
	case "Q":
		rankVal = 0x0C
	case "K":
		rankVal = 0x0D
	default:
		return 0, fmt.Errorf("invalid rank: %s", rankStr)
	}

	return suitBase + rankVal, nil
}

// wireCard 对外 JSON 形式: {"rank":"10","suit":"hearts"}
type wireCard struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireCard{Rank: c.RankName(), Suit: c.Suit().Name()})
}

func (c *Card) UnmarshalJSON(data []byte) error {
	var w wireCard
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	suit, err := parseSuitName(w.Suit)
	if err != nil {
		return err
	}
	rank, err := parseRankName(w.Rank)
	if err != nil {
		return err
	}
	*c = New(suit, rank)
	return nil
}

func parseRankName(s string) (byte, error) {
	switch strings.ToUpper(s) {
	case "A":
		return 1, nil
	case "2", "3", "4", "5", "6", "7", "8", "9":
		return s[0] - '0', nil
	case "10", "T":
		return 10, nil
	case "J":
		return 11, nil
	case "Q":
		return 12, nil
	case "K":
		return 13, nil
	}
	return 0, fmt.Errorf("invalid rank: %s", s)
}
