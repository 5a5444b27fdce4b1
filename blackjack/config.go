package blackjack

import "fmt"

type Config struct {
	// Seats
	MaxSeats int

	// Shoe
	NumDecks           int
	ReshuffleThreshold int // 靴内剩牌低于该值时在下注阶段开始前重洗

	// RNG seed (0 => time-based)
	Seed int64
}

// DefaultConfig 六副牌, 五个座位, 剩牌不足一副时重洗
func DefaultConfig() Config {
	return Config{
		MaxSeats:           5,
		NumDecks:           6,
		ReshuffleThreshold: 52,
	}
}

func (c Config) validate() error {
	if c.MaxSeats <= 0 {
		return fmt.Errorf("MaxSeats must be > 0")
	}
	if c.NumDecks <= 0 {
		return fmt.Errorf("NumDecks must be > 0")
	}
	if c.ReshuffleThreshold < 0 {
		return fmt.Errorf("ReshuffleThreshold must be >= 0")
	}
	if c.ReshuffleThreshold > c.NumDecks*52 {
		return fmt.Errorf("ReshuffleThreshold exceeds shoe size")
	}
	return nil
}
