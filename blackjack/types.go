package blackjack

import (
	"encoding/json"
	"fmt"
)

const InvalidSeat int = -1

// Phase 游戏阶段
type Phase byte

const (
	PhaseWaiting    Phase = 0
	PhaseBetting    Phase = 1
	PhasePlaying    Phase = 2
	PhaseDealerTurn Phase = 3
	PhaseRoundOver  Phase = 4
)

var PhaseDictionary = map[Phase]string{
	PhaseWaiting:    "waiting",
	PhaseBetting:    "betting",
	PhasePlaying:    "playing",
	PhaseDealerTurn: "dealer_turn",
	PhaseRoundOver:  "round_over",
}

func (p Phase) String() string {
	if s, ok := PhaseDictionary[p]; ok {
		return s
	}
	return fmt.Sprintf("phase(%d)", byte(p))
}

func (p Phase) MarshalJSON() ([]byte, error) {
	s, ok := PhaseDictionary[p]
	if !ok {
		return nil, fmt.Errorf("unknown phase %d", byte(p))
	}
	return json.Marshal(s)
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for k, v := range PhaseDictionary {
		if v == s {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", s)
}

// Result 单手牌的结算结果, 未结算时序列化为 null
type Result byte

const (
	ResultNone      Result = 0
	ResultWin       Result = 1
	ResultLose      Result = 2
	ResultPush      Result = 3
	ResultBlackjack Result = 4
)

var ResultDictionary = map[Result]string{
	ResultWin:       "win",
	ResultLose:      "lose",
	ResultPush:      "push",
	ResultBlackjack: "blackjack",
}

func (r Result) String() string {
	if r == ResultNone {
		return "none"
	}
	if s, ok := ResultDictionary[r]; ok {
		return s
	}
	return fmt.Sprintf("result(%d)", byte(r))
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r == ResultNone {
		return []byte("null"), nil
	}
	s, ok := ResultDictionary[r]
	if !ok {
		return nil, fmt.Errorf("unknown result %d", byte(r))
	}
	return json.Marshal(s)
}

func (r *Result) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = ResultNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for k, v := range ResultDictionary {
		if v == s {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("unknown result %q", s)
}
