package blackjack

import (
	"testing"

	"blackjack-lite/card"
)

func mustCard(t *testing.T, s string) card.Card {
	t.Helper()
	c, err := card.Parse(s)
	if err != nil {
		t.Fatalf("parse card %q: %v", s, err)
	}
	return c
}

func mustHand(t *testing.T, cards ...string) Hand {
	t.Helper()
	h := make(Hand, 0, len(cards))
	for _, s := range cards {
		h = append(h, mustCard(t, s))
	}
	return h
}

func TestHandValue(t *testing.T) {
	cases := []struct {
		cards []string
		want  int
	}{
		{[]string{"Ah", "6d"}, 17},
		{[]string{"Ah", "6d", "Ks"}, 17},
		{[]string{"Ah", "As"}, 12},
		{[]string{"Kh", "Qd", "As"}, 21},
		{[]string{"10h", "9d", "3c"}, 22},
		{[]string{"Ah", "Ad", "Ac", "As"}, 14},
		{[]string{"2h", "3d", "4c"}, 9},
	}
	for _, tc := range cases {
		h := mustHand(t, tc.cards...)
		if got := h.Value(); got != tc.want {
			t.Errorf("%v: value=%d, want %d", tc.cards, got, tc.want)
		}
	}
}

func TestHandBustAndNatural(t *testing.T) {
	if mustHand(t, "Ah", "6d", "Ks").IsBust() {
		t.Error("soft hand with ace demoted should not bust")
	}
	if !mustHand(t, "10h", "9d", "3c").IsBust() {
		t.Error("22 should bust")
	}
	if !mustHand(t, "Ah", "Kd").IsNatural() {
		t.Error("two-card 21 should be natural")
	}
	if mustHand(t, "Kh", "Qd", "As").IsNatural() {
		t.Error("three-card 21 must not be natural")
	}
	if mustHand(t, "10h", "9d").IsNatural() {
		t.Error("19 is not natural")
	}
}
