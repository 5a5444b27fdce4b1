package card

import (
	"encoding/json"
	"math/rand"
	"testing"
)

func TestCardEncoding(t *testing.T) {
	c, err := Parse("Th")
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if c.Suit() != Heart || c.Rank() != 10 {
		t.Fatalf("Th decoded as suit=%v rank=%d", c.Suit(), c.Rank())
	}
	if c != New(Heart, 10) {
		t.Fatal("Parse and New disagree")
	}

	ace, _ := Parse("As")
	if !ace.IsAce() || ace.Value() != 11 {
		t.Fatalf("As: ace=%v value=%d", ace.IsAce(), ace.Value())
	}
	king, _ := Parse("Kd")
	if king.Value() != 10 {
		t.Fatalf("Kd value = %d, want 10", king.Value())
	}
}

func TestCardJSON(t *testing.T) {
	c, _ := Parse("10h")
	raw, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal err: %v", err)
	}
	if string(raw) != `{"rank":"10","suit":"hearts"}` {
		t.Fatalf("wire form = %s", raw)
	}

	var back Card
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal err: %v", err)
	}
	if back != c {
		t.Fatalf("round trip: %v != %v", back, c)
	}

	var bad Card
	if err := json.Unmarshal([]byte(`{"rank":"X","suit":"hearts"}`), &bad); err == nil {
		t.Fatal("invalid rank accepted")
	}
	if err := json.Unmarshal([]byte(`{"rank":"2","suit":"stars"}`), &bad); err == nil {
		t.Fatal("invalid suit accepted")
	}
}

func TestShoeComposition(t *testing.T) {
	shoe := NewShoe(6, rand.New(rand.NewSource(1)))
	if shoe.Remaining() != 6*52 {
		t.Fatalf("shoe size = %d, want %d", shoe.Remaining(), 6*52)
	}
	counts := make(map[Card]int)
	for _, c := range shoe {
		counts[c]++
	}
	if len(counts) != 52 {
		t.Fatalf("distinct cards = %d, want 52", len(counts))
	}
	for c, n := range counts {
		if n != 6 {
			t.Fatalf("card %v appears %d times, want 6", c, n)
		}
	}
}

func TestShoeDraw(t *testing.T) {
	shoe := NewShoe(1, rand.New(rand.NewSource(7)))
	first := shoe[0]
	c, ok := shoe.Pop()
	if !ok || c != first {
		t.Fatalf("Pop = %v/%v, want %v/true", c, ok, first)
	}
	if shoe.Remaining() != 51 {
		t.Fatalf("remaining = %d, want 51", shoe.Remaining())
	}

	if _, ok := shoe.PopCards(52); ok {
		t.Fatal("over-draw must fail")
	}
	cards, ok := shoe.PopCards(51)
	if !ok || len(cards) != 51 {
		t.Fatalf("drain: ok=%v n=%d", ok, len(cards))
	}
	if _, ok := shoe.Pop(); ok {
		t.Fatal("empty shoe must not deal")
	}
}

func TestShoeDeterministicBySeed(t *testing.T) {
	a := NewShoe(6, rand.New(rand.NewSource(42)))
	b := NewShoe(6, rand.New(rand.NewSource(42)))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed diverged at %d", i)
		}
	}
}
