package deck

import (
	"reflect"
	"testing"
)

func TestDedupPreservesFirstOccurrence(t *testing.T) {
	got := Dedup([]string{"Forest", "Island", "Forest", "Mountain"})
	want := []string{"Forest", "Island", "Mountain"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dedup = %v, want %v", got, want)
	}
}

func TestBigramsTooFewCards(t *testing.T) {
	_, err := Bigrams([]string{"Forest"})
	if err == nil {
		t.Fatal("expected ErrTooFewCards, got nil")
	}
	var tooFew *ErrTooFewCards
	if _, ok := err.(*ErrTooFewCards); !ok {
		t.Errorf("err = %v (%T), want *ErrTooFewCards", err, err)
	}
	_ = tooFew
}

func TestBigramsDuplicatesDoNotChangeResult(t *testing.T) {
	a, err := Bigrams([]string{"Forest", "Island", "Forest"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Bigrams([]string{"Forest", "Island"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Bigrams with duplicate input = %v, want %v", a, b)
	}
}

func TestBigramsPermutationInvariant(t *testing.T) {
	a, err := Bigrams([]string{"Forest", "Island", "Mountain"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Bigrams([]string{"Mountain", "Forest", "Island"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Bigrams not permutation invariant: %v vs %v", a, b)
	}
}

func TestBigramsCanonicalOrder(t *testing.T) {
	pairs, err := Bigrams([]string{"Zebra Stripe", "Aven Sentry"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("len(pairs) = %d, want 1", len(pairs))
	}
	if pairs[0].CardA != "Aven Sentry" || pairs[0].CardB != "Zebra Stripe" {
		t.Errorf("pair = %+v, want canonical sorted order", pairs[0])
	}
}

func TestNewBigramCanonical(t *testing.T) {
	a := NewBigram("b", "a")
	b := NewBigram("a", "b")
	if a != b {
		t.Errorf("NewBigram(b,a) = %+v, NewBigram(a,b) = %+v, want equal", a, b)
	}
}

func TestBigramCountQuadratic(t *testing.T) {
	cards := make([]string, 10)
	for i := range cards {
		cards[i] = string(rune('a' + i))
	}
	pairs, err := Bigrams(cards)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 10 * 9 / 2
	if len(pairs) != want {
		t.Errorf("len(pairs) = %d, want %d", len(pairs), want)
	}
}
