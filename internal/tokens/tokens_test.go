package tokens

import "testing"

func TestCounter_Count(t *testing.T) {
	c := NewCounter()

	if got := c.Count(""); got != 0 {
		t.Errorf("empty string should cost 0 tokens, got %d", got)
	}
	if got := c.Count("abcdefgh"); got != 2 {
		t.Errorf("8 chars should be 2 tokens, got %d", got)
	}
	if got := c.Count("ab"); got != 1 {
		t.Errorf("non-empty text should never round to 0, got %d", got)
	}
	// Unicode counts runes, not bytes.
	if got := c.Count("日本語です"); got != 1 {
		t.Errorf("4 runes should be 1 token, got %d", got)
	}
}

func TestCounter_CountAll(t *testing.T) {
	c := NewCounter()
	if got := c.CountAll("abcdefgh", "abcdefgh"); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
}

func TestBudget_Accounting(t *testing.T) {
	b := NewBudget(100)

	b.Add(30, 20)
	if b.Total() != 50 {
		t.Fatalf("expected total 50, got %d", b.Total())
	}
	if b.Input() != 30 || b.Output() != 20 {
		t.Errorf("split wrong: input=%d output=%d", b.Input(), b.Output())
	}
	if b.Warning() {
		t.Error("50%% usage should not warn")
	}
	if b.Remaining() != 50 {
		t.Errorf("expected remaining 50, got %d", b.Remaining())
	}

	b.Add(30, 0)
	if !b.Warning() {
		t.Error("80%% usage should warn")
	}
	if b.Exceeded() {
		t.Error("80%% usage should not be exceeded")
	}

	b.Add(0, 25)
	if !b.Exceeded() {
		t.Error("105%% usage should be exceeded")
	}
	if b.Remaining() != 0 {
		t.Errorf("remaining should clamp at 0, got %d", b.Remaining())
	}
}
