package token

import "testing"

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"ab", 1},
		{"abcd", 1},
		{"abcdefgh", 2},
	}
	for _, tt := range tests {
		if got := estimateTokens(tt.text); got != tt.want {
			t.Errorf("estimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestCountEstimatingMode(t *testing.T) {
	c := &Counter{estimate: true}
	if !c.Estimating() {
		t.Fatal("Estimating() = false for estimating counter")
	}
	if got := c.Count("abcdefgh"); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
	if got := c.CountAll("abcd", "abcd"); got != 2 {
		t.Errorf("CountAll = %d, want 2", got)
	}
}

func TestCountMonotonic(t *testing.T) {
	c := NewCounter()
	short := c.Count("func main() {}")
	long := c.Count("func main() {\n\tfmt.Println(\"hello world\")\n\tfmt.Println(\"goodbye\")\n}")
	if short <= 0 {
		t.Errorf("short count = %d, want > 0", short)
	}
	if long <= short {
		t.Errorf("longer text counted %d tokens, short counted %d", long, short)
	}
}
