package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"punctuation", "NETFLIX.COM", "netflix com"},
		{"whitespace", "  Coffee   Shop  ", "coffee shop"},
		{"mixed", "AMZN Mktp US*2K4", "amzn mktp us 2k4"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestMerchantKey(t *testing.T) {
	assert.Equal(t, "starbucks store", MerchantKey("STARBUCKS STORE #12345"))
	assert.Equal(t, "netflix com", MerchantKey("NETFLIX.COM 866-579-7172"))
	assert.Equal(t, "", MerchantKey("12345"))
}

func TestTokenOverlap(t *testing.T) {
	assert.InDelta(t, 1.0, TokenOverlap("Coffee Shop", "coffee shop"), 1e-9)
	assert.InDelta(t, 0.5, TokenOverlap("coffee shop", "coffee bar"), 1e-9)
	assert.InDelta(t, 0.0, TokenOverlap("", "coffee"), 1e-9)
}

func TestEditRatio(t *testing.T) {
	assert.InDelta(t, 1.0, EditRatio("Netflix", "NETFLIX"), 1e-9)
	assert.InDelta(t, 0.0, EditRatio("", ""), 1e-9)
	// one substitution over seven characters
	assert.InDelta(t, 1-1.0/7, EditRatio("netflix", "netflax"), 1e-9)
}

func TestScore(t *testing.T) {
	t.Run("identical text scores one", func(t *testing.T) {
		assert.InDelta(t, 1.0, Score("SQ *BLUE BOTTLE", "sq blue bottle"), 1e-9)
	})

	t.Run("unrelated text scores low", func(t *testing.T) {
		assert.Less(t, Score("Shell", "Whole Foods Market"), 0.4)
	})

	t.Run("bounded", func(t *testing.T) {
		for _, pair := range [][2]string{{"a", "b"}, {"", ""}, {"x y z", "x"}} {
			s := Score(pair[0], pair[1])
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	})
}

func TestContainsAndEqual(t *testing.T) {
	assert.True(t, Contains("STARBUCKS #1", "starbucks"))
	assert.False(t, Contains("Peet's", "starbucks"))
	assert.True(t, Equal(" Netflix ", "NETFLIX"))
}
