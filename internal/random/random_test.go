package random_test

import (
	"github.com/myrjola/resqlink/internal/random"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func TestLetters(t *testing.T) {
	tests := []struct {
		name   string
		length uint
	}{
		{name: "empty", length: 0},
		{name: "request id", length: 12},
		{name: "csp nonce", length: 24},
		{name: "long", length: 256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := random.Letters(tt.length)
			require.NoError(t, err)
			require.Len(t, got, int(tt.length))
			require.Empty(t, strings.Trim(got, random.Alphabet), "token must only contain letters")
		})
	}
}

func TestLetters_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		nonce, err := random.Letters(24)
		require.NoError(t, err)
		require.False(t, seen[nonce], "nonce %q repeated", nonce)
		seen[nonce] = true
	}
}
