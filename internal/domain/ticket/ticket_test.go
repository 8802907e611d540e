package ticket

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	day := time.Date(2024, 12, 6, 9, 30, 0, 0, time.UTC)

	number, err := FormatNumber(day, 1)
	require.NoError(t, err)
	require.Equal(t, "PRK20241206001", number)

	number, err = FormatNumber(day, 999)
	require.NoError(t, err)
	require.Equal(t, "PRK20241206999", number)

	_, err = FormatNumber(day, 1000)
	require.ErrorIs(t, err, ErrSequenceExhausted)
	require.ErrorIs(t, err, ErrGeneration)

	_, err = FormatNumber(day, 0)
	require.ErrorIs(t, err, ErrGeneration)
}

func TestParseNumber(t *testing.T) {
	prefix, seq, ok := ParseNumber("PRK20241206042")
	require.True(t, ok)
	require.Equal(t, "PRK20241206", prefix)
	require.Equal(t, 42, seq)

	for _, bad := range []string{"", "PRK2024120604", "XYZ20241206042", "PRK20241306042", "PRK20241206abc", "PRK20241206000"} {
		_, _, ok := ParseNumber(bad)
		require.False(t, ok, bad)
	}
}

func TestNextNumber(t *testing.T) {
	day := time.Date(2024, 12, 6, 0, 0, 0, 0, time.UTC)

	number, err := NextNumber(day, nil)
	require.NoError(t, err)
	require.Equal(t, "PRK20241206001", number)

	// Highest suffix wins, gaps are not refilled, other days are ignored.
	number, err = NextNumber(day, []string{"PRK20241206001", "PRK20241206007", "PRK20241205050", "garbage"})
	require.NoError(t, err)
	require.Equal(t, "PRK20241206008", number)

	_, err = NextNumber(day, []string{"PRK20241206999"})
	require.ErrorIs(t, err, ErrSequenceExhausted)
}

func TestNextNumberStrictlyIncreasing(t *testing.T) {
	day := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	var issued []string
	for i := 0; i < 50; i++ {
		number, err := NextNumber(day, issued)
		require.NoError(t, err)
		if len(issued) > 0 {
			require.Greater(t, number, issued[len(issued)-1])
		}
		issued = append(issued, number)
	}
}

func TestNewQRToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		token, err := NewQRToken(32)
		require.NoError(t, err)
		require.Len(t, token, 32)
		for _, c := range token {
			require.True(t, strings.ContainsRune(tokenAlphabet, c))
		}
		_, dup := seen[token]
		require.False(t, dup)
		seen[token] = struct{}{}
	}

	token, err := NewQRToken(8)
	require.NoError(t, err)
	require.Len(t, token, MinTokenLength)

	token, err = NewQRToken(48)
	require.NoError(t, err)
	require.Len(t, token, 48)
}

func TestNewTokenRejectsBiasedBytes(t *testing.T) {
	// 0xFF is above the rejection limit; only the zero bytes are used.
	src := bytes.NewReader(append(bytes.Repeat([]byte{0xFF}, 32), make([]byte, 32)...))
	token, err := newToken(src, 32)
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("A", 32), token)
}

func TestNewTokenReadFailure(t *testing.T) {
	_, err := newToken(bytes.NewReader(nil), 32)
	require.True(t, errors.Is(err, ErrGeneration))
}
