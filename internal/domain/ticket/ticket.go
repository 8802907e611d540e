// Package ticket produces ticket numbers and QR tokens for parking sessions.
//
// A ticket number is "PRK" + YYYYMMDD + a three digit sequence that restarts
// every calendar day. At most MaxSequence tickets can be issued per day; the
// next allocation fails with ErrSequenceExhausted instead of wrapping.
package ticket

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	// Prefix starts every ticket number.
	Prefix = "PRK"
	// MaxSequence is the highest per-day sequence a ticket can carry.
	MaxSequence = 999
	// MinTokenLength is the shortest QR token NewQRToken will produce.
	MinTokenLength = 32

	dateLayout = "20060102"
	seqDigits  = 3
)

var (
	// ErrGeneration indicates a unique code could not be allocated.
	ErrGeneration = errors.New("code generation failed")
	// ErrSequenceExhausted indicates the daily ticket sequence is used up.
	ErrSequenceExhausted = fmt.Errorf("%w: more than %d tickets issued today", ErrGeneration, MaxSequence)
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DatePrefix returns the ticket prefix shared by every ticket of date's day.
func DatePrefix(date time.Time) string {
	return Prefix + date.Format(dateLayout)
}

// FormatNumber builds the ticket number for sequence seq on date's day.
func FormatNumber(date time.Time, seq int) (string, error) {
	if seq > MaxSequence {
		return "", ErrSequenceExhausted
	}
	if seq < 1 {
		return "", fmt.Errorf("%w: invalid ticket sequence %d", ErrGeneration, seq)
	}
	return fmt.Sprintf("%s%0*d", DatePrefix(date), seqDigits, seq), nil
}

// ParseNumber splits a ticket number into its date prefix and sequence.
func ParseNumber(number string) (prefix string, seq int, ok bool) {
	if len(number) != len(Prefix)+len(dateLayout)+seqDigits || !strings.HasPrefix(number, Prefix) {
		return "", 0, false
	}
	cut := len(number) - seqDigits
	if _, err := time.Parse(dateLayout, number[len(Prefix):cut]); err != nil {
		return "", 0, false
	}
	seq, err := strconv.Atoi(number[cut:])
	if err != nil || seq < 1 {
		return "", 0, false
	}
	return number[:cut], seq, true
}

// NextNumber returns the number following the highest sequence among existing
// tickets issued on date's day. Tickets from other days are ignored, and gaps
// left by cancelled sessions are never refilled.
func NextNumber(date time.Time, existing []string) (string, error) {
	prefix := DatePrefix(date)
	highest := 0
	for _, number := range existing {
		p, seq, ok := ParseNumber(number)
		if !ok || p != prefix {
			continue
		}
		if seq > highest {
			highest = seq
		}
	}
	return FormatNumber(date, highest+1)
}

// NewQRToken returns a random opaque token of the given length drawn from
// [A-Za-z0-9]. Lengths below MinTokenLength are raised to it.
func NewQRToken(length int) (string, error) {
	return newToken(rand.Reader, length)
}

func newToken(src io.Reader, length int) (string, error) {
	if length < MinTokenLength {
		length = MinTokenLength
	}

	// Bytes at or above the largest multiple of the alphabet size are
	// rejected so every character is equally likely.
	const limit = 256 - 256%len(tokenAlphabet)
	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", fmt.Errorf("%w: reading randomness: %v", ErrGeneration, err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
