// Package idgen generates the prefixed identifiers used for stored records.
package idgen

import (
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// New returns prefix-<uuidv7>. Version 7 UUIDs embed the creation time, so
// ids sort by creation like the millisecond stamps they replace, but two ids
// minted in the same millisecond never collide.
func New(prefix string) string {
	return prefix + "-" + uuid.Must(uuid.NewV7()).String()
}

// Code returns n random characters from [0-9A-Z].
func Code(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(base36[rand.IntN(len(base36))])
	}
	return b.String()
}

// Digits returns n random decimal digits.
func Digits(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	return b.String()
}
