// Package reference generates ledger reference strings.
package reference

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Operation prefixes.
const (
	PrefixDeposit  = "DEP"
	PrefixWithdraw = "WTH"
	PrefixSend     = "SND"
	PrefixReceive  = "RCV"
	PrefixConvert  = "CNV"
)

// suffixBytes of entropy encode to 16 base32 characters (80 bits).
const suffixBytes = 10

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Generator builds PREFIX + unix millis + random suffix. Uniqueness is
// best effort; the ledger's unique index has the final word.
type Generator struct {
	now  func() time.Time
	rand io.Reader
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now, rand: rand.Reader}
}

// Next returns a fresh reference for prefix.
func (g *Generator) Next(prefix string) (string, error) {
	b := make([]byte, suffixBytes)
	if _, err := io.ReadFull(g.rand, b); err != nil {
		return "", fmt.Errorf("read random suffix: %w", err)
	}
	return prefix + strconv.FormatInt(g.now().UnixMilli(), 10) + encoding.EncodeToString(b), nil
}
