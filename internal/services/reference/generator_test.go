package reference

import (
	"bytes"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refPattern = regexp.MustCompile(`^DEP[0-9]{13}[A-Z2-7]{16}$`)

func TestNext_Format(t *testing.T) {
	g := NewGenerator()
	ref, err := g.Next(PrefixDeposit)
	require.NoError(t, err)
	assert.Regexp(t, refPattern, ref)
}

func TestNext_Deterministic(t *testing.T) {
	g := &Generator{
		now:  func() time.Time { return time.UnixMilli(1700000000000) },
		rand: bytes.NewReader(make([]byte, suffixBytes)),
	}
	ref, err := g.Next(PrefixSend)
	require.NoError(t, err)
	assert.Equal(t, "SND1700000000000AAAAAAAAAAAAAAAA", ref)
}

func TestNext_Unique(t *testing.T) {
	g := NewGenerator()
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		ref, err := g.Next(PrefixConvert)
		require.NoError(t, err)
		_, dup := seen[ref]
		require.False(t, dup, ref)
		seen[ref] = struct{}{}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestNext_RandomFailure(t *testing.T) {
	g := &Generator{now: time.Now, rand: failingReader{}}
	_, err := g.Next(PrefixWithdraw)
	assert.ErrorContains(t, err, "entropy exhausted")
}
