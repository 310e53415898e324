package corpus

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleTSV = "I\tOTHER\tw=I\n" +
	"visited\tOTHER\tw=visited\n" +
	"New\tCITY_B\tw=New\tshape=Xx\n" +
	"York\tCITY_I\tw=York\tshape=Xxxx\n" +
	"\n" +
	"Bonjour\tOTHER\tw=Bonjour\n" +
	"\n"

func TestReadParsesSequencesAndStripsCR(t *testing.T) {
	c := New()
	skipped, err := c.Read(strings.NewReader(strings.ReplaceAll(sampleTSV, "\n", "\r\n")))
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.Equal(t, 2, c.Size())

	first := c.At(0)
	require.Len(t, first.Tokens, 4)
	require.Len(t, first.Labels, 4)

	second := c.At(1)
	require.Len(t, second.Tokens, 1)
}

func TestLabelZeroIsBOS(t *testing.T) {
	c := New()
	require.Equal(t, uint32(0), c.Labels().IDOf("<BOS>"))
}

func TestSkipsMalformedLines(t *testing.T) {
	c := New()
	skipped, err := c.Read(strings.NewReader("onlyonecolumn\n\nok\tLABEL\tattr\n"))
	require.NoError(t, err)
	require.Equal(t, 1, skipped)
	require.Equal(t, 1, c.Size())
}

func TestResetOrderPermutesWithoutMovingRecords(t *testing.T) {
	c := New()
	_, err := c.Read(strings.NewReader(sampleTSV))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	c.ResetOrder(RandomOrder, rng)
	require.Len(t, c.order, c.Size())

	seen := make(map[int]bool)
	for _, idx := range c.order {
		seen[idx] = true
	}
	require.Len(t, seen, c.Size())

	c.ResetOrder(OriginalOrder, rng)
	for i, idx := range c.order {
		require.Equal(t, i, idx)
	}
}

func TestPruneRemovesLowFrequencyAttributes(t *testing.T) {
	c := New()
	_, err := c.Read(strings.NewReader(sampleTSV))
	require.NoError(t, err)

	removed := c.Prune(2)
	require.Positive(t, removed)
	for i := 0; i < c.Size(); i++ {
		for _, tok := range c.At(i).Tokens {
			for _, a := range tok.Attributes {
				require.GreaterOrEqual(t, c.featureCounts[a], 2)
			}
		}
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c := New()
	_, err := c.Read(strings.NewReader(sampleTSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.WriteCache(&buf))

	loaded, err := ReadCache(&buf)
	require.NoError(t, err)

	require.Equal(t, c.Size(), loaded.Size())
	require.Equal(t, c.MaxInputLength(), loaded.MaxInputLength())
	require.Equal(t, c.TokenCount(), loaded.TokenCount())
	require.Equal(t, c.Labels().Size(), loaded.Labels().Size())
	require.Equal(t, c.Attributes().Size(), loaded.Attributes().Size())
}
