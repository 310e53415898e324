package dawg

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func sortedEntries(raw []Entry) []Entry {
	out := make([]Entry, len(raw))
	copy(out, raw)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && !lessOrEqual(out[j-1].Symbols, out[j].Symbols); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func TestBuildAcceptsExactlyInputSequences(t *testing.T) {
	entries := sortedEntries([]Entry{
		{Symbols: []string{"New", "York"}, Info: "City"},
		{Symbols: []string{"York"}, Info: "Surname"},
	})

	d := Build(entries)

	require.True(t, matches(d, []string{"New", "York"}))
	require.True(t, matches(d, []string{"York"}))
	require.False(t, matches(d, []string{"New"}))
	require.False(t, matches(d, []string{"Boston"}))
}

func matches(d *DAWG, symbols []string) bool {
	q := d.StartState()
	for _, s := range symbols {
		next, ok := d.Next(q, s)
		if !ok {
			return false
		}
		q = next
	}
	return d.IsFinal(q)
}

func TestFinalInfosAttachedToCorrectState(t *testing.T) {
	entries := sortedEntries([]Entry{
		{Symbols: []string{"New", "York"}, Info: "City"},
		{Symbols: []string{"York"}, Info: "Surname"},
	})
	d := Build(entries)

	q := d.StartState()
	for _, s := range []string{"New", "York"} {
		q, _ = d.Next(q, s)
	}
	require.Equal(t, []string{"City"}, d.FinalInfos(q))

	q2, _ := d.Next(d.StartState(), "York")
	require.Equal(t, []string{"Surname"}, d.FinalInfos(q2))
}

func TestMatchScenario(t *testing.T) {
	entries := sortedEntries([]Entry{
		{Symbols: []string{"New", "York"}, Info: "City"},
		{Symbols: []string{"York"}, Info: "Surname"},
	})
	d := Build(entries)

	tokens := []string{"I", "visited", "New", "York"}
	results := d.Match(tokens[2:])
	require.Len(t, results, 1)
	require.Equal(t, 2, results[0].Length)
	require.Equal(t, []string{"City"}, results[0].Infos)

	results = d.Match(tokens[3:])
	require.Len(t, results, 1)
	require.Equal(t, 1, results[0].Length)
	require.Equal(t, []string{"Surname"}, results[0].Infos)
}

func TestIsomorphicBuildsFromSameInput(t *testing.T) {
	entries := sortedEntries([]Entry{
		{Symbols: []string{"a"}, Info: "X"},
		{Symbols: []string{"a", "b"}, Info: "Y"},
		{Symbols: []string{"a", "c"}, Info: "Y"},
		{Symbols: []string{"b"}, Info: "X"},
	})

	d1 := Build(entries)
	d2 := Build(entries)

	require.Equal(t, d1.NumStates(), d2.NumStates())
	require.Equal(t, d1.NumTransitions(), d2.NumTransitions())
	require.Equal(t, d1.NumFinalStates(), d2.NumFinalStates())
}

func TestBinaryRoundTrip(t *testing.T) {
	entries := sortedEntries([]Entry{
		{Symbols: []string{"New", "York"}, Info: "City"},
		{Symbols: []string{"York"}, Info: "Surname"},
		{Symbols: []string{"Los", "Angeles"}, Info: "City"},
	})
	d := Build(entries)

	var buf bytes.Buffer
	_, err := d.WriteTo(&buf)
	require.NoError(t, err)

	loaded, _, err := ReadFrom(&buf)
	require.NoError(t, err)

	require.Equal(t, d.NumStates(), loaded.NumStates())
	require.Equal(t, d.NumFinalStates(), loaded.NumFinalStates())
	require.Equal(t, d.NumTransitions(), loaded.NumTransitions())

	require.True(t, matches(loaded, []string{"New", "York"}))
	require.True(t, matches(loaded, []string{"Los", "Angeles"}))

	q := loaded.StartState()
	for _, s := range []string{"New", "York"} {
		q, _ = loaded.Next(q, s)
	}
	require.Equal(t, []string{"City"}, loaded.FinalInfos(q))
}
