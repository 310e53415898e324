package stringmap

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddAndLookup(t *testing.T) {
	m := New()
	require.True(t, m.Add("<BOS>", 0))
	require.True(t, m.Add("PER_B", 1))
	require.False(t, m.Add("PER_B", 2), "re-adding an existing string must fail")

	require.Equal(t, uint32(0), m.IDOf("<BOS>"))
	require.Equal(t, uint32(1), m.IDOf("PER_B"))
	require.Equal(t, NotFound, m.IDOf("missing"))

	require.Equal(t, "<BOS>", m.StringOf(0))
	require.Equal(t, "PER_B", m.StringOf(1))
	require.Equal(t, "", m.StringOf(99))
	require.Equal(t, 2, m.Size())
}

func TestRoundTripProperty(t *testing.T) {
	pairs := []struct {
		s  string
		id uint32
	}{
		{"<BOS>", 0},
		{"OTHER", 1},
		{"PER_B", 2},
		{"PER_I", 3},
		{"W[0]=Berlin", 4},
	}

	m := New()
	for _, p := range pairs {
		require.True(t, m.Add(p.s, p.id))
	}

	for _, p := range pairs {
		require.Equal(t, p.s, m.StringOf(m.IDOf(p.s)))
		require.Equal(t, p.id, m.IDOf(m.StringOf(p.id)))
	}

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)

	loaded := New()
	_, err = loaded.ReadFrom(&buf)
	require.NoError(t, err)

	require.Equal(t, m.Size(), loaded.Size())
	for _, p := range pairs {
		require.Equal(t, p.s, loaded.StringOf(p.id))
		require.Equal(t, p.id, loaded.IDOf(p.s))
	}
}

func TestAddNextAssignsDenseIDs(t *testing.T) {
	m := New()
	require.Equal(t, uint32(0), m.AddNext("<BOS>"))
	require.Equal(t, uint32(1), m.AddNext("OTHER"))
	require.Equal(t, uint32(0), m.AddNext("<BOS>"), "re-adding returns the existing id")
	require.Equal(t, 2, m.Size())
}
