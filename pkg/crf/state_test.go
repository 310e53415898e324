package crf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHigherOrderStateWrapAndIncreaseHistory(t *testing.T) {
	s := NewHigherOrderState(3, BOSLabel)
	require.Equal(t, 1, s.HistoryLength())
	require.True(t, s.IsBOSState())

	s = s.IncreaseHistory(5)
	require.Equal(t, 2, s.HistoryLength())
	require.Equal(t, LabelID(5), s.LabelID())
	require.True(t, s.IsBOSState())

	s = s.IncreaseHistory(7)
	require.Equal(t, 3, s.HistoryLength())
	require.Equal(t, LabelID(7), s.LabelID())
	require.True(t, s.IsBOSState())

	wrapped := s.Wrap(9)
	require.Equal(t, 3, wrapped.HistoryLength())
	require.Equal(t, LabelID(9), wrapped.LabelID())
	require.False(t, wrapped.IsBOSState())
}

func TestHigherOrderStateEqualAndHashAgree(t *testing.T) {
	a := NewHigherOrderState(2, BOSLabel).IncreaseHistory(3)
	b := NewHigherOrderState(2, BOSLabel).IncreaseHistory(3)
	c := NewHigherOrderState(2, BOSLabel).IncreaseHistory(4)

	require.True(t, a.Equal(b))
	require.Equal(t, a.Hash(), b.Hash())
	require.False(t, a.Equal(c))
}

func TestStateMapperInternIsStable(t *testing.T) {
	m := NewStateMapper(4)
	bos := NewHigherOrderState(2, BOSLabel)
	id1 := m.Intern(bos)
	require.Equal(t, StateID(0), id1, "first interned state must receive id 0")

	s := bos.IncreaseHistory(2)
	id2 := m.Intern(s)
	id3 := m.Intern(s)
	require.Equal(t, id2, id3)
	require.NotEqual(t, id1, id2)
	require.Equal(t, s, m.State(id2))
}
