package pipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestColumnOutputterEmitsTabSeparatedWithBlankTerminator(t *testing.T) {
	var buf bytes.Buffer
	o := NewColumnOutputter(&buf)
	require.NoError(t, o.Emit([]string{"Obama", "spoke"}, []string{"PER_U", "OTHER"}))
	require.NoError(t, o.End())
	require.Equal(t, "Obama\tPER_U\nspoke\tOTHER\n\n", buf.String())
}

func TestColumnOutputterEmitWithGold(t *testing.T) {
	var buf bytes.Buffer
	o := NewColumnOutputter(&buf)
	require.NoError(t, o.EmitWithGold([]string{"Obama"}, []string{"PER_U"}, []string{"OTHER"}))
	require.NoError(t, o.End())
	require.Equal(t, "Obama\tPER_U\tOTHER\n\n", buf.String())
}

func TestJSONOutputterEmitsOneObjectPerSequence(t *testing.T) {
	var buf bytes.Buffer
	o := NewJSONOutputter(&buf)
	require.NoError(t, o.Emit([]string{"Obama"}, []string{"PER_U"}))
	require.JSONEq(t, `{"tokens":["Obama"],"labels":["PER_U"]}`, buf.String())
}

func TestTextOutputterWrapsSpans(t *testing.T) {
	var buf bytes.Buffer
	o := NewTextOutputter(&buf, DefaultOutsideLabel)
	tokens := []string{"Angela", "Merkel", "met", "Obama", "."}
	labels := []string{"PER_B", "PER_I", "OTHER", "PER_B", "OTHER"}
	require.NoError(t, o.Emit(tokens, labels))
	require.NoError(t, o.End())
	require.Equal(t, `<ne class="PER"> Angela Merkel </ne> met <ne class="PER"> Obama </ne> .`+"\n", buf.String())
}
