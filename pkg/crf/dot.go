package crf

import (
	"fmt"
	"io"
)

// nodeColors mirrors the original draw()'s palette for history-length
// subgraphs in higher-order models: deeper history gets a cooler color.
var nodeColors = []string{"", "cornflowerblue", "blue", "navyblue", "slateblue", "turquoise", "indigo", "green"}

// WriteDOT renders the model's transition graph in Graphviz dot format,
// grouping higher-order states into subgraphs by history length the way
// the original's draw() does, so a model's growth from <BOS> through
// deeper histories is visually legible.
func (m *Model) WriteDOT(w io.Writer) error {
	fmt.Fprintln(w, "digraph G {")
	fmt.Fprintln(w, "graph [rankdir=LR, fontsize=14, center=1, orientation=Portrait];")
	fmt.Fprintln(w, "node  [font = \"Arial\", shape = circle, style=filled, fontcolor=white, color=blue]")
	fmt.Fprintln(w, "edge  [fontname = \"Arial\"]")
	fmt.Fprintln(w)

	if m.order == 1 {
		for to := 1; to < m.LabelsCount(); to++ {
			fmt.Fprintf(w, "\t%d [label=\"%s\"]\n", to, m.labels.StringOf(uint32(to)))
			for _, tr := range m.IngoingTransitionsOf(LabelID(to)) {
				fmt.Fprintf(w, "\t%d -> %d [label=\"%v\"]\n", tr.Label, to, m.WeightForParameter(tr.Param))
			}
		}
		fmt.Fprintln(w, "}")
		return nil
	}

	subgraphs := make(map[int][]StateID)
	for q := 0; q < m.StatesCount(); q++ {
		s := m.GetCRFState(StateID(q))
		subgraphs[s.HistoryLength()] = append(subgraphs[s.HistoryLength()], StateID(q))
	}

	maxHist := 0
	for h := range subgraphs {
		if h > maxHist {
			maxHist = h
		}
	}
	for h := maxHist; h >= 0; h-- {
		states, ok := subgraphs[h]
		if !ok {
			continue
		}
		color := "slategrey"
		if h < len(nodeColors) {
			color = nodeColors[h]
		}
		fmt.Fprintf(w, "subgraph cluster%d {\n", h)
		fmt.Fprintf(w, "  node [color=\"%s\"]\n", color)
		for _, fromID := range states {
			from := m.GetCRFState(fromID)
			fmt.Fprintf(w, "  %d [label=\"%s\"]\n", fromID, from.String())
			for _, tr := range m.OutgoingTransitionsOf(fromID) {
				toID := StateID(tr.Label)
				to := m.GetCRFState(toID)
				transColor := "black"
				if to.HistoryLength() > from.HistoryLength() {
					transColor = "blue"
				} else if to.HistoryLength() < from.HistoryLength() {
					transColor = "green"
				}
				fmt.Fprintf(w, "\t%d -> %d [label=\"%s / %v\",style=bold,color=%s]\n",
					fromID, toID, m.labels.StringOf(uint32(to.LabelID())), m.WeightForParameter(tr.Param), transColor)
			}
		}
		fmt.Fprintln(w, "}")
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "}")
	return nil
}
