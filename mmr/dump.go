package mmr

import (
	"fmt"

	"github.com/xlab/treeprint"
)

// Dump renders the mountain structure for inspection.
func (m *Mmr) Dump() string {
	tree := treeprint.NewWithRoot(fmt.Sprintf("mmr leaves=%d size=%d", m.leafCount, m.Size()))
	peaks, err := peakPositions(m.Size())
	if err != nil {
		return tree.String()
	}
	for i, pos := range peaks {
		branch := tree.AddBranch(fmt.Sprintf("peak[%d]", i))
		m.dumpNode(branch, pos, posHeight(pos))
	}
	return tree.String()
}

func (m *Mmr) dumpNode(branch treeprint.Tree, pos uint64, height int) {
	label := fmt.Sprintf("pos=%d h=%d", pos, height)
	if h, ok, _ := m.store.GetNode(pos); ok {
		label += " " + h.String_short()
	}
	if height == 0 {
		branch.AddNode(label)
		return
	}
	sub := branch.AddBranch(label)
	m.dumpNode(sub, pos-parentOffset(height-1), height-1)
	m.dumpNode(sub, pos-1, height-1)
}
