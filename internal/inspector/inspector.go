// Package inspector implements a read-only terminal browser over a
// completed assembly: its label map and its flattened instruction stream.
// The patch list and the Noun directory are not shown. There is no running process to step through here —
// the bytes this core emits run on bare hardware, not inside this binary —
// so the inspector only ever looks at static results of a finished
// Lower+Assemble pass.
package inspector

import (
	"fmt"
	"sort"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/hackia/thot/internal/ast"
)

// Snapshot is everything the inspector needs to render: the label table
// and flattened instruction stream a caller already produced via
// service.Assemble, gathered here rather than recomputed.
type Snapshot struct {
	Filename     string
	Instructions []ast.Instruction
	Labels       map[string]int64
}

// Inspector is the tview application wrapping one Snapshot.
type Inspector struct {
	App    *tview.Application
	Pages  *tview.Pages
	snap   Snapshot

	tree       *tview.TreeView
	detailView *tview.TextView
}

// New builds an Inspector over a finished snapshot.
func New(snap Snapshot) *Inspector {
	insp := &Inspector{
		App:  tview.NewApplication(),
		snap: snap,
	}
	insp.build()
	return insp
}

func (insp *Inspector) build() {
	root := tview.NewTreeNode(insp.snap.Filename).SetColor(tcell.ColorGreen)
	insp.tree = tview.NewTreeView().SetRoot(root).SetCurrentNode(root)

	labelsNode := tview.NewTreeNode("labels").SetSelectable(true)
	root.AddChild(labelsNode)
	for _, name := range sortedLabelNames(insp.snap.Labels) {
		addr := insp.snap.Labels[name]
		child := tview.NewTreeNode(fmt.Sprintf("%s  0x%X", name, addr)).SetSelectable(true)
		labelsNode.AddChild(child)
	}

	instrNode := tview.NewTreeNode("instructions").SetSelectable(true)
	root.AddChild(instrNode)
	for i, instr := range insp.snap.Instructions {
		child := tview.NewTreeNode(fmt.Sprintf("%04d  %T", i, instr)).SetSelectable(true)
		instrNode.AddChild(child)
	}

	insp.detailView = tview.NewTextView().
		SetDynamicColors(true).
		SetText("select a node to see its detail")

	insp.tree.SetSelectedFunc(func(node *tview.TreeNode) {
		insp.detailView.SetText(node.GetText())
	})

	layout := tview.NewFlex().
		AddItem(insp.tree, 0, 1, true).
		AddItem(insp.detailView, 0, 1, false)

	insp.Pages = tview.NewPages().AddPage("main", layout, true, true)

	insp.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEsc || event.Rune() == 'q' {
			insp.App.Stop()
			return nil
		}
		return event
	})
}

func sortedLabelNames(labels map[string]int64) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run blocks until the user quits the inspector.
func (insp *Inspector) Run() error {
	return insp.App.SetRoot(insp.Pages, true).Run()
}
