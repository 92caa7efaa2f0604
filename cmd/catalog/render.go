package main

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/vitor-labes/catalog-browser/internal/domain"
	"github.com/vitor-labes/catalog-browser/internal/screen"
)

type table struct {
	tw *tabwriter.Writer
}

func newTable(w io.Writer) *table {
	return &table{tw: tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)}
}

func (t *table) RenderRow(row screen.Row) {
	t.write(row.Product)
}

func (t *table) write(p domain.Product) {
	fmt.Fprintf(t.tw, "#%d\t%s\t%s\t%s\n", p.ID, p.Title, p.DisplayPrice(), p.Category)
}

func (t *table) Flush() error {
	return t.tw.Flush()
}

func writeProducts(w io.Writer, products []domain.Product) error {
	t := newTable(w)
	for _, p := range products {
		t.write(p)
	}
	return t.Flush()
}

func writeChanges(w io.Writer, changes []domain.ProductChange) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range changes {
		title := "-"
		if c.Product != nil {
			title = c.Product.Title
		}
		fmt.Fprintf(tw, "%s\t%s\t#%d\t%s\t%s\n",
			c.OccurredAt.Format(time.RFC3339), c.Kind, c.ProductID, title, c.EventID)
	}
	return tw.Flush()
}

// terminalView prints finished searches. Searching snapshots are the blank
// list and print nothing.
type terminalView struct {
	mu  sync.Mutex
	out io.Writer
}

func newTerminalView(out io.Writer) *terminalView {
	return &terminalView{out: out}
}

func (v *terminalView) Reload(snap screen.Snapshot) {
	if snap.State != screen.Idle {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	switch {
	case snap.Err != nil:
		fmt.Fprintf(v.out, "erro na busca %q: %v\n", snap.Query, snap.Err)
	case snap.RowCount() == 0:
		fmt.Fprintf(v.out, "nenhum resultado para %q\n", snap.Query)
	default:
		fmt.Fprintf(v.out, "%d resultado(s) para %q\n", snap.RowCount(), snap.Query)
		t := newTable(v.out)
		snap.Render(t)
		_ = t.Flush()
	}
}
