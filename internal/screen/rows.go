package screen

import "github.com/vitor-labes/catalog-browser/internal/domain"

// Row is one renderable product. Rows only come from a Snapshot, so Index is
// always inside the list it was taken from.
type Row struct {
	Index   int
	Height  int
	Product domain.Product
}

// RowRenderer draws one row.
type RowRenderer interface {
	RenderRow(row Row)
}

// Snapshot is an immutable copy of the screen at one point in time.
type Snapshot struct {
	Seq   uint64
	Query string
	State State
	Err   error

	rows      []domain.Product
	rowHeight int
}

func (s Snapshot) RowCount() int {
	return len(s.rows)
}

func (s Snapshot) Rows() []Row {
	rows := make([]Row, len(s.rows))
	for i, p := range s.rows {
		rows[i] = Row{Index: i, Height: s.rowHeight, Product: p}
	}
	return rows
}

// Empty reports a finished search with nothing to show.
func (s Snapshot) Empty() bool {
	return s.State == Idle && len(s.rows) == 0
}

// Render calls r once per row and returns the number of rows drawn.
func (s Snapshot) Render(r RowRenderer) int {
	for _, row := range s.Rows() {
		r.RenderRow(row)
	}
	return len(s.rows)
}
