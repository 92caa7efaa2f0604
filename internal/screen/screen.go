package screen

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vitor-labes/catalog-browser/internal/domain"
	"github.com/vitor-labes/catalog-browser/internal/metrics"
)

// DefaultRowHeight is the fixed height of a product row.
const DefaultRowHeight = 380

// Searcher is the part of the catalog client the screen depends on.
type Searcher interface {
	Search(ctx context.Context, text string) (domain.ProductPage, error)
}

// RowCounter provides the number of rows to draw.
type RowCounter interface {
	RowCount() int
}

// RowProvider provides the content of every row.
type RowProvider interface {
	Rows() []Row
}

// TextChangeListener is notified each time the search text changes.
type TextChangeListener interface {
	TextDidChange(text string)
}

// View is redrawn whenever the result list changes. Reload may be called from
// any goroutine.
type View interface {
	Reload(snap Snapshot)
}

type State int

const (
	Idle State = iota
	Searching
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Searching:
		return "searching"
	default:
		return "unknown"
	}
}

type Options struct {
	// Timeout bounds each search. Zero means no timeout.
	Timeout   time.Duration
	RowHeight int
}

// Screen owns the search text and the result list. Every text change clears
// the list and starts a new search; only the response to the latest search is
// ever applied.
type Screen struct {
	searcher  Searcher
	view      View
	timeout   time.Duration
	rowHeight int

	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	viewMu sync.Mutex // serializes Reload; taken before mu
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	query  string
	state  State
	rows   []domain.Product
	err    error
}

var (
	_ TextChangeListener = (*Screen)(nil)
	_ RowCounter         = (*Screen)(nil)
	_ RowProvider        = (*Screen)(nil)
)

func New(searcher Searcher, view View, opts Options) *Screen {
	if opts.RowHeight <= 0 {
		opts.RowHeight = DefaultRowHeight
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Screen{
		searcher:  searcher,
		view:      view,
		timeout:   opts.Timeout,
		rowHeight: opts.RowHeight,
		ctx:       ctx,
		stop:      stop,
	}
}

// TextDidChange clears the list, cancels the search in flight and starts a
// new one for text. Empty text is searched as is.
func (s *Screen) TextDidChange(text string) {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}

	s.seq++
	seq := s.seq
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := s.searchContext()
	s.cancel = cancel
	s.query = text
	s.state = Searching
	s.rows = nil
	s.err = nil
	snap := s.snapshotLocked()
	s.wg.Add(1)
	s.mu.Unlock()

	metrics.ScreenSearches.Inc()
	s.publish(snap)

	go s.search(ctx, cancel, seq, text)
}

func (s *Screen) searchContext() (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(s.ctx, s.timeout)
	}
	return context.WithCancel(s.ctx)
}

func (s *Screen) search(ctx context.Context, cancel context.CancelFunc, seq uint64, text string) {
	defer s.wg.Done()
	defer cancel()

	page, err := s.searcher.Search(ctx, text)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		metrics.ScreenStaleResponses.Inc()
		slog.Debug("resposta descartada, busca mais recente em andamento",
			"query", text,
			"seq", seq,
		)
		return
	}

	s.state = Idle
	s.cancel = nil
	if err != nil {
		s.rows = nil
		s.err = err
	} else {
		s.rows = page.Products
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	switch {
	case errors.Is(err, context.Canceled):
		slog.Debug("busca cancelada", "query", text)
	case err != nil:
		metrics.ScreenSearchFailures.Inc()
		slog.Error("erro na busca de produtos", "query", text, "error", err)
	default:
		slog.Debug("busca concluída", "query", text, "results", len(snap.rows))
	}

	s.publish(snap)
}

// publish hands snap to the view unless a newer search started meanwhile, so
// the view never goes back to an older result list.
func (s *Screen) publish(snap Snapshot) {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()

	s.mu.Lock()
	latest := s.seq
	s.mu.Unlock()
	if snap.Seq != latest {
		if snap.State == Idle {
			metrics.ScreenStaleResponses.Inc()
		}
		return
	}

	s.view.Reload(snap)
}

// Wait blocks until every search started so far has finished.
func (s *Screen) Wait() {
	s.wg.Wait()
}

// Close cancels any search in flight and waits for it. Later text changes are
// ignored.
func (s *Screen) Close() {
	s.mu.Lock()
	s.stop()
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Screen) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Screen) RowCount() int {
	return s.Snapshot().RowCount()
}

func (s *Screen) Rows() []Row {
	return s.Snapshot().Rows()
}

func (s *Screen) State() State {
	return s.Snapshot().State
}

// Err is the failure of the latest search, if any.
func (s *Screen) Err() error {
	return s.Snapshot().Err
}

func (s *Screen) snapshotLocked() Snapshot {
	return Snapshot{
		Seq:       s.seq,
		Query:     s.query,
		State:     s.state,
		Err:       s.err,
		rows:      s.rows,
		rowHeight: s.rowHeight,
	}
}
