package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitor-labes/catalog-browser/internal/catalog"
	"github.com/vitor-labes/catalog-browser/internal/domain"
	"github.com/vitor-labes/catalog-browser/internal/screen"
)

type seenRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type catalogServer struct {
	*httptest.Server

	mu   sync.Mutex
	seen []seenRequest
}

func newCatalogServer(t *testing.T) *catalogServer {
	t.Helper()

	cs := &catalogServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cs.mu.Lock()
		cs.seen = append(cs.seen, seenRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query().Get("q"),
			Body:   string(body),
		})
		cs.mu.Unlock()

		switch {
		case r.URL.Path == "/products/search" && r.URL.Query().Get("q") == "erro":
			http.Error(w, "falhou", http.StatusBadGateway)
		case r.URL.Path == "/products/search" && r.URL.Query().Get("q") == "nada":
			_, _ = io.WriteString(w, `{"products":[],"total":0}`)
		case r.URL.Path == "/products/search", r.URL.Path == "/products":
			_, _ = io.WriteString(w, `{"products":[{"id":1,"title":"iPhone 9","price":549,"category":"smartphones"},{"id":2,"title":"iPhone X","price":899,"category":"smartphones"}],"total":2}`)
		case r.URL.Path == "/products/add":
			_, _ = io.WriteString(w, `{"id":101,"title":"BMW Pencil"}`)
		case r.Method == http.MethodPut:
			_, _ = io.WriteString(w, `{"id":5,"title":"renamed"}`)
		case r.Method == http.MethodDelete:
			_, _ = io.WriteString(w, `{"id":7,"isDeleted":true}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *catalogServer) last() seenRequest {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.seen[len(cs.seen)-1]
}

func runCLI(t *testing.T, cs *catalogServer, stdin string, args ...string) (string, error) {
	t.Helper()
	return runApp(t, cs, &app{in: strings.NewReader(stdin)}, args...)
}

func runApp(t *testing.T, cs *catalogServer, a *app, args ...string) (string, error) {
	t.Helper()
	t.Setenv("METRICS_ADDR", "")
	t.Setenv("PUBLISH_CHANGES", "false")
	t.Setenv("TRACING", "false")

	var out bytes.Buffer
	a.out = &out
	cmd := newRootCmd(a)
	cmd.SetArgs(append([]string{"--base-url", cs.URL + "/products"}, args...))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.ExecuteContext(context.Background())
	a.close()
	return out.String(), err
}

func TestListCommand(t *testing.T) {
	cs := newCatalogServer(t)

	out, err := runCLI(t, cs, "", "list")
	require.NoError(t, err)

	assert.Equal(t, "/products", cs.last().Path)
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "$899.00")
}

func TestSearchCommandKeepsOrder(t *testing.T) {
	cs := newCatalogServer(t)

	out, err := runCLI(t, cs, "", "search", "phone")
	require.NoError(t, err)

	assert.Equal(t, "phone", cs.last().Query)
	first := strings.Index(out, "iPhone 9")
	second := strings.Index(out, "iPhone X")
	require.NotEqual(t, -1, first)
	assert.Less(t, first, second)
}

func TestSearchCommandWithoutTextSendsEmptyQuery(t *testing.T) {
	cs := newCatalogServer(t)

	_, err := runCLI(t, cs, "", "search")
	require.NoError(t, err)

	last := cs.last()
	assert.Equal(t, "/products/search", last.Path)
	assert.Equal(t, "", last.Query)
}

func TestSearchCommandExportsCSV(t *testing.T) {
	cs := newCatalogServer(t)
	dir := t.TempDir()

	out, err := runCLI(t, cs, "", "search", "phone", "--csv", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "CSV gerado em")

	files, err := filepath.Glob(filepath.Join(dir, "products_*.csv"))
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestSearchCommandStatusError(t *testing.T) {
	cs := newCatalogServer(t)

	_, err := runCLI(t, cs, "", "search", "erro")
	assert.Error(t, err)
}

func TestAddCommand(t *testing.T) {
	cs := newCatalogServer(t)

	out, err := runCLI(t, cs, "", "add", "--title", "BMW Pencil", "--price", "2.5")
	require.NoError(t, err)

	last := cs.last()
	assert.Equal(t, http.MethodPost, last.Method)
	assert.Equal(t, "/products/add", last.Path)

	var sent domain.Product
	require.NoError(t, json.Unmarshal([]byte(last.Body), &sent))
	assert.Equal(t, "BMW Pencil", sent.Title)
	assert.Equal(t, 2.5, sent.Price)
	assert.Contains(t, out, `"id":101`)
}

func TestAddCommandFromFile(t *testing.T) {
	cs := newCatalogServer(t)
	path := filepath.Join(t.TempDir(), "product.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title":"From file","price":10,"sku":"F-1"}`), 0o644))

	_, err := runCLI(t, cs, "", "add", "--file", path, "--price", "12")
	require.NoError(t, err)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(cs.last().Body), &sent))
	assert.Equal(t, "From file", sent["title"])
	assert.Equal(t, 12.0, sent["price"])
	assert.Equal(t, "F-1", sent["sku"])
}

func TestDecodeDraft(t *testing.T) {
	p, err := decodeDraft([]byte(`{"title":"sem id"}`))
	require.NoError(t, err)
	assert.Zero(t, p.ID)
	assert.Equal(t, "sem id", p.Title)

	p, err = decodeDraft([]byte(`{"id":9,"title":"com id"}`))
	require.NoError(t, err)
	assert.Equal(t, 9, p.ID)

	_, err = decodeDraft([]byte(`null`))
	assert.ErrorIs(t, err, catalog.ErrDecode)

	_, err = decodeDraft([]byte(`{"title":`))
	assert.ErrorIs(t, err, catalog.ErrDecode)
}

func TestUpdateCommand(t *testing.T) {
	cs := newCatalogServer(t)

	out, err := runCLI(t, cs, "", "update", "5", "--title", "renamed")
	require.NoError(t, err)

	last := cs.last()
	assert.Equal(t, http.MethodPut, last.Method)
	assert.Equal(t, "/products/5", last.Path)
	assert.Contains(t, out, "renamed")
}

func TestDeleteCommand(t *testing.T) {
	cs := newCatalogServer(t)

	out, err := runCLI(t, cs, "", "delete", "7")
	require.NoError(t, err)

	assert.Equal(t, http.MethodDelete, cs.last().Method)
	assert.Equal(t, "/products/7", cs.last().Path)
	assert.Contains(t, out, "produto 7 removido")
}

func TestDeleteCommandRejectsInvalidID(t *testing.T) {
	cs := newCatalogServer(t)

	_, err := runCLI(t, cs, "", "delete", "abc")
	assert.Error(t, err)
}

func TestBrowseCommand(t *testing.T) {
	cs := newCatalogServer(t)

	out, err := runCLI(t, cs, "phone\n", "browse")
	require.NoError(t, err)

	assert.Contains(t, out, `2 resultado(s) para "phone"`)
	first := strings.Index(out, "iPhone 9")
	second := strings.Index(out, "iPhone X")
	require.NotEqual(t, -1, first)
	assert.Less(t, first, second)
}

func TestBrowsePassesLineVerbatim(t *testing.T) {
	cs := newCatalogServer(t)

	out, err := runCLI(t, cs, "phone \n", "browse")
	require.NoError(t, err)

	assert.Equal(t, "phone ", cs.last().Query)
	assert.Contains(t, out, `2 resultado(s) para "phone "`)
}

func TestBrowseShowsEmptyAndErrorStates(t *testing.T) {
	cs := newCatalogServer(t)

	out, err := runCLI(t, cs, "nada\n", "browse")
	require.NoError(t, err)
	assert.Contains(t, out, `nenhum resultado para "nada"`)

	out, err = runCLI(t, cs, "erro\n", "browse")
	require.NoError(t, err)
	assert.Contains(t, out, `erro na busca "erro"`)
}

func TestBrowseLastQueryWins(t *testing.T) {
	cs := newCatalogServer(t)

	out, err := runCLI(t, cs, "erro\nnada\n", "browse")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), `nenhum resultado para "nada"`), out)
}

func TestTerminalViewSkipsSearchingSnapshots(t *testing.T) {
	var buf bytes.Buffer
	v := newTerminalView(&buf)

	v.Reload(screen.Snapshot{State: screen.Searching, Query: "pho"})
	assert.Empty(t, buf.String())
}

type fakeJournal struct {
	changes []domain.ProductChange
	err     error

	databaseURL string
	limit       int
	closed      bool
}

func (j *fakeJournal) open(databaseURL string) (changeLister, error) {
	j.databaseURL = databaseURL
	return j, nil
}

func (j *fakeJournal) Recent(ctx context.Context, limit int) ([]domain.ProductChange, error) {
	j.limit = limit
	return j.changes, j.err
}

func (j *fakeJournal) Close() error {
	j.closed = true
	return nil
}

func TestJournalCommand(t *testing.T) {
	cs := newCatalogServer(t)
	t.Setenv("DATABASE_URL", "postgres://journal/test")

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	j := &fakeJournal{changes: []domain.ProductChange{
		{EventID: "ev-2", Kind: domain.ChangeUpdated, ProductID: 5, Product: &domain.Product{ID: 5, Title: "renamed"}, OccurredAt: at},
		{EventID: "ev-1", Kind: domain.ChangeDeleted, ProductID: 7, OccurredAt: at.Add(-time.Minute)},
	}}

	out, err := runApp(t, cs, &app{in: strings.NewReader(""), openJournal: j.open}, "journal", "--limit", "5")
	require.NoError(t, err)

	assert.Equal(t, "postgres://journal/test", j.databaseURL)
	assert.Equal(t, 5, j.limit)
	assert.True(t, j.closed)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "updated")
	assert.Contains(t, lines[0], "#5")
	assert.Contains(t, lines[0], "renamed")
	assert.Contains(t, lines[1], "deleted")
	assert.Contains(t, lines[1], "ev-1")
}

func TestJournalCommandEmptyAndErrors(t *testing.T) {
	cs := newCatalogServer(t)

	out, err := runApp(t, cs, &app{in: strings.NewReader(""), openJournal: (&fakeJournal{}).open}, "journal")
	require.NoError(t, err)
	assert.Contains(t, out, "nenhuma alteração registrada")

	failing := &fakeJournal{err: errors.New("banco indisponível")}
	_, err = runApp(t, cs, &app{in: strings.NewReader(""), openJournal: failing.open}, "journal")
	assert.ErrorContains(t, err, "banco indisponível")
	assert.True(t, failing.closed)

	_, err = runApp(t, cs, &app{in: strings.NewReader(""), openJournal: (&fakeJournal{}).open}, "journal", "--limit", "0")
	assert.Error(t, err)
}
