package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vitor-labes/catalog-browser/internal/domain"
	"github.com/vitor-labes/catalog-browser/internal/metrics"
	"github.com/vitor-labes/catalog-browser/internal/tracing"
)

const (
	opList   = "list"
	opSearch = "search"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"

	maxErrorBody = 512
)

// ChangeNotifier receives accepted mutations. queue.Publisher implements it.
type ChangeNotifier interface {
	Publish(ctx context.Context, change domain.ProductChange) error
}

type Config struct {
	// BaseURL is the products collection, e.g. https://dummyjson.com/products.
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Tracer     tracing.Tracer
	Notifier   ChangeNotifier
}

// Client talks to the catalog service. It keeps no per-call state and is safe
// for concurrent use.
type Client struct {
	base     *url.URL
	timeout  time.Duration
	http     *http.Client
	tracer   tracing.Tracer
	notifier ChangeNotifier
	now      func() time.Time
}

func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("URL base inválida %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("URL base inválida %q: esquema e host são obrigatórios", cfg.BaseURL)
	}

	c := &Client{
		base:     base,
		timeout:  cfg.Timeout,
		http:     cfg.HTTPClient,
		tracer:   cfg.Tracer,
		notifier: cfg.Notifier,
		now:      time.Now,
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.tracer == nil {
		c.tracer = tracing.Noop()
	}
	return c, nil
}

// FetchAll lists the whole catalog.
func (c *Client) FetchAll(ctx context.Context) (domain.ProductPage, error) {
	data, err := c.do(ctx, opList, http.MethodGet, c.endpoint(), nil)
	if err != nil {
		return domain.ProductPage{}, err
	}
	return decodeAs[domain.ProductPage](opList, data)
}

// Search sends text verbatim as the q parameter, including the empty string.
func (c *Client) Search(ctx context.Context, text string) (domain.ProductPage, error) {
	u := c.endpoint("search")
	u.RawQuery = url.Values{"q": []string{text}}.Encode()

	data, err := c.do(ctx, opSearch, http.MethodGet, u, nil)
	if err != nil {
		return domain.ProductPage{}, err
	}
	return decodeAs[domain.ProductPage](opSearch, data)
}

// Create posts product to /add and returns the raw response body.
func (c *Client) Create(ctx context.Context, product domain.Product) ([]byte, error) {
	change := domain.ProductChange{Kind: domain.ChangeCreated, ProductID: product.ID}
	return c.mutate(ctx, opCreate, http.MethodPost, c.endpoint("add"), product, change)
}

// Update puts product to /{id} and returns the raw response body.
func (c *Client) Update(ctx context.Context, id int, product domain.Product) ([]byte, error) {
	change := domain.ProductChange{Kind: domain.ChangeUpdated, ProductID: id}
	return c.mutate(ctx, opUpdate, http.MethodPut, c.endpoint(strconv.Itoa(id)), product, change)
}

func (c *Client) Delete(ctx context.Context, id int) error {
	if _, err := c.do(ctx, opDelete, http.MethodDelete, c.endpoint(strconv.Itoa(id)), nil); err != nil {
		return err
	}

	c.notify(ctx, domain.ProductChange{Kind: domain.ChangeDeleted, ProductID: id})
	return nil
}

func (c *Client) CreateAsync(ctx context.Context, product domain.Product) *Future[[]byte] {
	return goFuture(func() ([]byte, error) {
		return c.Create(ctx, product)
	})
}

func (c *Client) UpdateAsync(ctx context.Context, id int, product domain.Product) *Future[[]byte] {
	return goFuture(func() ([]byte, error) {
		return c.Update(ctx, id, product)
	})
}

func (c *Client) DeleteAsync(ctx context.Context, id int) *Future[struct{}] {
	return goFuture(func() (struct{}, error) {
		return struct{}{}, c.Delete(ctx, id)
	})
}

func (c *Client) mutate(
	ctx context.Context,
	op, method string,
	u *url.URL,
	product domain.Product,
	change domain.ProductChange,
) ([]byte, error) {
	// Encode before anything touches the network.
	payload, err := encodeAs(op, product)
	if err != nil {
		slog.Error("erro ao serializar produto", "operation", op, "error", err)
		return nil, err
	}

	data, err := c.do(ctx, op, method, u, payload)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &EmptyBodyError{Op: op}
	}

	change.Product = &product
	if saved, err := decodeAs[domain.Product](op, data); err == nil && saved.ID != 0 {
		change.ProductID = saved.ID
		change.Product = &saved
	}
	c.notify(ctx, change)

	return data, nil
}

func (c *Client) notify(ctx context.Context, change domain.ProductChange) {
	if c.notifier == nil {
		return
	}

	change.EventID = uuid.NewString()
	change.OccurredAt = c.now().UTC()

	if err := c.notifier.Publish(ctx, change); err != nil {
		metrics.ChangesPublished.WithLabelValues(string(change.Kind), "error").Inc()
		slog.Error("erro ao publicar alteração de produto",
			"kind", change.Kind,
			"product_id", change.ProductID,
			"error", err,
		)
		return
	}
	metrics.ChangesPublished.WithLabelValues(string(change.Kind), "success").Inc()
}

func (c *Client) do(ctx context.Context, op, method string, u *url.URL, body []byte) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := c.tracer.Start(ctx, "catalog."+op)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", u.String()),
	)

	startTime := time.Now()
	status := "transport_error"
	defer func() {
		metrics.CatalogRequestDuration.WithLabelValues(op).Observe(time.Since(startTime).Seconds())
		metrics.CatalogRequests.WithLabelValues(op, status).Inc()
	}()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.tracer.InjectHTTP(ctx, req.Header)

	slog.Debug("requisição ao catálogo", "operation", op, "method", method, "url", u.String())

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	status = strconv.Itoa(resp.StatusCode)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, resp.Status)
		slog.Warn("catálogo respondeu com erro",
			"operation", op,
			"status", resp.StatusCode,
		)
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: truncate(data, maxErrorBody)}
	}

	return data, nil
}

func (c *Client) endpoint(elem ...string) *url.URL {
	return c.base.JoinPath(elem...)
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
