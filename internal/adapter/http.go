package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/yourorg/skewsentry/internal/table"
)

// HTTPConfig configures a batched HTTP feature-service adapter (spec.md §5).
type HTTPConfig struct {
	URL         string
	BatchSize   int
	Headers     map[string]string
	Timeout     time.Duration
	Retries     int // additional attempts beyond the first, per spec.md §5
	TokenSource oauth2.TokenSource
}

type httpAdapter struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTP builds a batched HTTP adapter. Posts rows as a JSON array to
// cfg.URL in batches of cfg.BatchSize, expecting a JSON array of row objects
// back. Ported from the teacher's retry-with-backoff posture in ai.Client,
// specialized to the exact backoff formula the original HTTPAdapter used:
// min(0.05 * attempt, 0.5) seconds between attempts.
func NewHTTP(cfg HTTPConfig) (Adapter, error) {
	if cfg.URL == "" {
		return nil, newError(KindConfig, nil, "http adapter requires a non-empty URL")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &httpAdapter{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

func (a *httpAdapter) Produce(ctx context.Context, in table.Table) (table.Table, error) {
	if in.Rows == 0 {
		return in, nil
	}

	header := in.Header()
	var outRows []table.Row
	var outHeader []string

	for start := 0; start < in.Rows; start += a.cfg.BatchSize {
		end := start + a.cfg.BatchSize
		if end > in.Rows {
			end = in.Rows
		}
		batch := in.Slice(start, end)

		respRows, respHeader, err := a.postBatch(ctx, batch)
		if err != nil {
			return table.Table{}, err
		}
		if outHeader == nil {
			outHeader = respHeader
		}
		outRows = append(outRows, respRows...)
	}

	if outHeader == nil {
		outHeader = header
	}
	return table.FromOrderedRows(outHeader, outRows)
}

func (a *httpAdapter) postBatch(ctx context.Context, batch table.Table) ([]table.Row, []string, error) {
	body, err := encodeRows(batch)
	if err != nil {
		return nil, nil, newError(KindProtocol, err, "encoding request batch")
	}

	var lastErr error
	attempts := a.cfg.Retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		rows, header, err := a.doPost(ctx, body)
		if err == nil {
			return rows, header, nil
		}
		lastErr = err

		ae, ok := err.(*Error)
		if !ok || !ae.Retryable() {
			return nil, nil, err
		}
		if attempt == attempts {
			break
		}
		delay := time.Duration(math.Min(0.05*float64(attempt), 0.5) * float64(time.Second))
		select {
		case <-ctx.Done():
			return nil, nil, newError(KindTransport, ctx.Err(), "context cancelled during retry backoff")
		case <-time.After(delay):
		}
	}
	return nil, nil, newError(KindTransport, lastErr, "request failed after %d attempts", attempts)
}

func (a *httpAdapter) doPost(ctx context.Context, body []byte) ([]table.Row, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, nil, newError(KindConfig, err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range a.cfg.Headers {
		req.Header.Set(k, v)
	}
	if a.cfg.TokenSource != nil {
		tok, err := a.cfg.TokenSource.Token()
		if err != nil {
			return nil, nil, newError(KindConfig, err, "obtaining oauth2 token")
		}
		tok.SetAuthHeader(req)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if ClassifyTransportError(err) {
			return nil, nil, newError(KindTransport, err, "request to %s", a.cfg.URL)
		}
		return nil, nil, newError(KindProtocol, err, "request to %s", a.cfg.URL)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, newError(KindTransport, err, "reading response body")
	}

	if resp.StatusCode != http.StatusOK {
		snippet := string(rawBody)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		// any non-200 response is a transport error (spec.md §4.2.2) and thus
		// retryable; only a malformed/non-array body on a 200 is protocol.
		return nil, nil, newError(KindTransport, nil, "HTTP %d: %s", resp.StatusCode, snippet)
	}

	rows, header, err := decodeOrderedRows(rawBody)
	if err != nil {
		return nil, nil, newError(KindProtocol, err, "invalid JSON response")
	}
	return rows, header, nil
}

func encodeRows(t table.Table) ([]byte, error) {
	rows := t.AllRows()
	header := t.Header()
	// marshal as an array of objects whose keys follow the table's column
	// order, since encoding/json otherwise sorts map keys alphabetically.
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, col := range header {
			if j > 0 {
				buf.WriteByte(',')
			}
			keyBytes, _ := json.Marshal(col)
			buf.Write(keyBytes)
			buf.WriteByte(':')
			valBytes, err := json.Marshal(r[col])
			if err != nil {
				return nil, err
			}
			buf.Write(valBytes)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// orderedRow preserves the key order of a JSON object across decode, which
// plain map[string]interface{} cannot: Go's decoder loses source order, but
// the report's column ordering (spec.md §6, S5) is expected to follow the
// server's declared order.
type orderedRow struct {
	keys   []string
	values map[string]any
}

func (r *orderedRow) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	r.values = map[string]any{}

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected string object key, got %v", keyTok)
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return err
		}
		r.keys = append(r.keys, key)
		r.values[key] = val
	}
	return nil
}

func decodeOrderedRows(data []byte) ([]table.Row, []string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("expected a JSON array: %w", err)
	}

	var header []string
	rows := make([]table.Row, len(raw))
	for i, rm := range raw {
		var or orderedRow
		if err := or.UnmarshalJSON(rm); err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, err)
		}
		if i == 0 {
			header = or.keys
		}
		rows[i] = table.Row(or.values)
	}
	return rows, header, nil
}
