// Package devserver runs a small gin HTTP service implementing the wire
// protocol internal/adapter's HTTP adapter speaks (SPEC_FULL.md §6, §9): an
// endpoint that takes a JSON array of rows and returns a transformed JSON
// array of rows, plus a liveness probe. It exists for local testing against
// the HTTP adapter, mirroring the role the teacher's health/middleware trio
// plays for its own API.
package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourorg/skewsentry/internal/adapter"
	"github.com/yourorg/skewsentry/internal/table"
)

// Config configures a Server.
type Config struct {
	Host string
	Port string
	// Producer transforms the posted input table into the response table.
	// Defaults to an identity passthrough if nil.
	Producer adapter.Func
}

// Server wraps a *gin.Engine and the address it is served on.
type Server struct {
	engine   *gin.Engine
	addr     string
	producer adapter.Func
}

// New builds a Server. Pass Config.Producer to exercise a registered
// in-process adapter's exact behavior (examples/online's producer, for
// instance) over HTTP rather than in-process.
func New(cfg Config) *Server {
	producer := cfg.Producer
	if producer == nil {
		producer = identityProducer
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID())

	s := &Server{
		engine:   engine,
		addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		producer: producer,
	}

	engine.GET("/healthz", s.handleHealth)
	engine.POST("/features", s.handleFeatures)

	return s
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string { return s.addr }

// Handler exposes the underlying http.Handler, for httptest.NewServer in
// adapter end-to-end tests that don't want to bind a real socket.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe blocks serving on s.Addr() until the process is killed or
// an unrecoverable listener error occurs.
func (s *Server) ListenAndServe() error {
	return http.ListenAndServe(s.addr, s.engine)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "skewsentry-devserver",
	})
}

func (s *Server) handleFeatures(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("expected a JSON array: %v", err)})
		return
	}

	rows := make([]table.Row, len(raw))
	var header []string
	for i, rm := range raw {
		var m map[string]any
		if err := json.Unmarshal(rm, &m); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("row %d: %v", i, err)})
			return
		}
		rows[i] = table.Row(m)
		if i == 0 {
			header = orderedKeys(rm)
		}
	}

	in, err := table.FromOrderedRows(header, rows)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := s.producer(c.Request.Context(), in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	writeOrderedRows(c, out)
}

// writeOrderedRows writes out as a JSON array of row objects whose keys
// follow out's declared column order (the same convention
// internal/adapter's HTTP client relies on when decoding a response).
func writeOrderedRows(c *gin.Context, out table.Table) {
	header := out.Header()
	rows := out.AllRows()

	var buf []byte
	buf = append(buf, '[')
	for i, r := range rows {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '{')
		for j, col := range header {
			if j > 0 {
				buf = append(buf, ',')
			}
			keyBytes, _ := json.Marshal(col)
			buf = append(buf, keyBytes...)
			buf = append(buf, ':')
			valBytes, err := json.Marshal(r[col])
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			buf = append(buf, valBytes...)
		}
		buf = append(buf, '}')
	}
	buf = append(buf, ']')

	c.Data(http.StatusOK, "application/json; charset=utf-8", buf)
}

// orderedKeys recovers a JSON object's source key order using the same
// Token()-streaming approach internal/adapter's orderedRow relies on, since
// a plain map unmarshal would otherwise lose it.
func orderedKeys(raw json.RawMessage) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var keys []string

	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := keyTok.(string)
		if !ok {
			return keys
		}
		keys = append(keys, key)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return keys
		}
	}
	return keys
}

func identityProducer(_ context.Context, in table.Table) (table.Table, error) {
	return in, nil
}
