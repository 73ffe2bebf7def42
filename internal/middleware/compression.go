// Package middleware holds transport-level Gin middleware that is not
// specific to any estimator.
package middleware

import (
	"compress/gzip"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// CompressionConfig controls response compression.
type CompressionConfig struct {
	MinSize int // responses smaller than this are sent uncompressed
	Level   int // gzip level, 1-9
}

// DefaultCompressionConfig returns the default compression settings.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.DefaultCompression,
	}
}

// Compression gzips JSON responses for clients that accept it. Writers are
// pooled; estimate responses compress to roughly a third of their size.
type Compression struct {
	config CompressionConfig
	pool   sync.Pool

	totalResponses      int64
	compressedResponses int64
}

// NewCompression creates the compression middleware.
func NewCompression(config CompressionConfig) *Compression {
	if config.MinSize <= 0 {
		config.MinSize = 1024
	}
	c := &Compression{config: config}
	c.pool = sync.Pool{
		New: func() interface{} {
			gz, _ := gzip.NewWriterLevel(io.Discard, config.Level)
			return gz
		},
	}
	return c
}

// Handler returns the Gin middleware.
func (c *Compression) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		atomic.AddInt64(&c.totalResponses, 1)

		if !strings.Contains(ctx.GetHeader("Accept-Encoding"), "gzip") {
			ctx.Next()
			return
		}

		w := &compressWriter{
			ResponseWriter: ctx.Writer,
			parent:         c,
			ctx:            ctx,
		}
		ctx.Writer = w
		defer w.close()

		ctx.Next()
	}
}

// GetStats reports how many responses were compressed.
func (c *Compression) GetStats() map[string]interface{} {
	total := atomic.LoadInt64(&c.totalResponses)
	compressed := atomic.LoadInt64(&c.compressedResponses)

	ratio := float64(0)
	if total > 0 {
		ratio = float64(compressed) / float64(total)
	}
	return map[string]interface{}{
		"total_responses":      total,
		"compressed_responses": compressed,
		"compressed_ratio":     ratio,
	}
}

// compressWriter defers the compress-or-not decision to the first write, so
// small responses skip the gzip overhead. Gin renders JSON in a single
// write, which makes the first-write size an accurate gate.
type compressWriter struct {
	gin.ResponseWriter
	parent  *Compression
	ctx     *gin.Context
	gz      *gzip.Writer
	decided bool
	size    int
}

func (w *compressWriter) Write(data []byte) (int, error) {
	if !w.decided {
		w.decided = true
		if len(data) >= w.parent.config.MinSize {
			w.Header().Del("Content-Length")
			w.Header().Set("Content-Encoding", "gzip")
			w.Header().Set("Vary", "Accept-Encoding")

			w.gz = w.parent.pool.Get().(*gzip.Writer)
			w.gz.Reset(w.ResponseWriter)
			atomic.AddInt64(&w.parent.compressedResponses, 1)
		}
	}

	w.size += len(data)
	if w.gz != nil {
		return w.gz.Write(data)
	}
	return w.ResponseWriter.Write(data)
}

func (w *compressWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Size reports the uncompressed payload size so request logging stays
// comparable across compressed and plain responses.
func (w *compressWriter) Size() int {
	return w.size
}

func (w *compressWriter) close() {
	if w.gz == nil {
		return
	}
	w.gz.Close()
	w.parent.pool.Put(w.gz)
	w.gz = nil
}
