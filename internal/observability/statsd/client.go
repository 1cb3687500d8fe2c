// Package statsd emits DogStatsD-style metrics over UDP. Lines are batched
// into packets no larger than MaxPacketSize and sent when a packet fills or
// Flush is called.
package statsd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultMaxPacketSize keeps packets under a typical 1500 byte MTU.
const DefaultMaxPacketSize = 1432

// Sink describes the minimal interface required to emit StatsD-style metrics.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// Config describes how to connect to a StatsD-compatible sink.
type Config struct {
	Enabled       bool
	Address       string
	Prefix        string
	GlobalTags    map[string]string
	MaxPacketSize int // default DefaultMaxPacketSize; 1 sends every line alone
	Logger        *slog.Logger

	// Writer replaces the UDP connection.
	Writer io.WriteCloser
}

// Client is safe for concurrent use. A nil *Client discards everything.
type Client struct {
	prefix string
	global map[string]string
	max    int
	logger *slog.Logger

	mu  sync.Mutex
	out io.WriteCloser
	buf bytes.Buffer
}

var _ Sink = (*Client)(nil)

// NewClient dials the configured StatsD endpoint unless disabled.
func NewClient(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	size := cfg.MaxPacketSize
	if size <= 0 {
		size = DefaultMaxPacketSize
	}
	c := &Client{
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "."),
		global: cleanTags(cfg.GlobalTags),
		max:    size,
		logger: logger.With("component", "statsd"),
		out:    cfg.Writer,
	}
	if c.out != nil || !cfg.Enabled {
		return c, nil
	}

	address := strings.TrimSpace(cfg.Address)
	if address == "" {
		return c, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := (&net.Dialer{}).DialContext(ctx, "udp", address)
	if err != nil {
		return nil, fmt.Errorf("statsd dial %s: %w", address, err)
	}
	c.out = conn
	return c, nil
}

// Enabled reports whether metrics are being sent anywhere.
func (c *Client) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out != nil
}

func (c *Client) Count(name string, value int64, tags map[string]string) {
	c.emit(name, strconv.FormatInt(value, 10), "c", tags)
}

func (c *Client) Gauge(name string, value float64, tags map[string]string) {
	c.emit(name, strconv.FormatFloat(value, 'f', -1, 64), "g", tags)
}

// Timing records value in milliseconds.
func (c *Client) Timing(name string, value time.Duration, tags map[string]string) {
	ms := float64(value) / float64(time.Millisecond)
	c.emit(name, strconv.FormatFloat(ms, 'f', -1, 64), "ms", tags)
}

// Flush sends any buffered lines.
func (c *Client) Flush() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushLocked()
}

// Close flushes and releases the connection. Later metrics are dropped.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.out == nil {
		return nil
	}
	c.flushLocked()
	err := c.out.Close()
	c.out = nil
	return err
}

func (c *Client) emit(name, value, kind string, tags map[string]string) {
	if c == nil {
		return
	}
	metric := joinName(c.prefix, name)
	if metric == "" {
		return
	}
	line := metric + ":" + value + "|" + kind + renderTags(c.global, tags)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.out == nil {
		return
	}
	if c.buf.Len() > 0 && c.buf.Len()+1+len(line) > c.max {
		c.flushLocked()
	}
	if c.buf.Len() > 0 {
		c.buf.WriteByte('\n')
	}
	c.buf.WriteString(line)
	if c.buf.Len() >= c.max {
		c.flushLocked()
	}
}

func (c *Client) flushLocked() {
	if c.buf.Len() == 0 || c.out == nil {
		return
	}
	if _, err := c.out.Write(c.buf.Bytes()); err != nil {
		c.logger.Debug("statsd write failed", "error", err)
	}
	c.buf.Reset()
}

// joinName prefixes name and maps characters StatsD servers reject.
func joinName(prefix, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	n = strings.NewReplacer(" ", "_", "/", "_", ":", "_", "|", "_").Replace(n)
	for strings.Contains(n, "..") {
		n = strings.ReplaceAll(n, "..", ".")
	}
	n = strings.Trim(n, ".")
	switch {
	case prefix == "":
		return n
	case n == "":
		return prefix
	default:
		return prefix + "." + n
	}
}

// renderTags merges global and per-metric tags (per-metric wins) in key order.
func renderTags(global, local map[string]string) string {
	if len(global)+len(local) == 0 {
		return ""
	}
	merged := cleanTags(global)
	for k, v := range cleanTags(local) {
		merged[k] = v
	}
	if len(merged) == 0 {
		return ""
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("|#")
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(merged[k])
	}
	return b.String()
}

func cleanTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		if k = strings.TrimSpace(k); k != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}
