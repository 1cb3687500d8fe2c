package statsd

import (
	"bytes"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	packets []string
	closed  bool
}

func (r *recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packets = append(r.packets, string(bytes.Clone(p)))
	return len(p), nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func TestJoinName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, name, want string
	}{
		{"rejoice", "auth.operation", "rejoice.auth.operation"},
		{"", " auth/login ", "auth_login"},
		{"rejoice", "auth..duration.", "rejoice.auth.duration"},
		{"rejoice", "   ", ""},
		{"", "a:b|c", "a_b_c"},
	}
	for _, tt := range tests {
		if got := joinName(tt.prefix, tt.name); got != tt.want {
			t.Fatalf("joinName(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

func TestRenderTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " web "}
	local := map[string]string{"result": " success ", "": "ignored", "env": "stage"}

	got := renderTags(global, local)
	want := "|#env:stage,result:success,service:web"
	if got != want {
		t.Fatalf("renderTags mismatch\n got: %q\nwant: %q", got, want)
	}
	if got := renderTags(nil, nil); got != "" {
		t.Fatalf("renderTags(nil, nil) = %q, want empty", got)
	}
}

func TestClientBatchesUntilFlush(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	c, err := NewClient(Config{Prefix: "rejoice.", Writer: rec, GlobalTags: map[string]string{"env": "test"}})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	c.Count("auth.operation", 1, map[string]string{"op": "login"})
	c.Gauge("auth.sessions.active", 3, nil)
	c.Timing("auth.duration", 1500*time.Microsecond, nil)
	if len(rec.packets) != 0 {
		t.Fatalf("expected buffering before flush, got %v", rec.packets)
	}

	c.Flush()
	if len(rec.packets) != 1 {
		t.Fatalf("expected one packet, got %d", len(rec.packets))
	}
	lines := strings.Split(rec.packets[0], "\n")
	want := []string{
		"rejoice.auth.operation:1|c|#env:test,op:login",
		"rejoice.auth.sessions.active:3|g|#env:test",
		"rejoice.auth.duration:1.5|ms|#env:test",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %q", len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestClientSplitsPackets(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	c, err := NewClient(Config{Writer: rec, MaxPacketSize: 1})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.Count("a", 1, nil)
	c.Count("b", 2, nil)

	if len(rec.packets) != 2 || rec.packets[0] != "a:1|c" || rec.packets[1] != "b:2|c" {
		t.Fatalf("expected one packet per line, got %q", rec.packets)
	}
}

func TestClientCloseFlushesAndDisables(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	c, err := NewClient(Config{Writer: rec})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if !c.Enabled() {
		t.Fatal("expected client with writer to be enabled")
	}
	c.Count("a", 1, nil)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !rec.closed || len(rec.packets) != 1 {
		t.Fatalf("expected flush then close, got closed=%v packets=%q", rec.closed, rec.packets)
	}
	if c.Enabled() {
		t.Fatal("expected client disabled after Close")
	}
	c.Count("b", 1, nil)
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if len(rec.packets) != 1 {
		t.Fatalf("expected metrics after Close to be dropped, got %q", rec.packets)
	}

	var nilClient *Client
	nilClient.Count("x", 1, nil)
	nilClient.Flush()
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
}

func TestNewClientDisabled(t *testing.T) {
	t.Parallel()

	for _, cfg := range []Config{{Enabled: true, Address: "   "}, {Enabled: false, Address: "127.0.0.1:8125"}} {
		client, err := NewClient(cfg)
		if err != nil {
			t.Fatalf("NewClient error: %v", err)
		}
		if client.Enabled() {
			t.Fatalf("expected client disabled for %+v", cfg)
		}
	}
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientSendsUDP(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp unavailable: %v", err)
	}
	defer pc.Close()

	c, err := NewClient(Config{Enabled: true, Address: pc.LocalAddr().String(), Prefix: "rejoice"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	c.Count("auth.operation", 1, nil)
	c.Flush()

	buf := make([]byte, 512)
	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if got := string(buf[:n]); got != "rejoice.auth.operation:1|c" {
		t.Fatalf("unexpected packet %q", got)
	}
}
