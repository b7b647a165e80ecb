package main

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/mqtt-event-publisher/internal/infrastructure/mqtt"
)

// recordingDialer captures publishes in place of a broker.
type recordingDialer struct {
	mu     sync.Mutex
	fail   error
	topics []string
}

func (d *recordingDialer) Dial() (mqtt.Conn, error) {
	if d.fail != nil {
		return nil, d.fail
	}
	return d, nil
}

func (d *recordingDialer) Publish(topic string, _ []byte, _ byte, _ bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.topics = append(d.topics, topic)
	return nil
}

func (d *recordingDialer) Close() error { return nil }

func (d *recordingDialer) published() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.topics...)
}

func useDialer(t *testing.T, d mqtt.Dialer) {
	t.Helper()
	original := newDialer
	newDialer = func(*mqtt.Options) mqtt.Dialer { return d }
	t.Cleanup(func() { newDialer = original })
}

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
mqtt:
  host: "127.0.0.1"
  port: 1883
  topic: "events/%{kind}"
  connect_retry_interval: 1
logging:
  level: error
  output: discard
input:
  batch_size: 2
  flush_interval_ms: 10
` + extra
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	err := run(context.Background(), runOptions{configPath: "/nonexistent/path/config.yaml"})
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_ValidationFailure verifies a config without a topic is rejected.
func TestRun_ValidationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mqtt:\n  host: broker\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := run(context.Background(), runOptions{configPath: path})
	if err == nil || !strings.Contains(err.Error(), "mqtt.topic is required") {
		t.Fatalf("run() error = %v, want topic validation error", err)
	}
}

// TestRun_MissingInputFile verifies an unreadable input path fails startup.
func TestRun_MissingInputFile(t *testing.T) {
	useDialer(t, &recordingDialer{})

	err := run(context.Background(), runOptions{
		configPath: writeConfig(t, ""),
		inputPath:  "/nonexistent/events.jsonl",
	})
	if err == nil {
		t.Fatal("run() should fail with missing input file")
	}
}

// TestRun_MetricsBindFailure verifies an unusable metrics address fails startup.
func TestRun_MetricsBindFailure(t *testing.T) {
	useDialer(t, &recordingDialer{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	err = run(context.Background(), runOptions{
		configPath: writeConfig(t, "metrics:\n  enabled: true\n  address: \""+ln.Addr().String()+"\"\n"),
		stdin:      strings.NewReader(""),
	})
	if err == nil || !strings.Contains(err.Error(), "metrics server") {
		t.Fatalf("run() error = %v, want metrics bind error", err)
	}
}

// TestRun_PublishesInput verifies every input line is published in order.
func TestRun_PublishesInput(t *testing.T) {
	d := &recordingDialer{}
	useDialer(t, d)

	input := strings.Join([]string{
		`{"kind":"a","message":"one"}`,
		``,
		`{"kind":"b","message":"two"}`,
		`{"kind":"c","message":"three"}`,
	}, "\n")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, runOptions{
		configPath: writeConfig(t, ""),
		stdin:      strings.NewReader(input),
	})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	got := d.published()
	want := []string{"events/a", "events/b", "events/c"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("published = %v, want %v", got, want)
	}
}

// TestRun_OverlongLineFails verifies a line beyond the scanner limit fails
// the run after the lines before it are published.
func TestRun_OverlongLineFails(t *testing.T) {
	d := &recordingDialer{}
	useDialer(t, d)

	input := `{"kind":"a"}` + "\n" + strings.Repeat("x", maxLineSize+1) + "\n" + `{"kind":"b"}` + "\n"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, runOptions{
		configPath: writeConfig(t, ""),
		stdin:      strings.NewReader(input),
	})
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Fatalf("run() error = %v, want bufio.ErrTooLong", err)
	}

	if got := strings.Join(d.published(), ","); got != "events/a" {
		t.Errorf("published = %v, want [events/a]", got)
	}
}

// TestRun_SignalDuringBackoff verifies cancellation ends a retry loop promptly.
func TestRun_SignalDuringBackoff(t *testing.T) {
	useDialer(t, &recordingDialer{fail: errors.New("connection refused")})

	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer pr.Close()
	defer pw.Close()

	if _, err := pw.WriteString(`{"kind":"a"}` + "\n" + `{"kind":"b"}` + "\n"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, runOptions{
			configPath: writeConfig(t, ""),
			stdin:      pr,
		})
	}()

	// Let the first batch reach the backoff wait.
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v, want nil on signal", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}
}

func TestNewApp_RunFlags(t *testing.T) {
	app := newApp()
	if len(app.Commands) != 1 || app.Commands[0].Name != "run" {
		t.Fatalf("commands = %v, want [run]", app.Commands)
	}

	names := map[string]bool{}
	for _, f := range app.Commands[0].Flags {
		names[f.Names()[0]] = true
	}
	for _, want := range []string{"config", "input", "verbose"} {
		if !names[want] {
			t.Errorf("missing flag %q", want)
		}
	}
}
