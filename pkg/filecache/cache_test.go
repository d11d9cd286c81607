package filecache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(id string) Config {
	return Config{
		ID:            id,
		Path:          "/data/" + id + ".log",
		FlushInterval: time.Second,
	}
}

func newTestCache(t *testing.T, fs afero.Fs, cfg Config, opts ...Option) *Cache {
	t.Helper()
	c, err := New(fs, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitQueueEmpty(t *testing.T, c *Cache) {
	t.Helper()
	require.Eventually(t, c.IsQueueEmpty, time.Second, time.Millisecond)
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingMetrics struct {
	mu     sync.Mutex
	writes int
	bytes  int
	syncs  map[string]int
	depth  int
}

func (r *recordingMetrics) ObserveWrite(_ string, n int, _ time.Duration) {
	r.mu.Lock()
	r.writes++
	r.bytes += n
	r.mu.Unlock()
}

func (r *recordingMetrics) RecordSync(_ string, kind string, _ int64, _ time.Duration) {
	r.mu.Lock()
	if r.syncs == nil {
		r.syncs = map[string]int{}
	}
	r.syncs[kind]++
	r.mu.Unlock()
}

func (r *recordingMetrics) SetQueueDepth(_ string, depth int) {
	r.mu.Lock()
	r.depth = depth
	r.mu.Unlock()
}

func TestNew_InvalidConfig(t *testing.T) {
	fs := afero.NewMemMapFs()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing id", Config{Path: "/a.log", FlushInterval: time.Second}},
		{"missing path", Config{ID: "a", FlushInterval: time.Second}},
		{"zero interval", Config{ID: "a", Path: "/a.log"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(fs, tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNew_AppliesDefaultsAndCreatesDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := testConfig("cam")
	cfg.Path = "/deep/nested/dir/cam.log"

	c := newTestCache(t, fs, cfg)
	assert.Equal(t, DefaultQueueSize, c.cfg.QueueSize)
	assert.Equal(t, DefaultBufferSize, c.cfg.BufferSize)

	exists, err := afero.Exists(fs, "/deep/nested/dir/cam.log")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWrite_BufferedUntilForceSync(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCache(t, fs, testConfig("a"))
	ctx := context.Background()

	require.NoError(t, c.Write(ctx, []byte("hello ")))
	require.NoError(t, c.Write(ctx, []byte("world\n")))
	waitQueueEmpty(t, c)

	assert.Empty(t, readFile(t, fs, c.Path()))

	require.NoError(t, c.ForceSync(ctx))
	assert.Equal(t, "hello world\n", readFile(t, fs, c.Path()))

	st := c.Stats()
	assert.Equal(t, int64(12), st.BytesWritten)
	assert.Equal(t, uint64(1), st.ForcedSyncs)
	assert.Equal(t, int64(0), st.Pending)
	assert.Empty(t, st.LastError)
}

func TestWrite_CopiesInput(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCache(t, fs, testConfig("a"))

	buf := []byte("abc")
	require.NoError(t, c.Write(context.Background(), buf))
	copy(buf, "xyz")
	waitQueueEmpty(t, c)

	require.NoError(t, c.ForceSync(context.Background()))
	assert.Equal(t, "abc", readFile(t, fs, c.Path()))
}

func TestForceSync_IdempotentOnEmptyBuffer(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCache(t, fs, testConfig("a"))
	ctx := context.Background()

	require.NoError(t, c.ForceSync(ctx))
	require.NoError(t, c.ForceSync(ctx))
	assert.Empty(t, readFile(t, fs, c.Path()))
	assert.Equal(t, uint64(2), c.Stats().ForcedSyncs)
}

func TestForceSync_CancelledContext(t *testing.T) {
	c := newTestCache(t, afero.NewMemMapFs(), testConfig("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.ForceSync(ctx), context.Canceled)
	assert.Equal(t, uint64(0), c.Stats().ForcedSyncs)
}

func TestDueForSync(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cfg := testConfig("a")
	cfg.FlushInterval = 5 * time.Second
	c := newTestCache(t, afero.NewMemMapFs(), cfg, WithClock(clock.Now))

	assert.False(t, c.DueForSync())

	clock.Advance(4 * time.Second)
	assert.False(t, c.DueForSync())

	clock.Advance(time.Second)
	assert.True(t, c.DueForSync())

	require.NoError(t, c.ForceSync(context.Background()))
	assert.False(t, c.DueForSync())
	assert.True(t, clock.Now().Equal(c.Stats().LastSync))
}

func TestThresholdSync(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	fs := afero.NewMemMapFs()
	cfg := testConfig("a")
	cfg.BufferSize = 8
	cfg.FlushInterval = 5 * time.Second
	rec := &recordingMetrics{}
	c := newTestCache(t, fs, cfg, WithClock(clock.Now), WithMetrics(rec))

	clock.Advance(10 * time.Second)
	require.True(t, c.DueForSync())

	require.NoError(t, c.Write(context.Background(), []byte("0123456789")))
	require.Eventually(t, func() bool { return c.Stats().ThresholdSyncs == 1 }, time.Second, time.Millisecond)

	assert.Equal(t, "0123456789", readFile(t, fs, c.Path()))
	assert.False(t, c.DueForSync(), "a threshold sync counts as a flush")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.writes)
	assert.Equal(t, 10, rec.bytes)
	assert.Equal(t, 1, rec.syncs[KindThreshold])
}

func TestWrite_BlocksWhenQueueFull(t *testing.T) {
	cfg := testConfig("a")
	cfg.QueueSize = 1
	c := newTestCache(t, afero.NewMemMapFs(), cfg)

	// Hold the writer lock so the consumer stalls after taking one unit.
	c.mu.Lock()
	require.NoError(t, c.Write(context.Background(), []byte("1")))
	require.Eventually(t, func() bool { return len(c.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, c.Write(context.Background(), []byte("2")))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Write(ctx, []byte("3")), context.DeadlineExceeded)
	assert.False(t, c.IsQueueEmpty())
	assert.Equal(t, int64(2), c.pending.Load())
	c.mu.Unlock()

	waitQueueEmpty(t, c)
}

func TestClose_DrainsAndSyncs(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, err := New(fs, testConfig("a"))
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		require.NoError(t, c.Write(context.Background(), []byte(fmt.Sprintf("line %d\n", i))))
	}
	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())

	lines := strings.Split(strings.TrimSuffix(readFile(t, fs, c.Path()), "\n"), "\n")
	require.Len(t, lines, 100)
	assert.Equal(t, "line 0", lines[0])
	assert.Equal(t, "line 99", lines[99])

	assert.ErrorIs(t, c.Write(context.Background(), []byte("late")), ErrClosed)
	assert.ErrorIs(t, c.ForceSync(context.Background()), ErrClosed)
}

func TestConcurrentWritersAndForceSync(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := testConfig("a")
	cfg.QueueSize = 16
	c, err := New(fs, cfg)
	require.NoError(t, err)

	const writers, perWriter = 8, 200
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				assert.NoError(t, c.Write(context.Background(), []byte("x\n")))
			}
		}()
	}

	stop := make(chan struct{})
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		for {
			select {
			case <-stop:
				return
			default:
				assert.NoError(t, c.ForceSync(context.Background()))
			}
		}
	}()

	wg.Wait()
	close(stop)
	<-syncDone
	require.NoError(t, c.Close())

	assert.Len(t, readFile(t, fs, c.Path()), writers*perWriter*2)
}

func TestOsFileSync(t *testing.T) {
	fs := afero.NewOsFs()
	cfg := testConfig("disk")
	cfg.Path = filepath.Join(t.TempDir(), "disk.log")
	c := newTestCache(t, fs, cfg)

	require.NoError(t, c.Write(context.Background(), []byte("durable\n")))
	waitQueueEmpty(t, c)
	require.NoError(t, c.ForceSync(context.Background()))

	data, err := os.ReadFile(cfg.Path)
	require.NoError(t, err)
	assert.Equal(t, "durable\n", string(data))
}

func TestAppendsToExistingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/a.log", []byte("old\n"), 0644))

	c, err := New(fs, testConfig("a"))
	require.NoError(t, err)
	require.NoError(t, c.Write(context.Background(), []byte("new\n")))
	require.NoError(t, c.Close())

	assert.Equal(t, "old\nnew\n", readFile(t, fs, "/data/a.log"))
}

func TestIngest(t *testing.T) {
	fs := afero.NewMemMapFs()
	rec := &recordingMetrics{}
	c, err := New(fs, testConfig("a"), WithMetrics(rec))
	require.NoError(t, err)

	n, err := Ingest(context.Background(), c, strings.NewReader("first\nsecond\nthird"))
	require.NoError(t, err)
	assert.Equal(t, int64(18), n)
	require.NoError(t, c.Close())

	assert.Equal(t, "first\nsecond\nthird", readFile(t, fs, c.Path()))
	rec.mu.Lock()
	assert.Equal(t, 3, rec.writes)
	assert.Equal(t, 1, rec.syncs[KindClose])
	rec.mu.Unlock()
}

func TestIngest_ClosedCache(t *testing.T) {
	c, err := New(afero.NewMemMapFs(), testConfig("a"))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = Ingest(context.Background(), c, strings.NewReader("x\n"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestIngest_ReturnsOnCancelWithIdleReader(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCache(t, fs, testConfig("a"))

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		n   int64
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := Ingest(ctx, c, pr)
		done <- result{n, err}
	}()

	_, err := pw.Write([]byte("before cancel\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.Stats().BytesWritten == int64(len("before cancel\n")) },
		time.Second, time.Millisecond)

	cancel()

	select {
	case res := <-done:
		assert.ErrorIs(t, res.err, context.Canceled)
		assert.Equal(t, int64(len("before cancel\n")), res.n)
	case <-time.After(time.Second):
		t.Fatal("Ingest still blocked after cancel")
	}

	// Unblock the reader goroutine.
	_ = pr.CloseWithError(io.ErrClosedPipe)
}
