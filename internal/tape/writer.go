package tape

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"tradingdesk/pkg/market"
)

var (
	ErrQueueFull      = errors.New("tape queue full")
	ErrClosed         = errors.New("tape writer closed")
	ErrNotStarted     = errors.New("tape writer not started")
	ErrAlreadyStarted = errors.New("tape writer already started")
)

// Writer appends ticks to rotating segments from a buffered queue. TryAppend
// never blocks the feed.
type Writer struct {
	cfg Config
	ch  chan market.Tick
	wg  sync.WaitGroup
	err atomic.Value
	now func() time.Time

	mu      sync.RWMutex
	started bool
	closed  bool
	seq     uint64
}

func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &Writer{
		cfg: cfg,
		ch:  make(chan market.Tick, cfg.QueueSize),
		now: time.Now,
	}, nil
}

// Start runs the writer loop until ctx is done or Close is called.
func (w *Writer) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrAlreadyStarted
	}
	if w.closed {
		return ErrClosed
	}
	w.started = true
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	return nil
}

// Close flushes queued ticks and returns the first write error.
func (w *Writer) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
	w.mu.Unlock()
	w.wg.Wait()
	return w.Err()
}

func (w *Writer) Err() error {
	if v := w.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// TryAppend enqueues a tick. A tick without a timestamp is stamped now.
func (w *Writer) TryAppend(tick market.Tick) error {
	if len(tick.Symbol) > maxSymbolLen {
		return ErrSymbolTooLong
	}
	if tick.At.IsZero() {
		tick.At = w.now()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	switch {
	case w.closed:
		return ErrClosed
	case !w.started:
		return ErrNotStarted
	}
	if err := w.Err(); err != nil {
		return err
	}

	select {
	case w.ch <- tick:
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *Writer) run(ctx context.Context) {
	var (
		seg    *segment
		segID  uint64
		buf    = make([]byte, recordHeaderSize)
		flushC <-chan time.Time
	)
	if w.cfg.FlushInterval > 0 {
		ticker := time.NewTicker(w.cfg.FlushInterval)
		defer ticker.Stop()
		flushC = ticker.C
	}
	defer func() {
		if err := seg.close(); err != nil {
			w.setErr(err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.drain(&seg, &segID, buf)
			return
		case tick, ok := <-w.ch:
			if !ok {
				return
			}
			if err := w.write(&seg, &segID, buf, tick); err != nil {
				w.setErr(err)
				return
			}
		case <-flushC:
			if err := seg.flush(); err != nil {
				w.setErr(err)
				return
			}
		}
	}
}

func (w *Writer) drain(seg **segment, segID *uint64, buf []byte) {
	for {
		select {
		case tick, ok := <-w.ch:
			if !ok {
				return
			}
			if err := w.write(seg, segID, buf, tick); err != nil {
				w.setErr(err)
				return
			}
		default:
			return
		}
	}
}

func (w *Writer) write(seg **segment, segID *uint64, buf []byte, tick market.Tick) error {
	now := w.now().UTC()
	size := int64(recordHeaderSize + len(tick.Symbol) + recordChecksumSize)
	if w.shouldRotate(*seg, now, size) {
		if err := (*seg).close(); err != nil {
			return err
		}
		opened, err := w.open(segID, now)
		if err != nil {
			return err
		}
		*seg = opened
	}

	w.seq++
	encodeHeader(buf, w.seq, tick)
	var sum [recordChecksumSize]byte
	binary.LittleEndian.PutUint32(sum[:], checksum(buf, []byte(tick.Symbol)))

	if _, err := (*seg).buf.Write(buf); err != nil {
		return err
	}
	if _, err := (*seg).buf.WriteString(tick.Symbol); err != nil {
		return err
	}
	if _, err := (*seg).buf.Write(sum[:]); err != nil {
		return err
	}
	(*seg).size += size
	return nil
}

func (w *Writer) shouldRotate(seg *segment, now time.Time, next int64) bool {
	if seg == nil {
		return true
	}
	if seg.size > 0 && seg.size+next > w.cfg.SegmentMaxBytes {
		return true
	}
	return w.cfg.SegmentMaxDuration > 0 && now.Sub(seg.openedAt) >= w.cfg.SegmentMaxDuration
}

func (w *Writer) open(segID *uint64, now time.Time) (*segment, error) {
	ts := now.Format("20060102-150405")
	for {
		*segID++
		path := filepath.Join(w.cfg.Dir, fmt.Sprintf("%s-%s-%06d%s", w.cfg.Prefix, ts, *segID, segmentExt))
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return nil, err
		}
		return &segment{file: file, buf: bufio.NewWriterSize(file, w.cfg.BufferSize), openedAt: now}, nil
	}
}

func (w *Writer) setErr(err error) {
	if err != nil && w.err.Load() == nil {
		w.err.Store(err)
	}
}

type segment struct {
	file     *os.File
	buf      *bufio.Writer
	size     int64
	openedAt time.Time
}

func (s *segment) flush() error {
	if s == nil {
		return nil
	}
	return s.buf.Flush()
}

func (s *segment) close() error {
	if s == nil {
		return nil
	}
	if err := s.buf.Flush(); err != nil {
		_ = s.file.Close()
		return err
	}
	if err := s.file.Sync(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}
