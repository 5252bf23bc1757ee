package tape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tradingdesk/pkg/market"
)

// PlaybackConfig controls playback. Speed 1 replays in real time, 0 replays
// as fast as the handler allows.
type PlaybackConfig struct {
	Dir             string
	Prefix          string
	Symbol          string
	Speed           float64
	DisableChecksum bool
}

func (c PlaybackConfig) withDefaults() PlaybackConfig {
	if c.Prefix == "" {
		c.Prefix = defaultPrefix
	}
	return c
}

func (c PlaybackConfig) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("invalid playback config: Dir is empty")
	}
	if c.Speed < 0 {
		return fmt.Errorf("invalid playback config: Speed must be >= 0")
	}
	return nil
}

// Sleeper paces playback.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Playback replays taped ticks in segment order.
type Playback struct {
	cfg     PlaybackConfig
	sleeper Sleeper
}

func NewPlayback(cfg PlaybackConfig) (*Playback, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Playback{cfg: cfg, sleeper: realSleeper{}}, nil
}

func (p *Playback) WithSleeper(s Sleeper) *Playback {
	if s != nil {
		p.sleeper = s
	}
	return p
}

// Run calls handle for every tick, filtered by Symbol when set. A handler
// error stops playback and is returned.
func (p *Playback) Run(ctx context.Context, handle func(market.Tick) error) error {
	if handle == nil {
		return errors.New("playback handler is nil")
	}
	files, err := Segments(p.cfg.Dir, p.cfg.Prefix)
	if err != nil {
		return err
	}

	var prev time.Time
	for _, path := range files {
		if err := p.play(ctx, path, handle, &prev); err != nil {
			return err
		}
	}
	return nil
}

// Segments lists the segment files of prefix in dir, oldest first.
func Segments(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, segmentExt) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

func (p *Playback) play(ctx context.Context, path string, handle func(market.Tick) error, prev *time.Time) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := NewReader(file)
	reader.skipChecksum = p.cfg.DisableChecksum
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tick, _, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read %s: %w", path, err)
		}
		if p.cfg.Symbol != "" && tick.Symbol != p.cfg.Symbol {
			continue
		}
		if err := p.pace(ctx, tick.At, prev); err != nil {
			return err
		}
		if err := handle(tick); err != nil {
			return err
		}
	}
}

func (p *Playback) pace(ctx context.Context, at time.Time, prev *time.Time) error {
	if p.cfg.Speed > 0 && !prev.IsZero() {
		if delta := at.Sub(*prev); delta > 0 {
			if err := p.sleeper.Sleep(ctx, time.Duration(float64(delta)/p.cfg.Speed)); err != nil {
				return err
			}
		}
	}
	*prev = at
	return nil
}
