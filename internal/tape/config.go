package tape

import (
	"fmt"
	"time"
)

const (
	defaultSegmentMaxBytes int64 = 256 << 20
	defaultQueueSize             = 4096
	defaultBufferSize            = 64 * 1024
	defaultPrefix                = "ticks"

	segmentExt = ".tape"
)

var defaultSegmentMaxDuration = time.Hour

// Config controls where and how ticks are taped.
type Config struct {
	Dir                string
	Prefix             string
	SegmentMaxBytes    int64
	SegmentMaxDuration time.Duration
	QueueSize          int
	BufferSize         int
	FlushInterval      time.Duration
}

func DefaultConfig(dir string) Config {
	return Config{
		Dir:                dir,
		Prefix:             defaultPrefix,
		SegmentMaxBytes:    defaultSegmentMaxBytes,
		SegmentMaxDuration: defaultSegmentMaxDuration,
		QueueSize:          defaultQueueSize,
		BufferSize:         defaultBufferSize,
	}
}

func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = defaultPrefix
	}
	if c.SegmentMaxBytes == 0 {
		c.SegmentMaxBytes = defaultSegmentMaxBytes
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.BufferSize == 0 {
		c.BufferSize = defaultBufferSize
	}
	return c
}

func (c Config) Validate() error {
	switch {
	case c.Dir == "":
		return fmt.Errorf("invalid tape config: Dir is empty")
	case c.SegmentMaxBytes <= 0:
		return fmt.Errorf("invalid tape config: SegmentMaxBytes must be > 0")
	case c.SegmentMaxDuration < 0:
		return fmt.Errorf("invalid tape config: SegmentMaxDuration must be >= 0")
	case c.QueueSize <= 0:
		return fmt.Errorf("invalid tape config: QueueSize must be > 0")
	case c.BufferSize <= 0:
		return fmt.Errorf("invalid tape config: BufferSize must be > 0")
	case c.FlushInterval < 0:
		return fmt.Errorf("invalid tape config: FlushInterval must be >= 0")
	}
	return nil
}
