package tape

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"tradingdesk/pkg/market"
)

// Reader decodes records sequentially.
type Reader struct {
	r      *bufio.Reader
	header []byte
	symbol []byte

	skipChecksum bool
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r), header: make([]byte, recordHeaderSize)}
}

// Next returns the next tick and its sequence number, and io.EOF at a
// clean end of input. A record cut short returns io.ErrUnexpectedEOF.
func (r *Reader) Next() (market.Tick, uint64, error) {
	n, err := io.ReadFull(r.r, r.header)
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return market.Tick{}, 0, io.EOF
		}
		return market.Tick{}, 0, io.ErrUnexpectedEOF
	}

	h, err := decodeHeader(r.header)
	if err != nil {
		return market.Tick{}, 0, err
	}
	if cap(r.symbol) < h.symbolLen {
		r.symbol = make([]byte, h.symbolLen)
	}
	r.symbol = r.symbol[:h.symbolLen]
	if _, err := io.ReadFull(r.r, r.symbol); err != nil {
		return market.Tick{}, 0, io.ErrUnexpectedEOF
	}

	var sum [recordChecksumSize]byte
	if _, err := io.ReadFull(r.r, sum[:]); err != nil {
		return market.Tick{}, 0, io.ErrUnexpectedEOF
	}
	if !r.skipChecksum && binary.LittleEndian.Uint32(sum[:]) != checksum(r.header, r.symbol) {
		return market.Tick{}, 0, ErrChecksumMismatch
	}

	return market.Tick{Symbol: string(r.symbol), Price: h.price, At: h.at}, h.seq, nil
}
