// Package tape records the tick stream into checksummed segment files and
// plays it back, so algorithms can be run against a recorded session.
package tape

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"math"
	"time"

	"tradingdesk/pkg/market"
)

// Record layout, little endian:
//
//	magic[4] version u16 headerSize u16 symbolLen u16 reserved u16
//	seq u64 at(unix nano) i64 price(float64 bits) u64
//	symbol[symbolLen] crc32c(header, symbol) u32
const (
	recordVersion      uint16 = 1
	recordHeaderSize          = 36
	recordChecksumSize        = 4

	maxSymbolLen = int(^uint16(0))
)

var (
	recordMagic = [4]byte{'T', 'A', 'P', '1'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic       = errors.New("tape invalid magic")
	ErrUnsupportedVersion = errors.New("tape unsupported record version")
	ErrInvalidHeaderSize  = errors.New("tape invalid header size")
	ErrChecksumMismatch   = errors.New("tape checksum mismatch")
	ErrSymbolTooLong      = errors.New("tape symbol too long")
)

type header struct {
	seq       uint64
	symbolLen int
	at        time.Time
	price     market.Price
}

func encodeHeader(dst []byte, seq uint64, tick market.Tick) {
	_ = dst[recordHeaderSize-1]
	copy(dst[0:4], recordMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], recordVersion)
	binary.LittleEndian.PutUint16(dst[6:8], recordHeaderSize)
	binary.LittleEndian.PutUint16(dst[8:10], uint16(len(tick.Symbol)))
	binary.LittleEndian.PutUint16(dst[10:12], 0)
	binary.LittleEndian.PutUint64(dst[12:20], seq)
	binary.LittleEndian.PutUint64(dst[20:28], uint64(tick.At.UnixNano()))
	binary.LittleEndian.PutUint64(dst[28:36], math.Float64bits(tick.Price.Float64()))
}

func decodeHeader(src []byte) (header, error) {
	if len(src) < recordHeaderSize {
		return header{}, ErrInvalidHeaderSize
	}
	if !bytes.Equal(src[0:4], recordMagic[:]) {
		return header{}, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint16(src[4:6]); v != recordVersion {
		return header{}, ErrUnsupportedVersion
	}
	if size := binary.LittleEndian.Uint16(src[6:8]); size != recordHeaderSize {
		return header{}, ErrInvalidHeaderSize
	}
	return header{
		symbolLen: int(binary.LittleEndian.Uint16(src[8:10])),
		seq:       binary.LittleEndian.Uint64(src[12:20]),
		at:        time.Unix(0, int64(binary.LittleEndian.Uint64(src[20:28]))).UTC(),
		price:     market.Price(math.Float64frombits(binary.LittleEndian.Uint64(src[28:36]))),
	}, nil
}

func checksum(header, symbol []byte) uint32 {
	crc := crc32.Update(0, crcTable, header)
	return crc32.Update(crc, crcTable, symbol)
}
