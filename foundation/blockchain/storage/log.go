package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// recordHeaderSize is the length and checksum prefix of every log record.
const recordHeaderSize = 8

// maxRecordSize bounds the size of a single block record.
const maxRecordSize = 64 << 20

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// blockLog is the append-only file holding the encoded blocks. Every record
// is u32 length | u32 crc32c | block bytes. Records are immutable once the
// index has committed them.
type blockLog struct {
	f    *os.File
	size int64
}

// openLog opens or creates the log file.
func openLog(path string) (*blockLog, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat log: %w", err)
	}

	return &blockLog{f: f, size: info.Size()}, nil
}

// append writes a record at the end of the log and syncs it to disk. It
// returns the offset and total length of the record.
func (l *blockLog) append(data []byte) (int64, uint32, error) {
	rec := make([]byte, recordHeaderSize+len(data))
	binary.BigEndian.PutUint32(rec[0:4], uint32(len(data)))
	binary.BigEndian.PutUint32(rec[4:8], crc32.Checksum(data, castagnoli))
	copy(rec[recordHeaderSize:], data)

	offset := l.size
	if _, err := l.f.WriteAt(rec, offset); err != nil {
		return 0, 0, fmt.Errorf("write log: %w", err)
	}

	if err := l.f.Sync(); err != nil {
		return 0, 0, fmt.Errorf("sync log: %w", err)
	}

	l.size += int64(len(rec))

	return offset, uint32(len(rec)), nil
}

// read returns the block bytes of the record at the offset after checking
// its checksum.
func (l *blockLog) read(offset int64, length uint32) ([]byte, error) {
	if length < recordHeaderSize {
		return nil, fmt.Errorf("%w: record length %d", ErrCorrupt, length)
	}

	rec := make([]byte, length)
	if _, err := l.f.ReadAt(rec, offset); err != nil {
		return nil, fmt.Errorf("read log at %d: %w", offset, err)
	}

	return decodeRecord(rec)
}

// truncate discards everything after size.
func (l *blockLog) truncate(size int64) error {
	if err := l.f.Truncate(size); err != nil {
		return fmt.Errorf("truncate log: %w", err)
	}

	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}

	l.size = size

	return nil
}

// scan walks the records from the start of the log. It stops at the end of
// the log or at the first incomplete or corrupt record and returns the
// offset just past the last good record.
func (l *blockLog) scan(fn func(offset int64, length uint32, data []byte) error) (int64, error) {
	var offset int64
	hdr := make([]byte, recordHeaderSize)

	for offset < l.size {
		if _, err := l.f.ReadAt(hdr, offset); err != nil {
			if errors.Is(err, io.EOF) {
				return offset, nil
			}
			return offset, fmt.Errorf("read log at %d: %w", offset, err)
		}

		n := binary.BigEndian.Uint32(hdr[0:4])
		if n > maxRecordSize || offset+recordHeaderSize+int64(n) > l.size {
			return offset, nil
		}

		length := uint32(recordHeaderSize) + n
		data, err := l.read(offset, length)
		if err != nil {
			if errors.Is(err, ErrCorrupt) {
				return offset, nil
			}
			return offset, err
		}

		if err := fn(offset, length, data); err != nil {
			return offset, err
		}

		offset += int64(length)
	}

	return offset, nil
}

func (l *blockLog) close() error {
	return l.f.Close()
}

// decodeRecord checks the record framing and returns the block bytes.
func decodeRecord(rec []byte) ([]byte, error) {
	n := binary.BigEndian.Uint32(rec[0:4])
	if int(n) != len(rec)-recordHeaderSize {
		return nil, fmt.Errorf("%w: record length %d, have %d", ErrCorrupt, n, len(rec)-recordHeaderSize)
	}

	data := rec[recordHeaderSize:]
	if crc32.Checksum(data, castagnoli) != binary.BigEndian.Uint32(rec[4:8]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	return data, nil
}
