package confluo

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/go-mmap/mmap"
)

// The data log is an append-only memory-mapped file. A fixed header is
// followed by a series of records:
// uint64 - payload length
// uint64 - ingest timestamp (nanoseconds)
// bytes  - raw record payload
//
// The header stores a magic number and the committed size, so reopening
// a log never requires a full scan.

const (
	dataLogMagic      = 0x434f4e464c554f31 // "CONFLUO1"
	dataLogHeaderSize = 16
	recordHeaderSize  = 16
)

type dataLog struct {
	*mmap.File

	// mu guards size and the mapping itself: growth closes and replaces
	// File, so readers hold the read lock for the duration of an access.
	mu sync.RWMutex

	name string

	// Committed size including the header.
	size int64
}

// openDataLog opens or creates the log file at the given path.
func openDataLog(name string) (*dataLog, error) {
	if _, err := os.Stat(name); os.IsNotExist(err) {
		f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0644)
		if err != nil {
			return nil, err
		}
		if err := f.Truncate(4096); err != nil {
			f.Close()
			return nil, err
		}
		f.Close()
	}

	f, err := mmap.OpenFile(name, mmap.Read|mmap.Write)
	if err != nil {
		return nil, err
	}

	dl := &dataLog{File: f, name: name}
	if dl.readUint64(0) != dataLogMagic {
		// Fresh file.
		dl.writeUint64(0, dataLogMagic)
		dl.writeUint64(8, dataLogHeaderSize)
		dl.size = dataLogHeaderSize
	} else {
		dl.size = int64(dl.readUint64(8))
		if dl.size < dataLogHeaderSize || dl.size > int64(dl.File.Len()) {
			f.Close()
			return nil, fmt.Errorf("data log %s has corrupt header", name)
		}
	}
	return dl, nil
}

// Append writes one record and returns its offset in the log. The write
// lock covers the whole write, including any growth remap, so readers
// never observe a partially written record or a stale mapping.
func (dl *dataLog) Append(timestamp uint64, payload []byte) (int64, error) {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	offset := dl.size
	total := int64(recordHeaderSize + len(payload))
	dl.ensureLength(int(offset + total))

	dl.writeUint64(offset, uint64(len(payload)))
	dl.writeUint64(offset+8, timestamp)
	if _, err := dl.WriteAt(payload, offset+recordHeaderSize); err != nil {
		return 0, err
	}

	dl.size = offset + total
	dl.writeUint64(8, uint64(dl.size))
	return offset, nil
}

// ReadAt returns the timestamp and payload of the record at the given
// offset. The returned payload is a copy.
func (dl *dataLog) ReadAt(offset int64) (uint64, []byte, error) {
	dl.mu.RLock()
	defer dl.mu.RUnlock()
	return dl.readRecord(offset)
}

// readRecord reads one record. The caller holds mu.
func (dl *dataLog) readRecord(offset int64) (uint64, []byte, error) {
	if offset < dataLogHeaderSize || offset+recordHeaderSize > dl.size {
		return 0, nil, fmt.Errorf("offset %d out of range", offset)
	}
	length := dl.readUint64(offset)
	timestamp := dl.readUint64(offset + 8)
	payload := make([]byte, length)
	if _, err := dl.File.ReadAt(payload, offset+recordHeaderSize); err != nil {
		return 0, nil, err
	}
	return timestamp, payload, nil
}

// Scan walks committed records in append order. The callback returns
// false to stop early. The payload passed to fn is a copy. The read
// lock is held for the whole walk, so appends wait for it to finish.
func (dl *dataLog) Scan(fn func(offset int64, timestamp uint64, payload []byte) bool) error {
	dl.mu.RLock()
	defer dl.mu.RUnlock()

	end := dl.size
	offset := int64(dataLogHeaderSize)
	for offset < end {
		timestamp, payload, err := dl.readRecord(offset)
		if err != nil {
			return err
		}
		if !fn(offset, timestamp, payload) {
			return nil
		}
		offset += recordHeaderSize + int64(len(payload))
	}
	return nil
}

// NumRecords counts committed records.
func (dl *dataLog) NumRecords() int {
	n := 0
	dl.Scan(func(int64, uint64, []byte) bool {
		n++
		return true
	})
	return n
}

// ensureLength extends and remaps the file if it is shorter than length.
// The caller holds mu for writing; remapping replaces dl.File.
func (dl *dataLog) ensureLength(length int) {
	curSize := dl.File.Len()
	if curSize >= length {
		return
	}

	length += 4096

	if err := dl.File.Close(); err != nil {
		log.Panic(err)
	}

	file, err := os.OpenFile(dl.name, os.O_RDWR, 0644)
	if err != nil {
		log.Panic(err)
	}
	defer file.Close()

	if err := file.Truncate(int64(length)); err != nil {
		log.Panic(err)
	}

	dl.File, err = mmap.OpenFile(dl.name, mmap.Read|mmap.Write)
	if err != nil {
		log.Panic(err)
	}
}

func (dl *dataLog) readUint64(offset int64) uint64 {
	buf := make([]byte, 8)
	dl.File.ReadAt(buf, offset)
	return binary.LittleEndian.Uint64(buf)
}

func (dl *dataLog) writeUint64(offset int64, value uint64) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, value)
	dl.WriteAt(buf, offset)
}

func (dl *dataLog) Close() error {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.File.Sync()
	return dl.File.Close()
}
