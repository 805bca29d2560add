package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/zeebo/xxh3"

	"github.com/ghalamif/MotionFlow/internal/domain"
	"github.com/ghalamif/MotionFlow/internal/ports"
)

// entry format: [8 bytes id][4 bytes len][8 bytes xxh3(body)][len bytes json]
const recordHeaderLen = 20

var (
	errTornRecord = errors.New("wal: torn record")
	errChecksum   = errors.New("wal: checksum mismatch")
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type FileWAL struct {
	mu        sync.Mutex
	path      string
	metaPath  string
	file      *os.File
	writer    *bufio.Writer
	nextID    ports.WALEntryID
	committed ports.WALEntryID
	sizeBytes int64
}

func NewFileWAL(dir string) (*FileWAL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "wal.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	wal := &FileWAL{
		path:     path,
		metaPath: filepath.Join(dir, "wal.meta"),
		file:     f,
		writer:   bufio.NewWriterSize(f, 1<<20),
	}
	if err := wal.bootstrap(); err != nil {
		f.Close()
		return nil, err
	}
	return wal, nil
}

func (w *FileWAL) bootstrap() error {
	if err := w.scanExisting(); err != nil {
		return err
	}
	if err := w.loadCommitted(); err != nil {
		return err
	}
	if w.nextID < w.committed {
		w.nextID = w.committed
	}
	_, err := w.file.Seek(0, io.SeekEnd)
	return err
}

// scanExisting finds the last intact record and cuts off anything after it:
// a torn tail from a crash mid-write, or a record whose checksum fails.
func (w *FileWAL) scanExisting() error {
	rf, err := os.Open(w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer rf.Close()

	reader := bufio.NewReader(rf)
	var (
		offset int64
		lastID ports.WALEntryID
	)
	for {
		id, body, err := readRecord(reader)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, errTornRecord) || errors.Is(err, errChecksum) {
				break
			}
			return fmt.Errorf("wal scan: %w", err)
		}
		offset += int64(recordHeaderLen + len(body))
		lastID = id
	}

	if err := w.file.Truncate(offset); err != nil {
		return err
	}
	w.sizeBytes = offset
	w.nextID = lastID
	return nil
}

func (w *FileWAL) loadCommitted() error {
	data, err := os.ReadFile(w.metaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	val := strings.TrimSpace(string(data))
	if val == "" {
		return nil
	}
	u, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return fmt.Errorf("wal meta parse: %w", err)
	}
	w.committed = ports.WALEntryID(u)
	return nil
}

func (w *FileWAL) Append(r *domain.Reading) (ports.WALEntryID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, err := jsonAPI.Marshal(r)
	if err != nil {
		return 0, err
	}

	id := w.nextID + 1
	if err := writeRecord(w.writer, id, b); err != nil {
		return 0, err
	}

	// group commit: the buffer is flushed on Commit, Iterate and Close
	w.nextID = id
	w.sizeBytes += int64(recordHeaderLen + len(b))
	return id, nil
}

func (w *FileWAL) Iterate(from ports.WALEntryID, fn func(id ports.WALEntryID, r *domain.Reading) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return err
	}

	f, err := os.Open(w.path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	for {
		id, body, err := readRecord(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("corrupt WAL: %w", err)
		}
		if id < from {
			continue
		}

		var r domain.Reading
		if err := jsonAPI.Unmarshal(body, &r); err != nil {
			return fmt.Errorf("corrupt WAL entry: %w", err)
		}
		if err := fn(id, &r); err != nil {
			return err
		}
	}
}

func (w *FileWAL) Commit(upto ports.WALEntryID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if upto > w.committed {
		w.committed = upto
	}
	return w.persistMetaLocked()
}

// TruncateCommitted drops every committed record from the log. When nothing
// is pending the file is cut to zero; otherwise the pending tail is copied to
// a fresh file that replaces the log.
func (w *FileWAL) TruncateCommitted() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return err
	}
	if w.committed >= w.nextID {
		if err := w.file.Truncate(0); err != nil {
			return err
		}
		w.sizeBytes = 0
		return nil
	}

	tmpPath := w.path + ".tmp"
	size, err := w.copyPendingLocked(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		return err
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.file.Close()
	w.file = f
	w.writer.Reset(f)
	w.sizeBytes = size
	return nil
}

func (w *FileWAL) copyPendingLocked(dst string) (int64, error) {
	src, err := os.Open(w.path)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	var (
		reader = bufio.NewReader(src)
		bw     = bufio.NewWriter(out)
		size   int64
	)
	for {
		id, body, err := readRecord(reader)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("wal truncate: %w", err)
		}
		if id <= w.committed {
			continue
		}
		if err := writeRecord(bw, id, body); err != nil {
			return 0, err
		}
		size += int64(recordHeaderLen + len(body))
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return size, out.Sync()
}

func (w *FileWAL) Stats() ports.WALStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ports.WALStats{
		OldestUncommitted: w.committed + 1,
		LatestAppended:    w.nextID,
		SizeBytes:         w.sizeBytes,
	}
}

// Close flushes buffered records and closes the log file.
func (w *FileWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func (w *FileWAL) persistMetaLocked() error {
	data := []byte(fmt.Sprintf("%d\n", w.committed))
	return os.WriteFile(w.metaPath, data, 0o644)
}

func writeRecord(dst io.Writer, id ports.WALEntryID, body []byte) error {
	var hdr [recordHeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], uint64(id))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(body)))
	binary.BigEndian.PutUint64(hdr[12:20], xxh3.Hash(body))

	if _, err := dst.Write(hdr[:]); err != nil {
		return err
	}
	_, err := dst.Write(body)
	return err
}

// readRecord returns io.EOF at a clean end of log and errTornRecord when the
// log ends inside a record.
func readRecord(r *bufio.Reader) (ports.WALEntryID, []byte, error) {
	var hdr [recordHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, errTornRecord
		}
		return 0, nil, err
	}
	id := ports.WALEntryID(binary.BigEndian.Uint64(hdr[0:8]))
	length := binary.BigEndian.Uint32(hdr[8:12])
	sum := binary.BigEndian.Uint64(hdr[12:20])

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, errTornRecord
		}
		return 0, nil, err
	}
	if xxh3.Hash(body) != sum {
		return 0, nil, errChecksum
	}
	return id, body, nil
}

var _ ports.WAL = (*FileWAL)(nil)
