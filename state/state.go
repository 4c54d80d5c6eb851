// Package state remembers which messages were already extracted so a
// re-run over the same archive only handles new mail.
package state

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileName is the journal kept inside the state directory.
const FileName = "extracted.jsonl"

type Tracker interface {
	Seen(hash string) bool
	Record(hash, messageID string) error
	Snapshot() Snapshot
	Close() error
}

type Snapshot struct {
	Extracted int
}

type MemoryTracker struct {
	mu   sync.RWMutex
	seen map[string]string
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{seen: make(map[string]string)}
}

func (m *MemoryTracker) Seen(hash string) bool {
	if hash == "" {
		return false
	}
	m.mu.RLock()
	_, ok := m.seen[hash]
	m.mu.RUnlock()
	return ok
}

func (m *MemoryTracker) Record(hash, messageID string) error {
	m.add(hash, messageID)
	return nil
}

// add reports whether hash was new.
func (m *MemoryTracker) add(hash, messageID string) bool {
	if hash == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[hash]; ok {
		return false
	}
	m.seen[hash] = messageID
	return true
}

func (m *MemoryTracker) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{Extracted: len(m.seen)}
}

func (m *MemoryTracker) Close() error { return nil }

// FileTracker journals extracted message hashes as JSON lines. With persist
// off (dry runs) earlier journals are still honoured but nothing is written.
type FileTracker struct {
	*MemoryTracker
	path    string
	persist bool

	writeMu sync.Mutex
	file    *os.File
	writer  *bufio.Writer
}

type record struct {
	Hash        string    `json:"hash"`
	MessageID   string    `json:"message_id"`
	ExtractedAt time.Time `json:"extracted_at"`
}

func NewFileTracker(stateDir string, persist bool) (*FileTracker, error) {
	if strings.TrimSpace(stateDir) == "" {
		return nil, fmt.Errorf("state directory is empty")
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	t := &FileTracker{
		MemoryTracker: NewMemoryTracker(),
		path:          filepath.Join(stateDir, FileName),
		persist:       persist,
	}
	if err := t.load(); err != nil {
		return nil, err
	}

	if persist {
		file, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open state file for append: %w", err)
		}
		t.file = file
		t.writer = bufio.NewWriterSize(file, 64*1024)
	}
	return t, nil
}

// Path is the journal location.
func (t *FileTracker) Path() string {
	return t.path
}

func (t *FileTracker) load() error {
	file, err := os.Open(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("parse state line %d: %w", line, err)
		}
		t.add(rec.Hash, rec.MessageID)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read state file: %w", err)
	}
	return nil
}

func (t *FileTracker) Record(hash, messageID string) error {
	if !t.add(hash, messageID) || !t.persist {
		return nil
	}

	data, err := json.Marshal(record{Hash: hash, MessageID: messageID, ExtractedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode state record: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write state record: %w", err)
	}
	return nil
}

// Flush writes any buffered records to disk.
func (t *FileTracker) Flush() error {
	if t.writer == nil {
		return nil
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.writer.Flush(); err != nil {
		return fmt.Errorf("flush state file: %w", err)
	}
	return t.file.Sync()
}

// Close flushes and closes the journal.
func (t *FileTracker) Close() error {
	if t.file == nil {
		return nil
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	var firstErr error
	if err := t.writer.Flush(); err != nil {
		firstErr = fmt.Errorf("flush state file: %w", err)
	}
	if err := t.file.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close state file: %w", err)
	}
	t.file, t.writer = nil, nil
	return firstErr
}
