package kvstore

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
)

const (
	snapshotMagic   = "CKVS"
	snapshotVersion = uint32(1)
)

const (
	valKindStr byte = iota
	valKindInt
	valKindJSON
	valKindBytes
	valKindParquet
)

func kindByte(k ValueKind) byte {
	switch k {
	case KindStr:
		return valKindStr
	case KindInt:
		return valKindInt
	case KindJSON:
		return valKindJSON
	case KindBytes:
		return valKindBytes
	case KindParquet:
		return valKindParquet
	default:
		return valKindBytes
	}
}

func byteKind(b byte) ValueKind {
	switch b {
	case valKindStr:
		return KindStr
	case valKindInt:
		return KindInt
	case valKindJSON:
		return KindJSON
	case valKindParquet:
		return KindParquet
	default:
		return KindBytes
	}
}

func writeLenBytes(buf *bytes.Buffer, data []byte) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf.Write(lenBuf[:])
	buf.Write(data)
}

func readLenBytes(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

// writeSnapshot serializes every live entry to <dir>/snapshot.bin
// atomically (write-temp-then-rename, spec §4.6), externalizing
// ParquetDf values to parquet/<sanitized-key>.parquet beforehand.
func writeSnapshot(s *Store) error {
	now := time.Now()

	s.mu.RLock()
	type pair struct {
		key   string
		entry Entry
	}
	var live []pair
	for k, e := range s.entries {
		if e.expired(now) {
			continue
		}
		live = append(live, pair{k, *e})
	}
	s.mu.RUnlock()

	var buf bytes.Buffer
	buf.WriteString(snapshotMagic)
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], snapshotVersion)
	buf.Write(hdr[:])
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(live)))
	buf.Write(hdr[:])

	for _, p := range live {
		writeLenBytes(&buf, []byte(p.key))
		buf.WriteByte(kindByte(p.entry.Value.Kind))

		var ttlMs int64 = -1
		if p.entry.TTL != nil {
			ttlMs = p.entry.TTL.Milliseconds()
		}
		binary.Write(&buf, binary.LittleEndian, ttlMs)

		var remainingMs int64 = -1
		if p.entry.ExpiresAt != nil {
			remainingMs = int64(p.entry.ExpiresAt.Sub(now) / time.Millisecond)
		}
		binary.Write(&buf, binary.LittleEndian, remainingMs)

		if p.entry.ResetOnAccess {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}

		switch p.entry.Value.Kind {
		case KindStr:
			writeLenBytes(&buf, []byte(p.entry.Value.Str))
		case KindInt:
			binary.Write(&buf, binary.LittleEndian, p.entry.Value.Int)
		case KindJSON:
			writeLenBytes(&buf, p.entry.Value.JSON)
		case KindParquet:
			relPath, err := writeParquetBlob(s.Dir, p.key, p.entry.Value.Cols, p.entry.Value.Rows)
			if err != nil {
				return err
			}
			writeLenBytes(&buf, []byte(relPath))
		default:
			writeLenBytes(&buf, p.entry.Value.Bytes)
		}
	}

	tmp := filepath.Join(s.Dir, fmt.Sprintf("snapshot.%s.tmp", uuid.NewString()))
	final := filepath.Join(s.Dir, "snapshot.bin")
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("kvstore: write snapshot temp: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("kvstore: rename snapshot into place: %w", err)
	}
	return nil
}

// loadSnapshot restores entries from <dir>/snapshot.bin, if present.
// An entry's remaining_ms survives across the reload gap; if absent,
// it falls back to a fresh ttl-from-now (spec §4.6 Reload).
func loadSnapshot(s *Store) error {
	path := filepath.Join(s.Dir, "snapshot.bin")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("kvstore: read snapshot: %w", err)
	}

	r := bytes.NewReader(data)
	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != snapshotMagic {
		return fmt.Errorf("kvstore: bad snapshot magic in %s", path)
	}
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return fmt.Errorf("kvstore: read snapshot version: %w", err)
	}
	// version currently unused beyond presence; only v1 exists.
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return fmt.Errorf("kvstore: read snapshot count: %w", err)
	}
	count := binary.LittleEndian.Uint32(hdr[:])

	now := time.Now()
	entries := map[string]*Entry{}
	for i := uint32(0); i < count; i++ {
		keyBytes, err := readLenBytes(r)
		if err != nil {
			return fmt.Errorf("kvstore: read entry %d key: %w", i, err)
		}
		kindB, err := r.ReadByte()
		if err != nil {
			return err
		}
		var ttlMs, remainingMs int64
		if err := binary.Read(r, binary.LittleEndian, &ttlMs); err != nil {
			return err
		}
		if err := binary.Read(r, binary.LittleEndian, &remainingMs); err != nil {
			return err
		}
		resetByte, err := r.ReadByte()
		if err != nil {
			return err
		}

		e := &Entry{ResetOnAccess: resetByte == 1}
		if ttlMs >= 0 {
			d := time.Duration(ttlMs) * time.Millisecond
			e.TTL = &d
			if remainingMs >= 0 {
				exp := now.Add(time.Duration(remainingMs) * time.Millisecond)
				e.ExpiresAt = &exp
			} else {
				exp := now.Add(d)
				e.ExpiresAt = &exp
			}
		}

		kind := byteKind(kindB)
		e.Value.Kind = kind
		switch kind {
		case KindStr:
			b, err := readLenBytes(r)
			if err != nil {
				return err
			}
			e.Value.Str = string(b)
		case KindInt:
			if err := binary.Read(r, binary.LittleEndian, &e.Value.Int); err != nil {
				return err
			}
		case KindJSON:
			b, err := readLenBytes(r)
			if err != nil {
				return err
			}
			e.Value.JSON = json.RawMessage(b)
		case KindParquet:
			b, err := readLenBytes(r)
			if err != nil {
				return err
			}
			e.Value.RelPath = string(b)
			cols, rows, err := readParquetBlob(s.Dir, e.Value.RelPath)
			if err != nil {
				return err
			}
			e.Value.Cols, e.Value.Rows = cols, rows
		default:
			b, err := readLenBytes(r)
			if err != nil {
				return err
			}
			e.Value.Bytes = b
		}
		entries[string(keyBytes)] = e
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

var sanitizeKeyRe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func sanitizeKey(key string) string {
	return sanitizeKeyRe.ReplaceAllString(key, "_")
}

// startSnapshotLoop runs writeSnapshot every interval until stop is
// closed, the single background persistence thread spec §4.6
// describes.
func startSnapshotLoop(s *Store, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = writeSnapshot(s)
			case <-stop:
				return
			}
		}
	}()
}

func readSettingsFile(dir, name string) (Settings, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("kvstore: decode %s: %w", name, err)
	}
	return s, nil
}

func saveSettings(dir string, s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "store.json"), data, 0o644)
}
