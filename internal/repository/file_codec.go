package repository

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	apperrors "msgcounter/pkg/errors"
)

// ErrSnapshotNotFound is returned when a snapshot file does not exist
var ErrSnapshotNotFound = errors.New("snapshot not found")

const (
	lineSeparator = ": "

	// maxLineErrorText bounds how much of a bad line is kept for logging
	maxLineErrorText = 80
)

// LineError describes a line-backup record that could not be parsed
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

// LoadCounts parses a JSON object of user ID to count. An absent file returns
// an empty map wrapping ErrSnapshotNotFound; a corrupt file returns an empty
// map and a persistence error.
func LoadCounts(path string) (map[string]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]int64{}, fmt.Errorf("%s: %w", path, ErrSnapshotNotFound)
		}
		return map[string]int64{}, apperrors.NewPersistenceError("failed to read "+path, err)
	}

	counts := make(map[string]int64)
	if err := json.Unmarshal(data, &counts); err != nil {
		return map[string]int64{}, apperrors.NewPersistenceError("failed to parse "+path, err)
	}

	for id, count := range counts {
		if count < 0 {
			return map[string]int64{}, apperrors.NewPersistenceError(
				"failed to parse "+path, fmt.Errorf("negative count %d for %q", count, id))
		}
	}

	return counts, nil
}

// SaveStructured writes counts as a pretty-printed JSON object
func SaveStructured(counts map[string]int64, path string) error {
	if counts == nil {
		counts = map[string]int64{}
	}

	data, err := json.MarshalIndent(counts, "", "    ")
	if err != nil {
		return apperrors.NewPersistenceError("failed to encode "+path, err)
	}
	data = append(data, '\n')

	return writeFileAtomic(path, data)
}

// SaveLineBackup writes one "<id>: <count>" record per line, ordered by ID
func SaveLineBackup(counts map[string]int64, path string) error {
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var buf bytes.Buffer
	for _, id := range ids {
		fmt.Fprintf(&buf, "%s%s%d\n", id, lineSeparator, counts[id])
	}

	return writeFileAtomic(path, buf.Bytes())
}

// LoadLineBackup parses "<id>: <count>" records. Malformed lines are skipped
// and returned as LineErrors; blank lines are ignored.
func LoadLineBackup(path string) (map[string]int64, []LineError, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]int64{}, nil, fmt.Errorf("%s: %w", path, ErrSnapshotNotFound)
		}
		return map[string]int64{}, nil, apperrors.NewPersistenceError("failed to open "+path, err)
	}
	defer f.Close()

	return parseLineBackup(f, path)
}

// parseLineBackup reads records until EOF. Lines of any length are accepted,
// so one oversized line is skipped like any other malformed record. A read
// error returns the records parsed so far alongside the error.
func parseLineBackup(r io.Reader, path string) (map[string]int64, []LineError, error) {
	counts := make(map[string]int64)
	var skipped []LineError

	br := bufio.NewReader(r)
	lineNo := 0
	for {
		raw, readErr := br.ReadString('\n')
		if raw != "" {
			lineNo++
			if text := strings.TrimSpace(raw); text != "" {
				id, count, err := parseLine(text)
				if err != nil {
					skipped = append(skipped, LineError{Line: lineNo, Text: truncateText(text), Err: err})
				} else {
					counts[id] = count
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return counts, skipped, nil
			}
			return counts, skipped, apperrors.NewPersistenceError(
				fmt.Sprintf("failed to read %s after line %d", path, lineNo), readErr)
		}
	}
}

func truncateText(text string) string {
	if len(text) <= maxLineErrorText {
		return text
	}
	cut := maxLineErrorText
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "…"
}

func parseLine(text string) (string, int64, error) {
	id, countStr, ok := strings.Cut(text, lineSeparator)
	if !ok {
		return "", 0, errors.New("missing separator")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return "", 0, errors.New("empty user id")
	}

	count, err := strconv.ParseInt(strings.TrimSpace(countStr), 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid count: %w", err)
	}
	if count < 0 {
		return "", 0, fmt.Errorf("negative count %d", count)
	}

	return id, count, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return apperrors.NewPersistenceError("failed to create temp file for "+path, err)
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return apperrors.NewPersistenceError("failed to write "+path, err)
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return apperrors.NewPersistenceError("failed to write "+path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return apperrors.NewPersistenceError("failed to replace "+path, err)
	}

	return nil
}
