package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SchemaVersion of journal records.
const SchemaVersion = 1

// Record is one encrypted journal line.
type Record struct {
	SchemaVersion int                    `json:"schema_version"`
	EntryID       string                 `json:"entry_id"`
	Timestamp     string                 `json:"timestamp"`
	Ciphertext    string                 `json:"ciphertext"`
	Nonce         string                 `json:"nonce"`
	KeyLabel      string                 `json:"key_label"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// PlainRecord is the human-readable mirror, kept local and out of git.
type PlainRecord struct {
	SchemaVersion int                    `json:"schema_version"`
	EntryID       string                 `json:"entry_id"`
	Timestamp     string                 `json:"timestamp"`
	Text          string                 `json:"text"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// appendLine marshals v and appends it as one jsonl line, creating parent
// directories as needed.
func appendLine(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}

	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// LineCount returns the number of records in a journal file; a missing file
// counts as zero.
func LineCount(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
