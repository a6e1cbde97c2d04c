package decision

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/wardenhq/warden/internal/canon"
	"github.com/wardenhq/warden/internal/state"
)

// VerifyResult holds the outcome of a hash chain verification.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Entries   int    `json:"entries"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// Verify reads the decision log and validates the hash chain and the
// sequence order. Returns Valid=true if intact, or details about the
// first broken link.
func Verify(store state.Store) VerifyResult {
	raw, err := store.ReadLogRaw(LogName)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("read: %v", err)}
	}

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	var prevLine []byte
	var prevSeq int64

	for scanner.Scan() {
		lineNum++
		line := append([]byte(nil), scanner.Bytes()...)

		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return VerifyResult{Error: fmt.Sprintf("parse: %v", err), ErrorLine: lineNum}
		}

		if lineNum == 1 {
			if e.PrevHash != GenesisHash {
				return VerifyResult{
					Error:     fmt.Sprintf("first entry prev_hash is %q, expected genesis hash", e.PrevHash),
					ErrorLine: 1,
				}
			}
		} else {
			expected := canon.HashBytes(prevLine)
			if e.PrevHash != expected {
				return VerifyResult{
					Error:     fmt.Sprintf("hash mismatch: expected %s, got %s", expected, e.PrevHash),
					ErrorLine: lineNum,
				}
			}
		}

		if e.Seq != prevSeq+1 {
			return VerifyResult{
				Error:     fmt.Sprintf("sequence gap: expected %d, got %d", prevSeq+1, e.Seq),
				ErrorLine: lineNum,
			}
		}

		prevLine = line
		prevSeq = e.Seq
	}

	if err := scanner.Err(); err != nil {
		return VerifyResult{Error: fmt.Sprintf("scan: %v", err)}
	}
	return VerifyResult{Valid: true, Entries: lineNum}
}
