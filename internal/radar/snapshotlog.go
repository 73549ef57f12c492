package radar

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Snapshot is one decoder update: the messages it refreshed and its
// freshness verdict. It is the line format of a snapshot log.
type Snapshot struct {
	Valid   bool
	Updated map[uint32]Signals
}

type snapshotJSON struct {
	Valid   bool               `json:"valid"`
	Updated map[string]Signals `json:"updated"`
}

// MarshalJSON writes message ids as hex strings.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{Valid: s.Valid, Updated: make(map[string]Signals, len(s.Updated))}
	for id, sig := range s.Updated {
		out.Updated[fmt.Sprintf("0x%X", id)] = sig
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts hex ("0x310") or decimal ("784") message ids.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var in snapshotJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Valid = in.Valid
	s.Updated = make(map[uint32]Signals, len(in.Updated))
	for key, sig := range in.Updated {
		id, err := strconv.ParseUint(strings.TrimSpace(key), 0, 32)
		if err != nil {
			return fmt.Errorf("invalid message id %q: %w", key, err)
		}
		s.Updated[uint32(id)] = sig
	}
	return nil
}

// Values keeps the latest signals per message id and implements Source.
type Values struct {
	latest map[uint32]Signals
	valid  bool
}

// NewValues returns an empty, valid Source.
func NewValues() *Values {
	return &Values{latest: make(map[uint32]Signals), valid: true}
}

// Apply merges a snapshot and returns the ids it refreshed, sorted.
func (v *Values) Apply(s Snapshot) []uint32 {
	v.valid = s.Valid
	set := make(map[uint32]struct{}, len(s.Updated))
	for id, sig := range s.Updated {
		v.latest[id] = sig
		set[id] = struct{}{}
	}
	return sortedIDs(set)
}

// Signals returns the latest signals for id.
func (v *Values) Signals(id uint32) (Signals, bool) {
	sig, ok := v.latest[id]
	return sig, ok
}

// CanValid reports the freshness verdict of the last snapshot.
func (v *Values) CanValid() bool {
	return v.valid
}

// SnapshotReader replays a JSON-lines snapshot log.
type SnapshotReader struct {
	scanner *bufio.Scanner
	values  *Values
	line    int
}

// NewSnapshotReader reads snapshots from r.
func NewSnapshotReader(r io.Reader) *SnapshotReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &SnapshotReader{scanner: sc, values: NewValues()}
}

// Source is the accumulated decoder state, valid for the ids returned by the
// latest Next.
func (sr *SnapshotReader) Source() Source {
	return sr.values
}

// Next applies the next snapshot and returns the refreshed ids. Blank lines
// are skipped. It returns io.EOF at the end of the log.
func (sr *SnapshotReader) Next() ([]uint32, error) {
	for sr.scanner.Scan() {
		sr.line++
		text := strings.TrimSpace(sr.scanner.Text())
		if text == "" {
			continue
		}
		var s Snapshot
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return nil, fmt.Errorf("snapshot line %d: %w", sr.line, err)
		}
		return sr.values.Apply(s), nil
	}
	if err := sr.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot log: %w", err)
	}
	return nil, io.EOF
}

// SnapshotWriter appends snapshots to a JSON-lines log.
type SnapshotWriter struct {
	enc *json.Encoder
}

// NewSnapshotWriter writes snapshots to w.
func NewSnapshotWriter(w io.Writer) *SnapshotWriter {
	return &SnapshotWriter{enc: json.NewEncoder(w)}
}

// Write appends one snapshot.
func (sw *SnapshotWriter) Write(s Snapshot) error {
	return sw.enc.Encode(s)
}
