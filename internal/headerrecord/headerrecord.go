// Package headerrecord decodes single lines of the shard header format: ten
// comma-separated fields, seven opaque strings followed by three
// non-negative integers. Fewer or more than ten fields is not an error in
// itself — it is the canonical signal that the writer flushed mid-record,
// the torn-write condition the whole tailer subsystem exists to tolerate.
package headerrecord

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const fieldCount = 10

// ErrTorn signals that a line did not split into exactly ten fields. It is
// not a failure: the writer is still mid-append and the caller should
// retry on the next poll, never advancing past the line.
var ErrTorn = errors.New("headerrecord: torn line")

// Record is one fully parsed header entry.
type Record struct {
	Fields        [7]string // f0..f6, opaque domain metadata unused by the tailer
	InputSize     uint64
	OutputSize    uint64
	PayloadOffset uint64
}

// End returns the byte offset immediately past this record's payload
// region: payloadOffset + inputSize + outputSize.
func (r Record) End() uint64 {
	return r.PayloadOffset + r.InputSize + r.OutputSize
}

// Parse splits a single line (without its terminating newline) into a
// Record. Empty fields between adjacent commas are preserved as valid
// empty strings.
//
// Returns ErrTorn when the line does not split into exactly ten fields.
// Any other error means the field count matched but fields 8, 9, or 10
// were not non-negative integers — that is data corruption, not a torn
// write, and callers must treat it as fatal.
func Parse(line string) (Record, error) {
	fields := strings.Split(line, ",")
	if len(fields) != fieldCount {
		return Record{}, ErrTorn
	}

	inputSize, err := parseNonNegative(fields[7])
	if err != nil {
		return Record{}, fmt.Errorf("headerrecord: inputSize: %w", err)
	}
	outputSize, err := parseNonNegative(fields[8])
	if err != nil {
		return Record{}, fmt.Errorf("headerrecord: outputSize: %w", err)
	}
	payloadOffset, err := parseNonNegative(fields[9])
	if err != nil {
		return Record{}, fmt.Errorf("headerrecord: payloadOffset: %w", err)
	}

	var rec Record
	copy(rec.Fields[:], fields[:7])
	rec.InputSize = inputSize
	rec.OutputSize = outputSize
	rec.PayloadOffset = payloadOffset
	return rec, nil
}

func parseNonNegative(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}
