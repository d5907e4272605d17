package core

import "bytes"

// LocOffsets is a (begin, end) pair of byte offsets into a file's source text.
type LocOffsets struct {
	Begin uint32
	End   uint32
}

// Loc pairs a LocOffsets with the file it indexes into.
type Loc struct {
	File    FileRef
	Offsets LocOffsets
}

// NoLoc is the sentinel location: it compares unequal to any real Loc.
var NoLoc = Loc{File: FileRef{index: noFileIndex}, Offsets: LocOffsets{}}

// IsNone reports whether l is the sentinel NoLoc.
func (l Loc) IsNone() bool { return l.File.index == noFileIndex }

// Exists is the logical negation of IsNone, matching the idiom used by the
// rest of the pipeline ("does this node have a real source location").
func (l Loc) Exists() bool { return !l.IsNone() }

// LineCol is a 1-based line and 0-based column, the form diagnostics render.
type LineCol struct {
	Line   int
	Column int
}

// LineIndex precomputes line-start byte offsets for a file so Loc offsets can
// be converted to (line, column) without rescanning the source.
//
// Grounded on the teacher's internal/core/line_scanner.go zero-allocation
// scanner: the scan loop here is the same single pass over the byte slice,
// but instead of yielding each line's bytes to a caller it records only the
// cumulative start offsets, which is all a Loc->LineCol conversion needs.
type LineIndex struct {
	lineStarts []uint32 // lineStarts[i] is the byte offset where line i+1 begins
	length     uint32
}

// NewLineIndex scans content once and builds its LineIndex.
func NewLineIndex(content []byte) *LineIndex {
	idx := &LineIndex{lineStarts: []uint32{0}, length: uint32(len(content))}
	pos := 0
	for {
		nl := bytes.IndexByte(content[pos:], '\n')
		if nl < 0 {
			break
		}
		pos += nl + 1
		idx.lineStarts = append(idx.lineStarts, uint32(pos))
	}
	return idx
}

// LineCol converts a byte offset to a 1-based line and 0-based column.
func (li *LineIndex) LineCol(offset uint32) LineCol {
	if offset > li.length {
		offset = li.length
	}
	// binary search for the last lineStart <= offset
	lo, hi := 0, len(li.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return LineCol{Line: lo + 1, Column: int(offset - li.lineStarts[lo])}
}

// LineCount returns the number of lines recorded.
func (li *LineIndex) LineCount() int { return len(li.lineStarts) }

// Offset converts a 1-based line and 0-based column back to a byte offset,
// the inverse of LineCol. An out-of-range line clamps to the file's last
// line; an out-of-range column clamps to the next line's start (or the
// file's length on the last line).
func (li *LineIndex) Offset(line, column int) uint32 {
	if line < 1 {
		line = 1
	}
	if line > len(li.lineStarts) {
		line = len(li.lineStarts)
	}
	start := li.lineStarts[line-1]
	end := li.length
	if line < len(li.lineStarts) {
		end = li.lineStarts[line]
	}
	offset := start + uint32(column)
	if offset > end {
		offset = end
	}
	return offset
}
