package fonts

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/andybalholm/brotli"
	"golang.org/x/image/font/sfnt"
)

const (
	woff2Signature   = 0x774F4632 // "wOF2"
	woff2HeaderSize  = 48
	sfntHeaderSize   = 12
	sfntRecordSize   = 16
	arbitraryTagFlag = 0x3F
	// nullTransformGlyf marks glyf and loca as stored untransformed.
	nullTransformGlyf = 3 << 6
	// headLosslessFlag is head.flags bit 11: the font data went through
	// a lossless transformation.
	headLosslessFlag = 1 << 11
)

// knownTags is the WOFF2 known-table list; a table's index here is stored
// in the flags byte instead of its tag.
var knownTags = [...]string{
	"cmap", "head", "hhea", "hmtx", "maxp", "name", "OS/2", "post",
	"cvt ", "fpgm", "glyf", "loca", "prep", "CFF ", "VORG", "EBDT",
	"EBLC", "gasp", "hdmx", "kern", "LTSH", "PCLT", "VDMX", "vhea",
	"vmtx", "BASE", "GDEF", "GPOS", "GSUB", "EBSC", "JSTF", "MATH",
	"CBDT", "CBLC", "COLR", "CPAL", "SVG ", "sbix", "acnt", "avar",
	"bdat", "bloc", "bsln", "cvar", "fdsc", "feat", "fmtx", "fvar",
	"gvar", "hsty", "just", "lcar", "mort", "morx", "opbd", "prop",
	"trak", "Zapf", "Silf", "Glat", "Gloc", "Feat", "Sill",
}

var knownTagIndex = func() map[string]byte {
	m := make(map[string]byte, len(knownTags))
	for i, t := range knownTags {
		m[t] = byte(i)
	}
	return m
}()

type sfntTable struct {
	tag  string
	data []byte
}

// readTables splits a TrueType/OpenType file into its tables, sorted by tag.
func readTables(font []byte) (flavor uint32, tables []sfntTable, err error) {
	if len(font) < sfntHeaderSize {
		return 0, nil, errors.New("font is too short")
	}
	flavor = binary.BigEndian.Uint32(font)
	if flavor == 0x74746366 { // "ttcf"
		return 0, nil, errors.New("font collections are not supported")
	}
	n := int(binary.BigEndian.Uint16(font[4:]))
	if len(font) < sfntHeaderSize+n*sfntRecordSize {
		return 0, nil, errors.New("truncated table directory")
	}

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		rec := font[sfntHeaderSize+i*sfntRecordSize:]
		tag := string(rec[:4])
		offset := binary.BigEndian.Uint32(rec[8:])
		length := binary.BigEndian.Uint32(rec[12:])
		if uint64(offset)+uint64(length) > uint64(len(font)) {
			return 0, nil, fmt.Errorf("table %q extends past end of file", tag)
		}
		if seen[tag] {
			return 0, nil, fmt.Errorf("duplicate table %q", tag)
		}
		seen[tag] = true
		tables = append(tables, sfntTable{tag: tag, data: font[offset : offset+length]})
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].tag < tables[j].tag })
	return flavor, tables, nil
}

// prepareTables drops the DSIG table, which no longer matches the font once
// it is re-encoded, and marks head as losslessly transformed with a zeroed
// checkSumAdjustment. The input slices are not modified.
func prepareTables(tables []sfntTable) ([]sfntTable, error) {
	out := make([]sfntTable, 0, len(tables))
	for _, t := range tables {
		switch t.tag {
		case "DSIG":
			continue
		case "head":
			if len(t.data) < 18 {
				return nil, errors.New("head table is too short")
			}
			head := append([]byte(nil), t.data...)
			binary.BigEndian.PutUint32(head[8:], 0)
			flags := binary.BigEndian.Uint16(head[16:])
			binary.BigEndian.PutUint16(head[16:], flags|headLosslessFlag)
			t.data = head
		}
		out = append(out, t)
	}
	return out, nil
}

// appendUintBase128 appends v in the WOFF2 variable-length encoding.
func appendUintBase128(b []byte, v uint32) []byte {
	var tmp [5]byte
	i := len(tmp) - 1
	tmp[i] = byte(v & 0x7F)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		tmp[i] = byte(v&0x7F) | 0x80
	}
	return append(b, tmp[i:]...)
}

func pad4(n int) int {
	return (n + 3) &^ 3
}

// EncodeWOFF2 validates a TrueType/OpenType font and wraps it as WOFF2.
// Every table is stored with the null transform and all table data is
// compressed as a single brotli stream. A DSIG table is dropped.
func EncodeWOFF2(font []byte) ([]byte, error) {
	if _, err := sfnt.Parse(font); err != nil {
		return nil, fmt.Errorf("invalid font: %w", err)
	}
	flavor, tables, err := readTables(font)
	if err != nil {
		return nil, fmt.Errorf("invalid font: %w", err)
	}
	if tables, err = prepareTables(tables); err != nil {
		return nil, fmt.Errorf("invalid font: %w", err)
	}

	var dir []byte
	var stream bytes.Buffer
	totalSfntSize := sfntHeaderSize + sfntRecordSize*len(tables)
	for _, t := range tables {
		idx, known := knownTagIndex[t.tag]
		flags := byte(arbitraryTagFlag)
		if known {
			flags = idx
		}
		if t.tag == "glyf" || t.tag == "loca" {
			flags |= nullTransformGlyf
		}
		dir = append(dir, flags)
		if !known {
			dir = append(dir, t.tag...)
		}
		dir = appendUintBase128(dir, uint32(len(t.data)))

		stream.Write(t.data)
		totalSfntSize += pad4(len(t.data))
	}

	var compressed bytes.Buffer
	w := brotli.NewWriterLevel(&compressed, brotli.BestCompression)
	if _, err := w.Write(stream.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to compress font tables: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress font tables: %w", err)
	}

	total := pad4(woff2HeaderSize + len(dir) + compressed.Len())
	out := make([]byte, woff2HeaderSize, total)
	binary.BigEndian.PutUint32(out[0:], woff2Signature)
	binary.BigEndian.PutUint32(out[4:], flavor)
	binary.BigEndian.PutUint32(out[8:], uint32(total))
	binary.BigEndian.PutUint16(out[12:], uint16(len(tables)))
	// out[14:16] reserved.
	binary.BigEndian.PutUint32(out[16:], uint32(totalSfntSize))
	binary.BigEndian.PutUint32(out[20:], uint32(compressed.Len()))
	binary.BigEndian.PutUint16(out[24:], 1) // majorVersion
	// minorVersion, metadata and private block fields stay zero.

	out = append(out, dir...)
	out = append(out, compressed.Bytes()...)
	for len(out) < total {
		out = append(out, 0)
	}
	return out, nil
}
