package parser

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	localHeaderSignature = 0x04034b50
	localHeaderLen       = 30
	maxSalvagedPart      = 256 << 20

	methodStore   = 0
	methodDeflate = 8
	flagDataDesc  = 0x8
)

var errNoLocalHeaders = errors.New("no local file headers")

// salvageParts walks local file headers in order and recovers every part it
// can inflate. Entries that fail are skipped; the walk resumes at the next
// header signature.
func salvageParts(path string) (map[string][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return salvageBytes(data)
}

func salvageBytes(data []byte) (map[string][]byte, error) {
	sig := []byte{0x50, 0x4b, 0x03, 0x04}
	parts := make(map[string][]byte)
	var lastErr error

	pos := bytes.Index(data, sig)
	if pos < 0 {
		return nil, errNoLocalHeaders
	}
	for pos >= 0 && pos+localHeaderLen <= len(data) {
		next, name, body, err := readLocalEntry(data, pos)
		if err != nil {
			lastErr = err
		} else if name != "" && name[len(name)-1] != '/' {
			parts[normalizePartName(name)] = body
		}
		if next <= pos {
			next = pos + 4
		}
		rel := bytes.Index(data[next:], sig)
		if rel < 0 {
			break
		}
		pos = next + rel
	}
	if len(parts) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return parts, nil
}

// readLocalEntry decodes the entry at pos and returns the offset just past
// its data.
func readLocalEntry(data []byte, pos int) (int, string, []byte, error) {
	h := data[pos : pos+localHeaderLen]
	if binary.LittleEndian.Uint32(h[0:]) != localHeaderSignature {
		return pos, "", nil, fmt.Errorf("bad local header at %d", pos)
	}
	flags := binary.LittleEndian.Uint16(h[6:])
	method := binary.LittleEndian.Uint16(h[8:])
	csize := int(binary.LittleEndian.Uint32(h[18:]))
	nameLen := int(binary.LittleEndian.Uint16(h[26:]))
	extraLen := int(binary.LittleEndian.Uint16(h[28:]))

	start := pos + localHeaderLen + nameLen + extraLen
	if start > len(data) {
		return pos, "", nil, fmt.Errorf("truncated local header at %d", pos)
	}
	name := string(data[pos+localHeaderLen : pos+localHeaderLen+nameLen])
	knownSize := flags&flagDataDesc == 0 || csize > 0

	switch method {
	case methodStore:
		if !knownSize {
			return start, name, nil, fmt.Errorf("%s: stored entry without size", name)
		}
		end := start + csize
		if end > len(data) {
			return start, name, nil, fmt.Errorf("%s: truncated data", name)
		}
		return end, name, data[start:end], nil
	case methodDeflate:
		src := data[start:]
		if knownSize && csize <= len(src) {
			src = src[:csize]
		}
		br := bytes.NewReader(src)
		fr := flate.NewReader(br)
		defer fr.Close()
		body, err := io.ReadAll(io.LimitReader(fr, maxSalvagedPart))
		if err != nil {
			return start, name, nil, fmt.Errorf("%s: %w", name, err)
		}
		consumed := len(src) - br.Len()
		return start + consumed, name, body, nil
	default:
		return start, name, nil, fmt.Errorf("%s: unsupported compression method %d", name, method)
	}
}
