package wavio

import (
	"encoding/binary"
	"strings"
)

// InfoTag is one subchunk of a LIST-INFO chunk: a 4-character identifier and
// its string payload. Order is preserved so foreign tags round-trip in place.
type InfoTag struct {
	ID    string
	Value string
}

// CuePoint is one entry of a cue chunk. Only the fields the application uses
// are retained; the rest of the 24-byte record is reconstructed on write.
type CuePoint struct {
	ID           uint32
	SampleOffset uint32
	Label        string
}

// padToEven appends a padding byte when the payload length is odd. RIFF
// chunks must be aligned to even byte boundaries.
func padToEven(data []byte) []byte {
	if len(data)%2 == 1 {
		return append(data, 0)
	}
	return data
}

// parseListInfo decodes the subchunks of a LIST chunk whose list type is
// INFO. The leading 4-byte list type must already be stripped.
func parseListInfo(data []byte) []InfoTag {
	var tags []InfoTag
	pos := 0

	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		if pos+8+size > len(data) {
			break
		}
		value := strings.TrimRight(string(data[pos+8:pos+8+size]), "\x00")
		tags = append(tags, InfoTag{ID: id, Value: value})

		pos += 8 + size
		if size%2 == 1 {
			pos++
		}
	}

	return tags
}

// encodeListInfo builds a complete LIST chunk (including the 8-byte chunk
// header and the INFO list type) from ordered tags.
func encodeListInfo(tags []InfoTag) []byte {
	var body []byte
	body = append(body, []byte("INFO")...)

	for _, tag := range tags {
		// Declared size covers the NUL-terminated value only; the even
		// padding byte sits outside it
		value := append([]byte(tag.Value), 0)
		body = append(body, []byte(tag.ID)...)
		body = binary.LittleEndian.AppendUint32(body, uint32(len(value)))
		body = append(body, value...)
		if len(value)%2 == 1 {
			body = append(body, 0)
		}
	}

	chunk := make([]byte, 0, 8+len(body))
	chunk = append(chunk, []byte("LIST")...)
	chunk = binary.LittleEndian.AppendUint32(chunk, uint32(len(body)))
	chunk = append(chunk, padToEven(body)...)
	return chunk
}

// parseCueChunk decodes cue point records. Points with a zero sample offset
// are recorder placeholders and are skipped.
func parseCueChunk(data []byte) []CuePoint {
	if len(data) < 4 {
		return nil
	}

	count := int(binary.LittleEndian.Uint32(data[:4]))
	possible := (len(data) - 4) / 24
	if count > possible {
		count = possible
	}

	var cues []CuePoint
	for i := 0; i < count; i++ {
		off := 4 + i*24
		id := binary.LittleEndian.Uint32(data[off : off+4])
		sampleOffset := binary.LittleEndian.Uint32(data[off+20 : off+24])
		if sampleOffset == 0 {
			continue
		}
		cues = append(cues, CuePoint{ID: id, SampleOffset: sampleOffset})
	}

	return cues
}

// parseAdtlLabels decodes labl subchunks of a LIST-adtl chunk, keyed by cue
// point ID. The leading 4-byte list type must already be stripped.
func parseAdtlLabels(data []byte) map[uint32]string {
	labels := make(map[uint32]string)
	pos := 0

	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		if pos+8+size > len(data) {
			break
		}
		content := data[pos+8 : pos+8+size]

		if id == "labl" && len(content) >= 4 {
			cueID := binary.LittleEndian.Uint32(content[:4])
			text := strings.TrimRight(string(content[4:]), "\x00")
			labels[cueID] = text
		}

		pos += 8 + size
		if size%2 == 1 {
			pos++
		}
	}

	return labels
}

// parseBextDescription extracts the 256-byte description field of a BWF bext
// chunk. Everything else in the chunk is preserved verbatim but not surfaced.
func parseBextDescription(data []byte) string {
	if len(data) < 256 {
		return ""
	}
	return strings.TrimRight(string(data[:256]), "\x00")
}
