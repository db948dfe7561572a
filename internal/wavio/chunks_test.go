package wavio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListInfo(t *testing.T) {
	var data []byte
	data = append(data, []byte("INAM")...)
	data = binary.LittleEndian.AppendUint32(data, 6)
	data = append(data, []byte("Lake\x00\x00")...)
	data = append(data, []byte("ICMT")...)
	data = binary.LittleEndian.AppendUint32(data, 5)
	data = append(data, []byte("birds")...)
	data = append(data, 0) // Padding for odd-sized subchunk

	tags := parseListInfo(data)
	require.Len(t, tags, 2)
	assert.Equal(t, InfoTag{ID: "INAM", Value: "Lake"}, tags[0])
	assert.Equal(t, InfoTag{ID: "ICMT", Value: "birds"}, tags[1])
}

func TestParseListInfoTruncatedSubchunk(t *testing.T) {
	var data []byte
	data = append(data, []byte("INAM")...)
	data = binary.LittleEndian.AppendUint32(data, 100)
	data = append(data, []byte("short")...)

	assert.Empty(t, parseListInfo(data))
}

func TestEncodeListInfoRoundTrip(t *testing.T) {
	tags := []InfoTag{
		{ID: "INAM", Value: "Morning walk"},
		{ID: "IART", Value: "Recorder"},
		{ID: "XXXX", Value: "foreign value"},
	}

	chunk := encodeListInfo(tags)
	require.Equal(t, "LIST", string(chunk[:4]))
	require.Equal(t, "INFO", string(chunk[8:12]))

	declared := binary.LittleEndian.Uint32(chunk[4:8])
	assert.Equal(t, int(declared), len(chunk)-8)

	parsed := parseListInfo(chunk[12:])
	assert.Equal(t, tags, parsed)
}

func TestEncodeListInfoDeclaresUnpaddedSize(t *testing.T) {
	chunk := encodeListInfo([]InfoTag{
		{ID: "INAM", Value: "Lake"},
		{ID: "ICMT", Value: "birds"},
	})

	// Subchunks start after the LIST header and INFO list type
	body := chunk[12:]

	require.Equal(t, "INAM", string(body[:4]))
	size := binary.LittleEndian.Uint32(body[4:8])
	assert.Equal(t, uint32(5), size, "size covers \"Lake\\x00\" without the pad byte")
	assert.Equal(t, byte(0), body[8+5], "pad byte follows the declared value")

	// The next subchunk begins past the pad, on the even boundary
	next := 8 + 5 + 1
	require.Equal(t, "ICMT", string(body[next:next+4]))
	size = binary.LittleEndian.Uint32(body[next+4 : next+8])
	assert.Equal(t, uint32(6), size, "even-length value takes no pad byte")
}

func TestParseCueChunkSkipsZeroOffsets(t *testing.T) {
	var data []byte
	data = binary.LittleEndian.AppendUint32(data, 2)
	// Cue 1 at sample 4410
	for _, v := range []uint32{1, 0, 0x61746164, 0, 0, 4410} {
		data = binary.LittleEndian.AppendUint32(data, v)
	}
	// Cue 2 with placeholder offset zero
	for _, v := range []uint32{2, 1, 0x61746164, 0, 0, 0} {
		data = binary.LittleEndian.AppendUint32(data, v)
	}

	cues := parseCueChunk(data)
	require.Len(t, cues, 1)
	assert.Equal(t, uint32(1), cues[0].ID)
	assert.Equal(t, uint32(4410), cues[0].SampleOffset)
}

func TestParseCueChunkShortRecords(t *testing.T) {
	var data []byte
	data = binary.LittleEndian.AppendUint32(data, 5) // Claims five, holds one
	for _, v := range []uint32{7, 0, 0x61746164, 0, 0, 100} {
		data = binary.LittleEndian.AppendUint32(data, v)
	}

	cues := parseCueChunk(data)
	require.Len(t, cues, 1)
	assert.Equal(t, uint32(7), cues[0].ID)
}

func TestParseAdtlLabels(t *testing.T) {
	var data []byte
	data = append(data, []byte("labl")...)
	data = binary.LittleEndian.AppendUint32(data, 10)
	data = binary.LittleEndian.AppendUint32(data, 3)
	data = append(data, []byte("owl\x00\x00\x00")...)

	labels := parseAdtlLabels(data)
	assert.Equal(t, map[uint32]string{3: "owl"}, labels)
}

func TestPadToEven(t *testing.T) {
	assert.Len(t, padToEven([]byte{1}), 2)
	assert.Len(t, padToEven([]byte{1, 2}), 2)
	assert.Empty(t, padToEven(nil))
}
