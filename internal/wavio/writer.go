package wavio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// RewriteInfo rewrites the LIST-INFO chunk of a WAV file with the given
// tags, preserving every other chunk byte for byte. The new content is
// written to a temporary file in the same directory and atomically renamed
// over the original, so a failure never corrupts the audio data.
func RewriteInfo(path string, tags []InfoTag) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer src.Close()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if err := rewriteChunks(src, tmp, tags); err != nil {
		cleanup()
		return err
	}

	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	return nil
}

// rewriteChunks copies the RIFF structure from src to dst, replacing the
// LIST-INFO chunk (or appending one when absent) and fixing up the RIFF size
// afterwards.
func rewriteChunks(src *os.File, dst *os.File, tags []InfoTag) error {
	var riffHeader [12]byte
	if _, err := io.ReadFull(src, riffHeader[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrNotRIFF, err)
	}
	if string(riffHeader[:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		return ErrNotRIFF
	}

	// The RIFF size is patched once the real total is known
	if _, err := dst.Write(riffHeader[:]); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	written := int64(12)

	infoChunk := encodeListInfo(tags)
	infoWritten := false

	var header [8]byte
	for {
		_, err := io.ReadFull(src, header[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: short chunk header", ErrTruncated)
		}

		chunkID := string(header[:4])
		chunkSize := int64(binary.LittleEndian.Uint32(header[4:8]))
		payloadSize := chunkSize
		if chunkSize%2 == 1 {
			payloadSize++ // Padding byte travels with the chunk
		}

		if chunkID == "LIST" {
			var listType [4]byte
			if _, err := io.ReadFull(src, listType[:]); err != nil {
				return fmt.Errorf("%w: short LIST chunk", ErrTruncated)
			}
			if string(listType[:]) == "INFO" {
				// Replace in place, drop the original payload
				if _, err := io.CopyN(io.Discard, src, payloadSize-4); err != nil {
					return fmt.Errorf("%w: short LIST-INFO chunk", ErrTruncated)
				}
				if _, err := dst.Write(infoChunk); err != nil {
					return fmt.Errorf("writing LIST-INFO chunk: %w", err)
				}
				written += int64(len(infoChunk))
				infoWritten = true
				continue
			}
			// Not INFO: copy the LIST header and list type verbatim
			if _, err := dst.Write(header[:]); err != nil {
				return fmt.Errorf("writing chunk header: %w", err)
			}
			if _, err := dst.Write(listType[:]); err != nil {
				return fmt.Errorf("writing list type: %w", err)
			}
			if _, err := io.CopyN(dst, src, payloadSize-4); err != nil {
				return fmt.Errorf("%w: short %s chunk", ErrTruncated, chunkID)
			}
			written += 8 + payloadSize
			continue
		}

		if _, err := dst.Write(header[:]); err != nil {
			return fmt.Errorf("writing chunk header: %w", err)
		}
		if _, err := io.CopyN(dst, src, payloadSize); err != nil {
			return fmt.Errorf("%w: short %s chunk", ErrTruncated, chunkID)
		}
		written += 8 + payloadSize
	}

	if !infoWritten {
		if _, err := dst.Write(infoChunk); err != nil {
			return fmt.Errorf("writing LIST-INFO chunk: %w", err)
		}
		written += int64(len(infoChunk))
	}

	// Patch the RIFF size now that the layout is final
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(written-8))
	if _, err := dst.WriteAt(sizeBuf[:], 4); err != nil {
		return fmt.Errorf("patching RIFF size: %w", err)
	}

	return nil
}
