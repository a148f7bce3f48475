package audio

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WAVInfo describes the format of a parsed WAV file.
type WAVInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// WriteWAVHeader writes a 44-byte PCM WAV header for dataSize bytes of
// 16-bit audio. Callers that stream data of unknown length can seek back
// and rewrite the header once the final size is known.
func WriteWAVHeader(w io.Writer, sampleRate, channels, dataSize int) error {
	const bitsPerSample = 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	if _, err := w.Write([]byte("RIFF")); err != nil {
		return err
	}
	binary.Write(w, binary.LittleEndian, uint32(36+dataSize))
	w.Write([]byte("WAVE"))
	w.Write([]byte("fmt "))
	binary.Write(w, binary.LittleEndian, uint32(16))
	binary.Write(w, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(w, binary.LittleEndian, uint16(channels))
	binary.Write(w, binary.LittleEndian, uint32(sampleRate))
	binary.Write(w, binary.LittleEndian, uint32(byteRate))
	binary.Write(w, binary.LittleEndian, uint16(blockAlign))
	binary.Write(w, binary.LittleEndian, uint16(bitsPerSample))
	w.Write([]byte("data"))
	return binary.Write(w, binary.LittleEndian, uint32(dataSize))
}

// EncodeWAV writes a complete PCM16 WAV file.
func EncodeWAV(w io.Writer, pcm []byte, sampleRate, channels int) error {
	if err := WriteWAVHeader(w, sampleRate, channels, len(pcm)); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}

// DecodeWAV parses a PCM WAV stream and returns the raw sample data with
// its format. Chunks other than "fmt " and "data" are skipped, so files
// with LIST or fact chunks decode fine.
func DecodeWAV(r io.Reader) ([]byte, WAVInfo, error) {
	var info WAVInfo

	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, info, fmt.Errorf("read riff header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, info, fmt.Errorf("not a wav file")
	}

	var data []byte
	haveFmt := false
	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(r, chunkHeader); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, info, fmt.Errorf("read chunk header: %w", err)
		}
		chunkID := string(chunkHeader[0:4])
		chunkSize := int(binary.LittleEndian.Uint32(chunkHeader[4:8]))

		switch chunkID {
		case "fmt ":
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, info, fmt.Errorf("read fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return nil, info, fmt.Errorf("fmt chunk too short")
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			if format != 1 {
				return nil, info, fmt.Errorf("unsupported wav format %d, want PCM", format)
			}
			info.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			haveFmt = true
		case "data":
			data = make([]byte, chunkSize)
			n, err := io.ReadFull(r, data)
			if err != nil && err != io.ErrUnexpectedEOF {
				return nil, info, fmt.Errorf("read data chunk: %w", err)
			}
			data = data[:n]
		default:
			// Chunk sizes are padded to even byte counts.
			skip := int64(chunkSize)
			if chunkSize%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				break
			}
		}
	}

	if !haveFmt {
		return nil, info, fmt.Errorf("wav file missing fmt chunk")
	}
	if data == nil {
		return nil, info, fmt.Errorf("wav file missing data chunk")
	}
	if info.BitsPerSample != 16 {
		return nil, info, fmt.Errorf("unsupported bit depth %d, want 16", info.BitsPerSample)
	}
	if info.Channels < 1 {
		return nil, info, fmt.Errorf("invalid channel count %d", info.Channels)
	}
	return data, info, nil
}
