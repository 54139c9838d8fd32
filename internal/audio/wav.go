package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// PCMInfo describes the sample layout of a WAV payload.
type PCMInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// EncodeWAV wraps little endian PCM samples into a canonical 44 byte header WAV file.
func EncodeWAV(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

// DecodeWAV walks the RIFF chunks and returns the PCM payload of the data chunk.
func DecodeWAV(data []byte) ([]byte, PCMInfo, error) {
	var info PCMInfo
	if DetectFormat(data) != FormatWAV {
		return nil, info, errors.New("not a RIFF/WAVE file")
	}

	var haveFormat bool
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		// espeak-ng streams with a placeholder size, clamp to what is there
		if end > len(data) || size < 0 {
			end = len(data)
		}

		switch id {
		case "fmt ":
			if end-body < 16 {
				return nil, info, errors.New("short fmt chunk")
			}
			if tag := binary.LittleEndian.Uint16(data[body:]); tag != 1 {
				return nil, info, fmt.Errorf("unsupported WAV encoding %d", tag)
			}
			info.Channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			info.SampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(data[body+14:]))
			haveFormat = true
		case "data":
			if !haveFormat {
				return nil, info, errors.New("data chunk before fmt chunk")
			}
			return data[body:end], info, nil
		}

		// chunks are word aligned
		pos = end + size%2
	}
	return nil, info, errors.New("no data chunk")
}
