package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrMalformedInput  = errors.New("malformed base64 input")
	ErrInvalidChannels = errors.New("channel count must be positive")
)

// Buffer holds de-interleaved samples normalized to [-1.0, 1.0).
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

// Frames returns the number of samples per channel.
func (b *Buffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// DecodeBase64 decodes standard (padded) base64 into raw bytes.
func DecodeBase64(text string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return data, nil
}

// DecodeAudioData interprets data as interleaved signed 16-bit little-endian
// samples. A trailing partial frame is dropped.
func DecodeAudioData(data []byte, sampleRate, channelCount int) (*Buffer, error) {
	if channelCount <= 0 {
		return nil, ErrInvalidChannels
	}

	frames := (len(data) / 2) / channelCount
	buf := &Buffer{
		SampleRate: sampleRate,
		Channels:   make([][]float32, channelCount),
	}
	for ch := range buf.Channels {
		buf.Channels[ch] = make([]float32, frames)
	}

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channelCount; ch++ {
			off := (i*channelCount + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(data[off : off+2]))
			buf.Channels[ch][i] = float32(sample) / 32768.0
		}
	}
	return buf, nil
}

// EncodeWAV writes buf as a 16-bit PCM RIFF/WAVE stream. Samples produced by
// DecodeAudioData round-trip exactly.
func EncodeWAV(w io.Writer, buf *Buffer) error {
	channels := len(buf.Channels)
	if channels == 0 {
		return ErrInvalidChannels
	}
	frames := buf.Frames()
	dataSize := frames * channels * 2
	byteRate := buf.SampleRate * channels * 2

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(buf.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(channels*2))
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write wav header: %w", err)
	}

	body := make([]byte, dataSize)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 2
			binary.LittleEndian.PutUint16(body[off:off+2], uint16(toInt16(buf.Channels[ch][i])))
		}
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write wav samples: %w", err)
	}
	return nil
}

func toInt16(v float32) int16 {
	scaled := float64(v) * 32768.0
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return int16(scaled)
}
