package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// wavHeader is a canonical 44-byte PCM WAV header
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// EncodeWAV wraps raw 16-bit PCM bytes in a WAV container. The transcription
// backend expects a container, not bare samples.
func EncodeWAV(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if channels <= 0 {
		channels = 1
	}

	const bitsPerSample = 16
	dataSize := uint32(len(pcm))

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(channels) * bitsPerSample / 8,
		BlockAlign:    uint16(channels) * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	if _, err := buf.Write(pcm); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	return buf.Bytes(), nil
}

// FileSource is the one-shot chunk source: it decodes a whole audio file
// into a single chunk. No continuous capture.
type FileSource struct {
	chunks chan Chunk
}

// NewFileSource decodes the audio file at path into a single-chunk source.
// WAV and MP3 are supported, selected by file extension.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var chunk Chunk
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		chunk, err = decodeMP3(f)
	default:
		chunk, err = decodeWAV(f, path)
	}
	if err != nil {
		return nil, err
	}

	fs := &FileSource{chunks: make(chan Chunk, 1)}
	fs.chunks <- chunk
	close(fs.chunks)
	return fs, nil
}

func decodeWAV(f *os.File, path string) (Chunk, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Chunk{}, fmt.Errorf("not a valid WAV file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Chunk{}, fmt.Errorf("decode WAV file: %w", err)
	}
	if buf.SourceBitDepth != 16 {
		return Chunk{}, fmt.Errorf("unsupported bit depth %d, want 16", buf.SourceBitDepth)
	}

	return Chunk{
		Seq:         0,
		Samples:     intBufferToPCM(buf),
		SampleRate:  buf.Format.SampleRate,
		SampleWidth: 2,
		Channels:    buf.Format.NumChannels,
	}, nil
}

// decodeMP3 decodes an MP3 stream. go-mp3 always emits interleaved 16-bit
// stereo; the engine works in mono, so the channels are averaged down.
func decodeMP3(f *os.File) (Chunk, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return Chunk{}, fmt.Errorf("decode MP3 file: %w", err)
	}

	data, err := io.ReadAll(dec)
	if err != nil {
		return Chunk{}, fmt.Errorf("read MP3 stream: %w", err)
	}

	mono := DownmixStereo(BytesToSamples(data))
	if len(mono) == 0 {
		return Chunk{}, fmt.Errorf("MP3 file contains no audio")
	}

	return Chunk{
		Seq:         0,
		Samples:     SamplesToBytes(mono),
		SampleRate:  dec.SampleRate(),
		SampleWidth: 2,
		Channels:    1,
	}, nil
}

// intBufferToPCM converts a decoded buffer to little-endian 16-bit PCM bytes
func intBufferToPCM(buf *gaudio.IntBuffer) []byte {
	samples := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = int16(s)
	}
	return SamplesToBytes(samples)
}

// Chunks returns the single decoded chunk and then closes
func (fs *FileSource) Chunks() <-chan Chunk {
	return fs.chunks
}

// Err always returns nil; decode failures are reported by NewFileSource
func (fs *FileSource) Err() error {
	return nil
}

// Stop is a no-op; the source is finite
func (fs *FileSource) Stop() {}
