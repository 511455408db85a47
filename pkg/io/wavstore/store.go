// Package wavstore writes raw 16-bit mono PCM into RIFF/WAVE files keyed by
// model and recording id.
package wavstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	numChannels = 1
	bitDepth    = 16
	pcmFormat   = 1

	DefaultURLPrefix = "/static/data"
)

var (
	ErrInvalidModel     = errors.New("model name is not usable as a file name")
	ErrInvalidFrameRate = errors.New("frame rate must be positive")
	ErrOddPayload       = errors.New("16-bit PCM payload must have an even number of bytes")
)

// Store keeps audio under Root and publishes it under URLPrefix.
type Store struct {
	Root      string
	URLPrefix string
}

func New(root, urlPrefix string) *Store {
	if urlPrefix == "" {
		urlPrefix = DefaultURLPrefix
	}
	return &Store{Root: root, URLPrefix: strings.TrimRight(urlPrefix, "/")}
}

// FileName is the shared key of the file path and the public URL. Ids are
// non-negative, so the last '-' always separates model from id and two
// distinct (model, id) pairs never map to the same name.
func FileName(model string, id int64) string {
	return fmt.Sprintf("%s-%d.wav", model, id)
}

// Locate returns the storage path and URL for a recording without writing.
func (s *Store) Locate(id int64, model string) (string, string) {
	name := FileName(model, id)
	return filepath.Join(s.Root, name), path.Join(s.URLPrefix, name)
}

// SaveWAV writes body verbatim as the sample data of a mono 16-bit file at
// frameRate. The path is returned even on failure so callers can report it.
// The file is written under a temporary name and renamed into place, so a
// crash never leaves a truncated file at the final path.
func (s *Store) SaveWAV(id int64, model string, body []byte, frameRate int) (string, string, error) {
	if model == "" || strings.ContainsAny(model, `/\`) || strings.HasPrefix(model, ".") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidModel, model)
	}
	if id < 0 {
		return "", "", fmt.Errorf("recording id must be non-negative, got %d", id)
	}

	filePath, url := s.Locate(id, model)
	if frameRate <= 0 {
		return filePath, url, fmt.Errorf("%w: %d", ErrInvalidFrameRate, frameRate)
	}
	if len(body)%2 != 0 {
		return filePath, url, fmt.Errorf("%w: got %d", ErrOddPayload, len(body))
	}

	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return filePath, url, fmt.Errorf("failed to create audio root: %w", err)
	}

	tmpPath := filePath + ".tmp"
	if err := writeWAV(tmpPath, body, frameRate); err != nil {
		_ = os.Remove(tmpPath)
		return filePath, url, err
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return filePath, url, fmt.Errorf("failed to move audio into place: %w", err)
	}
	return filePath, url, nil
}

// Remove deletes a stored file. A missing file is not an error.
func (s *Store) Remove(filePath string) error {
	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", filePath, err)
	}
	return nil
}

func writeWAV(filePath string, body []byte, frameRate int) (err error) {
	out, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	enc := wav.NewEncoder(out, frameRate, bitDepth, numChannels, pcmFormat)
	buf := &audio.IntBuffer{
		Data:           pcmToInts(body),
		Format:         &audio.Format{SampleRate: frameRate, NumChannels: numChannels},
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write to WAV encoder: %w", err)
	}
	// Close finalizes the RIFF and data chunk sizes
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	return out.Sync()
}

// pcmToInts reads little-endian signed 16-bit samples.
func pcmToInts(body []byte) []int {
	samples := make([]int, len(body)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(body[2*i:])))
	}
	return samples
}
