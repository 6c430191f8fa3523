// Package audioconv turns audio files into 16 kHz mono float32 PCM for
// transcription and writes PCM back out as WAV.
package audioconv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

const SampleRate = 16000

var ErrUnsupported = errors.New("unsupported audio format")

type Options struct {
	// MaxSamples truncates the output; 0 keeps everything.
	MaxSamples int
}

// Extensions lists the file types Decode understands.
var Extensions = []string{".wav", ".mp3", ".ogg", ".oga", ".opus"}

func DecodeFile(path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f, filepath.Ext(path), opt)
}

// Decode picks a decoder by extension, falling back to sniffing the header.
func Decode(r io.ReadSeeker, ext string, opt Options) ([]float32, error) {
	var (
		pcm []float32
		err error
	)

	switch strings.ToLower(ext) {
	case ".wav":
		pcm, err = decodeWAV(r)
	case ".mp3":
		pcm, err = decodeMP3(r)
	case ".ogg", ".oga", ".opus":
		pcm, err = decodeOgg(r)
	default:
		magic, _ := bufio.NewReader(r).Peek(4)
		if _, serr := r.Seek(0, io.SeekStart); serr != nil {
			return nil, serr
		}
		switch string(magic) {
		case "RIFF":
			pcm, err = decodeWAV(r)
		case "OggS":
			pcm, err = decodeOgg(r)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
		}
	}
	if err != nil {
		return nil, err
	}

	if opt.MaxSamples > 0 && len(pcm) > opt.MaxSamples {
		pcm = pcm[:opt.MaxSamples]
	}
	return pcm, nil
}

func decodeWAV(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	if pb == nil || len(pb.Data) == 0 {
		return nil, errors.New("empty wav")
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}

	ch, sr := 1, 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			sr = pb.Format.SampleRate
		}
	}

	return toMono16k(intsToFloat32(pb.Data, bd), ch, sr), nil
}

func decodeMP3(r io.Reader) ([]float32, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}

	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}

	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, err
	}

	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}

	// go-mp3 always yields interleaved stereo
	return toMono16k(int16sToFloat32(ints), 2, sr), nil
}

func decodeOgg(r io.ReadSeeker) ([]float32, error) {
	pcm, format, verr := oggvorbis.ReadAll(r)
	if verr == nil && format != nil && format.Channels > 0 && format.SampleRate > 0 {
		return toMono16k(pcm, format.Channels, format.SampleRate), nil
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	pcm, err := decodeOpus(r)
	if err != nil {
		return nil, fmt.Errorf("ogg: not vorbis (%v), not opus: %w", verr, err)
	}
	return pcm, nil
}
