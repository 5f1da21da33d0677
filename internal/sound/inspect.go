// Package sound inspects the audio track attached to a scene.
package sound

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
)

var ErrUnsupportedFormat = errors.New("unsupported sound format")

type Info struct {
	Path       string
	Format     string
	SampleRate int
	Channels   int
	Duration   time.Duration
}

func (info Info) String() string {
	return fmt.Sprintf("%s: %s, %d Hz, %d channel(s), %s", filepath.Base(info.Path), info.Format, info.SampleRate, info.Channels, info.Duration.Round(time.Millisecond))
}

type decoder func(io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

var decoders = map[string]decoder{
	".wav": func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(rc)
	},
	".mp3": mp3.Decode,
	".ogg": vorbis.Decode,
	".oga": vorbis.Decode,
}

// Inspect decodes the header of the sound file at path to check that the
// engine will be able to play it and to report its length.
func Inspect(path string) (Info, error) {
	extension := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[extension]
	if !ok {
		return Info{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, extension)
	}

	file, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}

	streamer, format, err := decode(file)
	if err != nil {
		file.Close()
		return Info{}, fmt.Errorf("decode %s: %w", path, err)
	}
	defer streamer.Close()

	return Info{
		Path:       path,
		Format:     strings.TrimPrefix(extension, "."),
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
		Duration:   format.SampleRate.D(streamer.Len()),
	}, nil
}
