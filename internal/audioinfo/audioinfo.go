// Package audioinfo reads WAV headers for job metadata. It is best-effort:
// the transcription capability accepts formats this package cannot parse,
// so callers treat a probe failure as missing metadata, not as a fault.
package audioinfo

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// Info summarizes one audio file.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// Seconds returns the duration as floating-point seconds.
func (i Info) Seconds() float64 {
	return i.Duration.Seconds()
}

// Probe reads the WAV header of the file at path.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Info{}, fmt.Errorf("not a wav file: %s", path)
	}

	dur, err := dec.Duration()
	if err != nil {
		return Info{}, fmt.Errorf("read wav duration: %w", err)
	}

	return Info{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Duration:   dur,
	}, nil
}
