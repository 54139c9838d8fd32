package audio

import "bytes"

// Language selects which side of a sentence pair is spoken.
type Language string

const (
	Source Language = "source"
	Target Language = "target"
)

// Valid reports whether l is one of the known languages.
func (l Language) Valid() bool {
	return l == Source || l == Target
}

// Format is the container of an encoded clip.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
)

// MIMEType returns the content type used when serving the clip.
func (f Format) MIMEType() string {
	if f == FormatWAV {
		return "audio/wav"
	}
	return "audio/mpeg"
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Clip is one synthesized utterance. It lives only for the current playback step.
type Clip struct {
	ID       string
	Text     string
	Language Language
	Format   Format
	Data     []byte
}

// DetectFormat sniffs the container from the leading bytes.
// Anything that is not a RIFF/WAVE file is treated as mp3.
func DetectFormat(data []byte) Format {
	if len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")) {
		return FormatWAV
	}
	return FormatMP3
}
