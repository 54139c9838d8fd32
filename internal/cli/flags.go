package cli

import "time"

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile  string
	Addr     string
	Workbook string
	Player   string
	StateDir string
	LogLevel string

	// Synthesis flags
	Provider  string
	Fallback  string
	Speed     float64
	RateLimit int
	Cache     bool
	CacheTTL  time.Duration

	// Voices
	EdgeSourceVoice   string
	EdgeTargetVoice   string
	OpenAIModel       string
	OpenAIVoice       string
	OpenAIInstruction string
	GeminiModel       string
	GeminiVoice       string

	// Playback flags
	Pause       time.Duration
	IdleTimeout time.Duration

	// play
	Repeat bool
	From   int
	Silent bool

	// say
	Lang   string
	Output string

	// import
	Section   string
	Translate bool

	// export
	ExportOutput string
	NoAudio      bool
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		Addr:            ":8501",
		Workbook:        "korengpro.xlsx",
		Player:          "browser",
		LogLevel:        "info",
		Provider:        "edge",
		Fallback:        "espeak",
		Speed:           1.2,
		RateLimit:       60,
		Cache:           false,
		CacheTTL:        24 * time.Hour,
		EdgeSourceVoice: "ko-KR-SunHiNeural",
		EdgeTargetVoice: "en-US-JennyNeural",
		OpenAIModel:     "gpt-4o-mini-tts",
		OpenAIVoice:     "nova",
		GeminiModel:     "gemini-2.5-flash-preview-tts",
		GeminiVoice:     "Kore",
		Pause:           500 * time.Millisecond,
		IdleTimeout:     30 * time.Minute,
		From:            1,
		Lang:            "source",
		Output:          "say.mp3",
		ExportOutput:    "korengpro.apkg",
	}
}
