package cli

import (
	"github.com/spf13/viper"

	"codeberg.org/snonux/korengpro/internal/app"
	"codeberg.org/snonux/korengpro/internal/audio"
)

// ResolveConfig merges flags, config file and environment into an
// app.Config. Viper returns a bound flag's value when it was set on the
// command line, the config file value otherwise and the flag default last.
func ResolveConfig(flags *Flags) app.Config {
	cfg := app.DefaultConfig()

	cfg.WorkbookPath = stringOr("workbook.path", flags.Workbook)
	cfg.StateDir = stringOr("state_dir", flags.StateDir)
	cfg.Addr = stringOr("server.addr", flags.Addr)
	cfg.Player = stringOr("server.player", flags.Player)

	if viper.IsSet("audio.rate_limit") {
		cfg.RateLimit = viper.GetInt("audio.rate_limit")
	} else {
		cfg.RateLimit = flags.RateLimit
	}
	if viper.IsSet("audio.cache") {
		cfg.Cache = viper.GetBool("audio.cache")
	} else {
		cfg.Cache = flags.Cache
	}
	if d := viper.GetDuration("audio.cache_ttl"); d > 0 {
		cfg.CacheTTL = d
	}
	if d := viper.GetDuration("playback.pause"); d > 0 {
		cfg.Pause = d
	}
	if d := viper.GetDuration("server.idle_timeout"); d > 0 {
		cfg.IdleTimeout = d
	}

	ac := audio.DefaultProviderConfig()
	ac.Provider = stringOr("audio.provider", flags.Provider)
	if viper.IsSet("audio.fallback") {
		ac.Fallback = viper.GetString("audio.fallback")
	} else {
		ac.Fallback = flags.Fallback
	}
	if s := viper.GetFloat64("audio.speed"); s > 0 {
		ac.Speed = s
	}
	ac.EdgeSourceVoice = stringOr("audio.edge_source_voice", ac.EdgeSourceVoice)
	ac.EdgeTargetVoice = stringOr("audio.edge_target_voice", ac.EdgeTargetVoice)
	ac.OpenAIKey = GetOpenAIKey()
	ac.OpenAIModel = stringOr("audio.openai_model", ac.OpenAIModel)
	ac.OpenAIVoice = stringOr("audio.openai_voice", ac.OpenAIVoice)
	ac.OpenAIInstruction = stringOr("audio.openai_instruction", ac.OpenAIInstruction)
	ac.GeminiKey = GetGeminiKey()
	ac.GeminiModel = stringOr("audio.gemini_model", ac.GeminiModel)
	ac.GeminiVoice = stringOr("audio.gemini_voice", ac.GeminiVoice)
	cfg.Audio = ac

	return cfg
}

func stringOr(key, fallback string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return fallback
}
