package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/korengpro/internal"
)

const appName = "korengpro"

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "korengpro",
		Short: "Korean/English sentence flashcard player",
		Long: `korengpro plays bilingual sentence pairs from an .xlsx workbook.

Each sheet of the workbook is a section; column B holds the Korean sentence,
column C its English translation and row 1 is a header. For every row the
Korean text is spoken, then the English text, then playback advances.

Examples:
  korengpro                                 # serve the web player on :8501
  korengpro play Greetings --repeat         # play a section in the terminal
  korengpro sections                        # list sections
  korengpro say "안녕하세요" -o hello.mp3     # synthesize one clip
  korengpro import words.txt --section Food --translate`,
		Args:          cobra.NoArgs,
		Version:       internal.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, flags)

	return rootCmd
}

// DefaultStateDir returns the per-user data directory for positions,
// scratch files and the clip cache.
func DefaultStateDir() string {
	scope := gap.NewScope(gap.User, appName)
	dirs, err := scope.DataDirs()
	if err != nil || len(dirs) == 0 {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "state", appName)
	}
	return dirs[0]
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	pf := cmd.PersistentFlags()

	pf.StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.korengpro.yaml)")
	pf.StringVarP(&flags.Workbook, "workbook", "w", flags.Workbook, "Path to the .xlsx workbook")
	pf.StringVar(&flags.StateDir, "state-dir", DefaultStateDir(), "Directory for positions, scratch files and the clip cache")
	pf.Var(newChoiceValue(&flags.LogLevel, "debug", "info", "warn", "error"), "log-level", "Log level: debug, info, warn, error")

	// Synthesis
	pf.Var(newChoiceValue(&flags.Provider, "edge", "openai", "gemini", "espeak"), "provider", "TTS provider: edge, openai, gemini, espeak")
	pf.StringVar(&flags.Fallback, "fallback", flags.Fallback, "Fallback TTS provider, empty to disable")
	pf.Float64Var(&flags.Speed, "speed", flags.Speed, "Speech speed multiplier")
	pf.IntVar(&flags.RateLimit, "rate-limit", flags.RateLimit, "Maximum synthesis requests per minute, 0 for unlimited")
	pf.BoolVar(&flags.Cache, "cache", flags.Cache, "Cache synthesized clips on disk")
	pf.DurationVar(&flags.CacheTTL, "cache-ttl", flags.CacheTTL, "How long clips stay in the memory cache")

	// Voices
	pf.StringVar(&flags.EdgeSourceVoice, "edge-source-voice", flags.EdgeSourceVoice, "edge-tts voice for Korean text")
	pf.StringVar(&flags.EdgeTargetVoice, "edge-target-voice", flags.EdgeTargetVoice, "edge-tts voice for English text")
	pf.StringVar(&flags.OpenAIModel, "openai-model", flags.OpenAIModel, "OpenAI TTS model: tts-1, tts-1-hd, gpt-4o-mini-tts")
	pf.StringVar(&flags.OpenAIVoice, "openai-voice", flags.OpenAIVoice, "OpenAI voice: alloy, ash, coral, echo, fable, onyx, nova, sage, shimmer")
	pf.StringVar(&flags.OpenAIInstruction, "openai-instruction", "", "Voice instructions for gpt-4o-mini-tts")
	pf.StringVar(&flags.GeminiModel, "gemini-model", flags.GeminiModel, "Gemini TTS model")
	pf.StringVar(&flags.GeminiVoice, "gemini-voice", flags.GeminiVoice, "Gemini prebuilt voice")

	// Playback
	pf.DurationVar(&flags.Pause, "pause", flags.Pause, "Pause between rows")

	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	viper.BindPFlag("workbook.path", pf.Lookup("workbook"))
	viper.BindPFlag("state_dir", pf.Lookup("state-dir"))
	viper.BindPFlag("log_level", pf.Lookup("log-level"))
	viper.BindPFlag("audio.provider", pf.Lookup("provider"))
	viper.BindPFlag("audio.fallback", pf.Lookup("fallback"))
	viper.BindPFlag("audio.speed", pf.Lookup("speed"))
	viper.BindPFlag("audio.rate_limit", pf.Lookup("rate-limit"))
	viper.BindPFlag("audio.cache", pf.Lookup("cache"))
	viper.BindPFlag("audio.cache_ttl", pf.Lookup("cache-ttl"))
	viper.BindPFlag("audio.edge_source_voice", pf.Lookup("edge-source-voice"))
	viper.BindPFlag("audio.edge_target_voice", pf.Lookup("edge-target-voice"))
	viper.BindPFlag("audio.openai_model", pf.Lookup("openai-model"))
	viper.BindPFlag("audio.openai_voice", pf.Lookup("openai-voice"))
	viper.BindPFlag("audio.openai_instruction", pf.Lookup("openai-instruction"))
	viper.BindPFlag("audio.gemini_model", pf.Lookup("gemini-model"))
	viper.BindPFlag("audio.gemini_voice", pf.Lookup("gemini-voice"))
	viper.BindPFlag("playback.pause", pf.Lookup("pause"))
}

// CreateServeCommand creates the serve command. It is also what the root
// command runs when called without a subcommand.
func CreateServeCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web player",
		Args:  cobra.NoArgs,
	}
	AddServeFlags(cmd, flags)
	return cmd
}

// AddServeFlags registers the server flags on cmd.
func AddServeFlags(cmd *cobra.Command, flags *Flags) {
	cmd.Flags().StringVar(&flags.Addr, "addr", flags.Addr, "Listen address")
	cmd.Flags().Var(newChoiceValue(&flags.Player, "browser", "local", "dwell"), "player", "Where clips play: browser, local or dwell (silent)")
	cmd.Flags().DurationVar(&flags.IdleTimeout, "idle-timeout", flags.IdleTimeout, "Close sessions idle for this long")
}

// BindServeFlags binds the server flags of the command being run. The root
// and serve commands both carry them, so binding happens at run time.
func BindServeFlags(cmd *cobra.Command) {
	viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	viper.BindPFlag("server.player", cmd.Flags().Lookup("player"))
	viper.BindPFlag("server.idle_timeout", cmd.Flags().Lookup("idle-timeout"))
}

// CreatePlayCommand creates the play command.
func CreatePlayCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play SECTION",
		Short: "Play a section through the local audio device",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&flags.Repeat, "repeat", false, "Start over after the last row")
	cmd.Flags().IntVar(&flags.From, "from", flags.From, "Start at this row (1 is the first sentence)")
	cmd.Flags().BoolVar(&flags.Silent, "silent", false, "Print the rows without sound, pausing for the estimated speaking time")
	return cmd
}

// CreateSectionsCommand creates the sections command.
func CreateSectionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List the workbook's sections",
		Args:  cobra.NoArgs,
	}
}

// CreateSayCommand creates the say command.
func CreateSayCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "say TEXT",
		Short: "Synthesize one clip to a file",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().Var(newChoiceValue(&flags.Lang, "source", "target"), "lang", "Language of TEXT: source (Korean) or target (English)")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", flags.Output, "Output file")
	return cmd
}

// CreateImportCommand creates the import command.
func CreateImportCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Append sentence pairs from a text file to a section",
		Long: `Append sentence pairs to a workbook section. FILE holds one pair per line:

  안녕하세요 = Hello
  감사합니다              (English added with --translate)
  = Good night           (Korean added with --translate)`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&flags.Section, "section", "", "Target section (created if missing)")
	cmd.Flags().BoolVar(&flags.Translate, "translate", false, "Translate missing sides with OpenAI")
	_ = cmd.MarkFlagRequired("section")
	return cmd
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		if dirs, err := gap.NewScope(gap.User, appName).ConfigDirs(); err == nil {
			for _, dir := range dirs {
				viper.AddConfigPath(dir)
			}
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("." + appName)
	}

	viper.SetEnvPrefix("KORENGPRO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("audio.openai_key")
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("audio.gemini_key")
}

// CreateModelsCommand creates the models command.
func CreateModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List OpenAI models usable for speech and translation",
		Args:  cobra.NoArgs,
	}
}

// CreateExportCommand creates the export command.
func CreateExportCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export SECTION",
		Short: "Export a section as an Anki deck (.apkg with audio, or .csv)",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&flags.ExportOutput, "output", "o", flags.ExportOutput, "Output file, .apkg or .csv")
	cmd.Flags().BoolVar(&flags.NoAudio, "no-audio", false, "Skip speech synthesis")
	return cmd
}
