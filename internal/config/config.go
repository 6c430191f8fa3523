// Package config reads daemon settings from flags, an env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"lumos/internal/ipc"
)

const DefaultChatURL = "https://oi-server.onrender.com/"

var (
	Outputs = []string{"openai", "espeak", "bridge", "none"}
	Inputs  = []string{"mic", "inbox", "bridge", "none"}
	STTs    = []string{"whisper", "whisper-cli", "openai"}
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

type Chat struct {
	APIKey     string
	BaseURL    string
	Model      string
	CustomerID string
}

type Config struct {
	EnvFile  string
	LogLevel string
	Socket   string
	Proxy    string
	Prefs    string

	Output string
	Input  string
	STT    string

	WhisperModel string
	WhisperBin   string
	InboxDir     string
	BridgeAddr   string
	Earcon       string
	Duck         bool

	OpenAIKey string
	TTSModel  string
	TTSVoice  string
	STTModel  string

	Chat Chat
}

// Load parses args (without the program name), loads the env file they name
// and fills the rest from the environment.
func Load(args []string) (*Config, error) {
	var c Config

	fs := cli.NewFlagSet("lumos-daemon", cli.ContinueOnError)
	fs.StringVarP(&c.EnvFile, "env", "e", ".env", "Env file path")
	fs.StringVarP(&c.LogLevel, "log", "l", "info", "Log level")
	fs.StringVarP(&c.Socket, "socket", "s", ipc.DefaultSocketPath, "Control socket path")
	fs.StringVarP(&c.Proxy, "proxy", "p", "", "Socks proxy address for API calls")
	fs.StringVar(&c.Prefs, "prefs", defaultPrefsPath(), "Preferences file")
	fs.StringVarP(&c.Output, "output", "o", "openai", "Speech output: "+strings.Join(Outputs, "|"))
	fs.StringVarP(&c.Input, "input", "i", "mic", "Speech input: "+strings.Join(Inputs, "|"))
	fs.StringVar(&c.STT, "stt", "whisper", "Transcriber: "+strings.Join(STTs, "|"))
	fs.StringVar(&c.WhisperModel, "whisper-model", "third_party/whisper.cpp/models/ggml-base.en.bin", "whisper.cpp model")
	fs.StringVar(&c.WhisperBin, "whisper-bin", "whisper-cli", "whisper.cpp executable for --stt whisper-cli")
	fs.StringVar(&c.InboxDir, "inbox", "./inbox", "Directory watched by --input inbox")
	fs.StringVar(&c.BridgeAddr, "bridge", ":8092", "Listen address of the browser bridge")
	fs.StringVar(&c.Earcon, "earcon", "beep.mp3", "Sound played when listening starts")
	fs.BoolVar(&c.Duck, "duck", true, "Lower other applications while speaking")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := godotenv.Load(c.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("env file %s: %w", c.EnvFile, err)
	}

	c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	c.TTSModel = os.Getenv("OPENAI_TTS_MODEL")
	c.TTSVoice = os.Getenv("OPENAI_TTS_VOICE")
	c.STTModel = os.Getenv("OPENAI_STT_MODEL")

	c.Chat = Chat{
		APIKey:     os.Getenv("CHAT_API_KEY"),
		BaseURL:    envOr("CHAT_BASE_URL", DefaultChatURL),
		Model:      os.Getenv("CHAT_MODEL"),
		CustomerID: os.Getenv("CHAT_CUSTOMER_ID"),
	}
	if c.Chat.APIKey == "" {
		c.Chat.APIKey = c.OpenAIKey
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if _, ok := logLevels[c.LogLevel]; !ok {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if !slices.Contains(Outputs, c.Output) {
		return fmt.Errorf("unknown output %q (want %s)", c.Output, strings.Join(Outputs, ", "))
	}
	if !slices.Contains(Inputs, c.Input) {
		return fmt.Errorf("unknown input %q (want %s)", c.Input, strings.Join(Inputs, ", "))
	}
	if !slices.Contains(STTs, c.STT) {
		return fmt.Errorf("unknown transcriber %q (want %s)", c.STT, strings.Join(STTs, ", "))
	}
	if c.OpenAIKey == "" && (c.Output == "openai" || c.transcribes() && c.STT == "openai") {
		return errors.New("OPENAI_API_KEY not set")
	}
	if c.Input == "inbox" && c.InboxDir == "" {
		return errors.New("--inbox must name a directory")
	}
	return nil
}

// transcribes reports whether the chosen input needs a transcriber.
func (c *Config) transcribes() bool {
	return c.Input == "mic" || c.Input == "inbox"
}

func (c *Config) Level() slog.Level {
	return logLevels[c.LogLevel]
}

// ChatHeaders are the extra headers sent to the chat gateway.
func (c *Config) ChatHeaders() map[string]string {
	if c.Chat.CustomerID == "" {
		return nil
	}
	return map[string]string{"customerId": c.Chat.CustomerID}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "lumos.yaml"
	}
	return filepath.Join(dir, "lumos", "prefs.yaml")
}
