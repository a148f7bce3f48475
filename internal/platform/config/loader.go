package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "github.com/AnjaneyaBhardwaj/Deafine/internal/platform/errors"
)

const defaultConfigFile = ".config.yaml"

// Loader reads the configuration from defaults, an optional YAML file and
// environment overrides, in that order.
type Loader struct {
	path      string
	useDotEnv bool
}

// NewLoader creates a loader reading the default config file location.
func NewLoader() *Loader {
	return &Loader{
		path:      "",
		useDotEnv: true,
	}
}

// WithPath overrides the config file location.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load builds the effective configuration. A missing config file is not an
// error; the defaults plus environment cover the common case.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			// No .env file present; system environment applies as-is.
			_ = err
		}
	}

	cfg := DefaultConfig()

	path := l.path
	if path == "" {
		path = os.Getenv("DEAFINE_CONFIG")
	}
	if path == "" {
		path = defaultConfigFile
	}

	loadedFrom := ""
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindConfig, "config.load",
				fmt.Sprintf("failed to parse %s", path), err)
		}
		loadedFrom = path
	} else if !os.IsNotExist(err) {
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "config.load",
			fmt.Sprintf("failed to read %s", path), err)
	}

	applyEnvOverrides(cfg)

	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   loadedFrom,
	}, nil
}

// applyEnvOverrides maps the environment variables onto the config tree.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ELEVEN_API_KEY"); v != "" {
		cfg.ASR.ElevenLabs.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Summary.OpenAI.APIKey = v
	}
	if v, ok := envInt("DEAFINE_CHUNK_MS"); ok {
		cfg.Audio.ChunkMs = v
	}
	if v, ok := envInt("DEAFINE_HOP_MS"); ok {
		cfg.Audio.HopMs = v
	}
	if v, ok := envBool("DEAFINE_USE_VAD"); ok {
		cfg.VAD.Enabled = v
	}
	if v, ok := envInt("DEAFINE_VAD_AGGRESSIVENESS"); ok {
		cfg.VAD.Aggressiveness = v
	}
	if v, ok := envInt("DEAFINE_ELEVENLABS_CHUNK_SECS"); ok {
		cfg.Session.ChunkDuration = float64(v)
	}
	if v, ok := envInt("DEAFINE_NUM_SPEAKERS"); ok {
		cfg.ASR.ElevenLabs.NumSpeakers = v
	}
	if v, ok := envBool("DEAFINE_USE_VOICE_ISOLATION"); ok {
		cfg.ASR.ElevenLabs.VoiceIsolation = v
	}
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envBool(key string) (bool, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, false
	}
	return strings.EqualFold(raw, "true"), true
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("invalid server port %d", cfg.Server.Port))
	}
	if cfg.Web.Enabled && (cfg.Web.Port <= 0 || cfg.Web.Port > 65535) {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("invalid web port %d", cfg.Web.Port))
	}
	if cfg.Audio.SampleRate <= 0 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			"sample rate must be positive")
	}
	if cfg.Audio.Channels != 1 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			"only mono audio is supported")
	}
	if cfg.Session.ChunkDuration <= 0 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			"session chunk_duration must be positive")
	}
	if cfg.VAD.Aggressiveness < 0 || cfg.VAD.Aggressiveness > 3 {
		cfg.VAD.Aggressiveness = 2
	}
	switch cfg.VAD.WindowMs {
	case 10, 20, 30:
	default:
		cfg.VAD.WindowMs = 30
	}
	return nil
}

// RequireASRKey reports a config error when the selected transcription
// provider has no credential. Called by entrypoints that will reach the
// backend, not by the loader, so offline tooling can still read config.
func RequireASRKey(cfg *Config) error {
	if cfg.ASR.Provider == "elevenlabs" && cfg.ASR.ElevenLabs.APIKey == "" {
		return platformerrors.New(platformerrors.KindConfig, "config.require",
			"ELEVEN_API_KEY is required; set it in the environment or .env")
	}
	return nil
}
