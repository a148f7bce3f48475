package config

// Version is reported by the service banner, the health endpoint and
// the version subcommand.
const Version = "0.2.0"

// Config is the root configuration tree for the Deafine server.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Web       WebConfig       `yaml:"web"`
	Log       LogConfig       `yaml:"log"`
	Audio     AudioConfig     `yaml:"audio"`
	VAD       VADConfig       `yaml:"vad"`
	ASR       ASRConfig       `yaml:"asr"`
	Summary   SummaryConfig   `yaml:"summary"`
	Session   SessionConfig   `yaml:"session"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Recording RecordingConfig `yaml:"recording"`
	Batch     BatchConfig     `yaml:"batch"`
}

// ServerConfig addresses the websocket transport listener.
type ServerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// WebConfig addresses the REST API listener.
type WebConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
	// ServeRecordings exposes the recording directory read-only under
	// /recordings when recording is enabled.
	ServeRecordings bool `yaml:"serve_recordings"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

// AudioConfig fixes the wire format: PCM16 mono at SampleRate, framed in
// ChunkMs windows with a HopMs advance during capture.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	ChunkMs    int `yaml:"chunk_ms"`
	HopMs      int `yaml:"hop_ms"`
}

// VADConfig controls the optional speech-activity gate. Disabled means
// every frame passes through; this is settled at configuration time.
type VADConfig struct {
	Enabled        bool `yaml:"enabled"`
	Aggressiveness int  `yaml:"aggressiveness"`
	WindowMs       int  `yaml:"window_ms"`
}

// ASRConfig selects and configures the transcription provider.
type ASRConfig struct {
	Provider   string           `yaml:"provider"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
}

type ElevenLabsConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	ModelID        string `yaml:"model_id"`
	NumSpeakers    int    `yaml:"num_speakers"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	VoiceIsolation bool   `yaml:"voice_isolation"`
}

// SummaryConfig configures summarization. With an empty OpenAI key the
// extractive engine is used.
type SummaryConfig struct {
	OpenAI OpenAIConfig `yaml:"openai"`
}

type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// SessionConfig tunes the per-session pipeline.
type SessionConfig struct {
	// ChunkDuration is the accumulator flush window in seconds.
	ChunkDuration float64 `yaml:"chunk_duration"`
	// QueueSize bounds the per-session frame queue between the ingest
	// producer and the pipeline consumer. When full, new frames are
	// dropped (and logged) rather than blocking the producer.
	QueueSize int `yaml:"queue_size"`
}

// ArchiveConfig selects the store holding finished batch sessions.
type ArchiveConfig struct {
	Driver         string             `yaml:"driver"`
	TTLSeconds     int                `yaml:"ttl_seconds"`
	CleanupSeconds int                `yaml:"cleanup_seconds"`
	SQLite         ArchiveSQLiteStore `yaml:"sqlite"`
	Redis          ArchiveRedisStore  `yaml:"redis"`
}

type ArchiveSQLiteStore struct {
	DSN string `yaml:"dsn"`
}

type ArchiveRedisStore struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type RecordingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// BatchConfig tunes the asynchronous file-transcription workers.
type BatchConfig struct {
	Workers   int    `yaml:"workers"`
	QueueSize int    `yaml:"queue_size"`
	UploadDir string `yaml:"upload_dir"`
}
