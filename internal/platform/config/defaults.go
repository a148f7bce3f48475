package config

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8000,
			Path: "/ws/transcribe",
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8080,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			ChunkMs:    320,
			HopMs:      160,
		},
		VAD: VADConfig{
			Enabled:        true,
			Aggressiveness: 2,
			WindowMs:       30,
		},
		ASR: ASRConfig{
			Provider: "elevenlabs",
			ElevenLabs: ElevenLabsConfig{
				BaseURL:        "https://api.elevenlabs.io",
				ModelID:        "scribe_v1",
				NumSpeakers:    2,
				TimeoutSeconds: 60,
				VoiceIsolation: false,
			},
		},
		Summary: SummaryConfig{
			OpenAI: OpenAIConfig{
				Model:       "gpt-4o-mini",
				MaxTokens:   150,
				Temperature: 0.3,
			},
		},
		Session: SessionConfig{
			ChunkDuration: 5,
			QueueSize:     256,
		},
		Archive: ArchiveConfig{
			Driver:         "memory",
			TTLSeconds:     24 * 60 * 60,
			CleanupSeconds: 10 * 60,
			SQLite: ArchiveSQLiteStore{
				DSN: "data/archive.db",
			},
			Redis: ArchiveRedisStore{
				Addr:   "localhost:6379",
				Prefix: "deafine:session:",
			},
		},
		Recording: RecordingConfig{
			Enabled: false,
			Dir:     "data/recordings",
		},
		Batch: BatchConfig{
			Workers:   2,
			QueueSize: 16,
			UploadDir: "data/uploads",
		},
	}
}
