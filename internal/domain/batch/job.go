package batch

// Options carries the per-request knobs of a transcription job.
// Zero values fall back to the processor defaults.
type Options struct {
	// APIKey overrides the server's transcription key for this job
	// only. Empty uses the configured key.
	APIKey          string
	ChunkDuration   float64
	NumSpeakers     int
	GenerateSummary bool
}

// Job is one uploaded recording waiting to be transcribed.
type Job struct {
	SessionID  string
	UploadPath string
	Options    Options
}
