// Package webapi is the HTTP transport of the transcription API: file
// uploads in, archived transcripts out. Bodies follow the shapes the
// websocket clients already know; errors carry a single detail string.
package webapi

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/archive"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/batch"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/session"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/config"
	platformerrors "github.com/AnjaneyaBhardwaj/Deafine/internal/platform/errors"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
	httptransport "github.com/AnjaneyaBhardwaj/Deafine/internal/transport/http"
)

// Service serves the REST transcription API.
type Service struct {
	config    *config.Config
	logger    *logging.Logger
	store     archive.Store
	processor *batch.Processor
	registry  *session.Registry
}

// NewService wires the transcription API against its collaborators and
// ensures the upload directory exists.
func NewService(cfg *config.Config, store archive.Store, processor *batch.Processor,
	registry *session.Registry, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "webapi.new", "config is required", nil)
	}
	if store == nil {
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "webapi.new", "archive store is required", nil)
	}
	if processor == nil {
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "webapi.new", "batch processor is required", nil)
	}
	if registry == nil {
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "webapi.new", "session registry is required", nil)
	}
	if logger == nil {
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "webapi.new", "logger is required", nil)
	}
	if err := os.MkdirAll(cfg.Batch.UploadDir, 0o755); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "webapi.new", "create upload directory", err)
	}

	return &Service{
		config:    cfg,
		logger:    logger,
		store:     store,
		processor: processor,
		registry:  registry,
	}, nil
}

// Register mounts the transcription routes under the /api group.
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.POST("/transcribe", s.handleTranscribe)
	router.POST("/transcribe/stream", s.handleTranscribeStream)
	router.GET("/session/:id", s.handleSessionGet)
	router.GET("/session/:id/transcript", s.handleTranscriptGet)
	router.DELETE("/session/:id", s.handleSessionDelete)
	router.GET("/sessions", s.handleSessionList)
	router.GET("/ws/sessions", s.handleLiveSessions)
	router.GET("/system/info", s.handleSystemInfo)

	s.logger.InfoTag("HTTP", "transcription API routes registered")
	return nil
}

// RegisterRoot mounts the banner and health endpoints on the engine
// root, outside the /api group.
func (s *Service) RegisterRoot(engine *gin.Engine) {
	engine.GET("/", s.handleRoot)
	engine.GET("/health", s.handleHealth)
}

// handleRoot serves the service banner.
// @Summary Service banner
// @Description Lists the version and the main endpoints of the API
// @Tags Meta
// @Produce json
// @Success 200 {object} object
// @Router / [get]
func (s *Service) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Deafine Transcription API",
		"version": config.Version,
		"docs":    "/docs",
		"health":  "/health",
		"endpoints": gin.H{
			"transcribe":       "POST /api/transcribe",
			"transcribe_async": "POST /api/transcribe/stream",
			"get_session":      "GET /api/session/{session_id}",
			"get_transcript":   "GET /api/session/{session_id}/transcript",
			"list_sessions":    "GET /api/sessions",
		},
	})
}

// handleHealth reports whether the transcription and summary backends
// have credentials configured.
// @Summary Health check
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (s *Service) handleHealth(c *gin.Context) {
	elevenOK := s.config.ASR.ElevenLabs.APIKey != ""
	status := "healthy"
	if !elevenOK {
		status = "degraded"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:     status,
		ElevenLabs: elevenOK,
		OpenAI:     s.config.Summary.OpenAI.APIKey != "",
		Version:    config.Version,
	})
}

// handleTranscribe transcribes an uploaded recording within the request.
// @Summary Transcribe an audio file
// @Description Runs speaker-attributed transcription over an uploaded WAV or MP3 file and returns the full transcript
// @Tags Transcription
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Audio file (WAV or MP3)"
// @Param eleven_api_key formData string false "ElevenLabs API key override"
// @Param chunk_duration formData number false "Seconds per transcription window" default(5)
// @Param num_speakers formData int false "Maximum speakers to detect" default(5)
// @Param generate_summary formData bool false "Generate a summary" default(true)
// @Success 200 {object} TranscriptResponse
// @Failure 400 {object} httptransport.DetailResponse
// @Failure 500 {object} httptransport.DetailResponse
// @Router /transcribe [post]
func (s *Service) handleTranscribe(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		httptransport.RespondDetail(c, http.StatusBadRequest, "audio file is required")
		return
	}

	opts := batch.Options{
		APIKey:          strings.TrimSpace(c.PostForm("eleven_api_key")),
		ChunkDuration:   formFloat(c, "chunk_duration", 5),
		NumSpeakers:     formInt(c, "num_speakers", 5),
		GenerateSummary: formBool(c, "generate_summary", true),
	}
	if opts.APIKey == "" && s.config.ASR.ElevenLabs.APIKey == "" {
		httptransport.RespondDetail(c, http.StatusBadRequest,
			"ELEVEN_API_KEY required (set in .env or pass as parameter)")
		return
	}

	sessionID := session.NewSessionID()
	uploadPath, err := s.saveUpload(c, sessionID, fileHeader)
	if err != nil {
		s.logger.ErrorTag("HTTP", "upload for %s not saved: %v", sessionID, err)
		httptransport.RespondDetail(c, http.StatusInternalServerError, "could not save upload")
		return
	}

	record, err := s.processor.Process(c.Request.Context(), batch.Job{
		SessionID:  sessionID,
		UploadPath: uploadPath,
		Options:    opts,
	})
	if err != nil {
		httptransport.RespondDetail(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, TranscriptResponse{
		SessionID:        record.SessionID,
		Segments:         record.Segments,
		Summary:          record.Summary,
		Duration:         record.Duration,
		SpeakersDetected: record.SpeakersDetected,
	})
}

// handleTranscribeStream accepts an upload and transcribes it in the
// background. The session is archived as processing before the job is
// queued, so a poll straight after the response already finds it.
// @Summary Transcribe an audio file asynchronously
// @Tags Transcription
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Audio file (WAV or MP3)"
// @Param eleven_api_key formData string false "ElevenLabs API key override"
// @Success 200 {object} StreamAccepted
// @Failure 400 {object} httptransport.DetailResponse
// @Failure 503 {object} httptransport.DetailResponse
// @Router /transcribe/stream [post]
func (s *Service) handleTranscribeStream(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		httptransport.RespondDetail(c, http.StatusBadRequest, "audio file is required")
		return
	}

	sessionID := session.NewSessionID()
	uploadPath, err := s.saveUpload(c, sessionID, fileHeader)
	if err != nil {
		s.logger.ErrorTag("HTTP", "upload for %s not saved: %v", sessionID, err)
		httptransport.RespondDetail(c, http.StatusInternalServerError, "could not save upload")
		return
	}

	ctx := c.Request.Context()
	if err := s.store.Put(ctx, archive.NewProcessingRecord(sessionID, "batch")); err != nil {
		os.Remove(uploadPath)
		httptransport.RespondDetail(c, http.StatusInternalServerError, err.Error())
		return
	}

	job := batch.Job{
		SessionID:  sessionID,
		UploadPath: uploadPath,
		Options: batch.Options{
			APIKey: strings.TrimSpace(c.PostForm("eleven_api_key")),
		},
	}
	if err := s.processor.Submit(job); err != nil {
		os.Remove(uploadPath)
		s.store.Delete(ctx, sessionID)
		if errors.Is(err, batch.ErrQueueFull) {
			httptransport.RespondDetail(c, http.StatusServiceUnavailable, "transcription queue is full, retry later")
		} else {
			httptransport.RespondDetail(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, StreamAccepted{
		SessionID:     sessionID,
		Status:        string(archive.StatusProcessing),
		CheckStatus:   fmt.Sprintf("/api/session/%s", sessionID),
		GetTranscript: fmt.Sprintf("/api/session/%s/transcript", sessionID),
	})
}

// handleSessionGet returns the status view of an archived session.
// @Summary Get session status
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SessionInfo
// @Failure 404 {object} httptransport.DetailResponse
// @Router /session/{id} [get]
func (s *Service) handleSessionGet(c *gin.Context) {
	record, ok := s.lookup(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, SessionInfo{
		SessionID:     record.SessionID,
		Status:        string(record.Status),
		CreatedAt:     record.CreatedAt.Format(time.RFC3339),
		SegmentsCount: len(record.Segments),
		Speakers:      record.Speakers,
	})
}

// handleTranscriptGet returns the full transcript once processing is
// done. 425 tells pollers to come back later.
// @Summary Get session transcript
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SessionTranscript
// @Failure 404 {object} httptransport.DetailResponse
// @Failure 425 {object} httptransport.DetailResponse
// @Router /session/{id}/transcript [get]
func (s *Service) handleTranscriptGet(c *gin.Context) {
	record, ok := s.lookup(c)
	if !ok {
		return
	}
	if record.Status == archive.StatusProcessing {
		httptransport.RespondDetail(c, http.StatusTooEarly, "Session still processing. Check back later.")
		return
	}

	c.JSON(http.StatusOK, SessionTranscript{
		SessionID: record.SessionID,
		Status:    string(record.Status),
		Segments:  record.Segments,
		Speakers:  record.Speakers,
		Error:     record.Error,
	})
}

// handleSessionDelete removes a session from the archive.
// @Summary Delete a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} object
// @Failure 404 {object} httptransport.DetailResponse
// @Router /session/{id} [delete]
func (s *Service) handleSessionDelete(c *gin.Context) {
	sessionID := c.Param("id")
	if err := s.store.Delete(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			httptransport.RespondDetail(c, http.StatusNotFound, "Session not found")
		} else {
			httptransport.RespondDetail(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session deleted", "session_id": sessionID})
}

// handleSessionList enumerates every archived session.
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Success 200 {object} SessionList
// @Router /sessions [get]
func (s *Service) handleSessionList(c *gin.Context) {
	records, err := s.store.List(c.Request.Context())
	if err != nil {
		httptransport.RespondDetail(c, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]SessionListItem, 0, len(records))
	for _, record := range records {
		items = append(items, SessionListItem{
			SessionID:     record.SessionID,
			Status:        string(record.Status),
			CreatedAt:     record.CreatedAt.Format(time.RFC3339),
			SegmentsCount: len(record.Segments),
		})
	}

	c.JSON(http.StatusOK, SessionList{Total: len(items), Sessions: items})
}

// handleLiveSessions enumerates the currently connected websocket
// sessions.
// @Summary List live websocket sessions
// @Tags Sessions
// @Produce json
// @Success 200 {object} LiveSessionList
// @Router /ws/sessions [get]
func (s *Service) handleLiveSessions(c *gin.Context) {
	infos := s.registry.List()
	c.JSON(http.StatusOK, LiveSessionList{Total: len(infos), Sessions: infos})
}

// handleSystemInfo reports host health next to archive and session
// counters. Probe failures drop their section rather than failing the
// request.
// @Summary System information
// @Tags Meta
// @Produce json
// @Success 200 {object} object
// @Router /system/info [get]
func (s *Service) handleSystemInfo(c *gin.Context) {
	ctx := c.Request.Context()

	info := gin.H{
		"version":       config.Version,
		"go_version":    runtime.Version(),
		"goroutines":    runtime.NumGoroutine(),
		"live_sessions": s.registry.Len(),
	}

	if hostInfo, err := host.InfoWithContext(ctx); err == nil {
		info["host"] = gin.H{
			"hostname":       hostInfo.Hostname,
			"os":             hostInfo.OS,
			"platform":       hostInfo.Platform,
			"uptime_seconds": hostInfo.Uptime,
		}
	}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		info["cpu"] = gin.H{"used_percent": percents[0]}
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info["memory"] = gin.H{
			"total":        vm.Total,
			"used":         vm.Used,
			"used_percent": vm.UsedPercent,
		}
	}
	if stats, err := s.store.Stats(ctx); err == nil {
		info["archive"] = stats
	} else {
		s.logger.WarnTag("HTTP", "archive stats unavailable: %v", err)
	}

	c.JSON(http.StatusOK, info)
}

// lookup resolves the :id path parameter against the archive, writing
// the error response itself when the session is missing.
func (s *Service) lookup(c *gin.Context) (archive.Record, bool) {
	record, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			httptransport.RespondDetail(c, http.StatusNotFound, "Session not found")
		} else {
			httptransport.RespondDetail(c, http.StatusInternalServerError, err.Error())
		}
		return archive.Record{}, false
	}
	return record, true
}

// saveUpload stores the multipart file under the upload directory,
// prefixed with the session ID so concurrent uploads of the same
// filename cannot collide.
func (s *Service) saveUpload(c *gin.Context, sessionID string, fileHeader *multipart.FileHeader) (string, error) {
	name := filepath.Base(fileHeader.Filename)
	if name == "" || name == "." || name == "/" {
		name = "upload"
	}
	path := filepath.Join(s.config.Batch.UploadDir, fmt.Sprintf("%s_%s", sessionID, name))
	if err := c.SaveUploadedFile(fileHeader, path); err != nil {
		return "", err
	}
	return path, nil
}

func formFloat(c *gin.Context, key string, fallback float64) float64 {
	raw := strings.TrimSpace(c.PostForm(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func formInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.PostForm(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func formBool(c *gin.Context, key string, fallback bool) bool {
	raw := strings.TrimSpace(c.PostForm(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
