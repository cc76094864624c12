package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"projection-tutor/internal/constants"
)

const maxFrameBytes = 16 << 20

// healthzHandler reports the effective configuration with the credential
// masked
func (app *App) healthzHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"provider":  visionProvider,
		"model":     visionModel,
		"api_key":   maskAPIKey(os.Getenv(constants.EnvAPIKey)),
		"has_frame": app.LatestFrame() != nil,
	})
}

// uploadFrameHandler handles POST /api/frames: a camera client pushes the
// current desk frame, either as a raw image body or as multipart form file
// "frame"
func (app *App) uploadFrameHandler(c *gin.Context) {
	frame, err := readFrame(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mtype := mimetype.Detect(frame)
	if !mtype.Is("image/jpeg") && !mtype.Is("image/png") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": fmt.Sprintf("unsupported frame type: %s", mtype.String())})
		return
	}

	app.SetLatestFrame(frame)
	c.JSON(http.StatusAccepted, gin.H{"bytes": len(frame)})
}

func readFrame(c *gin.Context) ([]byte, error) {
	if file, err := c.FormFile("frame"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("error opening uploaded frame: %w", err)
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxFrameBytes))
	}

	frame, err := io.ReadAll(io.LimitReader(c.Request.Body, maxFrameBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading frame body: %w", err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	return frame, nil
}

// getPerceptionHandler handles the GET /api/perception endpoint
func (app *App) getPerceptionHandler(c *gin.Context) {
	state := app.CurrentState()
	if state.Report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No analysis completed yet"})
		return
	}
	c.JSON(http.StatusOK, state.Report)
}

// getDecisionHandler handles the GET /api/decision endpoint
func (app *App) getDecisionHandler(c *gin.Context) {
	state := app.CurrentState()
	if state.Decision == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No analysis completed yet"})
		return
	}
	c.JSON(http.StatusOK, state.Decision)
}

// getOverlayHandler handles the GET /api/overlay endpoint
func (app *App) getOverlayHandler(c *gin.Context) {
	state := app.CurrentState()
	if state.Overlay == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No analysis completed yet"})
		return
	}
	c.JSON(http.StatusOK, state.Overlay)
}

// submitAnalysisJobHandler handles POST /api/analyze: runs the pipeline once
// on the posted frame, or on the latest cached frame when the body is empty
func (app *App) submitAnalysisJobHandler(c *gin.Context) {
	frame, err := readFrame(c)
	if err != nil || len(frame) == 0 {
		frame = app.LatestFrame()
	}
	if frame == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No frame available; upload one via /api/frames"})
		return
	}

	job := &Job{
		ID:        generateJobID(),
		Status:    "pending",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		frame:     frame,
	}
	jobStore.addJob(job)

	select {
	case jobQueue <- job:
		c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
	default:
		jobStore.updateJobStatus(job.ID, "failed", "Job queue is full")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Job queue is full"})
	}
}

// getJobStatusHandler handles the GET /api/jobs/:job_id endpoint
func (app *App) getJobStatusHandler(c *gin.Context) {
	jobID := c.Param("job_id")
	job, exists := jobStore.getJob(jobID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// getAllJobsHandler handles the GET /api/jobs endpoint
func (app *App) getAllJobsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, jobStore.GetAllJobs())
}

// cancelJobHandler handles the POST /api/jobs/:job_id/cancel endpoint
func (app *App) cancelJobHandler(c *gin.Context) {
	jobID := c.Param("job_id")
	if !cancelJob(jobID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found or already finished"})
		return
	}
	c.Status(http.StatusOK)
}

// getHistoryHandler handles the GET /api/history endpoint
func (app *App) getHistoryHandler(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	records, err := GetRecentAnalysisRecords(app.Database, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Error fetching history: %v", err)})
		log.Errorf("Error fetching history: %v", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// getQuestionHistoryHandler handles the GET /api/history/:question_id endpoint
func (app *App) getQuestionHistoryHandler(c *gin.Context) {
	questionID := c.Param("question_id")
	records, err := GetAnalysisRecordsByQuestion(app.Database, questionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Error fetching history: %v", err)})
		log.Errorf("Error fetching history for %s: %v", questionID, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// getPromptsHandler handles the GET /api/prompts endpoint
func getPromptsHandler(c *gin.Context) {
	templateMutex.RLock()
	defer templateMutex.RUnlock()

	// Read the templates from files or use default content
	perceptionContent, err := os.ReadFile(filepath.Join(promptsDir, "perception_prompt.tmpl"))
	if err != nil {
		perceptionContent = []byte(defaultPerceptionTemplate)
	}

	reasoningContent, err := os.ReadFile(filepath.Join(promptsDir, "reasoning_prompt.tmpl"))
	if err != nil {
		reasoningContent = []byte(defaultReasoningTemplate)
	}

	c.JSON(http.StatusOK, gin.H{
		"perception_template": string(perceptionContent),
		"reasoning_template":  string(reasoningContent),
	})
}

// updatePromptsHandler handles the POST /api/prompts endpoint
func updatePromptsHandler(c *gin.Context) {
	var req struct {
		PerceptionTemplate string `json:"perception_template"`
		ReasoningTemplate  string `json:"reasoning_template"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	templateMutex.Lock()
	defer templateMutex.Unlock()

	if req.PerceptionTemplate != "" {
		t, err := template.New("perception").Funcs(sprig.FuncMap()).Parse(req.PerceptionTemplate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid perception template: %v", err)})
			return
		}
		perceptionTemplate = t
		if err := os.WriteFile(filepath.Join(promptsDir, "perception_prompt.tmpl"), []byte(req.PerceptionTemplate), 0644); err != nil {
			log.Errorf("Failed to write perception_prompt.tmpl: %v", err)
		}
	}

	if req.ReasoningTemplate != "" {
		t, err := template.New("reasoning").Funcs(sprig.FuncMap()).Parse(req.ReasoningTemplate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid reasoning template: %v", err)})
			return
		}
		reasoningTemplate = t
		if err := os.WriteFile(filepath.Join(promptsDir, "reasoning_prompt.tmpl"), []byte(req.ReasoningTemplate), 0644); err != nil {
			log.Errorf("Failed to write reasoning_prompt.tmpl: %v", err)
		}
	}

	c.Status(http.StatusOK)
}

// getSettingsHandler handles the GET /api/settings endpoint
func getSettingsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, getSettings())
}

// updateSettingsHandler handles the POST /api/settings endpoint
func updateSettingsHandler(c *gin.Context) {
	var req Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	if req.AnalysisIntervalMs < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "analysis_interval_ms must not be negative"})
		return
	}
	if req.MaxHintLevel < 0 || req.MaxHintLevel > 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_hint_level must be between 0 and 3"})
		return
	}

	settingsMutex.Lock()
	settings = req
	err := saveSettingsLocked()
	settingsMutex.Unlock()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Error saving settings: %v", err)})
		return
	}

	c.JSON(http.StatusOK, req)
}
