package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"time"
)

// SetLatestFrame stores an uploaded frame in the latest-frame cache
func (app *App) SetLatestFrame(frame []byte) {
	app.latestFrameMu.Lock()
	defer app.latestFrameMu.Unlock()
	app.latestFrame = frame
}

// LatestFrame returns the most recently uploaded frame, or nil
func (app *App) LatestFrame() []byte {
	app.latestFrameMu.Lock()
	defer app.latestFrameMu.Unlock()
	return app.latestFrame
}

// CurrentState returns the output of the most recent analysis cycle
func (app *App) CurrentState() AnalysisState {
	app.dataMu.RLock()
	defer app.dataMu.RUnlock()
	return app.current
}

// AnalyzeFrame runs one full analysis cycle over a frame: perception,
// reasoning, overlay planning, then publishes the result and persists a
// history record.
func (app *App) AnalyzeFrame(ctx context.Context, frame []byte) (*AnalysisState, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("error decoding frame: %w", err)
	}

	app.dataMu.RLock()
	feedback := app.feedback
	app.dataMu.RUnlock()

	report, err := app.Perception.AnalyzeScene(ctx, frame, feedback)
	if err != nil {
		return nil, fmt.Errorf("error analyzing scene: %w", err)
	}
	log.WithField("active_question", report.ActiveQuestionID).Debug("Perception report ready")

	decision, err := app.Reasoning.MakeDecision(ctx, report, frame)
	if err != nil {
		return nil, fmt.Errorf("error making decision: %w", err)
	}
	log.WithField("decision_type", decision.DecisionType).Debug("Decision ready")

	overlay := BuildOverlayPlan(report, decision, cfg.Width, cfg.Height)

	state := AnalysisState{
		Report:   report,
		Decision: decision,
		Overlay:  overlay,
	}

	app.dataMu.Lock()
	app.current = state
	if fb := FeedbackFromDecision(decision); fb != nil {
		app.feedback = fb
	}
	app.dataMu.Unlock()

	if err := app.persistAnalysis(report, decision); err != nil {
		// History is best effort; the cycle itself succeeded
		log.WithError(err).Warn("Failed to persist analysis record")
	}

	return &state, nil
}

func (app *App) persistAnalysis(report *PerceptionReport, decision *Decision) error {
	if app.Database == nil {
		return nil
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("error marshaling report: %w", err)
	}
	decisionJSON, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("error marshaling decision: %w", err)
	}

	record := AnalysisRecord{
		CreatedAt:         time.Now(),
		ActiveQuestionID:  report.ActiveQuestionID,
		DecisionType:      decision.DecisionType,
		TargetQuestionID:  decision.TargetQuestionID,
		ProjectionContent: decision.ProjectionContent,
		PerceptionJSON:    string(reportJSON),
		DecisionJSON:      string(decisionJSON),
	}
	return InsertAnalysisRecord(app.Database, record)
}
