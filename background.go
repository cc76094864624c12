package main

import (
	"context"
	"time"
)

// AnalysisRunner is the part of App the scheduler needs, split out to enable
// proper testing
type AnalysisRunner interface {
	AnalyzeFrame(ctx context.Context, frame []byte) (*AnalysisState, error)
	LatestFrame() []byte
	tryBeginAnalysis() bool
	finishAnalysis()
}

// tryBeginAnalysis claims the analysis slot when no analysis is in flight
// and the configured interval has elapsed since the last one finished
func (app *App) tryBeginAnalysis() bool {
	app.analysisMu.Lock()
	defer app.analysisMu.Unlock()
	if app.analyzing {
		return false
	}
	if time.Since(app.lastAnalysisDone) < currentAnalysisInterval() {
		return false
	}
	app.analyzing = true
	return true
}

func (app *App) finishAnalysis() {
	app.analysisMu.Lock()
	defer app.analysisMu.Unlock()
	app.analyzing = false
	app.lastAnalysisDone = time.Now()
}

// StartAnalysisScheduler runs the continuous analysis loop in a goroutine.
// Whenever a frame is available, no analysis is in flight and the pacing
// interval has elapsed, the latest frame goes through the two-agent
// pipeline. Repeated failures back off exponentially.
func StartAnalysisScheduler(ctx context.Context, app AnalysisRunner) {
	go func() {
		minBackoffDuration := 10 * time.Second
		maxBackoffDuration := time.Hour
		pollInterval := 100 * time.Millisecond

		backoffDuration := minBackoffDuration

		for {
			select {
			case <-ctx.Done():
				log.Infoln("Analysis scheduler shutting down")
				return
			case <-time.After(pollInterval):
			}

			frame := app.LatestFrame()
			if frame == nil {
				continue
			}

			if !app.tryBeginAnalysis() {
				continue
			}

			_, err := app.AnalyzeFrame(ctx, frame)
			app.finishAnalysis()

			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Errorf("Error in analysis cycle: %v", err)

				select {
				case <-ctx.Done():
					return
				case <-time.After(backoffDuration):
				}

				// Exponential backoff logic
				backoffDuration *= 2
				if backoffDuration > maxBackoffDuration {
					log.Warnf("Max backoff duration reached. Using %v", maxBackoffDuration)
					backoffDuration = maxBackoffDuration
				}
			} else {
				// Reset backoff when a cycle succeeds
				backoffDuration = minBackoffDuration
			}
		}
	}()
}
