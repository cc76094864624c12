package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"sync"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"projection-tutor/vision"
)

// PerceptionAgent extracts the learning situation from desk frames. It keeps
// the last merged report so the model only has to describe changes.
type PerceptionAgent struct {
	vision vision.Provider

	mu    sync.Mutex
	state map[string]interface{}
}

func NewPerceptionAgent(provider vision.Provider) *PerceptionAgent {
	return &PerceptionAgent{vision: provider}
}

// AnalyzeScene runs the perception model over a frame and merges the delta
// report into the previous state. feedback, when present, is the reasoning
// agent's output from the prior cycle.
func (a *PerceptionAgent) AnalyzeScene(ctx context.Context, frame []byte, feedback *ReasoningFeedback) (*PerceptionReport, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("error decoding frame dimensions: %w", err)
	}

	prompt, err := a.buildPrompt(feedback)
	if err != nil {
		return nil, err
	}

	result, err := a.vision.AnalyzeImage(ctx, frame, prompt)
	if err != nil {
		return nil, fmt.Errorf("perception analysis failed: %w", err)
	}
	log.Debugf("Perception raw response: %s", result.Text)

	report, merged, err := a.parseResponse(result.Text, cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.state = merged
	a.mu.Unlock()

	return report, nil
}

// Reset discards the accumulated perception state, forcing the next call to
// request a full report.
func (a *PerceptionAgent) Reset() {
	a.mu.Lock()
	a.state = nil
	a.mu.Unlock()
}

func (a *PerceptionAgent) buildPrompt(feedback *ReasoningFeedback) (string, error) {
	a.mu.Lock()
	previous := a.state
	a.mu.Unlock()

	var previousJSON string
	if previous != nil {
		b, err := json.MarshalIndent(previous, "", "  ")
		if err != nil {
			return "", fmt.Errorf("error marshaling previous perception state: %w", err)
		}
		previousJSON = string(b)
	}

	var feedbackJSON string
	if feedback != nil {
		b, err := json.MarshalIndent(feedback, "", "  ")
		if err != nil {
			return "", fmt.Errorf("error marshaling reasoning feedback: %w", err)
		}
		feedbackJSON = string(b)
	}

	templateMutex.RLock()
	defer templateMutex.RUnlock()

	var promptBuffer bytes.Buffer
	err := perceptionTemplate.Execute(&promptBuffer, map[string]interface{}{
		"PreviousState": previousJSON,
		"Feedback":      feedbackJSON,
	})
	if err != nil {
		return "", fmt.Errorf("error executing perception template: %w", err)
	}
	return promptBuffer.String(), nil
}

// parseResponse parses a delta report and merges it into the previous state.
// Returns the typed report and the merged raw state. A malformed bbox
// invalidates the whole response; the previous state is kept.
func (a *PerceptionAgent) parseResponse(response string, width, height int) (*PerceptionReport, map[string]interface{}, error) {
	jsonStr := vision.ExtractJSON(response)
	if jsonStr == "" {
		return nil, nil, fmt.Errorf("no JSON object in perception response")
	}
	jsonStr = vision.CleanJSONString(jsonStr)

	var delta map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &delta); err != nil {
		return nil, nil, fmt.Errorf("error parsing perception response: %w", err)
	}

	if _, ok := delta["timestamp"]; !ok {
		delta["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	}

	a.mu.Lock()
	previous := a.state
	a.mu.Unlock()

	merged := mergePerceptionState(previous, delta)

	if err := convertQuestionBBoxes(merged, width, height); err != nil {
		return nil, nil, err
	}

	report, err := reportFromState(merged)
	if err != nil {
		return nil, nil, err
	}
	return report, merged, nil
}

// mergePerceptionState overlays a delta report onto the previous full state.
// user_attempt_content merges per question (absent key means unchanged);
// questions_on_page replaces wholesale when present; other fields overwrite.
func mergePerceptionState(previous, delta map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(previous)+len(delta))
	for k, v := range previous {
		merged[k] = v
	}

	// convertQuestionBBoxes writes bbox_pixel into these maps later;
	// retained questions must not alias the stored state.
	if questions, ok := merged["questions_on_page"].([]interface{}); ok {
		merged["questions_on_page"] = copyQuestionList(questions)
	}

	attempts := make(map[string]interface{})
	if prev, ok := merged["user_attempt_content"].(map[string]interface{}); ok {
		for k, v := range prev {
			attempts[k] = v
		}
	}
	if upd, ok := delta["user_attempt_content"].(map[string]interface{}); ok {
		for k, v := range upd {
			attempts[k] = v
		}
	}
	if len(attempts) > 0 {
		merged["user_attempt_content"] = attempts
	}

	for k, v := range delta {
		if k == "user_attempt_content" {
			continue
		}
		merged[k] = v
	}
	return merged
}

func copyQuestionList(questions []interface{}) []interface{} {
	copied := make([]interface{}, len(questions))
	for i, q := range questions {
		qm, ok := q.(map[string]interface{})
		if !ok {
			copied[i] = q
			continue
		}
		qc := make(map[string]interface{}, len(qm))
		for k, v := range qm {
			qc[k] = v
		}
		copied[i] = qc
	}
	return copied
}

// convertQuestionBBoxes validates normalized bboxes and attaches pixel-space
// boxes for the given frame size
func convertQuestionBBoxes(state map[string]interface{}, width, height int) error {
	questions, ok := state["questions_on_page"].([]interface{})
	if !ok {
		return nil
	}

	for _, q := range questions {
		question, ok := q.(map[string]interface{})
		if !ok {
			return fmt.Errorf("malformed question entry in perception response")
		}
		bbox, ok := question["bbox"].([]interface{})
		if !ok || len(bbox) < 4 {
			return fmt.Errorf("missing bbox in perception response")
		}

		coords := make([]float64, 4)
		for i := 0; i < 4; i++ {
			f, ok := bbox[i].(float64)
			if !ok {
				return fmt.Errorf("non-numeric bbox coordinate in perception response")
			}
			coords[i] = f
		}

		x1, y1, x2, y2 := coords[0], coords[1], coords[2], coords[3]
		if x1 < 0 || x1 > 1 || y1 < 0 || y1 > 1 || x2 < 0 || x2 > 1 || y2 < 0 || y2 > 1 || x1 >= x2 || y1 >= y2 {
			return fmt.Errorf("bbox outside normalized range in perception response")
		}

		question["bbox_pixel"] = []interface{}{
			float64(int(x1 * float64(width))),
			float64(int(y1 * float64(height))),
			float64(int(x2 * float64(width))),
			float64(int(y2 * float64(height))),
		}
	}
	return nil
}

func reportFromState(state map[string]interface{}) (*PerceptionReport, error) {
	b, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("error marshaling perception state: %w", err)
	}
	var report PerceptionReport
	if err := json.Unmarshal(b, &report); err != nil {
		return nil, fmt.Errorf("error decoding perception state: %w", err)
	}
	return &report, nil
}
