package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"projection-tutor/vision"
)

// ReasoningAgent decides whether and how to interact with the student based
// on the perception report and the current frame.
type ReasoningAgent struct {
	vision vision.Provider

	mu             sync.Mutex
	questionStates map[string]QuestionState
}

func NewReasoningAgent(provider vision.Provider) *ReasoningAgent {
	return &ReasoningAgent{
		vision:         provider,
		questionStates: make(map[string]QuestionState),
	}
}

// MakeDecision produces a decision for the current cycle. The hard
// non-intrusiveness rules are enforced locally and short-circuit the model
// call entirely.
func (a *ReasoningAgent) MakeDecision(ctx context.Context, report *PerceptionReport, frame []byte) (*Decision, error) {
	if report == nil {
		return nil, fmt.Errorf("no perception report")
	}

	// Writing always silences the projector. Highest priority rule.
	if report.IsWriting {
		return &Decision{
			DecisionType: DecisionClearProjection,
			Reason:       "用户正在书写",
		}, nil
	}

	if report.ActiveQuestionID == "" {
		return &Decision{
			DecisionType: DecisionNoInteraction,
			Reason:       "无活跃题目",
		}, nil
	}

	prompt, err := buildReasoningPrompt(report)
	if err != nil {
		return nil, err
	}

	result, err := a.vision.AnalyzeImage(ctx, frame, prompt)
	if err != nil {
		return nil, fmt.Errorf("reasoning decision failed: %w", err)
	}
	log.Debugf("Reasoning raw response: %s", result.Text)

	decision, err := parseDecisionResponse(result.Text)
	if err != nil {
		return nil, err
	}

	a.mergeQuestionStates(decision.UpdatedQuestionStates)

	return applySettingsPolicy(decision), nil
}

// applySettingsPolicy enforces the operator's runtime limits on a decision
func applySettingsPolicy(decision *Decision) *Decision {
	s := getSettings()
	if decision.DecisionType == DecisionCheckAnswer && !s.AnswerCheckEnabled {
		return &Decision{
			DecisionType: DecisionNoInteraction,
			Reason:       "答案检查已关闭",
		}
	}
	if decision.DecisionType == DecisionProjectHint && s.MaxHintLevel > 0 && decision.HintLevel > s.MaxHintLevel {
		decision.HintLevel = s.MaxHintLevel
	}
	return decision
}

// QuestionStates returns a copy of the tracked per-question tutoring states
func (a *ReasoningAgent) QuestionStates() map[string]QuestionState {
	a.mu.Lock()
	defer a.mu.Unlock()

	states := make(map[string]QuestionState, len(a.questionStates))
	for id, state := range a.questionStates {
		states[id] = state
	}
	return states
}

func (a *ReasoningAgent) mergeQuestionStates(updated map[string]QuestionState) {
	if len(updated) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, state := range updated {
		a.questionStates[id] = state
	}
}

func buildReasoningPrompt(report *PerceptionReport) (string, error) {
	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error marshaling perception report: %w", err)
	}

	// Long attempt histories can blow up the prompt; keep it under the
	// configured token budget.
	reportStr, err := truncateContentByTokens(string(reportJSON))
	if err != nil {
		return "", err
	}

	templateMutex.RLock()
	defer templateMutex.RUnlock()

	var promptBuffer bytes.Buffer
	err = reasoningTemplate.Execute(&promptBuffer, map[string]interface{}{
		"Report": reportStr,
	})
	if err != nil {
		return "", fmt.Errorf("error executing reasoning template: %w", err)
	}
	return promptBuffer.String(), nil
}

func parseDecisionResponse(response string) (*Decision, error) {
	jsonStr := vision.ExtractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON object in reasoning response")
	}
	jsonStr = vision.CleanJSONString(jsonStr)

	var decision Decision
	if err := json.Unmarshal([]byte(jsonStr), &decision); err != nil {
		return nil, fmt.Errorf("error parsing reasoning response: %w", err)
	}

	switch decision.DecisionType {
	case DecisionProjectHint, DecisionNoInteraction, DecisionCheckAnswer, DecisionClearProjection:
	default:
		return nil, fmt.Errorf("unknown decision type: %q", decision.DecisionType)
	}

	return &decision, nil
}

// FeedbackFromDecision packages the parts of a decision the next perception
// call should know about. Returns nil when the decision carries no feedback.
func FeedbackFromDecision(decision *Decision) *ReasoningFeedback {
	if decision == nil || decision.FeedbackToPerception == "" {
		return nil
	}
	return &ReasoningFeedback{
		FeedbackToPerception:  decision.FeedbackToPerception,
		UpdatedQuestionStates: decision.UpdatedQuestionStates,
		LastDecisionType:      decision.DecisionType,
		LastTargetQuestionID:  decision.TargetQuestionID,
	}
}
