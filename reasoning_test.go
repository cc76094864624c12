package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport() *PerceptionReport {
	return &PerceptionReport{
		Timestamp:        "2026-08-29T10:00:00Z",
		CurrentPageID:    "page_12",
		ActiveQuestionID: "第12页-第1题",
		QuestionsOnPage: []Question{
			{
				ID:        "第12页-第1题",
				Text:      "1. 计算：2x + 3",
				BBox:      []float64{0.25, 0.25, 0.75, 0.5},
				BBoxPixel: []int{160, 120, 480, 240},
			},
		},
		UserAttemptContent: map[string]string{"第12页-第1题": "2x"},
	}
}

func TestReasoningWritingGuard(t *testing.T) {
	setupTestTemplates(t)
	setTestSettings(t, Settings{MaxHintLevel: 3, AnswerCheckEnabled: true})

	mock := &mockVision{responses: []string{"should never be called"}}
	agent := NewReasoningAgent(mock)

	report := testReport()
	report.IsWriting = true

	decision, err := agent.MakeDecision(context.Background(), report, makeTestFrame(t, 64, 64))
	require.NoError(t, err)
	assert.Equal(t, DecisionClearProjection, decision.DecisionType)
	assert.Equal(t, "用户正在书写", decision.Reason)
	assert.Zero(t, mock.calls)
}

func TestReasoningNoActiveQuestionGuard(t *testing.T) {
	setupTestTemplates(t)
	setTestSettings(t, Settings{MaxHintLevel: 3, AnswerCheckEnabled: true})

	mock := &mockVision{responses: []string{"should never be called"}}
	agent := NewReasoningAgent(mock)

	report := testReport()
	report.ActiveQuestionID = ""

	decision, err := agent.MakeDecision(context.Background(), report, makeTestFrame(t, 64, 64))
	require.NoError(t, err)
	assert.Equal(t, DecisionNoInteraction, decision.DecisionType)
	assert.Equal(t, "无活跃题目", decision.Reason)
	assert.Zero(t, mock.calls)
}

func TestReasoningNilReport(t *testing.T) {
	agent := NewReasoningAgent(&mockVision{})
	_, err := agent.MakeDecision(context.Background(), nil, nil)
	require.Error(t, err)
}

func TestReasoningProjectHintDecision(t *testing.T) {
	setupTestTemplates(t)
	setTestSettings(t, Settings{MaxHintLevel: 3, AnswerCheckEnabled: true})

	response := `{
  "decision_type": "PROJECT_HINT",
  "target_question_id": "第12页-第1题",
  "hint_level": 1,
  "projection_content": "提示：先合并同类项",
  "reason": "用户停留超过30秒",
  "updated_question_states": {
    "第12页-第1题": {"hint_level": 1, "last_action_type": "PROJECT_HINT", "status": "in_progress"}
  },
  "feedback_to_perception": "关注第1题的作答区域"
}`
	mock := &mockVision{responses: []string{response}}
	agent := NewReasoningAgent(mock)

	decision, err := agent.MakeDecision(context.Background(), testReport(), makeTestFrame(t, 64, 64))
	require.NoError(t, err)

	assert.Equal(t, DecisionProjectHint, decision.DecisionType)
	assert.Equal(t, "第12页-第1题", decision.TargetQuestionID)
	assert.Equal(t, 1, decision.HintLevel)
	assert.Equal(t, "提示：先合并同类项", decision.ProjectionContent)

	// The prompt embeds the perception report
	assert.Contains(t, mock.lastPrompt(), "第12页-第1题")
	assert.Contains(t, mock.lastPrompt(), "user_attempt_content")

	// Question states were merged
	states := agent.QuestionStates()
	require.Contains(t, states, "第12页-第1题")
	assert.Equal(t, 1, states["第12页-第1题"].HintLevel)
	assert.Equal(t, "in_progress", states["第12页-第1题"].Status)
}

func TestReasoningUnknownDecisionType(t *testing.T) {
	setupTestTemplates(t)
	setTestSettings(t, Settings{MaxHintLevel: 3, AnswerCheckEnabled: true})

	mock := &mockVision{responses: []string{`{"decision_type": "DO_SOMETHING"}`}}
	agent := NewReasoningAgent(mock)

	_, err := agent.MakeDecision(context.Background(), testReport(), makeTestFrame(t, 64, 64))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown decision type")
}

func TestReasoningMessyResponseRepaired(t *testing.T) {
	setupTestTemplates(t)
	setTestSettings(t, Settings{MaxHintLevel: 3, AnswerCheckEnabled: true})

	mock := &mockVision{responses: []string{
		"好的，我来分析。{\"decision_type\": \"NO_INTERACTION\", \"reason\": \"进展顺利\",}",
	}}
	agent := NewReasoningAgent(mock)

	decision, err := agent.MakeDecision(context.Background(), testReport(), makeTestFrame(t, 64, 64))
	require.NoError(t, err)
	assert.Equal(t, DecisionNoInteraction, decision.DecisionType)
	assert.Equal(t, "进展顺利", decision.Reason)
}

func TestApplySettingsPolicyAnswerCheckDisabled(t *testing.T) {
	setTestSettings(t, Settings{MaxHintLevel: 3, AnswerCheckEnabled: false})

	decision := applySettingsPolicy(&Decision{
		DecisionType: DecisionCheckAnswer,
		CheckedQuestions: []CheckedQuestion{
			{QuestionID: "第12页-第1题", IsCorrect: true},
		},
	})
	assert.Equal(t, DecisionNoInteraction, decision.DecisionType)
	assert.Equal(t, "答案检查已关闭", decision.Reason)
	assert.Empty(t, decision.CheckedQuestions)
}

func TestApplySettingsPolicyHintClamp(t *testing.T) {
	setTestSettings(t, Settings{MaxHintLevel: 2, AnswerCheckEnabled: true})

	decision := applySettingsPolicy(&Decision{
		DecisionType: DecisionProjectHint,
		HintLevel:    3,
	})
	assert.Equal(t, 2, decision.HintLevel)

	decision = applySettingsPolicy(&Decision{
		DecisionType: DecisionProjectHint,
		HintLevel:    1,
	})
	assert.Equal(t, 1, decision.HintLevel)
}

func TestFeedbackFromDecision(t *testing.T) {
	assert.Nil(t, FeedbackFromDecision(nil))
	assert.Nil(t, FeedbackFromDecision(&Decision{DecisionType: DecisionNoInteraction}))

	feedback := FeedbackFromDecision(&Decision{
		DecisionType:         DecisionProjectHint,
		TargetQuestionID:     "第12页-第1题",
		FeedbackToPerception: "关注第1题",
		UpdatedQuestionStates: map[string]QuestionState{
			"第12页-第1题": {HintLevel: 1},
		},
	})
	require.NotNil(t, feedback)
	assert.Equal(t, "关注第1题", feedback.FeedbackToPerception)
	assert.Equal(t, DecisionProjectHint, feedback.LastDecisionType)
	assert.Equal(t, "第12页-第1题", feedback.LastTargetQuestionID)
	require.Contains(t, feedback.UpdatedQuestionStates, "第12页-第1题")
}
