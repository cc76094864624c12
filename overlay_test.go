package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlayHintBelowQuestion(t *testing.T) {
	report := testReport()
	decision := &Decision{
		DecisionType:      DecisionProjectHint,
		TargetQuestionID:  "第12页-第1题",
		HintLevel:         1,
		ProjectionContent: "提示：先合并同类项",
		Reason:            "用户停留超过30秒",
	}

	plan := BuildOverlayPlan(report, decision, 640, 480)

	assert.Equal(t, 640, plan.Width)
	assert.Equal(t, 480, plan.Height)
	assert.Equal(t, 576, plan.DividerX)

	require.Len(t, plan.Elements, 1)
	hint := plan.Elements[0]
	assert.Equal(t, OverlayText, hint.Kind)
	assert.Equal(t, 160, hint.X)
	assert.Equal(t, 260, hint.Y)
	assert.Equal(t, "提示：先合并同类项", hint.Text)
	assert.Equal(t, hintFontSize, hint.FontSize)
	assert.Equal(t, colorCyan, hint.Color)
}

func TestOverlayHintCenterFallback(t *testing.T) {
	report := testReport()
	decision := &Decision{
		DecisionType:      DecisionProjectHint,
		TargetQuestionID:  "第12页-第9题",
		ProjectionContent: "提示",
	}

	plan := BuildOverlayPlan(report, decision, 640, 480)
	require.Len(t, plan.Elements, 1)
	assert.Equal(t, 220, plan.Elements[0].X)
	assert.Equal(t, 240, plan.Elements[0].Y)
}

func TestOverlayCheckAnswer(t *testing.T) {
	report := testReport()
	decision := &Decision{
		DecisionType: DecisionCheckAnswer,
		CheckedQuestions: []CheckedQuestion{
			{QuestionID: "第12页-第1题", IsCorrect: true},
			{QuestionID: "第12页-第2题", IsCorrect: false, ErrorAnalysis: "符号错误"},
		},
	}

	plan := BuildOverlayPlan(report, decision, 640, 480)
	require.Len(t, plan.Elements, 2)

	mark := plan.Elements[0]
	assert.Equal(t, OverlayCheckmark, mark.Kind)
	assert.Equal(t, 160, mark.X)
	assert.Equal(t, 270, mark.Y)
	assert.Equal(t, checkmarkSize, mark.Size)
	assert.Equal(t, colorGreen, mark.Color)

	// Unknown question falls back to center for the error text
	errText := plan.Elements[1]
	assert.Equal(t, OverlayText, errText.Kind)
	assert.Equal(t, "符号错误", errText.Text)
	assert.Equal(t, colorWhite, errText.Color)
	assert.Equal(t, 220, errText.X)
	assert.Equal(t, 240, errText.Y)
}

func TestOverlayIncorrectWithoutAnalysisSkipped(t *testing.T) {
	decision := &Decision{
		DecisionType: DecisionCheckAnswer,
		CheckedQuestions: []CheckedQuestion{
			{QuestionID: "第12页-第1题", IsCorrect: false},
		},
	}
	plan := BuildOverlayPlan(testReport(), decision, 640, 480)
	assert.Empty(t, plan.Elements)
}

func TestOverlayClearProjection(t *testing.T) {
	report := testReport()
	report.IsWriting = true
	report.TimeOnActiveQuestionSeconds = 42
	decision := &Decision{
		DecisionType: DecisionClearProjection,
		Reason:       "用户正在书写",
	}

	plan := BuildOverlayPlan(report, decision, 640, 480)
	assert.Empty(t, plan.Elements)
	assert.Equal(t, []string{"CLEAR_PROJECTION", "用户正在书写", "书写中", "42s"}, plan.Sidebar)
}

func TestOverlaySidebarReasonTruncated(t *testing.T) {
	decision := &Decision{
		DecisionType: DecisionNoInteraction,
		Reason:       "这是一条特别长的原因说明文本它超过了侧栏允许的最大宽度限制",
	}
	plan := BuildOverlayPlan(testReport(), decision, 640, 480)
	require.GreaterOrEqual(t, len(plan.Sidebar), 2)
	assert.Equal(t, "这是一条特别长的原因说明文本它超过了侧栏...", plan.Sidebar[1])
}

func TestOverlayNilReport(t *testing.T) {
	plan := BuildOverlayPlan(nil, nil, 640, 480)
	assert.Empty(t, plan.Elements)
	assert.Empty(t, plan.Sidebar)
	assert.Equal(t, 576, plan.DividerX)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "短文本", truncateRunes("短文本", 20))
	assert.Equal(t, "abcde...", truncateRunes("abcdefgh", 5))
	assert.Equal(t, "", truncateRunes("", 5))
}
