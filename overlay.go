package main

import "fmt"

const (
	hintFontSize    = 18
	sidebarFontSize = 13
	checkmarkSize   = 30
	sidebarMaxRunes = 20
)

// BuildOverlayPlan converts a perception report and decision into drawing
// instructions for the projector client. The plan covers a black canvas of
// the frame's size; a divider at 90% width separates the status sidebar.
func BuildOverlayPlan(report *PerceptionReport, decision *Decision, width, height int) *OverlayPlan {
	plan := &OverlayPlan{
		Width:    width,
		Height:   height,
		DividerX: width * 9 / 10,
		Elements: []OverlayElement{},
		Sidebar:  []string{},
	}

	if report == nil {
		return plan
	}

	if decision != nil {
		switch decision.DecisionType {
		case DecisionProjectHint:
			if decision.ProjectionContent != "" {
				plan.Elements = append(plan.Elements, hintElement(report, decision, width, height))
			}
		case DecisionCheckAnswer:
			plan.Elements = append(plan.Elements, checkAnswerElements(report, decision, width, height)...)
		case DecisionClearProjection, DecisionNoInteraction:
			// nothing projected; the reason shows up in the sidebar
		}

		plan.Sidebar = append(plan.Sidebar, decision.DecisionType)
		if decision.Reason != "" {
			plan.Sidebar = append(plan.Sidebar, truncateRunes(decision.Reason, sidebarMaxRunes))
		}
	}

	if report.IsWriting {
		plan.Sidebar = append(plan.Sidebar, "书写中")
	} else {
		plan.Sidebar = append(plan.Sidebar, "空闲")
	}
	if report.TimeOnActiveQuestionSeconds > 0 {
		plan.Sidebar = append(plan.Sidebar, fmt.Sprintf("%ds", int(report.TimeOnActiveQuestionSeconds)))
	}

	return plan
}

// hintElement places the hint text below the target question, falling back
// to the canvas center when the question is unknown
func hintElement(report *PerceptionReport, decision *Decision, width, height int) OverlayElement {
	x, y := width/2-100, height/2
	if q := report.QuestionByID(decision.TargetQuestionID); q != nil && len(q.BBoxPixel) >= 4 {
		x = q.BBoxPixel[0]
		y = q.BBoxPixel[3] + 20
	}
	return OverlayElement{
		Kind:     OverlayText,
		X:        x,
		Y:        y,
		Text:     decision.ProjectionContent,
		FontSize: hintFontSize,
		Color:    colorCyan,
	}
}

// checkAnswerElements draws one verdict per checked question: a checkmark
// below the question when correct, the error analysis text when not
func checkAnswerElements(report *PerceptionReport, decision *Decision, width, height int) []OverlayElement {
	var elements []OverlayElement
	for _, checked := range decision.CheckedQuestions {
		q := report.QuestionByID(checked.QuestionID)

		if checked.IsCorrect {
			x, y := width/2-checkmarkSize/2, height/2
			if q != nil && len(q.BBoxPixel) >= 4 {
				x = q.BBoxPixel[0]
				y = q.BBoxPixel[3] + 30
			}
			elements = append(elements, OverlayElement{
				Kind:  OverlayCheckmark,
				X:     x,
				Y:     y,
				Size:  checkmarkSize,
				Color: colorGreen,
			})
			continue
		}

		if checked.ErrorAnalysis == "" {
			continue
		}
		x, y := width/2-100, height/2
		if q != nil && len(q.BBoxPixel) >= 4 {
			x = q.BBoxPixel[0]
			y = q.BBoxPixel[3] + 20
		}
		elements = append(elements, OverlayElement{
			Kind:     OverlayText,
			X:        x,
			Y:        y,
			Text:     checked.ErrorAnalysis,
			FontSize: hintFontSize,
			Color:    colorWhite,
		})
	}
	return elements
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
