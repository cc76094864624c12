package main

// Decision types returned by the reasoning agent
const (
	DecisionProjectHint     = "PROJECT_HINT"
	DecisionNoInteraction   = "NO_INTERACTION"
	DecisionCheckAnswer     = "CHECK_ANSWER"
	DecisionClearProjection = "CLEAR_PROJECTION"
)

// Question is a single exercise detected on the page. BBox holds normalized
// coordinates (0-1, [x_min, y_min, x_max, y_max]); BBoxPixel is the same box
// converted to the frame's pixel space.
type Question struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	BBox      []float64 `json:"bbox"`
	BBoxPixel []int     `json:"bbox_pixel,omitempty"`
}

// PerceptionReport is the merged situational report produced by the
// perception agent for the latest frame.
type PerceptionReport struct {
	Timestamp                   string            `json:"timestamp"`
	CurrentPageID               string            `json:"current_page_id,omitempty"`
	ActiveQuestionID            string            `json:"active_question_id,omitempty"`
	QuestionsOnPage             []Question        `json:"questions_on_page,omitempty"`
	TimeOnActiveQuestionSeconds float64           `json:"time_on_active_question_seconds,omitempty"`
	IsWriting                   bool              `json:"is_writing"`
	UserAttemptContent          map[string]string `json:"user_attempt_content,omitempty"`
	IsActiveQuestionCompleted   bool              `json:"is_active_question_completed"`
}

// QuestionByID returns the question with the given id, or nil
func (r *PerceptionReport) QuestionByID(id string) *Question {
	for i := range r.QuestionsOnPage {
		if r.QuestionsOnPage[i].ID == id {
			return &r.QuestionsOnPage[i]
		}
	}
	return nil
}

// CheckedQuestion is the verdict for one answered question
type CheckedQuestion struct {
	QuestionID    string `json:"question_id"`
	IsCorrect     bool   `json:"is_correct"`
	ErrorAnalysis string `json:"error_analysis,omitempty"`
}

// QuestionState tracks the tutoring progress of one question across analyses
type QuestionState struct {
	HintLevel      int     `json:"hint_level"`
	LastActionType string  `json:"last_action_type,omitempty"`
	LastActionTime string  `json:"last_action_time,omitempty"`
	Status         string  `json:"status,omitempty"`
	ErrorLog       *string `json:"error_log,omitempty"`
}

// Decision is the reasoning agent's verdict for one analysis cycle
type Decision struct {
	DecisionType          string                   `json:"decision_type"`
	TargetQuestionID      string                   `json:"target_question_id,omitempty"`
	HintLevel             int                      `json:"hint_level,omitempty"`
	ProjectionContent     string                   `json:"projection_content,omitempty"`
	CheckedQuestions      []CheckedQuestion        `json:"checked_questions,omitempty"`
	Reason                string                   `json:"reason,omitempty"`
	UpdatedQuestionStates map[string]QuestionState `json:"updated_question_states,omitempty"`
	FeedbackToPerception  string                   `json:"feedback_to_perception,omitempty"`
}

// ReasoningFeedback is carried from one decision into the next perception
// call so the perception prompt can reference what the assistant last did.
type ReasoningFeedback struct {
	FeedbackToPerception  string                   `json:"feedback_to_perception"`
	UpdatedQuestionStates map[string]QuestionState `json:"updated_question_states,omitempty"`
	LastDecisionType      string                   `json:"last_decision_type,omitempty"`
	LastTargetQuestionID  string                   `json:"last_target_question_id,omitempty"`
}

// Overlay element kinds
const (
	OverlayText      = "text"
	OverlayCheckmark = "checkmark"
)

// Overlay colors (hex, rendered by the projector client)
const (
	colorCyan  = "#00FFFF"
	colorGreen = "#00FF00"
	colorWhite = "#FFFFFF"
)

// OverlayElement is a single drawing instruction in frame pixel space
type OverlayElement struct {
	Kind     string `json:"kind"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Text     string `json:"text,omitempty"`
	FontSize int    `json:"font_size,omitempty"`
	Size     int    `json:"size,omitempty"`
	Color    string `json:"color"`
}

// OverlayPlan tells the projector client what to draw over a black canvas of
// the frame's size. The status sidebar occupies the area right of DividerX.
type OverlayPlan struct {
	Width    int              `json:"width"`
	Height   int              `json:"height"`
	DividerX int              `json:"divider_x"`
	Elements []OverlayElement `json:"elements"`
	Sidebar  []string         `json:"sidebar"`
}

// AnalysisState is the bundle produced by a full analysis cycle
type AnalysisState struct {
	Report   *PerceptionReport `json:"perception_report"`
	Decision *Decision         `json:"decision"`
	Overlay  *OverlayPlan      `json:"overlay"`
}
