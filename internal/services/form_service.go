package services

import (
	"strconv"

	"github.com/causalfunnel/cartsurvey/internal/models"
)

// QuestionView is one render-ready question for the storefront widget.
type QuestionView struct {
	QuestionID string   `json:"question_id"`
	Text       string   `json:"question_text"`
	Control    string   `json:"control"`
	Options    []string `json:"options,omitempty"`
	Min        int      `json:"min,omitempty"`
	Max        int      `json:"max,omitempty"`
	MinLabel   string   `json:"minLabel,omitempty"`
	MaxLabel   string   `json:"maxLabel,omitempty"`
	Default    string   `json:"default"`
}

// FormView is the fetched-then-rendered storefront payload.
type FormView struct {
	Shop        string         `json:"shop"`
	SurveyID    string         `json:"survey_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Questions   []QuestionView `json:"questions"`
}

// DefaultAnswer returns the initial answer for a question and whether the
// question is renderable at all. Unknown types render nothing.
func DefaultAnswer(q models.Question) (string, bool) {
	switch q.Type {
	case models.QuestionText:
		return "", true
	case models.QuestionMultipleChoice:
		if len(q.Options) == 0 {
			return "", true
		}
		return q.Options[0], true
	case models.QuestionBoolean:
		return "no", true
	case models.QuestionScale:
		if q.Min == nil || q.Max == nil {
			return "", true
		}
		return strconv.Itoa(floorDiv2(*q.Min + *q.Max)), true
	}
	return "", false
}

// floorDiv2 halves v rounding toward negative infinity; Go's integer
// division truncates toward zero, which differs for odd negative sums.
func floorDiv2(v int) int {
	if v < 0 && v%2 != 0 {
		return v/2 - 1
	}
	return v / 2
}

func controlFor(t models.QuestionType) string {
	switch t {
	case models.QuestionText:
		return "text"
	case models.QuestionMultipleChoice:
		return "select"
	case models.QuestionBoolean:
		return "radio"
	case models.QuestionScale:
		return "slider"
	}
	return ""
}

// BuildForm projects a survey into its storefront form view. Questions with
// an unknown type are skipped silently, matching the widget's
// closed-switch-with-default-null dispatch.
func BuildForm(shop string, survey *models.Survey) *FormView {
	view := &FormView{
		Shop:        shop,
		SurveyID:    survey.ID,
		Title:       survey.Title,
		Description: survey.Description,
		Questions:   []QuestionView{},
	}
	for _, q := range survey.Questions {
		def, ok := DefaultAnswer(q)
		if !ok {
			continue
		}
		qv := QuestionView{
			QuestionID: q.ID,
			Text:       q.Text,
			Control:    controlFor(q.Type),
			Options:    q.Options,
			MinLabel:   q.MinLabel,
			MaxLabel:   q.MaxLabel,
			Default:    def,
		}
		if q.Min != nil {
			qv.Min = *q.Min
		}
		if q.Max != nil {
			qv.Max = *q.Max
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}
