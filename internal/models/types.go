package models

import "time"

// QuestionType tags the closed set of supported question kinds. Fields on
// Question outside the matching tag are zeroed during normalization.
type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionBoolean        QuestionType = "boolean"
	QuestionScale          QuestionType = "scale"
)

// KnownQuestionType reports whether t belongs to the closed type set.
func KnownQuestionType(t QuestionType) bool {
	switch t {
	case QuestionText, QuestionMultipleChoice, QuestionBoolean, QuestionScale:
		return true
	}
	return false
}

// Question is one survey item. Ids are opaque strings: server-assigned ids
// are UUIDs, client-supplied ids (including legacy ObjectId hex) are kept
// verbatim so historical responses stay resolvable across edits.
type Question struct {
	ID       string       `json:"question_id" bson:"question_id"`
	Text     string       `json:"question_text" bson:"question_text"`
	Type     QuestionType `json:"type" bson:"type"`
	Options  []string     `json:"options,omitempty" bson:"options,omitempty"`
	Min      *int         `json:"min,omitempty" bson:"min,omitempty"`
	Max      *int         `json:"max,omitempty" bson:"max,omitempty"`
	MinLabel string       `json:"minLabel,omitempty" bson:"min_label,omitempty"`
	MaxLabel string       `json:"maxLabel,omitempty" bson:"max_label,omitempty"`
}

// Survey is the ordered question list owned by one store record. survey_id
// and created_at are assigned once and survive full-replace saves.
type Survey struct {
	ID          string     `json:"survey_id" bson:"survey_id"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	Questions   []Question `json:"questions" bson:"questions"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
}

// StoreRecord binds a shop to at most one survey. The shop domain is the
// tenant key for everything else.
type StoreRecord struct {
	Shop      string    `json:"shop" bson:"shop"`
	Survey    *Survey   `json:"survey,omitempty" bson:"survey,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Answer pairs a question id with the respondent's answer. Answers are kept
// as opaque strings regardless of the originating question type.
type Answer struct {
	QuestionID string `json:"question_id" bson:"question_id"`
	Answer     string `json:"answer" bson:"answer"`
}

// Response is one respondent's full submission. Immutable once stored; its
// question ids may reference questions that were later edited or deleted.
type Response struct {
	ID          string    `json:"response_id" bson:"response_id"`
	Shop        string    `json:"shop" bson:"shop"`
	CustomerID  string    `json:"customer_id,omitempty" bson:"customer_id,omitempty"`
	Answers     []Answer  `json:"answers" bson:"answers"`
	SubmittedAt time.Time `json:"submitted_at" bson:"submitted_at"`
}

// Customer is an optional respondent identity; anonymous submissions carry
// none.
type Customer struct {
	Shop       string `json:"shop" bson:"shop"`
	CustomerID string `json:"customer_id" bson:"customer_id"`
	Email      string `json:"email,omitempty" bson:"email,omitempty"`
	Name       string `json:"name,omitempty" bson:"name,omitempty"`
}
