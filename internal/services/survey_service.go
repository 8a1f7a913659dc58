package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/causalfunnel/cartsurvey/internal/models"
)

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorUnauthorized ErrorCode = "unauthorized"
	ErrorForbidden    ErrorCode = "forbidden"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error  { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewNotFoundError(msg string) error { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// booleanOptions is the canonical yes/no option set forced onto boolean
// questions regardless of client input.
func booleanOptions() []string { return []string{"Yes", "No"} }

// SurveyStore is the persistence surface SurveyService needs. GetStore
// returns (nil, nil) for an unknown shop.
type SurveyStore interface {
	GetStore(ctx context.Context, shop string) (*models.StoreRecord, error)
	UpsertStore(ctx context.Context, rec *models.StoreRecord) (*models.StoreRecord, error)
}

// QuestionDraft is one inbound question before normalization. A draft with an
// ID edits that question in place; a draft without one becomes a new question.
type QuestionDraft struct {
	ID       string   `json:"question_id"`
	Text     string   `json:"question_text"`
	Type     string   `json:"type"`
	Options  []string `json:"options"`
	Min      *int     `json:"min"`
	Max      *int     `json:"max"`
	MinLabel string   `json:"minLabel"`
	MaxLabel string   `json:"maxLabel"`
}

// SurveyDraft is the full inbound save payload. Saves replace the stored
// question list wholesale; there is no per-question update path.
type SurveyDraft struct {
	Shop        string          `json:"shop"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Questions   []QuestionDraft `json:"questions"`
}

type SurveyService struct {
	store SurveyStore
	now   func() time.Time
	newID func() string
}

func NewSurveyService(store SurveyStore) *SurveyService {
	return &SurveyService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Upsert validates the draft and saves it as the shop's single survey.
// Missing shop or survey creates them; an existing survey keeps its id and
// created_at while title, description and questions are replaced. Last
// writer wins on concurrent saves.
func (s *SurveyService) Upsert(ctx context.Context, draft SurveyDraft) (*models.StoreRecord, error) {
	if strings.TrimSpace(draft.Shop) == "" {
		return nil, NewInvalidError("Shop is required")
	}
	questions, err := s.normalizeQuestions(draft.Questions)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.GetStore(ctx, draft.Shop)
	if err != nil {
		return nil, fmt.Errorf("load store %q: %w", draft.Shop, err)
	}
	now := s.now()
	if rec == nil {
		rec = &models.StoreRecord{Shop: draft.Shop, CreatedAt: now}
	}

	survey := &models.Survey{
		ID:          s.newID(),
		Title:       draft.Title,
		Description: draft.Description,
		Questions:   questions,
		CreatedAt:   now,
	}
	if rec.Survey != nil {
		survey.ID = rec.Survey.ID
		survey.CreatedAt = rec.Survey.CreatedAt
	}
	rec.Survey = survey
	rec.UpdatedAt = now

	saved, err := s.store.UpsertStore(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("save store %q: %w", draft.Shop, err)
	}
	if saved == nil {
		return rec, nil
	}
	return saved, nil
}

// GetForShop returns the shop's current survey verbatim, or nil when the
// shop or its survey does not exist.
func (s *SurveyService) GetForShop(ctx context.Context, shop string) (*models.Survey, error) {
	if strings.TrimSpace(shop) == "" {
		return nil, NewInvalidError("Shop parameter is required")
	}
	rec, err := s.store.GetStore(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("load store %q: %w", shop, err)
	}
	if rec == nil || rec.Survey == nil {
		return nil, nil
	}
	return rec.Survey, nil
}

func (s *SurveyService) normalizeQuestions(drafts []QuestionDraft) ([]models.Question, error) {
	questions := make([]models.Question, 0, len(drafts))
	seen := map[string]bool{}
	for i, d := range drafts {
		q, err := s.normalizeQuestion(d)
		if err != nil {
			return nil, NewInvalidError(fmt.Sprintf("question %d: %v", i+1, err))
		}
		if seen[q.ID] {
			return nil, NewInvalidError(fmt.Sprintf("question %d: duplicate question_id %q", i+1, q.ID))
		}
		seen[q.ID] = true
		questions = append(questions, q)
	}
	return questions, nil
}

// normalizeQuestion applies the per-type rules: exactly the fields relevant
// to the declared type survive, everything else is reset. Switching a
// question's type is therefore destructive for the old type's fields.
func (s *SurveyService) normalizeQuestion(d QuestionDraft) (models.Question, error) {
	q := models.Question{ID: strings.TrimSpace(d.ID), Text: strings.TrimSpace(d.Text), Type: models.QuestionType(d.Type)}
	if q.Text == "" {
		return q, errors.New("question_text is required")
	}
	if q.ID == "" {
		q.ID = s.newID()
	}

	switch q.Type {
	case models.QuestionText:
		// No type-specific fields; extra fields are dropped.
	case models.QuestionMultipleChoice:
		if len(d.Options) == 0 {
			return q, errors.New("multiple_choice requires at least one option")
		}
		opts := make([]string, 0, len(d.Options))
		for _, o := range d.Options {
			if strings.TrimSpace(o) == "" {
				return q, errors.New("multiple_choice options must not be blank")
			}
			opts = append(opts, o)
		}
		q.Options = opts
	case models.QuestionBoolean:
		q.Options = booleanOptions()
	case models.QuestionScale:
		if d.Min == nil || d.Max == nil {
			return q, errors.New("scale requires min and max")
		}
		if *d.Min >= *d.Max {
			return q, fmt.Errorf("scale requires min < max (got %d >= %d)", *d.Min, *d.Max)
		}
		mn, mx := *d.Min, *d.Max
		q.Min = &mn
		q.Max = &mx
		q.MinLabel = d.MinLabel
		q.MaxLabel = d.MaxLabel
	default:
		return q, fmt.Errorf("unknown question type %q", d.Type)
	}
	return q, nil
}
