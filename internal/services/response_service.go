package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/causalfunnel/cartsurvey/internal/models"
)

// ResponseStore is the persistence surface ResponseService needs.
type ResponseStore interface {
	GetStore(ctx context.Context, shop string) (*models.StoreRecord, error)
	AddResponse(ctx context.Context, resp *models.Response) (*models.Response, error)
	ListResponsesByShop(ctx context.Context, shop string) ([]*models.Response, error)
	UpsertCustomer(ctx context.Context, c *models.Customer) error
}

// AnswerDraft carries one inbound answer with its raw JSON value. The
// storefront sends strings for text/choice/scale answers and bare booleans
// for yes/no questions, so the value is coerced rather than decoded strictly.
type AnswerDraft struct {
	QuestionID string          `json:"question_id"`
	Answer     json.RawMessage `json:"answer"`
}

// CustomerInfo optionally identifies the respondent.
type CustomerInfo struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}

type SubmitRequest struct {
	Shop     string        `json:"shop"`
	Answers  []AnswerDraft `json:"answers"`
	Customer *CustomerInfo `json:"customer"`
}

// ResponseService creates and lists immutable response records. With strict
// mode off (the default) answers are accepted as opaque strings with no
// check against the current survey; the submission path is deliberately not
// transactional with survey edits.
type ResponseService struct {
	store  ResponseStore
	strict bool
	now    func() time.Time
	newID  func() string
}

func NewResponseService(store ResponseStore, strict bool) *ResponseService {
	return &ResponseService{
		store:  store,
		strict: strict,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Submit stores one response for the shop. The shop must exist; nothing is
// persisted otherwise.
func (s *ResponseService) Submit(ctx context.Context, req SubmitRequest) (*models.Response, error) {
	if strings.TrimSpace(req.Shop) == "" {
		return nil, NewInvalidError("Shop is required")
	}
	rec, err := s.store.GetStore(ctx, req.Shop)
	if err != nil {
		return nil, fmt.Errorf("load store %q: %w", req.Shop, err)
	}
	if rec == nil {
		return nil, NewNotFoundError("shop not found")
	}

	answers := make([]models.Answer, 0, len(req.Answers))
	for _, a := range req.Answers {
		if a.QuestionID == "" {
			return nil, NewInvalidError("answer is missing question_id")
		}
		answers = append(answers, models.Answer{QuestionID: a.QuestionID, Answer: CoerceAnswer(a.Answer)})
	}

	if s.strict {
		if err := validateAnswers(rec.Survey, answers); err != nil {
			return nil, err
		}
	}

	resp := &models.Response{
		ID:          s.newID(),
		Shop:        req.Shop,
		Answers:     answers,
		SubmittedAt: s.now(),
	}
	if req.Customer != nil && req.Customer.CustomerID != "" {
		resp.CustomerID = req.Customer.CustomerID
		customer := &models.Customer{
			Shop:       req.Shop,
			CustomerID: req.Customer.CustomerID,
			Email:      req.Customer.Email,
			Name:       req.Customer.Name,
		}
		if err := s.store.UpsertCustomer(ctx, customer); err != nil {
			return nil, fmt.Errorf("save customer %q: %w", customer.CustomerID, err)
		}
	}

	saved, err := s.store.AddResponse(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("save response: %w", err)
	}
	if saved == nil {
		return resp, nil
	}
	return saved, nil
}

// ListForShop returns the shop's responses newest first.
func (s *ResponseService) ListForShop(ctx context.Context, shop string) ([]*models.Response, error) {
	if strings.TrimSpace(shop) == "" {
		return nil, NewInvalidError("Shop parameter is required")
	}
	rec, err := s.store.GetStore(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("load store %q: %w", shop, err)
	}
	if rec == nil {
		return nil, NewNotFoundError("shop not found")
	}
	responses, err := s.store.ListResponsesByShop(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("list responses for %q: %w", shop, err)
	}
	return responses, nil
}

// CoerceAnswer flattens a raw JSON answer value to its stored string form:
// JSON strings keep their value, everything else (booleans, numbers, arrays)
// keeps its compact JSON text. Absent values become the empty string.
func CoerceAnswer(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// validateAnswers enforces the opt-in strict policy: every answer must
// reference a question in the current survey and satisfy that question's
// type. Historical responses are never re-validated.
func validateAnswers(survey *models.Survey, answers []models.Answer) error {
	if survey == nil {
		return NewInvalidError("shop has no survey to answer")
	}
	byID := make(map[string]models.Question, len(survey.Questions))
	for _, q := range survey.Questions {
		byID[q.ID] = q
	}
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			return NewInvalidError(fmt.Sprintf("unknown question_id %q", a.QuestionID))
		}
		if err := validateAnswerForQuestion(q, a.Answer); err != nil {
			return err
		}
	}
	return nil
}

func validateAnswerForQuestion(q models.Question, answer string) error {
	switch q.Type {
	case models.QuestionText:
		return nil
	case models.QuestionMultipleChoice:
		for _, o := range q.Options {
			if answer == o {
				return nil
			}
		}
		return NewInvalidError(fmt.Sprintf("answer %q is not an option of question %q", answer, q.ID))
	case models.QuestionBoolean:
		switch strings.ToLower(answer) {
		case "yes", "no", "true", "false":
			return nil
		}
		return NewInvalidError(fmt.Sprintf("answer %q is not a yes/no value for question %q", answer, q.ID))
	case models.QuestionScale:
		n, err := strconv.Atoi(strings.TrimSpace(answer))
		if err != nil {
			return NewInvalidError(fmt.Sprintf("answer %q is not an integer for scale question %q", answer, q.ID))
		}
		if q.Min == nil || q.Max == nil || n < *q.Min || n > *q.Max {
			return NewInvalidError(fmt.Sprintf("answer %d is outside the scale of question %q", n, q.ID))
		}
		return nil
	}
	return NewInvalidError(fmt.Sprintf("question %q has unknown type %q", q.ID, q.Type))
}
