package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/causalfunnel/cartsurvey/internal/models"
)

type stubResponseStore struct {
	records   map[string]*models.StoreRecord
	responses []*models.Response
	customers []*models.Customer
}

func newStubResponseStore() *stubResponseStore {
	return &stubResponseStore{records: map[string]*models.StoreRecord{}}
}

func (s *stubResponseStore) GetStore(_ context.Context, shop string) (*models.StoreRecord, error) {
	return s.records[shop], nil
}

func (s *stubResponseStore) AddResponse(_ context.Context, resp *models.Response) (*models.Response, error) {
	s.responses = append(s.responses, resp)
	return resp, nil
}

func (s *stubResponseStore) ListResponsesByShop(_ context.Context, shop string) ([]*models.Response, error) {
	out := []*models.Response{}
	for i := len(s.responses) - 1; i >= 0; i-- {
		if s.responses[i].Shop == shop {
			out = append(out, s.responses[i])
		}
	}
	return out, nil
}

func (s *stubResponseStore) UpsertCustomer(_ context.Context, c *models.Customer) error {
	s.customers = append(s.customers, c)
	return nil
}

func newTestResponseService(store ResponseStore, strict bool) *ResponseService {
	svc := NewResponseService(store, strict)
	svc.now = func() time.Time { return time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC) }
	n := 0
	svc.newID = func() string { n++; return fmt.Sprintf("resp-%d", n) }
	return svc
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestSubmitUnknownShopPersistsNothing(t *testing.T) {
	store := newStubResponseStore()
	svc := newTestResponseService(store, false)

	_, err := svc.Submit(context.Background(), SubmitRequest{
		Shop:    "ghost.myshopify.com",
		Answers: []AnswerDraft{{QuestionID: "q1", Answer: raw(`"hi"`)}},
	})
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
	if len(store.responses) != 0 || len(store.customers) != 0 {
		t.Fatalf("nothing should be persisted, got %d responses %d customers",
			len(store.responses), len(store.customers))
	}
}

func TestSubmitStoresOpaqueAnswersInOrder(t *testing.T) {
	store := newStubResponseStore()
	store.records["demo.myshopify.com"] = &models.StoreRecord{Shop: "demo.myshopify.com"}
	svc := newTestResponseService(store, false)

	// The storefront sends strings for text/choice/scale answers and bare
	// booleans for yes/no questions.
	resp, err := svc.Submit(context.Background(), SubmitRequest{
		Shop: "demo.myshopify.com",
		Answers: []AnswerDraft{
			{QuestionID: "q-text", Answer: raw(`"loved it"`)},
			{QuestionID: "q-bool", Answer: raw(`true`)},
			{QuestionID: "q-scale", Answer: raw(`"4"`)},
			{QuestionID: "q-num", Answer: raw(`7`)},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := []models.Answer{
		{QuestionID: "q-text", Answer: "loved it"},
		{QuestionID: "q-bool", Answer: "true"},
		{QuestionID: "q-scale", Answer: "4"},
		{QuestionID: "q-num", Answer: "7"},
	}
	if len(resp.Answers) != len(want) {
		t.Fatalf("expected %d answers, got %d", len(want), len(resp.Answers))
	}
	for i, a := range resp.Answers {
		if a != want[i] {
			t.Fatalf("answer %d: got %+v want %+v", i, a, want[i])
		}
	}
	if resp.ID == "" || resp.SubmittedAt.IsZero() {
		t.Fatalf("missing id or timestamp: %+v", resp)
	}
	if resp.CustomerID != "" {
		t.Fatalf("anonymous submission should have no customer: %+v", resp)
	}
}

func TestSubmitUpsertsCustomerIdentity(t *testing.T) {
	store := newStubResponseStore()
	store.records["demo.myshopify.com"] = &models.StoreRecord{Shop: "demo.myshopify.com"}
	svc := newTestResponseService(store, false)

	resp, err := svc.Submit(context.Background(), SubmitRequest{
		Shop:     "demo.myshopify.com",
		Answers:  []AnswerDraft{{QuestionID: "q1", Answer: raw(`"ok"`)}},
		Customer: &CustomerInfo{CustomerID: "cust-9", Email: "c@example.com", Name: "C"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.CustomerID != "cust-9" {
		t.Fatalf("customer id not linked: %+v", resp)
	}
	if len(store.customers) != 1 || store.customers[0].Email != "c@example.com" {
		t.Fatalf("customer not upserted: %+v", store.customers)
	}
}

func TestSubmitRejectsAnswerWithoutQuestionID(t *testing.T) {
	store := newStubResponseStore()
	store.records["demo.myshopify.com"] = &models.StoreRecord{Shop: "demo.myshopify.com"}
	svc := newTestResponseService(store, false)

	_, err := svc.Submit(context.Background(), SubmitRequest{
		Shop:    "demo.myshopify.com",
		Answers: []AnswerDraft{{Answer: raw(`"orphan"`)}},
	})
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorInvalid {
		t.Fatalf("expected invalid, got %v", err)
	}
}

func TestSubmitAcceptsStaleQuestionIDsByDefault(t *testing.T) {
	// A response may reference questions deleted or changed by a concurrent
	// survey edit; without strict mode that is accepted behavior.
	store := newStubResponseStore()
	store.records["demo.myshopify.com"] = &models.StoreRecord{
		Shop: "demo.myshopify.com",
		Survey: &models.Survey{
			ID:        "sv1",
			Questions: []models.Question{{ID: "q-current", Text: "Q", Type: models.QuestionText}},
		},
	}
	svc := newTestResponseService(store, false)

	if _, err := svc.Submit(context.Background(), SubmitRequest{
		Shop:    "demo.myshopify.com",
		Answers: []AnswerDraft{{QuestionID: "q-deleted-long-ago", Answer: raw(`"still here"`)}},
	}); err != nil {
		t.Fatalf("stale question id should be accepted: %v", err)
	}
	if len(store.responses) != 1 {
		t.Fatalf("response not stored")
	}
}

func TestSubmitStrictMode(t *testing.T) {
	record := func() *models.StoreRecord {
		return &models.StoreRecord{
			Shop: "demo.myshopify.com",
			Survey: &models.Survey{
				ID: "sv1",
				Questions: []models.Question{
					{ID: "q-text", Text: "T", Type: models.QuestionText},
					{ID: "q-mc", Text: "M", Type: models.QuestionMultipleChoice, Options: []string{"A", "B"}},
					{ID: "q-bool", Text: "B", Type: models.QuestionBoolean, Options: []string{"Yes", "No"}},
					{ID: "q-scale", Text: "S", Type: models.QuestionScale, Min: intp(1), Max: intp(5)},
				},
			},
		}
	}

	valid := []AnswerDraft{
		{QuestionID: "q-text", Answer: raw(`"anything"`)},
		{QuestionID: "q-mc", Answer: raw(`"B"`)},
		{QuestionID: "q-bool", Answer: raw(`true`)},
		{QuestionID: "q-scale", Answer: raw(`"3"`)},
	}

	cases := []struct {
		name    string
		answers []AnswerDraft
		wantErr bool
	}{
		{"all valid", valid, false},
		{"unknown question", []AnswerDraft{{QuestionID: "q-gone", Answer: raw(`"x"`)}}, true},
		{"non-option choice", []AnswerDraft{{QuestionID: "q-mc", Answer: raw(`"C"`)}}, true},
		{"scale out of range", []AnswerDraft{{QuestionID: "q-scale", Answer: raw(`"9"`)}}, true},
		{"scale not an integer", []AnswerDraft{{QuestionID: "q-scale", Answer: raw(`"lots"`)}}, true},
		{"bad boolean", []AnswerDraft{{QuestionID: "q-bool", Answer: raw(`"maybe"`)}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStubResponseStore()
			store.records["demo.myshopify.com"] = record()
			svc := newTestResponseService(store, true)
			_, err := svc.Submit(context.Background(), SubmitRequest{Shop: "demo.myshopify.com", Answers: tc.answers})
			if tc.wantErr {
				se, ok := AsServiceError(err)
				if !ok || se.Code != ErrorInvalid {
					t.Fatalf("expected invalid, got %v", err)
				}
				if len(store.responses) != 0 {
					t.Fatal("rejected submission must not persist")
				}
				return
			}
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
		})
	}
}

func TestListForShop(t *testing.T) {
	store := newStubResponseStore()
	svc := newTestResponseService(store, false)
	ctx := context.Background()

	if _, err := svc.ListForShop(ctx, "ghost.myshopify.com"); err == nil {
		t.Fatal("expected not_found for unknown shop")
	}

	store.records["demo.myshopify.com"] = &models.StoreRecord{Shop: "demo.myshopify.com"}
	for i := 0; i < 3; i++ {
		_, err := svc.Submit(ctx, SubmitRequest{
			Shop:    "demo.myshopify.com",
			Answers: []AnswerDraft{{QuestionID: "q1", Answer: raw(fmt.Sprintf(`"%d"`, i))}},
		})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	list, err := svc.ListForShop(ctx, "demo.myshopify.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(list))
	}
	// newest first
	if list[0].Answers[0].Answer != "2" || list[2].Answers[0].Answer != "0" {
		t.Fatalf("responses not newest first: %v, %v", list[0].Answers, list[2].Answers)
	}
}

func TestCoerceAnswer(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`"plain"`, "plain"},
		{`true`, "true"},
		{`false`, "false"},
		{`42`, "42"},
		{`3.5`, "3.5"},
		{`["A","B"]`, `["A","B"]`},
		{``, ""},
	}
	for _, tc := range cases {
		if got := CoerceAnswer(json.RawMessage(tc.raw)); got != tc.want {
			t.Fatalf("CoerceAnswer(%s) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
