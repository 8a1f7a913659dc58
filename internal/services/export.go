package services

import (
	"bytes"
	"encoding/csv"
	"time"

	"github.com/causalfunnel/cartsurvey/internal/models"
)

// ExportResponsesCSV renders a shop's responses as long-format CSV, one row
// per answered question. Answers are written exactly as stored.
func ExportResponsesCSV(responses []*models.Response) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"response_id", "customer_id", "question_id", "answer", "submitted_at"})
	for _, r := range responses {
		if r == nil {
			continue
		}
		submitted := r.SubmittedAt.UTC().Format(time.RFC3339)
		for _, a := range r.Answers {
			rec := []string{r.ID, r.CustomerID, a.QuestionID, a.Answer, submitted}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
