package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	appErrors "github.com/fatali-fataliyev/spending_insights/errors"
	"github.com/fatali-fataliyev/spending_insights/internal/insights"
)

// REQUESTS:

type TransactionItem struct {
	ID          string   `json:"id"`
	Amount      *float64 `json:"amount"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	UserID      string   `json:"userId"`
	Type        string   `json:"type"`
}

type AnalyzeRequest struct {
	UserID       string            `json:"userId"`
	Transactions []TransactionItem `json:"transactions"`
}

type PredictRequest struct {
	UserID       string            `json:"userId"`
	Category     *string           `json:"category"`
	DaysAhead    *int              `json:"daysAhead"`
	Transactions []TransactionItem `json:"transactions"`
}

// RESPONSES:

type CategoriesResponse struct {
	Categories []insights.Category `json:"categories"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// parseDate accepts RFC3339, a timestamp without zone (read as UTC) or a
// plain date.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date '%s'", appErrors.ErrInvalidInput, s)
}

func (t TransactionItem) toInsights(defaultUserID string) (insights.Transaction, error) {
	if t.Amount == nil {
		return insights.Transaction{}, fmt.Errorf("%w: amount is required", appErrors.ErrInvalidInput)
	}
	if *t.Amount <= 0 {
		return insights.Transaction{}, fmt.Errorf("%w: amount must be greater than 0, got %v", appErrors.ErrInvalidInput, *t.Amount)
	}
	category, err := insights.ParseCategory(t.Category)
	if err != nil {
		return insights.Transaction{}, err
	}
	typ, err := insights.ParseTransactionType(t.Type)
	if err != nil {
		return insights.Transaction{}, err
	}
	if strings.TrimSpace(t.Date) == "" {
		return insights.Transaction{}, fmt.Errorf("%w: date is required", appErrors.ErrInvalidInput)
	}
	date, err := parseDate(t.Date)
	if err != nil {
		return insights.Transaction{}, err
	}

	userID := strings.TrimSpace(t.UserID)
	if userID == "" {
		userID = defaultUserID
	}
	return insights.Transaction{
		ID:          t.ID,
		Amount:      *t.Amount,
		Category:    category,
		Description: t.Description,
		Date:        date,
		UserID:      userID,
		Type:        typ,
	}, nil
}

func toTransactions(items []TransactionItem, defaultUserID string) ([]insights.Transaction, error) {
	txs := make([]insights.Transaction, 0, len(items))
	for i, item := range items {
		t, err := item.toInsights(defaultUserID)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		txs = append(txs, t)
	}
	return txs, nil
}

func httpStatusFromError(err error) int {
	switch {
	case errors.Is(err, appErrors.ErrNotFound):
		return 404 // not found
	case errors.Is(err, appErrors.ErrInvalidInput):
		return 400 // bad request
	case errors.Is(err, appErrors.ErrUnavailable):
		return 503 // service unavailable
	default:
		return 500 // internal error
	}
}

// DecodeBatch reads an {userId, transactions} object or a bare transaction
// list whose first entry names the user.
func DecodeBatch(data []byte) (string, []insights.Transaction, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var items []TransactionItem
		if err := json.Unmarshal(data, &items); err != nil {
			return "", nil, fmt.Errorf("%w: invalid transaction list: %v", appErrors.ErrInvalidInput, err)
		}
		userID := ""
		if len(items) > 0 {
			userID = strings.TrimSpace(items[0].UserID)
		}
		txs, err := toTransactions(items, userID)
		return userID, txs, err
	}

	var req AnalyzeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return "", nil, fmt.Errorf("%w: invalid batch: %v", appErrors.ErrInvalidInput, err)
	}
	userID := strings.TrimSpace(req.UserID)
	txs, err := toTransactions(req.Transactions, userID)
	return userID, txs, err
}
