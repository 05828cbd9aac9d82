package storage

import (
	"context"
	"database/sql"
	"fmt"

	appErrors "github.com/fatali-fataliyev/spending_insights/errors"
	"github.com/fatali-fataliyev/spending_insights/internal/contextutil"
	"github.com/fatali-fataliyev/spending_insights/internal/insights"
	"github.com/fatali-fataliyev/spending_insights/logging"
)

const transactionsByUserQuery = "SELECT id, type, amount, category, description, date, userId FROM transactions WHERE userId = ? ORDER BY date"

// SQLTransactions reads a user's transaction history.
type SQLTransactions struct {
	db *sql.DB
}

func NewSQLTransactions(db *sql.DB) *SQLTransactions {
	return &SQLTransactions{db: db}
}

func (s *SQLTransactions) TransactionsByUser(ctx context.Context, userID string) ([]insights.Transaction, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	rows, err := s.db.QueryContext(ctx, transactionsByUserQuery, userID)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to query transactions in Storage.TransactionsByUser() | Error : %v", traceID, err)
		return nil, fmt.Errorf("%w: failed to get transactions, try again later", appErrors.ErrUnavailable)
	}
	defer rows.Close()

	transactions := []insights.Transaction{}
	for rows.Next() {
		var row dbTransaction
		if err := rows.Scan(&row.ID, &row.Type, &row.Amount, &row.Category, &row.Description, &row.Date, &row.UserID); err != nil {
			logging.Logger.Warnf("[TraceID=%s] | skipping unreadable transaction row for user %s | Error : %v", traceID, userID, err)
			continue
		}
		t, err := row.toInsights()
		if err != nil {
			logging.Logger.Warnf("[TraceID=%s] | skipping transaction %s | Error : %v", traceID, row.ID, err)
			continue
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to iterate rows in Storage.TransactionsByUser() | Error : %v", traceID, err)
		return nil, fmt.Errorf("%w: failed to process transactions, try again later", appErrors.ErrUnavailable)
	}
	return transactions, nil
}

func (s *SQLTransactions) Close() error {
	return s.db.Close()
}
