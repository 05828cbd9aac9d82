package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/0xcafe-io/iz"
	appErrors "github.com/fatali-fataliyev/spending_insights/errors"
	"github.com/fatali-fataliyev/spending_insights/internal/contextutil"
	"github.com/fatali-fataliyev/spending_insights/internal/insights"
	"github.com/fatali-fataliyev/spending_insights/logging"
)

const (
	storageTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// TransactionSource loads stored history for the user insights endpoint.
type TransactionSource interface {
	TransactionsByUser(ctx context.Context, userID string) ([]insights.Transaction, error)
}

type Api struct {
	Analyzer    *insights.Analyzer
	Source      TransactionSource
	ServiceName string
	Version     string
}

// NewApi wires the handlers. source may be nil when no database is set up.
func NewApi(analyzer *insights.Analyzer, source TransactionSource, serviceName, version string) *Api {
	return &Api{
		Analyzer:    analyzer,
		Source:      source,
		ServiceName: serviceName,
		Version:     version,
	}
}

// decodeBody reads at most maxBodyBytes of JSON into v.
func decodeBody(r *iz.Request, v any) error {
	body := http.MaxBytesReader(r.ResponseWriter, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: request body exceeds %d bytes", appErrors.ErrInvalidInput, tooLarge.Limit)
		}
		return fmt.Errorf("%w: invalid request body: %v", appErrors.ErrInvalidInput, err)
	}
	return nil
}

func (api *Api) AnalyzeHandler(r *iz.Request) iz.Responder {
	traceID := contextutil.TraceIDFromContext(r.Context())

	var req AnalyzeRequest
	if err := decodeBody(r, &req); err != nil {
		return failure(err)
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return failure(fmt.Errorf("%w: userId is required", appErrors.ErrInvalidInput))
	}

	txs, err := toTransactions(req.Transactions, userID)
	if err != nil {
		return failure(err)
	}

	logging.Logger.Infof("[TraceID=%s] | received analysis request for user %s with %d transactions", traceID, userID, len(txs))
	report, err := api.Analyzer.Analyze(userID, txs)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to analyze transactions in AnalyzeHandler() | Error : %v", traceID, err)
		return failure(err)
	}
	return iz.Respond().Status(200).JSON(report)
}

func (api *Api) QuickAnalyzeHandler(r *iz.Request) iz.Responder {
	traceID := contextutil.TraceIDFromContext(r.Context())

	var items []TransactionItem
	if err := decodeBody(r, &items); err != nil {
		return failure(err)
	}
	if len(items) == 0 {
		return failure(fmt.Errorf("%w: no transactions provided", appErrors.ErrInvalidInput))
	}

	userID := strings.TrimSpace(items[0].UserID)
	if userID == "" {
		return failure(fmt.Errorf("%w: userId is required on the first transaction", appErrors.ErrInvalidInput))
	}

	txs, err := toTransactions(items, userID)
	if err != nil {
		return failure(err)
	}

	logging.Logger.Infof("[TraceID=%s] | received quick analysis request with %d transactions", traceID, len(txs))
	report, err := api.Analyzer.Analyze(userID, txs)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to analyze transactions in QuickAnalyzeHandler() | Error : %v", traceID, err)
		return failure(err)
	}
	return iz.Respond().Status(200).JSON(report)
}

func (api *Api) PredictHandler(r *iz.Request) iz.Responder {
	traceID := contextutil.TraceIDFromContext(r.Context())

	var req PredictRequest
	if err := decodeBody(r, &req); err != nil {
		return failure(err)
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return failure(fmt.Errorf("%w: userId is required", appErrors.ErrInvalidInput))
	}

	var category *insights.Category
	if req.Category != nil && strings.TrimSpace(*req.Category) != "" {
		c, err := insights.ParseCategory(*req.Category)
		if err != nil {
			return failure(err)
		}
		category = &c
	}

	daysAhead := insights.DefaultDaysAhead
	if req.DaysAhead != nil {
		if *req.DaysAhead <= 0 {
			return failure(fmt.Errorf("%w: daysAhead must be greater than 0", appErrors.ErrInvalidInput))
		}
		daysAhead = *req.DaysAhead
	}

	txs, err := toTransactions(req.Transactions, userID)
	if err != nil {
		return failure(err)
	}

	logging.Logger.Infof("[TraceID=%s] | received prediction request for user %s", traceID, userID)
	prediction, err := api.Analyzer.Predict(userID, txs, category, daysAhead)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to predict spending in PredictHandler() | Error : %v", traceID, err)
		return failure(err)
	}
	return iz.Respond().Status(200).JSON(prediction)
}

func (api *Api) UserInsightsHandler(r *iz.Request) iz.Responder {
	traceID := contextutil.TraceIDFromContext(r.Context())

	userID := strings.TrimSpace(r.PathValue("userId"))
	if userID == "" {
		return failure(fmt.Errorf("%w: userId is required", appErrors.ErrInvalidInput))
	}
	if api.Source == nil {
		return failure(fmt.Errorf("%w: transaction storage is not configured", appErrors.ErrUnavailable))
	}

	ctx, cancel := context.WithTimeout(r.Context(), storageTimeout)
	defer cancel()

	logging.Logger.Infof("[TraceID=%s] | fetching insights for user %s", traceID, userID)
	txs, err := api.Source.TransactionsByUser(ctx, userID)
	if err != nil {
		return failure(fmt.Errorf("failed to get user transactions: %w", err))
	}
	if len(txs) == 0 {
		logging.Logger.Infof("[TraceID=%s] | no transactions found for user %s", traceID, userID)
	}

	report, err := api.Analyzer.Analyze(userID, txs)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to analyze transactions in UserInsightsHandler() | Error : %v", traceID, err)
		return failure(err)
	}
	return iz.Respond().Status(200).JSON(report)
}

func (api *Api) CategoriesHandler(r *iz.Request) iz.Responder {
	return iz.Respond().Status(200).JSON(CategoriesResponse{Categories: insights.Categories()})
}

func (api *Api) HealthHandler(r *iz.Request) iz.Responder {
	return iz.Respond().Status(200).JSON(HealthResponse{
		Status:  "healthy",
		Service: api.ServiceName,
		Version: api.Version,
	})
}

// failure renders err as a JSON error body with the matching status.
func failure(err error) iz.Responder {
	return iz.Respond().Status(httpStatusFromError(err)).JSON(appErrors.ErrorResponse{
		Code:    appErrors.Code(err),
		Message: err.Error(),
	})
}
