package insights

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"

	appErrors "github.com/fatali-fataliyev/spending_insights/errors"
	"github.com/fatali-fataliyev/spending_insights/internal/iforest"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

// ModelCache stores fitted forests by key. Implementations must be safe
// for concurrent use. A miss is not an error.
type ModelCache interface {
	Get(key string) (*iforest.Forest, bool)
	Put(key string, forest *iforest.Forest) error
}

// transactionNamespace scopes generated transaction ids.
var transactionNamespace = uuid.MustParse("6f1c3c1e-3f4b-5d2a-9e57-0b7a4c2d8e11")

type AnomalyScorer struct {
	cfg    Config
	cache  ModelCache
	fits   *singleflight.Group
	logger logrus.FieldLogger
}

func NewAnomalyScorer(cfg Config, cache ModelCache, logger logrus.FieldLogger) *AnomalyScorer {
	return &AnomalyScorer{
		cfg:    cfg,
		cache:  cache,
		fits:   &singleflight.Group{},
		logger: logger,
	}
}

// Score flags unusual expense amounts. Batches too small to model, or
// with a single repeated amount, produce no anomalies. A panic while
// scoring is returned as ErrComputation.
func (s *AnomalyScorer) Score(userID string, txs []Transaction) (anomalies []Anomaly, err error) {
	defer func() {
		if r := recover(); r != nil {
			anomalies = nil
			err = fmt.Errorf("%w: anomaly scoring failed: %v", appErrors.ErrComputation, r)
		}
	}()
	return s.score(userID, txs)
}

func (s *AnomalyScorer) score(userID string, txs []Transaction) ([]Anomaly, error) {
	anomalies := []Anomaly{}

	type sample struct {
		index int
		tx    Transaction
	}
	var (
		samples  []sample
		expenses []Transaction
	)
	for i, t := range txs {
		if t.IsExpense() {
			samples = append(samples, sample{index: i, tx: t})
			expenses = append(expenses, t)
		}
	}
	if len(samples) < s.cfg.MinSampleSize {
		return anomalies, nil
	}

	amounts := make([]float64, len(samples))
	data := make([][]float64, len(samples))
	constant := true
	for i, smp := range samples {
		amounts[i] = smp.tx.Amount
		data[i] = []float64{smp.tx.Amount}
		if amounts[i] != amounts[0] {
			constant = false
		}
	}
	if constant {
		return anomalies, nil
	}

	forest, err := s.model(userID, amounts, data)
	if err != nil {
		return nil, err
	}

	raw := forest.ScoreAll(data)
	lo, hi := raw[0], raw[0]
	for _, r := range raw[1:] {
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}

	means := categoryMeans(expenses)
	for i, smp := range samples {
		norm := 0.0
		if hi > lo {
			norm = (raw[i] - lo) / (hi - lo)
		}
		if norm <= s.cfg.AnomalyThreshold && !forest.IsOutlier(raw[i]) {
			continue
		}
		t := smp.tx
		distance := math.Abs(t.Amount - means[t.Category])
		anomalies = append(anomalies, Anomaly{
			TransactionID: transactionID(userID, smp.index, t),
			Amount:        t.Amount,
			Category:      t.Category,
			Date:          t.Date,
			AnomalyScore:  norm,
			Reason:        fmt.Sprintf("Amount is $%s away from average %s spending", money(distance), t.Category),
		})
	}

	sort.SliceStable(anomalies, func(a, b int) bool {
		return anomalies[a].AnomalyScore > anomalies[b].AnomalyScore
	})
	return anomalies, nil
}

// model returns the cached forest for these amounts or fits one. Fits for
// the same key share one computation.
func (s *AnomalyScorer) model(userID string, amounts []float64, data [][]float64) (*iforest.Forest, error) {
	key := ModelKey(userID, s.cfg, amounts)
	if s.cache != nil {
		if forest, ok := s.cache.Get(key); ok {
			err := usable(forest, len(data[0]))
			if err == nil {
				return forest, nil
			}
			s.logger.WithError(err).WithField("key", key).Warn("discarding unusable cached anomaly model")
		}
	}

	v, err, _ := s.fits.Do(key, func() (interface{}, error) {
		forest, err := iforest.Fit(data, s.cfg.forestParams())
		if err != nil {
			return nil, fmt.Errorf("failed to fit isolation forest: %w", err)
		}
		if s.cache != nil {
			if err := s.cache.Put(key, forest); err != nil {
				s.logger.WithError(err).WithField("key", key).Warn("failed to cache anomaly model")
			}
		}
		return forest, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*iforest.Forest), nil
}

func usable(forest *iforest.Forest, dims int) error {
	if forest == nil {
		return fmt.Errorf("%w: nil model", iforest.ErrCorrupt)
	}
	if forest.Dims != dims {
		return fmt.Errorf("%w: model has %d features, want %d", iforest.ErrCorrupt, forest.Dims, dims)
	}
	return forest.Validate()
}

// ModelKey identifies a fitted model by its inputs, so equal keys always
// map to equal forests.
func ModelKey(userID string, cfg Config, amounts []float64) string {
	buf := make([]byte, 0, 8*(len(amounts)+4))
	buf = binary.LittleEndian.AppendUint64(buf, cfg.Seed)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(cfg.Trees))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(cfg.SampleSize))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(cfg.Contamination))
	for _, a := range amounts {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(a))
	}
	sum := blake2b.Sum256(buf)
	return "iforest:" + userID + ":" + hex.EncodeToString(sum[:])
}

func categoryMeans(txs []Transaction) map[Category]float64 {
	sums := map[Category]float64{}
	counts := map[Category]int{}
	for _, t := range txs {
		sums[t.Category] += t.Amount
		counts[t.Category]++
	}
	means := make(map[Category]float64, len(sums))
	for c, sum := range sums {
		means[c] = sum / float64(counts[c])
	}
	return means
}

// transactionID keeps the caller's id, or derives a stable one for
// transactions that arrived without it.
func transactionID(userID string, index int, t Transaction) string {
	if t.ID != "" {
		return t.ID
	}
	name := userID + "|" + strconv.Itoa(index) + "|" + t.Date.UTC().Format("2006-01-02T15:04:05.999999999Z") +
		"|" + strconv.FormatFloat(t.Amount, 'g', -1, 64)
	return uuid.NewSHA1(transactionNamespace, []byte(name)).String()
}
