package insights

import (
	"sync"
	"time"

	"github.com/fatali-fataliyev/spending_insights/internal/iforest"
)

var day1 = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func tx(id string, amount float64, category Category, at time.Time) Transaction {
	return Transaction{
		ID:       id,
		Amount:   amount,
		Category: category,
		Date:     at,
		UserID:   "user-1",
		Type:     TypeExpense,
	}
}

// mixedBatch spreads a month of spending over every category with one
// obvious outlier.
func mixedBatch() []Transaction {
	var txs []Transaction
	amounts := []float64{12.5, 8.25, 15, 9.99, 11.4, 14.1, 7.75, 13.3, 10, 12.8, 9.1, 16.45}
	for i, a := range amounts {
		txs = append(txs, tx("", a, CategoryFood, day1.AddDate(0, 0, i)))
	}
	txs = append(txs,
		tx("t-rent", 120, CategoryUtilities, day1.AddDate(0, 0, 2)),
		tx("t-bus", 25, CategoryTransport, day1.AddDate(0, 0, 4)),
		tx("t-cinema", 40, CategoryEntertainment, day1.AddDate(0, 0, 6)),
		tx("t-doctor", 60, CategoryHealthcare, day1.AddDate(0, 0, 9)),
		tx("t-shoes", 85, CategoryShopping, day1.AddDate(0, 0, 14)),
		tx("t-tv", 1450, CategoryShopping, day1.AddDate(0, 0, 20)),
		tx("t-gift", 30, CategoryOther, day1.AddDate(0, 0, 25)),
	)
	return txs
}

type fakeCache struct {
	mu     sync.Mutex
	models map[string]*iforest.Forest
	gets   int
	hits   int
	puts   int
	putErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{models: map[string]*iforest.Forest{}}
}

func (c *fakeCache) Get(key string) (*iforest.Forest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	f, ok := c.models[key]
	if ok {
		c.hits++
	}
	return f, ok
}

func (c *fakeCache) Put(key string, f *iforest.Forest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	if c.putErr != nil {
		return c.putErr
	}
	c.models[key] = f
	return nil
}
