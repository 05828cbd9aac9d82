package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fatali-fataliyev/spending_insights/internal/insights"
)

type dbTransaction struct {
	ID          string
	Type        sql.NullString
	Amount      float64
	Category    string
	Description sql.NullString
	Date        dbTime
	UserID      string
}

// toInsights converts a stored row. Categories the analytics do not know
// are filed under other.
func (t dbTransaction) toInsights() (insights.Transaction, error) {
	typ, err := insights.ParseTransactionType(t.Type.String)
	if err != nil {
		return insights.Transaction{}, err
	}
	if t.Amount <= 0 {
		return insights.Transaction{}, fmt.Errorf("non-positive amount %v", t.Amount)
	}
	if t.Date.IsZero() {
		return insights.Transaction{}, fmt.Errorf("missing date")
	}
	category, err := insights.ParseCategory(t.Category)
	if err != nil {
		category = insights.CategoryOther
	}
	return insights.Transaction{
		ID:          t.ID,
		Amount:      t.Amount,
		Category:    category,
		Description: t.Description.String,
		Date:        t.Date.Time,
		UserID:      t.UserID,
		Type:        typ,
	}, nil
}

var dbTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// dbTime scans DATETIME columns from drivers that return time.Time as
// well as those that return text.
type dbTime struct {
	time.Time
}

func (d *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.Time = time.Time{}
		return nil
	case time.Time:
		d.Time = v.UTC()
		return nil
	case []byte:
		return d.parse(string(v))
	case string:
		return d.parse(v)
	}
	return fmt.Errorf("cannot scan %T into time", src)
}

func (d *dbTime) parse(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range dbTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized time '%s'", s)
}
