package periods

import (
	"fmt"
	"time"
)

// Period is the lock state of one company month. A missing row means open.
type Period struct {
	CompanyID int64
	Year      int
	Month     int
	IsClosed  bool
	ClosedAt  *time.Time
	ClosedBy  *int64
	UpdatedBy *int64
	UpdatedAt time.Time
}

// Key identifies a fiscal period.
type Key struct {
	CompanyID int64
	Year      int
	Month     int
}

// KeyFor derives the period key covering date.
func KeyFor(companyID int64, date time.Time) Key {
	return Key{CompanyID: companyID, Year: date.Year(), Month: int(date.Month())}
}

// String renders the key as company:YYYY-MM.
func (k Key) String() string {
	return fmt.Sprintf("%d:%04d-%02d", k.CompanyID, k.Year, k.Month)
}

// Open returns the implicit open period for k.
func (k Key) Open() Period {
	return Period{CompanyID: k.CompanyID, Year: k.Year, Month: k.Month}
}

// Valid reports whether the key addresses a real calendar month.
func (k Key) Valid() bool {
	return k.CompanyID > 0 && k.Year >= 1900 && k.Year <= 9999 && k.Month >= 1 && k.Month <= 12
}
