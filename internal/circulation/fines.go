package circulation

import (
	"time"

	"librarydesk/internal/domain"
)

// daysLate counts whole calendar days from due to returned, in due's
// location. It is zero or negative for an on-time return.
func daysLate(due, returned time.Time) int {
	dy, dm, dd := due.Date()
	ry, rm, rd := returned.In(due.Location()).Date()
	d := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	r := time.Date(ry, rm, rd, 0, 0, 0, 0, time.UTC)
	return int(r.Sub(d).Hours() / 24)
}

// LateFine is the fine for returning a book due on due at returned.
func LateFine(due, returned time.Time, perDay int) int {
	n := daysLate(due, returned)
	if n <= 0 {
		return 0
	}
	return n * perDay
}

// allocatePayment spreads amount over records in list order, settling each
// record's fine before moving to the next. It returns the amount taken from
// each record; the caller guarantees amount does not exceed the total.
func allocatePayment(records []domain.BorrowRecord, amount int) []int {
	taken := make([]int, len(records))
	for i, r := range records {
		if amount == 0 {
			break
		}
		if r.Fine <= 0 {
			continue
		}
		n := min(amount, r.Fine)
		taken[i] = n
		amount -= n
	}
	return taken
}

// firstBorrowed returns the index of the first Borrowed record for bookID.
func firstBorrowed(records []domain.BorrowRecord, bookID string) int {
	for i, r := range records {
		if r.BookID == bookID && r.Status == domain.StatusBorrowed {
			return i
		}
	}
	return -1
}

// finedRecords returns Returned or Missing records that still carry a fine.
func finedRecords(records []domain.BorrowRecord) []domain.BorrowRecord {
	var out []domain.BorrowRecord
	for _, r := range records {
		if r.Status.Terminal() && r.Fine > 0 {
			out = append(out, r)
		}
	}
	return out
}
