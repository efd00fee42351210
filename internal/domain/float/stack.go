package float

import (
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FloatEntry is the count of one denomination in a stack
type FloatEntry struct {
	shared.BaseEntity
	StackID        uuid.UUID
	DenominationID uuid.UUID
	Value          decimal.Decimal
	Label          string
	OpenCount      int
	MiddayCount    *int
	CloseCount     int
}

// OpenTotal is Value × OpenCount
func (e FloatEntry) OpenTotal() decimal.Decimal {
	return e.Value.Mul(decimal.NewFromInt(int64(e.OpenCount)))
}

// CloseTotal is Value × CloseCount
func (e FloatEntry) CloseTotal() decimal.Decimal {
	return e.Value.Mul(decimal.NewFromInt(int64(e.CloseCount)))
}

// MiddayTotal is Value × MiddayCount, zero when not counted
func (e FloatEntry) MiddayTotal() decimal.Decimal {
	if e.MiddayCount == nil {
		return decimal.Zero
	}
	return e.Value.Mul(decimal.NewFromInt(int64(*e.MiddayCount)))
}

// FloatStack holds the denomination counts of one currency within a session
type FloatStack struct {
	shared.BaseEntity
	SessionID       uuid.UUID
	CurrencyID      uuid.UUID
	CurrencyCode    string
	Entries         []FloatEntry
	OpenConfirmed   bool
	CloseConfirmed  bool
	MiddayCountedAt *time.Time
	Bought          decimal.Decimal // received from customers by completed orders
	Sold            decimal.Decimal // paid out to customers by completed orders
}

// StackTemplate describes a stack to create when the float is opened
type StackTemplate struct {
	CurrencyID    uuid.UUID
	CurrencyCode  string
	Denominations []DenominationRef
	// CarryForward pre-fills opening counts, keyed by denomination ID
	CarryForward map[uuid.UUID]int
}

// DenominationRef is the part of a denomination a stack needs
type DenominationRef struct {
	ID    uuid.UUID
	Value decimal.Decimal
	Label string
}

func newFloatStack(sessionID uuid.UUID, tpl StackTemplate) (*FloatStack, error) {
	if tpl.CurrencyID == uuid.Nil || tpl.CurrencyCode == "" {
		return nil, shared.NewDomainError("INVALID_STACK", "Stack currency is required")
	}
	if len(tpl.Denominations) == 0 {
		return nil, shared.NewDomainError("NO_DENOMINATIONS", "Currency "+tpl.CurrencyCode+" has no active denominations")
	}

	stack := &FloatStack{
		BaseEntity:   shared.NewBaseEntity(),
		SessionID:    sessionID,
		CurrencyID:   tpl.CurrencyID,
		CurrencyCode: tpl.CurrencyCode,
		Entries:      make([]FloatEntry, 0, len(tpl.Denominations)),
		Bought:       decimal.Zero,
		Sold:         decimal.Zero,
	}
	for _, d := range tpl.Denominations {
		stack.Entries = append(stack.Entries, FloatEntry{
			BaseEntity:     shared.NewBaseEntity(),
			StackID:        stack.ID,
			DenominationID: d.ID,
			Value:          d.Value,
			Label:          d.Label,
			OpenCount:      tpl.CarryForward[d.ID],
		})
	}
	return stack, nil
}

// OpenTotal sums the opening counts
func (s *FloatStack) OpenTotal() decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.Entries {
		total = total.Add(e.OpenTotal())
	}
	return total
}

// MiddayTotal sums the midday counts
func (s *FloatStack) MiddayTotal() decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.Entries {
		total = total.Add(e.MiddayTotal())
	}
	return total
}

// CloseTotal sums the closing counts
func (s *FloatStack) CloseTotal() decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.Entries {
		total = total.Add(e.CloseTotal())
	}
	return total
}

// ExpectedClose is what the count should be given the session's trades
func (s *FloatStack) ExpectedClose() decimal.Decimal {
	return s.OpenTotal().Add(s.Bought).Sub(s.Sold)
}

// Variance is counted close minus expected close; negative means a shortage
func (s *FloatStack) Variance() decimal.Decimal {
	return s.CloseTotal().Sub(s.ExpectedClose())
}

// countKind selects which count applyCounts writes
type countKind int

const (
	countOpen countKind = iota
	countMidday
	countClose
)

func (s *FloatStack) applyCounts(kind countKind, counts map[uuid.UUID]int) error {
	if len(counts) == 0 {
		return shared.NewDomainError("INVALID_COUNTS", "At least one denomination count is required")
	}
	index := make(map[uuid.UUID]int, len(s.Entries))
	for i, e := range s.Entries {
		index[e.DenominationID] = i
	}
	for denomID, n := range counts {
		if n < 0 {
			return shared.NewDomainError("INVALID_COUNTS", "Counts cannot be negative")
		}
		if _, ok := index[denomID]; !ok {
			return shared.NewDomainError("UNKNOWN_DENOMINATION", "Denomination is not part of this stack")
		}
	}
	for denomID, n := range counts {
		e := &s.Entries[index[denomID]]
		switch kind {
		case countOpen:
			e.OpenCount = n
		case countMidday:
			v := n
			e.MiddayCount = &v
		case countClose:
			e.CloseCount = n
		}
	}
	return nil
}

func (s *FloatStack) resetClose() {
	s.CloseConfirmed = false
	for i := range s.Entries {
		s.Entries[i].CloseCount = 0
	}
}

// CloseCounts returns the closing count per denomination
func (s *FloatStack) CloseCounts() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(s.Entries))
	for _, e := range s.Entries {
		out[e.DenominationID] = e.CloseCount
	}
	return out
}
