package float

import (
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CxSession is a teller's work session on a repository. Its status walks the
// float through open, trading and close, with confirmation of every stack
// required before the open or close completes.
type CxSession struct {
	shared.TenantAggregateRoot
	RepositoryID   uuid.UUID
	OpenedBy       uuid.UUID
	ClosedBy       *uuid.UUID
	Status         SessionStatus
	OpenStartedAt  *time.Time
	OpenedAt       *time.Time
	CloseStartedAt *time.Time
	ClosedAt       *time.Time
	Stacks         []FloatStack
}

// NewCxSession creates a dormant session
func NewCxSession(tenantID, repositoryID, openedBy uuid.UUID) (*CxSession, error) {
	if repositoryID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REPOSITORY", "Repository is required")
	}
	if openedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Opening user is required")
	}
	s := &CxSession{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		RepositoryID:        repositoryID,
		OpenedBy:            openedBy,
		Status:              SessionStatusDormant,
		Stacks:              make([]FloatStack, 0),
	}
	s.SetCreatedBy(openedBy)
	s.AddDomainEvent(NewSessionStatusChangedEvent(s, ""))
	return s, nil
}

// IsActive returns true until the float is closed
func (s *CxSession) IsActive() bool {
	return !s.Status.IsTerminal()
}

// StartOpen creates the float stacks and moves to FLOAT_OPEN_START
func (s *CxSession) StartOpen(templates []StackTemplate, at time.Time) error {
	if err := s.requireTransition(SessionStatusFloatOpenStart); err != nil {
		return err
	}
	if len(templates) == 0 {
		return shared.NewDomainError("NO_CURRENCIES", "At least one currency is required to open the float")
	}

	stacks := make([]FloatStack, 0, len(templates))
	seen := make(map[uuid.UUID]bool, len(templates))
	for _, tpl := range templates {
		if seen[tpl.CurrencyID] {
			return shared.NewDomainError("DUPLICATE_CURRENCY", "Currency "+tpl.CurrencyCode+" appears more than once")
		}
		seen[tpl.CurrencyID] = true
		stack, err := newFloatStack(s.ID, tpl)
		if err != nil {
			return err
		}
		stacks = append(stacks, *stack)
	}

	s.Stacks = stacks
	s.OpenStartedAt = &at
	s.transition(SessionStatusFloatOpenStart)
	return nil
}

// RecordOpenCount sets opening counts. Changing counts clears the stack's confirmation.
func (s *CxSession) RecordOpenCount(stackID uuid.UUID, counts map[uuid.UUID]int) error {
	if err := s.requireStatus(SessionStatusFloatOpenStart, "record opening counts"); err != nil {
		return err
	}
	stack, err := s.Stack(stackID)
	if err != nil {
		return err
	}
	if err := stack.applyCounts(countOpen, counts); err != nil {
		return err
	}
	stack.OpenConfirmed = false
	s.IncrementVersion()
	return nil
}

// ConfirmOpenStack marks a stack's opening count as checked
func (s *CxSession) ConfirmOpenStack(stackID uuid.UUID) error {
	if err := s.requireStatus(SessionStatusFloatOpenStart, "confirm opening counts"); err != nil {
		return err
	}
	stack, err := s.Stack(stackID)
	if err != nil {
		return err
	}
	stack.OpenConfirmed = true
	s.IncrementVersion()
	return nil
}

// CompleteOpen moves to FLOAT_OPEN_COMPLETE once every stack is confirmed
func (s *CxSession) CompleteOpen(at time.Time) error {
	if err := s.requireTransition(SessionStatusFloatOpenComplete); err != nil {
		return err
	}
	for _, st := range s.Stacks {
		if !st.OpenConfirmed {
			return shared.NewDomainError("UNCONFIRMED_STACK", "Opening count for "+st.CurrencyCode+" has not been confirmed")
		}
	}
	s.OpenedAt = &at
	s.transition(SessionStatusFloatOpenComplete)
	return nil
}

// RecordMiddayCount records an intra-day count while trading
func (s *CxSession) RecordMiddayCount(stackID uuid.UUID, counts map[uuid.UUID]int, at time.Time) error {
	if err := s.requireStatus(SessionStatusFloatOpenComplete, "record a midday count"); err != nil {
		return err
	}
	stack, err := s.Stack(stackID)
	if err != nil {
		return err
	}
	if err := stack.applyCounts(countMidday, counts); err != nil {
		return err
	}
	stack.MiddayCountedAt = &at
	s.IncrementVersion()
	return nil
}

// StartClose moves to FLOAT_CLOSE_START, after which no orders complete
func (s *CxSession) StartClose(at time.Time) error {
	if err := s.requireTransition(SessionStatusFloatCloseStart); err != nil {
		return err
	}
	s.CloseStartedAt = &at
	s.transition(SessionStatusFloatCloseStart)
	return nil
}

// RecordCloseCount sets closing counts. Changing counts clears the stack's confirmation.
func (s *CxSession) RecordCloseCount(stackID uuid.UUID, counts map[uuid.UUID]int) error {
	if err := s.requireStatus(SessionStatusFloatCloseStart, "record closing counts"); err != nil {
		return err
	}
	stack, err := s.Stack(stackID)
	if err != nil {
		return err
	}
	if err := stack.applyCounts(countClose, counts); err != nil {
		return err
	}
	stack.CloseConfirmed = false
	s.IncrementVersion()
	return nil
}

// ConfirmCloseStack marks a stack's closing count as checked
func (s *CxSession) ConfirmCloseStack(stackID uuid.UUID) error {
	if err := s.requireStatus(SessionStatusFloatCloseStart, "confirm closing counts"); err != nil {
		return err
	}
	stack, err := s.Stack(stackID)
	if err != nil {
		return err
	}
	stack.CloseConfirmed = true
	s.IncrementVersion()
	return nil
}

// CancelClose returns to FLOAT_OPEN_COMPLETE and discards closing counts
func (s *CxSession) CancelClose() error {
	if s.Status != SessionStatusFloatCloseStart {
		return s.invalidTransition(SessionStatusFloatOpenComplete)
	}
	for i := range s.Stacks {
		s.Stacks[i].resetClose()
	}
	s.CloseStartedAt = nil
	s.transition(SessionStatusFloatOpenComplete)
	return nil
}

// CompleteClose moves to FLOAT_CLOSE_COMPLETE once every stack is confirmed
func (s *CxSession) CompleteClose(closedBy uuid.UUID, at time.Time) error {
	if err := s.requireTransition(SessionStatusFloatCloseComplete); err != nil {
		return err
	}
	for _, st := range s.Stacks {
		if !st.CloseConfirmed {
			return shared.NewDomainError("UNCONFIRMED_STACK", "Closing count for "+st.CurrencyCode+" has not been confirmed")
		}
	}
	s.ClosedBy = &closedBy
	s.ClosedAt = &at
	s.transition(SessionStatusFloatCloseComplete)
	s.AddDomainEvent(NewSessionClosedEvent(s))
	return nil
}

// RecordTrade books a completed order's flows against the session's stacks:
// the organization receives inAmount of inCurrency and pays out outAmount of outCurrency.
func (s *CxSession) RecordTrade(inCurrency string, inAmount decimal.Decimal, outCurrency string, outAmount decimal.Decimal) error {
	if !s.Status.IsTrading() {
		return shared.NewDomainError("SESSION_NOT_TRADING", "Orders can only be completed while the float is open")
	}
	in := s.StackForCurrency(inCurrency)
	out := s.StackForCurrency(outCurrency)
	if in == nil || out == nil {
		return shared.NewDomainError("NO_FLOAT_STACK", "Both currencies must be in the session float")
	}
	in.Bought = in.Bought.Add(inAmount)
	out.Sold = out.Sold.Add(outAmount)
	s.IncrementVersion()
	return nil
}

// Stack returns the stack with the given ID
func (s *CxSession) Stack(stackID uuid.UUID) (*FloatStack, error) {
	for i := range s.Stacks {
		if s.Stacks[i].ID == stackID {
			return &s.Stacks[i], nil
		}
	}
	return nil, shared.NewDomainError("STACK_NOT_FOUND", "Float stack not found in session")
}

// StackForCurrency returns the stack for a currency code, or nil
func (s *CxSession) StackForCurrency(code string) *FloatStack {
	for i := range s.Stacks {
		if s.Stacks[i].CurrencyCode == code {
			return &s.Stacks[i]
		}
	}
	return nil
}

// HasCurrency reports whether the session float holds the currency
func (s *CxSession) HasCurrency(code string) bool {
	return s.StackForCurrency(code) != nil
}

// CarryForward returns closing counts per currency for seeding the next session
func (s *CxSession) CarryForward() map[uuid.UUID]map[uuid.UUID]int {
	out := make(map[uuid.UUID]map[uuid.UUID]int, len(s.Stacks))
	for i := range s.Stacks {
		out[s.Stacks[i].CurrencyID] = s.Stacks[i].CloseCounts()
	}
	return out
}

// StackSummary reports the totals of one stack
type StackSummary struct {
	StackID         uuid.UUID
	CurrencyID      uuid.UUID
	CurrencyCode    string
	OpenTotal       decimal.Decimal
	MiddayTotal     decimal.Decimal
	MiddayCountedAt *time.Time
	CloseTotal      decimal.Decimal
	Bought          decimal.Decimal
	Sold            decimal.Decimal
	ExpectedClose   decimal.Decimal
	Variance        decimal.Decimal
	OpenConfirmed   bool
	CloseConfirmed  bool
}

// Summary computes totals and variance for every stack
func (s *CxSession) Summary() []StackSummary {
	out := make([]StackSummary, 0, len(s.Stacks))
	for i := range s.Stacks {
		st := &s.Stacks[i]
		out = append(out, StackSummary{
			StackID:         st.ID,
			CurrencyID:      st.CurrencyID,
			CurrencyCode:    st.CurrencyCode,
			OpenTotal:       st.OpenTotal(),
			MiddayTotal:     st.MiddayTotal(),
			MiddayCountedAt: st.MiddayCountedAt,
			CloseTotal:      st.CloseTotal(),
			Bought:          st.Bought,
			Sold:            st.Sold,
			ExpectedClose:   st.ExpectedClose(),
			Variance:        st.Variance(),
			OpenConfirmed:   st.OpenConfirmed,
			CloseConfirmed:  st.CloseConfirmed,
		})
	}
	return out
}

func (s *CxSession) requireTransition(target SessionStatus) error {
	if !s.Status.CanTransitionTo(target) {
		return s.invalidTransition(target)
	}
	return nil
}

func (s *CxSession) requireStatus(status SessionStatus, action string) error {
	if s.Status != status {
		return shared.NewDomainError("INVALID_TRANSITION",
			"Cannot "+action+" while session is "+string(s.Status))
	}
	return nil
}

func (s *CxSession) invalidTransition(target SessionStatus) error {
	return shared.NewDomainError("INVALID_TRANSITION",
		"Cannot move session from "+string(s.Status)+" to "+string(target))
}

func (s *CxSession) transition(target SessionStatus) {
	old := s.Status
	s.Status = target
	s.IncrementVersion()
	s.AddDomainEvent(NewSessionStatusChangedEvent(s, old))
}
