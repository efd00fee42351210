package shared

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBaseAggregateRoot_Versioning(t *testing.T) {
	agg := NewTenantAggregateRoot(uuid.New())
	assert.Equal(t, 1, agg.GetVersion())
	assert.Equal(t, 0, agg.LoadedVersion())

	agg.MarkLoaded()
	agg.IncrementVersion()
	agg.IncrementVersion()
	assert.Equal(t, 3, agg.GetVersion())
	assert.Equal(t, 1, agg.LoadedVersion())
}

func TestPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 41, 2, 20)
	assert.Equal(t, 3, p.TotalPages)

	empty := NewPaginated([]int{}, 0, 1, 0)
	assert.Equal(t, 0, empty.TotalPages)

	f := DefaultFilter()
	f.Page = 3
	assert.Equal(t, 40, f.Offset())
}

func TestAsDomainError(t *testing.T) {
	wrapped := wrapError(ErrNotFound)
	de, ok := AsDomainError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "NOT_FOUND", de.Code)

	_, ok = AsDomainError(assert.AnError)
	assert.False(t, ok)
}

func wrapError(err error) error {
	return fmt.Errorf("loading: %w", err)
}

func TestNewBaseEntity(t *testing.T) {
	e := NewBaseEntity()
	assert.Equal(t, uuid.Version(7), e.ID.Version())
	assert.Equal(t, e.CreatedAt, e.UpdatedAt)
	assert.Equal(t, "UTC", e.CreatedAt.Location().String())

	before := e.UpdatedAt
	e.Touch()
	assert.False(t, e.UpdatedAt.Before(before))
}
