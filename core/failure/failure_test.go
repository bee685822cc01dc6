package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("op", "schedule %d", 1)))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("outer: %w", Conflict("op", "dup"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, "none", KindOf(nil).String())
}

func TestErrorsIs(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Forbidden("schedule.delete", "not owner"))
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap("op", nil))
	base := errors.New("disk full")
	err := Wrap("store", base)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.ErrorIs(t, err, base)

	nf := NotFound("op", "x")
	assert.Same(t, nf, Wrap("other", nf))
}

func TestValidationResult(t *testing.T) {
	var r ValidationResult
	assert.True(t, r.OK())
	assert.NoError(t, r.Err("op"))
	r.Add("frequency", "must be positive")
	r.Add("bid_price", "exceeds cap")
	assert.False(t, r.OK())
	err := r.Err("schedule.create")
	assert.Equal(t, KindValidation, KindOf(err))
	var fe *Error
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, []FieldError{{"bid_price", "exceeds cap"}, {"frequency", "must be positive"}}, fe.Fields)
	assert.Contains(t, err.Error(), "bid_price: exceeds cap")
}

func TestValidationResultCollect(t *testing.T) {
	type req struct {
		Name  string `json:"name" validate:"required"`
		Count int    `json:"count,omitempty" validate:"gt=0"`
		Other string `json:"other" validate:"nefield=Name"`
	}
	v := NewValidator()

	var res ValidationResult
	res.Collect(v.Struct(req{Name: "a", Other: "a"}))
	assert.Equal(t, []FieldError{
		{Field: "count", Reason: "must be greater than 0"},
		{Field: "other", Reason: "must differ from name"},
	}, res.Fields())

	var ok ValidationResult
	ok.Collect(v.Struct(req{Name: "a", Count: 1, Other: "b"}))
	assert.True(t, ok.OK())

	var bad ValidationResult
	bad.Collect(errors.New("boom"))
	assert.Equal(t, "request", bad.Fields()[0].Field)
}
