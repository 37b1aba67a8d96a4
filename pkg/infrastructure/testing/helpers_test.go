package testing

import (
	"context"
	"errors"
	gotesting "testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vsinha/batchledger/pkg/domain/repositories"
)

// failingStore refuses every read
type failingStore struct {
	repositories.Store
}

func (failingStore) View(context.Context, func(repositories.Tx) error) error {
	return errors.New("store unavailable")
}

type recordingT struct {
	errors int
	failed bool
}

func (r *recordingT) Errorf(string, ...any) { r.errors++ }
func (r *recordingT) FailNow()              { r.failed = true }

func TestRemaining(t *gotesting.T) {
	ctx := context.Background()

	assert.True(t, Remaining(t, ctx, NewBakeryStore(), "FLOUR").Equal(decimal.NewFromInt(200)))

	rec := &recordingT{}
	Remaining(rec, ctx, failingStore{}, "FLOUR")
	assert.True(t, rec.failed, "a failed read must fail the test")
	assert.Equal(t, 1, rec.errors)
}
