package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errFlaky = errors.New("flaky")

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	}, WithMaxAttempts(5), WithInitialDelay(time.Millisecond), WithJitter(0))

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanent(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(errFlaky)
	}, WithMaxAttempts(5), WithInitialDelay(time.Millisecond))

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, calls)
}

func TestDo_RespectsRetryIf(t *testing.T) {
	calls := 0
	other := errors.New("validation")
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return other
	}, WithRetryIf(func(err error) bool { return errors.Is(err, errFlaky) }), WithInitialDelay(time.Millisecond))

	assert.ErrorIs(t, err, other)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errFlaky
	}, WithMaxAttempts(3), WithInitialDelay(time.Millisecond), WithJitter(0))

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, calls)
}

func TestDoWithData(t *testing.T) {
	v, err := DoWithData(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 42, v)
}
