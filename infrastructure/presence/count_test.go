package presence

import (
	"chat-relay/domain"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	online map[domain.UserID]bool
	err    error
	asked  []domain.UserID
}

func (f *fakeChecker) IsOnline(_ context.Context, id domain.UserID) (bool, error) {
	f.asked = append(f.asked, id)
	if f.err != nil {
		return false, f.err
	}
	return f.online[id], nil
}

func TestCountOnline(t *testing.T) {
	req := require.New(t)

	// Given a mirror where only alice and carol hold a key
	checker := &fakeChecker{online: map[domain.UserID]bool{1: true, 3: true}}

	// When counting the registry's users
	count, err := CountOnline(context.Background(), checker, []domain.UserID{1, 2, 3})

	// Then every user is checked once and the missing key is not counted
	req.NoError(err)
	req.Equal(2, count)
	req.Equal([]domain.UserID{1, 2, 3}, checker.asked)
}

func TestCountOnline_No_Users(t *testing.T) {
	count, err := CountOnline(context.Background(), &fakeChecker{}, nil)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestCountOnline_Stops_On_Error(t *testing.T) {
	req := require.New(t)
	boom := errors.New("connection refused")
	checker := &fakeChecker{err: boom}

	count, err := CountOnline(context.Background(), checker, []domain.UserID{7, 8})

	req.ErrorIs(err, boom)
	req.ErrorContains(err, "user 7")
	req.Zero(count)
	req.Len(checker.asked, 1)
}
