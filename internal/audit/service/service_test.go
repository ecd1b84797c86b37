package service

import (
	"context"
	"errors"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/auldata/internal/audit/domain"
	"github.com/smallbiznis/auldata/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type repoStub struct {
	events      []auditdomain.SubscriberEvent
	err         error
	offerName   string
	window      auditdomain.Window
	hasDeadline bool
	calls       int
}

func (r *repoStub) FindSubscribers(ctx context.Context, offerName string, window auditdomain.Window) ([]auditdomain.SubscriberEvent, error) {
	r.calls++
	r.offerName = offerName
	r.window = window
	_, r.hasDeadline = ctx.Deadline()
	return r.events, r.err
}

func newTestService(repo auditdomain.Repository, offer string) auditdomain.Reader {
	return NewService(Params{
		Config: config.Config{OfferName: offer, QueryTimeout: time.Minute},
		Log:    zap.NewNop(),
		Repo:   repo,
	})
}

func window() auditdomain.Window {
	return auditdomain.Window{
		Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2023, 1, 1, 23, 59, 59, 0, time.UTC),
	}
}

func TestSubscribersPassesOfferAndDeadline(t *testing.T) {
	repo := &repoStub{events: []auditdomain.SubscriberEvent{{BAN: "3", SubscriberID: "6"}}}

	events, err := newTestService(repo, " MYOFFERNAME ").Subscribers(context.Background(), window())
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, "MYOFFERNAME", repo.offerName)
	assert.Equal(t, window(), repo.window)
	assert.True(t, repo.hasDeadline)
}

func TestSubscribersValidatesInput(t *testing.T) {
	repo := &repoStub{}

	_, err := newTestService(repo, "").Subscribers(context.Background(), window())
	assert.ErrorIs(t, err, auditdomain.ErrMissingOfferName)

	inverted := auditdomain.Window{Start: window().End, End: window().Start}
	_, err = newTestService(repo, "MYOFFERNAME").Subscribers(context.Background(), inverted)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidWindow)

	assert.Zero(t, repo.calls)
}

func TestSubscribersFailsLoud(t *testing.T) {
	boom := errors.New("server selection timeout")
	_, err := newTestService(&repoStub{err: boom}, "MYOFFERNAME").Subscribers(context.Background(), window())
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "audit: find subscribers")
}
