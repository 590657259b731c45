package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	tokenDomain "linggo_sync/internal/domain/token"
	"linggo_sync/internal/testutil"
	"linggo_sync/internal/usecase/tokens"
)

var errStale = errors.New("registration token is not registered")

func isTestStale(err error) bool {
	return errors.Is(err, errStale)
}

var testCfg = Config{
	Review:        Message{Title: "Review", Body: "Words are waiting"},
	DaysAway:      Message{Title: "Miss you", Body: "Come back"},
	DaysAwayLower: 3,
	DaysAwayUpper: 4,
}

func TestDispatch_RemovesStaleTokensInBackground(t *testing.T) {
	store := testutil.NewMemoryTokenStore(
		tokenDomain.UserToken{UID: "u1", FcmTokens: []string{"good"}},
		tokenDomain.UserToken{UID: "u2", FcmTokens: []string{"dead"}},
	)
	sender := &testutil.MockPushSender{}
	sender.On("SendEachForMulticast", mock.Anything, mock.MatchedBy(func(m *messaging.MulticastMessage) bool {
		return assert.ObjectsAreEqual([]string{"good", "dead"}, m.Tokens) && m.Notification.Title == "Review" && m.Data["type"] == KindReview
	})).Return(&messaging.BatchResponse{
		SuccessCount: 1,
		FailureCount: 1,
		Responses: []*messaging.SendResponse{
			{Success: true, MessageID: "m1"},
			{Success: false, Error: errStale},
		},
	}, nil)

	d := NewDispatcher(sender, nil, tokens.NewUsecase(store, testutil.NewTestLogger()), testCfg, testutil.NewTestLogger()).
		WithStaleCheck(isTestStale)

	report := d.Dispatch(context.Background(), KindReview, testCfg.Review, []tokenDomain.Recipient{
		{UID: "u1", Tokens: []string{"good"}},
		{UID: "u2", Tokens: []string{"dead"}},
	}, time.Now())

	assert.Equal(t, Report{Kind: KindReview, Recipients: 2, Sent: 1, Failed: 1, StaleTokens: 1}, report)
	assert.Eventually(t, func() bool { return len(store.Tokens("u2")) == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"good"}, store.Tokens("u1"))
	sender.AssertExpectations(t)
}

func TestDispatch_OtherFailuresKeepToken(t *testing.T) {
	store := testutil.NewMemoryTokenStore(tokenDomain.UserToken{UID: "u1", FcmTokens: []string{"t1"}})
	sender := &testutil.MockPushSender{}
	sender.On("SendEachForMulticast", mock.Anything, mock.Anything).Return(&messaging.BatchResponse{
		FailureCount: 1,
		Responses:    []*messaging.SendResponse{{Success: false, Error: errors.New("quota exceeded")}},
	}, nil)

	d := NewDispatcher(sender, nil, tokens.NewUsecase(store, testutil.NewTestLogger()), testCfg, testutil.NewTestLogger()).
		WithStaleCheck(isTestStale)

	report := d.Dispatch(context.Background(), KindReview, testCfg.Review, []tokenDomain.Recipient{{UID: "u1", Tokens: []string{"t1"}}}, time.Now())
	d.Wait()

	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.StaleTokens)
	assert.Equal(t, []string{"t1"}, store.Tokens("u1"))
}

func TestDispatch_SkipsAlreadyNotified(t *testing.T) {
	now := time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)
	sentLog := &testutil.MockSentLog{}
	sentLog.On("MarkSent", mock.Anything, KindDaysAway, "u1", "2024-06-03").Return(false, nil)
	sentLog.On("MarkSent", mock.Anything, KindDaysAway, "u2", "2024-06-03").Return(true, nil)

	sender := &testutil.MockPushSender{}
	sender.On("SendEachForMulticast", mock.Anything, mock.MatchedBy(func(m *messaging.MulticastMessage) bool {
		return assert.ObjectsAreEqual([]string{"t2"}, m.Tokens)
	})).Return(&messaging.BatchResponse{
		SuccessCount: 1,
		Responses:    []*messaging.SendResponse{{Success: true}},
	}, nil)

	d := NewDispatcher(sender, sentLog, tokens.NewUsecase(testutil.NewMemoryTokenStore(), testutil.NewTestLogger()), testCfg, testutil.NewTestLogger())

	report := d.Dispatch(context.Background(), KindDaysAway, testCfg.DaysAway, []tokenDomain.Recipient{
		{UID: "u1", Tokens: []string{"t1"}},
		{UID: "u2", Tokens: []string{"t2"}},
	}, now)

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Sent)
	sentLog.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestDispatch_MulticastErrorIsLoggedAndForgotten(t *testing.T) {
	now := time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)
	sentLog := &testutil.MockSentLog{}
	sentLog.On("MarkSent", mock.Anything, KindReview, "u1", "2024-06-03").Return(true, nil)
	sentLog.On("Forget", mock.Anything, KindReview, "u1", "2024-06-03").Return(nil)

	sender := &testutil.MockPushSender{}
	sender.On("SendEachForMulticast", mock.Anything, mock.Anything).Return(nil, errors.New("fcm unavailable"))

	d := NewDispatcher(sender, sentLog, tokens.NewUsecase(testutil.NewMemoryTokenStore(), testutil.NewTestLogger()), testCfg, testutil.NewTestLogger())

	report := d.Dispatch(context.Background(), KindReview, testCfg.Review, []tokenDomain.Recipient{
		{UID: "u1", Tokens: []string{"a", "b"}},
	}, now)

	assert.Equal(t, 2, report.Failed)
	assert.Zero(t, report.Sent)
	sentLog.AssertExpectations(t)
}

func TestDispatch_ChunksLargeAudiences(t *testing.T) {
	var recipients []tokenDomain.Recipient
	for i := 0; i < multicastLimit+20; i++ {
		recipients = append(recipients, tokenDomain.Recipient{UID: fmt.Sprintf("u%d", i), Tokens: []string{fmt.Sprintf("t%d", i)}})
	}

	sender := &testutil.MockPushSender{}
	sender.On("SendEachForMulticast", mock.Anything, mock.MatchedBy(func(m *messaging.MulticastMessage) bool {
		return len(m.Tokens) == multicastLimit
	})).Return(&messaging.BatchResponse{Responses: successes(multicastLimit)}, nil).Once()
	sender.On("SendEachForMulticast", mock.Anything, mock.MatchedBy(func(m *messaging.MulticastMessage) bool {
		return len(m.Tokens) == 20
	})).Return(&messaging.BatchResponse{Responses: successes(20)}, nil).Once()

	d := NewDispatcher(sender, nil, tokens.NewUsecase(testutil.NewMemoryTokenStore(), testutil.NewTestLogger()), testCfg, testutil.NewTestLogger())

	report := d.Dispatch(context.Background(), KindReview, testCfg.Review, recipients, time.Now())

	assert.Equal(t, multicastLimit+20, report.Sent)
	sender.AssertExpectations(t)
}

func TestRunDaysAway_UsesConfiguredWindow(t *testing.T) {
	now := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	store := testutil.NewMemoryTokenStore(
		tokenDomain.UserToken{UID: "away", FcmTokens: []string{"t1"}, LastLoginTime: now.Add(-84 * time.Hour).UnixMilli()},
		tokenDomain.UserToken{UID: "active", FcmTokens: []string{"t2"}, LastLoginTime: now.Add(-time.Hour).UnixMilli()},
	)
	sender := &testutil.MockPushSender{}
	sender.On("SendEachForMulticast", mock.Anything, mock.MatchedBy(func(m *messaging.MulticastMessage) bool {
		return assert.ObjectsAreEqual([]string{"t1"}, m.Tokens) && m.Notification.Title == "Miss you"
	})).Return(&messaging.BatchResponse{Responses: successes(1)}, nil)

	d := NewDispatcher(sender, nil, tokens.NewUsecase(store, testutil.NewTestLogger()), testCfg, testutil.NewTestLogger())

	report, err := d.RunDaysAway(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Recipients)
	assert.Equal(t, 1, report.Sent)
}

func TestRunReview_RecipientLookupFails(t *testing.T) {
	store := testutil.NewMemoryTokenStore()
	store.Err = errors.New("mongo down")
	d := NewDispatcher(&testutil.MockPushSender{}, nil, tokens.NewUsecase(store, testutil.NewTestLogger()), testCfg, testutil.NewTestLogger())

	_, err := d.RunReview(context.Background(), time.Now())
	assert.EqualError(t, err, "mongo down")
}

func successes(n int) []*messaging.SendResponse {
	out := make([]*messaging.SendResponse, n)
	for i := range out {
		out[i] = &messaging.SendResponse{Success: true}
	}
	return out
}
