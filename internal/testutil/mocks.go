package testutil

import (
	"context"

	"firebase.google.com/go/v4/messaging"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/mock"
)

// MockPushSender is a mock for the FCM client
type MockPushSender struct {
	mock.Mock
}

func (m *MockPushSender) SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	args := m.Called(ctx, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.BatchResponse), args.Error(1)
}

// MockSentLog is a mock for the notification de-duplication log
type MockSentLog struct {
	mock.Mock
}

func (m *MockSentLog) MarkSent(ctx context.Context, kind, uid, day string) (bool, error) {
	args := m.Called(ctx, kind, uid, day)
	return args.Bool(0), args.Error(1)
}

func (m *MockSentLog) Forget(ctx context.Context, kind, uid, day string) error {
	args := m.Called(ctx, kind, uid, day)
	return args.Error(0)
}

// MockPolly is a mock for the Polly client
type MockPolly struct {
	mock.Mock
}

func (m *MockPolly) SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*polly.SynthesizeSpeechOutput), args.Error(1)
}

// MockSES is a mock for the SES v2 client
type MockSES struct {
	mock.Mock
}

func (m *MockSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sesv2.SendEmailOutput), args.Error(1)
}
