package adapters

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"linggo_sync/internal/bootstrap"
)

func TestAdapterAWS_BuildsClients(t *testing.T) {
	a := NewAdapterAWS(&bootstrap.Config{AwsRegion: "eu-west-2"})
	a.init(aws.Config{Region: "eu-west-2"})

	assert.NotNil(t, a.Polly)
	assert.NotNil(t, a.SES)
}

func TestAdapterRedis_InitFailsWithoutServer(t *testing.T) {
	a := NewAdapterRedis(&bootstrap.Config{RedisUrl: "127.0.0.1:1"}, zap.NewNop().Sugar())

	err := a.Init(context.Background())
	require.Error(t, err)
	assert.NoError(t, a.Close(context.Background()))
}

func TestAdapterMongo_CloseWithoutInit(t *testing.T) {
	a := NewAdapterMongo(&bootstrap.Config{}, zap.NewNop().Sugar())
	assert.NoError(t, a.Close(context.Background()))
}
