package adapters

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"linggo_sync/internal/bootstrap"
)

// AdapterAWS holds the AWS clients. Credentials come from the default chain.
type AdapterAWS struct {
	Polly *polly.Client
	SES   *sesv2.Client
	cfg   *bootstrap.Config
}

func NewAdapterAWS(cfg *bootstrap.Config) *AdapterAWS {
	return &AdapterAWS{
		cfg: cfg,
	}
}

func (a *AdapterAWS) Init(ctx context.Context) error {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(a.cfg.AwsRegion))
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}
	a.init(awsCfg)
	return nil
}

func (a *AdapterAWS) init(awsCfg aws.Config) {
	a.Polly = polly.NewFromConfig(awsCfg)
	a.SES = sesv2.NewFromConfig(awsCfg)
}
