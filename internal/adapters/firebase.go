package adapters

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"linggo_sync/internal/bootstrap"
)

type AdapterFirebase struct {
	Messaging *messaging.Client
	cfg       *bootstrap.Config
}

func NewAdapterFirebase(cfg *bootstrap.Config) *AdapterFirebase {
	return &AdapterFirebase{
		cfg: cfg,
	}
}

// Init connects to FCM with the service account file from the config, or
// with application default credentials when none is set.
func (a *AdapterFirebase) Init(ctx context.Context) error {
	var opts []option.ClientOption
	if a.cfg.FirebaseCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(a.cfg.FirebaseCredentials))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("init firebase messaging: %w", err)
	}
	a.Messaging = client
	return nil
}
