package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/solarshop412/solar-shop-sub000/internal/platform/config"
)

// NewPubSubClient opens a Pub/Sub client for cfg, dialing the emulator without credentials
// when EmulatorHost is set.
func NewPubSubClient(ctx context.Context, cfg config.PubSubConfig, opts ...option.ClientOption) (*pubsub.Client, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, errors.New("pubsub: project id is required")
	}
	clientOpts := append([]option.ClientOption(nil), opts...)
	if host := strings.TrimSpace(cfg.EmulatorHost); host != "" {
		clientOpts = append(clientOpts,
			option.WithoutAuthentication(),
			option.WithEndpoint(host),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	client, err := pubsub.NewClient(ctx, projectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub: create client: %w", err)
	}
	return client, nil
}
