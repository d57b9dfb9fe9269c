package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ChangeMessage describes one recorded change of an issue record, published
// for downstream consumers (webhooks, search indexing, dashboards).
type ChangeMessage struct {
	IssueKey      string
	ProjectKey    string
	Fields        []string
	ExternalUser  *string
	WebhookSource *string
}

type Producer interface {
	Publish(ctx context.Context, msg ChangeMessage) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Publish(ctx context.Context, msg ChangeMessage) error {
	fields := map[string]any{
		"issue_key":   msg.IssueKey,
		"project_key": msg.ProjectKey,
		"fields":      strings.Join(msg.Fields, ","),
	}

	if msg.ExternalUser != nil && *msg.ExternalUser != "" {
		fields["external_user"] = *msg.ExternalUser
	}
	if msg.WebhookSource != nil && *msg.WebhookSource != "" {
		fields["webhook_source"] = *msg.WebhookSource
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("publish issue change: %w", err)
	}

	p.logger.InfoContext(ctx, "published issue change", "issue_key", msg.IssueKey, "project_key", msg.ProjectKey, "fields", len(msg.Fields))
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
