package jobs

import (
	"context"
	"fmt"

	"github.com/goliatone/go-pubrouter/pkg/domain"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/logger"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/queue"
	"github.com/goliatone/go-pubrouter/pkg/retry"
)

// NotificationProcessor persists a dequeued notification and fans out its
// content links, returning how many content link jobs were queued.
type NotificationProcessor interface {
	Process(ctx context.Context, n *domain.Notification) (int, error)
}

// NotificationHandler decodes notification jobs and hands them to p.
// Payloads that cannot be decoded are not retried.
func NotificationHandler(p NotificationProcessor, lgr logger.Logger) Handler {
	if lgr == nil {
		lgr = &logger.Nop{}
	}
	return func(ctx context.Context, job queue.Job) error {
		var payload NotificationJob
		switch v := job.Payload.(type) {
		case NotificationJob:
			payload = v
		case *NotificationJob:
			if v == nil {
				return retry.Permanent(fmt.Errorf("jobs: %s: empty payload", job.Key))
			}
			payload = *v
		case string:
			payload = NotificationJob{Body: v}
		case []byte:
			payload = NotificationJob{Body: string(v)}
		default:
			return retry.Permanent(fmt.Errorf("jobs: %s: unexpected payload %T", job.Key, job.Payload))
		}

		n, err := payload.Notification()
		if err != nil {
			return retry.Permanent(fmt.Errorf("jobs: %s: %w", job.Key, err))
		}
		count, err := p.Process(ctx, n)
		if err != nil {
			return err
		}
		lgr.Debug("notification processed", logger.F("notification_id", n.ID), logger.F("count", count))
		return nil
	}
}

// ContentLinkHandler decodes content link jobs and hands them to fn.
func ContentLinkHandler(fn func(ctx context.Context, job ContentLinkJob) error) Handler {
	return func(ctx context.Context, job queue.Job) error {
		switch v := job.Payload.(type) {
		case ContentLinkJob:
			return fn(ctx, v)
		case *ContentLinkJob:
			if v != nil {
				return fn(ctx, *v)
			}
		}
		return retry.Permanent(fmt.Errorf("jobs: %s: unexpected payload %T", job.Key, job.Payload))
	}
}

// LogContentLink returns a content link handler that only records the link.
// Retrieval happens outside this module.
func LogContentLink(lgr logger.Logger) Handler {
	if lgr == nil {
		lgr = &logger.Nop{}
	}
	return ContentLinkHandler(func(ctx context.Context, job ContentLinkJob) error {
		lgr.Info("content link ready",
			logger.F("notification_id", job.NotificationID),
			logger.F("url", job.ContentLink.URL()),
			logger.F("notification_type", string(job.ContentLink.NotificationType)),
			logger.F("need_api_key", job.ContentLink.NeedAPIKey),
		)
		return nil
	})
}
