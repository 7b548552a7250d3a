package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-pubrouter/pkg/domain"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/queue"
)

// Job kinds produced by the router.
const (
	KindNotification = "notification"
	KindContentLink  = "content_link"
)

// NotificationJob asks the executor to process a whole notification.
// Body is the notification serialised as JSON text.
type NotificationJob struct {
	Body string `json:"body"`
}

// ContentLinkJob asks the executor to handle one selected content link.
type ContentLinkJob struct {
	NotificationID string             `json:"notification_id"`
	ContentLink    domain.ContentLink `json:"content_link"`
}

// NewNotificationJob serialises n into a notification job.
func NewNotificationJob(n *domain.Notification) (queue.Job, error) {
	body, err := json.Marshal(n)
	if err != nil {
		return queue.Job{}, fmt.Errorf("jobs: encode notification %s: %w", n.ID, err)
	}
	return queue.Job{
		Key:     NotificationKey(n.ID),
		Kind:    KindNotification,
		Payload: NotificationJob{Body: string(body)},
	}, nil
}

// NewContentLinkJob wraps one content link of a notification.
func NewContentLinkJob(notificationID string, index int, link domain.ContentLink) queue.Job {
	return queue.Job{
		Key:     ContentLinkKey(notificationID, index),
		Kind:    KindContentLink,
		Payload: ContentLinkJob{NotificationID: notificationID, ContentLink: link},
	}
}

// Notification decodes the job body.
func (j NotificationJob) Notification() (*domain.Notification, error) {
	return domain.ParseNotification([]byte(j.Body))
}

// NotificationKey identifies a notification job.
func NotificationKey(id string) string {
	return fmt.Sprintf("notification:%s", id)
}

// ContentLinkKey identifies a content link job.
func ContentLinkKey(id string, index int) string {
	return fmt.Sprintf("content_link:%s:%d", id, index)
}
