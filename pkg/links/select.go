package links

import (
	"github.com/goliatone/go-pubrouter/pkg/config"
	"github.com/goliatone/go-pubrouter/pkg/domain"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/logger"
)

// Select returns the annotated links of n that need retrieval, in their
// original order. The notification is left untouched.
func Select(n *domain.Notification, cfg config.RetrievalConfig, lgr logger.Logger) []domain.ContentLink {
	if n == nil {
		return nil
	}
	if lgr == nil {
		lgr = &logger.Nop{}
	}
	selected := make([]domain.ContentLink, 0, len(n.Links))
	for _, link := range n.Links {
		if !NeedsRetrieval(link, cfg) {
			continue
		}
		content := Annotate(link)
		lgr.Debug("content link classified",
			logger.F("notification_id", n.ID),
			logger.F("notification_type", string(content.NotificationType)),
			logger.F("need_api_key", content.NeedAPIKey),
		)
		selected = append(selected, content)
	}
	return selected
}
