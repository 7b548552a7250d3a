package links

import (
	"github.com/goliatone/go-pubrouter/pkg/config"
	"github.com/goliatone/go-pubrouter/pkg/domain"
)

// NeedsRetrieval reports whether link should be fetched under cfg: the
// preferred packaging, any fulltext link, and unpackaged content when enabled.
func NeedsRetrieval(link domain.Link, cfg config.RetrievalConfig) bool {
	if packaging := link.Packaging(); packaging != "" && packaging == cfg.PreferredPackagingFormat {
		return true
	}
	switch link.Type() {
	case domain.LinkTypeFulltext:
		return true
	case domain.LinkTypeUnpackaged:
		return cfg.RetrieveUnpackaged
	}
	return false
}
