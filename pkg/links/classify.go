package links

import "github.com/goliatone/go-pubrouter/pkg/domain"

// RequiresAPIKey is false only for links with public access.
func RequiresAPIKey(link domain.Link) bool {
	return link.Access() != domain.AccessPublic
}

// Classify maps a link onto the notification type vocabulary. It never fails;
// unknown combinations land in the Other buckets.
func Classify(link domain.Link) domain.NotificationType {
	switch link.Type() {
	case domain.LinkTypePackage:
		switch link.Packaging() {
		case domain.PackagingFilesAndJATS:
			return domain.TypeFilesAndJATS
		case domain.PackagingSimpleZip:
			return domain.TypeSimpleZip
		default:
			return domain.TypePackagedOther
		}
	case domain.LinkTypeFulltext:
		return domain.TypeFulltext
	case domain.LinkTypeUnpackaged:
		switch link.Format() {
		case domain.FormatPDF:
			return domain.TypeUnpackagedPDF
		case domain.FormatZip:
			return domain.TypeUnpackagedZip
		default:
			return domain.TypeUnpackagedOther
		}
	default:
		return domain.TypeOther
	}
}

// Annotate copies link and attaches its classification.
func Annotate(link domain.Link) domain.ContentLink {
	return domain.ContentLink{
		Link:             link.Clone(),
		NeedAPIKey:       RequiresAPIKey(link),
		NotificationType: Classify(link),
	}
}
