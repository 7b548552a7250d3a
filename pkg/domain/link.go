package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Packaging formats published by the router.
const (
	PackagingFilesAndJATS = "https://pubrouter.jisc.ac.uk/FilesAndJATS"
	PackagingSimpleZip    = "http://purl.org/net/sword/package/SimpleZip"
)

// Link types and access values recognised on notification links.
const (
	LinkTypePackage    = "package"
	LinkTypeFulltext   = "fulltext"
	LinkTypeUnpackaged = "unpackaged"

	AccessPublic = "public"

	FormatPDF = "application/pdf"
	FormatZip = "application/zip"
)

// Recognised link keys.
const (
	LinkKeyURL       = "url"
	LinkKeyFormat    = "format"
	LinkKeyType      = "type"
	LinkKeyAccess    = "access"
	LinkKeyPackaging = "packaging"
)

// NotificationType tags a content link with the kind of content it points at.
type NotificationType string

const (
	TypeFilesAndJATS    NotificationType = "FilesAndJATS"
	TypeSimpleZip       NotificationType = "SimpleZip"
	TypePackagedOther   NotificationType = "PackagedOther"
	TypeFulltext        NotificationType = "Fulltext"
	TypeUnpackagedPDF   NotificationType = "UnpackagedPDF"
	TypeUnpackagedZip   NotificationType = "UnpackagedZip"
	TypeUnpackagedOther NotificationType = "UnpackagedOther"
	TypeOther           NotificationType = "Other"
)

// NotificationTypes lists every notification type in decision-table order.
var NotificationTypes = []NotificationType{
	TypeFilesAndJATS,
	TypeSimpleZip,
	TypePackagedOther,
	TypeFulltext,
	TypeUnpackagedPDF,
	TypeUnpackagedZip,
	TypeUnpackagedOther,
	TypeOther,
}

// Valid reports whether t belongs to the fixed vocabulary.
func (t NotificationType) Valid() bool {
	for _, known := range NotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Link is a single entry of a notification's links collection. Every key is
// kept as raw JSON so unknown or oddly typed values survive a round trip.
type Link struct {
	fields map[string]json.RawMessage
}

// NewLink builds a link from string attributes.
func NewLink(attrs map[string]string) Link {
	link := Link{fields: make(map[string]json.RawMessage, len(attrs))}
	for k, v := range attrs {
		raw, _ := json.Marshal(v)
		link.fields[k] = raw
	}
	return link
}

// URL returns the link url, or "" when absent.
func (l Link) URL() string { return l.String(LinkKeyURL) }

// Format returns the MIME-like format, or "" when absent.
func (l Link) Format() string { return l.String(LinkKeyFormat) }

// Type returns the link type, or "" when absent.
func (l Link) Type() string { return l.String(LinkKeyType) }

// Access returns the access level, or "" when absent.
func (l Link) Access() string { return l.String(LinkKeyAccess) }

// Packaging returns the packaging URI, or "" when absent.
func (l Link) Packaging() string { return l.String(LinkKeyPackaging) }

// String returns the value stored under key when it is a JSON string.
// Missing keys and non-string values yield "".
func (l Link) String(key string) string {
	raw, ok := l.fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Has reports whether key is present, regardless of its JSON type.
func (l Link) Has(key string) bool {
	_, ok := l.fields[key]
	return ok
}

// Raw returns a copy of the raw JSON stored under key.
func (l Link) Raw(key string) json.RawMessage {
	raw, ok := l.fields[key]
	if !ok {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

// Set stores value under key, replacing any existing entry.
func (l *Link) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("domain: link field %s: %w", key, err)
	}
	if l.fields == nil {
		l.fields = make(map[string]json.RawMessage)
	}
	l.fields[key] = raw
	return nil
}

// Keys returns the link keys in sorted order.
func (l Link) Keys() []string {
	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys on the link.
func (l Link) Len() int { return len(l.fields) }

// Clone returns a deep copy so callers can annotate without touching l.
func (l Link) Clone() Link {
	out := Link{fields: make(map[string]json.RawMessage, len(l.fields))}
	for k, v := range l.fields {
		out.fields[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Equal reports whether both links carry the same keys and raw values.
func (l Link) Equal(other Link) bool {
	if len(l.fields) != len(other.fields) {
		return false
	}
	for k, v := range l.fields {
		ov, ok := other.fields[k]
		if !ok || !sameJSON(v, ov) {
			return false
		}
	}
	return true
}

// sameJSON compares two documents ignoring insignificant whitespace.
func sameJSON(a, b json.RawMessage) bool {
	if bytes.Equal(a, b) {
		return true
	}
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

func (l Link) MarshalJSON() ([]byte, error) {
	if l.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(l.fields)
}

func (l *Link) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("domain: link must be a JSON object: %w", err)
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}
	l.fields = fields
	return nil
}

// ContentLink is a link selected for retrieval plus its derived annotations.
type ContentLink struct {
	Link
	NeedAPIKey       bool
	NotificationType NotificationType
}

// Annotation keys added to content links.
const (
	ContentLinkKeyNeedAPIKey       = "need_api_key"
	ContentLinkKeyNotificationType = "notification_type"
)

var errMissingAnnotations = errors.New("domain: content link is missing need_api_key or notification_type")

func (c ContentLink) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, c.Link.Len()+2)
	for k, v := range c.Link.fields {
		out[k] = v
	}
	needKey, _ := json.Marshal(c.NeedAPIKey)
	kind, _ := json.Marshal(string(c.NotificationType))
	out[ContentLinkKeyNeedAPIKey] = needKey
	out[ContentLinkKeyNotificationType] = kind
	return json.Marshal(out)
}

func (c *ContentLink) UnmarshalJSON(data []byte) error {
	var link Link
	if err := link.UnmarshalJSON(data); err != nil {
		return err
	}
	needRaw, okNeed := link.fields[ContentLinkKeyNeedAPIKey]
	kindRaw, okKind := link.fields[ContentLinkKeyNotificationType]
	if !okNeed || !okKind {
		return errMissingAnnotations
	}
	var need bool
	if err := json.Unmarshal(needRaw, &need); err != nil {
		return fmt.Errorf("domain: content link need_api_key: %w", err)
	}
	var kind string
	if err := json.Unmarshal(kindRaw, &kind); err != nil {
		return fmt.Errorf("domain: content link notification_type: %w", err)
	}
	delete(link.fields, ContentLinkKeyNeedAPIKey)
	delete(link.fields, ContentLinkKeyNotificationType)
	c.Link = link
	c.NeedAPIKey = need
	c.NotificationType = NotificationType(kind)
	return nil
}
