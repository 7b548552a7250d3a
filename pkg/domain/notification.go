package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Notification keys handled explicitly; every other key is kept verbatim.
const (
	NotificationKeyID    = "id"
	NotificationKeyLinks = "links"
)

var (
	ErrMissingID           = errors.New("domain: notification id is required")
	ErrInvalidNotification = errors.New("domain: notification must be a JSON object")
)

// Notification is a publication event received from the router feed.
type Notification struct {
	ID    string
	Links []Link

	rawID  json.RawMessage
	fields map[string]json.RawMessage
}

// NewNotification builds a notification with a string id.
func NewNotification(id string, links ...Link) *Notification {
	return &Notification{ID: id, Links: links}
}

// ParseNotification decodes a feed payload.
func ParseNotification(data []byte) (*Notification, error) {
	n := &Notification{}
	if err := json.Unmarshal(data, n); err != nil {
		return nil, err
	}
	if strings.TrimSpace(n.ID) == "" {
		return nil, ErrMissingID
	}
	return n, nil
}

// Field returns a copy of the raw JSON stored under key, excluding id and links.
func (n *Notification) Field(key string) json.RawMessage {
	if n == nil {
		return nil
	}
	raw, ok := n.fields[key]
	if !ok {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

// SetField stores an additional top level value.
func (n *Notification) SetField(key string, value any) error {
	if key == NotificationKeyID || key == NotificationKeyLinks {
		return fmt.Errorf("domain: %s is not an additional field", key)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("domain: notification field %s: %w", key, err)
	}
	if n.fields == nil {
		n.fields = make(map[string]json.RawMessage)
	}
	n.fields[key] = raw
	return nil
}

// FieldKeys returns the additional keys in sorted order.
func (n *Notification) FieldKeys() []string {
	keys := make([]string, 0, len(n.fields))
	for k := range n.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal compares ids, links and additional fields.
func (n *Notification) Equal(other *Notification) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.ID != other.ID || len(n.Links) != len(other.Links) || len(n.fields) != len(other.fields) {
		return false
	}
	for i := range n.Links {
		if !n.Links[i].Equal(other.Links[i]) {
			return false
		}
	}
	for k, v := range n.fields {
		ov, ok := other.fields[k]
		if !ok || !sameJSON(v, ov) {
			return false
		}
	}
	return true
}

func (n Notification) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(n.fields)+2)
	for k, v := range n.fields {
		out[k] = v
	}
	id := n.rawID
	if len(id) == 0 || idText(id) != n.ID {
		var err error
		if id, err = json.Marshal(n.ID); err != nil {
			return nil, err
		}
	}
	out[NotificationKeyID] = id
	links := n.Links
	if links == nil {
		links = []Link{}
	}
	raw, err := json.Marshal(links)
	if err != nil {
		return nil, err
	}
	out[NotificationKeyLinks] = raw
	return json.Marshal(out)
}

func (n *Notification) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return ErrInvalidNotification
	}
	*n = Notification{}
	if raw, ok := fields[NotificationKeyID]; ok {
		n.rawID = raw
		n.ID = idText(raw)
		delete(fields, NotificationKeyID)
	}
	if raw, ok := fields[NotificationKeyLinks]; ok {
		if !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			if err := json.Unmarshal(raw, &n.Links); err != nil {
				return fmt.Errorf("domain: notification links: %w", err)
			}
		}
		delete(fields, NotificationKeyLinks)
	}
	n.fields = fields
	return nil
}

// idText renders an id as text: strings unquoted, numbers as written.
func idText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String()
	}
	return ""
}
