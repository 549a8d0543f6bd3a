package email

import (
	"context"
	"fmt"
	"regexp"
)

// Sender represents an interface for sending transactional email.
// The delivery pipeline treats the transport as an external collaborator;
// everything behind this interface (Postmark, files on disk) is
// interchangeable.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message represents one outbound email. BodyText is the plain-text part;
// BodyHTML is optional and, when present, is sent as the rich alternative.
type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	BodyText string `json:"body_text"`
	BodyHTML string `json:"body_html,omitempty"`
	Tag      string `json:"tag,omitempty"`
}

// emailRegex is a pragmatic address check, not a full RFC 5322 parser.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks the message has a deliverable shape.
func (m Message) Validate() error {
	if m.To == "" {
		return fmt.Errorf("%w: recipient address is required", ErrInvalidMessage)
	}
	if !emailRegex.MatchString(m.To) {
		return fmt.Errorf("%w: %q is not a valid email address", ErrInvalidMessage, m.To)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if m.BodyText == "" && m.BodyHTML == "" {
		return fmt.Errorf("%w: message body is required", ErrInvalidMessage)
	}
	return nil
}
