package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/courierd/courierd/pkg/email"
)

// Defaults applied when the message payload omits a field. Enqueue-side
// validation only guarantees the payload is a JSON object, so the email
// handler fills the gaps instead of failing the job.
const (
	DefaultSubject  = "No Subject"
	DefaultBodyText = "No text content."
)

// ContactResolver maps a recipient id to a deliverable email address.
// Implementations typically query the application's user table.
type ContactResolver interface {
	EmailAddress(ctx context.Context, recipientID int64) (string, error)
}

// emailPayload is the message_data shape the email channel understands.
type emailPayload struct {
	Subject  string `json:"subject"`
	BodyText string `json:"body_text"`
	BodyHTML string `json:"body_html"`
	Tag      string `json:"tag"`
}

// EmailHandler delivers a job's payload as an email through a Sender.
type EmailHandler struct {
	sender   email.Sender
	resolver ContactResolver
}

// NewEmailHandler creates the email channel handler.
func NewEmailHandler(sender email.Sender, resolver ContactResolver) (*EmailHandler, error) {
	if sender == nil {
		return nil, ErrSenderNil
	}
	if resolver == nil {
		return nil, ErrResolverNil
	}
	return &EmailHandler{sender: sender, resolver: resolver}, nil
}

// Send implements Handler.
func (h *EmailHandler) Send(ctx context.Context, recipientID int64, data json.RawMessage, jobID int64) error {
	addr, err := h.resolver.EmailAddress(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("resolve recipient %d: %w", recipientID, err)
	}
	if addr == "" {
		return fmt.Errorf("recipient %d: %w", recipientID, ErrRecipientNoAddr)
	}

	var p emailPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode email payload for job %d: %w", jobID, err)
	}
	if p.Subject == "" {
		p.Subject = DefaultSubject
	}
	if p.BodyText == "" {
		p.BodyText = DefaultBodyText
	}

	msg := email.Message{
		To:       addr,
		Subject:  p.Subject,
		BodyText: p.BodyText,
		BodyHTML: p.BodyHTML,
		Tag:      p.Tag,
	}
	if err := h.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send email for job %d: %w", jobID, err)
	}
	return nil
}
