// Package email provides the outbound email transport used by the email
// delivery handler.
//
// The Sender interface keeps the transport pluggable: NewPostmarkClient
// is the production implementation, DevSender writes messages to disk for
// local development. Messages carry a plain-text body and an optional
// HTML alternative.
package email
