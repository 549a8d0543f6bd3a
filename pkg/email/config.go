package email

// Config holds email transport configuration. The Postmark tokens are
// optional so development environments can fall back to the file-based
// DevSender; SenderEmail establishes the sender identity for all
// outbound mail.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"no-reply@localhost.local"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@localhost.local"`
	DevOutputDir         string `env:"EMAIL_DEV_OUTPUT_DIR" envDefault:"./tmp/emails"`
}
