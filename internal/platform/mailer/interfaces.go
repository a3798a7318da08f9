package mailer

// Service sends one transactional email. Implementations: MailerSend,
// plain SMTP, and a dev mailer that prints to the log.
type Service interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
}
