package mail

import (
	"context"
	"fmt"

	"chmura-plikow/internal/config"

	gomail "github.com/wneessen/go-mail"
)

// Mailer wysyła maile transakcyjne (weryfikacja konta, reset hasła).
type Mailer struct {
	cfg config.SMTPConfig
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) send(to, subject, html string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("mail: invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail: invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, html)

	client, err := gomail.NewClient(m.cfg.Host,
		gomail.WithPort(m.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.cfg.User),
		gomail.WithPassword(m.cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("mail: client setup failed: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("mail: sending to %s failed: %w", to, err)
	}
	return nil
}

func (m *Mailer) SendVerificationMail(to, displayName, link string) error {
	html := fmt.Sprintf(`
		<h2>Witaj, %s!</h2>
		<p>Potwierdź swój adres e-mail klikając w poniższy link:</p>
		<p><a href="%s">Potwierdź e-mail</a></p>
		<p>Link wygasa po 24 godzinach.</p>
		<p>Jeśli to nie Ty zakładałeś konto, zignoruj tę wiadomość.</p>`, displayName, link)
	return m.send(to, "Potwierdź swój adres e-mail", html)
}

func (m *Mailer) SendPasswordResetMail(to, displayName, link string) error {
	html := fmt.Sprintf(`
		<h2>Reset hasła</h2>
		<p>Cześć %s,</p>
		<p>Poprosiłeś o reset hasła. Kliknij w poniższy link:</p>
		<p><a href="%s">Zresetuj hasło</a></p>
		<p>Link wygasa po 30 minutach.</p>
		<p>Jeśli to nie Ty, zignoruj tę wiadomość.</p>`, displayName, link)
	return m.send(to, "Reset hasła", html)
}

// Ping sprawdza połączenie z serwerem SMTP na potrzeby health-checka.
func (m *Mailer) Ping(ctx context.Context) error {
	client, err := gomail.NewClient(m.cfg.Host,
		gomail.WithPort(m.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.cfg.User),
		gomail.WithPassword(m.cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	)
	if err != nil {
		return err
	}
	if err := client.DialWithContext(ctx); err != nil {
		return err
	}
	return client.Close()
}
