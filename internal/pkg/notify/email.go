package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xonn9/Unilag-Price-saver/internal/config"

	"gopkg.in/gomail.v2"
)

// EmailNotifier 实现邮件通知。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

// NewEmailNotifier 创建一个新的邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// SendAlertTriggered 发送告警触发邮件。
//
// 参数:
//
//	toEmail: 接收邮箱
//	itemName: 规则监控的商品名
//	threshold: 规则阈值
//	price: 触发时匹配到的价格
func (n *EmailNotifier) SendAlertTriggered(ctx context.Context, toEmail string, itemName string, threshold, price float64) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		n.logger.Warn("email config missing, skip notification")
		return nil
	}
	if strings.TrimSpace(toEmail) == "" {
		n.logger.Warn("email recipient empty, skip notification")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "[PriceSaver] Price alert triggered")

	body := n.buildHTMLBody(itemName, threshold, price)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("alert email sent", slog.String("to", toEmail), slog.String("item", itemName))
	return nil
}

// SendVerificationCode 发送邮箱验证码。
func (n *EmailNotifier) SendVerificationCode(toEmail string, code string) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		return fmt.Errorf("email config missing")
	}
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("empty recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "[PriceSaver] Email verification code")

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>PriceSaver email verification</h2>
    <p>Your verification code is:</p>
    <div style="font-size: 28px; font-weight: bold; letter-spacing: 3px;">%s</div>
    <p>The code expires in 10 minutes.</p>
  </div>
</body>
</html>`, code)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("verification email sent", slog.String("to", toEmail))
	return nil
}

func (n *EmailNotifier) buildHTMLBody(itemName string, threshold, price float64) string {
	template := `
<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8" />
<style>
  body { font-family: Arial, sans-serif; background: #f6f7fb; color: #1f2937; }
  .card { max-width: 600px; margin: 24px auto; background: #ffffff; border-radius: 12px; overflow: hidden; border: 1px solid #e5e7eb; }
  .header { background: #0f172a; color: #ffffff; padding: 16px 20px; font-size: 16px; font-weight: bold; }
  .content { padding: 20px; }
  .price { font-size: 26px; font-weight: bold; color: #ef4444; margin: 8px 0 12px; }
  .title { font-size: 16px; margin-bottom: 16px; }
  .footer { margin-top: 20px; font-size: 12px; color: #6b7280; }
</style>
</head>
<body>
  <div class="card">
    <div class="header">[PriceSaver] Price alert triggered</div>
    <div class="content">
      <div class="title">%s was spotted at</div>
      <div class="price">&#8358; %s</div>
      <div class="footer">Your alert threshold: &#8358; %s</div>
    </div>
  </div>
</body>
</html>`

	return fmt.Sprintf(template, itemName, formatNaira(price), formatNaira(threshold))
}

func formatNaira(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]

	n := len(intPart)
	if n <= 3 {
		return intPart + frac
	}
	out := make([]byte, 0, n+n/3+len(frac))
	for i := 0; i < n; i++ {
		out = append(out, intPart[i])
		if (n-i-1)%3 == 0 && i != n-1 {
			out = append(out, ',')
		}
	}
	return string(out) + frac
}
