// Package telegram posts payment reports to an operator chat.
package telegram

import (
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"ecitizenpay/internal/models"
	"ecitizenpay/internal/pkg/utils"
)

// Notifier sends operator reports. A nil *Notifier is valid and does nothing.
type Notifier struct {
	bot    *tele.Bot
	chat   tele.ChatID
	logger *zap.Logger
}

// NewNotifier returns nil when token or chatID is unset.
func NewNotifier(token string, chatID int64, logger *zap.Logger) (*Notifier, error) {
	return newNotifier(tele.Settings{Token: token}, chatID, logger)
}

func newNotifier(pref tele.Settings, chatID int64, logger *zap.Logger) (*Notifier, error) {
	if strings.TrimSpace(pref.Token) == "" || chatID == 0 {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	// Offline skips getMe; we only ever push messages.
	pref.Offline = true
	pref.OnError = func(err error, _ tele.Context) {
		logger.Error("telebot error", zap.Error(err))
	}
	tb, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telebot: %w", err)
	}
	return &Notifier{bot: tb, chat: tele.ChatID(chatID), logger: logger}, nil
}

// PaymentReceived reports a callback to the operator chat. Failures are
// logged, never returned: the gateway must still get its acknowledgement.
func (n *Notifier) PaymentReceived(rec *models.CallbackRecord) {
	if n == nil || rec == nil {
		return
	}
	if _, err := n.bot.Send(n.chat, FormatCallback(rec), tele.ModeHTML); err != nil {
		n.logger.Warn("Failed to send telegram report",
			zap.String("checkout_request_id", rec.CheckoutRequestID),
			zap.Error(err),
		)
	}
}

// FormatCallback renders the HTML report for a callback record.
func FormatCallback(rec *models.CallbackRecord) string {
	var b strings.Builder
	if rec.Succeeded() {
		b.WriteString("✅ <b>M-Pesa payment received</b>\n\n")
		fmt.Fprintf(&b, "Amount: KES %s\n", utils.FormatKES(rec.Amount))
		fmt.Fprintf(&b, "Receipt: <code>%s</code>\n", html.EscapeString(rec.ReceiptNo))
		fmt.Fprintf(&b, "Phone: %s\n", html.EscapeString(rec.Phone))
	} else {
		b.WriteString("❌ <b>M-Pesa payment not completed</b>\n\n")
		fmt.Fprintf(&b, "Result: %s %s\n", rec.ResultCodeText(), html.EscapeString(rec.ResultDesc))
	}
	fmt.Fprintf(&b, "Checkout: <code>%s</code>", html.EscapeString(rec.CheckoutRequestID))
	return b.String()
}

// Report sends a free-form HTML message to the operator chat.
func (n *Notifier) Report(text string) {
	if n == nil {
		return
	}
	if _, err := n.bot.Send(n.chat, text, tele.ModeHTML); err != nil {
		n.logger.Warn("Failed to send telegram report", zap.Error(err))
	}
}
