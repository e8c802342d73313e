// Package telegram delivers budget alerts to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"finwise/internal/amqp"
)

// sender is the part of *tgbotapi.BotAPI the notifier needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	bot            sender
	chatID         int64
	currencySymbol string
}

// New logs in with token. The chat receives every alert.
func New(token string, chatID int64, currencySymbol string) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	slog.Info("Telegram notifier ready", "bot", bot.Self.UserName, "chat_id", chatID)
	return newNotifier(bot, chatID, currencySymbol), nil
}

func newNotifier(bot sender, chatID int64, currencySymbol string) *Notifier {
	return &Notifier{bot: bot, chatID: chatID, currencySymbol: currencySymbol}
}

// NotifyBudget sends one message per alert.
func (n *Notifier) NotifyBudget(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out := tgbotapi.NewMessage(n.chatID, FormatAlert(msg, n.currencySymbol))
	if _, err := n.bot.Send(out); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// FormatAlert renders the alert text.
func FormatAlert(msg *amqp.BudgetAlertMessage, symbol string) string {
	var b strings.Builder
	who := msg.Username
	if who == "" {
		who = fmt.Sprintf("user %d", msg.UserID)
	}
	switch msg.Status {
	case "over_budget":
		fmt.Fprintf(&b, "Over budget: %s spent %s%s on %s, limit %s%s (over by %s%s).",
			who, symbol, msg.RunningTotal.StringFixed(2), msg.Category,
			symbol, msg.Limit.StringFixed(2), symbol, msg.Overage.StringFixed(2))
	default:
		fmt.Fprintf(&b, "Near budget: %s spent %s%s of %s%s on %s.",
			who, symbol, msg.RunningTotal.StringFixed(2), symbol, msg.Limit.StringFixed(2), msg.Category)
	}
	if msg.Spend.IsPositive() {
		fmt.Fprintf(&b, " Last expense: %s%s.", symbol, msg.Spend.StringFixed(2))
	}
	return b.String()
}
