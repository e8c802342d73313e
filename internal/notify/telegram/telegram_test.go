package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"finwise/internal/amqp"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func alert(status string) *amqp.BudgetAlertMessage {
	d := decimal.RequireFromString
	return amqp.NewBudgetAlertMessage(4, "food", status, d("200"), d("30"), d("215"), d("15"))
}

func TestFormatAlert(t *testing.T) {
	over := FormatAlert(alert("over_budget"), "€")
	for _, want := range []string{"Over budget", "user 4", "€215.00", "food", "€200.00", "over by €15.00", "Last expense: €30.00"} {
		if !strings.Contains(over, want) {
			t.Errorf("over message %q missing %q", over, want)
		}
	}

	msg := alert("near_budget")
	msg.Username = "alice"
	near := FormatAlert(msg, "$")
	if !strings.HasPrefix(near, "Near budget: alice") || strings.Contains(near, "over by") {
		t.Errorf("unexpected near message %q", near)
	}
}

func TestNotifyBudget(t *testing.T) {
	bot := &fakeBot{}
	n := newNotifier(bot, 42, "$")
	if err := n.NotifyBudget(context.Background(), alert("over_budget")); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(bot.sent) != 1 || bot.sent[0].ChatID != 42 {
		t.Fatalf("unexpected sends: %+v", bot.sent)
	}

	bot.err = errors.New("boom")
	if err := n.NotifyBudget(context.Background(), alert("near_budget")); err == nil {
		t.Fatal("expected send error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.NotifyBudget(ctx, alert("near_budget")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
