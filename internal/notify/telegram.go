package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"agendapro/internal/config"
	"agendapro/internal/domain"
	"agendapro/internal/events"
	"agendapro/internal/logging"
	"agendapro/internal/models"
	"agendapro/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const moneyPrefix = "R$ "

// DefaultRetry is used when the caller passes a zero policy.
var DefaultRetry = worker.RetryPolicy{
	MaxRetries:    3,
	InitialDelay:  time.Second,
	MaxDelay:      30 * time.Second,
	BackoffFactor: 2,
}

// TelegramNotifier messages the operator chat about registrations, payments and bookings.
type TelegramNotifier struct {
	sender domain.TelegramSender
	chatID int64
	retry  worker.RetryPolicy
	logger *zerolog.Logger

	wg      sync.WaitGroup
	timeout time.Duration
}

// NewBotSender connects to the Bot API. An empty token returns a nil sender.
func NewBotSender(cfg config.TelegramConfig) (domain.TelegramSender, error) {
	if cfg.BotToken == "" {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug
	return bot, nil
}

func NewTelegramNotifier(sender domain.TelegramSender, chatID int64, retry worker.RetryPolicy, logger *zerolog.Logger) *TelegramNotifier {
	if retry.MaxRetries <= 0 && retry.InitialDelay <= 0 {
		retry = DefaultRetry
	}
	l := logging.Component(logger, "telegram_notifier")
	return &TelegramNotifier{
		sender:  sender,
		chatID:  chatID,
		retry:   retry,
		logger:  l,
		timeout: 2 * time.Minute,
	}
}

func (n *TelegramNotifier) Enabled() bool {
	return n != nil && n.sender != nil && n.chatID != 0
}

// Attach subscribes the notifier to the bus. It does nothing when disabled.
func (n *TelegramNotifier) Attach(bus *events.EventBus) {
	if !n.Enabled() || bus == nil {
		return
	}
	bus.Subscribe(events.EventTenantRegistered, n.onTenantRegistered)
	bus.Subscribe(events.EventPaymentConfirmed, n.onPaymentConfirmed)
	bus.Subscribe(events.EventAppointmentCreated, n.onAppointmentCreated)
}

// Notify sends text, retrying with backoff until the policy or ctx gives up.
func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	if !n.Enabled() {
		return nil
	}
	msg := tgbotapi.NewMessage(n.chatID, text)

	var err error
	for attempt := 0; attempt < n.retry.Attempts(); attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(n.retry.NextDelay(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("telegram send: %w (last error: %v)", ctx.Err(), err)
			case <-timer.C:
			}
		}
		if _, err = n.sender.Send(msg); err == nil {
			return nil
		}
		n.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("telegram send failed")
	}
	return fmt.Errorf("telegram send after %d attempts: %w", n.retry.Attempts(), err)
}

// Wait blocks until queued sends finish.
func (n *TelegramNotifier) Wait() {
	n.wg.Wait()
}

func (n *TelegramNotifier) dispatch(text string) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.Notify(ctx, text); err != nil {
			n.logger.Error().Err(err).Msg("notification dropped")
		}
	}()
}

func (n *TelegramNotifier) onTenantRegistered(e *events.Event) error {
	var p events.TenantEventPayload
	if err := e.Decode(&p); err != nil {
		return err
	}
	n.dispatch(fmt.Sprintf("Novo cadastro: %s (%s)\nPlano: %s\nAguardando pagamento.",
		p.BusinessName, p.Email, p.Plan))
	return nil
}

func (n *TelegramNotifier) onPaymentConfirmed(e *events.Event) error {
	var p events.PaymentEventPayload
	if err := e.Decode(&p); err != nil {
		return err
	}
	n.dispatch(fmt.Sprintf("Pagamento confirmado: %s\nPlano: %s - %s%s\nVálido até %s",
		p.BusinessName, p.Plan, moneyPrefix, p.Amount.StringFixed(2), p.ExpiresAt.Format("02/01/2006")))
	return nil
}

func (n *TelegramNotifier) onAppointmentCreated(e *events.Event) error {
	var p events.AppointmentEventPayload
	if err := e.Decode(&p); err != nil {
		return err
	}
	n.dispatch(fmt.Sprintf("Novo agendamento: %s - %s\n%s às %s (%s%s)",
		p.ClientName, p.ServiceName, p.Date, p.StartTime, moneyPrefix, p.Price.StringFixed(2)))
	return nil
}

// SettingsChanged tells the operator the new plan prices and commission. It is
// meant to be registered with SettingsService.Subscribe.
func (n *TelegramNotifier) SettingsChanged(s models.AdminSettings) {
	if !n.Enabled() {
		return
	}
	ids := make([]string, 0, len(s.Plans))
	for id := range s.Plans {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("Configurações atualizadas")
	for _, id := range ids {
		p := s.Plans[id]
		fmt.Fprintf(&b, "\n%s: %s%s", p.Name, moneyPrefix, p.Price.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nComissão de afiliados: %d%%", s.Affiliate.CommissionPercent)
	n.dispatch(b.String())
}
