package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	tele "gopkg.in/telebot.v3"

	"github.com/pershin-daniil/facultymeet/pkg/models"
	"github.com/pershin-daniil/facultymeet/pkg/schedule"
)

type App interface {
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	UpcomingMeetings(ctx context.Context, viewerUID string) ([]models.Meeting, error)
	Statistics(ctx context.Context, uid string) (schedule.Stats, error)
	ScheduleMeeting(ctx context.Context, callerUID string, req models.MeetingRequest) (models.Meeting, error)
}

// Accounts maps Telegram users onto faculty accounts.
type Accounts interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (models.User, error)
	LinkTelegram(ctx context.Context, uid string, telegramID int64) error
}

type Telegram struct {
	log      *logrus.Entry
	bot      *tele.Bot
	app      App
	accounts Accounts
	now      func() time.Time

	mu     sync.Mutex
	drafts map[int64]models.MeetingDraft
}

func New(log *logrus.Logger, bot *tele.Bot, app App, accounts Accounts, now func() time.Time) *Telegram {
	t := Telegram{
		log:      log.WithField("component", "telegram"),
		bot:      bot,
		app:      app,
		accounts: accounts,
		now:      now,
		drafts:   make(map[int64]models.MeetingDraft),
	}
	t.initButtons()
	t.initHandlers()
	return &t
}

func NewBot(token string) (*tele.Bot, error) {
	config := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(config)
	if err != nil {
		return nil, fmt.Errorf("new bot failed: %w", err)
	}
	return b, nil
}

func (t *Telegram) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		t.bot.Stop()
	}()
	t.log.Infof("Starting telegram bot as %v", t.bot.Me.Username)
	t.bot.Start()
}

// Sender is the part of the bot the notifier needs.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Directory resolves notification recipients.
type Directory interface {
	GetUser(ctx context.Context, uid string) (models.User, error)
	GetUsersByDesignations(ctx context.Context, designations []string) ([]models.User, error)
}

// Notifier delivers notifications to users who linked a Telegram chat.
// Users without a linked chat are skipped.
type Notifier struct {
	log       *logrus.Entry
	sender    Sender
	directory Directory
}

func NewNotifier(log *logrus.Logger, sender Sender, directory Directory) *Notifier {
	return &Notifier{
		log:       log.WithField("component", "notifier"),
		sender:    sender,
		directory: directory,
	}
}

func (n *Notifier) Notify(ctx context.Context, msg models.Notification) error {
	recipients, err := n.recipients(ctx, msg)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("%s\n%s", msg.Title, msg.Body)
	var errs []error
	for _, u := range recipients {
		if u.TelegramID == nil {
			continue
		}
		if _, err = n.sender.Send(tele.ChatID(*u.TelegramID), text); err != nil {
			errs = append(errs, fmt.Errorf("err sending to %s: %w", u.UID, err))
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) recipients(ctx context.Context, msg models.Notification) ([]models.User, error) {
	if msg.UID != "" {
		u, err := n.directory.GetUser(ctx, msg.UID)
		if err != nil {
			return nil, fmt.Errorf("err resolving recipient %s: %w", msg.UID, err)
		}
		return []models.User{u}, nil
	}
	designations := schedule.AudienceDesignations(msg.Topic)
	if len(designations) == 0 {
		n.log.Warnf("notification %q has no known audience %q", msg.Kind, msg.Topic)
		return nil, nil
	}
	users, err := n.directory.GetUsersByDesignations(ctx, designations)
	if err != nil {
		return nil, fmt.Errorf("err resolving audience %s: %w", msg.Topic, err)
	}
	return users, nil
}
