package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/pershin-daniil/facultymeet/pkg/models"
	"github.com/pershin-daniil/facultymeet/pkg/schedule"
	"github.com/pershin-daniil/facultymeet/pkg/service"
	"github.com/pershin-daniil/facultymeet/pkg/voice"
)

const (
	cmdStart = "/start"
	cmdLink  = "/link"
	cmdStats = "/stats"

	timeFormat = "Mon, Jan 2 at 3:04 PM"
)

const greeting = `Faculty meetings assistant.
Link your account with /link <email> <password>, then describe a meeting in plain words, for example:
"Schedule a meeting with all HODs tomorrow at 3 pm in the conference room about budget".`

var errNotLinked = errors.New("account is not linked")

func (t *Telegram) initHandlers() {
	t.bot.Handle(cmdStart, t.startHandler)
	t.bot.Handle(cmdLink, t.linkHandler)
	t.bot.Handle(cmdStats, t.statsHandler)
	t.bot.Handle(&upcomingBtn, t.upcomingHandler)
	t.bot.Handle(&statsBtn, t.statsHandler)
	t.bot.Handle(&confirmBtn, t.confirmHandler)
	t.bot.Handle(&overrideBtn, t.overrideHandler)
	t.bot.Handle(&discardBtn, t.discardHandler)
	t.bot.Handle(tele.OnText, t.textHandler)
}

func (t *Telegram) startHandler(c tele.Context) error {
	return c.Send(greeting, mainMenu)
}

func (t *Telegram) linkHandler(c tele.Context) error {
	args := c.Args()
	if len(args) != 2 {
		return c.Send("Usage: /link <email> <password>")
	}
	ctx := context.Background()
	// The message carries a password.
	if err := c.Delete(); err != nil {
		t.log.Debugf("err deleting link message: %v", err)
	}
	user, err := t.app.Authenticate(ctx, args[0], args[1])
	if err != nil {
		return c.Send("Invalid email or password.")
	}
	if err = t.accounts.LinkTelegram(ctx, user.UID, c.Sender().ID); err != nil {
		t.log.Errorf("err linking telegram for %s: %v", user.UID, err)
		return c.Send("Could not link your account, try again later.")
	}
	return c.Send(fmt.Sprintf("Linked to %s (%s).", user.Name, user.Designation), mainMenu)
}

func (t *Telegram) user(c tele.Context) (models.User, error) {
	user, err := t.accounts.GetUserByTelegramID(context.Background(), c.Sender().ID)
	if err != nil {
		return models.User{}, errNotLinked
	}
	return user, nil
}

func (t *Telegram) upcomingHandler(c tele.Context) error {
	user, err := t.user(c)
	if err != nil {
		return c.Send("Link your account first with /link.")
	}
	meetings, err := t.app.UpcomingMeetings(context.Background(), user.UID)
	if err != nil {
		t.log.Errorf("err listing meetings for %s: %v", user.UID, err)
		return c.Send("Could not load meetings.")
	}
	return c.Send(formatMeetings(meetings))
}

func (t *Telegram) statsHandler(c tele.Context) error {
	user, err := t.user(c)
	if err != nil {
		return c.Send("Link your account first with /link.")
	}
	stats, err := t.app.Statistics(context.Background(), user.UID)
	if err != nil {
		t.log.Errorf("err computing stats for %s: %v", user.UID, err)
		return c.Send("Could not compute statistics.")
	}
	return c.Send(formatStats(stats))
}

// textHandler reads any other message as a scheduling command and offers a draft.
func (t *Telegram) textHandler(c tele.Context) error {
	if _, err := t.user(c); err != nil {
		return c.Send("Link your account first with /link.")
	}
	draft := voice.Parse(c.Text(), t.now())
	t.mu.Lock()
	t.drafts[c.Sender().ID] = draft
	t.mu.Unlock()
	return c.Send(formatDraft(draft), draftMenu)
}

func (t *Telegram) confirmHandler(c tele.Context) error {
	return t.scheduleDraft(c, false)
}

func (t *Telegram) overrideHandler(c tele.Context) error {
	return t.scheduleDraft(c, true)
}

func (t *Telegram) discardHandler(c tele.Context) error {
	t.mu.Lock()
	delete(t.drafts, c.Sender().ID)
	t.mu.Unlock()
	return c.Edit("Draft discarded.")
}

func (t *Telegram) scheduleDraft(c tele.Context, override bool) error {
	user, err := t.user(c)
	if err != nil {
		return c.Edit("Link your account first with /link.")
	}
	t.mu.Lock()
	draft, ok := t.drafts[c.Sender().ID]
	t.mu.Unlock()
	if !ok {
		return c.Edit("Nothing to schedule, send a new command.")
	}
	req := draftRequest(draft)
	req.Override = override
	meeting, err := t.app.ScheduleMeeting(context.Background(), user.UID, req)
	if err != nil {
		reply, markup := describeScheduleError(err)
		if markup == nil {
			return c.Edit(reply)
		}
		return c.Edit(reply, markup)
	}
	t.mu.Lock()
	delete(t.drafts, c.Sender().ID)
	t.mu.Unlock()
	return c.Edit(fmt.Sprintf("Scheduled %q for %s.", meeting.Title, meeting.DateTime.Format(timeFormat)))
}

func draftRequest(d models.MeetingDraft) models.MeetingRequest {
	title, audience, start := d.Title, d.Attendees, d.DateTime
	req := models.MeetingRequest{Title: &title, Attendees: &audience, DateTime: &start}
	if d.Location != "" {
		location := d.Location
		req.Location = &location
	}
	return req
}

func describeScheduleError(err error) (string, *tele.ReplyMarkup) {
	var (
		cerr *service.ConflictError
		verr *schedule.ValidationError
	)
	switch {
	case errors.As(err, &cerr):
		var b strings.Builder
		b.WriteString("This slot conflicts with:\n")
		for _, m := range cerr.Resolution.Conflicts {
			fmt.Fprintf(&b, "- %s, %s\n", m.Title, m.DateTime.Format(timeFormat))
		}
		if cerr.Resolution.CanOverride() {
			b.WriteString("All of them are held by lower-ranked hosts and can be overridden.")
			return b.String(), overrideMenu
		}
		b.WriteString("At least one of them cannot be overridden.")
		return b.String(), nil
	case errors.As(err, &verr):
		return "Cannot schedule: " + verr.Error(), nil
	case errors.Is(err, service.ErrConflictCheck):
		return "Could not check for conflicts, nothing was scheduled. Try again later.", nil
	default:
		return "Could not schedule the meeting.", nil
	}
}

func formatDraft(d models.MeetingDraft) string {
	return fmt.Sprintf("Title: %s\nAttendees: %s\nWhen: %s\nWhere: %s",
		d.Title, d.Attendees, d.DateTime.Format(timeFormat), orDash(d.Location))
}

func formatMeetings(meetings []models.Meeting) string {
	if len(meetings) == 0 {
		return "No upcoming meetings."
	}
	var b strings.Builder
	for i, m := range meetings {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\n%s, %s", m.Title, m.DateTime.Format(timeFormat), orDash(m.Location))
	}
	return b.String()
}

func formatStats(s schedule.Stats) string {
	return fmt.Sprintf("Attended: %d\nMissed: %d\nPending: %d\nTotal time: %s",
		s.Attended, s.Missed, s.Pending, s.HHMM())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
