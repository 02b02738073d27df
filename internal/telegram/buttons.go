package telegram

import tele "gopkg.in/telebot.v3"

func (t *Telegram) initButtons() {
	mainMenu.Inline(
		mainMenu.Row(upcomingBtn, statsBtn))
	draftMenu.Inline(
		draftMenu.Row(confirmBtn, discardBtn))
	overrideMenu.Inline(
		overrideMenu.Row(overrideBtn, discardBtn))
}

var (
	mainMenu    = &tele.ReplyMarkup{}
	upcomingBtn = mainMenu.Data("Upcoming meetings", "upcoming")
	statsBtn    = mainMenu.Data("My statistics", "stats")
)

var (
	draftMenu  = &tele.ReplyMarkup{}
	confirmBtn = draftMenu.Data("Schedule", "confirm")
	discardBtn = draftMenu.Data("Discard", "discard")
)

var (
	overrideMenu = &tele.ReplyMarkup{}
	overrideBtn  = overrideMenu.Data("Override lower-ranked meetings", "override")
)
