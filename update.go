package main

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegram-bot-api v5.5.1 predates Bot API 6.0, so Web App fields are not in
// its types. Updates are decoded into these wrappers instead, which keep every
// tgbotapi.Message field and add web_app_data.

type update struct {
	UpdateID int      `json:"update_id"`
	Message  *message `json:"message,omitempty"`
}

type message struct {
	tgbotapi.Message
	WebAppData *webAppData `json:"web_app_data,omitempty"`
}

type webAppData struct {
	Data       string `json:"data"`
	ButtonText string `json:"button_text"`
}

type webAppInfo struct {
	URL string `json:"url"`
}

type inlineButton struct {
	Text   string      `json:"text"`
	WebApp *webAppInfo `json:"web_app,omitempty"`
	URL    string      `json:"url,omitempty"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

// displayName prefers the @username, falling back to the full name.
func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return u.UserName
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}
