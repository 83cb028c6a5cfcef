package radio

import tele "gopkg.in/telebot.v4"

// Callback data of the buttons under every sent song.
const (
	ActionNext   = "next"
	ActionReplay = "replay"
)

// playbackControls is the one-row Next / Replay keyboard. The buttons carry
// the bare action as callback data.
func playbackControls() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{
		InlineKeyboard: [][]tele.InlineButton{{
			{Text: "▶️ Next", Data: ActionNext},
			{Text: "🔁 Replay", Data: ActionReplay},
		}},
	}
}
