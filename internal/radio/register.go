package radio

import (
	"fmt"

	coretelegram "github.com/m3rciful/squonkradio/core/telegram"
	"github.com/m3rciful/squonkradio/internal/session"

	tele "gopkg.in/telebot.v4"
)

// Register binds every handler to reg.
func (h *Handlers) Register(reg *coretelegram.Registry) error {
	commands := []struct {
		name string
		cmd  coretelegram.Command
	}{
		{"/start", coretelegram.Command{Handler: h.Start, Description: "Welcome message"}},
		{"/setup", coretelegram.Command{Handler: h.Setup, Description: "How to upload songs (private chat)", PrivateOnly: true}},
		{"/play", coretelegram.Command{Handler: h.Play, Description: "Play a random song of this chat"}},
	}
	for _, c := range commands {
		if err := reg.RegisterCommand(c.name, c.cmd); err != nil {
			return fmt.Errorf("radio: %w", err)
		}
	}

	if err := reg.RegisterText("group_id", session.IsDeclaration, h.Declare); err != nil {
		return fmt.Errorf("radio: %w", err)
	}
	if err := reg.RegisterMedia(tele.OnAudio, "upload", h.Upload); err != nil {
		return fmt.Errorf("radio: %w", err)
	}
	if err := reg.RegisterCallback(ActionNext, h.Next); err != nil {
		return fmt.Errorf("radio: %w", err)
	}
	if err := reg.RegisterCallback(ActionReplay, h.Replay); err != nil {
		return fmt.Errorf("radio: %w", err)
	}
	return nil
}
