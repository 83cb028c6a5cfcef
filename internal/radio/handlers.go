// Package radio implements the Squonk Radio conversation: group declaration,
// song uploads and playback with Next/Replay controls.
package radio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/m3rciful/squonkradio/core/logger"
	tghelpers "github.com/m3rciful/squonkradio/core/telegram/helpers"
	"github.com/m3rciful/squonkradio/internal/session"
	"github.com/m3rciful/squonkradio/internal/songs"

	tele "gopkg.in/telebot.v4"
)

// FileFetcher downloads a Telegram file. *tele.Bot satisfies it.
type FileFetcher interface {
	File(file *tele.File) (io.ReadCloser, error)
}

// ErrNoFetcher is returned for uploads received before a FileFetcher is set.
var ErrNoFetcher = errors.New("radio: file fetcher not configured")

// Handlers serves bot updates on top of a song library and a session store.
type Handlers struct {
	library  *songs.Library
	sessions session.Store
	files    atomic.Value // fetcherBox
}

type fetcherBox struct{ FileFetcher }

// New returns handlers bound to lib and store. The fetcher can be nil and set
// later with SetFileFetcher once the bot exists.
func New(lib *songs.Library, store session.Store, files FileFetcher) *Handlers {
	h := &Handlers{library: lib, sessions: store}
	h.SetFileFetcher(files)
	return h
}

// SetFileFetcher replaces the downloader used for uploads.
func (h *Handlers) SetFileFetcher(f FileFetcher) {
	h.files.Store(fetcherBox{f})
}

func (h *Handlers) fetcher() FileFetcher {
	box, _ := h.files.Load().(fetcherBox)
	return box.FileFetcher
}

// Start replies with the welcome text.
func (h *Handlers) Start(c tele.Context) error {
	return tghelpers.ReplyMD(c, textWelcome)
}

// Setup explains the upload flow. Registered as private-only.
func (h *Handlers) Setup(c tele.Context) error {
	return tghelpers.ReplyMD(c, textSetup)
}

// PrivateOnly answers commands used outside a private chat.
func (h *Handlers) PrivateOnly(c tele.Context) error {
	return tghelpers.ReplyMD(c, textPrivateOnly)
}

// Throttled answers a rate limited button press so the client stops its
// spinner. Rate limited messages get no reply.
func (h *Handlers) Throttled(c tele.Context) error {
	return tghelpers.Respond(c, textSlowDown, true)
}

// Declare handles "GroupID: <n>" and remembers the group for the next upload.
func (h *Handlers) Declare(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	chatID := chatID(c)

	groupID, err := session.ParseDeclaration(c.Text())
	if err == nil {
		err = session.Declare(ctx, h.sessions, chatID, groupID)
	}
	switch {
	case errors.Is(err, session.ErrInvalidGroupID):
		logger.Info(ctx, "session", "group.declare",
			slog.String("outcome", "rejected"),
			slog.String("error_kind", "invalid_group_id"),
		)
		return tghelpers.ReplyMD(c, textInvalidGroup)
	case err != nil:
		_ = tghelpers.ReplyMD(c, textFailed)
		return fmt.Errorf("radio: declare group: %w", err)
	}

	logger.Info(ctx, "session", "group.declare",
		slog.String("outcome", "ok"),
		slog.String("group_id", groupID),
	)
	return tghelpers.ReplyMD(c, fmt.Sprintf(textGroupSet, groupID))
}

// Upload stores an audio message in the folder of the pending group.
func (h *Handlers) Upload(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Audio == nil {
		return nil
	}
	audio := msg.Audio
	ctx := tghelpers.BuildContext(c)

	groupID, err := session.Consume(ctx, h.sessions, chatID(c))
	if errors.Is(err, session.ErrMissingAssociation) {
		logger.Info(ctx, "session", "upload.no_group", slog.String("outcome", "rejected"))
		return tghelpers.ReplyMD(c, textNeedGroup)
	}
	if err != nil {
		_ = tghelpers.ReplyMD(c, textFailed)
		return fmt.Errorf("radio: take pending group: %w", err)
	}

	if _, err := h.store(ctx, groupID, audio); err != nil {
		_ = tghelpers.ReplyMD(c, textFailed)
		return err
	}
	return tghelpers.ReplyMD(c, fmt.Sprintf(textSaved, codeSafe(displayName(audio)), groupID))
}

func (h *Handlers) store(ctx context.Context, groupID string, audio *tele.Audio) (string, error) {
	files := h.fetcher()
	if files == nil {
		return "", ErrNoFetcher
	}
	rc, err := files.File(&audio.File)
	if err != nil {
		return "", fmt.Errorf("radio: download %s: %w", audio.UniqueID, err)
	}
	defer rc.Close()
	return h.library.Save(ctx, groupID, audio.UniqueID, rc)
}

// Play sends a random song from the chat's own folder.
func (h *Handlers) Play(c tele.Context) error {
	return h.playback(c, songs.ModeRandom, captionPlay)
}

// Next is the "next" button: another random song.
func (h *Handlers) Next(c tele.Context) error {
	return h.playback(c, songs.ModeRandom, captionButton)
}

// Replay is the "replay" button: the first song of the sorted listing.
func (h *Handlers) Replay(c tele.Context) error {
	return h.playback(c, songs.ModeFirst, captionButton)
}

func (h *Handlers) playback(c tele.Context, mode songs.Mode, caption string) error {
	ctx := tghelpers.BuildContext(c)
	isButton := c.Callback() != nil
	groupID := strconv.FormatInt(chatID(c), 10)

	name, err := h.library.Pick(ctx, groupID, mode)
	if errors.Is(err, songs.ErrEmptyFolder) {
		logger.Info(ctx, "storage.songs", "song.pick",
			slog.String("outcome", "empty"),
			slog.String("group_id", groupID),
			slog.String("mode", mode.String()),
		)
		if isButton {
			return tghelpers.Respond(c, textNoSongsAlert, true)
		}
		return tghelpers.ReplyMD(c, textNoSongs)
	}
	if err != nil {
		if isButton {
			_ = tghelpers.Respond(c, textFailed, true)
		} else {
			_ = tghelpers.ReplyMD(c, textFailed)
		}
		return err
	}

	audio := &tele.Audio{
		File:     tele.FromDisk(h.library.Path(groupID, name)),
		Caption:  caption,
		FileName: name,
	}
	if err := tghelpers.SendAudio(c, audio, playbackControls()); err != nil {
		if isButton {
			_ = tghelpers.Respond(c, "", false)
		}
		return fmt.Errorf("radio: send %s: %w", name, err)
	}
	if isButton {
		return tghelpers.Respond(c, "", false)
	}
	return nil
}

func chatID(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	return 0
}

func displayName(a *tele.Audio) string {
	switch {
	case a.FileName != "":
		return a.FileName
	case a.Title != "":
		return a.Title
	}
	return a.UniqueID + songs.Extension
}
