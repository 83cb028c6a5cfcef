package radio

import "strings"

// User facing replies.
const (
	textWelcome      = "👋 Welcome to Squonk Radio V0.3! Use /setup in private chat or /play in groups."
	textSetup        = "📥 Send me an mp3 file, and tell me which group it belongs to.\n\nExample:\n1. Send: `GroupID: 123456789`\n2. Then upload mp3 files.\n\nℹ️ Only digits are accepted. Supergroup ids such as `-100123456789` cannot be declared."
	textPrivateOnly  = "Please use this command in a private chat."
	textInvalidGroup = "❌ Invalid group ID. Please send like `GroupID: 123456789`"
	textGroupSet     = "✅ Group ID set to %s. Now send mp3 files!"
	textNeedGroup    = "❗ Please first send `GroupID: <your_group_id>`"
	textSaved        = "✅ Saved `%s` for group %s"
	textNoSongs      = "❌ No songs found for this group. Use /setup in private chat to add songs."
	textNoSongsAlert = "No songs found."
	textFailed       = "⚠️ Something went wrong, please try again later."
	textSlowDown     = "Slow down a little."

	captionPlay   = "🎶 Squonk time!"
	captionButton = "🎵 Squonk on!"
)

// codeSafe keeps a user supplied name printable inside a Markdown code span.
func codeSafe(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	if s == "" {
		return "?"
	}
	return s
}
