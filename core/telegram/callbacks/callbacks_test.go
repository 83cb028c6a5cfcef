package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name    string
		cb      *tele.Callback
		key     string
		payload string
	}{
		{"nil", nil, "", ""},
		{"raw", &tele.Callback{Data: "next"}, "next", ""},
		{"unique prefix", &tele.Callback{Data: "\fpick|42"}, "pick", "42"},
		{"resolved unique", &tele.Callback{Unique: "pick", Data: "42"}, "pick", "42"},
		{"payload keeps pipes", &tele.Callback{Data: "a|b|c"}, "a", "b|c"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := Parse(tc.cb)
			assert.Equal(t, tc.key, key)
			assert.Equal(t, tc.payload, payload)
		})
	}
}
