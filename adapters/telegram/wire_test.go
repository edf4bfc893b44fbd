package telegram

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/jdelaire/botflow/core"
)

func TestDecodeSingleSlot(t *testing.T) {
	cases := []struct {
		name string
		body string
		kind core.Kind
	}{
		{"message", `{"update_id":1,"message":{"message_id":10,"chat":{"id":5},"text":"hi"}}`, core.KindMessage},
		{"edited_message", `{"update_id":2,"edited_message":{"message_id":10,"chat":{"id":5}}}`, core.KindEditedMessage},
		{"callback_query", `{"update_id":3,"callback_query":{"id":"cb1","from":{"id":9},"data":"x"}}`, core.KindCallbackQuery},
		{"poll_answer", `{"update_id":4,"poll_answer":{"poll_id":"p","user":{"id":9},"option_ids":[0,2]}}`, core.KindPollAnswer},
		{"chat_member", `{"update_id":5,"chat_member":{"chat":{"id":5},"from":{"id":9}}}`, core.KindChatMember},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var w wireUpdate
			if err := json.Unmarshal([]byte(tc.body), &w); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			u, err := w.decode()
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if u.Kind() != tc.kind {
				t.Errorf("kind = %q, want %q", u.Kind(), tc.kind)
			}
			if u.ID() != w.UpdateID {
				t.Errorf("id = %d, want %d", u.ID(), w.UpdateID)
			}
		})
	}
}

func TestDecodeNoSlot(t *testing.T) {
	w := wireUpdate{UpdateID: 9}
	_, err := w.decode()
	if !errors.Is(err, errNoActiveSlot) {
		t.Fatalf("err = %v, want errNoActiveSlot", err)
	}
}

func TestDecodeMultipleSlots(t *testing.T) {
	w := wireUpdate{
		UpdateID: 9,
		Message:  &core.Message{MessageID: 1},
		Poll:     &core.Poll{ID: "p"},
	}
	_, err := w.decode()
	if !errors.Is(err, errMultipleActiveSlots) {
		t.Fatalf("err = %v, want errMultipleActiveSlots", err)
	}
}
