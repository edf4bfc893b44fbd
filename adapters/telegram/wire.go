package telegram

import (
	"errors"
	"fmt"

	"github.com/jdelaire/botflow/core"
)

var (
	errNoActiveSlot        = errors.New("update has no recognized payload")
	errMultipleActiveSlots = errors.New("update has multiple payloads")
)

// wireUpdate is the raw shape of an update on the wire: one optional field
// per kind, with the convention that exactly one is populated. Decoding turns
// it into a tagged core.Update; records violating the one-slot convention are
// rejected here, at ingestion, and never reach dispatch.
type wireUpdate struct {
	UpdateID           int64                    `json:"update_id"`
	Message            *core.Message            `json:"message,omitempty"`
	EditedMessage      *core.Message            `json:"edited_message,omitempty"`
	ChannelPost        *core.Message            `json:"channel_post,omitempty"`
	EditedChannelPost  *core.Message            `json:"edited_channel_post,omitempty"`
	InlineQuery        *core.InlineQuery        `json:"inline_query,omitempty"`
	ChosenInlineResult *core.ChosenInlineResult `json:"chosen_inline_result,omitempty"`
	CallbackQuery      *core.CallbackQuery      `json:"callback_query,omitempty"`
	ShippingQuery      *core.ShippingQuery      `json:"shipping_query,omitempty"`
	PreCheckoutQuery   *core.PreCheckoutQuery   `json:"pre_checkout_query,omitempty"`
	Poll               *core.Poll               `json:"poll,omitempty"`
	PollAnswer         *core.PollAnswer         `json:"poll_answer,omitempty"`
	MyChatMember       *core.ChatMemberUpdated  `json:"my_chat_member,omitempty"`
	ChatMember         *core.ChatMemberUpdated  `json:"chat_member,omitempty"`
}

func (w *wireUpdate) decode() (*core.Update, error) {
	var (
		kind    core.Kind
		payload core.Payload
		slots   int
	)

	set := func(k core.Kind, p core.Payload) {
		slots++
		kind, payload = k, p
	}

	if w.Message != nil {
		set(core.KindMessage, w.Message)
	}
	if w.EditedMessage != nil {
		set(core.KindEditedMessage, w.EditedMessage)
	}
	if w.ChannelPost != nil {
		set(core.KindChannelPost, w.ChannelPost)
	}
	if w.EditedChannelPost != nil {
		set(core.KindEditedChannelPost, w.EditedChannelPost)
	}
	if w.InlineQuery != nil {
		set(core.KindInlineQuery, w.InlineQuery)
	}
	if w.ChosenInlineResult != nil {
		set(core.KindChosenInlineResult, w.ChosenInlineResult)
	}
	if w.CallbackQuery != nil {
		set(core.KindCallbackQuery, w.CallbackQuery)
	}
	if w.ShippingQuery != nil {
		set(core.KindShippingQuery, w.ShippingQuery)
	}
	if w.PreCheckoutQuery != nil {
		set(core.KindPreCheckoutQuery, w.PreCheckoutQuery)
	}
	if w.Poll != nil {
		set(core.KindPoll, w.Poll)
	}
	if w.PollAnswer != nil {
		set(core.KindPollAnswer, w.PollAnswer)
	}
	if w.MyChatMember != nil {
		set(core.KindMyChatMember, w.MyChatMember)
	}
	if w.ChatMember != nil {
		set(core.KindChatMember, w.ChatMember)
	}

	switch {
	case slots == 0:
		return nil, fmt.Errorf("update %d: %w", w.UpdateID, errNoActiveSlot)
	case slots > 1:
		return nil, fmt.Errorf("update %d: %w (%d populated)", w.UpdateID, errMultipleActiveSlots, slots)
	}

	return core.NewUpdate(w.UpdateID, kind, payload)
}
