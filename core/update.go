package core

import "fmt"

// Kind identifies which payload variant an Update carries. The set is closed:
// it mirrors the update categories of the Telegram Bot API.
type Kind string

const (
	KindMessage            Kind = "message"
	KindEditedMessage      Kind = "edited_message"
	KindChannelPost        Kind = "channel_post"
	KindEditedChannelPost  Kind = "edited_channel_post"
	KindInlineQuery        Kind = "inline_query"
	KindChosenInlineResult Kind = "chosen_inline_result"
	KindCallbackQuery      Kind = "callback_query"
	KindShippingQuery      Kind = "shipping_query"
	KindPreCheckoutQuery   Kind = "pre_checkout_query"
	KindPoll               Kind = "poll"
	KindPollAnswer         Kind = "poll_answer"
	KindMyChatMember       Kind = "my_chat_member"
	KindChatMember         Kind = "chat_member"
)

// Kinds lists every recognized update kind.
var Kinds = []Kind{
	KindMessage,
	KindEditedMessage,
	KindChannelPost,
	KindEditedChannelPost,
	KindInlineQuery,
	KindChosenInlineResult,
	KindCallbackQuery,
	KindShippingQuery,
	KindPreCheckoutQuery,
	KindPoll,
	KindPollAnswer,
	KindMyChatMember,
	KindChatMember,
}

// Valid reports whether k is one of the recognized update kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindMessage, KindEditedMessage, KindChannelPost, KindEditedChannelPost,
		KindInlineQuery, KindChosenInlineResult, KindCallbackQuery,
		KindShippingQuery, KindPreCheckoutQuery, KindPoll, KindPollAnswer,
		KindMyChatMember, KindChatMember:
		return true
	}
	return false
}

// Payload is the sealed set of sub-update types. Exactly one payload value
// backs every Update; the compiler, not a field scan, guarantees it.
type Payload interface {
	payload()
}

// User identifies a Telegram user or bot.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// Chat identifies a conversation.
type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

// Message is the payload for the message, edited_message, channel_post and
// edited_channel_post kinds.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text,omitempty"`
}

// InlineQuery is the payload for the inline_query kind.
type InlineQuery struct {
	ID     string `json:"id"`
	From   User   `json:"from"`
	Query  string `json:"query"`
	Offset string `json:"offset"`
}

// ChosenInlineResult is the payload for the chosen_inline_result kind.
type ChosenInlineResult struct {
	ResultID string `json:"result_id"`
	From     User   `json:"from"`
	Query    string `json:"query"`
}

// CallbackQuery is the payload for the callback_query kind.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// ShippingQuery is the payload for the shipping_query kind.
type ShippingQuery struct {
	ID             string `json:"id"`
	From           User   `json:"from"`
	InvoicePayload string `json:"invoice_payload"`
}

// PreCheckoutQuery is the payload for the pre_checkout_query kind.
type PreCheckoutQuery struct {
	ID             string `json:"id"`
	From           User   `json:"from"`
	Currency       string `json:"currency"`
	TotalAmount    int64  `json:"total_amount"`
	InvoicePayload string `json:"invoice_payload"`
}

// Poll is the payload for the poll kind.
type Poll struct {
	ID              string `json:"id"`
	Question        string `json:"question"`
	TotalVoterCount int    `json:"total_voter_count"`
	IsClosed        bool   `json:"is_closed"`
}

// PollAnswer is the payload for the poll_answer kind.
type PollAnswer struct {
	PollID    string `json:"poll_id"`
	User      User   `json:"user"`
	OptionIDs []int  `json:"option_ids"`
}

// ChatMember describes a user's membership state in a chat.
type ChatMember struct {
	User   User   `json:"user"`
	Status string `json:"status"`
}

// ChatMemberUpdated is the payload for the my_chat_member and chat_member kinds.
type ChatMemberUpdated struct {
	Chat          Chat       `json:"chat"`
	From          User       `json:"from"`
	Date          int64      `json:"date"`
	OldChatMember ChatMember `json:"old_chat_member"`
	NewChatMember ChatMember `json:"new_chat_member"`
}

func (*Message) payload()            {}
func (*InlineQuery) payload()        {}
func (*ChosenInlineResult) payload() {}
func (*CallbackQuery) payload()      {}
func (*ShippingQuery) payload()      {}
func (*PreCheckoutQuery) payload()   {}
func (*Poll) payload()               {}
func (*PollAnswer) payload()         {}
func (*ChatMemberUpdated) payload()  {}

// Extra is the extension bag attached to a sub-update. Filters merge derived
// data into it so handlers can read it without the payload shape changing.
type Extra map[string]any

// clone returns an independent copy so one handler's filter enrichment never
// leaks into a sibling handler's invocation.
func (e Extra) clone() Extra {
	out := make(Extra, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Update is one ingested event record: a monotonically increasing identifier
// plus exactly one payload, tagged by kind. Instances are built once by the
// source adapter and are immutable afterwards; the Extra bag set at
// construction is cloned per handler invocation.
type Update struct {
	id      int64
	kind    Kind
	payload Payload
	extra   Extra
}

// NewUpdate builds a tagged Update. It rejects unknown kinds and payloads
// whose type does not match the kind.
func NewUpdate(id int64, kind Kind, p Payload) (*Update, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if p == nil || !payloadMatches(kind, p) {
		return nil, fmt.Errorf("%w: kind %q with payload %T", ErrPayloadMismatch, kind, p)
	}
	return &Update{
		id:      id,
		kind:    kind,
		payload: p,
		extra:   make(Extra),
	}, nil
}

// ID returns the update's monotonic identifier.
func (u *Update) ID() int64 { return u.id }

// Kind returns the active payload's kind.
func (u *Update) Kind() Kind { return u.kind }

// Payload returns the active sub-update payload.
func (u *Update) Payload() Payload { return u.payload }

// SetExtra stores a value in the update's base extension bag. Intended for the
// source adapter between construction and dispatch; handlers see a copy.
func (u *Update) SetExtra(key string, value any) {
	u.extra[key] = value
}

func payloadMatches(kind Kind, p Payload) bool {
	switch kind {
	case KindMessage, KindEditedMessage, KindChannelPost, KindEditedChannelPost:
		_, ok := p.(*Message)
		return ok
	case KindInlineQuery:
		_, ok := p.(*InlineQuery)
		return ok
	case KindChosenInlineResult:
		_, ok := p.(*ChosenInlineResult)
		return ok
	case KindCallbackQuery:
		_, ok := p.(*CallbackQuery)
		return ok
	case KindShippingQuery:
		_, ok := p.(*ShippingQuery)
		return ok
	case KindPreCheckoutQuery:
		_, ok := p.(*PreCheckoutQuery)
		return ok
	case KindPoll:
		_, ok := p.(*Poll)
		return ok
	case KindPollAnswer:
		_, ok := p.(*PollAnswer)
		return ok
	case KindMyChatMember, KindChatMember:
		_, ok := p.(*ChatMemberUpdated)
		return ok
	}
	return false
}
