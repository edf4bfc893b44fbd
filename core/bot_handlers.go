package core

import "context"

// Typed registration helpers, one per update kind. Each is sugar over
// Register with the payload already asserted to its concrete type.

// MessageHandler processes a message-family payload.
type MessageHandler func(ctx context.Context, su *SubUpdate, msg *Message) error

// InlineQueryHandler processes an inline query.
type InlineQueryHandler func(ctx context.Context, su *SubUpdate, q *InlineQuery) error

// ChosenInlineResultHandler processes a chosen inline result.
type ChosenInlineResultHandler func(ctx context.Context, su *SubUpdate, r *ChosenInlineResult) error

// CallbackQueryHandler processes a callback query.
type CallbackQueryHandler func(ctx context.Context, su *SubUpdate, q *CallbackQuery) error

// ShippingQueryHandler processes a shipping query.
type ShippingQueryHandler func(ctx context.Context, su *SubUpdate, q *ShippingQuery) error

// PreCheckoutQueryHandler processes a pre-checkout query.
type PreCheckoutQueryHandler func(ctx context.Context, su *SubUpdate, q *PreCheckoutQuery) error

// PollHandler processes a poll state update.
type PollHandler func(ctx context.Context, su *SubUpdate, p *Poll) error

// PollAnswerHandler processes a poll answer.
type PollAnswerHandler func(ctx context.Context, su *SubUpdate, a *PollAnswer) error

// ChatMemberHandler processes a chat member change.
type ChatMemberHandler func(ctx context.Context, su *SubUpdate, c *ChatMemberUpdated) error

func onMessageKind(b *Bot, kind Kind, fn MessageHandler, filter Filter) (*Handler, error) {
	return b.Register(kind, func(ctx context.Context, su *SubUpdate) error {
		return fn(ctx, su, su.Payload.(*Message))
	}, filter)
}

// OnMessage registers a handler for new messages.
func (b *Bot) OnMessage(fn MessageHandler, filter Filter) (*Handler, error) {
	return onMessageKind(b, KindMessage, fn, filter)
}

// OnEditedMessage registers a handler for edited messages.
func (b *Bot) OnEditedMessage(fn MessageHandler, filter Filter) (*Handler, error) {
	return onMessageKind(b, KindEditedMessage, fn, filter)
}

// OnChannelPost registers a handler for channel posts.
func (b *Bot) OnChannelPost(fn MessageHandler, filter Filter) (*Handler, error) {
	return onMessageKind(b, KindChannelPost, fn, filter)
}

// OnEditedChannelPost registers a handler for edited channel posts.
func (b *Bot) OnEditedChannelPost(fn MessageHandler, filter Filter) (*Handler, error) {
	return onMessageKind(b, KindEditedChannelPost, fn, filter)
}

// OnInlineQuery registers a handler for inline queries.
func (b *Bot) OnInlineQuery(fn InlineQueryHandler, filter Filter) (*Handler, error) {
	return b.Register(KindInlineQuery, func(ctx context.Context, su *SubUpdate) error {
		return fn(ctx, su, su.Payload.(*InlineQuery))
	}, filter)
}

// OnChosenInlineResult registers a handler for chosen inline results.
func (b *Bot) OnChosenInlineResult(fn ChosenInlineResultHandler, filter Filter) (*Handler, error) {
	return b.Register(KindChosenInlineResult, func(ctx context.Context, su *SubUpdate) error {
		return fn(ctx, su, su.Payload.(*ChosenInlineResult))
	}, filter)
}

// OnCallbackQuery registers a handler for callback queries.
func (b *Bot) OnCallbackQuery(fn CallbackQueryHandler, filter Filter) (*Handler, error) {
	return b.Register(KindCallbackQuery, func(ctx context.Context, su *SubUpdate) error {
		return fn(ctx, su, su.Payload.(*CallbackQuery))
	}, filter)
}

// OnShippingQuery registers a handler for shipping queries.
func (b *Bot) OnShippingQuery(fn ShippingQueryHandler, filter Filter) (*Handler, error) {
	return b.Register(KindShippingQuery, func(ctx context.Context, su *SubUpdate) error {
		return fn(ctx, su, su.Payload.(*ShippingQuery))
	}, filter)
}

// OnPreCheckoutQuery registers a handler for pre-checkout queries.
func (b *Bot) OnPreCheckoutQuery(fn PreCheckoutQueryHandler, filter Filter) (*Handler, error) {
	return b.Register(KindPreCheckoutQuery, func(ctx context.Context, su *SubUpdate) error {
		return fn(ctx, su, su.Payload.(*PreCheckoutQuery))
	}, filter)
}

// OnPoll registers a handler for poll state updates.
func (b *Bot) OnPoll(fn PollHandler, filter Filter) (*Handler, error) {
	return b.Register(KindPoll, func(ctx context.Context, su *SubUpdate) error {
		return fn(ctx, su, su.Payload.(*Poll))
	}, filter)
}

// OnPollAnswer registers a handler for poll answers.
func (b *Bot) OnPollAnswer(fn PollAnswerHandler, filter Filter) (*Handler, error) {
	return b.Register(KindPollAnswer, func(ctx context.Context, su *SubUpdate) error {
		return fn(ctx, su, su.Payload.(*PollAnswer))
	}, filter)
}

// OnMyChatMember registers a handler for the bot's own membership changes.
func (b *Bot) OnMyChatMember(fn ChatMemberHandler, filter Filter) (*Handler, error) {
	return b.Register(KindMyChatMember, func(ctx context.Context, su *SubUpdate) error {
		return fn(ctx, su, su.Payload.(*ChatMemberUpdated))
	}, filter)
}

// OnChatMember registers a handler for other members' membership changes.
func (b *Bot) OnChatMember(fn ChatMemberHandler, filter Filter) (*Handler, error) {
	return b.Register(KindChatMember, func(ctx context.Context, su *SubUpdate) error {
		return fn(ctx, su, su.Payload.(*ChatMemberUpdated))
	}, filter)
}
