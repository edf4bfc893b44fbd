// Package filters provides ready-made filters for common gating needs:
// chat allowlisting, freshness, deduplication, throttling and command
// parsing. Filters both gate a handler and may enrich the sub-update's
// extension bag.
package filters

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jdelaire/botflow/core"
)

const (
	maxSeenIDs = 10000
	pruneCount = 1000
)

// Extra keys set by the Command filter.
const (
	ExtraCommand = "command"
	ExtraArgs    = "args"
)

// ChatAllowed passes only payloads originating from one of the given chats.
// Payloads that carry no chat are skipped.
func ChatAllowed(chatIDs ...int64) core.Filter {
	allowed := make(map[int64]bool, len(chatIDs))
	for _, id := range chatIDs {
		allowed[id] = true
	}
	return func(_ context.Context, su *core.SubUpdate) (core.FilterResult, error) {
		chat, ok := chatOf(su.Payload)
		if !ok || !allowed[chat.ID] {
			return core.Skip(), nil
		}
		return core.Pass(), nil
	}
}

// Fresh skips payloads older than the given window. Payloads without a
// timestamp pass.
func Fresh(window time.Duration) core.Filter {
	return func(_ context.Context, su *core.SubUpdate) (core.FilterResult, error) {
		date, ok := dateOf(su.Payload)
		if !ok {
			return core.Pass(), nil
		}
		if time.Since(time.Unix(date, 0)) > window {
			return core.Skip(), nil
		}
		return core.Pass(), nil
	}
}

// Dedup skips updates whose identifier has been seen before. The seen set is
// pruned oldest-first once it reaches capacity, so memory stays bounded.
func Dedup() core.Filter {
	var (
		mu        sync.Mutex
		seen      = make(map[int64]bool)
		seenOrder []int64
	)
	return func(_ context.Context, su *core.SubUpdate) (core.FilterResult, error) {
		mu.Lock()
		defer mu.Unlock()

		if seen[su.ID] {
			return core.Skip(), nil
		}
		if len(seen) >= maxSeenIDs {
			for i := 0; i < pruneCount && i < len(seenOrder); i++ {
				delete(seen, seenOrder[i])
			}
			seenOrder = seenOrder[pruneCount:]
		}
		seen[su.ID] = true
		seenOrder = append(seenOrder, su.ID)
		return core.Pass(), nil
	}
}

// Command passes messages whose text invokes the named bot command and
// enriches the extension bag with the parsed command and arguments under
// ExtraCommand and ExtraArgs.
func Command(name string) core.Filter {
	name = strings.ToLower(name)
	return func(_ context.Context, su *core.SubUpdate) (core.FilterResult, error) {
		msg, ok := su.Payload.(*core.Message)
		if !ok {
			return core.Skip(), nil
		}
		cmd, args := parseCommand(msg.Text)
		if cmd == "" || cmd != name {
			return core.Skip(), nil
		}
		return core.PassWith(core.Extra{ExtraCommand: cmd, ExtraArgs: args}), nil
	}
}

// All passes only when every filter passes, merging their enrichments in
// order (later filters overwrite earlier keys).
func All(fs ...core.Filter) core.Filter {
	return func(ctx context.Context, su *core.SubUpdate) (core.FilterResult, error) {
		merged := make(core.Extra)
		for _, f := range fs {
			res, err := f(ctx, su)
			if err != nil {
				return core.Skip(), err
			}
			if !res.Pass {
				return core.Skip(), nil
			}
			for k, v := range res.Extra {
				merged[k] = v
			}
		}
		return core.PassWith(merged), nil
	}
}

// Any passes when at least one filter passes, keeping the first passing
// filter's enrichment.
func Any(fs ...core.Filter) core.Filter {
	return func(ctx context.Context, su *core.SubUpdate) (core.FilterResult, error) {
		for _, f := range fs {
			res, err := f(ctx, su)
			if err != nil {
				return core.Skip(), err
			}
			if res.Pass {
				return res, nil
			}
		}
		return core.Skip(), nil
	}
}

// parseCommand extracts the command name and arguments from a message.
// It handles "/command", "/command args", and "/command@botname args".
func parseCommand(text string) (cmd, args string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}

	text = text[1:] // strip leading "/"
	parts := strings.SplitN(text, " ", 2)
	cmd = parts[0]
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	// Strip @botname suffix.
	if at := strings.Index(cmd, "@"); at != -1 {
		cmd = cmd[:at]
	}

	cmd = strings.ToLower(cmd)
	return cmd, args
}

// chatOf extracts the originating chat from payloads that carry one.
func chatOf(p core.Payload) (core.Chat, bool) {
	switch v := p.(type) {
	case *core.Message:
		return v.Chat, true
	case *core.CallbackQuery:
		if v.Message != nil {
			return v.Message.Chat, true
		}
	case *core.ChatMemberUpdated:
		return v.Chat, true
	}
	return core.Chat{}, false
}

// dateOf extracts the unix timestamp from payloads that carry one.
func dateOf(p core.Payload) (int64, bool) {
	switch v := p.(type) {
	case *core.Message:
		return v.Date, true
	case *core.ChatMemberUpdated:
		return v.Date, true
	}
	return 0, false
}
