package core

import "context"

// SubUpdate is what a handler receives: the active payload of one Update plus
// a per-invocation extension bag. Each handler invocation gets its own Extra
// copy, enriched only by that handler's filter.
type SubUpdate struct {
	Bot     *Bot
	ID      int64
	Kind    Kind
	Payload Payload
	Extra   Extra
}

// HandlerFunc processes one sub-update. A returned error is logged and
// swallowed at the per-handler boundary; it never affects sibling handlers.
type HandlerFunc func(ctx context.Context, su *SubUpdate) error

// FilterResult is the outcome of evaluating a filter for one handler.
type FilterResult struct {
	// Pass decides whether the handler runs at all.
	Pass bool
	// Extra, when non-nil on a passing result, is merged into the
	// sub-update's extension bag before the handler runs. Existing keys are
	// overwritten.
	Extra Extra
}

// Filter gates and optionally enriches a single handler's invocation. Filters
// may perform I/O. A filter error is treated like a handler error: logged,
// and the handler is skipped.
type Filter func(ctx context.Context, su *SubUpdate) (FilterResult, error)

// Pass is a FilterResult that lets the handler run with the context unchanged.
func Pass() FilterResult { return FilterResult{Pass: true} }

// Skip is a FilterResult that suppresses the handler.
func Skip() FilterResult { return FilterResult{} }

// PassWith lets the handler run and merges extra into its extension bag.
func PassWith(extra Extra) FilterResult { return FilterResult{Pass: true, Extra: extra} }

// evaluateFilter applies h's filter to su, merging any enrichment in place.
// It reports whether the handler should run.
func evaluateFilter(ctx context.Context, h *Handler, su *SubUpdate) (bool, error) {
	if h.filter == nil {
		return true, nil
	}
	res, err := h.filter(ctx, su)
	if err != nil {
		return false, err
	}
	if !res.Pass {
		return false, nil
	}
	for k, v := range res.Extra {
		su.Extra[k] = v
	}
	return true, nil
}
