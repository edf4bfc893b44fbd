package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/jdelaire/botflow/core"
)

// MaxWebhookPayloadBytes caps the accepted webhook body size.
const MaxWebhookPayloadBytes = 1 << 20 // 1 MiB

// UpdateSink receives decoded update batches. *core.Bot satisfies it through
// HandleWebhook.
type UpdateSink interface {
	HandleWebhook(ctx context.Context, updates []*core.Update) error
}

// WebhookServer accepts push deliveries from the Bot API and hands decoded
// batches to the sink. The serving path contains a secret component so only
// the upstream that was given the full URL can reach it.
type WebhookServer struct {
	addr   string
	path   string
	sink   UpdateSink
	logger *slog.Logger

	listener net.Listener
	srv      *http.Server
}

// NewWebhookServer creates a webhook server. path must include the secret
// component, e.g. "/hook/<token-part>".
func NewWebhookServer(addr, path string, sink UpdateSink, logger *slog.Logger) *WebhookServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookServer{
		addr:   addr,
		path:   path,
		sink:   sink,
		logger: logger,
	}
}

// Start begins listening and serving in the background.
func (s *WebhookServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleUpdates)
	s.srv = &http.Server{Handler: mux}

	s.logger.Info("webhook server listening", "addr", ln.Addr().String(), "path", s.path)
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("webhook server failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, valid after Start.
func (s *WebhookServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server and waits for in-flight requests.
func (s *WebhookServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *WebhookServer) handleUpdates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, MaxWebhookPayloadBytes+1))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if len(data) > MaxWebhookPayloadBytes {
		s.logger.Warn("webhook payload too large", "bytes", len(data))
		http.Error(w, fmt.Sprintf("payload exceeds %d byte limit", MaxWebhookPayloadBytes),
			http.StatusRequestEntityTooLarge)
		return
	}

	updates, err := decodeWebhookBody(data)
	if err != nil {
		s.logger.Warn("invalid webhook payload", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	decoded := make([]*core.Update, 0, len(updates))
	for i := range updates {
		u, err := updates[i].decode()
		if err != nil {
			s.logger.Warn("dropping malformed update", "update_id", updates[i].UpdateID, "error", err)
			continue
		}
		decoded = append(decoded, u)
	}

	// The sink only schedules dispatch; handlers outlive this request, and
	// net/http cancels r.Context() as soon as the response is written. Hand
	// the sink a context detached from the request lifetime so in-flight
	// handlers are never cancelled by the response.
	if err := s.sink.HandleWebhook(context.WithoutCancel(r.Context()), decoded); err != nil {
		s.logger.Error("webhook delivery rejected", "error", err)
		http.Error(w, "not accepting updates", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// decodeWebhookBody accepts either a single update object (what the Bot API
// sends per request) or a batch array.
func decodeWebhookBody(data []byte) ([]wireUpdate, error) {
	trimmed := firstNonSpace(data)
	switch trimmed {
	case '[':
		var batch []wireUpdate
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("decode update batch: %w", err)
		}
		return batch, nil
	case '{':
		var one wireUpdate
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("decode update: %w", err)
		}
		return []wireUpdate{one}, nil
	default:
		return nil, fmt.Errorf("decode update: body is not a JSON object or array")
	}
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b
	}
	return 0
}
