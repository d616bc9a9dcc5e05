// ABOUTME: JSON HTTP API mirroring the portal pages' ledger operations
// ABOUTME: Same operations and fixed messages as the pages, answered as JSON instead of redirects

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/2389/ledger-portal/internal/auth"
	"github.com/2389/ledger-portal/internal/ledger"
	"github.com/2389/ledger-portal/internal/store"
	"github.com/2389/ledger-portal/internal/upload"
)

// Ledger is the subset of ledger.Service the API calls.
type Ledger interface {
	CreateProduct(ctx context.Context, in ledger.ProductInput) (string, error)
	CreateTransfer(ctx context.Context, in ledger.TransferInput) (string, error)
	ConfirmTransfer(ctx context.Context, in ledger.ConfirmInput) (string, error)
	RecordEmissions(ctx context.Context, in ledger.EmissionsInput) (string, error)
	Configure(ctx context.Context, cfg ledger.GatewayConfig) error
	SetContracts(names ledger.ContractNames) error
	QueryProduct(ctx context.Context, assetID string) (string, error)
}

// Server serves the JSON API.
type Server struct {
	ledger   Ledger
	activity store.ActivityStore
	uploads  *upload.Saver
	presets  map[string]ledger.GatewayConfig
	verifier auth.TokenVerifier
	logger   *slog.Logger
}

// New creates an API server. A nil verifier leaves the API unauthenticated.
func New(l Ledger, activity store.ActivityStore, uploads *upload.Saver, presets map[string]ledger.GatewayConfig, verifier auth.TokenVerifier, logger *slog.Logger) *Server {
	return &Server{
		ledger:   l,
		activity: activity,
		uploads:  uploads,
		presets:  presets,
		verifier: verifier,
		logger:   logger,
	}
}

// Handler returns the API routes. /health is never authenticated.
func (s *Server) Handler() http.Handler {
	ops := http.NewServeMux()
	ops.HandleFunc("POST /manufacture", s.handleManufacture)
	ops.HandleFunc("POST /transfer", s.handleTransfer)
	ops.HandleFunc("POST /transfer/confirm", s.handleConfirm)
	ops.HandleFunc("POST /emissions", s.handleEmissions)
	ops.HandleFunc("POST /settings/gateway", s.handleGateway)
	ops.HandleFunc("POST /settings/channel", s.handleChannel)
	ops.HandleFunc("POST /overview", s.handleOverview)

	var guarded http.Handler = ops
	if s.verifier != nil {
		guarded = auth.HTTPAuthMiddleware(s.verifier, s.logger)(ops)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("/", guarded)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// formRequest is implemented by request bodies that also accept form encoding.
type formRequest interface {
	fromForm(v url.Values) error
}

// decode reads a JSON or form body into dst. JSON bodies share the upload
// size limit with multipart ones.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst formRequest) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		s.uploads.LimitBody(w, r)
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return fmt.Errorf("invalid JSON body: %w", err)
		}
		return nil
	}

	if err := s.uploads.ParseForm(r); err != nil {
		return err
	}
	return dst.fromForm(r.Form)
}

// saveUpload stores an attached file. Failures are logged only.
func (s *Server) saveUpload(r *http.Request) {
	path, err := s.uploads.Save(r, "file")
	if err != nil {
		s.logger.Error("error uploading the file", "error", err)
		return
	}
	if path != "" {
		s.logger.Info("file uploaded", "path", path)
	}
}

func (s *Server) handleManufacture(w http.ResponseWriter, r *http.Request) {
	var req ManufactureRequest
	if err := s.decode(w, r, &req); err != nil {
		s.sendDecodeError(w, err)
		return
	}
	s.saveUpload(r)

	result, err := s.ledger.CreateProduct(r.Context(), req.input())
	s.respond(w, r, ledger.OpCreateProduct, result, err)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := s.decode(w, r, &req); err != nil {
		s.sendDecodeError(w, err)
		return
	}

	result, err := s.ledger.CreateTransfer(r.Context(), req.input())
	s.respond(w, r, ledger.OpCreateTransfer, result, err)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := s.decode(w, r, &req); err != nil {
		s.sendDecodeError(w, err)
		return
	}

	result, err := s.ledger.ConfirmTransfer(r.Context(), req.input())
	s.respond(w, r, ledger.OpConfirmTransfer, result, err)
}

func (s *Server) handleEmissions(w http.ResponseWriter, r *http.Request) {
	var req EmissionsRequest
	if err := s.decode(w, r, &req); err != nil {
		s.sendDecodeError(w, err)
		return
	}
	s.saveUpload(r)

	result, err := s.ledger.RecordEmissions(r.Context(), ledger.EmissionsInput{
		KgCO2: req.GHGEmissions,
		Notes: req.AdditionalInfo,
	})
	s.respond(w, r, ledger.OpRecordEmissions, result, err)
}

func (s *Server) handleGateway(w http.ResponseWriter, r *http.Request) {
	var req GatewayRequest
	if err := s.decode(w, r, &req); err != nil {
		s.sendDecodeError(w, err)
		return
	}

	cfg := req.GatewayConfig
	if req.Preset != "" {
		p, ok := s.presets[req.Preset]
		if !ok {
			s.sendJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown preset %q", req.Preset))
			return
		}
		cfg = p
	}
	if err := cfg.Validate(); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.ledger.Configure(r.Context(), cfg)
	s.respond(w, r, ledger.OpConfigureGateway, "", err)
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	var req ChannelRequest
	if err := s.decode(w, r, &req); err != nil {
		s.sendDecodeError(w, err)
		return
	}
	if err := req.ContractNames.Validate(); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.ledger.SetContracts(req.ContractNames)
	s.respond(w, r, ledger.OpSetContracts, "", err)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	var req OverviewRequest
	if err := s.decode(w, r, &req); err != nil {
		s.sendDecodeError(w, err)
		return
	}
	id := strings.TrimSpace(req.ProductID)
	if id == "" {
		s.sendJSONError(w, http.StatusBadRequest, "productID is required")
		return
	}

	result, err := s.ledger.QueryProduct(r.Context(), id)
	s.respond(w, r, ledger.OpQueryProduct, result, err)
}

// respond records the outcome and writes it. Ledger failures answer 502
// with the fixed message; validation failures inside the ledger answer 400.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, op ledger.Operation, result string, opErr error) {
	s.record(r.Context(), op, result, opErr)

	if opErr != nil {
		attrs := append([]any{"operation", op.Name, "subject", auth.SubjectFromContext(r.Context())}, ledger.ErrorAttrs(opErr)...)
		s.logger.Error("ledger operation failed", attrs...)

		status := http.StatusBadGateway
		if errors.Is(opErr, ledger.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		s.sendJSONError(w, status, op.Failure)
		return
	}

	s.logger.Info("ledger operation succeeded", "operation", op.Name, "subject", auth.SubjectFromContext(r.Context()))
	s.sendJSON(w, http.StatusOK, Response{Message: op.Success, Result: result})
}

func (s *Server) record(ctx context.Context, op ledger.Operation, result string, opErr error) {
	entry := &store.ActivityEntry{
		Operation: op.Name,
		Source:    store.SourceAPI,
		Status:    store.ActivitySucceeded,
		Result:    result,
	}
	if opErr != nil {
		entry.Status = store.ActivityFailed
		entry.Error = opErr.Error()
	}
	if err := s.activity.AppendActivity(ctx, entry); err != nil {
		s.logger.Warn("failed to record activity", "operation", op.Name, "error", err)
	}
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

// sendDecodeError answers 413 for oversized bodies and 400 otherwise.
func (s *Server) sendDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.sendJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	s.sendJSONError(w, http.StatusBadRequest, err.Error())
}

func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, map[string]string{"error": message})
}
