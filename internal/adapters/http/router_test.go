package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	httpadapter "github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/adapters/http"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/adapters/verifier"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
)

type testServer struct {
	t        *testing.T
	router   http.Handler
	tokens   *security.HMACTokenVerifier
	verifier *verifier.HMACVerifier
	seq      int
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	tokens, err := security.NewHMACTokenVerifier("jwt-secret", "")
	require.NoError(t, err)
	v, err := verifier.NewHMACVerifier("webhook-secret")
	require.NoError(t, err)
	svc := application.NewService(application.Dependencies{
		UnitOfWork:  store,
		Idempotency: store.Idempotency(),
		EventDedup:  store.EventDedup(),
		Verifier:    v,
	})
	router := httpadapter.NewRouter(httpadapter.NewHandler(svc, tokens, nil), httpadapter.RouterOptions{})
	return &testServer{t: t, router: router, tokens: tokens, verifier: v}
}

func (s *testServer) do(method, path, subject, role string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(s.t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if subject != "" {
		token, err := s.tokens.Sign(subject, role, time.Hour)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method != http.MethodGet {
		s.seq++
		req.Header.Set("Idempotency-Key", fmt.Sprintf("http-key-%d", s.seq))
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var out struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Equal(t, "success", out.Status)
	require.NoError(t, json.Unmarshal(out.Data, dst))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) contracts.ErrorPayload {
	t.Helper()
	var out contracts.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out.Error
}

func TestSettlementRoutesEndToEnd(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodPut, "/v1/admin/commission-rate", "admin-1", "admin", contracts.CommissionRateRequest{RatePercent: "10"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodPost, "/v1/collaborations", "brand-1", "user", contracts.InitCollaborationRequest{
		PayerID: "brand-1", PayeeID: "creator-1", Amount: 10000, Currency: "INR",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var collab contracts.CollaborationResponse
	decodeData(t, rr, &collab)
	assert.Equal(t, "INR 100.00", collab.AmountDisplay)
	assert.Equal(t, "payee", collab.AwaitingRole)

	base := "/v1/collaborations/" + collab.CollaborationID
	rr = s.do(http.MethodPost, base+"/actions", "creator-1", "user", contracts.ActionRequest{Type: "accept_price"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = s.do(http.MethodPost, base+"/actions", "brand-1", "user", contracts.ActionRequest{Type: "start_payment", ExternalOrderID: "order-http-1"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	cb := ports.PaymentCallback{ExternalOrderID: "order-http-1", ExternalPaymentID: "pay-http-1", VerifiedAmount: 10000}
	rr = s.do(http.MethodPost, "/v1/payments/verifications", "", "", contracts.PaymentVerificationRequest{
		ExternalOrderID:   cb.ExternalOrderID,
		ExternalPaymentID: cb.ExternalPaymentID,
		VerifiedAmount:    cb.VerifiedAmount,
		Signature:         s.verifier.Sign(cb),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var settlement struct {
		SettlementID string `json:"settlement_id"`
	}
	decodeData(t, rr, &settlement)
	require.NotEmpty(t, settlement.SettlementID)

	rr = s.do(http.MethodGet, base+"/breakdown", "creator-1", "user", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var breakdown contracts.BreakdownResponse
	decodeData(t, rr, &breakdown)
	assert.Equal(t, int64(1000), breakdown.CommissionAmount)
	assert.Equal(t, "INR 27.00", breakdown.AdvanceDisplay)
	assert.Equal(t, "INR 63.00", breakdown.FinalDisplay)

	rr = s.do(http.MethodPost, "/v1/admin/settlements/"+settlement.SettlementID+"/advance-confirmations", "admin-1", "admin",
		contracts.ConfirmReleaseRequest{EvidenceRef: "UTR-1"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodGet, "/v1/wallets/creator-1", "creator-1", "user", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var wallet struct {
		Balance int64 `json:"balance"`
	}
	decodeData(t, rr, &wallet)
	assert.Equal(t, int64(2700), wallet.Balance)

	rr = s.do(http.MethodPost, "/v1/admin/settlements/"+settlement.SettlementID+"/advance-confirmations", "admin-1", "admin",
		contracts.ConfirmReleaseRequest{EvidenceRef: "UTR-1"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "already_confirmed", decodeError(t, rr).Code)
}

func TestRoutesRequireBearerToken(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(http.MethodGet, "/v1/wallets/creator-1", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rr).Code)
}

func TestAdminRoutesRejectParties(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(http.MethodPut, "/v1/admin/commission-rate", "brand-1", "user", contracts.CommissionRateRequest{RatePercent: "10"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "request rejected", decodeError(t, rr).Message)
}

func TestAdminGateRunsBeforeBodyDecoding(t *testing.T) {
	s := newTestServer(t)
	token, err := s.tokens.Sign("brand-1", "user", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/settlements/s-1/refunds", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Idempotency-Key", "gate-1")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "forbidden", decodeError(t, rr).Code)

	rr = s.do(http.MethodGet, "/v1/admin/wallets/brand-1/reconciliation", "brand-1", "user", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestPartySettlementViewOmitsEvidence(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(http.MethodPut, "/v1/admin/commission-rate", "admin-1", "admin", contracts.CommissionRateRequest{RatePercent: "10"}).Code)
	rr := s.do(http.MethodPost, "/v1/collaborations", "brand-1", "user", contracts.InitCollaborationRequest{
		PayerID: "brand-1", PayeeID: "creator-1", Amount: 5000, Currency: "INR",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var collab contracts.CollaborationResponse
	decodeData(t, rr, &collab)
	base := "/v1/collaborations/" + collab.CollaborationID
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, base+"/actions", "creator-1", "user", contracts.ActionRequest{Type: "accept_price"}).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, base+"/actions", "brand-1", "user", contracts.ActionRequest{Type: "start_payment", ExternalOrderID: "order-view-1"}).Code)

	cb := ports.PaymentCallback{ExternalOrderID: "order-view-1", ExternalPaymentID: "pay-view-1", VerifiedAmount: 5000}
	rr = s.do(http.MethodPost, "/v1/payments/verifications", "", "", contracts.PaymentVerificationRequest{
		ExternalOrderID: cb.ExternalOrderID, ExternalPaymentID: cb.ExternalPaymentID, VerifiedAmount: cb.VerifiedAmount, Signature: s.verifier.Sign(cb),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var opened struct {
		SettlementID string `json:"settlement_id"`
	}
	decodeData(t, rr, &opened)
	rr = s.do(http.MethodPost, "/v1/admin/settlements/"+opened.SettlementID+"/advance-confirmations", "admin-1", "admin",
		contracts.ConfirmReleaseRequest{EvidenceRef: "UTR-HIDDEN"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodGet, "/v1/settlements/"+opened.SettlementID, "creator-1", "user", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "UTR-HIDDEN")
	assert.NotContains(t, rr.Body.String(), "advance_confirmed_by")
	assert.Contains(t, rr.Body.String(), `"advance_status":"confirmed"`)

	rr = s.do(http.MethodGet, "/v1/settlements/"+opened.SettlementID, "admin-1", "admin", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "UTR-HIDDEN")
}

func TestInvalidSignatureIsUnauthorized(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(http.MethodPost, "/v1/payments/verifications", "", "", contracts.PaymentVerificationRequest{
		ExternalOrderID: "o", ExternalPaymentID: "p", VerifiedAmount: 100, Signature: "00ff",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid_signature", decodeError(t, rr).Code)
}

func TestMissingConfigurationHidesDetailsFromParties(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(http.MethodGet, "/v1/admin/commission-rate", "admin-1", "admin", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "configuration_missing", decodeError(t, rr).Code)
}

func TestUnknownFieldsAndActionsRejected(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(http.MethodPost, "/v1/collaborations", "brand-1", "user", map[string]any{"payer_id": "brand-1", "bogus": true})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_json", decodeError(t, rr).Code)

	rr = s.do(http.MethodPost, "/v1/collaborations/c-1/actions", "brand-1", "user", contracts.ActionRequest{Type: "teleport"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(http.MethodGet, "/healthz", "", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}
