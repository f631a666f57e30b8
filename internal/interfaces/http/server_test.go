package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/procurement-engine/internal/application/service"
	appwf "github.com/garyjia/procurement-engine/internal/application/workflow"
	"github.com/garyjia/procurement-engine/internal/domain/comparison"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
	domainwf "github.com/garyjia/procurement-engine/internal/domain/workflow"
)

func newTestServer(services Services, opts ...Option) *Server {
	return NewServer(DefaultServerConfig(), services, &mockLogger{}, opts...)
}

func doRequest(s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", entity.ErrEmptyRequest, http.StatusUnprocessableEntity},
		{"zero price lines", &entity.ZeroPriceLinesError{Products: []string{"Gravel"}}, http.StatusUnprocessableEntity},
		{"authorization", entity.ErrForbidden, http.StatusForbidden},
		{"unauthenticated", fmt.Errorf("%w: no token", entity.ErrUnauthenticated), http.StatusUnauthorized},
		{"state", entity.ErrInvalidTransition, http.StatusConflict},
		{"conflict", entity.ErrVersionConflict, http.StatusConflict},
		{"busy", entity.ErrEntityBusy, http.StatusConflict},
		{"not found", fmt.Errorf("%w: id 4", entity.ErrRequisitionNotFound), http.StatusNotFound},
		{"configuration", entity.ErrConfigurationMissing, http.StatusInternalServerError},
		{"internal", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(Services{})

	w := doRequest(s, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode(t, w).Success)
}

func TestApproveApprovalRequest(t *testing.T) {
	t.Run("actor and comment reach the service", func(t *testing.T) {
		var gotActor entity.Actor
		var gotComment string
		approvals := &mockApprovalService{
			approveFunc: func(ctx context.Context, id int64, actor entity.Actor, comment string) (*entity.ApprovalRequest, error) {
				gotActor = actor
				gotComment = comment
				return &entity.ApprovalRequest{ID: id, State: domainwf.StateApproved}, nil
			},
		}
		s := newTestServer(Services{Approvals: approvals})

		w := doRequest(s, http.MethodPost, "/api/approval-requests/7/approve", `{"comment":"ok"}`, map[string]string{
			"X-Actor-ID":     "u-1",
			"X-Actor-Groups": "3, 4",
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u-1", gotActor.ID)
		assert.Equal(t, []int64{3, 4}, gotActor.GroupIDs)
		assert.NotEmpty(t, gotActor.IP)
		assert.Equal(t, "ok", gotComment)
	})

	t.Run("forbidden", func(t *testing.T) {
		approvals := &mockApprovalService{
			approveFunc: func(ctx context.Context, id int64, actor entity.Actor, comment string) (*entity.ApprovalRequest, error) {
				return nil, fmt.Errorf("%w: level 2", entity.ErrForbidden)
			},
		}
		s := newTestServer(Services{Approvals: approvals})

		w := doRequest(s, http.MethodPost, "/api/approval-requests/7/approve", "", nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		resp := decode(t, w)
		assert.False(t, resp.Success)
		assert.Equal(t, "FORBIDDEN", resp.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		s := newTestServer(Services{Approvals: &mockApprovalService{}})

		w := doRequest(s, http.MethodPost, "/api/approval-requests/abc/approve", "", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid group header", func(t *testing.T) {
		s := newTestServer(Services{Approvals: &mockApprovalService{}})

		w := doRequest(s, http.MethodPost, "/api/approval-requests/7/approve", "", map[string]string{
			"X-Actor-Groups": "admins",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestApprovalHistory_EmptyIsArray(t *testing.T) {
	approvals := &mockApprovalService{
		historyFunc: func(ctx context.Context, id int64) ([]*entity.ApprovalHistoryEntry, error) {
			return nil, nil
		},
	}
	s := newTestServer(Services{Approvals: approvals})

	w := doRequest(s, http.MethodGet, "/api/approval-requests/1/history", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestResolveLevel(t *testing.T) {
	levels := &mockLevelService{
		resolveFunc: func(ctx context.Context, amount decimal.Decimal, companyID int64) (*entity.ApprovalLevelConfig, error) {
			if amount.GreaterThan(decimal.NewFromInt(1000)) {
				return nil, entity.ErrConfigurationMissing
			}
			return &entity.ApprovalLevelConfig{ID: 1, CompanyID: companyID, LevelNumber: 1, Name: "Manager"}, nil
		},
	}
	s := newTestServer(Services{Levels: levels})

	w := doRequest(s, http.MethodPost, "/api/approval-levels/resolve", `{"company_id":1,"amount":"250"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"display_name":"Manager (Level 1)"`)

	w = doRequest(s, http.MethodPost, "/api/approval-levels/resolve", `{"company_id":1,"amount":"5000"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "CONFIGURATION_MISSING", decode(t, w).Code)
}

func TestRequisitionHandlers(t *testing.T) {
	requisitions := &mockRequisitionService{
		getFunc: func(ctx context.Context, id int64) (*entity.Requisition, error) {
			return nil, fmt.Errorf("%w: id %d", entity.ErrRequisitionNotFound, id)
		},
		transitionFunc: func(ctx context.Context, id int64, name string, actor entity.Actor, notes string) (*appwf.TransitionResult, error) {
			if name == "confirm_po" {
				return nil, entity.ErrInvalidTransition
			}
			return &appwf.TransitionResult{RequisitionID: id, FromState: domainwf.StateDraft, ToState: domainwf.StateDeptConfirmed}, nil
		},
	}
	s := newTestServer(Services{Requisitions: requisitions})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"get missing", http.MethodGet, "/api/requisitions/4", "", http.StatusNotFound},
		{"transition", http.MethodPost, "/api/requisitions/4/transitions", `{"name":"confirm"}`, http.StatusOK},
		{"transition not permitted", http.MethodPost, "/api/requisitions/4/transitions", `{"name":"confirm_po"}`, http.StatusConflict},
		{"transition without name", http.MethodPost, "/api/requisitions/4/transitions", `{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(s, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestCreateRFQs(t *testing.T) {
	rfqs := &mockRFQService{
		createRFQsFunc: func(ctx context.Context, requisitionID int64, input service.CreateRFQsInput, actor entity.Actor) (*service.RFQOutcome, error) {
			if input.ZeroPriceDecision == entity.ZeroPriceAsk {
				return &service.RFQOutcome{NeedsDecision: &service.ZeroPriceDecisionNeeded{ZeroCount: 1, TotalLines: 2, Mixed: true}}, nil
			}
			return &service.RFQOutcome{Quotes: []*entity.VendorQuote{{ID: 1, RequisitionID: requisitionID}}}, nil
		},
	}
	s := newTestServer(Services{RFQs: rfqs})

	w := doRequest(s, http.MethodPost, "/api/requisitions/1/rfqs", `{"type":"all_to_all","vendor_ids":[1],"zero_price_decision":"ask"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"zero_count":1`)

	w = doRequest(s, http.MethodPost, "/api/requisitions/1/rfqs", `{"type":"all_to_all","vendor_ids":[1],"zero_price_decision":"include"}`, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestComparisonHandlers(t *testing.T) {
	comparisons := &mockComparisonService{
		compareFunc: func(ctx context.Context, requisitionID int64, mode, projectFilter string) (*comparison.Result, error) {
			if mode == "cheapest" {
				return nil, entity.ErrInvalidComparisonMode
			}
			return &comparison.Result{RequisitionName: "PR/00001", Mode: comparison.Mode(mode), ProjectFilter: projectFilter}, nil
		},
		exportFunc: func(ctx context.Context, requisitionID int64, mode, projectFilter string) (*service.ExportedComparison, error) {
			return &service.ExportedComparison{FileName: "comparison_PR_00001.xlsx", Content: []byte("xlsx")}, nil
		},
	}
	s := newTestServer(Services{Comparisons: comparisons})

	w := doRequest(s, http.MethodGet, "/api/requisitions/1/comparison?mode=by_price&project=North", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"project_filter":"North"`)

	w = doRequest(s, http.MethodGet, "/api/requisitions/1/comparison?mode=cheapest", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doRequest(s, http.MethodGet, "/api/requisitions/1/comparison/export", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "comparison_PR_00001.xlsx")
	assert.Equal(t, "xlsx", w.Body.String())
}

func TestConfirmationHandlers(t *testing.T) {
	var gotInput service.ConfirmLineInput
	var gotIDs []int64
	confirmations := &mockConfirmationService{
		confirmLineFunc: func(ctx context.Context, input service.ConfirmLineInput, actor entity.Actor) (*service.LineOutcome, error) {
			gotInput = input
			if !input.OverrideZeroPrice {
				return &service.LineOutcome{NeedsConfirmation: &service.ZeroPriceConfirmation{ProductName: "Gravel"}}, nil
			}
			return &service.LineOutcome{Order: &entity.PurchaseOrder{ID: 1, Name: "PO/00001"}}, nil
		},
		confirmOrderFunc: func(ctx context.Context, quoteID int64, allQuoteIDs []int64, actor entity.Actor) (*service.OrderConfirmation, error) {
			gotIDs = allQuoteIDs
			return nil, &entity.ZeroPriceLinesError{Products: []string{"Gravel"}}
		},
	}
	s := newTestServer(Services{Confirmations: confirmations})

	w := doRequest(s, http.MethodPost, "/api/quote-lines/11/confirm", `{"vendor_id":2,"product_id":3,"requisition_id":1}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(11), gotInput.LineID)
	assert.Equal(t, int64(2), gotInput.VendorID)
	assert.Contains(t, w.Body.String(), "needs_confirmation")

	w = doRequest(s, http.MethodPost, "/api/quote-lines/11/confirm", `{"vendor_id":2,"product_id":3,"requisition_id":1,"override_zero_price":true}`, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(s, http.MethodPost, "/api/quotes/5/confirm", `{"quote_ids":[5,6]}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, []int64{5, 6}, gotIDs)
	resp := decode(t, w)
	assert.Equal(t, "ZERO_PRICE_LINES_PRESENT", resp.Code)
	assert.Contains(t, resp.Error, "Gravel")
}

func TestInternalErrorsAreMasked(t *testing.T) {
	masterData := &mockMasterDataService{
		listVendorsFunc: func(ctx context.Context) ([]*entity.Vendor, error) {
			return nil, errors.New("database is locked")
		},
	}
	s := newTestServer(Services{MasterData: masterData})

	w := doRequest(s, http.MethodGet, "/api/vendors", "", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "internal error", resp.Error)
	assert.Equal(t, "INTERNAL", resp.Code)
}

func TestAuthenticator(t *testing.T) {
	auth, err := NewAuthenticator("test-secret", time.Hour)
	require.NoError(t, err)

	var gotActor entity.Actor
	masterData := &mockMasterDataService{
		listVendorsFunc: func(ctx context.Context) ([]*entity.Vendor, error) {
			return []*entity.Vendor{}, nil
		},
	}
	approvals := &mockApprovalService{
		historyFunc: func(ctx context.Context, id int64) ([]*entity.ApprovalHistoryEntry, error) {
			return nil, nil
		},
		approveFunc: func(ctx context.Context, id int64, actor entity.Actor, comment string) (*entity.ApprovalRequest, error) {
			gotActor = actor
			return &entity.ApprovalRequest{ID: id}, nil
		},
	}
	s := newTestServer(Services{MasterData: masterData, Approvals: approvals}, WithAuthenticator(auth))

	token, exp, err := auth.GenerateToken(entity.Actor{ID: "u-9", Name: "Dana", GroupIDs: []int64{5}})
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	t.Run("missing token", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/api/vendors", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token resolves the actor", func(t *testing.T) {
		w := doRequest(s, http.MethodPost, "/api/approval-requests/3/approve", "", map[string]string{
			"Authorization": "Bearer " + token,
			"X-Actor-ID":    "spoofed",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u-9", gotActor.ID)
		assert.Equal(t, "Dana", gotActor.Name)
		assert.Equal(t, []int64{5}, gotActor.GroupIDs)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other, err := NewAuthenticator("other-secret", time.Hour)
		require.NoError(t, err)
		forged, _, err := other.GenerateToken(entity.Actor{ID: "u-9"})
		require.NoError(t, err)

		w := doRequest(s, http.MethodGet, "/api/vendors", "", map[string]string{"Authorization": "Bearer " + forged})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := NewAuthenticator("test-secret", time.Minute)
		require.NoError(t, err)
		expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
		old, _, err := expired.GenerateToken(entity.Actor{ID: "u-9"})
		require.NoError(t, err)

		w := doRequest(s, http.MethodGet, "/api/vendors", "", map[string]string{"Authorization": "Bearer " + old})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("health stays public", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestNewAuthenticator_RequiresSecret(t *testing.T) {
	_, err := NewAuthenticator("", time.Hour)
	assert.Error(t, err)
}

func TestRateLimiter(t *testing.T) {
	_, err := NewRateLimiter("lots")
	require.Error(t, err)

	mw, err := NewRateLimiter("2-M")
	require.NoError(t, err)

	masterData := &mockMasterDataService{
		listVendorsFunc: func(ctx context.Context) ([]*entity.Vendor, error) {
			return nil, nil
		},
	}
	s := newTestServer(Services{MasterData: masterData}, WithRateLimiter(mw))

	assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/api/vendors", "", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/api/vendors", "", nil).Code)

	w := doRequest(s, http.MethodGet, "/api/vendors", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decode(t, w).Code)
}

func TestCORS(t *testing.T) {
	t.Run("any origin by default", func(t *testing.T) {
		s := newTestServer(Services{})

		w := doRequest(s, http.MethodOptions, "/api/vendors", "", map[string]string{
			"Origin":                        "https://buyer.example.com",
			"Access-Control-Request-Method": "POST",
		})

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("configured origins only", func(t *testing.T) {
		cfg := DefaultServerConfig()
		cfg.AllowedOrigins = []string{"https://buyer.example.com"}
		s := NewServer(cfg, Services{}, &mockLogger{})

		w := doRequest(s, http.MethodGet, "/health", "", map[string]string{"Origin": "https://buyer.example.com"})
		assert.Equal(t, "https://buyer.example.com", w.Header().Get("Access-Control-Allow-Origin"))

		w = doRequest(s, http.MethodGet, "/health", "", map[string]string{"Origin": "https://evil.example.com"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
