package memorandum

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/config"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/clock"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	lima    = time.FixedZone("PET", -5*60*60)
	testNow = time.Date(2025, 3, 9, 10, 0, 0, 0, lima)
	policy  = memorandum.NewPolicy(memorandum.NewDeadlineCalculator(clock.NewFixed(testNow), lima))
)

const validJustification = "Tráfico intenso por accidente en la vía principal"

func wireMemorandum(id string, status memorandum.Status) memorandum.MemorandumResponse {
	m := memorandum.Memorandum{
		ID:                  id,
		Code:                "MEM-2025-" + id,
		CompanyID:           "co-1",
		Type:                memorandum.TypeLateArrival,
		Employee:            memorandum.RefID[memorandum.EmployeeSummary]("emp-1"),
		IncidentDate:        time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		Description:         "Llegada tarde",
		Status:              status,
		SubsanationDeadline: time.Date(2025, 3, 10, 23, 59, 59, 0, lima),
		CreatedAt:           testNow,
		UpdatedAt:           testNow,
	}
	return memorandum.NewMemorandumResponse(m, policy, testNow)
}

func newClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.ClientConfig{
		BaseURL:    srv.URL,
		Token:      "access-token",
		Timeout:    5 * time.Second,
		RetryCount: 2,
	}, config.MemorandumConfig{MinJustificationLength: 20})
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/memoranda/m-1", r.URL.Path)
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		if calls.Add(1) < 3 {
			response.InternalServerError(w, "database unavailable")
			return
		}
		response.Success(w, wireMemorandum("m-1", memorandum.StatusPending))
	}))

	m, err := client.Get(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "m-1", m.ID)
	assert.Equal(t, memorandum.StatusPending, m.Status)
	assert.Equal(t, "emp-1", m.EmployeeID())
	assert.True(t, m.SubsanationDeadline.Equal(time.Date(2025, 3, 10, 23, 59, 59, 0, lima)))
}

func TestGet_GivesUpAsTransient(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		response.InternalServerError(w, "database unavailable")
	}))

	_, err := client.Get(context.Background(), "m-1")
	assert.ErrorIs(t, err, memorandum.ErrTransient)
	var transient *memorandum.TransientError
	require.True(t, errors.As(err, &transient))
	assert.Equal(t, "get memorandum", transient.Op)
	assert.Equal(t, int32(3), calls.Load())
}

func TestMutation_IsNeverRetried(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		response.InternalServerError(w, "boom")
	}))

	_, err := client.SubmitEmployeeJustification(context.Background(), "m-1", memorandum.SubmitJustificationRequest{Justification: validJustification})
	assert.ErrorIs(t, err, memorandum.ErrTransient)
	assert.Equal(t, int32(1), calls.Load())
}

func TestErrorEnvelopeMapping(t *testing.T) {
	cases := []struct {
		name  string
		write func(w http.ResponseWriter)
		is    []error
	}{
		{
			name:  "deadline passed",
			write: func(w http.ResponseWriter) { response.PolicyViolation(w, memorandum.ErrDeadlinePassed.Error()) },
			is:    []error{memorandum.ErrPolicyViolation, memorandum.ErrDeadlinePassed},
		},
		{
			name:  "generic policy violation",
			write: func(w http.ResponseWriter) { response.PolicyViolation(w, "something else") },
			is:    []error{memorandum.ErrPolicyViolation},
		},
		{
			name:  "not found",
			write: func(w http.ResponseWriter) { response.NotFound(w, "Memorandum not found") },
			is:    []error{memorandum.ErrNotFound, memorandum.ErrMemorandumNotFound},
		},
		{
			name:  "forbidden",
			write: func(w http.ResponseWriter) { response.Forbidden(w, memorandum.ErrNotOwner.Error()) },
			is:    []error{memorandum.ErrUnauthorized, memorandum.ErrNotOwner},
		},
		{
			name:  "unauthorized",
			write: func(w http.ResponseWriter) { response.Unauthorized(w, "no token found") },
			is:    []error{memorandum.ErrUnauthorized},
		},
		{
			name:  "rate limited",
			write: func(w http.ResponseWriter) { w.WriteHeader(http.StatusTooManyRequests) },
			is:    []error{memorandum.ErrTransient},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tc.write(w)
			}))

			_, err := client.SubmitAdminReview(context.Background(), "m-1", memorandum.SubmitReviewRequest{Approved: true})
			require.Error(t, err)
			for _, target := range tc.is {
				assert.ErrorIs(t, err, target)
			}
			assert.NotNil(t, memorandum.Kind(err))
		})
	}
}

func TestValidationDetailsAreFieldAddressable(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.ValidationError(w, map[string]string{"justification": "justification must be at least 30 characters"})
	}))

	_, err := client.SubmitEmployeeJustification(context.Background(), "m-1", memorandum.SubmitJustificationRequest{Justification: validJustification})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	msg, ok := verrs.Field("justification")
	assert.True(t, ok)
	assert.Contains(t, msg, "30")
	assert.ErrorIs(t, err, memorandum.ErrValidation)
}

func TestClientSideGuardsSkipTheNetwork(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	ctx := context.Background()

	_, err := client.SubmitEmployeeJustification(ctx, "m-1", memorandum.SubmitJustificationRequest{Justification: "muy corto"})
	assert.ErrorIs(t, err, memorandum.ErrValidation)

	_, err = client.SubmitAdminReview(ctx, "m-1", memorandum.SubmitReviewRequest{Approved: false, Comments: "  "})
	assert.ErrorIs(t, err, memorandum.ErrValidation)

	bad := "2025-02-30"
	_, err = client.ListForAdmin(ctx, memorandum.AdminFilter{StartDate: &bad})
	assert.ErrorIs(t, err, memorandum.ErrValidation)

	assert.Zero(t, calls.Load())
}

func TestListForAdmin_FetchesEveryPage(t *testing.T) {
	const total = 230
	var pages []int
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/v1/memoranda", r.URL.Path)
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "a-1", q.Get("area_id"))
		assert.Equal(t, "PENDIENTE", q.Get("status"))
		assert.False(t, q.Has("cargo_id"))

		page, _ := strconv.Atoi(q.Get("page"))
		pages = append(pages, page)

		var items []memorandum.MemorandumResponse
		for i := (page - 1) * 100; i < total && i < page*100; i++ {
			items = append(items, wireMemorandum(fmt.Sprintf("%06d", i), memorandum.StatusPending))
		}
		response.Success(w, memorandum.ListMemorandumResponse{
			TotalCount: total, Page: page, Limit: 100, TotalPages: 3, Memoranda: items,
		})
	}))

	area, status := "a-1", "pendiente"
	list, err := client.ListForAdmin(context.Background(), memorandum.AdminFilter{AreaID: &area, Status: &status})
	require.NoError(t, err)
	assert.Len(t, list, total)
	assert.Equal(t, []int{1, 2, 3}, pages)
	assert.Equal(t, "000229", list[total-1].ID)
}

func TestListForEmployee_Paths(t *testing.T) {
	var paths []string
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		response.Success(w, memorandum.ListMemorandumResponse{Page: 1, Limit: 100, Memoranda: []memorandum.MemorandumResponse{}})
	}))

	list, err := client.ListForEmployee(context.Background(), "", memorandum.EmployeeFilter{})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = client.ListForEmployee(context.Background(), "emp-1", memorandum.EmployeeFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/v1/memoranda/my", "/api/v1/employees/emp-1/memoranda"}, paths)
}

func TestHistoryAndDocument(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/memoranda/m-1/history":
			from := memorandum.StatusPending
			response.Success(w, []memorandum.EventResponse{{
				ID: "ev-1", Event: memorandum.EventSubmitJustification, FromStatus: &from,
				ToStatus: memorandum.StatusSubsaned, OccurredAt: testNow.Format(time.RFC3339),
			}})
		case "/api/v1/memoranda/m-1/document":
			response.Document(w, "MEM.txt", "text/plain; charset=utf-8", []byte("MEMORÁNDUM MEM-2025-000001"))
		default:
			response.NotFound(w, "route not found")
		}
	}))
	ctx := context.Background()

	events, err := client.History(ctx, "m-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "m-1", events[0].MemorandumID)
	assert.Equal(t, memorandum.StatusSubsaned, events[0].ToStatus)

	doc, err := client.GenerateDocument(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "MEMORÁNDUM MEM-2025-000001", string(doc))

	_, err = client.GenerateDocument(ctx, "m-2")
	assert.ErrorIs(t, err, memorandum.ErrNotFound)
}
