package ticket_api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/auth"
	"ms-booking/internal/models"
	"ms-booking/internal/store"
	"ms-booking/internal/tickets"
	"ms-booking/internal/tickets/qr"
	"ms-booking/internal/tickets/ticket_api"
	"ms-booking/internal/utils"
)

// mockTicketService keeps one ticket in memory.
type mockTicketService struct {
	ticket *models.Ticket
	token  string
}

func newMockTicketService() *mockTicketService {
	return &mockTicketService{
		ticket: &models.Ticket{ID: 1, TicketNumber: "T-000001-A1-20300101120000", SeatNumber: "A1"},
		token:  "valid-token",
	}
}

func (m *mockTicketService) lookup(number string) (*models.Ticket, error) {
	if number != m.ticket.TicketNumber {
		return nil, store.ErrNotFound
	}
	return m.ticket, nil
}

func (m *mockTicketService) GetTicket(ctx context.Context, user *models.User, number string) (*tickets.TicketDetail, error) {
	t, err := m.lookup(number)
	if err != nil {
		return nil, err
	}
	return &tickets.TicketDetail{Ticket: t, Booking: &models.Booking{BookingNumber: "BK-1"}}, nil
}

func (m *mockTicketService) QRCode(ctx context.Context, user *models.User, number string) ([]byte, error) {
	if _, err := m.lookup(number); err != nil {
		return nil, err
	}
	return []byte("\x89PNG fake"), nil
}

func (m *mockTicketService) CheckIn(ctx context.Context, staff *models.User, number string) (*models.Ticket, error) {
	if err := auth.RequireStaff(staff); err != nil {
		return nil, err
	}
	t, err := m.lookup(number)
	if err != nil {
		return nil, err
	}
	if t.IsUsed {
		return nil, tickets.ErrTicketUsed
	}
	t.IsUsed = true
	return t, nil
}

func (m *mockTicketService) CheckInByToken(ctx context.Context, staff *models.User, token string) (*models.Ticket, error) {
	if token != m.token {
		return nil, qr.ErrInvalidToken
	}
	return m.CheckIn(ctx, staff, m.ticket.TicketNumber)
}

func serve(t *testing.T, svc ticket_api.TicketService, user *models.User, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != nil {
		req = req.WithContext(auth.WithUser(req.Context(), user))
	}
	r := chi.NewRouter()
	ticket_api.NewHandler(svc, nil).Routes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body utils.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

var (
	customer = &models.User{ID: 10, Role: models.RoleCustomer}
	usher    = &models.User{ID: 20, Role: models.RoleSalesman}
)

func TestGetTicket(t *testing.T) {
	svc := newMockTicketService()

	rec := serve(t, svc, customer, http.MethodGet, "/tickets/"+svc.ticket.TicketNumber, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail tickets.TicketDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "A1", detail.Ticket.SeatNumber)

	rec = serve(t, svc, customer, http.MethodGet, "/tickets/T-nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, svc, nil, http.MethodGet, "/tickets/"+svc.ticket.TicketNumber, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetQRCode(t *testing.T) {
	svc := newMockTicketService()

	rec := serve(t, svc, customer, http.MethodGet, "/tickets/"+svc.ticket.TicketNumber+"/qr", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestCheckinTicket(t *testing.T) {
	svc := newMockTicketService()
	path := "/tickets/" + svc.ticket.TicketNumber + "/check-in"

	rec := serve(t, svc, customer, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, svc, usher, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, svc, usher, http.MethodPost, path, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TICKET_USED", errorCode(t, rec))
}

func TestCheckinByQR(t *testing.T) {
	svc := newMockTicketService()

	rec := serve(t, svc, usher, http.MethodPost, "/tickets/check-in", map[string]string{"encrypted_qr": "forged"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_TICKET_TOKEN", errorCode(t, rec))

	rec = serve(t, svc, usher, http.MethodPost, "/tickets/check-in", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION", errorCode(t, rec))

	rec = serve(t, svc, usher, http.MethodPost, "/tickets/check-in", map[string]string{"encrypted_qr": svc.token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.ticket.IsUsed)
}

func TestCheckinTicket_InternalErrorHidden(t *testing.T) {
	svc := new(stubTicketService)
	svc.On("CheckIn", mock.Anything, usher, "T-1").Return((*models.Ticket)(nil), errors.New("disk on fire"))

	rec := serve(t, svc, usher, http.MethodPost, "/tickets/T-1/check-in", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
	svc.AssertExpectations(t)
}

// stubTicketService answers only the calls a test sets up with On.
type stubTicketService struct {
	mock.Mock
	ticket_api.TicketService
}

func (m *stubTicketService) CheckIn(ctx context.Context, staff *models.User, number string) (*models.Ticket, error) {
	args := m.Called(ctx, staff, number)
	return args.Get(0).(*models.Ticket), args.Error(1)
}
