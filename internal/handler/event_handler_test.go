package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ticket-booking/internal/handler"
	"ticket-booking/internal/model"
	apperrors "ticket-booking/pkg/app_errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupEventTestRouter(svc *EventServiceMock) *gin.Engine {
	return handler.NewRouter(handler.NewEventHandler(svc))
}

func TestListEvents(t *testing.T) {
	svc := new(EventServiceMock)
	router := setupEventTestRouter(svc)

	svc.On("List", mock.Anything).Return([]*model.Event{{ID: uuid.New(), Name: "Gophercon"}}, nil).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, createJSONHTTPRequest("GET", "/api/v1/events", uuid.Nil, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var got []model.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Gophercon", got[0].Name)
}

func TestGetEvent(t *testing.T) {
	eventID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		svc := new(EventServiceMock)
		router := setupEventTestRouter(svc)
		svc.On("Get", mock.Anything, eventID).Return(&model.Event{ID: eventID}, nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("GET", "/api/v1/events/"+eventID.String(), uuid.Nil, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc := new(EventServiceMock)
		router := setupEventTestRouter(svc)
		svc.On("Get", mock.Anything, eventID).Return(nil, apperrors.ErrEventNotFound).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("GET", "/api/v1/events/"+eventID.String(), uuid.Nil, nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		svc := new(EventServiceMock)
		router := setupEventTestRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("GET", "/api/v1/events/not-a-uuid", uuid.Nil, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Get")
	})
}

func TestEventAvailability(t *testing.T) {
	eventID := uuid.New()
	svc := new(EventServiceMock)
	router := setupEventTestRouter(svc)

	svc.On("Availability", mock.Anything, eventID).Return([]model.InventorySnapshot{
		{EventID: eventID, TicketType: model.TicketTypeVIP, Capacity: 10, Available: 7, Version: 2},
	}, nil).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, createJSONHTTPRequest("GET", "/api/v1/events/"+eventID.String()+"/availability", uuid.Nil, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		EventID     uuid.UUID                 `json:"event_id"`
		TicketTypes []model.InventorySnapshot `json:"ticket_types"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, eventID, body.EventID)
	require.Len(t, body.TicketTypes, 1)
	assert.Equal(t, 7, body.TicketTypes[0].Available)
}

func TestCreateEvent(t *testing.T) {
	organizerID := uuid.New()
	req := model.CreateEventRequest{
		Name:      "Gophercon",
		Venue:     "Hall A",
		StartDate: time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC),
		TicketTypes: []model.TicketTypeRequest{
			{Name: model.TicketTypeRegular, UnitPrice: decimal.NewFromInt(80), Capacity: 100},
		},
	}
	byName := mock.MatchedBy(func(r model.CreateEventRequest) bool {
		return r.Name == "Gophercon" && len(r.TicketTypes) == 1
	})

	t.Run("Success", func(t *testing.T) {
		svc := new(EventServiceMock)
		router := setupEventTestRouter(svc)
		svc.On("Create", mock.Anything, organizerID, byName).Return(&model.Event{ID: uuid.New(), Name: req.Name}, nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("POST", "/api/v1/events", organizerID, req))

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("Failed - not an organizer", func(t *testing.T) {
		svc := new(EventServiceMock)
		router := setupEventTestRouter(svc)
		svc.On("Create", mock.Anything, organizerID, byName).Return(nil, apperrors.ErrNotOrganizer).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("POST", "/api/v1/events", organizerID, req))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Failed - missing caller identity", func(t *testing.T) {
		svc := new(EventServiceMock)
		router := setupEventTestRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("POST", "/api/v1/events", uuid.Nil, req))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		svc.AssertNotCalled(t, "Create")
	})

	t.Run("Failed - BindingError", func(t *testing.T) {
		svc := new(EventServiceMock)
		router := setupEventTestRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("POST", "/api/v1/events", organizerID, InvalidJSON))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Create")
	})
}

func TestApproveEvent(t *testing.T) {
	staffID := uuid.New()
	eventID := uuid.New()
	url := "/api/v1/events/" + eventID.String() + "/approve"

	t.Run("Success", func(t *testing.T) {
		svc := new(EventServiceMock)
		router := setupEventTestRouter(svc)
		svc.On("Approve", mock.Anything, staffID, eventID).Return(&model.Event{ID: eventID, Approved: true}, nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("PUT", url, staffID, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var got model.Event
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.True(t, got.Approved)
	})

	t.Run("Failed - not staff", func(t *testing.T) {
		svc := new(EventServiceMock)
		router := setupEventTestRouter(svc)
		svc.On("Approve", mock.Anything, staffID, eventID).Return(nil, apperrors.ErrNotStaff).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("PUT", url, staffID, nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAssignStaff(t *testing.T) {
	organizerID := uuid.New()
	eventID := uuid.New()
	staffID := uuid.New()
	url := "/api/v1/events/" + eventID.String() + "/staff"

	t.Run("Success", func(t *testing.T) {
		svc := new(EventServiceMock)
		router := setupEventTestRouter(svc)
		svc.On("AssignStaff", mock.Anything, organizerID, eventID, staffID).Return(nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("POST", url, organizerID, handler.AssignStaffRequest{StaffID: staffID}))

		assert.Equal(t, http.StatusNoContent, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("Failed - missing staff id", func(t *testing.T) {
		svc := new(EventServiceMock)
		router := setupEventTestRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("POST", url, organizerID, map[string]string{}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "AssignStaff")
	})

	t.Run("Failed - not the event organizer", func(t *testing.T) {
		svc := new(EventServiceMock)
		router := setupEventTestRouter(svc)
		svc.On("AssignStaff", mock.Anything, organizerID, eventID, staffID).Return(apperrors.ErrNotEventOrganizer).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("POST", url, organizerID, handler.AssignStaffRequest{StaffID: staffID}))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
