// Package api exposes the reporting and schedule management HTTP surface.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/senselive/ahu-controller/db"
	"github.com/senselive/ahu-controller/internal/auth"
	"github.com/senselive/ahu-controller/internal/config"
	"github.com/senselive/ahu-controller/internal/dutycycle"
	"github.com/senselive/ahu-controller/internal/model"
)

// internalErrorMessage is the only detail callers ever see for an internal
// failure; specifics stay in the logs.
const internalErrorMessage = "Internal server error"

const statusHistoryLimit = 5
const graphWindowDays = 30

type Server struct {
	dbConn *sql.DB
	config *config.Config
}

type MessageResponse struct {
	Message string `json:"message"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type ScheduleRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	DeviceID  string `json:"deviceID"`
}

type LoginRequest struct {
	Username string `json:"Username"`
	Password string `json:"Password"`
}

type RegisterRequest struct {
	Email    string `json:"personalEmail"`
	Password string `json:"password"`
}

func NewServer(dbConn *sql.DB, cfg *config.Config) *Server {
	return &Server{dbConn: dbConn, config: cfg}
}

// Handler builds the route table. Exposed separately from Start so tests can
// drive it with httptest.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/status", s.getStatus).Methods(http.MethodGet)
	r.HandleFunc("/OnOffStatus", s.getStatusHistory).Methods(http.MethodGet)
	r.HandleFunc("/time", s.getDutyTotals).Methods(http.MethodGet)
	r.HandleFunc("/graph", s.getDailyDutyTotals).Methods(http.MethodGet)

	r.HandleFunc("/schedule", s.getSchedules).Methods(http.MethodGet)
	r.HandleFunc("/add-schedule", s.addSchedule).Methods(http.MethodPost)
	r.HandleFunc("/edit-schedule/{id}", s.editSchedule).Methods(http.MethodPut)
	r.HandleFunc("/delete-schedule/{id}", s.deleteSchedule).Methods(http.MethodDelete)

	r.HandleFunc("/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/register", s.register).Methods(http.MethodPost)

	return handlers.CORS(
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(r)
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Info().Str("address", addr).Msg("Starting REST API server")
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	events, err := db.GetRecentStateEvents(s.dbConn, 1)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get device status")
		s.writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}
	s.writeJSON(w, http.StatusOK, eventList(events))
}

func (s *Server) getStatusHistory(w http.ResponseWriter, r *http.Request) {
	events, err := db.GetRecentStateEvents(s.dbConn, statusHistoryLimit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get status history")
		s.writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}
	s.writeJSON(w, http.StatusOK, eventList(events))
}

// getDutyTotals reports total on/off minutes over the whole event log using
// the positional attribution rule; see dutycycle.Aggregate for the caveat.
func (s *Server) getDutyTotals(w http.ResponseWriter, r *http.Request) {
	events, err := db.GetStateEvents(s.dbConn, "", time.Time{}, time.Time{})
	if err != nil {
		log.Error().Err(err).Msg("Failed to get state events for duty totals")
		s.writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}
	s.writeJSON(w, http.StatusOK, dutycycle.Aggregate(events, time.Time{}, time.Time{}))
}

// getDailyDutyTotals reports per-day on/off minutes for the trailing 30 days.
// A span crossing midnight lands entirely on the day it closed.
func (s *Server) getDailyDutyTotals(w http.ResponseWriter, r *http.Request) {
	to := time.Now()
	from := to.AddDate(0, 0, -graphWindowDays)

	events, err := db.GetStateEvents(s.dbConn, "", from, to)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get state events for daily totals")
		s.writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}
	s.writeJSON(w, http.StatusOK, dutycycle.AggregateByDay(events, from, to))
}

func (s *Server) getSchedules(w http.ResponseWriter, r *http.Request) {
	windows, err := db.ListSchedules(s.dbConn, "")
	if err != nil {
		log.Error().Err(err).Msg("Failed to list schedules")
		s.writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}
	if windows == nil {
		windows = []model.ScheduleWindow{}
	}
	s.writeJSON(w, http.StatusOK, windows)
}

func (s *Server) addSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if req.StartTime == "" || req.EndTime == "" || req.DeviceID == "" {
		s.writeError(w, http.StatusBadRequest, "start_time, end_time and deviceID are required")
		return
	}

	_, err := db.AddSchedule(s.dbConn, model.ScheduleWindow{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		DeviceID:  req.DeviceID,
	})
	if errors.Is(err, db.ErrScheduleExists) {
		s.writeError(w, http.StatusBadRequest, "Schedule already added")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to add schedule")
		s.writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	log.Info().Str("device_id", req.DeviceID).Str("start", req.StartTime).Str("end", req.EndTime).Msg("Schedule added via API")
	s.writeJSON(w, http.StatusOK, MessageResponse{Message: "Schedule added successfully!"})
}

func (s *Server) editSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := s.scheduleID(w, r)
	if !ok {
		return
	}

	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	err := db.UpdateSchedule(s.dbConn, id, req.StartTime, req.EndTime)
	if errors.Is(err, db.ErrScheduleNotFound) {
		s.writeError(w, http.StatusBadRequest, "Schedule not found!")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("schedule_id", id).Msg("Failed to update schedule")
		s.writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	log.Info().Int64("schedule_id", id).Msg("Schedule updated via API")
	s.writeJSON(w, http.StatusOK, MessageResponse{Message: "Schedule updated successfully"})
}

func (s *Server) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := s.scheduleID(w, r)
	if !ok {
		return
	}

	err := db.DeleteSchedule(s.dbConn, id)
	if errors.Is(err, db.ErrScheduleNotFound) {
		s.writeError(w, http.StatusBadRequest, "Schedule not found!")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("schedule_id", id).Msg("Failed to delete schedule")
		s.writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	log.Info().Int64("schedule_id", id).Msg("Schedule deleted via API")
	s.writeJSON(w, http.StatusOK, MessageResponse{Message: "Schedule deleted successfully"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	user, err := db.GetUserByUsername(s.dbConn, req.Username)
	if err != nil {
		log.Error().Err(err).Msg("Failed to look up user during login")
		s.writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}
	if user == nil {
		s.writeError(w, http.StatusUnauthorized, "User does not exist!")
		return
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		s.writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := auth.GenerateToken(s.config.JWTSecret, user.Username)
	if err != nil {
		log.Error().Err(err).Str("username", user.Username).Msg("Failed to generate token")
		s.writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	log.Info().Str("username", user.Username).Msg("User logged in")
	s.writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if req.Email == "" || req.Password == "" {
		s.writeError(w, http.StatusBadRequest, "personalEmail and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash password during registration")
		s.writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	err = db.InsertUser(s.dbConn, req.Email, hash)
	if errors.Is(err, db.ErrUserExists) {
		s.writeError(w, http.StatusBadRequest, "User already exists")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to insert user during registration")
		s.writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	log.Info().Str("username", req.Email).Msg("User registered")
	s.writeJSON(w, http.StatusOK, MessageResponse{Message: "Registration successful"})
}

func (s *Server) scheduleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid schedule id")
		return 0, false
	}
	return id, true
}

// eventList keeps empty results as [] rather than null on the wire.
func eventList(events []model.StateEvent) []model.StateEvent {
	if events == nil {
		return []model.StateEvent{}
	}
	return events
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(MessageResponse{Message: message})
}
