// Package mockaudit is an in-memory stand-in for the statistics and audit
// services an EventBoard polls, for local demos and tests.
//
// It serves:
//
//	GET  /stats                 running statistics, 404 until the first event
//	GET  /sensor_data?index=N   the N-th sensor reading, 404 past the end
//	GET  /user_command?index=N  the N-th user command, 404 past the end
//	POST /sensor_data           record a reading, returns its trace id
//	POST /user_command          record a command, returns its trace id
package mockaudit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// timestampLayout matches the statistics service's last_updated format.
const timestampLayout = "2006-01-02T15:04:05"

// SensorData is one thermostat sensor reading.
type SensorData struct {
	SensorID    string  `json:"sensor_id"`
	Temperature float64 `json:"temperature"`
	Timestamp   string  `json:"timestamp"`
	Location    string  `json:"location"`
	TraceID     string  `json:"trace_id"`
}

// UserCommand is one user request to change a device's target temperature.
type UserCommand struct {
	UserID            string  `json:"user_id"`
	TargetDevice      string  `json:"target_device"`
	TargetTemperature float64 `json:"target_temperature"`
	Timestamp         string  `json:"timestamp"`
	TraceID           string  `json:"trace_id"`
}

// Stats are the running statistics over every recorded event.
type Stats struct {
	NumSensorDataEvents  int     `json:"num_sensor_data_events"`
	MaxTemperature       float64 `json:"max_temperature"`
	NumUserCommands      int     `json:"num_user_commands"`
	MaxTargetTemperature float64 `json:"max_target_temperature"`
	LastUpdated          string  `json:"last_updated"`
}

type message struct {
	Message string `json:"message"`
}

// Service stores events in arrival order and keeps statistics over them.
//
// Service is safe for concurrent use.
type Service struct {
	mu       sync.RWMutex
	sensors  []SensorData
	commands []UserCommand
	stats    Stats
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates an empty Service. A nil logger uses slog.Default().
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{now: time.Now, logger: logger}
}

// RecordSensorData stores a reading, stamping it with a fresh trace id and
// the current time when Timestamp is empty. It returns the trace id.
func (s *Service) RecordSensorData(d SensorData) string {
	d.TraceID = uuid.NewString()

	s.mu.Lock()
	now := s.now()
	if d.Timestamp == "" {
		d.Timestamp = now.UTC().Format(timestampLayout)
	}
	s.sensors = append(s.sensors, d)
	s.stats.NumSensorDataEvents++
	s.stats.MaxTemperature = math.Max(s.stats.MaxTemperature, d.Temperature)
	s.stats.LastUpdated = now.UTC().Format(timestampLayout)
	s.mu.Unlock()

	s.logger.Debug("sensor data recorded", "trace_id", d.TraceID, "sensor_id", d.SensorID)
	return d.TraceID
}

// RecordUserCommand stores a command the same way as [Service.RecordSensorData].
func (s *Service) RecordUserCommand(c UserCommand) string {
	c.TraceID = uuid.NewString()

	s.mu.Lock()
	now := s.now()
	if c.Timestamp == "" {
		c.Timestamp = now.UTC().Format(timestampLayout)
	}
	s.commands = append(s.commands, c)
	s.stats.NumUserCommands++
	s.stats.MaxTargetTemperature = math.Max(s.stats.MaxTargetTemperature, c.TargetTemperature)
	s.stats.LastUpdated = now.UTC().Format(timestampLayout)
	s.mu.Unlock()

	s.logger.Debug("user command recorded", "trace_id", c.TraceID, "target_device", c.TargetDevice)
	return c.TraceID
}

// Stats returns the current statistics and whether any event was recorded.
func (s *Service) Stats() (Stats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, s.stats.LastUpdated != ""
}

// Handler returns the HTTP routes of both services.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /sensor_data", func(w http.ResponseWriter, r *http.Request) {
		handleIndexed(w, r, s, func(i int) (any, bool) {
			s.mu.RLock()
			defer s.mu.RUnlock()
			if i >= len(s.sensors) {
				return nil, false
			}
			return s.sensors[i], true
		})
	})
	mux.HandleFunc("GET /user_command", func(w http.ResponseWriter, r *http.Request) {
		handleIndexed(w, r, s, func(i int) (any, bool) {
			s.mu.RLock()
			defer s.mu.RUnlock()
			if i >= len(s.commands) {
				return nil, false
			}
			return s.commands[i], true
		})
	})
	mux.HandleFunc("POST /sensor_data", s.handleReceiveSensorData)
	mux.HandleFunc("POST /user_command", s.handleReceiveUserCommand)

	return mux
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, ok := s.Stats()
	if !ok {
		s.writeJSON(w, http.StatusNotFound, message{"Statistics do not exist"})
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// handleIndexed serves the event at the index query parameter.
func handleIndexed(w http.ResponseWriter, r *http.Request, s *Service, lookup func(int) (any, bool)) {
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil || index < 0 {
		s.writeJSON(w, http.StatusBadRequest, message{"index must be a non-negative integer"})
		return
	}

	event, ok := lookup(index)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, message{"Not Found"})
		return
	}
	s.writeJSON(w, http.StatusOK, event)
}

func (s *Service) handleReceiveSensorData(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SensorID    *string  `json:"sensor_id"`
		Temperature *float64 `json:"temperature"`
		Timestamp   *string  `json:"timestamp"`
		Location    *string  `json:"location"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}

	switch {
	case body.SensorID == nil:
		s.writeMissing(w, "sensor_id")
	case body.Temperature == nil:
		s.writeMissing(w, "temperature")
	case body.Timestamp == nil:
		s.writeMissing(w, "timestamp")
	case body.Location == nil:
		s.writeMissing(w, "location")
	default:
		traceID := s.RecordSensorData(SensorData{
			SensorID:    *body.SensorID,
			Temperature: *body.Temperature,
			Timestamp:   *body.Timestamp,
			Location:    *body.Location,
		})
		s.writeJSON(w, http.StatusCreated, map[string]string{"trace_id": traceID})
	}
}

func (s *Service) handleReceiveUserCommand(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID            *string  `json:"user_id"`
		TargetDevice      *string  `json:"target_device"`
		TargetTemperature *float64 `json:"target_temperature"`
		Timestamp         *string  `json:"timestamp"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}

	switch {
	case body.UserID == nil:
		s.writeMissing(w, "user_id")
	case body.TargetDevice == nil:
		s.writeMissing(w, "target_device")
	case body.TargetTemperature == nil:
		s.writeMissing(w, "target_temperature")
	case body.Timestamp == nil:
		s.writeMissing(w, "timestamp")
	default:
		traceID := s.RecordUserCommand(UserCommand{
			UserID:            *body.UserID,
			TargetDevice:      *body.TargetDevice,
			TargetTemperature: *body.TargetTemperature,
			Timestamp:         *body.Timestamp,
		})
		s.writeJSON(w, http.StatusCreated, map[string]string{"trace_id": traceID})
	}
}

// decodeBody reads a JSON request body into v, answering 400 on failure.
func (s *Service) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err == nil {
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

func (s *Service) writeMissing(w http.ResponseWriter, field string) {
	s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Missing key: %s", field)})
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

var (
	locations = []string{"living-room", "kitchen", "bedroom", "garage"}
	devices   = []string{"Thermostat", "Heater", "AirConditioner"}
)

// Simulate records one random sensor reading and, every other tick, one
// random user command until ctx is cancelled.
func (s *Service) Simulate(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("simulate interval must be positive")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for tick := 0; ; tick++ {
		s.RecordSensorData(SensorData{
			SensorID:    fmt.Sprintf("sensor-%d", rand.IntN(5)+1),
			Temperature: roundTenth(15 + rand.Float64()*15),
			Location:    locations[rand.IntN(len(locations))],
		})
		if tick%2 == 0 {
			s.RecordUserCommand(UserCommand{
				UserID:            fmt.Sprintf("user-%d", rand.IntN(3)+1),
				TargetDevice:      devices[rand.IntN(len(devices))],
				TargetTemperature: float64(18 + rand.IntN(8)),
			})
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func roundTenth(f float64) float64 {
	return math.Round(f*10) / 10
}
