package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/dfarias/incident-insights/chat"
	"github.com/dfarias/incident-insights/dataset"
	"github.com/dfarias/incident-insights/index"
	"github.com/dfarias/incident-insights/llm"
	"github.com/dfarias/incident-insights/viz"
)

// Server exposes the dashboard views and the chat engine over HTTP. Every
// dependency is constructed once at startup and injected; handlers only
// read from them.
type Server struct {
	logger         *log.Logger
	view           dataset.View
	aggregate      []dataset.StreetVehicleTotals
	index          *index.Index
	engine         *chat.Engine
	retrievalLimit int
	handler        http.Handler
}

// emptyDatasetWarning is the user-visible note served when the configured
// year window matched no records.
const emptyDatasetWarning = "no incident records in the selected period"

type messageResponse struct {
	Message string `json:"message"`
}

type synopsisResponse struct {
	Synopsis string `json:"synopsis"`
	Warning  string `json:"warning,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Question string        `json:"question"`
	History  []chatMessage `json:"history"`
}

type chatResponse struct {
	Answer        string                   `json:"answer"`
	History       []chatMessage            `json:"history"`
	Insights      map[string]streetInsight `json:"insights,omitempty"`
	Visualization *visualization           `json:"visualization,omitempty"`
}

type streetInsight struct {
	Total     int            `json:"total"`
	ByVehicle map[string]int `json:"byVehicle,omitempty"`
}

type visualization struct {
	Category string        `json:"category"`
	Chart    *chartPayload `json:"chart,omitempty"`
	HeatMap  *heatPayload  `json:"heatMap,omitempty"`
}

type chartPayload struct {
	Title  string       `json:"title"`
	XLabel string       `json:"xLabel"`
	YLabel string       `json:"yLabel"`
	Points []chartPoint `json:"points"`
}

type chartPoint struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

type heatPayload struct {
	Title           string      `json:"title"`
	CenterLatitude  float64     `json:"centerLatitude"`
	CenterLongitude float64     `json:"centerLongitude"`
	Zoom            int         `json:"zoom"`
	Radius          int         `json:"radius"`
	Blur            int         `json:"blur"`
	MinOpacity      float64     `json:"minOpacity,omitempty"`
	Points          []heatPoint `json:"points"`
}

type heatPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Weight    float64 `json:"weight"`
}

type streetTotals struct {
	Street    string         `json:"street"`
	ByVehicle map[string]int `json:"byVehicle"`
	Total     int            `json:"total"`
}

// New wires the server. ix and engine may be nil when the year window
// matched no records; the server then renders the empty state instead.
func New(view dataset.View, aggregate []dataset.StreetVehicleTotals, ix *index.Index, engine *chat.Engine, retrievalLimit int, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		logger:         logger,
		view:           view,
		aggregate:      aggregate,
		index:          ix,
		engine:         engine,
		retrievalLimit: retrievalLimit,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/synopsis", s.handleSynopsis)
	mux.HandleFunc("/v1/streets", s.handleStreets)
	mux.HandleFunc("/v1/dashboard/", s.handleDashboard)
	mux.HandleFunc("/v1/heatmap", s.handleHeatMap)
	mux.HandleFunc("/v1/chat", s.handleChat)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func (s *Server) handleSynopsis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	if s.index == nil {
		s.writeJSON(w, http.StatusOK, synopsisResponse{Warning: emptyDatasetWarning})
		return
	}

	s.writeJSON(w, http.StatusOK, synopsisResponse{Synopsis: s.index.Synopsis()})
}

func (s *Server) handleStreets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	ranked := make([]streetTotals, len(s.aggregate))
	for i, totals := range s.aggregate {
		ranked[i] = streetTotals{
			Street:    totals.Street,
			ByVehicle: totals.ByVehicle,
			Total:     totals.Total,
		}
	}

	s.writeJSON(w, http.StatusOK, struct {
		Streets []streetTotals `json:"streets"`
	}{Streets: ranked})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	category := viz.Category(strings.TrimPrefix(r.URL.Path, "/v1/dashboard/"))
	chart, err := viz.BuildChart(s.view, category)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}

	s.writeJSON(w, http.StatusOK, transformChart(chart))
}

func (s *Server) handleHeatMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	motorcycle := strings.EqualFold(r.URL.Query().Get("vehicle"), "motorcycle")
	layer, err := viz.BuildHeatMap(s.view, motorcycle)
	if err != nil {
		if errors.Is(err, viz.ErrNoCoordinates) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, transformHeatMap(layer))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	if s.engine == nil {
		s.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("%s: chat is unavailable", emptyDatasetWarning))
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}

	conversation := chat.Conversation{}
	for _, msg := range req.History {
		conversation.Turns = append(conversation.Turns, llm.Message{Role: msg.Role, Content: msg.Content})
	}

	answer, updated, err := s.engine.Ask(r.Context(), conversation, req.Question, chat.Config{RetrievalLimit: s.retrievalLimit})
	if err != nil {
		var genErr *chat.GenerationError
		var embErr *index.EmbeddingError
		if errors.As(err, &genErr) || errors.As(err, &embErr) {
			s.writeError(w, http.StatusBadGateway, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := chatResponse{Answer: answer.Text}
	for _, turn := range updated.Turns {
		resp.History = append(resp.History, chatMessage{Role: turn.Role, Content: turn.Content})
	}
	if len(answer.Insights) > 0 {
		resp.Insights = make(map[string]streetInsight, len(answer.Insights))
		for street, insight := range answer.Insights {
			resp.Insights[street] = streetInsight{Total: insight.Total, ByVehicle: insight.ByVehicle}
		}
	}
	resp.Visualization = s.buildVisualization(req.Question)

	s.writeJSON(w, http.StatusOK, resp)
}

// buildVisualization is strictly additive: a routing or build failure never
// fails the chat turn.
func (s *Server) buildVisualization(question string) *visualization {
	routed := viz.Route(question)
	if routed.IsZero() {
		return nil
	}

	payload := &visualization{Category: string(routed.Category)}

	if routed.Category == viz.CategoryMap {
		layer, err := viz.BuildHeatMap(s.view, routed.Motorcycle)
		if err != nil {
			s.logger.Printf("heatmap build skipped: %v", err)
			return nil
		}
		converted := transformHeatMap(layer)
		payload.HeatMap = &converted
		return payload
	}

	chart, err := viz.BuildChart(s.view, routed.Category)
	if err != nil {
		s.logger.Printf("chart build skipped: %v", err)
		return nil
	}
	converted := transformChart(chart)
	payload.Chart = &converted
	return payload
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed, use %s", allowed))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("api error (%d): %v", status, err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}

	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}

	return nil
}

func transformChart(chart viz.Chart) chartPayload {
	points := make([]chartPoint, len(chart.Points))
	for i, point := range chart.Points {
		points[i] = chartPoint{Label: point.Label, Value: point.Value}
	}

	return chartPayload{
		Title:  chart.Title,
		XLabel: chart.XLabel,
		YLabel: chart.YLabel,
		Points: points,
	}
}

func transformHeatMap(layer viz.HeatMapLayer) heatPayload {
	points := make([]heatPoint, len(layer.Points))
	for i, point := range layer.Points {
		points[i] = heatPoint{Latitude: point.Latitude, Longitude: point.Longitude, Weight: point.Weight}
	}

	return heatPayload{
		Title:           layer.Title,
		CenterLatitude:  layer.CenterLatitude,
		CenterLongitude: layer.CenterLongitude,
		Zoom:            layer.Zoom,
		Radius:          layer.Radius,
		Blur:            layer.Blur,
		MinOpacity:      layer.MinOpacity,
		Points:          points,
	}
}
