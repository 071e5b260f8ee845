package processor

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Chango93/Predicciones/internal/logger"
	"github.com/Chango93/Predicciones/pkg/util/podds"
)

// Request is a batch of fixtures to predict.
// It uses the fixtures file layout so a fixtures file is also a valid request.
type Request struct {
	RequestID string          `json:"requestId,omitempty"`
	Matches   []podds.Fixture `json:"matches"`
	// include the full audit trail (lambda components and grid) in the response
	Verbose bool `json:"verbose,omitempty"`
}

// PickSummary is the display form of one prediction
type PickSummary struct {
	Home       string            `json:"home"`
	Away       string            `json:"away"`
	Score      string            `json:"score"`
	Outcome    podds.Outcome     `json:"outcome"`
	EV         float64           `json:"ev"`
	Gap        float64           `json:"gap"`
	LambdaHome float64           `json:"lambdaHome"`
	LambdaAway float64           `json:"lambdaAway"`
	HomeWin    float64           `json:"homeWin"`
	Draw       float64           `json:"draw"`
	AwayWin    float64           `json:"awayWin"`
	TopByProb  []string          `json:"topByProb"`
	TopByEV    []string          `json:"topByEv"`
	Prediction *podds.Prediction `json:"prediction,omitempty"`
}

// Response is the result of a processed request
type Response struct {
	RequestID string         `json:"requestId,omitempty"`
	Season    string         `json:"season"`
	Picks     []PickSummary  `json:"picks"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// createErrorResponse creates an error response
func createErrorResponse(code, message, requestID string) ([]byte, error) {
	var response ErrorResponse
	response.Error.Code = code
	response.Error.Message = message
	response.RequestID = requestID

	return json.MarshalIndent(response, "", "  ")
}

// errorCode maps engine failures to response codes
func errorCode(err error) string {
	switch {
	case errors.Is(err, podds.ErrUnknownTeam):
		return "unknown_team"
	case errors.Is(err, podds.ErrNoMatchesForSeason):
		return "no_matches_for_season"
	case errors.Is(err, podds.ErrInvalidConfig):
		return "invalid_config"
	default:
		return "prediction_error"
	}
}

func scoreStrings(cells []podds.Scoreline) []string {
	ret := make([]string, len(cells))
	for i, c := range cells {
		ret[i] = fmt.Sprintf("%s (%.3f)", c.String(), c.Prob)
	}
	return ret
}

// Summarize converts a prediction to its display form
func Summarize(p *podds.Prediction, verbose bool) PickSummary {
	s := PickSummary{
		Home:       p.Components.Home.Team,
		Away:       p.Components.Away.Team,
		Score:      p.Pick.Score.String(),
		Outcome:    p.Pick.Outcome,
		EV:         p.Pick.EV,
		Gap:        p.Pick.Gap,
		LambdaHome: p.Components.LambdaHome,
		LambdaAway: p.Components.LambdaAway,
		HomeWin:    p.Distribution.HomeWin,
		Draw:       p.Distribution.Draw,
		AwayWin:    p.Distribution.AwayWin,
		TopByProb:  scoreStrings(p.Pick.TopByProb),
		TopByEV:    scoreStrings(p.Pick.TopByEV),
	}
	if verbose {
		s.Prediction = p
	}
	return s
}

// ProcessRequest predicts every fixture of a JSON request and returns the JSON response
// together with the raw predictions. Engine failures are reported as an error response
// with nil predictions, not as a Go error.
func ProcessRequest(predictor *podds.Predictor, input []byte) ([]byte, []*podds.Prediction, error) {
	var request Request
	if err := json.Unmarshal(input, &request); err != nil {
		logger.Error("Failed to parse input JSON", err)
		ret, err := createErrorResponse("invalid_request", fmt.Sprintf("Invalid JSON: %v", err), request.RequestID)
		return ret, nil, err
	}
	if len(request.Matches) == 0 {
		ret, err := createErrorResponse("invalid_request", "no matches to predict", request.RequestID)
		return ret, nil, err
	}

	logger.Info("Processing request", request.RequestID, len(request.Matches), "matches")

	preds, err := predictor.PredictAll(request.Matches)
	if err != nil {
		logger.Error("Prediction failed", err)
		ret, err := createErrorResponse(errorCode(err), err.Error(), request.RequestID)
		return ret, nil, err
	}

	response := Response{
		RequestID: request.RequestID,
		Season:    predictor.Snapshot().Season,
		Picks:     make([]PickSummary, 0, len(preds)),
		Metadata: map[string]any{
			"priorCacheKey": predictor.CacheKey(),
			"leagueHome":    predictor.League().Home,
			"leagueAway":    predictor.League().Away,
		},
	}
	for _, p := range preds {
		response.Picks = append(response.Picks, Summarize(p, request.Verbose))
	}

	jsonResult, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		logger.Error("Failed to marshal response to JSON", err)
		ret, err := createErrorResponse("internal_error", "Failed to create response", request.RequestID)
		return ret, nil, err
	}
	return jsonResult, preds, nil
}
