package http

import (
	"net/http"

	"github.com/mauv0809/pickup-ratings/internal/config"
	"github.com/mauv0809/pickup-ratings/internal/metrics"
	"github.com/mauv0809/pickup-ratings/internal/pickup"
	"github.com/mauv0809/pickup-ratings/internal/processor"
	"github.com/mauv0809/pickup-ratings/internal/rating"
)

type Server struct {
	Store          pickup.Store
	Ratings        *rating.Service
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Processor      *processor.Processor
	Router         *http.ServeMux
}

type rateRequest struct {
	TenantID string   `json:"tenant_id"`
	MatchID  int64    `json:"match_id"`
	Outcomes []string `json:"outcomes"`
}

type unrateRequest struct {
	TenantID string `json:"tenant_id"`
	MatchID  int64  `json:"match_id"`
}

type reportRequest struct {
	TenantID   string `json:"tenant_id"`
	MatchID    int64  `json:"match_id"`
	ReporterID string `json:"reporter_id"`
	TeamIndex  int    `json:"team_index"`
	Outcome    string `json:"outcome"`
}

type skillEntry struct {
	Rank        int     `json:"rank"`
	PlayerID    string  `json:"player_id"`
	Name        string  `json:"name"`
	Mu          float64 `json:"mu"`
	Sigma       float64 `json:"sigma"`
	Ordinal     float64 `json:"ordinal"`
	LastMatchID int64   `json:"last_match_id"`
}

type skillsResponse struct {
	QueueType *pickup.QueueType `json:"queue_type"`
	Skills    []skillEntry      `json:"skills"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// pushMessage is the envelope of a Pub/Sub push subscription request.
type pushMessage struct {
	Subscription string `json:"subscription"`
	Message      struct {
		Data       string            `json:"data"` // base64-encoded msgpack payload
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
}
