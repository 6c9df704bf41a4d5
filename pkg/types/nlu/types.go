// Package nlu holds the wire types shared by the MultiNLU server, its Go
// client and the event stream.
package nlu

import (
	"time"

	"github.com/google/uuid"
)

// EntitiesKey is the ParseResult key that carries the entity list.
const EntitiesKey = "entities"

// ParseRequest is the body of POST /nlu/.
type ParseRequest struct {
	Locale string `json:"locale"`
	Text   string `json:"text"`
}

// EntityMatch is one entity recognised through the taxonomy. Start and End
// are character offsets into the lowercased text; Entity is the group name
// and Value the entity name.
type EntityMatch struct {
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Entity     string  `json:"entity"`
}

// ParseResult is the model output: an open JSON object that carries at
// least an "entities" list. Other keys (intent, intent_ranking, text) are
// passed through untouched.
type ParseResult map[string]interface{}

// Entities returns the entity list, or nil when absent or not a list.
func (r ParseResult) Entities() []interface{} {
	if r == nil {
		return nil
	}
	list, _ := r[EntitiesKey].([]interface{})
	return list
}

// AppendEntities appends matches to the entity list, creating the list when
// the model returned none. Model entities keep their position and
// confidence.
func (r ParseResult) AppendEntities(matches []EntityMatch) {
	list := r.Entities()
	if list == nil {
		list = make([]interface{}, 0, len(matches))
	}
	for _, m := range matches {
		list = append(list, m)
	}
	r[EntitiesKey] = list
}

// Intent returns intent.name when the model reported one.
func (r ParseResult) Intent() string {
	intent, ok := r["intent"].(map[string]interface{})
	if !ok {
		return ""
	}
	name, _ := intent["name"].(string)
	return name
}

// Clone returns a shallow copy with its own entity slice.
func (r ParseResult) Clone() ParseResult {
	out := make(ParseResult, len(r))
	for k, v := range r {
		out[k] = v
	}
	if list := r.Entities(); list != nil {
		out[EntitiesKey] = append([]interface{}(nil), list...)
	}
	return out
}

// LocaleState is the lifecycle of a registry slot.
type LocaleState string

const (
	LocaleLoading LocaleState = "loading"
	LocaleReady   LocaleState = "ready"
	LocaleFailed  LocaleState = "failed"
)

// LocaleStatus reports one slot in GET /nlu/locales.
type LocaleStatus struct {
	Locale       string      `json:"locale"`
	State        LocaleState `json:"state"`
	Error        string      `json:"error,omitempty"`
	LoadDuration string      `json:"load_duration,omitempty"`
}

// ParseEvent is published for every successfully dispatched request.
type ParseEvent struct {
	EventID         string    `json:"event_id"`
	OccurredAt      time.Time `json:"occurred_at"`
	Locale          string    `json:"locale"`
	RequestedLocale string    `json:"requested_locale"`
	Intent          string    `json:"intent,omitempty"`
	EntityCount     int       `json:"entity_count"`
	TaxonomyMatches int       `json:"taxonomy_matches"`
	Cached          bool      `json:"cached"`
	DurationMS      int64     `json:"duration_ms"`
}

// NewParseEvent stamps a new event with an ID and the current UTC time.
func NewParseEvent(locale, requested string) ParseEvent {
	return ParseEvent{
		EventID:         uuid.New().String(),
		OccurredAt:      time.Now().UTC(),
		Locale:          locale,
		RequestedLocale: requested,
	}
}

// HealthStatus indicates the health of a component.
type HealthStatus string

const (
	HealthUp       HealthStatus = "up"
	HealthDown     HealthStatus = "down"
	HealthDegraded HealthStatus = "degraded"
)

// ComponentHealth is one entry of the detailed health report.
type ComponentHealth struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Latency string       `json:"latency"`
	Message string       `json:"message,omitempty"`
}

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

//Personal.AI order the ending
