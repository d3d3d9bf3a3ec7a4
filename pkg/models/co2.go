package models

import "strings"

const (
	ActionBikeTrip      = "bike_trip"
	ActionWalkTrip      = "walk_trip"
	ActionRecycled      = "recycled"
	ActionAteVegetarian = "ate_vegetarian"
)

// Co2Request is the payload forwarded to the remote compute agent.
// DistanceKm is required and must be positive for trip actions.
type Co2Request struct {
	UserID     string   `json:"user_id"`
	Action     string   `json:"action"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// Co2Reply is the normalized reply produced by the remote agent.
type Co2Reply struct {
	Co2SavedKg float64 `json:"co2_saved_kg"`
	Message    string  `json:"message"`
	Engine     string  `json:"engine"`
}

func NormalizeAction(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func IsKnownAction(action string) bool {
	switch action {
	case ActionBikeTrip, ActionWalkTrip, ActionRecycled, ActionAteVegetarian:
		return true
	default:
		return false
	}
}

// RequiresDistance reports whether the action only makes sense with a
// travelled distance attached.
func RequiresDistance(action string) bool {
	return action == ActionBikeTrip || action == ActionWalkTrip
}

func KnownActions() []string {
	return []string{ActionBikeTrip, ActionWalkTrip, ActionRecycled, ActionAteVegetarian}
}
