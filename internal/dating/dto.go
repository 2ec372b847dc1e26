// internal/dating/dto.go
package dating

// DTOs for API requests/responses

// FeedFilters are the caller-supplied feed predicates. All are optional.
type FeedFilters struct {
	Country  string `json:"country,omitempty" validate:"omitempty,max=64"`
	City     string `json:"city,omitempty" validate:"omitempty,max=100"`
	Gender   string `json:"gender,omitempty" validate:"omitempty,oneof=male female"`
	Goal     Goal   `json:"goal,omitempty" validate:"omitempty,oneof=serious marriage friendship"`
	HasPhoto *bool  `json:"has_photo,omitempty"`
}

type SwipeRequestDTO struct {
	TargetID string   `json:"target_id" validate:"required,max=128"`
	Decision Decision `json:"decision" validate:"required,oneof=like pass block"`
}

type SwipeResponseDTO struct {
	SwipeID string `json:"swipe_id"`
	Status  Status `json:"status"`
	Matched bool   `json:"matched"`
	Warning string `json:"warning,omitempty"`
}

type MatchStatusDTO struct {
	UserID  string  `json:"user_id"`
	Status  Status  `json:"status"`
	Matched bool    `json:"matched"`
	Score   float64 `json:"score"`
}

type MatchSummaryDTO struct {
	MatchID   string  `json:"match_id"`
	PartnerID string  `json:"partner_id"`
	Score     float64 `json:"score"`
	MatchedAt string  `json:"matched_at"`
}
