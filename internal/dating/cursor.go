package dating

import (
	"encoding/base64"
	"time"

	"github.com/goccy/go-json"
)

// feedCursor is the resume position in a ranked feed: the ordering key of
// the last item returned.
type feedCursor struct {
	Score     float64   `json:"s"`
	UpdatedAt time.Time `json:"u"`
	UserID    string    `json:"i"`
}

func encodeCursor(c feedCursor) string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeCursor(s string) (*feedCursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, invalidInput("GetFeed", "cursor", "malformed cursor")
	}
	var c feedCursor
	if err := json.Unmarshal(data, &c); err != nil || c.UserID == "" {
		return nil, invalidInput("GetFeed", "cursor", "malformed cursor")
	}
	return &c, nil
}

func cursorOf(item *ScoredCandidate) feedCursor {
	return feedCursor{Score: item.Score, UpdatedAt: item.Profile.UpdatedAt, UserID: item.Profile.UserID}
}

// rankedBefore reports whether a sorts ahead of b: score desc, updatedAt
// desc, then user id asc.
func rankedBefore(a, b feedCursor) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.UserID < b.UserID
}
