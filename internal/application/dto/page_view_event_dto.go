package dto

import (
	"time"

	"github.com/google/uuid"
)

// PageViewEventDTO публикуется после успешного показа landing page
type PageViewEventDTO struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Referrer  string    `json:"referrer,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	ETag      string    `json:"etag"`
	ViewedAt  time.Time `json:"viewed_at"`
}

// NewPageViewEventDTO создает событие с новым ID
func NewPageViewEventDTO(path, referrer, userAgent, requestID, etag string, viewedAt time.Time) *PageViewEventDTO {
	return &PageViewEventDTO{
		ID:        uuid.NewString(),
		Path:      path,
		Referrer:  referrer,
		UserAgent: userAgent,
		RequestID: requestID,
		ETag:      etag,
		ViewedAt:  viewedAt.UTC(),
	}
}
