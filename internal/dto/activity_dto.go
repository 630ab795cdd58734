package dto

import (
	"time"

	"github.com/noah-isme/codesarge-api/internal/models"
)

// ActivityListRequest narrows activity log queries.
type ActivityListRequest struct {
	Page       int    `query:"page"`
	PageSize   int    `query:"page_size"`
	Action     string `query:"action"`
	EntityType string `query:"entity_type"`
}

// ActivityResponse represents an activity log entry.
type ActivityResponse struct {
	ID         uint                   `json:"id"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   *uint                  `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// ActivityListResponse wraps activity entries and pagination metadata.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination Pagination         `json:"pagination"`
}

// NewActivityResponse converts an activity log model.
func NewActivityResponse(model models.ActivityLog) ActivityResponse {
	metadata := map[string]interface{}{}
	for key, value := range model.Metadata {
		metadata[key] = value
	}
	return ActivityResponse{
		ID:         model.ID,
		Action:     model.Action,
		EntityType: model.EntityType,
		EntityID:   model.EntityID,
		Metadata:   metadata,
		CreatedAt:  model.CreatedAt,
	}
}
