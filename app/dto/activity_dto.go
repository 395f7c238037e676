package dto

type ActivityDTO struct {
	ID           uint    `json:"id"`
	LeadID       uint    `json:"lead_id"`
	ActivityType string  `json:"activity_type"`
	Content      *string `json:"content,omitempty" validate:"omitempty"`
	Actor        string  `json:"actor"`
	CreatedAt    string  `json:"created_at"`
}

type CreateActivityRequest struct {
	LeadID       uint    `json:"-"`
	ActivityType string  `json:"activity_type" validate:"required,oneof=call email message note status_change"`
	Content      *string `json:"content,omitempty" validate:"omitempty,max=10000"`
	Actor        string  `json:"-"`
}

type CreateActivityResponse struct {
	Message  string      `json:"message"`
	Activity ActivityDTO `json:"activity"`
}

type ListActivitiesResponse struct {
	Message string        `json:"message"`
	Items   []ActivityDTO `json:"items"`
}
