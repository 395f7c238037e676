package dto

type CustomLabelDTO struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	FunnelID *uint  `json:"funnel_id,omitempty" validate:"omitempty"`
}

type CreateLabelRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=255"`
	Color    *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	FunnelID *uint   `json:"funnel_id,omitempty" validate:"omitempty,min=1"`
}

type CreateLabelResponse struct {
	Message string         `json:"message"`
	Label   CustomLabelDTO `json:"label"`
}

type UpdateLabelRequest struct {
	LabelID uint    `json:"-"`
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Color   *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

type UpdateLabelResponse struct {
	Message string         `json:"message"`
	Label   CustomLabelDTO `json:"label"`
}

type DeleteLabelRequest struct {
	LabelID uint `json:"-"`
}

type DeleteLabelResponse struct {
	Message string `json:"message"`
}

type ListLabelsResponse struct {
	Message string           `json:"message"`
	Items   []CustomLabelDTO `json:"items"`
}

type AttachLabelRequest struct {
	LeadID  uint `json:"-"`
	LabelID uint `json:"label_id" validate:"required,min=1"`
}

type AttachLabelResponse struct {
	Message string `json:"message"`
}

type DetachLabelRequest struct {
	LeadID  uint `json:"-"`
	LabelID uint `json:"-"`
}

type DetachLabelResponse struct {
	Message string `json:"message"`
}
