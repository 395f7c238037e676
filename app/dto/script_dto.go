package dto

type ScriptTemplateDTO struct {
	ID         uint   `json:"id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	FunnelType string `json:"funnel_type"`
	FunnelID   *uint  `json:"funnel_id,omitempty" validate:"omitempty"`
	StageID    *uint  `json:"stage_id,omitempty" validate:"omitempty"`
}

type CreateScriptRequest struct {
	Title      string `json:"title" validate:"required,min=1,max=255"`
	Body       string `json:"body" validate:"required,min=1,max=20000"`
	FunnelType string `json:"funnel_type" validate:"required,oneof=follow_up broadcast"`
	FunnelID   *uint  `json:"funnel_id,omitempty" validate:"omitempty,min=1"`
	StageID    *uint  `json:"stage_id,omitempty" validate:"omitempty,min=1"`
}

type CreateScriptResponse struct {
	Message string            `json:"message"`
	Script  ScriptTemplateDTO `json:"script"`
}

type UpdateScriptRequest struct {
	ScriptID uint    `json:"-"`
	Title    *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Body     *string `json:"body,omitempty" validate:"omitempty,min=1,max=20000"`
	StageID  *uint   `json:"stage_id,omitempty" validate:"omitempty,min=1"`
}

type UpdateScriptResponse struct {
	Message string            `json:"message"`
	Script  ScriptTemplateDTO `json:"script"`
}

type DeleteScriptRequest struct {
	ScriptID uint `json:"-"`
}

type DeleteScriptResponse struct {
	Message string `json:"message"`
}

type ListScriptsResponse struct {
	Message string              `json:"message"`
	Items   []ScriptTemplateDTO `json:"items"`
}
