// Package businessflow contains the core business logic and use cases for script templates
package businessflow

import (
	"context"

	"github.com/mkamali/leadfunnel/app/dto"
	"github.com/mkamali/leadfunnel/models"
	"github.com/mkamali/leadfunnel/repository"
	"github.com/mkamali/leadfunnel/utils"
)

// ScriptFlow defines operations for script templates
type ScriptFlow interface {
	CreateScript(ctx context.Context, req *dto.CreateScriptRequest, metadata *ClientMetadata) (*dto.CreateScriptResponse, error)
	ListScripts(ctx context.Context, funnelID *uint, metadata *ClientMetadata) (*dto.ListScriptsResponse, error)
	UpdateScript(ctx context.Context, req *dto.UpdateScriptRequest, metadata *ClientMetadata) (*dto.UpdateScriptResponse, error)
	DeleteScript(ctx context.Context, req *dto.DeleteScriptRequest, metadata *ClientMetadata) (*dto.DeleteScriptResponse, error)
}

// ScriptFlowImpl implements ScriptFlow
type ScriptFlowImpl struct {
	scriptRepo repository.ScriptTemplateRepository
	stageRepo  repository.StageRepository
	funnelRepo repository.FunnelRepository
}

// NewScriptFlow constructs a ScriptFlow
func NewScriptFlow(
	scriptRepo repository.ScriptTemplateRepository,
	stageRepo repository.StageRepository,
	funnelRepo repository.FunnelRepository,
) ScriptFlow {
	return &ScriptFlowImpl{
		scriptRepo: scriptRepo,
		stageRepo:  stageRepo,
		funnelRepo: funnelRepo,
	}
}

func (f *ScriptFlowImpl) getScript(ctx context.Context, scriptID uint) (*models.ScriptTemplate, error) {
	script, err := f.scriptRepo.ByID(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	if script == nil {
		return nil, ErrScriptNotFound
	}
	return script, nil
}

// CreateScript creates a reusable outreach script
func (f *ScriptFlowImpl) CreateScript(ctx context.Context, req *dto.CreateScriptRequest, metadata *ClientMetadata) (*dto.CreateScriptResponse, error) {
	funnelType := models.FunnelType(req.FunnelType)
	if !funnelType.Valid() {
		return nil, NewBusinessError("CREATE_SCRIPT_VALIDATION_FAILED", "Funnel type must be follow_up or broadcast", ErrInvalidFunnelType)
	}
	if req.FunnelID != nil {
		if _, err := getFunnel(ctx, f.funnelRepo, *req.FunnelID); err != nil {
			return nil, NewBusinessError("CREATE_SCRIPT_VALIDATION_FAILED", "Funnel not found", err)
		}
	}
	if req.StageID != nil {
		if _, err := getStage(ctx, f.stageRepo, *req.StageID); err != nil {
			return nil, NewBusinessError("CREATE_SCRIPT_VALIDATION_FAILED", "Stage not found", err)
		}
	}

	now := utils.UTCNow()
	script := &models.ScriptTemplate{
		Title:      req.Title,
		Body:       req.Body,
		FunnelType: funnelType,
		FunnelID:   req.FunnelID,
		StageID:    req.StageID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := f.scriptRepo.Save(ctx, script); err != nil {
		return nil, NewBusinessError("CREATE_SCRIPT_FAILED", "Failed to create script", err)
	}

	return &dto.CreateScriptResponse{
		Message: "Script created successfully",
		Script:  ToScriptTemplateDTO(*script),
	}, nil
}

// ListScripts lists scripts, scoped to a funnel (plus globals) when given
func (f *ScriptFlowImpl) ListScripts(ctx context.Context, funnelID *uint, metadata *ClientMetadata) (*dto.ListScriptsResponse, error) {
	var scripts []*models.ScriptTemplate
	var err error
	if funnelID != nil {
		if _, err = getFunnel(ctx, f.funnelRepo, *funnelID); err != nil {
			return nil, NewBusinessError("LIST_SCRIPTS_FAILED", "List scripts failed", err)
		}
		scripts, err = f.scriptRepo.ListForFunnel(ctx, *funnelID)
	} else {
		scripts, err = f.scriptRepo.ByFilter(ctx, models.ScriptTemplateFilter{}, "title ASC", 0, 0)
	}
	if err != nil {
		return nil, NewBusinessError("LIST_SCRIPTS_FAILED", "List scripts failed", err)
	}

	items := make([]dto.ScriptTemplateDTO, 0, len(scripts))
	for _, s := range scripts {
		items = append(items, ToScriptTemplateDTO(*s))
	}
	return &dto.ListScriptsResponse{
		Message: "Scripts retrieved successfully",
		Items:   items,
	}, nil
}

// UpdateScript updates a script's title, body, or pinned stage
func (f *ScriptFlowImpl) UpdateScript(ctx context.Context, req *dto.UpdateScriptRequest, metadata *ClientMetadata) (*dto.UpdateScriptResponse, error) {
	script, err := f.getScript(ctx, req.ScriptID)
	if err != nil {
		return nil, NewBusinessError("UPDATE_SCRIPT_FAILED", "Update script failed", err)
	}

	if req.Title != nil {
		script.Title = *req.Title
	}
	if req.Body != nil {
		script.Body = *req.Body
	}
	if req.StageID != nil {
		if _, err := getStage(ctx, f.stageRepo, *req.StageID); err != nil {
			return nil, NewBusinessError("UPDATE_SCRIPT_VALIDATION_FAILED", "Stage not found", err)
		}
		script.StageID = req.StageID
	}
	script.UpdatedAt = utils.UTCNow()

	if err := f.scriptRepo.Update(ctx, script); err != nil {
		return nil, NewBusinessError("UPDATE_SCRIPT_FAILED", "Failed to update script", err)
	}

	return &dto.UpdateScriptResponse{
		Message: "Script updated successfully",
		Script:  ToScriptTemplateDTO(*script),
	}, nil
}

// DeleteScript removes a script template
func (f *ScriptFlowImpl) DeleteScript(ctx context.Context, req *dto.DeleteScriptRequest, metadata *ClientMetadata) (*dto.DeleteScriptResponse, error) {
	if _, err := f.getScript(ctx, req.ScriptID); err != nil {
		return nil, NewBusinessError("DELETE_SCRIPT_FAILED", "Delete script failed", err)
	}

	if err := f.scriptRepo.Delete(ctx, req.ScriptID); err != nil {
		return nil, NewBusinessError("DELETE_SCRIPT_FAILED", "Failed to delete script", err)
	}

	return &dto.DeleteScriptResponse{Message: "Script deleted successfully"}, nil
}
