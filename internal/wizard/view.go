package wizard

import (
	"video-wizard/internal/i18n"
	"video-wizard/internal/models"
	"video-wizard/internal/state"
)

// Action names a control the client may offer on the current step.
type Action string

const (
	ActionAddClips         Action = "add_clips"
	ActionRemoveClip       Action = "remove_clip"
	ActionMoveClip         Action = "move_clip"
	ActionAutoArrange      Action = "auto_arrange"
	ActionSelectClip       Action = "select_clip"
	ActionEditScript       Action = "edit_script"
	ActionDraftScript      Action = "draft_script"
	ActionSelectVoice      Action = "select_voice"
	ActionPreviewVoice     Action = "preview_voice"
	ActionSelectMusic      Action = "select_music"
	ActionGenerateCaptions Action = "generate_captions"
	ActionStartExport      Action = "start_export"
	ActionSetStep          Action = "set_step"
)

type StepInfo struct {
	ID          models.Step `json:"id"`
	Index       int         `json:"index"`
	Label       string      `json:"label"`
	Description string      `json:"description"`
	Active      bool        `json:"active"`
}

// View is what a client renders: the project snapshot plus localized labels
// and the controls that make sense right now. The actions are hints; only
// the preconditions of each operation are enforced.
type View struct {
	SessionID     string        `json:"session_id"`
	Lang          string        `json:"lang"`
	Steps         []StepInfo    `json:"steps"`
	Actions       []Action      `json:"actions"`
	CanAddMore    bool          `json:"can_add_more"`
	CanDraft      bool          `json:"can_draft"`
	CanPreview    bool          `json:"can_preview"`
	CanExport     bool          `json:"can_export"`
	MusicLabel    string        `json:"music_label"`
	Notice        string        `json:"notice,omitempty"`
	TotalDuration int           `json:"total_duration"`
	Project       state.Project `json:"project"`
}

// View renders the current snapshot.
func (c *Controller) View() View {
	return BuildView(c.id, c.lang, c.loc, c.store.Snapshot())
}

func BuildView(sessionID, lang string, loc *i18n.Localizer, p state.Project) View {
	v := View{
		SessionID:     sessionID,
		Lang:          lang,
		Steps:         make([]StepInfo, 0, len(models.Steps)),
		Actions:       PermittedActions(p),
		CanAddMore:    len(p.Clips) < models.MaxClipsHint,
		CanDraft:      len(p.Clips) > 0 && !p.IsAnalyzing,
		CanPreview:    p.Script != "" && !p.IsGeneratingAudio,
		CanExport:     len(p.Clips) > 0 && !p.IsExporting,
		MusicLabel:    loc.Text("music_none"),
		TotalDuration: p.TotalDuration(),
		Project:       p,
	}
	for _, info := range stepInfos(loc) {
		info.Active = info.ID == p.Step
		v.Steps = append(v.Steps, info)
	}
	if p.SelectedMusic != nil {
		v.MusicLabel = p.SelectedMusic.Title
	}
	if p.Notice != "" {
		v.Notice = loc.Text(p.Notice)
	}
	return v
}

// PermittedActions lists the controls offered on p's step.
func PermittedActions(p state.Project) []Action {
	var actions []Action
	switch p.Step {
	case models.StepUpload:
		actions = append(actions, ActionAddClips)
	case models.StepArrange:
		actions = append(actions, ActionMoveClip, ActionRemoveClip, ActionAutoArrange, ActionSelectClip)
		if len(p.Clips) < models.MaxClipsHint {
			actions = append(actions, ActionAddClips)
		}
	case models.StepVoiceover:
		actions = append(actions, ActionEditScript, ActionDraftScript, ActionSelectVoice)
		if p.Script != "" {
			actions = append(actions, ActionPreviewVoice)
		}
	case models.StepMusic:
		actions = append(actions, ActionSelectMusic)
	case models.StepCaptions:
		actions = append(actions, ActionGenerateCaptions)
	case models.StepExport:
		if len(p.Clips) > 0 && !p.IsExporting {
			actions = append(actions, ActionStartExport)
		}
	}
	return append(actions, ActionSetStep)
}

func stepInfos(loc *i18n.Localizer) []StepInfo {
	infos := make([]StepInfo, len(models.Steps))
	for i, s := range models.Steps {
		infos[i] = StepInfo{
			ID:          s,
			Index:       i,
			Label:       loc.Text("step_" + string(s) + "_label"),
			Description: loc.Text("step_" + string(s) + "_desc"),
		}
	}
	return infos
}

// Catalog lists the wizard steps and the fixed voices and music tracks.
type Catalog struct {
	Steps  []StepInfo           `json:"steps"`
	Voices []models.VoiceOption `json:"voices"`
	Music  []models.MusicOption `json:"music"`
}

func NewCatalog(loc *i18n.Localizer) Catalog {
	return Catalog{Steps: stepInfos(loc), Voices: models.VoiceCatalog, Music: models.MusicCatalog}
}
