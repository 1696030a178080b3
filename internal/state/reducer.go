// Package state holds the project model and the pure reducer that every
// wizard mutation goes through.
package state

import (
	"slices"

	"video-wizard/internal/export"
	"video-wizard/internal/models"
)

// Project is an immutable snapshot of one editing session. Reduce never
// modifies the snapshot it is given.
type Project struct {
	Step              models.Step         `json:"step"`
	Clips             []models.VideoClip  `json:"clips"`
	SelectedClipIndex int                 `json:"selected_clip_index"`
	Script            string              `json:"script"`
	SelectedVoice     models.VoiceOption  `json:"selected_voice"`
	SelectedMusic     *models.MusicOption `json:"selected_music"`
	Captions          []models.Caption    `json:"captions"`

	IsAnalyzing         bool `json:"is_analyzing"`
	IsGeneratingAudio   bool `json:"is_generating_audio"`
	IsCaptionsGenerated bool `json:"is_captions_generated"`
	IsExporting         bool `json:"is_exporting"`
	ExportProgress      int  `json:"export_progress"`

	// Notice is the last user-facing message id raised by a degraded operation.
	Notice string `json:"notice,omitempty"`

	// DraftGen and PreviewGen identify the newest request of each kind.
	DraftGen   uint64 `json:"-"`
	PreviewGen uint64 `json:"-"`
}

func NewProject() Project {
	return Project{
		Step:          models.StepUpload,
		Clips:         []models.VideoClip{},
		SelectedVoice: models.DefaultVoice(),
	}
}

type Action interface {
	isAction()
}

// ClipsAdded appends clips. The first non-empty add on an empty project
// moves the wizard to the arrange step.
type ClipsAdded struct{ Clips []models.VideoClip }

type ClipRemoved struct{ ID string }

type ClipMoved struct {
	Index     int
	Direction models.Direction
}

type ClipsArranged struct{}

type ClipSelected struct{ Index int }

type ScriptChanged struct{ Text string }

type DraftStarted struct{}

// DraftFinished completes the draft started at generation Gen. Text is nil
// when the draft failed, leaving the script as it was.
type DraftFinished struct {
	Gen  uint64
	Text *string
}

type VoiceSelected struct{ Voice models.VoiceOption }

type PreviewStarted struct{}

type PreviewFinished struct{ Gen uint64 }

type MusicSelected struct{ Music *models.MusicOption }

type CaptionsGenerated struct{ Captions []models.Caption }

type StepChanged struct{ Step models.Step }

type ExportStarted struct{}

type ExportProgressed struct{ Percent int }

type NoticeRaised struct{ MessageID string }

func (ClipsAdded) isAction() {}
func (ClipRemoved) isAction() {}
func (ClipMoved) isAction() {}
func (ClipsArranged) isAction() {}
func (ClipSelected) isAction() {}
func (ScriptChanged) isAction() {}
func (DraftStarted) isAction() {}
func (DraftFinished) isAction() {}
func (VoiceSelected) isAction() {}
func (PreviewStarted) isAction() {}
func (PreviewFinished) isAction() {}
func (MusicSelected) isAction() {}
func (CaptionsGenerated) isAction() {}
func (StepChanged) isAction() {}
func (ExportStarted) isAction() {}
func (ExportProgressed) isAction() {}
func (NoticeRaised) isAction() {}

// Reduce returns the project that results from applying a to p.
func Reduce(p Project, a Action) Project {
	switch a := a.(type) {
	case ClipsAdded:
		if len(a.Clips) == 0 {
			return p
		}
		wasEmpty := len(p.Clips) == 0
		p.Clips = append(slices.Clone(p.Clips), a.Clips...)
		if wasEmpty {
			p.Step = models.StepArrange
		}

	case ClipRemoved:
		i := slices.IndexFunc(p.Clips, func(c models.VideoClip) bool { return c.ID == a.ID })
		if i < 0 {
			return p
		}
		p.Clips = slices.Delete(slices.Clone(p.Clips), i, i+1)
		p.SelectedClipIndex = clampIndex(p.SelectedClipIndex, len(p.Clips))

	case ClipMoved:
		target := a.Index - 1
		if a.Direction == models.DirectionDown {
			target = a.Index + 1
		} else if a.Direction != models.DirectionUp {
			return p
		}
		if a.Index < 0 || a.Index >= len(p.Clips) || target < 0 || target >= len(p.Clips) {
			return p
		}
		p.Clips = slices.Clone(p.Clips)
		p.Clips[a.Index], p.Clips[target] = p.Clips[target], p.Clips[a.Index]

	case ClipsArranged:
		p.Clips = slices.Clone(p.Clips)
		slices.SortStableFunc(p.Clips, func(x, y models.VideoClip) int { return x.Duration - y.Duration })

	case ClipSelected:
		p.SelectedClipIndex = clampIndex(a.Index, len(p.Clips))

	case ScriptChanged:
		p.Script = a.Text

	case DraftStarted:
		p.DraftGen++
		p.IsAnalyzing = true

	case DraftFinished:
		if a.Gen != p.DraftGen {
			return p
		}
		p.IsAnalyzing = false
		if a.Text != nil {
			p.Script = *a.Text
		}

	case VoiceSelected:
		p.SelectedVoice = a.Voice

	case PreviewStarted:
		p.PreviewGen++
		p.IsGeneratingAudio = true

	case PreviewFinished:
		if a.Gen != p.PreviewGen {
			return p
		}
		p.IsGeneratingAudio = false

	case MusicSelected:
		if a.Music == nil {
			p.SelectedMusic = nil
		} else {
			m := *a.Music
			p.SelectedMusic = &m
		}

	case CaptionsGenerated:
		p.IsCaptionsGenerated = true
		p.Captions = slices.Clone(a.Captions)

	case StepChanged:
		p.Step = a.Step

	case ExportStarted:
		if p.IsExporting || len(p.Clips) == 0 {
			return p
		}
		p.IsExporting = true
		p.ExportProgress = 0

	case ExportProgressed:
		if !p.IsExporting {
			return p
		}
		percent := min(max(a.Percent, 0), export.Complete)
		p.ExportProgress = max(p.ExportProgress, percent)

	case NoticeRaised:
		p.Notice = a.MessageID
	}
	return p
}

// CurrentClip returns the clip under the preview cursor.
func (p Project) CurrentClip() (models.VideoClip, bool) {
	if len(p.Clips) == 0 {
		return models.VideoClip{}, false
	}
	return p.Clips[clampIndex(p.SelectedClipIndex, len(p.Clips))], true
}

// TotalDuration is the summed clip duration in seconds.
func (p Project) TotalDuration() int {
	total := 0
	for _, c := range p.Clips {
		total += c.Duration
	}
	return total
}

func clampIndex(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
