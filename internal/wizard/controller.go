package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"video-wizard/internal/audio"
	"video-wizard/internal/export"
	"video-wizard/internal/i18n"
	"video-wizard/internal/media"
	"video-wizard/internal/models"
	"video-wizard/internal/state"

	"go.uber.org/zap"
)

var (
	ErrNoClips          = errors.New("project has no clips")
	ErrEmptyScript      = errors.New("script is empty")
	ErrExportStarted    = errors.New("export has already started")
	ErrUnknownVoice     = errors.New("unknown voice")
	ErrUnknownMusic     = errors.New("unknown music track")
	ErrInvalidIndex     = errors.New("clip index out of range")
	ErrInvalidDirection = errors.New("direction must be up or down")
	ErrSessionClosed    = errors.New("session is closed")
	ErrBackend          = errors.New("AI backend failed")
)

type ScriptDrafter interface {
	DraftScript(ctx context.Context, clipCount int, lang string) (string, error)
}

type SpeechSynthesizer interface {
	SynthesizeSpeech(ctx context.Context, text, voiceName string) (string, error)
}

// Upload is one selected file.
type Upload struct {
	Name string
	Body io.Reader
}

type Options struct {
	Drafter    ScriptDrafter
	Speech     SpeechSynthesizer
	Prober     media.Prober
	Captions   media.CaptionGenerator
	Exporter   export.Simulator
	Translator *i18n.Translator
	SampleRate int
	MediaRoot  string
	Logger     *zap.Logger
}

// Controller drives one session's wizard. Every state change is a dispatch
// into the session's Store; the controller owns the session's resources
// (uploaded media, the audio output and the export run) and releases them
// in Close.
type Controller struct {
	id        string
	lang      string
	mediaBase string
	opts      Options
	loc       *i18n.Localizer
	store     *state.Store
	registry  *media.Registry
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	outputMu sync.Mutex
	output   *audio.Output
	closed   bool

	previewMu     sync.Mutex
	previewCancel context.CancelFunc
	previewSeq    uint64

	exportMu sync.Mutex
	wg       sync.WaitGroup

	lastActive atomic.Int64
	closeOnce  sync.Once
}

// NewController starts a session. Clip URLs are mediaBase followed by the clip id.
func NewController(id, lang, mediaBase string, opts Options) (*Controller, error) {
	registry, err := media.NewRegistry(opts.MediaRoot)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		id:        id,
		lang:      lang,
		mediaBase: mediaBase,
		opts:      opts,
		loc:       opts.Translator.Localizer(lang),
		store:     state.NewStore(state.NewProject()),
		registry:  registry,
		logger:    opts.Logger.With(zap.String("session", id)),
		ctx:       ctx,
		cancel:    cancel,
	}
	c.touch()
	return c, nil
}

func (c *Controller) ID() string { return c.id }
func (c *Controller) Lang() string { return c.lang }

func (c *Controller) State() state.Project {
	return c.store.Snapshot()
}

// Subscribe streams project snapshots until cancel is called.
func (c *Controller) Subscribe() (<-chan state.Project, func()) {
	return c.store.Subscribe()
}

// Done is closed once the session is closed.
func (c *Controller) Done() <-chan struct{} {
	return c.ctx.Done()
}

// LastActive reports when the session last handled an action.
func (c *Controller) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

func (c *Controller) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

// AddClips stores every upload and appends one clip per upload, in order. If
// any upload fails nothing is added.
func (c *Controller) AddClips(uploads []Upload) ([]models.VideoClip, error) {
	c.touch()
	if c.isClosed() {
		return nil, ErrSessionClosed
	}

	clips := make([]models.VideoClip, 0, len(uploads))
	for _, u := range uploads {
		token, err := c.registry.Acquire(u.Name, u.Body)
		if err != nil {
			for _, added := range clips {
				c.registry.Revoke(added.ID)
			}
			return nil, fmt.Errorf("failed to add %s: %w", u.Name, err)
		}

		meta := c.opts.Prober.Probe(u.Name)
		clips = append(clips, models.VideoClip{
			ID:         token,
			Name:       u.Name,
			URL:        c.mediaBase + token,
			Thumbnail:  meta.Thumbnail,
			Duration:   meta.Duration,
			Resolution: meta.Resolution,
		})
	}

	p := c.store.Dispatch(state.ClipsAdded{Clips: clips})
	c.logger.Info("Clips added", zap.Int("added", len(clips)), zap.Int("total", len(p.Clips)), zap.String("step", string(p.Step)))
	return clips, nil
}

// MediaPath resolves a clip id to its local file.
func (c *Controller) MediaPath(clipID string) (string, error) {
	return c.registry.Path(clipID)
}

// RemoveClip drops the clip and releases its media. Unknown ids are ignored.
func (c *Controller) RemoveClip(id string) {
	c.touch()
	c.store.Dispatch(state.ClipRemoved{ID: id})
	if err := c.registry.Revoke(id); err != nil {
		c.logger.Warn("Failed to release clip media", zap.String("clip", id), zap.Error(err))
	}
}

// MoveClip swaps the clip at index with its neighbour. Moving past either end
// is a no-op.
func (c *Controller) MoveClip(index int, dir models.Direction) error {
	c.touch()
	if dir != models.DirectionUp && dir != models.DirectionDown {
		return ErrInvalidDirection
	}
	c.store.Dispatch(state.ClipMoved{Index: index, Direction: dir})
	return nil
}

// AutoArrange orders clips by ascending duration, keeping ties in place.
func (c *Controller) AutoArrange() {
	c.touch()
	c.store.Dispatch(state.ClipsArranged{})
}

func (c *Controller) SelectClip(index int) error {
	c.touch()
	if index < 0 || index >= len(c.store.Snapshot().Clips) {
		return ErrInvalidIndex
	}
	c.store.Dispatch(state.ClipSelected{Index: index})
	return nil
}

func (c *Controller) SetScript(text string) {
	c.touch()
	c.store.Dispatch(state.ScriptChanged{Text: text})
}

func (c *Controller) SelectVoice(id string) error {
	c.touch()
	voice, ok := models.FindVoice(id)
	if !ok {
		return ErrUnknownVoice
	}
	c.store.Dispatch(state.VoiceSelected{Voice: voice})
	return nil
}

// SelectMusic selects a track; an empty id clears the selection.
func (c *Controller) SelectMusic(id string) error {
	c.touch()
	if id == "" {
		c.store.Dispatch(state.MusicSelected{})
		return nil
	}
	music, ok := models.FindMusic(id)
	if !ok {
		return ErrUnknownMusic
	}
	c.store.Dispatch(state.MusicSelected{Music: &music})
	return nil
}

func (c *Controller) GenerateCaptions() {
	c.touch()
	c.store.Dispatch(state.CaptionsGenerated{Captions: c.opts.Captions.Captions(c.loc.Text)})
}

func (c *Controller) SetStep(name string) error {
	c.touch()
	step, err := models.ParseStep(name)
	if err != nil {
		return err
	}
	c.store.Dispatch(state.StepChanged{Step: step})
	return nil
}

// DraftScript replaces the script with an AI draft. On failure the script is
// kept and the error is returned wrapped in ErrBackend. IsAnalyzing is
// cleared on every path, unless a newer draft has started meanwhile.
func (c *Controller) DraftScript(ctx context.Context) error {
	c.touch()
	snap := c.store.Snapshot()
	if len(snap.Clips) == 0 {
		return ErrNoClips
	}

	ctx, cancel := c.bind(ctx)
	defer cancel()

	gen := c.store.Dispatch(state.DraftStarted{}).DraftGen
	var text *string
	defer func() {
		c.store.Dispatch(state.DraftFinished{Gen: gen, Text: text})
	}()

	draft, err := c.opts.Drafter.DraftScript(ctx, len(snap.Clips), c.lang)
	if err != nil {
		c.logger.Error("Script draft failed", zap.Error(err))
		c.store.Dispatch(state.NoticeRaised{MessageID: "notice_draft_failed"})
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}

	text = &draft
	c.logger.Info("Script drafted", zap.Int("chars", len(draft)))
	return nil
}

// PreviewVoice synthesizes the script in the selected voice and plays it on
// the session's audio output. A newer preview cancels an older one still in
// flight. Backend failures and empty responses skip playback and are only
// logged and noted; played reports whether audio started.
func (c *Controller) PreviewVoice(ctx context.Context) (played bool, err error) {
	c.touch()
	snap := c.store.Snapshot()
	if snap.Script == "" {
		return false, ErrEmptyScript
	}

	out, err := c.audioOutput()
	if err != nil {
		return false, err
	}

	ctx, done := c.registerPreview(ctx)
	defer done()

	gen := c.store.Dispatch(state.PreviewStarted{}).PreviewGen
	defer c.store.Dispatch(state.PreviewFinished{Gen: gen})

	voice := snap.SelectedVoice
	b64, err := c.opts.Speech.SynthesizeSpeech(ctx, snap.Script, voice.VoiceName)
	if err != nil {
		if ctx.Err() != nil {
			c.logger.Debug("Voice preview superseded or cancelled", zap.Error(err))
			return false, nil
		}
		c.logger.Warn("Voice preview synthesis failed", zap.String("voice", voice.VoiceName), zap.Error(err))
		c.store.Dispatch(state.NoticeRaised{MessageID: "notice_preview_failed"})
		return false, nil
	}
	if b64 == "" {
		c.logger.Warn("Speech backend returned no audio", zap.String("voice", voice.VoiceName))
		c.store.Dispatch(state.NoticeRaised{MessageID: "notice_preview_empty"})
		return false, nil
	}

	pcm, err := audio.DecodeBase64(b64)
	if err != nil {
		c.logger.Warn("Speech payload is not valid base64", zap.Error(err))
		c.store.Dispatch(state.NoticeRaised{MessageID: "notice_preview_failed"})
		return false, nil
	}
	buf, err := audio.DecodeAudioData(pcm, out.SampleRate(), 1)
	if err != nil {
		c.logger.Warn("Failed to decode speech audio", zap.Error(err))
		c.store.Dispatch(state.NoticeRaised{MessageID: "notice_preview_failed"})
		return false, nil
	}

	c.outputMu.Lock()
	defer c.outputMu.Unlock()
	if ctx.Err() != nil || c.store.Snapshot().PreviewGen != gen {
		return false, nil
	}
	if err := out.Play(buf); err != nil {
		c.logger.Warn("Failed to start voice preview", zap.Error(err))
		return false, nil
	}
	c.logger.Info("Voice preview playing", zap.String("voice", voice.VoiceName), zap.Float64("seconds", buf.Duration()))
	return true, nil
}

// WritePreview encodes the playing preview as WAV.
func (c *Controller) WritePreview(w io.Writer) error {
	c.outputMu.Lock()
	out := c.output
	c.outputMu.Unlock()
	if out == nil {
		return audio.ErrNothingPlaying
	}
	return out.WriteWAV(w)
}

// StartExport runs the export simulator in the background. It needs at least
// one clip and can only run once per session.
func (c *Controller) StartExport() error {
	c.touch()
	c.exportMu.Lock()
	defer c.exportMu.Unlock()

	snap := c.store.Snapshot()
	if len(snap.Clips) == 0 {
		return ErrNoClips
	}
	if snap.IsExporting {
		return ErrExportStarted
	}
	if c.isClosed() {
		return ErrSessionClosed
	}

	c.store.Dispatch(state.ExportStarted{})
	c.logger.Info("Export started", zap.Int("clips", len(snap.Clips)), zap.Int("seconds", snap.TotalDuration()))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.opts.Exporter.Run(c.ctx, func(percent int) {
			c.store.Dispatch(state.ExportProgressed{Percent: percent})
		})
		if err != nil {
			c.logger.Info("Export stopped before completion", zap.Error(err))
			return
		}
		c.logger.Info("Export finished")
	}()
	return nil
}

// Close tears the session down: running work is cancelled, then the audio
// output and all media references are released.
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.outputMu.Lock()
		c.closed = true
		c.outputMu.Unlock()

		c.cancel()
		c.wg.Wait()

		c.outputMu.Lock()
		if c.output != nil {
			c.output.Close()
		}
		c.outputMu.Unlock()

		err = c.registry.Close()
		c.logger.Info("Session closed")
	})
	return err
}

func (c *Controller) isClosed() bool {
	c.outputMu.Lock()
	defer c.outputMu.Unlock()
	return c.closed
}

// audioOutput creates the session's output on first use and reuses it after.
func (c *Controller) audioOutput() (*audio.Output, error) {
	c.outputMu.Lock()
	defer c.outputMu.Unlock()
	if c.closed {
		return nil, ErrSessionClosed
	}
	if c.output == nil {
		c.output = audio.NewOutput(c.opts.SampleRate, 1)
		c.logger.Debug("Audio output created", zap.Int("sample_rate", c.opts.SampleRate))
	}
	return c.output, nil
}

// registerPreview cancels any preview still in flight and returns a context
// for the new one. done must be called when the preview ends.
func (c *Controller) registerPreview(parent context.Context) (context.Context, func()) {
	ctx, cancel := c.bind(parent)

	c.previewMu.Lock()
	if c.previewCancel != nil {
		c.previewCancel()
	}
	c.previewSeq++
	seq := c.previewSeq
	c.previewCancel = cancel
	c.previewMu.Unlock()

	return ctx, func() {
		cancel()
		c.previewMu.Lock()
		if c.previewSeq == seq {
			c.previewCancel = nil
		}
		c.previewMu.Unlock()
	}
}

// bind derives a context that also ends when the session closes.
func (c *Controller) bind(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(c.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
