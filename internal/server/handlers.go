package server

import (
	"errors"
	"mime/multipart"
	"net/http"

	"video-wizard/internal/audio"
	"video-wizard/internal/export"
	"video-wizard/internal/i18n"
	"video-wizard/internal/models"
	"video-wizard/internal/wizard"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Response codes carried in the envelope next to the HTTP status.
const (
	codeOK           = 0
	codeBadRequest   = 1001
	codeNotFound     = 1002
	codeUploadFailed = 1003
	codeInternal     = 1004
	codeBackend      = 1005
	codeConflict     = 1006
)

// SessionHandler handles the wizard's session-scoped requests.
type SessionHandler struct {
	sessions       *wizard.Sessions
	translator     *i18n.Translator
	maxUploadBytes int64
	upgrader       websocket.Upgrader
	logger         *zap.Logger
}

func NewSessionHandler(sessions *wizard.Sessions, translator *i18n.Translator, maxUploadBytes int64, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions:       sessions,
		translator:     translator,
		maxUploadBytes: maxUploadBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

type MoveClipRequest struct {
	Index     *int             `json:"index" binding:"required"`
	Direction models.Direction `json:"direction" binding:"required"`
}

type SelectClipRequest struct {
	Index *int `json:"index" binding:"required"`
}

type SetStepRequest struct {
	Step string `json:"step" binding:"required"`
}

type SetScriptRequest struct {
	Text string `json:"text"`
}

type SelectVoiceRequest struct {
	VoiceID string `json:"voice_id" binding:"required"`
}

// SelectMusicRequest selects a track; an empty id clears the selection.
type SelectMusicRequest struct {
	MusicID string `json:"music_id"`
}

type PreviewData struct {
	Played   bool        `json:"played"`
	AudioURL string      `json:"audio_url,omitempty"`
	View     wizard.View `json:"view"`
}

// ExportUpdate is one message on the export progress stream.
type ExportUpdate struct {
	Progress    int  `json:"progress"`
	IsExporting bool `json:"is_exporting"`
	Done        bool `json:"done"`
}

// GetCatalog handles GET /api/v1/catalog.
func (h *SessionHandler) GetCatalog(c *gin.Context) {
	h.respondSuccess(c, wizard.NewCatalog(h.translator.Localizer(h.requestLang(c))))
}

// CreateSession handles POST /api/v1/sessions. The session language comes
// from the lang query parameter or Accept-Language.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	lang := h.requestLang(c)
	if q := c.Query("lang"); q != "" {
		lang = h.translator.Match(q)
	}

	ctl, err := h.sessions.Create(lang)
	if err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		h.fail(c, lang, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"code":    codeOK,
		"message": "success",
		"data":    ctl.View(),
	})
}

// GetSession handles GET /api/v1/sessions/:session_id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	ctl, ok := h.session(c)
	if !ok {
		return
	}
	h.respondSuccess(c, ctl.View())
}

// DeleteSession handles DELETE /api/v1/sessions/:session_id.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Remove(c.Param("session_id")); err != nil {
		h.fail(c, h.requestLang(c), err)
		return
	}
	h.respondSuccess(c, nil)
}

// AddClips handles POST /api/v1/sessions/:session_id/clips with one or more
// multipart "files".
func (h *SessionHandler) AddClips(c *gin.Context) {
	ctl, ok := h.session(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		h.respondError(c, http.StatusBadRequest, codeUploadFailed, h.text(ctl.Lang(), "error_upload_failed"), err.Error())
		return
	}

	uploads, files, err := openUploads(form.File["files"])
	defer closeAll(files)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, codeUploadFailed, h.text(ctl.Lang(), "error_upload_failed"), err.Error())
		return
	}

	if _, err := ctl.AddClips(uploads); err != nil {
		h.logger.Error("Failed to add clips", zap.String("session", ctl.ID()), zap.Error(err))
		h.fail(c, ctl.Lang(), err)
		return
	}
	h.respondSuccess(c, ctl.View())
}

// RemoveClip handles DELETE /api/v1/sessions/:session_id/clips/:clip_id.
func (h *SessionHandler) RemoveClip(c *gin.Context) {
	ctl, ok := h.session(c)
	if !ok {
		return
	}
	ctl.RemoveClip(c.Param("clip_id"))
	h.respondSuccess(c, ctl.View())
}

// MoveClip handles POST /api/v1/sessions/:session_id/clips/move.
func (h *SessionHandler) MoveClip(c *gin.Context) {
	ctl, ok := h.session(c)
	if !ok {
		return
	}
	var req MoveClipRequest
	if !h.bind(c, ctl, &req) {
		return
	}
	if err := ctl.MoveClip(*req.Index, req.Direction); err != nil {
		h.fail(c, ctl.Lang(), err)
		return
	}
	h.respondSuccess(c, ctl.View())
}

// AutoArrange handles POST /api/v1/sessions/:session_id/clips/arrange.
func (h *SessionHandler) AutoArrange(c *gin.Context) {
	ctl, ok := h.session(c)
	if !ok {
		return
	}
	ctl.AutoArrange()
	h.respondSuccess(c, ctl.View())
}

// SelectClip handles PUT /api/v1/sessions/:session_id/selection.
func (h *SessionHandler) SelectClip(c *gin.Context) {
	ctl, ok := h.session(c)
	if !ok {
		return
	}
	var req SelectClipRequest
	if !h.bind(c, ctl, &req) {
		return
	}
	if err := ctl.SelectClip(*req.Index); err != nil {
		h.fail(c, ctl.Lang(), err)
		return
	}
	h.respondSuccess(c, ctl.View())
}

// GetMedia handles GET /api/v1/sessions/:session_id/media/:clip_id.
func (h *SessionHandler) GetMedia(c *gin.Context) {
	ctl, ok := h.session(c)
	if !ok {
		return
	}
	path, err := ctl.MediaPath(c.Param("clip_id"))
	if err != nil {
		h.respondError(c, http.StatusNotFound, codeNotFound, h.text(ctl.Lang(), "error_clip_not_found"), err.Error())
		return
	}
	c.File(path)
}

// SetStep handles PUT /api/v1/sessions/:session_id/step.
func (h *SessionHandler) SetStep(c *gin.Context) {
	ctl, ok := h.session(c)
	if !ok {
		return
	}
	var req SetStepRequest
	if !h.bind(c, ctl, &req) {
		return
	}
	if err := ctl.SetStep(req.Step); err != nil {
		h.fail(c, ctl.Lang(), err)
		return
	}
	h.respondSuccess(c, ctl.View())
}

// SetScript handles PUT /api/v1/sessions/:session_id/script.
func (h *SessionHandler) SetScript(c *gin.Context) {
	ctl, ok := h.session(c)
	if !ok {
		return
	}
	var req SetScriptRequest
	if !h.bind(c, ctl, &req) {
		return
	}
	ctl.SetScript(req.Text)
	h.respondSuccess(c, ctl.View())
}

// DraftScript handles POST /api/v1/sessions/:session_id/script/draft. It
// blocks until the draft arrives.
func (h *SessionHandler) DraftScript(c *gin.Context) {
	ctl, ok := h.session(c)
	if !ok {
		return
	}
	if err := ctl.DraftScript(c.Request.Context()); err != nil {
		h.fail(c, ctl.Lang(), err)
		return
	}
	h.respondSuccess(c, ctl.View())
}

// SelectVoice handles PUT /api/v1/sessions/:session_id/voice.
func (h *SessionHandler) SelectVoice(c *gin.Context) {
	ctl, ok := h.session(c)
	if !ok {
		return
	}
	var req SelectVoiceRequest
	if !h.bind(c, ctl, &req) {
		return
	}
	if err := ctl.SelectVoice(req.VoiceID); err != nil {
		h.fail(c, ctl.Lang(), err)
		return
	}
	h.respondSuccess(c, ctl.View())
}

// PreviewVoice handles POST /api/v1/sessions/:session_id/voice/preview.
// When audio was produced the response points at the WAV rendition.
func (h *SessionHandler) PreviewVoice(c *gin.Context) {
	ctl, ok := h.session(c)
	if !ok {
		return
	}
	played, err := ctl.PreviewVoice(c.Request.Context())
	if err != nil {
		h.fail(c, ctl.Lang(), err)
		return
	}
	data := PreviewData{Played: played, View: ctl.View()}
	if played {
		data.AudioURL = apiPrefix + "/sessions/" + ctl.ID() + "/voice/preview.wav"
	}
	h.respondSuccess(c, data)
}

// GetPreviewAudio handles GET /api/v1/sessions/:session_id/voice/preview.wav.
func (h *SessionHandler) GetPreviewAudio(c *gin.Context) {
	ctl, ok := h.session(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "audio/wav")
	c.Header("Cache-Control", "no-store")
	if err := ctl.WritePreview(c.Writer); err != nil {
		c.Header("Content-Type", "application/json; charset=utf-8")
		h.fail(c, ctl.Lang(), err)
	}
}

// SelectMusic handles PUT /api/v1/sessions/:session_id/music.
func (h *SessionHandler) SelectMusic(c *gin.Context) {
	ctl, ok := h.session(c)
	if !ok {
		return
	}
	var req SelectMusicRequest
	if !h.bind(c, ctl, &req) {
		return
	}
	if err := ctl.SelectMusic(req.MusicID); err != nil {
		h.fail(c, ctl.Lang(), err)
		return
	}
	h.respondSuccess(c, ctl.View())
}

// GenerateCaptions handles POST /api/v1/sessions/:session_id/captions.
func (h *SessionHandler) GenerateCaptions(c *gin.Context) {
	ctl, ok := h.session(c)
	if !ok {
		return
	}
	ctl.GenerateCaptions()
	h.respondSuccess(c, ctl.View())
}

// StartExport handles POST /api/v1/sessions/:session_id/export. Progress is
// read from the session view or streamed from /export/ws.
func (h *SessionHandler) StartExport(c *gin.Context) {
	ctl, ok := h.session(c)
	if !ok {
		return
	}
	if err := ctl.StartExport(); err != nil {
		h.fail(c, ctl.Lang(), err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"code":    codeOK,
		"message": "success",
		"data":    ctl.View(),
	})
}

// WatchExport handles GET /api/v1/sessions/:session_id/export/ws. It streams
// ExportUpdate messages until the export completes, the client goes away or
// the session is closed.
func (h *SessionHandler) WatchExport(c *gin.Context) {
	ctl, ok := h.session(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.String("session", ctl.ID()), zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := ctl.Subscribe()
	defer cancel()

	// the reader only exists to notice the client closing
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-ctl.Done():
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
			return
		case p := <-updates:
			done := p.ExportProgress >= export.Complete
			if err := conn.WriteJSON(ExportUpdate{Progress: p.ExportProgress, IsExporting: p.IsExporting, Done: done}); err != nil {
				h.logger.Debug("Export stream write failed", zap.String("session", ctl.ID()), zap.Error(err))
				return
			}
			if done {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	}
}

// session loads the controller named in the path, answering 404 itself when
// there is none.
func (h *SessionHandler) session(c *gin.Context) (*wizard.Controller, bool) {
	ctl, err := h.sessions.Get(c.Param("session_id"))
	if err != nil {
		h.fail(c, h.requestLang(c), err)
		return nil, false
	}
	return ctl, true
}

func (h *SessionHandler) bind(c *gin.Context, ctl *wizard.Controller, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.respondError(c, http.StatusBadRequest, codeBadRequest, h.text(ctl.Lang(), "error_bad_request"), err.Error())
		return false
	}
	return true
}

func (h *SessionHandler) requestLang(c *gin.Context) string {
	return h.translator.Match(c.GetHeader("Accept-Language"))
}

func (h *SessionHandler) text(lang, id string) string {
	return h.translator.Localizer(lang).Text(id)
}

// fail maps a domain error onto a status, a response code and a localized message.
func (h *SessionHandler) fail(c *gin.Context, lang string, err error) {
	status, code, msgID := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	h.respondError(c, status, code, h.text(lang, msgID), err.Error())
}

func classify(err error) (status, code int, msgID string) {
	switch {
	case errors.Is(err, wizard.ErrSessionNotFound), errors.Is(err, wizard.ErrSessionClosed):
		return http.StatusNotFound, codeNotFound, "error_session_not_found"
	case errors.Is(err, audio.ErrNothingPlaying):
		return http.StatusNotFound, codeNotFound, "error_no_preview"
	case errors.Is(err, wizard.ErrNoClips):
		return http.StatusConflict, codeConflict, "error_no_clips"
	case errors.Is(err, wizard.ErrEmptyScript):
		return http.StatusConflict, codeConflict, "error_empty_script"
	case errors.Is(err, wizard.ErrExportStarted):
		return http.StatusConflict, codeConflict, "error_export_started"
	case errors.Is(err, wizard.ErrUnknownVoice):
		return http.StatusBadRequest, codeBadRequest, "error_unknown_voice"
	case errors.Is(err, wizard.ErrUnknownMusic):
		return http.StatusBadRequest, codeBadRequest, "error_unknown_music"
	case errors.Is(err, models.ErrUnknownStep):
		return http.StatusBadRequest, codeBadRequest, "error_unknown_step"
	case errors.Is(err, wizard.ErrInvalidIndex):
		return http.StatusBadRequest, codeBadRequest, "error_invalid_index"
	case errors.Is(err, wizard.ErrInvalidDirection):
		return http.StatusBadRequest, codeBadRequest, "error_invalid_direction"
	case errors.Is(err, wizard.ErrBackend):
		return http.StatusBadGateway, codeBackend, "error_backend"
	default:
		return http.StatusInternalServerError, codeInternal, "error_internal"
	}
}

func openUploads(headers []*multipart.FileHeader) ([]wizard.Upload, []multipart.File, error) {
	uploads := make([]wizard.Upload, 0, len(headers))
	files := make([]multipart.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, files, err
		}
		files = append(files, f)
		uploads = append(uploads, wizard.Upload{Name: fh.Filename, Body: f})
	}
	return uploads, files, nil
}

func closeAll(files []multipart.File) {
	for _, f := range files {
		f.Close()
	}
}

func (h *SessionHandler) respondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code":    codeOK,
		"message": "success",
		"data":    data,
	})
}

func (h *SessionHandler) respondError(c *gin.Context, statusCode, code int, message, details string) {
	c.JSON(statusCode, gin.H{
		"code":    code,
		"message": message,
		"data":    details,
	})
}
