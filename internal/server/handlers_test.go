package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"video-wizard/internal/export"
	"video-wizard/internal/i18n"
	"video-wizard/internal/media"
	"video-wizard/internal/wizard"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type drafterFunc func(ctx context.Context, clipCount int, lang string) (string, error)

func (f drafterFunc) DraftScript(ctx context.Context, clipCount int, lang string) (string, error) {
	return f(ctx, clipCount, lang)
}

type speechFunc func(ctx context.Context, text, voiceName string) (string, error)

func (f speechFunc) SynthesizeSpeech(ctx context.Context, text, voiceName string) (string, error) {
	return f(ctx, text, voiceName)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	engine   *gin.Engine
	sessions *wizard.Sessions
}

func newTestServer(t *testing.T, drafter wizard.ScriptDrafter) *testServer {
	t.Helper()
	tr, err := i18n.New("vi")
	require.NoError(t, err)

	if drafter == nil {
		drafter = drafterFunc(func(context.Context, int, string) (string, error) { return "drafted", nil })
	}
	opts := wizard.Options{
		Drafter: drafter,
		Speech: speechFunc(func(context.Context, string, string) (string, error) {
			return base64.StdEncoding.EncodeToString([]byte{0x00, 0x00, 0xff, 0x7f}), nil
		}),
		Prober:     media.NewSimulatedProber(7),
		Captions:   media.FixedCaptions{},
		Exporter:   export.Simulator{Interval: time.Millisecond},
		Translator: tr,
		SampleRate: 24000,
		MediaRoot:  t.TempDir(),
		Logger:     zap.NewNop(),
	}
	sessions := wizard.NewSessions(opts, time.Hour, MediaURL)
	t.Cleanup(sessions.CloseAll)

	return &testServer{
		engine:   New(sessions, tr, 1<<20, zap.NewNop()),
		sessions: sessions,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) createSession(t *testing.T) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var v wizard.View
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.Equal(t, "en", v.Lang)
	return v.SessionID
}

func (s *testServer) upload(t *testing.T, sessionID string, names ...string) (*httptest.ResponseRecorder, wizard.View) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, n := range names {
		fw, err := mw.CreateFormFile("files", n)
		require.NoError(t, err)
		_, err = fw.Write([]byte("video " + n))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/clips", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var v wizard.View
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(env.Data, &v))
	}
	return w, v
}

func decodeView(t *testing.T, env envelope) wizard.View {
	t.Helper()
	var v wizard.View
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHealthAndCatalog(t *testing.T) {
	s := newTestServer(t, nil)

	w, _ := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cat wizard.Catalog
	require.NoError(t, json.Unmarshal(env.Data, &cat))
	assert.Len(t, cat.Voices, 5)
	assert.Equal(t, "Kore", cat.Voices[0].VoiceName)
	require.Len(t, cat.Steps, 6)
	assert.Equal(t, "Upload", cat.Steps[0].Label)
}

func TestUnknownSession(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.do(t, http.MethodGet, "/api/v1/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, codeNotFound, env.Code)
	assert.Equal(t, "Session not found.", env.Message)
}

func TestUploadArrangeAndServeMedia(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.createSession(t)

	w, v := s.upload(t, id, "a.mp4", "b.mp4", "c.mp4")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "arrange", string(v.Project.Step))
	require.Len(t, v.Project.Clips, 3)

	w, env := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/clips/move", map[string]any{"index": 0, "direction": "down"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b.mp4", decodeView(t, env).Project.Clips[0].Name)

	w, env = s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/clips/move", map[string]any{"index": 0, "direction": "left"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Direction must be up or down.", env.Message)

	w, env = s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/clips/arrange", nil)
	require.Equal(t, http.StatusOK, w.Code)
	arranged := decodeView(t, env).Project.Clips
	for i := 1; i < len(arranged); i++ {
		assert.LessOrEqual(t, arranged[i-1].Duration, arranged[i].Duration)
	}

	clip := arranged[0]
	req := httptest.NewRequest(http.MethodGet, clip.URL, nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video "+clip.Name, rec.Body.String())

	w, env = s.do(t, http.MethodDelete, "/api/v1/sessions/"+id+"/clips/"+clip.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeView(t, env).Project.Clips, 2)

	rec = httptest.NewRecorder()
	s.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, clip.URL, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadRequiresMultipart(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.createSession(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/clips", map[string]string{"files": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, codeUploadFailed, env.Code)
}

func TestExportWithoutClipsIsRejected(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.createSession(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/export", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Add at least one clip first.", env.Message)

	_, env = s.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil)
	v := decodeView(t, env)
	assert.False(t, v.Project.IsExporting)
	assert.Zero(t, v.Project.ExportProgress)
}

func TestDraftFailureReturnsBadGateway(t *testing.T) {
	s := newTestServer(t, drafterFunc(func(context.Context, int, string) (string, error) {
		return "", errors.New("backend down")
	}))
	id := s.createSession(t)
	s.upload(t, id, "a.mp4")

	w, _ := s.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/script", map[string]string{"text": "mine"})
	require.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/script/draft", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, codeBackend, env.Code)

	_, env = s.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil)
	v := decodeView(t, env)
	assert.Equal(t, "mine", v.Project.Script)
	assert.False(t, v.Project.IsAnalyzing)
	assert.NotEmpty(t, v.Notice)
}

func TestVoicePreview(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.createSession(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/voice/preview", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Write or draft a script first.", env.Message)

	w, _ = s.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/voice", map[string]string{"voice_id": "v9"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/voice", map[string]string{"voice_id": "v3"})
	require.Equal(t, http.StatusOK, w.Code)

	s.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/script", map[string]string{"text": "hello"})
	w, env = s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/voice/preview", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data PreviewData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.Played)
	assert.Equal(t, "Charon", data.View.Project.SelectedVoice.VoiceName)

	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, data.AudioURL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.Equal(t, 48, rec.Body.Len())
}

func TestStepMusicAndCaptions(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.createSession(t)

	w, env := s.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/step", map[string]string{"step": "publish"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unknown step.", env.Message)

	w, env = s.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/step", map[string]string{"step": "music"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []wizard.Action{wizard.ActionSelectMusic, wizard.ActionSetStep}, decodeView(t, env).Actions)

	w, env = s.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/music", map[string]string{"music_id": "m5"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Midnight Chill", decodeView(t, env).MusicLabel)

	w, env = s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/captions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	v := decodeView(t, env)
	assert.True(t, v.Project.IsCaptionsGenerated)
	assert.Len(t, v.Project.Captions, 2)
}

func TestExportStream(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.createSession(t)
	s.upload(t, id, "a.mp4")

	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + id + "/export/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	w, _ := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/export", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	w, env := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/export", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Export has already started.", env.Message)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	last := 0
	for {
		var u ExportUpdate
		require.NoError(t, conn.ReadJSON(&u))
		assert.GreaterOrEqual(t, u.Progress, last)
		last = u.Progress
		if u.Done {
			break
		}
	}
	assert.Equal(t, export.Complete, last)
}

func TestDeleteSession(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.createSession(t)

	w, _ := s.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, s.sessions.Len())
}
