//go:build !windows
// +build !windows

package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m1k1o/go-rtpcast/internal/config"
	"github.com/m1k1o/go-rtpcast/pkg/broadcast"
)

const encoderScript = `#!/bin/sh
echo "encoder ready"
trap 'exit 255' INT
while true; do sleep 1; done
`

const ffprobeScript = `#!/bin/sh
echo '{"streams":[{"codec_name":"mp3","codec_type":"audio","sample_rate":"44100","channels":2}],"format":{"format_name":"mp3","duration":"1.5"}}'
`

type fakeDevices struct {
	names []string
	err   error
}

func (f *fakeDevices) List(ctx context.Context) ([]string, error) {
	return f.names, f.err
}

type testEnv struct {
	api     *ApiManagerCtx
	config  config.Broadcast
	router  *chi.Mux
	manager *broadcast.ManagerCtx
	devices *fakeDevices
	audio   string
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0755))
	return path
}

func newTestEnv(t *testing.T, rateLimit int) *testEnv {
	t.Helper()

	dir := t.TempDir()
	mediaDir := filepath.Join(dir, "media")
	require.NoError(t, os.MkdirAll(mediaDir, 0755))

	audio := filepath.Join(mediaDir, "song.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("ID3"), 0644))

	cfg := &config.Broadcast{
		FFmpegBinary:  writeScript(t, dir, "ffmpeg", encoderScript),
		FFprobeBinary: writeScript(t, dir, "ffprobe", ffprobeScript),
		MediaDir:      mediaDir,
		StopTimeout:   2 * time.Second,
	}

	manager := broadcast.New(cfg.Options())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, manager.Shutdown(ctx))
	})

	devices := &fakeDevices{names: []string{"Mic1", "Line In"}}

	api := New(*cfg, rateLimit, manager, devices)

	router := chi.NewRouter()
	api.Mount(router)

	return &testEnv{
		api:     api,
		config:  *cfg,
		router:  router,
		manager: manager,
		devices: devices,
		audio:   audio,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.1:1234"

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestPing(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(t, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestBroadcastStatusIdle(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(t, http.MethodGet, "/api/broadcast", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status broadcastStatus
	decode(t, rec, &status)
	assert.Equal(t, broadcast.StatusIdle, status.Status)
	assert.Nil(t, status.Session)
}

func TestBroadcastStartStop(t *testing.T) {
	env := newTestEnv(t, 0)
	l := env.manager.Subscribe()
	defer env.manager.Unsubscribe(l)

	rec := env.do(t, http.MethodPost, "/api/broadcast/start",
		`{"address":"127.0.0.1","port":4455,"filePath":"`+env.audio+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var started result
	decode(t, rec, &started)
	assert.Equal(t, statusSuccess, started.Status)
	require.NotNil(t, started.Session)
	assert.Equal(t, "udp://127.0.0.1:4455", started.Session.Target)

	rec = env.do(t, http.MethodGet, "/api/broadcast", "")
	var status broadcastStatus
	decode(t, rec, &status)
	assert.Equal(t, broadcast.StatusRunning, status.Status)
	require.NotNil(t, status.Session)
	assert.Equal(t, started.Session.ID, status.Session.ID)

	// traps are installed once the script printed
	waitEvent(t, l, func(e broadcast.Event) bool {
		return e.Type == broadcast.EventOutput && e.Line.Text == "encoder ready"
	})

	rec = env.do(t, http.MethodPost, "/api/broadcast/stop", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var stopped result
	decode(t, rec, &stopped)
	assert.Equal(t, statusSuccess, stopped.Status)
	assert.Empty(t, stopped.Message)

	exited := waitEvent(t, l, func(e broadcast.Event) bool {
		return e.Type == broadcast.EventExited
	})
	assert.Equal(t, broadcast.ExitUserStopped, exited.Exit.Reason)

	// second stop is informational
	rec = env.do(t, http.MethodPost, "/api/broadcast/stop", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var again result
	decode(t, rec, &again)
	assert.Equal(t, statusSuccess, again.Status)
	assert.Equal(t, broadcast.ErrNoActiveSession.Error(), again.Message)
}

func TestBroadcastStartInvalid(t *testing.T) {
	env := newTestEnv(t, 0)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"bad json", `{"port":`, http.StatusBadRequest},
		{"port out of range", `{"address":"127.0.0.1","port":70000,"filePath":"` + env.audio + `"}`, http.StatusBadRequest},
		{"missing address", `{"port":4455,"filePath":"` + env.audio + `"}`, http.StatusBadRequest},
		{"missing file", `{"address":"127.0.0.1","port":4455,"filePath":"/nonexistent.wav"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/broadcast/start", tt.body)
			assert.Equal(t, tt.code, rec.Code)

			var res result
			decode(t, rec, &res)
			assert.Equal(t, statusError, res.Status)
			assert.NotEmpty(t, res.Message)
		})
	}

	assert.Equal(t, broadcast.StatusIdle, env.manager.Status())
}

func TestBroadcastSpawnFailure(t *testing.T) {
	env := newTestEnv(t, 0)
	env.manager.SetOptions(broadcast.Options{
		FFmpegBinary: filepath.Join(t.TempDir(), "missing-ffmpeg"),
	})

	rec := env.do(t, http.MethodPost, "/api/broadcast/start",
		`{"address":"127.0.0.1","port":4455,"filePath":"`+env.audio+`"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var res result
	decode(t, rec, &res)
	assert.Equal(t, statusError, res.Status)
}

func TestBroadcastEvents(t *testing.T) {
	env := newTestEnv(t, 0)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/broadcast/events", nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// headers are flushed after the subscription exists
	_, err = env.manager.Start(context.Background(), broadcast.Config{
		Address:  "127.0.0.1",
		Port:     4455,
		FilePath: env.audio,
	})
	require.NoError(t, err)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "event stream closed")
			if line == "event:started" {
				data := <-lines
				assert.True(t, strings.HasPrefix(data, "data:{"), data)
				return
			}
		case <-timeout:
			t.Fatal("started event not received")
		}
	}
}

func TestListDevices(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(t, http.MethodGet, "/api/devices", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var names []string
	decode(t, rec, &names)
	assert.Equal(t, []string{"Mic1", "Line In"}, names)

	env.devices.names = []string{}
	rec = env.do(t, http.MethodGet, "/api/devices", "")
	assert.Equal(t, "[]\n", rec.Body.String())

	env.devices.err = errors.New("exec: \"ffmpeg\": executable file not found in $PATH")
	rec = env.do(t, http.MethodGet, "/api/devices", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var res result
	decode(t, rec, &res)
	assert.Equal(t, statusError, res.Status)
}

func TestListFiles(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(t, http.MethodGet, "/api/files", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var files []struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	}
	decode(t, rec, &files)
	require.Len(t, files, 1)
	assert.Equal(t, "song.mp3", files[0].Name)
	assert.Equal(t, int64(3), files[0].Size)
}

func TestSelectFile(t *testing.T) {
	env := newTestEnv(t, 0)

	tests := []struct {
		name     string
		body     string
		code     int
		wantPath *string
	}{
		{name: "selected", body: `{"name":"song.mp3"}`, code: http.StatusOK, wantPath: &env.audio},
		{name: "canceled", body: `{"name":""}`, code: http.StatusOK},
		{name: "traversal", body: `{"name":"../secret.mp3"}`, code: http.StatusBadRequest},
		{name: "unsupported", body: `{"name":"song.txt"}`, code: http.StatusBadRequest},
		{name: "missing", body: `{"name":"other.mp3"}`, code: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/files/select", tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())

			if tt.code != http.StatusOK {
				return
			}

			var reply selectReply
			decode(t, rec, &reply)
			assert.Equal(t, tt.wantPath, reply.Path)
		})
	}

	// a canceled selection is an explicit null
	rec := env.do(t, http.MethodPost, "/api/files/select", `{"name":""}`)
	assert.JSONEq(t, `{"path":null}`, rec.Body.String())
}

func TestProbeFile(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(t, http.MethodGet, "/api/files/probe?name=song.mp3", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var probe struct {
		FormatName []string `json:"formatName"`
		Audio      []struct {
			Codec      string `json:"codec"`
			SampleRate int    `json:"sampleRate"`
		} `json:"audio"`
	}
	decode(t, rec, &probe)
	assert.Equal(t, []string{"mp3"}, probe.FormatName)
	require.Len(t, probe.Audio, 1)
	assert.Equal(t, 44100, probe.Audio[0].SampleRate)

	rec = env.do(t, http.MethodGet, "/api/files/probe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfigureSwapsFilesAndDevices(t *testing.T) {
	env := newTestEnv(t, 0)

	mediaDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(mediaDir, "jingle.wav"), []byte("RIFF"), 0644))

	cfg := env.config
	cfg.MediaDir = mediaDir
	env.api.Configure(cfg, &fakeDevices{names: []string{"USB Audio"}})

	rec := env.do(t, http.MethodGet, "/api/files", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var files []struct {
		Name string `json:"name"`
	}
	decode(t, rec, &files)
	require.Len(t, files, 1)
	assert.Equal(t, "jingle.wav", files[0].Name)

	rec = env.do(t, http.MethodPost, "/api/files/select", `{"name":"song.mp3"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/devices", "")
	var names []string
	decode(t, rec, &names)
	assert.Equal(t, []string{"USB Audio"}, names)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, 2)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/broadcast", "").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/broadcast", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(t, http.MethodGet, "/api/broadcast", "").Code)

	// health check is not limited
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/ping", "").Code)
}

func waitEvent(t *testing.T, l *broadcast.Listener, match func(broadcast.Event) bool) broadcast.Event {
	t.Helper()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case event := <-l.C:
			if match(event) {
				return event
			}
		case <-timeout:
			t.Fatal("event not received in time")
			return broadcast.Event{}
		}
	}
}
