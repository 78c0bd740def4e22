package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/petitor/internal/models"
)

type fakeBot struct {
	status   models.BotStatus
	startErr error
	stopErr  error
	last     models.RunSettings
	calls    []string
}

func (f *fakeBot) Start(settings models.RunSettings) error {
	f.calls = append(f.calls, "start")
	f.last = settings
	return f.startErr
}
func (f *fakeBot) Stop() error   { f.calls = append(f.calls, "stop"); return f.stopErr }
func (f *fakeBot) Pause() error  { f.calls = append(f.calls, "pause"); return nil }
func (f *fakeBot) Resume() error { f.calls = append(f.calls, "resume"); return nil }
func (f *fakeBot) Status() models.BotStatus {
	return f.status
}

func TestStartHandlerDecodesSettings(t *testing.T) {
	bot := &fakeBot{}
	h := NewBotHandler(bot, nil, arbor.NewLogger())

	body := `{"queries":["golang developer"],"apply_limit":5}`
	req := httptest.NewRequest("POST", "/api/bot/start", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.StartHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if bot.last.ApplyLimit != 5 || len(bot.last.Queries) != 1 {
		t.Fatalf("settings not decoded: %+v", bot.last)
	}
}

func TestStartHandlerEmptyBodyUsesDefaults(t *testing.T) {
	bot := &fakeBot{}
	h := NewBotHandler(bot, nil, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/bot/start", nil)
	rec := httptest.NewRecorder()
	h.StartHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(bot.calls) != 1 || bot.calls[0] != "start" {
		t.Fatalf("expected start call, got %v", bot.calls)
	}
}

func TestStartHandlerConflictWhenRunning(t *testing.T) {
	bot := &fakeBot{startErr: fmt.Errorf("cannot start from state applying")}
	h := NewBotHandler(bot, nil, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/bot/start", nil)
	rec := httptest.NewRecorder()
	h.StartHandler(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestStartHandlerRejectsBadJSON(t *testing.T) {
	bot := &fakeBot{}
	h := NewBotHandler(bot, nil, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/bot/start", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.StartHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(bot.calls) != 0 {
		t.Fatal("bot must not be started on a bad request")
	}
}

func TestStartHandlerRequiresPOST(t *testing.T) {
	h := NewBotHandler(&fakeBot{}, nil, arbor.NewLogger())
	req := httptest.NewRequest("GET", "/api/bot/start", nil)
	rec := httptest.NewRecorder()
	h.StartHandler(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestStatusHandlerReturnsSnapshot(t *testing.T) {
	bot := &fakeBot{status: models.BotStatus{State: models.BotStateApplying, Applied: 3}}
	h := NewBotHandler(bot, nil, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/bot/status", nil)
	rec := httptest.NewRecorder()
	h.StatusHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response struct {
		Bot models.BotStatus `json:"bot"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if response.Bot.State != models.BotStateApplying || response.Bot.Applied != 3 {
		t.Fatalf("unexpected status: %+v", response.Bot)
	}
}

func TestStopPauseResumeHandlers(t *testing.T) {
	bot := &fakeBot{}
	h := NewBotHandler(bot, nil, arbor.NewLogger())

	for _, tc := range []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"stop", h.StopHandler},
		{"pause", h.PauseHandler},
		{"resume", h.ResumeHandler},
	} {
		req := httptest.NewRequest("POST", "/api/bot/"+tc.name, nil)
		rec := httptest.NewRecorder()
		tc.handler(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.name, rec.Code)
		}
	}
	if len(bot.calls) != 3 {
		t.Fatalf("expected 3 calls, got %v", bot.calls)
	}
}
