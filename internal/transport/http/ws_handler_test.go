package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"act-academy/internal/app"
	"act-academy/internal/domain"
	"act-academy/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketQuizFlow(t *testing.T) {
	server, _ := newTestServer(t)

	conn := dial(t, server, "quizId=quiz-1&userId=u1&name=Alice")
	defer conn.Close()

	snap := readSnapshot(t, conn)
	if snap.State != "in_progress" || snap.Total != 2 || snap.Question == nil || snap.Question.ID != "q1" {
		t.Fatalf("unexpected initial snapshot %+v", snap)
	}

	send(t, conn, "select", map[string]any{"optionIndex": 1})
	send(t, conn, "next", nil)
	send(t, conn, "select", map[string]any{"questionId": "q2", "optionIndex": 0})
	send(t, conn, "submit", nil)

	var result app.Result
	for {
		typ, payload := readNext(t, conn)
		if typ == "result" {
			if err := json.Unmarshal(payload, &result); err != nil {
				t.Fatalf("decode result: %v", err)
			}
			break
		}
		if typ == "error" {
			t.Fatalf("unexpected error %s", payload)
		}
	}
	if result.Attempt.CorrectCount != 1 || result.Attempt.Total != 2 || result.Attempt.Percent != 50 {
		t.Fatalf("unexpected result %+v", result.Attempt)
	}
	if result.Source != app.SourceClient || len(result.Review) != 2 {
		t.Fatalf("expected fallback review, got %+v", result)
	}
}

func TestWebSocketReportsUnknownQuiz(t *testing.T) {
	server, _ := newTestServer(t)

	conn := dial(t, server, "quizId=missing&userId=u1")
	defer conn.Close()

	snap := readSnapshot(t, conn)
	if snap.State != "not_found" {
		t.Fatalf("expected not_found snapshot, got %s", snap.State)
	}
	typ, payload := readNext(t, conn)
	var errMsg errorPayload
	_ = json.Unmarshal(payload, &errMsg)
	if typ != "error" || errMsg.Kind != "not_found" {
		t.Fatalf("expected not_found error, got %s %+v", typ, errMsg)
	}
}

func TestWebSocketReconnectResumesSession(t *testing.T) {
	server, _ := newTestServer(t)

	first := dial(t, server, "quizId=quiz-1&userId=u1")
	readSnapshot(t, first)
	send(t, first, "select", map[string]any{"optionIndex": 1})
	for {
		if snap := readSnapshot(t, first); snap.Answers["q1"] == 1 {
			break
		}
	}
	_ = first.Close()

	second := dial(t, server, "quizId=quiz-1&userId=u1")
	defer second.Close()
	if snap := readSnapshot(t, second); snap.Answers["q1"] != 1 {
		t.Fatalf("expected the running attempt to be resumed, got %+v", snap.Answers)
	}
}

func TestWebSocketRejectsMissingParams(t *testing.T) {
	server, _ := newTestServer(t)
	resp, err := http.Get(server.URL + "/ws?quizId=quiz-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestErrorKindFollowsTaxonomy(t *testing.T) {
	cases := map[error]string{
		domain.ErrAuthExpired:    "auth_expired",
		domain.ErrMaintenance:    "maintenance",
		domain.ErrSubmitInFlight: "submit_in_flight",
		domain.ErrSessionClosed:  "invalid_state",
	}
	for err, want := range cases {
		if got := errorKind(err); got != want {
			t.Fatalf("errorKind(%v) = %q, want %q", err, got, want)
		}
	}
}

type nullSubmitter struct{}

func (nullSubmitter) SubmitAttempt(context.Context, string, map[string]int) (domain.AttemptScore, error) {
	return domain.AttemptScore{AttemptID: "attempt-1"}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *app.QuizService) {
	t.Helper()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	service := app.NewQuizService(quizRepo, nullSubmitter{}, memory.NewDraftStore(time.Hour), memory.NewAttemptHistory())
	service.UseSessions(memory.NewSessionStore())
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		wsHandler.Close()
	})
	return server, service
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

type wireSnapshot struct {
	State    string         `json:"state"`
	Total    int            `json:"total"`
	Answers  map[string]int `json:"answers"`
	Question *struct {
		ID string `json:"id"`
	} `json:"question"`
}

func readSnapshot(t *testing.T, conn *websocket.Conn) wireSnapshot {
	t.Helper()
	for {
		typ, payload := readNext(t, conn)
		if typ != "snapshot" {
			continue
		}
		var snap wireSnapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		return snap
	}
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:                  "quiz-1",
			Title:               "Arithmetic",
			TimeLimitMinutes:    5,
			PassingScorePercent: 50,
			Questions: []domain.Question{
				{ID: "q1", Prompt: "What is 2 + 2?", Type: domain.QuestionTypeMultipleChoice, Options: []string{"3", "4", "5"}, CorrectIndex: 1},
				{ID: "q2", Prompt: "What is 3 + 3?", Type: domain.QuestionTypeMultipleChoice, Options: []string{"5", "6"}, CorrectIndex: 1},
			},
		},
	}
}
