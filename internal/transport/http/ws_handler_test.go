package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"lecture-quiz-service/internal/app"
	"lecture-quiz-service/internal/domain"
	"lecture-quiz-service/internal/infra/memory"
	"lecture-quiz-service/internal/logger"
)

func TestWebSocketPracticeFlow(t *testing.T) {
	conn := dialPractice(t)

	send(t, conn, "start", map[string]any{"setId": "set-1"})
	_, state := readNext(conn, t, "state")
	if state["total"] != float64(2) || state["canCheck"] != false {
		t.Fatalf("unexpected start state: %v", state)
	}

	send(t, conn, "answer", map[string]any{"answer": "B"})
	_, state = readNext(conn, t, "state")
	if state["canCheck"] != true {
		t.Fatalf("expected check enabled after answering, got %v", state)
	}

	send(t, conn, "check", nil)
	_, checked := readNext(conn, t, "checked")
	result, _ := checked["result"].(map[string]any)
	if result["isCorrect"] != true {
		t.Fatalf("expected correct result, got %v", checked)
	}

	send(t, conn, "folders", nil)
	typ, _ := readNext(conn, t, "")
	if typ != "folders" {
		t.Fatalf("expected folders, got %s", typ)
	}

	send(t, conn, "next", nil)
	readNext(conn, t, "state")
	send(t, conn, "answer", map[string]any{"answer": "B"})
	readNext(conn, t, "state")
	send(t, conn, "check", nil)
	readNext(conn, t, "checked")

	send(t, conn, "next", nil)
	_, state = readNext(conn, t, "state")
	summary, _ := state["summary"].(map[string]any)
	if state["complete"] != true || summary["correct"] != float64(1) {
		t.Fatalf("expected summary with one correct answer, got %v", state)
	}

	send(t, conn, "retryWrong", nil)
	_, state = readNext(conn, t, "state")
	if state["mode"] != string(app.ModeRetrySubset) || state["total"] != float64(1) {
		t.Fatalf("expected retry subset of one, got %v", state)
	}

	send(t, conn, "review", map[string]any{"ref": map[string]any{"setId": "set-1", "index": 0}})
	_, review := readNext(conn, t, "review")
	if review["ref"] == nil {
		t.Fatalf("expected review payload, got %v", review)
	}

	send(t, conn, "bogus", nil)
	readNext(conn, t, "error")
}

func TestWebSocketNothingToRetry(t *testing.T) {
	conn := dialPractice(t)

	send(t, conn, "retryWrong", nil)
	_, payload := readNext(conn, t, "error")
	if payload["message"] != domain.ErrSessionNotFound.Error() {
		t.Fatalf("expected session not found before start, got %v", payload)
	}

	send(t, conn, "start", map[string]any{"setId": "set-1"})
	readNext(conn, t, "state")
	send(t, conn, "retryWrong", nil)
	readNext(conn, t, "nothingToRetry")
}

func TestWebSocketRequiresUser(t *testing.T) {
	server := httptest.NewServer(newMux())
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func dialPractice(t *testing.T) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(newMux())
	t.Cleanup(server.Close)

	u := "ws" + server.URL[len("http"):] + "/ws?userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func newMux() *http.ServeMux {
	store := memory.NewSessionStore()
	favorites := memory.NewFavoriteService()
	sets := memory.NewQuestionSetRepository(memory.NewStaticPayloadLoader(samplePayloads()), time.Minute)
	service := app.NewPracticeService(store, sets, favorites, logger.Nop())
	wsHandler := NewWSHandler(service, logger.Nop())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	return mux
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string `json:"type"`
		Payload any    `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	payload, _ := msg.Payload.(map[string]any)
	return msg.Type, payload
}

func samplePayloads() map[string]domain.Payload {
	return map[string]domain.Payload{
		"set-1": {
			ID: "set-1",
			Raw: []byte(`{"questions":[
				{"question_text":"2 + 2 = ?","options":["3","4","5"],"correct_answer":2},
				{"question_text":"Is the sun cold?","options":["yes","no"],"correct_answer":1}
			]}`),
		},
	}
}
