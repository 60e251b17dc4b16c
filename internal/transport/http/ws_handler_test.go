package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketSubmitFlow(t *testing.T) {
	router, store := newTestRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?userId=1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readNext(conn, t, "ready")

	submit := map[string]any{
		"type": "submit_lesson",
		"payload": map[string]any{
			"lesson_id":  1,
			"attempt_id": attemptID,
			"answers": []map[string]any{
				{"problem_id": 1, "option_id": 2},
			},
		},
	}
	if err := conn.WriteJSON(submit); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	_, payload := readNext(conn, t, "submission_result")
	if payload["xp_gained"] != float64(10) {
		t.Fatalf("expected xp_gained 10, got %v", payload["xp_gained"])
	}

	// Same attempt again replays without a second write.
	if err := conn.WriteJSON(submit); err != nil {
		t.Fatalf("write replay: %v", err)
	}
	_, replay := readNext(conn, t, "submission_result")
	if replay["total_xp"] != float64(10) {
		t.Fatalf("expected replayed total_xp 10, got %v", replay["total_xp"])
	}
	if store.SubmissionCount() != 1 {
		t.Fatalf("expected 1 stored submission, got %d", store.SubmissionCount())
	}

	if err := conn.WriteJSON(map[string]any{"type": "submit_practice", "payload": map[string]any{"attempt_id": "x"}}); err != nil {
		t.Fatalf("write invalid: %v", err)
	}
	_, errPayload := readNext(conn, t, "error")
	if errPayload["status"] != float64(422) {
		t.Fatalf("expected status 422, got %v", errPayload["status"])
	}

	if err := conn.WriteJSON(map[string]any{"type": "practice"}); err != nil {
		t.Fatalf("write practice: %v", err)
	}
	readNext(conn, t, "practice")

	if err := conn.WriteJSON(map[string]any{"type": "bogus"}); err != nil {
		t.Fatalf("write bogus: %v", err)
	}
	readNext(conn, t, "error")
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
