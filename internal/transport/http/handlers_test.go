package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"quizroom-service/internal/app"
	"quizroom-service/internal/infra/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewStore()
	quizzes := app.NewQuizService(store, store)
	rooms := app.NewRoomService(store, store)
	ledger := app.NewLedger(store)

	mux := http.NewServeMux()
	NewHandler(quizzes, rooms, ledger, SyncConfig{}).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// call sends a JSON request and decodes the JSON response into a generic map.
func call(t *testing.T, method, url, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, decoded
}

// openGame drives the authoring and lobby endpoints up to a started room and
// returns (roomID, roomCode, hostToken, playerID, playerToken, questionIDs).
func openGame(t *testing.T, srv *httptest.Server) (string, string, string, string, string, []string) {
	t.Helper()

	status, quiz := call(t, http.MethodPost, srv.URL+"/quizzes", "", map[string]any{
		"title": "Capitals", "quizType": "qa",
	})
	if status != http.StatusCreated {
		t.Fatalf("create quiz: status %d, body %v", status, quiz)
	}
	quizID := quiz["id"].(string)

	status, put := call(t, http.MethodPut, srv.URL+"/quizzes/"+quizID+"/questions", "", map[string]any{
		"questions": []map[string]string{
			{"text": "Capital of France?", "answer": "Paris"},
			{"text": "Capital of Italy?", "answer": "Rome"},
		},
	})
	if status != http.StatusOK {
		t.Fatalf("replace questions: status %d, body %v", status, put)
	}
	var questionIDs []string
	for _, q := range put["questions"].([]any) {
		questionIDs = append(questionIDs, q.(map[string]any)["id"].(string))
	}

	status, created := call(t, http.MethodPost, srv.URL+"/rooms", "", map[string]any{"quizId": quizID})
	if status != http.StatusCreated {
		t.Fatalf("create room: status %d, body %v", status, created)
	}
	hostToken := created["hostToken"].(string)
	room := created["room"].(map[string]any)
	roomID := room["id"].(string)
	code := room["code"].(string)

	status, joined := call(t, http.MethodPost, srv.URL+"/rooms/"+code+"/join", "", map[string]any{"nickname": "alice"})
	if status != http.StatusCreated {
		t.Fatalf("join: status %d, body %v", status, joined)
	}
	playerToken := joined["playerToken"].(string)
	playerID := joined["player"].(map[string]any)["id"].(string)

	status, started := call(t, http.MethodPost, srv.URL+"/rooms/"+roomID+"/start", hostToken, nil)
	if status != http.StatusOK {
		t.Fatalf("start: status %d, body %v", status, started)
	}
	return roomID, code, hostToken, playerID, playerToken, questionIDs
}

func TestGameRoundOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	roomID, code, hostToken, playerID, playerToken, questions := openGame(t, srv)

	// tokens never leak through the read endpoints
	status, room := call(t, http.MethodGet, srv.URL+"/rooms/"+code, "", nil)
	if status != http.StatusOK {
		t.Fatalf("room by code: status %d", status)
	}
	if _, leaked := room["hostToken"]; leaked {
		t.Fatal("host token leaked through GET /rooms/{code}")
	}
	if room["currentQuestionId"] != questions[0] {
		t.Fatalf("cursor = %v, want %s", room["currentQuestionId"], questions[0])
	}

	submitBody := map[string]any{
		"roomId": roomID, "questionId": questions[0], "playerId": playerID, "answerText": "Paris",
	}
	status, first := call(t, http.MethodPost, srv.URL+"/submissions", playerToken, submitBody)
	if status != http.StatusCreated {
		t.Fatalf("submit: status %d, body %v", status, first)
	}

	// the duplicate reconciles to the stored row and reports 200, not 201
	status, dup := call(t, http.MethodPost, srv.URL+"/submissions", playerToken, map[string]any{
		"roomId": roomID, "questionId": questions[0], "playerId": playerID, "answerText": "London",
	})
	if status != http.StatusOK {
		t.Fatalf("duplicate submit: status %d, body %v", status, dup)
	}
	if dup["alreadySubmitted"] != true {
		t.Fatalf("duplicate not flagged: %v", dup)
	}
	sub := dup["submission"].(map[string]any)
	if sub["answerText"] != "Paris" {
		t.Fatalf("duplicate overwrote the ledger: %v", sub)
	}

	// host evaluates through the queue
	status, snap := call(t, http.MethodGet, srv.URL+"/rooms/"+roomID+"/snapshot", hostToken, nil)
	if status != http.StatusOK {
		t.Fatalf("snapshot: status %d", status)
	}
	queue := snap["submissions"].([]any)
	if len(queue) != 1 {
		t.Fatalf("queue = %v", queue)
	}
	subID := queue[0].(map[string]any)["id"].(string)
	status, verdict := call(t, http.MethodPost, srv.URL+"/submissions/"+subID+"/evaluate", hostToken, map[string]any{"correct": true})
	if status != http.StatusOK {
		t.Fatalf("evaluate: status %d, body %v", status, verdict)
	}
	if verdict["isCorrect"] != true {
		t.Fatalf("verdict = %v", verdict)
	}

	status, board := call(t, http.MethodGet, srv.URL+"/rooms/"+roomID+"/scoreboard", "", nil)
	if status != http.StatusOK {
		t.Fatalf("scoreboard: status %d", status)
	}
	entries := board["entries"].([]any)
	if len(entries) != 1 || entries[0].(map[string]any)["score"] != float64(1) {
		t.Fatalf("entries = %v", entries)
	}

	// advancing over the second, unanswered question needs confirmation
	if _, err := advance(srv, roomID, hostToken, true); err != nil {
		t.Fatalf("advance to question 2: %v", err)
	}
	status, blocked := call(t, http.MethodPost, srv.URL+"/rooms/"+roomID+"/advance", hostToken, map[string]any{"confirmed": false})
	if status != http.StatusConflict {
		t.Fatalf("unconfirmed advance: status %d, body %v", status, blocked)
	}
	if blocked["code"] != "confirm_required" {
		t.Fatalf("code = %v, want confirm_required", blocked["code"])
	}
	finished, err := advance(srv, roomID, hostToken, true)
	if err != nil {
		t.Fatalf("confirmed advance: %v", err)
	}
	if finished["status"] != "finished" {
		t.Fatalf("room status = %v, want finished", finished["status"])
	}
}

func advance(srv *httptest.Server, roomID, hostToken string, confirmed bool) (map[string]any, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(map[string]any{"confirmed": confirmed}); err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/rooms/"+roomID+"/advance", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+hostToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %v", resp.StatusCode, body)
	}
	return body, nil
}

func TestErrorStatusMapping(t *testing.T) {
	srv := newTestServer(t)
	roomID, _, hostToken, _, _, _ := openGame(t, srv)

	// unknown room code
	if status, _ := call(t, http.MethodGet, srv.URL+"/rooms/ZZZZ99", "", nil); status != http.StatusNotFound {
		t.Fatalf("unknown code: status %d, want 404", status)
	}

	// validation failure
	status, body := call(t, http.MethodPost, srv.URL+"/quizzes", "", map[string]any{"title": "  ", "quizType": "qa"})
	if status != http.StatusBadRequest || body["code"] != "validation" {
		t.Fatalf("blank title: status %d, body %v", status, body)
	}

	// lifecycle precondition: a running room cannot start again
	status, body = call(t, http.MethodPost, srv.URL+"/rooms/"+roomID+"/start", hostToken, nil)
	if status != http.StatusConflict || body["code"] != "precondition" {
		t.Fatalf("double start: status %d, body %v", status, body)
	}

	// wrong host token
	if status, _ := call(t, http.MethodPost, srv.URL+"/rooms/"+roomID+"/finish", "not-the-token", nil); status != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d, want 401", status)
	}

	// malformed body
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/quizzes", bytes.NewBufferString("{broken"))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("broken JSON: status %d, want 400", resp.StatusCode)
	}
}

func TestSyncConfigAdvertisesDefaults(t *testing.T) {
	srv := newTestServer(t)

	status, body := call(t, http.MethodGet, srv.URL+"/sync", "", nil)
	if status != http.StatusOK {
		t.Fatalf("sync: status %d", status)
	}
	if body["hostIntervalMs"] != float64(3000) || body["playerIntervalMs"] != float64(2000) {
		t.Fatalf("intervals = %v", body)
	}
}

func TestGameModeListing(t *testing.T) {
	srv := newTestServer(t)

	status, body := call(t, http.MethodGet, srv.URL+"/gamemodes", "", nil)
	if status != http.StatusOK {
		t.Fatalf("gamemodes: status %d", status)
	}
	modes := body["modes"].([]any)
	if len(modes) != 4 {
		t.Fatalf("modes = %v, want 4 entries", modes)
	}
	first := modes[0].(map[string]any)
	if first["type"] != "blind_top5" || first["label"] == "" {
		t.Fatalf("unexpected first mode: %v", first)
	}
}

func TestSubmissionRequiresPlayerToken(t *testing.T) {
	srv := newTestServer(t)
	roomID, _, _, playerID, _, questions := openGame(t, srv)

	status, body := call(t, http.MethodPost, srv.URL+"/submissions", "forged", map[string]any{
		"roomId": roomID, "questionId": questions[0], "playerId": playerID, "answerText": "Paris",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("forged token: status %d, body %v", status, body)
	}
}
