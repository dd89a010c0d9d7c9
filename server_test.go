package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xuri/excelize/v2"

	"github.com/gmllt/listboard/internal/board"
	"github.com/gmllt/listboard/internal/export"
	"github.com/gmllt/listboard/internal/session"
)

func newTestServer(t *testing.T, sink export.Sink) *httptest.Server {
	t.Helper()
	cfg := defaultConfig()
	cfg.StaticDir = t.TempDir()
	srv := httptest.NewServer(newRouter(&server{cfg: cfg, sessions: session.New(0), sink: sink}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status %d, want %d (%s)", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, body)
	}
}

func createSession(t *testing.T, base string) string {
	t.Helper()
	resp := do(t, "POST", base+"/api/sessions", nil)
	expectStatus(t, resp, http.StatusCreated)
	s := decode[sessionResponse](t, resp)
	if s.ID == "" || s.Board == nil || len(s.Board.Lists) != 0 {
		t.Fatalf("unexpected session %+v", s)
	}
	return base + "/api/sessions/" + s.ID
}

func act(t *testing.T, sess string, action string) *board.Board {
	t.Helper()
	resp := do(t, "POST", sess+"/actions", action)
	expectStatus(t, resp, http.StatusOK)
	return decode[*board.Board](t, resp)
}

func TestBoardLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := createSession(t, srv.URL)

	b := act(t, sess, `{"type":"add_list","title":"Todo"}`)
	if len(b.Lists) != 1 || b.Lists[0].Title != "Todo" || b.Lists[0].ID == "" {
		t.Fatalf("list not added: %+v", b.Lists)
	}
	listID := b.Lists[0].ID

	b = act(t, sess, `{"type":"add_card","list_id":"`+listID+`","title":"A"}`)
	b = act(t, sess, `{"type":"add_card","list_id":"`+listID+`","title":"B"}`)
	cards := b.Lists[0].Cards
	if len(cards) != 2 || cards[0].Title != "A" || cards[1].Title != "B" {
		t.Fatalf("cards not appended: %+v", cards)
	}
	first := cards[0].ID

	b = act(t, sess, `{"type":"enter_edit","list_id":"`+listID+`","card_id":"`+first+`"}`)
	if !b.IsEditing(listID, first) {
		t.Errorf("edit mode not entered: %+v", b.Editing)
	}
	b = act(t, sess, `{"type":"edit_card","list_id":"`+listID+`","card_id":"`+first+`","title":"A2"}`)
	if b.Editing != nil || b.Lists[0].Cards[0].Title != "A2" {
		t.Errorf("edit not committed: %+v %+v", b.Editing, b.Lists[0].Cards[0])
	}

	resp := do(t, "POST", sess+"/drag", board.Reorder{
		Source:      board.Location{ListID: listID, Index: 0},
		Destination: &board.Location{ListID: listID, Index: 1},
	})
	expectStatus(t, resp, http.StatusOK)
	b = decode[*board.Board](t, resp)
	if b.Lists[0].Cards[1].ID != first {
		t.Errorf("drag did not move the card: %+v", b.Lists[0].Cards)
	}

	b = act(t, sess, `{"type":"delete_card","list_id":"`+listID+`","card_id":"`+first+`"}`)
	if len(b.Lists[0].Cards) != 1 {
		t.Errorf("card not deleted: %+v", b.Lists[0].Cards)
	}

	resp = do(t, "GET", sess+"/board", nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[*board.Board](t, resp); !reflect.DeepEqual(got, b) {
		t.Errorf("stored board differs from the last response")
	}

	resp = do(t, "DELETE", sess, nil)
	expectStatus(t, resp, http.StatusNoContent)
	expectStatus(t, do(t, "GET", sess+"/board", nil), http.StatusNotFound)
}

func TestDragWithoutDestinationIsNoop(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := createSession(t, srv.URL)
	b := act(t, sess, `{"type":"add_list","title":"Todo"}`)
	before := act(t, sess, `{"type":"add_card","list_id":"`+b.Lists[0].ID+`","title":"A"}`)

	resp := do(t, "POST", sess+"/drag", `{"source":{"list_id":"`+b.Lists[0].ID+`","index":0}}`)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[*board.Board](t, resp); !reflect.DeepEqual(got, before) {
		t.Errorf("board changed: %+v", got)
	}
}

func TestUnknownIDsAreNoops(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := createSession(t, srv.URL)
	before := act(t, sess, `{"type":"add_list","title":"Todo"}`)

	for _, a := range []string{
		`{"type":"add_card","list_id":"missing","title":"A"}`,
		`{"type":"delete_card","list_id":"missing","card_id":"x"}`,
		`{"type":"edit_card","list_id":"missing","card_id":"x","title":"y"}`,
		`{"type":"add_list","title":""}`,
	} {
		if got := act(t, sess, a); !reflect.DeepEqual(got, before) {
			t.Errorf("%s changed the board", a)
		}
	}
}

func TestRequestErrors(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := createSession(t, srv.URL)

	expectStatus(t, do(t, "POST", sess+"/actions", `{"type":"delete_list"}`), http.StatusBadRequest)
	expectStatus(t, do(t, "POST", sess+"/actions", `{`), http.StatusBadRequest)
	expectStatus(t, do(t, "POST", sess+"/drag", `[]`), http.StatusBadRequest)
	expectStatus(t, do(t, "POST", sess+"/prompts", `{"kind":"nope"}`), http.StatusBadRequest)
	expectStatus(t, do(t, "POST", sess+"/prompts/nope", `{"text":"x"}`), http.StatusNotFound)
	expectStatus(t, do(t, "GET", sess+"/lists/nope/export", nil), http.StatusNotFound)

	missing := srv.URL + "/api/sessions/missing"
	expectStatus(t, do(t, "GET", missing+"/board", nil), http.StatusNotFound)
	expectStatus(t, do(t, "POST", missing+"/actions", `{"type":"exit_edit"}`), http.StatusNotFound)
	expectStatus(t, do(t, "DELETE", missing, nil), http.StatusNotFound)
	expectStatus(t, do(t, "GET", missing+"/ws", nil), http.StatusNotFound)
}

func TestPromptEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := createSession(t, srv.URL)

	resp := do(t, "POST", sess+"/prompts", `{"kind":"list_title"}`)
	expectStatus(t, resp, http.StatusCreated)
	p := decode[session.Prompt](t, resp)
	if p.Message != "Enter list title:" {
		t.Errorf("unexpected prompt %+v", p)
	}

	resp = do(t, "POST", sess+"/prompts/"+p.Token, `{"text":"Todo"}`)
	expectStatus(t, resp, http.StatusOK)
	b := decode[*board.Board](t, resp)
	if len(b.Lists) != 1 {
		t.Fatalf("list not added: %+v", b.Lists)
	}

	resp = do(t, "POST", sess+"/prompts", `{"kind":"card_title","list_id":"`+b.Lists[0].ID+`"}`)
	expectStatus(t, resp, http.StatusCreated)
	p = decode[session.Prompt](t, resp)

	resp = do(t, "POST", sess+"/prompts/"+p.Token, `{"cancelled":true}`)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[*board.Board](t, resp); len(got.Lists[0].Cards) != 0 {
		t.Errorf("cancelled prompt added a card")
	}
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	srv := newTestServer(t, export.DirSink{Dir: dir})
	sess := createSession(t, srv.URL)
	b := act(t, sess, `{"type":"add_list","title":"Todo"}`)
	listID := b.Lists[0].ID
	act(t, sess, `{"type":"add_card","list_id":"`+listID+`","card_id":"c1","title":"Buy milk"}`)

	resp := do(t, "GET", sess+"/lists/"+listID+"/export", nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != export.ContentType {
		t.Errorf("content type %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="list.xlsx"` {
		t.Errorf("content disposition %q", cd)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(export.DefaultSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	want := [][]string{{"id", "title"}, {"c1", "Buy milk"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows %v, want %v", rows, want)
	}

	archived, err := os.ReadFile(filepath.Join(dir, "list.xlsx"))
	if err != nil {
		t.Fatalf("export not archived: %v", err)
	}
	if !bytes.Equal(archived, data) {
		t.Errorf("archived copy differs from the download")
	}
}

func TestStaticFiles(t *testing.T) {
	cfg := defaultConfig()
	cfg.StaticDir = t.TempDir()
	if err := os.WriteFile(filepath.Join(cfg.StaticDir, "index.html"), []byte("<h1>lists</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(newRouter(&server{cfg: cfg, sessions: session.New(0)}))
	defer srv.Close()

	resp := do(t, "GET", srv.URL+"/", nil)
	expectStatus(t, resp, http.StatusOK)
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "lists") {
		t.Errorf("unexpected body %q", body)
	}
}

func TestWebsocketFeed(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := createSession(t, srv.URL)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(sess, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var b board.Board
	if err := conn.ReadJSON(&b); err != nil {
		t.Fatalf("reading initial board: %v", err)
	}
	if len(b.Lists) != 0 {
		t.Errorf("initial board should be empty")
	}

	act(t, sess, `{"type":"add_list","title":"Todo"}`)
	if err := conn.ReadJSON(&b); err != nil {
		t.Fatalf("reading update: %v", err)
	}
	if len(b.Lists) != 1 || b.Lists[0].Title != "Todo" {
		t.Errorf("unexpected update %+v", b.Lists)
	}

	expectStatus(t, do(t, "DELETE", sess, nil), http.StatusNoContent)
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close, got %v", err)
	}
}

func TestWebsocketRejectsForeignOrigin(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := createSession(t, srv.URL)
	wsURL := "ws" + strings.TrimPrefix(sess, "http") + "/ws"
	host := strings.TrimPrefix(srv.URL, "http://")

	for _, origin := range []string{"http://" + host + ".evil.example", "http://evil.example/" + host} {
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {origin}})
		if err == nil {
			conn.Close()
			t.Errorf("origin %s accepted", origin)
			continue
		}
		if resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Errorf("origin %s: expected 403, got %v (%v)", origin, resp, err)
		}
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {srv.URL}})
	if err != nil {
		t.Fatalf("same origin rejected: %v", err)
	}
	conn.Close()
}
