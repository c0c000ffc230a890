package panel

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"weasel/internal/echo"
	"weasel/internal/ime"
)

func dialPanel(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWebHelloAndBroadcast(t *testing.T) {
	web := NewWeb(nil, nil)
	srv := httptest.NewServer(web.Handler())
	defer srv.Close()
	defer web.Close()

	web.Update(sampleContext(), ime.Status{Composing: true})

	conn := dialPanel(t, srv)
	hello := readMessage(t, conn)
	if hello.Type != MessageHello || hello.ClientID == "" {
		t.Fatalf("unexpected hello: %+v", hello)
	}
	if hello.State.Context.Preedit.Str != "ni hao" {
		t.Errorf("hello carries state %+v", hello.State)
	}
	if hello.Style == nil {
		t.Error("hello without style")
	}
	if n := web.ClientCount(); n != 1 {
		t.Errorf("ClientCount = %d", n)
	}

	web.Show()
	msg := readMessage(t, conn)
	if msg.Type != MessageState || !msg.State.Visible {
		t.Errorf("show message = %+v", msg)
	}

	web.UpdateInputPosition(ime.Rect{Left: 1, Top: 2, Right: 3, Bottom: 4})
	msg = readMessage(t, conn)
	if msg.State.Position != (ime.Rect{Left: 1, Top: 2, Right: 3, Bottom: 4}) {
		t.Errorf("position message = %+v", msg.State.Position)
	}

	web.Hide()
	msg = readMessage(t, conn)
	if msg.State.Visible {
		t.Error("hide message still visible")
	}
}

func TestWebClientDisconnect(t *testing.T) {
	web := NewWeb(nil, nil)
	srv := httptest.NewServer(web.Handler())
	defer srv.Close()

	conn := dialPanel(t, srv)
	readMessage(t, conn)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for web.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client not removed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebStateEndpoint(t *testing.T) {
	web := NewWeb(nil, nil)
	web.Update(sampleContext(), ime.Status{ASCIIMode: true})

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	rec := httptest.NewRecorder()
	web.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var msg Message
	if err := json.NewDecoder(rec.Body).Decode(&msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !msg.State.Status.ASCIIMode {
		t.Errorf("state = %+v", msg.State)
	}
}

func TestWebSetStylePushes(t *testing.T) {
	web := NewWeb(nil, nil)
	srv := httptest.NewServer(web.Handler())
	defer srv.Close()
	defer web.Close()

	conn := dialPanel(t, srv)
	readMessage(t, conn)

	style := ime.DefaultStyle()
	style.FontFace = "Sarasa Gothic"
	web.SetStyle(style)

	msg := readMessage(t, conn)
	if msg.Type != MessageStyle || msg.Style == nil || msg.Style.FontFace != "Sarasa Gothic" {
		t.Errorf("style message = %+v", msg)
	}
	if web.Style().FontFace != "Sarasa Gothic" {
		t.Errorf("Style() = %+v", web.Style())
	}
}

func fetchState(t *testing.T, url string) Message {
	t.Helper()
	resp, err := http.Get(url + "/state")
	if err != nil {
		t.Errorf("get state: %v", err)
		return Message{}
	}
	defer resp.Body.Close()
	var msg Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		t.Errorf("decode state: %v", err)
	}
	return msg
}

// Style reloads run on the bridge's goroutine while HTTP handlers encode the
// style; run with -race.
func TestWebStyleReloadWhilePolled(t *testing.T) {
	shared := t.TempDir()
	yaml := "style:\n  font_face: Noto Serif CJK\n  font_point: 18\n  color_scheme: dark\n" +
		"preset_color_schemes:\n  dark:\n    back_color: 0x202020\n    text_color: 0xeeeeee\n"
	if err := os.WriteFile(filepath.Join(shared, "weasel.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	web := NewWeb(nil, nil)
	srv := httptest.NewServer(web.Handler())
	defer srv.Close()
	defer web.Close()

	b := ime.New(ime.Options{
		Engine: echo.New(echo.Options{}),
		UI:     web,
		Traits: ime.Traits{SharedDataDir: shared, UserDataDir: t.TempDir()},
	})
	b.Initialize()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			fetchState(t, srv.URL)
		}
	}()
	for i := 0; i < 200; i++ {
		b.StartMaintenance()
		b.EndMaintenance()
	}
	wg.Wait()

	msg := fetchState(t, srv.URL)
	if msg.Style == nil || msg.Style.FontFace != "Noto Serif CJK" || msg.Style.FontPoint != 18 {
		t.Errorf("served style = %+v", msg.Style)
	}
	if msg.Style != nil && msg.Style.BackColor != ime.Color(0x202020) {
		t.Errorf("back color = %#x", msg.Style.BackColor)
	}
}
