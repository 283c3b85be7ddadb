package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dshills/appwiki/internal/collab"
	"github.com/dshills/appwiki/internal/engine/buffer"
	"github.com/dshills/appwiki/internal/engine/patch"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newRelay(t *testing.T) (*Server, *collab.WebsocketTransport) {
	t.Helper()
	s := New()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	tr, err := collab.NewWebsocketTransport(srv.URL)
	if err != nil {
		t.Fatalf("NewWebsocketTransport: %v", err)
	}
	return s, tr
}

func TestRelayForwardsWithinRoom(t *testing.T) {
	ctx := context.Background()
	s, tr := newRelay(t)
	name := collab.ChannelName("team retro")

	a, err := tr.Open(ctx, name)
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	defer a.Close()
	b, err := tr.Open(ctx, name)
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	defer b.Close()
	other, err := tr.Open(ctx, collab.ChannelName("elsewhere"))
	if err != nil {
		t.Fatalf("open other: %v", err)
	}
	defer other.Close()

	waitFor(t, "joins", func() bool {
		rooms := s.Rooms()
		return rooms[name] == 2 && rooms[collab.ChannelName("elsewhere")] == 1
	})

	sent := collab.Op{Site: "a", Seq: 1, Kind: collab.OpInsert, Pos: buffer.Point{Line: 2, Column: 1}, Text: "hi"}
	if err := a.Send(ctx, sent); err != nil {
		t.Fatalf("send: %v", err)
	}

	got, err := b.Recv(ctx)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if got != sent {
		t.Errorf("received %+v, want %+v", got, sent)
	}
}

func TestRelayLeave(t *testing.T) {
	ctx := context.Background()
	s, tr := newRelay(t)
	name := collab.ChannelName("r")

	ch, err := tr.Open(ctx, name)
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, "join", func() bool { return s.Rooms()[name] == 1 })

	ch.Close()
	waitFor(t, "leave", func() bool { return len(s.Rooms()) == 0 })

	if err := ch.Send(ctx, collab.Op{}); !errors.Is(err, collab.ErrChannelClosed) {
		t.Errorf("send after close: err = %v", err)
	}
	if _, err := ch.Recv(ctx); !errors.Is(err, collab.ErrChannelClosed) {
		t.Errorf("recv after close: err = %v", err)
	}
}

func TestRelayReplicatesAdapters(t *testing.T) {
	ctx := context.Background()
	s, tr := newRelay(t)

	newSite := func(text string) (*buffer.Buffer, *patch.Applier, *collab.Adapter) {
		b := buffer.NewBufferFromString(text)
		ap := patch.NewApplier(b)
		ad := collab.NewAdapter(ap, b, tr)
		if err := ad.Bind(ctx, "wiki"); err != nil {
			t.Fatalf("Bind: %v", err)
		}
		t.Cleanup(func() { ad.Unbind() })
		return b, ap, ad
	}

	bufA, apA, _ := newSite("# Page")
	bufB, _, _ := newSite("# Page")
	waitFor(t, "joins", func() bool { return s.Rooms()[collab.ChannelName("wiki")] == 2 })

	if err := apA.Insert(buffer.Point{Column: 6}, "\n```kpt\n```"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "replication", func() bool { return bufB.Text() == bufA.Text() })
}

func TestHealth(t *testing.T) {
	s := New()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Status string   `json:"status"`
		Rooms  []string `json:"rooms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || len(body.Rooms) != 0 {
		t.Errorf("body = %+v", body)
	}
}

func TestHandshakeError(t *testing.T) {
	s := New()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	tr, err := collab.NewWebsocketTransport(srv.URL + "/nowhere")
	if err != nil {
		t.Fatal(err)
	}
	_, err = tr.Open(context.Background(), "appwiki/x")

	var hs *collab.HandshakeError
	if !errors.As(err, &hs) {
		t.Fatalf("err = %v, want HandshakeError", err)
	}
	if hs.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", hs.StatusCode)
	}
}

func TestTransportURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "http://localhost:1234", want: "ws://localhost:1234/rooms/appwiki/r"},
		{raw: "https://relay.example.com/base/", want: "wss://relay.example.com/base/rooms/appwiki/r"},
		{raw: "ws://h:1", want: "ws://h:1/rooms/appwiki/r"},
		{raw: "ftp://h", wantErr: true},
		{raw: "ws://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			tr, err := collab.NewWebsocketTransport(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := tr.URL("appwiki/r"); got != tt.want {
				t.Errorf("URL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListenAndServeStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- New().ListenAndServe(ctx, "127.0.0.1:0")
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("ListenAndServe: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return")
	}
}
