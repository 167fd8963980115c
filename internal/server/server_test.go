package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/coach"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/features"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/recorder"
)

type staticSnapshots struct {
	snap    features.Snapshot
	visible bool
}

func (s *staticSnapshots) Snapshot() (features.Snapshot, bool) { return s.snap, s.visible }

type fakeAsker struct {
	answer string
	err    error
	got    string
}

func (a *fakeAsker) Ask(_ context.Context, q string) (string, error) {
	a.got = q
	return a.answer, a.err
}

func testSnapshot() features.Snapshot {
	s := features.NewSnapshot(time.Unix(1700000000, 0).UTC())
	s.Angles["left_knee"] = 120.5
	s.Positions["head"] = features.Position{X: 0.5, Y: 0.25, Z: -0.1}
	return s
}

func TestSnapshotEndpoint(t *testing.T) {
	src := &staticSnapshots{}
	srv := httptest.NewServer(New(Options{Snapshots: src}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/snapshot")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204 with no subject", resp.StatusCode)
	}

	src.snap, src.visible = testSnapshot(), true
	resp, err = http.Get(srv.URL + "/api/snapshot")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got features.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Angles["left_knee"] != 120.5 || got.Positions["head"].Y != 0.25 {
		t.Fatalf("snapshot = %+v", got)
	}
}

func TestSnapshotEndpointProtobuf(t *testing.T) {
	src := &staticSnapshots{snap: testSnapshot(), visible: true}
	srv := httptest.NewServer(New(Options{Snapshots: src}).Handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/snapshot", nil)
	req.Header.Set("Accept", "application/protobuf")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/protobuf" {
		t.Fatalf("content type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)

	var st structpb.Struct
	if err := proto.Unmarshal(body, &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	m := st.AsMap()
	angles := m["angles"].(map[string]any)
	if angles["left_knee"] != 120.5 {
		t.Fatalf("angles = %v", angles)
	}
	head := m["positions"].(map[string]any)["head"].(map[string]any)
	if head["z"] != -0.1 {
		t.Fatalf("head = %v", head)
	}
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestAskEndpoint(t *testing.T) {
	asker := &fakeAsker{answer: "Bend your knees."}
	srv := httptest.NewServer(New(Options{Asker: asker}).Handler())
	defer srv.Close()

	resp, out := postJSON(t, srv.URL+"/api/ask", `{"question":"How is my stance?"}`)
	if resp.StatusCode != http.StatusOK || out["answer"] != "Bend your knees." || out["visible"] != true {
		t.Fatalf("ask = %d %v", resp.StatusCode, out)
	}
	if asker.got != "How is my stance?" {
		t.Fatalf("question = %q", asker.got)
	}

	asker.err = coach.ErrNotVisible
	_, out = postJSON(t, srv.URL+"/api/ask", `{"question":"Anyone there?"}`)
	if out["answer"] != coach.NotVisibleReply || out["visible"] != false {
		t.Fatalf("not visible answer = %v", out)
	}

	asker.err = errors.New("llm offline")
	if resp, _ := postJSON(t, srv.URL+"/api/ask", `{"question":"Hello?"}`); resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	if resp, _ := postJSON(t, srv.URL+"/api/ask", `{"question":"  "}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank question status = %d", resp.StatusCode)
	}

	getResp, err := http.Get(srv.URL + "/api/ask")
	if err != nil {
		t.Fatal(err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d", getResp.StatusCode)
	}
}

func TestRecordingEndpoints(t *testing.T) {
	rec := recorder.NewRecorder(t.TempDir())
	defer rec.Close()
	srv := httptest.NewServer(New(Options{Recorder: rec}).Handler())
	defer srv.Close()

	if resp, out := postJSON(t, srv.URL+"/api/recording/start", ""); resp.StatusCode != http.StatusOK || out["success"] != true {
		t.Fatalf("start = %d %v", resp.StatusCode, out)
	}
	if resp, _ := postJSON(t, srv.URL+"/api/recording/start", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("second start status = %d", resp.StatusCode)
	}

	resp, err := http.Get(srv.URL + "/api/recording/status")
	if err != nil {
		t.Fatal(err)
	}
	var st recorder.RecordingStatus
	json.NewDecoder(resp.Body).Decode(&st)
	resp.Body.Close()
	if !st.Recording || !strings.HasPrefix(st.Filename, "poses_") {
		t.Fatalf("status = %+v", st)
	}

	if resp, _ := postJSON(t, srv.URL+"/api/recording/stop", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d", resp.StatusCode)
	}
	if rec.IsRecording() {
		t.Fatal("still recording after stop")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := httptest.NewServer(New(Options{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	var health map[string]any
	json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if health["status"] != "ok" {
		t.Fatalf("health = %v", health)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "posecoach_frames_acquired_total") {
		t.Fatal("metrics output missing pipeline counters")
	}

	resp, err = http.Get(srv.URL + "/missing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown path status = %d", resp.StatusCode)
	}
}

func TestHubBroadcastsSnapshotsAndAdvice(t *testing.T) {
	src := &staticSnapshots{snap: testSnapshot(), visible: true}
	s := New(Options{Snapshots: src})
	hub := s.opts.Hub
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// Greeting carries the current snapshot
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read greeting: %v", err)
	}
	if msg.Type != "snapshot" || msg.Snapshot.Angles["left_knee"] != 120.5 {
		t.Fatalf("greeting = %+v", msg)
	}

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	hub.PublishAdvice(coach.Advice{Question: "q", Text: "Keep your head up."})
	msg = Message{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read advice: %v", err)
	}
	if msg.Type != "advice" || msg.Advice.Text != "Keep your head up." {
		t.Fatalf("advice = %+v", msg)
	}

	snap := testSnapshot()
	snap.Angles["left_knee"] = 95
	if err := hub.Consume(context.Background(), snap); err != nil {
		t.Fatal(err)
	}
	msg = Message{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if msg.Type != "snapshot" || msg.Snapshot.Angles["left_knee"] != 95 {
		t.Fatalf("snapshot = %+v", msg)
	}

	if err := conn.WriteJSON(map[string]string{"type": "snapshot_request"}); err != nil {
		t.Fatal(err)
	}
	msg = Message{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read requested snapshot: %v", err)
	}
	if msg.Snapshot.Angles["left_knee"] != 120.5 {
		t.Fatalf("requested snapshot = %+v", msg)
	}
}

func TestHubBroadcastNeverBlocks(t *testing.T) {
	// No broadcaster running: the queue fills and further messages drop
	hub := newHub(nil, 2)
	defer hub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			if err := hub.Consume(context.Background(), testSnapshot()); err != nil {
				t.Error(err)
			}
		}
		hub.PublishAdvice(coach.Advice{Text: "Chin down."})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Consume blocked on a full broadcast queue")
	}
	if got := hub.Dropped(); got != 4 {
		t.Fatalf("dropped = %d, want 4", got)
	}

	hub.Close()
	hub.Broadcast(Message{Type: "snapshot"})
	if got := hub.Dropped(); got != 5 {
		t.Fatalf("dropped after close = %d, want 5", got)
	}
}
