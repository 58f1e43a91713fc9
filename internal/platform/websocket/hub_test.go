package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/dispatch"
)

type countingObserver struct {
	mu       sync.Mutex
	outbound map[string]int
	open     int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{outbound: map[string]int{}}
}

func (o *countingObserver) ObserveOutbound(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outbound[result]++
}

func (o *countingObserver) ConnectionOpened() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open++
}

func (o *countingObserver) ConnectionClosed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open--
}

func (o *countingObserver) count(result string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outbound[result]
}

// ---------------------------------------------------------------------------
// Gateway tests
// ---------------------------------------------------------------------------

func TestGateway_RegisterUnregister(t *testing.T) {
	obs := newCountingObserver()
	gw := NewGateway(4, zerolog.Nop(), obs)
	client := gw.NewClient()

	if !gw.Register(client) {
		t.Fatal("expected first register to succeed")
	}
	if gw.Register(client) {
		t.Fatal("expected duplicate register to be rejected")
	}
	if gw.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", gw.ClientCount())
	}

	gw.Unregister(client.ID)
	gw.Unregister(client.ID)

	if gw.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", gw.ClientCount())
	}
	if _, ok := <-client.Send; ok {
		t.Fatal("expected Send channel to be closed")
	}
	if obs.open != 0 {
		t.Fatalf("expected open gauge back at 0, got %d", obs.open)
	}
}

func TestGateway_NewClientIDsAreUnique(t *testing.T) {
	gw := NewGateway(1, zerolog.Nop(), nil)
	if a, b := gw.NewClient(), gw.NewClient(); a.ID == b.ID {
		t.Fatalf("expected distinct ids, got %s twice", a.ID)
	}
}

func TestGateway_EmitEncodesEnvelope(t *testing.T) {
	obs := newCountingObserver()
	gw := NewGateway(4, zerolog.Nop(), obs)
	client := gw.NewClient()
	gw.Register(client)

	gw.Emit(client.ID, dispatch.Pong{Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)})

	select {
	case msg := <-client.Send:
		var env dispatch.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}
		if env.Event != "pong" {
			t.Fatalf("expected pong, got %s", env.Event)
		}
		if !strings.Contains(string(env.Data), "2026-03-14T09:30:00Z") {
			t.Fatalf("unexpected data: %s", env.Data)
		}
	default:
		t.Fatal("client did not receive frame")
	}
	if obs.count(OutboundQueued) != 1 {
		t.Fatalf("expected 1 queued, got %d", obs.count(OutboundQueued))
	}
}

func TestGateway_EmitOnlyReachesTarget(t *testing.T) {
	gw := NewGateway(4, zerolog.Nop(), nil)
	target, other := gw.NewClient(), gw.NewClient()
	gw.Register(target)
	gw.Register(other)

	gw.Emit(target.ID, dispatch.Pong{})

	if len(target.Send) != 1 {
		t.Fatalf("expected 1 frame for target, got %d", len(target.Send))
	}
	if len(other.Send) != 0 {
		t.Fatal("other client should not have received the frame")
	}
}

func TestGateway_EmitDropsWhenBufferFull(t *testing.T) {
	obs := newCountingObserver()
	gw := NewGateway(1, zerolog.Nop(), obs)
	client := gw.NewClient()
	gw.Register(client)

	gw.Emit(client.ID, dispatch.Pong{})
	gw.Emit(client.ID, dispatch.Pong{})

	if obs.count(OutboundQueued) != 1 || obs.count(OutboundDropped) != 1 {
		t.Fatalf("expected 1 queued and 1 dropped, got %v", obs.outbound)
	}
}

func TestGateway_EmitToDepartedChannel(t *testing.T) {
	obs := newCountingObserver()
	gw := NewGateway(1, zerolog.Nop(), obs)

	gw.Emit("gone", dispatch.Pong{})

	if obs.count(OutboundClosed) != 1 {
		t.Fatalf("expected 1 closed, got %d", obs.count(OutboundClosed))
	}
}

func TestGateway_CloseAll(t *testing.T) {
	gw := NewGateway(1, zerolog.Nop(), nil)
	clients := []*Client{gw.NewClient(), gw.NewClient(), gw.NewClient()}
	for _, c := range clients {
		gw.Register(c)
	}

	gw.CloseAll()

	if gw.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", gw.ClientCount())
	}
	for _, c := range clients {
		if _, ok := <-c.Send; ok {
			t.Fatalf("client %s Send still open", c.ID)
		}
	}
}

func TestGateway_ConcurrentEmitAndUnregister(t *testing.T) {
	gw := NewGateway(8, zerolog.Nop(), nil)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		client := gw.NewClient()
		gw.Register(client)
		wg.Add(2)
		go func() {
			defer wg.Done()
			gw.Emit(client.ID, dispatch.Pong{})
		}()
		go func() {
			defer wg.Done()
			gw.Unregister(client.ID)
		}()
	}
	wg.Wait()

	if gw.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", gw.ClientCount())
	}
}

// ---------------------------------------------------------------------------
// Handler tests
// ---------------------------------------------------------------------------

func TestHandler_RegisterRoutes(t *testing.T) {
	e := echo.New()
	NewHandler(NewGateway(1, zerolog.Nop(), nil), nil, zerolog.Nop(), nil).RegisterRoutes(e.Group(""))

	for _, r := range e.Routes() {
		if r.Path == "/ws" && r.Method == http.MethodGet {
			return
		}
	}
	t.Fatal("expected GET /ws route")
}

func TestHandler_HandleConnectRequiresWebSocket(t *testing.T) {
	handler := NewHandler(NewGateway(1, zerolog.Nop(), nil), nil, zerolog.Nop(), nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.HandleConnect(c)

	// gorilla/websocket upgrader will reject non-WS requests
	if err == nil && rec.Code == http.StatusSwitchingProtocols {
		t.Fatal("expected upgrade to fail for non-websocket request")
	}
}

type liveServer struct {
	url     string
	gateway *Gateway
	reactor *dispatch.Reactor
}

func startLiveServer(t *testing.T) *liveServer {
	t.Helper()
	gw := NewGateway(16, zerolog.Nop(), nil)
	hub := dispatch.NewHub(gw)
	reactor := dispatch.NewReactor(hub, 64, zerolog.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = reactor.Run(ctx)
	}()

	e := echo.New()
	NewHandler(gw, reactor, zerolog.Nop(), nil).RegisterRoutes(e.Group(""))
	server := httptest.NewServer(e)

	t.Cleanup(func() {
		gw.CloseAll()
		server.Close()
		cancel()
		<-done
	})
	return &liveServer{
		url:     "ws" + strings.TrimPrefix(server.URL, "http") + "/ws",
		gateway: gw,
		reactor: reactor,
	}
}

func (s *liveServer) dial(t *testing.T) *gorillawebsocket.Conn {
	t.Helper()
	conn, resp, err := gorillawebsocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *gorillawebsocket.Conn, frame string) {
	t.Helper()
	if err := conn.WriteMessage(gorillawebsocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func receive(t *testing.T, conn *gorillawebsocket.Conn) dispatch.Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var env dispatch.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("failed to unmarshal %s: %v", msg, err)
	}
	return env
}

// eventually polls the reactor until cond holds.
func eventually(t *testing.T, r *dispatch.Reactor, cond func(*dispatch.Hub) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var ok bool
		if err := r.Query(context.Background(), func(h *dispatch.Hub) { ok = cond(h) }); err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestHandler_PingPong(t *testing.T) {
	srv := startLiveServer(t)
	conn := srv.dial(t)

	send(t, conn, `{"event":"ping"}`)

	if env := receive(t, conn); env.Event != "pong" {
		t.Fatalf("expected pong, got %s", env.Event)
	}
}

func TestHandler_MalformedFramesAreDropped(t *testing.T) {
	srv := startLiveServer(t)
	conn := srv.dial(t)

	send(t, conn, `{not json`)
	send(t, conn, `{"event":"teleport","data":{}}`)
	send(t, conn, `{"event":"driver-join","data":{}}`)
	send(t, conn, `{"event":"ping"}`)

	// The connection survives and the next valid frame is answered.
	if env := receive(t, conn); env.Event != "pong" {
		t.Fatalf("expected pong, got %s", env.Event)
	}
}

func TestHandler_DriverJoinAndDisconnect(t *testing.T) {
	srv := startLiveServer(t)
	driver := srv.dial(t)
	patient := srv.dial(t)

	send(t, patient, `{"event":"patient-join","data":{"userId":"P1","userData":{"name":"Ravi","phone":"555"}}}`)
	if env := receive(t, patient); env.Event != "roster-update" {
		t.Fatalf("expected roster-update for patient, got %s", env.Event)
	}

	send(t, driver, `{"event":"driver-join","data":{"ambulanceId":"AMB-001","driverName":"Siva"}}`)
	env := receive(t, patient)
	if env.Event != "roster-update" {
		t.Fatalf("expected roster broadcast to patient, got %s", env.Event)
	}
	var roster []dispatch.RosterEntry
	if err := json.Unmarshal(env.Data, &roster); err != nil {
		t.Fatalf("failed to unmarshal roster: %v", err)
	}
	if len(roster) != 1 || roster[0].AmbulanceID != "AMB-001" {
		t.Fatalf("unexpected roster: %+v", roster)
	}

	driver.Close()

	if env := receive(t, patient); env.Event != "driver-disconnected" {
		t.Fatalf("expected driver-disconnected, got %s", env.Event)
	}
	eventually(t, srv.reactor, func(h *dispatch.Hub) bool { return h.Counts().Drivers == 0 })
}

func TestHandler_CloseAllEndsConnections(t *testing.T) {
	srv := startLiveServer(t)
	conn := srv.dial(t)

	send(t, conn, `{"event":"ping"}`)
	receive(t, conn)

	srv.gateway.CloseAll()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !gorillawebsocket.IsCloseError(err, gorillawebsocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}
}
