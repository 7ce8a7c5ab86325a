package downlink

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-downlink/internal/command"
	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/mqtt"
)

// fakeSession records publishes and closes.
type fakeSession struct {
	mu         sync.Mutex
	publishErr error
	topics     []string
	payloads   [][]byte
	qos        []byte
	retained   []bool
	closes     int
}

func (s *fakeSession) Publish(topic string, payload []byte, qos byte, retained bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append(s.topics, topic)
	s.payloads = append(s.payloads, payload)
	s.qos = append(s.qos, qos)
	s.retained = append(s.retained, retained)
	return s.publishErr
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// fakeDialer hands out one session per dial, or fails.
type fakeDialer struct {
	mu       sync.Mutex
	dialErr  error
	next     func() *fakeSession
	sessions []*fakeSession
}

func (d *fakeDialer) Dial() (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	s := &fakeSession{}
	if d.next != nil {
		s = d.next()
	}
	d.sessions = append(d.sessions, s)
	return s, nil
}

const testEUI = "24e124460c123456"

func mustEncode(t *testing.T, in command.Intent) command.Frame {
	t.Helper()
	frame, err := command.Encode(in)
	if err != nil {
		t.Fatalf("Encode(%s) error = %v", in.Model, err)
	}
	return frame
}

func testDownlinkConfig() config.DownlinkConfig {
	return config.DownlinkConfig{
		Confirmed:     true,
		FPort:         85,
		Topic:         "downlink/{device_eui}",
		FixedTopic:    "application/1/device/fixed/command/down",
		WS558Encoding: config.EncodingLSBFirst,
	}
}

func newTestPublisher(t *testing.T, d Dialer) *Publisher {
	t.Helper()
	p, err := New(Options{
		Downlink: testDownlinkConfig(),
		QoS:      1,
		Dialer:   d,
		Logger:   logging.NewWithWriter(config.LoggingConfig{Level: "debug", Format: "text"}, "test", io.Discard),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestNew_RequiresDependencies(t *testing.T) {
	logger := logging.Default()
	if _, err := New(Options{Logger: logger}); err == nil {
		t.Error("New() without dialer should fail")
	}
	if _, err := New(Options{Dialer: &fakeDialer{}}); err == nil {
		t.Error("New() without logger should fail")
	}
}

func TestPublish_Success(t *testing.T) {
	d := &fakeDialer{}
	p := newTestPublisher(t, d)

	frame, err := command.Encode(command.Intent{
		Model:        command.ModelWS558,
		DeviceEUI:    "24e124460c123456",
		SwitchStates: []int{1, 1, 0, 0, 0, 0, 0, 0},
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	ack, err := p.Publish(command.ModelWS558, "24e124460c123456", frame)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if ack.Topic != "downlink/24e124460c123456" {
		t.Errorf("ack.Topic = %q", ack.Topic)
	}
	if ack.CommandHex != "08FF03" {
		t.Errorf("ack.CommandHex = %q, want 08FF03", ack.CommandHex)
	}

	if len(d.sessions) != 1 {
		t.Fatalf("dialed %d sessions, want 1", len(d.sessions))
	}
	s := d.sessions[0]
	if s.closes != 1 {
		t.Errorf("session closed %d times, want 1", s.closes)
	}
	if len(s.topics) != 1 || s.topics[0] != ack.Topic {
		t.Errorf("published topics = %v", s.topics)
	}
	if s.qos[0] != 1 || s.retained[0] {
		t.Errorf("qos=%d retained=%v, want 1 false", s.qos[0], s.retained[0])
	}

	var env Envelope
	if err := json.Unmarshal(s.payloads[0], &env); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if !env.Confirmed || env.FPort != 85 {
		t.Errorf("envelope = %+v", env)
	}
	raw, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		t.Fatalf("data is not base64: %v", err)
	}
	if string(raw) != string(frame.Bytes()) {
		t.Errorf("decoded data = %X, want %X", raw, frame.Bytes())
	}
}

func TestPublish_FixedTopicModel(t *testing.T) {
	d := &fakeDialer{}
	p := newTestPublisher(t, d)

	ack, err := p.Send(command.Intent{
		Model:        command.ModelWS558Fixed,
		SwitchStates: []int{1, 0, 0, 0, 0, 0, 0, 0},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if ack.Topic != testDownlinkConfig().FixedTopic {
		t.Errorf("ack.Topic = %q, want fixed topic", ack.Topic)
	}
	if ack.CommandHex != "08FF80" {
		t.Errorf("ack.CommandHex = %q, want 08FF80", ack.CommandHex)
	}
}

func TestPublish_NoFixedTopic(t *testing.T) {
	d := &fakeDialer{}
	p := newTestPublisher(t, d)
	p.fixedTopic = ""

	frame := mustEncode(t, command.Intent{Model: command.ModelWS558Fixed, SwitchStates: make([]int, 8)})
	_, err := p.Publish(command.ModelWS558Fixed, "", frame)
	if !errors.Is(err, ErrNoTopic) {
		t.Fatalf("Publish() error = %v, want ErrNoTopic", err)
	}
	if len(d.sessions) != 0 {
		t.Error("no session should be dialed without a topic")
	}
}

func TestPublish_RejectsUnsafeEUI(t *testing.T) {
	frame := mustEncode(t, command.Intent{Model: command.ModelWS558, DeviceEUI: testEUI, SwitchStates: make([]int, 8)})

	for _, eui := range []string{"x/y", "a+b", "a#", "a b", "eui\n", ""} {
		t.Run(eui, func(t *testing.T) {
			d := &fakeDialer{}
			p := newTestPublisher(t, d)

			ack, err := p.Publish(command.ModelWS558, eui, frame)
			if !errors.Is(err, command.ErrInvalidIntent) {
				t.Fatalf("Publish(%q) error = %v, want ErrInvalidIntent", eui, err)
			}
			if ack.Topic != "" {
				t.Errorf("ack.Topic = %q, want empty", ack.Topic)
			}
			if len(d.sessions) != 0 {
				t.Error("no session should be dialed for an unsafe EUI")
			}
		})
	}
}

func TestPublish_ConnectErrorPreservesCode(t *testing.T) {
	d := &fakeDialer{dialErr: &mqtt.ConnectError{ReturnCode: 5, Err: errors.New("not authorized")}}
	p := newTestPublisher(t, d)

	frame := mustEncode(t, command.Intent{Model: command.ModelWS156, DeviceEUI: testEUI, ButtonID: 4})
	_, err := p.Publish(command.ModelWS156, "24e124460c123456", frame)

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Publish() error = %v, want *TransportError", err)
	}
	if te.Stage != StageConnect {
		t.Errorf("Stage = %q, want connect", te.Stage)
	}
	if te.Code != 5 {
		t.Errorf("Code = %d, want 5", te.Code)
	}
	if !errors.Is(err, ErrTransport) || !errors.Is(err, mqtt.ErrConnectionFailed) {
		t.Errorf("error chain missing sentinels: %v", err)
	}
}

func TestPublish_PublishFailureClosesOnce(t *testing.T) {
	d := &fakeDialer{next: func() *fakeSession {
		return &fakeSession{publishErr: mqtt.ErrTimeout}
	}}
	p := newTestPublisher(t, d)

	frame := mustEncode(t, command.Intent{Model: command.ModelWS503, DeviceEUI: testEUI, SwitchStates: []int{1, 0, 0}})
	_, err := p.Publish(command.ModelWS503, "24e124460c123456", frame)

	var te *TransportError
	if !errors.As(err, &te) || te.Stage != StagePublish {
		t.Fatalf("Publish() error = %v, want publish-stage TransportError", err)
	}
	if !errors.Is(err, mqtt.ErrTimeout) {
		t.Errorf("error should wrap mqtt.ErrTimeout: %v", err)
	}
	if d.sessions[0].closes != 1 {
		t.Errorf("session closed %d times, want 1", d.sessions[0].closes)
	}
}

func TestSend_ValidationErrorNoDial(t *testing.T) {
	d := &fakeDialer{}
	p := newTestPublisher(t, d)

	_, err := p.Send(command.Intent{Model: command.ModelWS156, DeviceEUI: "24e124460c123456", ButtonID: 7})
	if !errors.Is(err, command.ErrInvalidIntent) {
		t.Fatalf("Send() error = %v, want ErrInvalidIntent", err)
	}
	if len(d.sessions) != 0 {
		t.Error("invalid intents must not open a session")
	}
}

func TestPublish_ResultCallback(t *testing.T) {
	d := &fakeDialer{}
	p := newTestPublisher(t, d)

	var got []Result
	p.SetOnResult(func(r Result) { got = append(got, r) })

	frame := mustEncode(t, command.Intent{Model: command.ModelWS503, DeviceEUI: testEUI, SwitchStates: []int{1, 0, 0}})
	if _, err := p.Publish(command.ModelWS503, "24e124460c123456", frame); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	d.dialErr = errors.New("refused")
	if _, err := p.Publish(command.ModelWS503, "24e124460c123456", frame); err == nil {
		t.Fatal("Publish() should fail")
	}

	if len(got) != 2 {
		t.Fatalf("callback invoked %d times, want 2", len(got))
	}
	if got[0].Err != nil || got[0].Topic != "downlink/24e124460c123456" || got[0].CommandHex != "0811FF" {
		t.Errorf("first result = %+v", got[0])
	}
	if got[1].Err == nil {
		t.Error("second result should carry the error")
	}
}

func TestPublish_ConcurrentSessionsIndependent(t *testing.T) {
	d := &fakeDialer{}
	p := newTestPublisher(t, d)
	frame := mustEncode(t, command.Intent{Model: command.ModelWS558, DeviceEUI: testEUI, SwitchStates: []int{1, 0, 0, 0, 0, 0, 0, 0}})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Publish(command.ModelWS558, "24e124460c123456", frame); err != nil {
				t.Errorf("Publish() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if len(d.sessions) != 10 {
		t.Fatalf("dialed %d sessions, want 10", len(d.sessions))
	}
	for i, s := range d.sessions {
		if s.closes != 1 || len(s.topics) != 1 {
			t.Errorf("session %d: closes=%d publishes=%d", i, s.closes, len(s.topics))
		}
	}
}
