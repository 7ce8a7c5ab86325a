package mqtt

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"
)

// brokerConfig returns a config for the broker named by DOWNLINK_TEST_BROKER
// (host:port), skipping the test when it is unset.
func brokerConfig(t *testing.T) testBroker {
	t.Helper()
	addr := os.Getenv("DOWNLINK_TEST_BROKER")
	if addr == "" {
		t.Skip("DOWNLINK_TEST_BROKER not set; skipping broker test")
	}
	host, portStr, ok := strings.Cut(addr, ":")
	if !ok {
		t.Fatalf("DOWNLINK_TEST_BROKER = %q, want host:port", addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("DOWNLINK_TEST_BROKER port: %v", err)
	}
	return testBroker{host: host, port: port}
}

type testBroker struct {
	host string
	port int
}

func TestDial_Refused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 1 // nothing listens here
	cfg.ConnectTimeout = 2

	session, err := Dial(cfg)
	if err == nil {
		session.Close()
		t.Fatal("Dial() expected error for closed port")
	}
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Dial() error = %v, want ErrConnectionFailed", err)
	}
	var ce *ConnectError
	if !errors.As(err, &ce) {
		t.Errorf("Dial() error type = %T, want *ConnectError", err)
	}
}

func TestDial_BadTLSConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.CAFile = "/nonexistent/ca.pem"

	_, err := Dial(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Dial() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnectError_Message(t *testing.T) {
	refused := &ConnectError{ReturnCode: 5, Err: errors.New("not authorised")}
	if !strings.Contains(refused.Error(), "return code 5") {
		t.Errorf("Error() = %q, want return code", refused.Error())
	}
	if !errors.Is(refused, ErrConnectionFailed) {
		t.Error("ConnectError does not match ErrConnectionFailed")
	}

	network := &ConnectError{Err: ErrTimeout}
	if !errors.Is(network, ErrTimeout) {
		t.Error("ConnectError does not unwrap to its cause")
	}
	if ReturnCodeText(200) != "unknown" {
		t.Errorf("ReturnCodeText(200) = %q, want unknown", ReturnCodeText(200))
	}
}

func TestClose_NilClient(t *testing.T) {
	s := &Session{}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if s.IsConnected() {
		t.Error("IsConnected() = true on closed session")
	}
}

func TestPublish_Validation(t *testing.T) {
	s := &Session{}

	if err := s.Publish("", []byte("x"), 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish(empty topic) error = %v, want ErrInvalidTopic", err)
	}
	if err := s.Publish("a/b", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish(qos 3) error = %v, want ErrInvalidQoS", err)
	}
	if err := s.Publish("a/b", make([]byte, maxPayloadSize+1), 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish(oversized) error = %v, want ErrPublishFailed", err)
	}
	if err := s.Publish("a/b", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish(unconnected) error = %v, want ErrNotConnected", err)
	}
}

// ─── Broker-backed tests (DOWNLINK_TEST_BROKER=host:port) ──────────

func TestSession_PublishAndClose(t *testing.T) {
	b := brokerConfig(t)
	cfg := testConfig()
	cfg.Broker.Host = b.host
	cfg.Broker.Port = b.port

	session, err := Dial(cfg)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if !session.IsConnected() {
		t.Error("IsConnected() = false after Dial")
	}

	payload := []byte(`{"confirmed":true,"fport":85,"data":"CP8D"}`)
	if err := session.Publish("downlink/test-device", payload, 1, false); err != nil {
		t.Errorf("Publish() error = %v", err)
	}

	session.Close()
	if session.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
	if err := session.Publish("downlink/test-device", payload, 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() after Close error = %v, want ErrNotConnected", err)
	}
}
