package downlink

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-downlink/internal/command"
	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-downlink/internal/observability/metrics"
)

// Ack is returned when the broker accepted the downlink. It says nothing
// about whether the device received or executed it.
type Ack struct {
	Topic      string
	Payload    []byte
	CommandHex string
}

// Result describes one finished publish attempt, successful or not.
type Result struct {
	Model      command.Model
	DeviceEUI  string
	Topic      string
	CommandHex string
	Duration   time.Duration
	Err        error
}

// Options configures a Publisher.
type Options struct {
	Downlink config.DownlinkConfig
	QoS      byte
	Dialer   Dialer
	Logger   *logging.Logger
}

// Publisher sends command frames as downlinks. It holds no per-request
// state and is safe for concurrent use.
type Publisher struct {
	cfg        config.DownlinkConfig
	qos        byte
	topic      mqtt.TopicTemplate
	fixedTopic mqtt.TopicTemplate
	dialer     Dialer
	logger     *logging.Logger

	onResult   func(Result)
	callbackMu sync.RWMutex
}

// New creates a Publisher.
//
// Returns:
//   - *Publisher: ready to publish
//   - error: if the dialer or logger is missing
func New(opts Options) (*Publisher, error) {
	if opts.Dialer == nil {
		return nil, fmt.Errorf("dialer is required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Publisher{
		cfg:        opts.Downlink,
		qos:        opts.QoS,
		topic:      mqtt.TopicTemplate(opts.Downlink.Topic),
		fixedTopic: mqtt.TopicTemplate(opts.Downlink.FixedTopic),
		dialer:     opts.Dialer,
		logger:     opts.Logger.Component("publisher"),
	}, nil
}

// SetOnResult registers a callback invoked after every publish attempt.
// It runs on the request goroutine and must not block.
func (p *Publisher) SetOnResult(callback func(Result)) {
	p.callbackMu.Lock()
	p.onResult = callback
	p.callbackMu.Unlock()
}

// Send encodes intent and publishes it.
//
// Returns:
//   - Ack: on broker acknowledgment
//   - error: a command validation error (errors.Is command.ErrInvalidIntent),
//     or any error Publish returns
func (p *Publisher) Send(intent command.Intent) (Ack, error) {
	frame, err := command.Encode(intent)
	if err != nil {
		var ve *command.ValidationError
		if errors.As(err, &ve) {
			metrics.IncValidationError(intent.Model.String(), ve.Field)
		}
		return Ack{}, err
	}
	return p.Publish(intent.Model, intent.DeviceEUI, frame)
}

// Publish delivers frame for a device of the given model.
//
// The topic is the EUI-addressed template for EUI-addressed models and the
// fixed topic otherwise.
//
// Returns:
//   - Ack: on broker acknowledgment
//   - error: a *command.ValidationError for an EUI that is missing or
//     unsafe in a topic, ErrNoTopic if no topic resolves, *TransportError if the
//     session could not be opened or the publish was not acknowledged
func (p *Publisher) Publish(model command.Model, deviceEUI string, frame command.Frame) (ack Ack, err error) {
	start := time.Now()
	res := Result{Model: model, DeviceEUI: deviceEUI, CommandHex: frame.Hex()}
	defer func() {
		res.Duration = time.Since(start)
		res.Err = err
		p.report(res)
	}()

	topic, err := p.resolveTopic(model, deviceEUI)
	if err != nil {
		return Ack{}, err
	}
	res.Topic = topic

	payload, err := NewEnvelope(frame, p.cfg.Confirmed, p.cfg.FPort).Marshal()
	if err != nil {
		return Ack{}, err
	}

	session, err := p.dialer.Dial()
	if err != nil {
		te := &TransportError{Stage: StageConnect, Topic: topic, Err: err}
		var ce *mqtt.ConnectError
		if errors.As(err, &ce) {
			te.Code = ce.ReturnCode
		}
		return Ack{}, te
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			p.logger.Warn("closing broker session", "topic", topic, "error", closeErr)
		}
	}()

	p.logger.Debug("publishing downlink",
		"topic", topic,
		"model", model.String(),
		"payload", string(payload),
	)

	if err := session.Publish(topic, payload, p.qos, false); err != nil {
		return Ack{}, &TransportError{Stage: StagePublish, Topic: topic, Err: err}
	}

	return Ack{Topic: topic, Payload: payload, CommandHex: frame.Hex()}, nil
}

// resolveTopic picks and expands the topic for model.
func (p *Publisher) resolveTopic(model command.Model, deviceEUI string) (string, error) {
	if err := command.ValidateDeviceEUI(deviceEUI, model.EUIAddressed()); err != nil {
		return "", err
	}

	tmpl := p.topic
	if !model.EUIAddressed() {
		if p.fixedTopic == "" {
			return "", fmt.Errorf("%w: %s requires downlink.fixed_topic", ErrNoTopic, model)
		}
		tmpl = p.fixedTopic
	}

	topic, err := tmpl.Expand(deviceEUI)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoTopic, err)
	}
	return topic, nil
}

// report logs, records metrics and notifies the result callback.
func (p *Publisher) report(res Result) {
	metrics.ObservePublish(res.Model.String(), resultLabel(res.Err), res.Duration)

	if res.Err != nil {
		p.logger.Warn("downlink failed",
			"model", res.Model.String(),
			"device_eui", res.DeviceEUI,
			"topic", res.Topic,
			"command_hex", res.CommandHex,
			"duration_ms", res.Duration.Milliseconds(),
			"error", res.Err,
		)
	} else {
		p.logger.Info("downlink published",
			"model", res.Model.String(),
			"device_eui", res.DeviceEUI,
			"topic", res.Topic,
			"command_hex", res.CommandHex,
			"duration_ms", res.Duration.Milliseconds(),
		)
	}

	p.callbackMu.RLock()
	callback := p.onResult
	p.callbackMu.RUnlock()
	if callback != nil {
		callback(res)
	}
}

func resultLabel(err error) string {
	var te *TransportError
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.As(err, &te) && te.Stage == StageConnect:
		return metrics.ResultConnectError
	case errors.As(err, &te) && te.Stage == StagePublish:
		return metrics.ResultPublishError
	default:
		return metrics.ResultError
	}
}
