// Package mqtt provides one-shot MQTT 3.1.1 sessions for downlink delivery.
//
// This package manages:
//   - Opening a session to the broker (TCP or TLS, optional credentials)
//   - Publishing with QoS guarantees and an acknowledgment timeout
//   - Closing the session exactly once
//   - Downlink topic templates ({device_eui} substitution) and topic validation
//
// # Architecture
//
// Every downlink opens its own session, publishes once, and disconnects.
// Sessions are never pooled or reconnected, so a broker outage surfaces as
// a failed request instead of a silently queued message.
//
//	HTTP request → command.Encode → downlink.Publisher → mqtt.Session → broker → network server
//
// # Security Considerations
//
//   - Use TLS (cfg.Broker.TLS=true) whenever the broker is not on localhost
//   - Credentials are sent in the CONNECT packet; without TLS they travel in clear
//   - InsecureSkipVerify exists for lab brokers only
//
// # Usage
//
//	session, err := mqtt.Dial(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//
//	topic, err := mqtt.TopicTemplate(cfg.Downlink.Topic).Expand(eui)
//	if err != nil {
//	    return err
//	}
//	err = session.Publish(topic, payload, 1, false)
package mqtt
