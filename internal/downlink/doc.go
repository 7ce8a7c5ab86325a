// Package downlink delivers encoded command frames to the LoRaWAN network
// server through the MQTT broker.
//
// A Publisher runs one transaction per call:
//
//	resolve topic → dial session → publish envelope → close session
//
// The session is closed exactly once on every path after a successful dial.
// Nothing is retried; a failure at any step is returned as a
// *TransportError naming the step.
//
// The envelope is the network server's JSON downlink format:
//
//	{"confirmed":true,"fport":85,"data":"CP8D"}
//
// where data is the base64 of the raw frame bytes.
package downlink
