// Package services holds the error taxonomy shared by the kiosk's external
// service clients. Sentinel errors classify failures (transient, validation,
// unauthorized, configuration, not found) so callers can branch with
// errors.Is while keeping operation context in the message.
package services
