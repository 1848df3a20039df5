// Package recognition is the client for the face recognition microservice.
//
// The service is unauthenticated and stateless from the kiosk's point of
// view: one frame in, one verdict out. Interpretation of the verdict
// (liveness, attempt bounds, persistence) belongs to the capture package.
package recognition
