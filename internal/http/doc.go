// Package http provides HTTP handlers and middleware for the table tennis
// booking API.
//
// Every response carries a {"success": bool} envelope alongside a human
// readable "message" and the operation's payload. The router exposes:
//   - POST /register, POST /login: account creation and credential checks.
//     Both respond with {"sessionId","user"} and are rate limited per client.
//   - GET /user: the principal bound to the presented session token. Tokens
//     travel in the Authorization header (raw or Bearer), the sessionId
//     query parameter, or a sessionId field in the JSON body.
//   - GET /bookings, POST /bookings: list active bookings and open new ones,
//     exchanging the bookingDTO payload defined in booking_handler.go.
//   - PUT /bookings/{id}/join, /cancel, /leave and DELETE /bookings/{id}:
//     roster and lifecycle operations. Join is open to anyone; cancel and
//     leave act for the session holder; delete requires an administrator.
//   - GET /users, PUT /users/profile, GET /users/{studentId},
//     GET /users/{studentId}/history: profile management and the rating
//     history view assembled in user_handler.go.
//   - POST /ratings, GET /ratings: the peer rating ledger defined in
//     rating_handler.go.
//   - GET /test-mode, POST /test-mode: administrator controls over the
//     virtual clock.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
