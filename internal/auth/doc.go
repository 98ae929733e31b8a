// Package auth provides bearer-token authentication and role-based
// authorisation for the tracker API.
//
// Tokens are HS256 JWTs minted by operators (gripctl token) for staff
// scanners and browsers. They carry a subject and one of three roles:
//
//	viewer   → list devices, read history, export
//	operator → viewer + register, update, scan, import
//	admin    → operator + delete, reconcile
//
// Permissions are a static role mapping; no database lookup is involved.
package auth
