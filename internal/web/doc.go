// Package web serves the player page and its JSON/SSE API.
//
// Routes
//
//	GET  /                 → player page, or the upload form when the workbook is missing
//	POST /upload           → replace the workbook
//	GET  /api/state        → current playback state
//	POST /api/section      → {"section": name}
//	POST /api/repeat       → {"enabled": bool}
//	POST /api/seek         → {"position": n}
//	POST /api/start        → start playback
//	POST /api/stop         → stop playback
//	POST /api/ended        → {"clip_id": id}, the page finished playing a clip
//	GET  /api/events       → Server-Sent Events stream of playback events
//	GET  /api/clips/{id}   → audio of the clip in flight
//
// Sessions are identified by the korengpro_session cookie.
package web
