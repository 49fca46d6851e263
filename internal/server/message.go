// Package server provides the WebSocket server for dashboard connections.
// It upgrades browser connections on /, tracks them in a registry, and
// answers refresh actions with rendered widget HTML.
package server

import (
	"encoding/json"
)

// Action identifies the operation a client message requests. Recognized
// actions form a closed set; anything else maps to ActionNone, which the
// session loop treats as a no-op.
type Action string

const (
	// ActionNone is the no-op variant: unrecognized or missing actions,
	// malformed payloads, and refresh requests without a speaker name all
	// collapse to it. The session loop skips these and keeps reading.
	ActionNone Action = ""

	// ActionRefresh asks the server to query a speaker and push rendered
	// widget HTML back on this connection.
	ActionRefresh Action = "refresh"
)

// clientMessage is the raw client payload. The speaker field keeps its
// historical wire name sonos_name; deployed widget.js depends on it.
type clientMessage struct {
	Action    string `json:"action"`
	SonosName string `json:"sonos_name"`
}

// Command is the decoded form of a client message: a tagged variant carrying
// the payload its action requires.
type Command struct {
	Action Action

	// Speaker is the target room name. Set only for ActionRefresh.
	Speaker string
}

// parseCommand decodes a text frame into a Command.
//
// Malformed JSON, a missing or unrecognized action, and a refresh without a
// speaker name all yield ActionNone rather than an error: a bad payload must
// not terminate the session (only a non-text frame type does that).
func parseCommand(data []byte) Command {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Command{Action: ActionNone}
	}

	switch Action(msg.Action) {
	case ActionRefresh:
		if msg.SonosName == "" {
			return Command{Action: ActionNone}
		}
		return Command{Action: ActionRefresh, Speaker: msg.SonosName}
	default:
		return Command{Action: ActionNone}
	}
}

// htmlMessage is the server-to-client envelope: rendered widget markup.
type htmlMessage struct {
	HTML string `json:"html"`
}
