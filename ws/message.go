package ws

import "encoding/json"

// InboundEnvelope is the generic envelope for all client-to-server messages.
// The Type field is used for routing; Raw holds the full JSON payload.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements custom unmarshaling to capture the raw payload.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	// Unmarshal just the type field
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = json.RawMessage(data)
	return nil
}

// --- Client-to-Server message payloads ---

// JoinLobbyMsg joins (or lazily creates) the lobby for a code. Token is an
// optional identity token from a previous session; without one the server
// mints a fresh playerId.
type JoinLobbyMsg struct {
	Type       string `json:"type"`
	LobbyCode  string `json:"lobbyCode"`
	PlayerName string `json:"playerName"`
	Token      string `json:"token,omitempty"`
}

// StartGameMsg is sent by the host to begin the first round.
type StartGameMsg struct {
	Type      string `json:"type"`
	LobbyCode string `json:"lobbyCode"`
}

// PlayerActionMsg carries one in-game action. Action is one of
// "playcard", "drawcard", "calluno", "choosecolor"; CardIndex and
// ChosenColor apply only where the action needs them.
type PlayerActionMsg struct {
	Type        string `json:"type"`
	LobbyCode   string `json:"lobbyCode"`
	Action      string `json:"action"`
	CardIndex   *int   `json:"cardIndex,omitempty"`
	ChosenColor string `json:"chosenColor,omitempty"`
}

// --- Server-to-Client messages ---

// ErrorMsg is sent when a client action is invalid.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// IdentityMsg hands a freshly minted playerId (and, when local token
// signing is configured, a token proving it) to the client.
type IdentityMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Token    string `json:"token,omitempty"`
}
