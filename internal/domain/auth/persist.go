package auth

import (
	"encoding/json"
	"fmt"
)

// StorageKey is the fixed key the session state is persisted under.
const StorageKey = "auth-storage"

const persistVersion = 0

type persistedState struct {
	IsAuthenticated bool      `json:"isAuthenticated"`
	User            *Identity `json:"user"`
	Token           *string   `json:"token"`
}

type persistEnvelope struct {
	State   persistedState `json:"state"`
	Version int            `json:"version"`
}

// EncodeState serializes s into the persisted envelope. Resolved is not
// stored: anything read back is a cache until the backend confirms it.
func EncodeState(s State) ([]byte, error) {
	env := persistEnvelope{Version: persistVersion}
	env.State.User = s.User
	env.State.IsAuthenticated = s.User != nil
	if s.Token != "" {
		tok := s.Token
		env.State.Token = &tok
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode session state: %w", err)
	}
	return data, nil
}

// DecodeState reads a persisted envelope. The result is always unresolved,
// and a user without a usable id yields the unauthenticated state.
func DecodeState(data []byte) (State, error) {
	var raw struct {
		State struct {
			User  json.RawMessage `json:"user"`
			Token *string         `json:"token"`
		} `json:"state"`
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return State{}, fmt.Errorf("decode session state: %w", err)
	}
	if raw.Version != persistVersion {
		return State{}, fmt.Errorf("decode session state: unsupported version %d", raw.Version)
	}

	out := State{}
	if raw.State.Token != nil {
		out.Token = *raw.State.Token
	}
	if len(raw.State.User) == 0 || string(raw.State.User) == "null" {
		return out, nil
	}
	id, err := DecodeIdentity(raw.State.User)
	if err != nil {
		return State{}, fmt.Errorf("decode session state: %w", err)
	}
	out.User = &id
	out.IsAuthenticated = true
	return out, nil
}
