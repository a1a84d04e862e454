// Package protocol defines the JSON wire contract between a client and
// the world server: message envelopes, the chunk key wire form, and
// client-visible error codes.
package protocol

import "encoding/json"

const Version = "1.0"

// Message types, client -> server.
const (
	TypeHello            = "hello"
	TypeLogin            = "login"
	TypeLogout           = "logout"
	TypeSetView          = "set_view"
	TypeSubscribeChunks  = "subscribe_chunks"
	TypeUnsubscribeChunk = "unsubscribe_chunks"
	TypeMove             = "move"
	TypeMoveDir          = "move_dir"
	TypeAddContract      = "add_contract"
	TypeRemoveContract   = "remove_contract"
	TypeInteract         = "interact"
)

// Message types, server -> client.
const (
	TypeHelloOK       = "hello_ok"
	TypeLoginOK       = "login_ok"
	TypeLogoutOK      = "logout_ok"
	TypeSetViewOK     = "set_view_ok"
	TypeChunkSnapshot = "chunk_snapshot"
	TypeChunkDelta    = "chunk_delta"
	TypeEntitySpawn   = "entity_spawn"
	TypeEntityUpdate  = "entity_update"
	TypeEntityDespawn = "entity_despawn"
	TypeMoveResult    = "move_result"
	TypeError         = "error"
)

// BaseMessage lets the transport route an inbound frame by its type
// field before unmarshalling the rest of the payload.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
