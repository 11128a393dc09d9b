// Package proto defines the message vocabulary exchanged between the host
// and guest peers of a game. The host runs the only authoritative
// simulation; the guest forwards input intents and renders host snapshots.
// Messages travel over a single ordered reliable channel (see transport).
package proto

import (
	"encoding/json"
	"fmt"

	"github.com/vkoval/minelink/internal/game"
	"github.com/vkoval/minelink/internal/mines"
)

type MsgType string

const (
	// host -> guest
	MsgStartGame   MsgType = "START_GAME"
	MsgUpdateLobby MsgType = "UPDATE_LOBBY"
	MsgSyncBoard   MsgType = "SYNC_BOARD"

	// guest -> host
	MsgClickCell      MsgType = "CLICK_CELL"
	MsgRightClickCell MsgType = "RIGHT_CLICK_CELL"
	MsgRestart        MsgType = "RESTART"
)

// Envelope is the wire frame: a type tag plus the raw payload for that tag.
type Envelope struct {
	Type MsgType         `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// StartGame tells the guest to adopt a difficulty, re-initialize its local
// idle board and enter guest-play mode.
type StartGame struct {
	Difficulty mines.Difficulty `json:"difficulty"`
}

// UpdateLobby mirrors the host's difficulty selection pre-game.
type UpdateLobby struct {
	Difficulty mines.Difficulty `json:"difficulty"`
}

// ClickCell is a guest reveal intent.
type ClickCell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// RightClickCell is a guest flag-toggle intent.
type RightClickCell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Restart asks the host to re-initialize the session to idle.
type Restart struct {
	Difficulty mines.Difficulty `json:"difficulty"`
}

// Snapshot is the complete board-plus-status state the guest replaces its
// local state with. Seq increases by one per snapshot, letting the guest
// discard anything stale should the channel ever replay or reorder.
type Snapshot struct {
	Seq        uint64           `json:"seq"`
	Status     game.Status      `json:"status"`
	Elapsed    int              `json:"elapsed"`
	FlagCount  int              `json:"flag_count"`
	Difficulty mines.Difficulty `json:"difficulty"`
	Board      *mines.Board     `json:"board"`
}

func Encode(t MsgType, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("unable to encode %s payload: %w", t, err)
	}
	return &Envelope{Type: t, Data: data}, nil
}

func MustEncode(t MsgType, payload any) *Envelope {
	e, err := Encode(t, payload)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Envelope) decode(payload any) error {
	if err := json.Unmarshal(e.Data, payload); err != nil {
		return fmt.Errorf("malformed %s payload: %w", e.Type, err)
	}
	return nil
}

// HostHandler receives the guest-originated half of the vocabulary.
type HostHandler interface {
	HandleClickCell(ClickCell) error
	HandleRightClickCell(RightClickCell) error
	HandleRestart(Restart) error
}

// GuestHandler receives the host-originated half of the vocabulary.
type GuestHandler interface {
	HandleStartGame(StartGame) error
	HandleUpdateLobby(UpdateLobby) error
	HandleSyncBoard(Snapshot) error
}

// DispatchToHost decodes and routes a frame a host received. Host-bound
// roles reject host-originated message types: a guest is never a source of
// board truth, and anything unknown is a protocol error.
func DispatchToHost(e *Envelope, h HostHandler) error {
	switch e.Type {
	case MsgClickCell:
		var m ClickCell
		if err := e.decode(&m); err != nil {
			return err
		}
		return h.HandleClickCell(m)
	case MsgRightClickCell:
		var m RightClickCell
		if err := e.decode(&m); err != nil {
			return err
		}
		return h.HandleRightClickCell(m)
	case MsgRestart:
		var m Restart
		if err := e.decode(&m); err != nil {
			return err
		}
		return h.HandleRestart(m)
	default:
		return fmt.Errorf("unexpected message type for host: %s", e.Type)
	}
}

// DispatchToGuest decodes and routes a frame a guest received.
func DispatchToGuest(e *Envelope, g GuestHandler) error {
	switch e.Type {
	case MsgStartGame:
		var m StartGame
		if err := e.decode(&m); err != nil {
			return err
		}
		return g.HandleStartGame(m)
	case MsgUpdateLobby:
		var m UpdateLobby
		if err := e.decode(&m); err != nil {
			return err
		}
		return g.HandleUpdateLobby(m)
	case MsgSyncBoard:
		var m Snapshot
		if err := e.decode(&m); err != nil {
			return err
		}
		return g.HandleSyncBoard(m)
	default:
		return fmt.Errorf("unexpected message type for guest: %s", e.Type)
	}
}
