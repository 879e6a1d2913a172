package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidPayload = errors.New("invalid payload")

// DecodeClan parses and validates a clan payload.
func DecodeClan(raw []byte) (*ClanSnapshot, error) {
	var c ClanSnapshot
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode clan: %w", err)
	}
	if c.Tag == "" {
		return nil, fmt.Errorf("decode clan: %w: missing tag", ErrInvalidPayload)
	}
	for i, m := range c.MemberList {
		if m.Tag == "" {
			return nil, fmt.Errorf("decode clan: %w: member %d has no tag", ErrInvalidPayload, i)
		}
	}
	return &c, nil
}

// DecodeWar parses and validates a current war payload.
func DecodeWar(raw []byte) (*WarSnapshot, error) {
	var w WarSnapshot
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode war: %w", err)
	}
	for _, p := range w.Clan.Participants {
		if p.Tag == "" {
			return nil, fmt.Errorf("decode war: %w: participant without tag", ErrInvalidPayload)
		}
		if p.DecksUsed < 0 {
			return nil, fmt.Errorf("decode war: %w: %s has negative decksUsed", ErrInvalidPayload, p.Tag)
		}
	}
	return &w, nil
}

type warLogDocument struct {
	Items []json.RawMessage `json:"items"`
}

// EncodeWarLog wraps accumulated war log items the way the API lists them.
func EncodeWarLog(items []json.RawMessage) ([]byte, error) {
	if items == nil {
		items = []json.RawMessage{}
	}
	return json.Marshal(warLogDocument{Items: items})
}

// DecodeWarLog parses a {"items": [...]} document into typed entries.
func DecodeWarLog(raw []byte) ([]WarLogEntry, error) {
	var doc struct {
		Items []WarLogEntry `json:"items"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode war log: %w", err)
	}
	return doc.Items, nil
}
