package database

import (
	"encoding/json"
	"fmt"

	"github.com/jo-hoe/gopicker/internal/picker"
)

func encodeSession(session *picker.Session) ([]byte, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session %s: %w", session.ID, err)
	}
	return data, nil
}

func decodeSession(data []byte) (*picker.Session, error) {
	var session picker.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}
