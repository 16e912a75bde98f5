package message

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ParseSession parses a JSON session document. Sessions submitted without an ID
// are assigned a random one so that results can still be correlated.
// It returns ErrJSONUnmarshalFailed (wrapping the original error) if unmarshalling fails.
func ParseSession(data []byte) (Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrJSONUnmarshalFailed, err)
	}

	s.SessionID = strings.TrimSpace(s.SessionID)
	if s.SessionID == "" {
		s.SessionID = uuid.NewString()
	}
	s.Profile = strings.TrimSpace(s.Profile)
	s.ExerciseType = strings.TrimSpace(s.ExerciseType)
	return s, nil
}

// EncodeSession is the inverse of ParseSession.
func EncodeSession(s Session) ([]byte, error) {
	return json.Marshal(s)
}
