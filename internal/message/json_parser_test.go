package message

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSession(t *testing.T) {
	data := []byte(`{
		"session_id": " ramp-01 ",
		"profile": "  Alex ",
		"weight_kg": 72.5,
		"exercise_type": "treadmill",
		"recorded_at": "2026-03-01T10:00:00Z",
		"readings": [
			{"VenturiAreaRegular": 0.0008, "VenturiAreaConstricted": 0.0003, "O2": 16.5, "DifferentialPressure": 50, "TimeStamp": 0},
			{"VenturiAreaRegular": 0.0008, "VenturiAreaConstricted": 0.0003, "O2": 16.4, "DifferentialPressure": -48, "TimeStamp": 1000}
		]
	}`)

	s, err := ParseSession(data)
	require.NoError(t, err)
	assert.Equal(t, "ramp-01", s.SessionID)
	assert.Equal(t, "Alex", s.Profile)
	assert.Equal(t, 72.5, s.WeightKg)
	assert.Equal(t, "treadmill", s.ExerciseType)
	assert.Equal(t, 2026, s.RecordedAt.Year())
	require.Len(t, s.Readings, 2)
	assert.Equal(t, -48.0, s.Readings[1].DifferentialPressure)
	assert.Equal(t, uint64(1000), s.Readings[1].TimeStamp)
	assert.Equal(t, "1s", s.Duration().String())
}

func TestParseSession_AssignsID(t *testing.T) {
	s, err := ParseSession([]byte(`{"weight_kg": 70, "readings": []}`))
	require.NoError(t, err)
	_, err = uuid.Parse(s.SessionID)
	assert.NoError(t, err)
}

func TestParseSession_InvalidJSON(t *testing.T) {
	_, err := ParseSession([]byte(`{"weight_kg": "heavy"}`))
	assert.ErrorIs(t, err, ErrJSONUnmarshalFailed)

	_, err = ParseSession([]byte(`not json`))
	assert.ErrorIs(t, err, ErrJSONUnmarshalFailed)
}

func TestEncodeSession_RoundTrip(t *testing.T) {
	in := Session{
		SessionID: "abc",
		WeightKg:  68,
		Readings:  []ReadingPayload{{VenturiAreaRegular: 0.0008, VenturiAreaConstricted: 0.0003, O2: 15, DifferentialPressure: 20, TimeStamp: 5}},
	}
	data, err := EncodeSession(in)
	require.NoError(t, err)

	out, err := ParseSession(data)
	require.NoError(t, err)
	assert.Equal(t, in.Readings, out.Readings)
	assert.Equal(t, in.SessionID, out.SessionID)
}
