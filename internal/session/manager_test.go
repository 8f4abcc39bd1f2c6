package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBindAndForUser(t *testing.T) {
	m := NewManager()
	userID := uuid.New()

	s1, superseded1 := m.Bind(userID, "device-1", "ios")
	s2, superseded2 := m.Bind(userID, "device-2", "web")
	require.Nil(t, superseded1)
	require.Nil(t, superseded2)

	got := m.ForUser(userID)
	require.Len(t, got, 2)
	require.True(t, m.IsOnline(userID))
	require.Contains(t, []uuid.UUID{s1.ID, s2.ID}, got[0].ID)
}

func TestBindSupersedesSameDevice(t *testing.T) {
	m := NewManager()
	userID := uuid.New()

	old, _ := m.Bind(userID, "device-1", "ios")
	fresh, superseded := m.Bind(userID, "device-1", "ios")

	require.NotNil(t, superseded)
	require.Equal(t, old.ID, superseded.OldSessionID)
	require.Equal(t, "kicked", old.State.String())
	require.NotEqual(t, old.ID, fresh.ID)
}

func TestUpdateClientPtsNeverGoesBackwards(t *testing.T) {
	m := NewManager()
	userID := uuid.New()
	s, _ := m.Bind(userID, "device-1", "ios")
	channelID := uuid.New()

	require.True(t, m.UpdateClientPts(s.ID, channelID, 10))
	require.True(t, m.UpdateClientPts(s.ID, channelID, 3))
	require.EqualValues(t, 10, s.Watermark(channelID))
}

func TestMarkReadyForPushIsIdempotent(t *testing.T) {
	m := NewManager()
	userID := uuid.New()
	s, _ := m.Bind(userID, "device-1", "ios")

	require.True(t, m.MarkReadyForPush(s.ID))
	require.False(t, m.MarkReadyForPush(s.ID))
	require.True(t, s.IsReady())
}

func TestUnbindRemovesSession(t *testing.T) {
	m := NewManager()
	userID := uuid.New()
	s, _ := m.Bind(userID, "device-1", "ios")

	m.Unbind(s.ID)

	_, ok := m.Get(s.ID)
	require.False(t, ok)
	require.False(t, m.IsOnline(userID))
}
