package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func createTestSession(t *testing.T, userID int64, refreshToken string, expiresAt time.Time) uuid.UUID {
	id := uuid.New()
	err := testStore.CreateSession(context.Background(), CreateSessionParams{
		ID:           id,
		UserID:       userID,
		RefreshToken: refreshToken,
		UserAgent:    "test-agent",
		ClientIP:     "127.0.0.1",
		ExpiresAt:    expiresAt,
	})
	require.NoError(t, err)
	return id
}

func TestGetUserByRefreshToken(t *testing.T) {
	ctx := context.Background()
	userID := createTestUser(t, "sesja@test.pl")

	createTestSession(t, userID, "valid_refresh_token", time.Now().Add(time.Hour))

	user, err := testStore.GetUserByRefreshToken(ctx, "valid_refresh_token")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, userID, user.ID)

	// Nieistniejący token
	user, err = testStore.GetUserByRefreshToken(ctx, "no_such_token")
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestGetUserByExpiredRefreshToken(t *testing.T) {
	ctx := context.Background()
	userID := createTestUser(t, "wygasla_sesja@test.pl")

	createTestSession(t, userID, "expired_refresh_token", time.Now().Add(-time.Minute))

	user, err := testStore.GetUserByRefreshToken(ctx, "expired_refresh_token")
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestListAndDeleteSessions(t *testing.T) {
	ctx := context.Background()
	userID := createTestUser(t, "urzadzenia@test.pl")

	first := createTestSession(t, userID, "device_token_1", time.Now().Add(time.Hour))
	createTestSession(t, userID, "device_token_2", time.Now().Add(time.Hour))

	sessions, err := testStore.ListSessionsForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	err = testStore.DeleteSessionByID(ctx, first, userID)
	require.NoError(t, err)

	sessions, err = testStore.ListSessionsForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	err = testStore.DeleteAllSessionsForUser(ctx, userID)
	require.NoError(t, err)

	sessions, err = testStore.ListSessionsForUser(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, sessions)
}
