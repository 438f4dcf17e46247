package service

import (
	"context"
	"testing"
	"time"

	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectAndDisconnect(t *testing.T) {
	ctx := context.Background()
	creds := repository.NewMemoryCredentialRepository()
	svc := NewPlatformService(creds, NewPublisherRegistry(&fakePublisher{platform: PlatformLinkedIn}))

	expires := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	cred, err := svc.Connect(ctx, "u1", "linkedin", &transfer.ConnectAccountRequest{
		Brand:          "acme",
		AccessToken:    "tok",
		OrganizationID: "42",
		ExpiresAt:      &expires,
	})
	require.NoError(t, err)
	assert.Equal(t, "linkedin-acme", cred.PlatformKey)

	stored, err := creds.Get(ctx, "u1", "linkedin-acme")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "tok", stored.AccessToken)
	assert.Equal(t, "42", stored.OrganizationID)
	assert.True(t, stored.ExpiresAt.Equal(expires))

	require.NoError(t, svc.Disconnect(ctx, "u1", "linkedin", "acme"))
	stored, err = creds.Get(ctx, "u1", "linkedin-acme")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestConnectValidation(t *testing.T) {
	svc := NewPlatformService(repository.NewMemoryCredentialRepository(), NewPublisherRegistry(&fakePublisher{platform: PlatformLinkedIn}))

	_, err := svc.Connect(context.Background(), "u1", "myspace", &transfer.ConnectAccountRequest{AccessToken: "tok"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Connect(context.Background(), "u1", "linkedin", &transfer.ConnectAccountRequest{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Connect(context.Background(), "u1", "linkedin", &transfer.ConnectAccountRequest{AccessToken: "tok", Brand: "a-b"})
	assert.ErrorIs(t, err, ErrValidation)
}
