package repositories

import (
	"testing"

	"github.com/stretchr/testify/require"

	"echoforge/domain"
	"echoforge/errors"
)

func TestChannelRepository_CreateChannel(t *testing.T) {
	db := newTestDB(t)
	repo, err := NewChannelRepository(db)
	require.NoError(t, err)
	defer repo.Close()

	t.Run("should persist the channel with its creator as first member", func(t *testing.T) {
		req := require.New(t)

		channel, err := repo.CreateChannel("general", "everything else", domain.ChannelText, true, 1)

		req.NoError(err)
		req.Positive(channel.ID)
		req.Equal("general", channel.Name)
		req.Equal(int64(1), channel.CreatorID)

		member, err := repo.IsChannelMember(1, channel.ID)
		req.NoError(err)
		req.True(member)
	})
}

func TestChannelRepository_Membership(t *testing.T) {
	db := newTestDB(t)
	repo, err := NewChannelRepository(db)
	require.NoError(t, err)
	defer repo.Close()

	t.Run("should add and list members", func(t *testing.T) {
		req := require.New(t)

		channel, err := repo.CreateChannel("general", "", domain.ChannelText, true, 1)
		req.NoError(err)

		req.NoError(repo.AddMember(channel.ID, 2))
		req.NoError(repo.AddMember(channel.ID, 3))
		// Adding twice is harmless.
		req.NoError(repo.AddMember(channel.ID, 2))

		members, err := repo.Members(channel.ID)
		req.NoError(err)
		req.ElementsMatch([]int64{1, 2, 3}, members)

		member, err := repo.IsChannelMember(2, channel.ID)
		req.NoError(err)
		req.True(member)

		member, err = repo.IsChannelMember(99, channel.ID)
		req.NoError(err)
		req.False(member)
	})

	t.Run("should refuse members on an unknown channel", func(t *testing.T) {
		req := require.New(t)
		req.ErrorIs(repo.AddMember(9999, 2), errors.ErrChannelNotFound)
	})
}

func TestChannelRepository_GetChannel(t *testing.T) {
	db := newTestDB(t)
	repo, err := NewChannelRepository(db)
	require.NoError(t, err)
	defer repo.Close()

	t.Run("should round-trip a stored channel", func(t *testing.T) {
		req := require.New(t)

		created, err := repo.CreateChannel("voice-lounge", "hang out", domain.ChannelVoice, false, 1)
		req.NoError(err)

		stored, err := repo.GetChannel(created.ID)
		req.NoError(err)
		req.Equal(created.ID, stored.ID)
		req.Equal(domain.ChannelVoice, stored.Type)
		req.False(stored.IsPublic)
	})

	t.Run("should return not found for an unknown id", func(t *testing.T) {
		req := require.New(t)
		_, err := repo.GetChannel(9999)
		req.ErrorIs(err, errors.ErrChannelNotFound)
	})
}
