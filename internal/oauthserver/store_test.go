package oauthserver

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumeCode_ExactlyOnceUnderConcurrency(t *testing.T) {
	store := NewStore()
	defer store.Stop()

	store.SaveCode(&AuthorizationCode{Code: "abc", ExpiresAt: time.Now().Add(time.Minute)})

	const n = 50
	var wg sync.WaitGroup
	successes := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.ConsumeCode("abc"); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestConsumeCode_Expired(t *testing.T) {
	store := NewStore()
	defer store.Stop()

	store.SaveCode(&AuthorizationCode{Code: "expired", ExpiresAt: time.Now().Add(-time.Second)})

	_, err := store.ConsumeCode("expired")
	var invalidGrant *ErrInvalidGrant
	require.ErrorAs(t, err, &invalidGrant)
}

func TestConsumeRefreshToken_RevokesPriorAccessToken(t *testing.T) {
	store := NewStore()
	defer store.Stop()

	store.SaveAccessToken(&AccessToken{Token: "at1", ExpiresAt: time.Now().Add(time.Hour)})
	store.SaveRefreshToken(&RefreshToken{Token: "rt1", LastAccessToken: "at1"})

	_, err := store.ConsumeRefreshToken("rt1")
	require.NoError(t, err)

	_, found := store.GetAccessToken("at1")
	assert.False(t, found)

	_, err = store.ConsumeRefreshToken("rt1")
	require.Error(t, err)
}

func TestLookupPluginTokenByUser(t *testing.T) {
	store := NewStore()
	defer store.Stop()

	store.SavePluginToken(&PluginToken{ID: "p1", UserID: "alice"})

	found, ok := store.LookupPluginTokenByUser("alice")
	require.True(t, ok)
	assert.Equal(t, "p1", found.ID)

	_, ok = store.LookupPluginTokenByUser("bob")
	assert.False(t, ok)
}

func TestConsumePendingAuth_SingleUse(t *testing.T) {
	store := NewStore()
	defer store.Stop()

	store.SavePendingAuth(&PendingAuth{UpstreamState: "state1", ExpiresAt: time.Now().Add(time.Minute)})

	_, err := store.ConsumePendingAuth("state1")
	require.NoError(t, err)

	_, err = store.ConsumePendingAuth("state1")
	var notFound *ErrPendingAuthNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestGetAccessToken_ExpiredIsInvisible(t *testing.T) {
	store := NewStore()
	defer store.Stop()

	store.SaveAccessToken(&AccessToken{Token: "at", ExpiresAt: time.Now().Add(-time.Minute)})

	_, ok := store.GetAccessToken("at")
	assert.False(t, ok)
}

func TestRevokeAccessToken_NeverErrors(t *testing.T) {
	store := NewStore()
	defer store.Stop()

	store.RevokeAccessToken("never-existed") // must not panic

	store.SaveAccessToken(&AccessToken{Token: "at", ExpiresAt: time.Now().Add(time.Hour)})
	store.RevokeAccessToken("at")
	_, ok := store.GetAccessToken("at")
	assert.False(t, ok)
}
