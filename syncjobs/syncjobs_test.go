package syncjobs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"coolbot/database"
	"coolbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *database.Store {
	t.Helper()
	s, err := database.InitDB(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDocsSyncConditionalGet(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		fmt.Fprint(w, `[{"name":"Install","link":"https://docs/install"},{"name":" ","link":"x"},{"name":"Backup","link":"https://docs/backup"}]`)
	}))
	defer srv.Close()

	ctx := context.Background()
	store := openStore(t)
	d := NewDocsSyncer(srv.Client(), srv.URL, store)

	updated, status := d.Sync(ctx)
	require.Empty(t, status.Error)
	assert.True(t, updated)
	assert.False(t, status.UsedETagHeader)
	assert.Equal(t, http.StatusOK, status.ResponseStatus)
	assert.Equal(t, `"v1"`, status.ResponseETag)
	assert.Equal(t, 2, status.DocsCount)

	docs, err := store.Docs(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Backup", docs[0].Name)

	updated, status = d.Sync(ctx)
	require.Empty(t, status.Error)
	assert.False(t, updated)
	assert.True(t, status.UsedETagHeader)
	assert.Equal(t, `"v1"`, status.CurrentETag)
	assert.Equal(t, http.StatusNotModified, status.ResponseStatus)
	assert.EqualValues(t, 2, hits.Load())

	docs, err = store.Docs(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestDocsSyncFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	require.NoError(t, store.ReplaceDocs(ctx, []models.DocEntry{{Name: "Old", Link: "https://old"}}, `"v0"`))

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			want:    "unexpected status 502",
		},
		{
			name:    "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{not json`) },
			want:    "decode docs",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			updated, status := NewDocsSyncer(srv.Client(), srv.URL, store).Sync(ctx)
			assert.False(t, updated)
			assert.Contains(t, status.Error, tt.want)

			docs, err := store.Docs(ctx)
			require.NoError(t, err)
			require.Len(t, docs, 1)
			assert.Equal(t, "Old", docs[0].Name)
			etag, err := store.DocsETag(ctx)
			require.NoError(t, err)
			assert.Equal(t, `"v0"`, etag)
		})
	}
}

func TestContributorSync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		switch r.URL.Path {
		case "/repos/org/app/contributors":
			switch r.URL.Query().Get("page") {
			case "1":
				fmt.Fprint(w, `[{"login":"alice"},{"login":"bob"}]`)
			case "2":
				fmt.Fprint(w, `[{"login":"carol"}]`)
			default:
				fmt.Fprint(w, `[]`)
			}
		case "/repos/org/docs/contributors":
			if r.URL.Query().Get("page") == "1" {
				fmt.Fprint(w, `[{"login":"alice"}]`)
				return
			}
			fmt.Fprint(w, `[]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	store := openStore(t)
	s := NewContributorSyncer(NewGitHub(srv.Client(), srv.URL), []string{"org/app", "org/docs", "org/missing", " "}, store)

	status, err := s.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, status.Repos)
	assert.Equal(t, 3, status.Pages)
	assert.Equal(t, 4, status.Seen)
	assert.Equal(t, 4, status.Inserted)
	require.Len(t, status.RepoErrors, 1)
	assert.True(t, strings.HasPrefix(status.RepoErrors[0], "org/missing:"))

	n, err := store.ContributorCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	status, err = s.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, status.Seen)
	assert.Zero(t, status.Inserted)
}

type githubStub struct {
	bios map[string]string
}

func (g githubStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	login := strings.TrimPrefix(r.URL.Path, "/users/")
	bio, ok := g.bios[login]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
		return
	}
	if bio == "" {
		fmt.Fprint(w, `{"login":"`+login+`","bio":null}`)
		return
	}
	fmt.Fprintf(w, `{"login":%q,"bio":%q}`, login, bio)
}

func TestVerifier(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }

	setup := func(t *testing.T, bios map[string]string) (*Verifier, *database.Store) {
		srv := httptest.NewServer(githubStub{bios: bios})
		t.Cleanup(srv.Close)
		store := openStore(t)
		_, err := store.AddContributor(ctx, "Alice", "org/app")
		require.NoError(t, err)
		return NewVerifier(NewGitHub(srv.Client(), srv.URL), store, clock), store
	}

	t.Run("issue", func(t *testing.T) {
		v, store := setup(t, nil)
		tok, err := v.Issue(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, tok.Token, TokenLength)
		assert.Regexp(t, `^[A-Za-z0-9]+$`, tok.Token)
		assert.Equal(t, now.Add(TokenTTL), tok.ExpiresAt)

		stored, err := store.VerificationToken(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, tok.Token, stored.Token)
	})

	t.Run("success consumes token", func(t *testing.T) {
		v, store := setup(t, map[string]string{})
		tok, err := v.Issue(ctx, "u1")
		require.NoError(t, err)
		srv := httptest.NewServer(githubStub{bios: map[string]string{"alice": "hi " + tok.Token}})
		defer srv.Close()
		v.gh = NewGitHub(srv.Client(), srv.URL)

		require.NoError(t, v.Verify(ctx, "u1", " alice "))
		_, err = store.VerificationToken(ctx, "u1")
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("failures", func(t *testing.T) {
		v, store := setup(t, map[string]string{"alice": "nothing here", "mallory": "TOKEN"})
		require.NoError(t, store.SetVerificationToken(ctx, models.VerificationToken{
			UserID: "u1", Token: "TOKEN", ExpiresAt: now.Add(time.Hour),
		}))

		assert.ErrorIs(t, v.Verify(ctx, "nobody", "alice"), ErrNoToken)
		assert.ErrorIs(t, v.Verify(ctx, "u1", "ghost"), ErrUserNotFound)
		assert.ErrorIs(t, v.Verify(ctx, "u1", "alice"), ErrTokenNotInBio)
		assert.ErrorIs(t, v.Verify(ctx, "u1", "mallory"), ErrNotContributor)

		_, err := store.VerificationToken(ctx, "u1")
		assert.NoError(t, err, "failed attempts keep the token")
	})

	t.Run("expired", func(t *testing.T) {
		v, store := setup(t, map[string]string{"alice": "TOKEN"})
		require.NoError(t, store.SetVerificationToken(ctx, models.VerificationToken{
			UserID: "u1", Token: "TOKEN", ExpiresAt: now,
		}))
		assert.ErrorIs(t, v.Verify(ctx, "u1", "alice"), ErrTokenExpired)
		_, err := store.VerificationToken(ctx, "u1")
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("purge", func(t *testing.T) {
		v, store := setup(t, nil)
		require.NoError(t, store.SetVerificationToken(ctx, models.VerificationToken{UserID: "old", Token: "a", ExpiresAt: now.Add(-time.Minute)}))
		require.NoError(t, store.SetVerificationToken(ctx, models.VerificationToken{UserID: "new", Token: "b", ExpiresAt: now.Add(time.Minute)}))
		n, err := v.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})
}
