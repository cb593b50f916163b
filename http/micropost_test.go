package http

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microposts/domain"
)

func TestCreateMicropost(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser(t, "alice")
	bob := app.createUser(t, "bob")

	// The author comes from the session, not from the body.
	rec := app.do("POST", "/microposts", domain.Micropost{UserID: bob.ID, Content: "hello"}, alice, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var post domain.Micropost
	decodeBody(t, rec, &post)
	assert.NotZero(t, post.ID)
	assert.Equal(t, alice.ID, post.UserID)

	rec = app.do("POST", "/microposts", domain.Micropost{Content: strings.Repeat("a", domain.MaxContentLength+1)}, alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do("POST", "/microposts", domain.Micropost{Content: "hello"}, nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestDeleteMicropost(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	alice := app.createUser(t, "alice")
	bob := app.createUser(t, "bob")
	post := app.createMicropost(t, alice.ID, "bye")

	_, err := app.services.Relation.Add(ctx, domain.KindFavorite, bob.ID, post.ID)
	require.NoError(t, err)

	rec := app.do("DELETE", "/microposts/"+itoa(post.ID), nil, bob, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do("DELETE", "/microposts/"+itoa(post.ID), nil, alice, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	exists, err := app.services.Relation.Exists(ctx, domain.KindFavorite, bob.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	rec = app.do("DELETE", "/microposts/"+itoa(post.ID), nil, alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeed(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	alice := app.createUser(t, "alice")
	bob := app.createUser(t, "bob")
	carol := app.createUser(t, "carol")
	own := app.createMicropost(t, alice.ID, "mine")
	followed := app.createMicropost(t, bob.ID, "from bob")
	app.createMicropost(t, carol.ID, "from carol")

	_, err := app.services.Relation.Add(ctx, domain.KindFollow, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = app.services.Relation.Add(ctx, domain.KindFavorite, alice.ID, followed.ID)
	require.NoError(t, err)

	rec := app.do("GET", "/feed", nil, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var feed []domain.Micropost
	decodeBody(t, rec, &feed)
	require.Len(t, feed, 2)
	assert.Equal(t, followed.ID, feed[0].ID)
	assert.True(t, feed[0].Favorited)
	assert.Equal(t, own.ID, feed[1].ID)
	assert.False(t, feed[1].Favorited)

	rec = app.do("GET", "/feed?limit=x", nil, alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
