package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microposts/domain"
)

func TestGetProfile(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	alice := app.createUser(t, "alice")
	bob := app.createUser(t, "bob")
	post := app.createMicropost(t, bob.ID, "hello")

	_, err := app.services.Relation.Add(ctx, domain.KindFollow, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = app.services.Relation.Add(ctx, domain.KindFavorite, bob.ID, post.ID)
	require.NoError(t, err)

	rec := app.do("GET", "/users/"+itoa(bob.ID), nil, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.User
	decodeBody(t, rec, &got)
	assert.Equal(t, bob.ID, got.ID)
	assert.True(t, got.IsFollowing)
	require.NotNil(t, got.Counts)
	assert.Equal(t, domain.RelationshipCounts{Microposts: 1, Followings: 0, Followers: 1, Favorites: 1}, *got.Counts)

	// Anonymous viewers see the counts but never follow anybody.
	rec = app.do("GET", "/users/"+itoa(bob.ID), nil, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got = domain.User{}
	decodeBody(t, rec, &got)
	assert.False(t, got.IsFollowing)

	rec = app.do("GET", "/users/999", nil, alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListFollowingsAndFollowers(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	alice := app.createUser(t, "alice")
	bob := app.createUser(t, "bob")
	carol := app.createUser(t, "carol")

	for _, target := range []*domain.User{bob, carol} {
		_, err := app.services.Relation.Add(ctx, domain.KindFollow, alice.ID, target.ID)
		require.NoError(t, err)
	}
	_, err := app.services.Relation.Add(ctx, domain.KindFollow, carol.ID, bob.ID)
	require.NoError(t, err)

	rec := app.do("GET", "/users/"+itoa(alice.ID)+"/followings", nil, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var followings []domain.User
	decodeBody(t, rec, &followings)
	assert.ElementsMatch(t, []int{bob.ID, carol.ID}, userIDs(followings))

	rec = app.do("GET", "/users/"+itoa(bob.ID)+"/followers", nil, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var followers []domain.User
	decodeBody(t, rec, &followers)
	assert.ElementsMatch(t, []int{alice.ID, carol.ID}, userIDs(followers))

	rec = app.do("GET", "/users/"+itoa(alice.ID)+"/followings?limit=1", nil, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	followings = nil
	decodeBody(t, rec, &followings)
	assert.Len(t, followings, 1)

	rec = app.do("GET", "/users/"+itoa(alice.ID)+"/followings", nil, nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestListFavorites(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	alice := app.createUser(t, "alice")
	bob := app.createUser(t, "bob")
	p1 := app.createMicropost(t, bob.ID, "one")
	app.createMicropost(t, bob.ID, "two")

	_, err := app.services.Relation.Add(ctx, domain.KindFavorite, alice.ID, p1.ID)
	require.NoError(t, err)

	rec := app.do("GET", "/users/"+itoa(alice.ID)+"/favorites", nil, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var posts []domain.Micropost
	decodeBody(t, rec, &posts)
	require.Len(t, posts, 1)
	assert.Equal(t, p1.ID, posts[0].ID)
	assert.True(t, posts[0].Favorited)
}

func userIDs(users []domain.User) []int {
	ids := make([]int, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}
