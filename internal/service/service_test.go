package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/warbler/config"
	"github.com/d60-Lab/warbler/internal/authz"
	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/repository"
	"github.com/d60-Lab/warbler/pkg/credential"
	"github.com/d60-Lab/warbler/pkg/database"
)

var testCfg = config.WarblerConfig{
	DefaultImageURL:       "/static/images/default-pic.png",
	DefaultHeaderImageURL: "/static/images/warbler-hero.jpg",
	ProfileMessageLimit:   100,
	TimelineLimit:         100,
	UsersPageSize:         50,
}

type WarblerSuite struct {
	suite.Suite
	ctx   context.Context
	db    *gorm.DB
	store *repository.Store

	auth  AuthService
	rel   RelationshipService
	msgs  MessageService
	users UserService

	u1, u2 *model.User
}

func TestWarblerSuite(t *testing.T) { suite.Run(t, new(WarblerSuite)) }

func (s *WarblerSuite) SetupTest() {
	db, err := database.OpenInMemory()
	s.Require().NoError(err)
	s.db = db
	s.ctx = context.Background()
	s.store = repository.NewStore(db)

	hasher := credential.NewHasher(bcrypt.MinCost)
	s.auth = NewAuthService(s.store, hasher, testCfg)
	s.rel = NewRelationshipService(s.store)
	s.msgs = NewMessageService(s.store, testCfg)
	s.users = NewUserService(s.store, hasher, testCfg)

	s.u1 = s.signup("test1", "test1@test.com", "password")
	s.u2 = s.signup("test2", "test2@test.com", "password")
}

func (s *WarblerSuite) TearDownTest() { _ = database.Close(s.db) }

func (s *WarblerSuite) signup(username, email, password string) *model.User {
	u, err := s.auth.Signup(s.ctx, SignupInput{Username: username, Email: email, Password: password})
	s.Require().NoError(err)
	return u
}

func (s *WarblerSuite) count(v interface{}) int64 {
	var n int64
	s.Require().NoError(s.db.Model(v).Count(&n).Error)
	return n
}

// ---- user model ----

func (s *WarblerSuite) TestFreshUserHasNoRelations() {
	u := s.signup("testuser", "test@test.com", "testing")

	msgs, err := s.msgs.ListByUser(s.ctx, u.ID, 0)
	s.Require().NoError(err)
	s.Empty(msgs)
	liked, err := s.msgs.LikedMessages(s.ctx, u.ID, 0)
	s.Require().NoError(err)
	s.Empty(liked)
	followers, err := s.rel.ListFollowers(s.ctx, u.ID, 1, 10)
	s.Require().NoError(err)
	s.Empty(followers)
	following, err := s.rel.ListFollowing(s.ctx, u.ID, 1, 10)
	s.Require().NoError(err)
	s.Empty(following)
}

func (s *WarblerSuite) TestUserString() {
	u := &model.User{Username: "testuser", Email: "test@test.com"}
	s.Equal("<User #nil: testuser, test@test.com>", u.String())
	s.Equal("<User #1: test1, test1@test.com>", s.u1.String())
}

// ---- signup ----

func (s *WarblerSuite) TestValidSignup() {
	u := s.signup("valid", "valid@test.com", "password")
	s.NotZero(u.ID)
	s.Equal("valid", u.Username)
	s.Equal("valid@test.com", u.Email)
	s.NotEqual("password", u.Password)
	s.Equal(testCfg.DefaultImageURL, u.ImageURL)
	s.Equal(testCfg.DefaultHeaderImageURL, u.HeaderImageURL)

	got, ok, err := s.auth.Authenticate(s.ctx, "valid", "password")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(u.ID, got.ID)
}

func (s *WarblerSuite) TestSignupKeepsGivenImage() {
	u, err := s.auth.Signup(s.ctx, SignupInput{Username: "pic", Email: "pic@test.com", Password: "password", ImageURL: "https://www.test.com"})
	s.Require().NoError(err)
	s.Equal("https://www.test.com", u.ImageURL)
}

func (s *WarblerSuite) TestSignupIntegrityViolations() {
	cases := []struct {
		name  string
		in    SignupInput
		field string
	}{
		{"duplicate username", SignupInput{Username: "test1", Email: "valid@test.com", Password: "password"}, "username"},
		{"duplicate email", SignupInput{Username: "valid", Email: "test1@test.com", Password: "password"}, "email"},
		{"missing username", SignupInput{Email: "valid@test.com", Password: "password"}, "username"},
		{"missing email", SignupInput{Username: "valid", Password: "password"}, "email"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			before := s.count(&model.User{})
			_, err := s.auth.Signup(s.ctx, tc.in)
			s.Require().ErrorIs(err, ErrUniqueViolation)
			var ie *IntegrityError
			s.Require().True(errors.As(err, &ie))
			s.Equal(tc.field, ie.Field)
			s.Equal(before, s.count(&model.User{}))
		})
	}

	// 失败后连接仍可正常提交
	s.signup("valid", "valid@test.com", "password")
}

func (s *WarblerSuite) TestSignupEmptyPassword() {
	// the password check runs first even when other fields are also invalid
	_, err := s.auth.Signup(s.ctx, SignupInput{Username: "test1", Email: "valid@test.com"})
	s.ErrorIs(err, ErrInvalidCredential)
}

func (s *WarblerSuite) TestSignupInvalidEmail() {
	_, err := s.auth.Signup(s.ctx, SignupInput{Username: "valid", Email: "not-an-email", Password: "password"})
	var ve *ValidationError
	s.Require().True(errors.As(err, &ve))
	s.Equal("email", ve.Field)
}

func (s *WarblerSuite) TestSignupOverlongPassword() {
	cases := map[string]string{
		"ascii":     strings.Repeat("p", 73),
		"multibyte": strings.Repeat("密", 25), // 25 runes, 75 bytes
	}
	for name, pw := range cases {
		s.Run(name, func() {
			_, err := s.auth.Signup(s.ctx, SignupInput{Username: "long", Email: "long@test.com", Password: pw})
			var ve *ValidationError
			s.Require().True(errors.As(err, &ve), "got %v", err)
			s.Equal("password", ve.Field)
		})
	}
	s.Equal(int64(2), s.count(&model.User{}))

	u := s.signup("long", "long@test.com", strings.Repeat("p", 72))
	_, ok, err := s.auth.Authenticate(s.ctx, u.Username, strings.Repeat("p", 72))
	s.Require().NoError(err)
	s.True(ok)
}

// ---- authenticate ----

func (s *WarblerSuite) TestAuthenticate() {
	u, ok, err := s.auth.Authenticate(s.ctx, "test1", "password")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(s.u1.Username, u.Username)
	s.Equal(s.u1.Email, u.Email)

	badPw, okPw, err := s.auth.Authenticate(s.ctx, "test1", "invalid")
	s.Require().NoError(err)
	badUser, okUser, err := s.auth.Authenticate(s.ctx, "invalid", "password")
	s.Require().NoError(err)

	s.False(okPw)
	s.False(okUser)
	s.Nil(badPw)
	s.Nil(badUser)
}

// ---- following ----

func (s *WarblerSuite) TestFollow() {
	s.Require().NoError(s.rel.Follow(s.ctx, authz.Authenticated(s.u1.ID), s.u2.ID))

	following, err := s.rel.ListFollowing(s.ctx, s.u1.ID, 1, 10)
	s.Require().NoError(err)
	followers, err := s.rel.ListFollowers(s.ctx, s.u2.ID, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(following, 1)
	s.Require().Len(followers, 1)
	s.Equal(s.u2.ID, following[0].ID)
	s.Equal(s.u1.ID, followers[0].ID)

	none, err := s.rel.ListFollowers(s.ctx, s.u1.ID, 1, 10)
	s.Require().NoError(err)
	s.Empty(none)
	none, err = s.rel.ListFollowing(s.ctx, s.u2.ID, 1, 10)
	s.Require().NoError(err)
	s.Empty(none)

	s.True(s.mustBool(s.rel.IsFollowing(s.ctx, s.u1.ID, s.u2.ID)))
	s.False(s.mustBool(s.rel.IsFollowing(s.ctx, s.u2.ID, s.u1.ID)))
	s.True(s.mustBool(s.rel.IsFollowedBy(s.ctx, s.u2.ID, s.u1.ID)))
	s.False(s.mustBool(s.rel.IsFollowedBy(s.ctx, s.u1.ID, s.u2.ID)))

	s.Require().NoError(s.rel.Unfollow(s.ctx, authz.Authenticated(s.u1.ID), s.u2.ID))
	s.False(s.mustBool(s.rel.IsFollowing(s.ctx, s.u1.ID, s.u2.ID)))
}

func (s *WarblerSuite) TestFollowRejections() {
	s.ErrorIs(s.rel.Follow(s.ctx, authz.Anonymous(), s.u2.ID), ErrUnauthorized)
	s.ErrorIs(s.rel.Follow(s.ctx, authz.Authenticated(999), s.u2.ID), ErrUnauthorized)
	s.ErrorIs(s.rel.Follow(s.ctx, authz.Authenticated(s.u1.ID), s.u1.ID), ErrFollowSelf)
	s.ErrorIs(s.rel.Follow(s.ctx, authz.Authenticated(s.u1.ID), 999), ErrNotFound)
	s.ErrorIs(s.rel.Unfollow(s.ctx, authz.Anonymous(), s.u2.ID), ErrUnauthorized)
	s.Zero(s.count(&model.Follow{}))

	_, err := s.rel.ListFollowers(s.ctx, 999, 1, 10)
	s.ErrorIs(err, ErrNotFound)
}

func (s *WarblerSuite) mustBool(b bool, err error) bool {
	s.Require().NoError(err)
	return b
}

// ---- messages ----

func (s *WarblerSuite) TestMessageAndLike() {
	m, err := s.msgs.Create(s.ctx, authz.Authenticated(s.u1.ID), "Testing testing")
	s.Require().NoError(err)
	s.NotZero(m.ID)
	s.Equal(s.u1.ID, m.UserID)
	s.Equal("UTC", m.Timestamp.Location().String())

	msgs, err := s.msgs.ListByUser(s.ctx, s.u1.ID, 0)
	s.Require().NoError(err)
	s.Require().Len(msgs, 1)
	s.Equal("Testing testing", msgs[0].Text)

	s.Require().NoError(s.msgs.Like(s.ctx, authz.Authenticated(s.u2.ID), m.ID))
	s.Require().NoError(s.msgs.Like(s.ctx, authz.Authenticated(s.u2.ID), m.ID))
	s.Equal(int64(1), s.count(&model.Like{}))

	liked, err := s.msgs.LikedMessages(s.ctx, s.u2.ID, 0)
	s.Require().NoError(err)
	s.Require().Len(liked, 1)
	s.Equal(m.ID, liked[0].ID)

	s.Require().NoError(s.msgs.Unlike(s.ctx, authz.Authenticated(s.u2.ID), m.ID))
	s.Zero(s.count(&model.Like{}))
}

func (s *WarblerSuite) TestToggleLike() {
	m, err := s.msgs.Create(s.ctx, authz.Authenticated(s.u1.ID), "toggle me")
	s.Require().NoError(err)

	liked, err := s.msgs.ToggleLike(s.ctx, authz.Authenticated(s.u2.ID), m.ID)
	s.Require().NoError(err)
	s.True(liked)
	liked, err = s.msgs.ToggleLike(s.ctx, authz.Authenticated(s.u2.ID), m.ID)
	s.Require().NoError(err)
	s.False(liked)

	_, err = s.msgs.ToggleLike(s.ctx, authz.Authenticated(s.u1.ID), m.ID)
	s.ErrorIs(err, ErrUnauthorized, "own message")
	_, err = s.msgs.ToggleLike(s.ctx, authz.Anonymous(), m.ID)
	s.ErrorIs(err, ErrUnauthorized)
	_, err = s.msgs.ToggleLike(s.ctx, authz.Authenticated(s.u2.ID), 999)
	s.ErrorIs(err, ErrNotFound)
	s.Zero(s.count(&model.Like{}))
}

func (s *WarblerSuite) TestCreateMessageUnauthorized() {
	before := s.count(&model.Message{})

	_, err := s.msgs.Create(s.ctx, authz.Anonymous(), "Hello")
	s.ErrorIs(err, ErrUnauthorized)
	_, err = s.msgs.Create(s.ctx, authz.Authenticated(23456789), "Hello")
	s.ErrorIs(err, ErrUnauthorized)

	s.Equal(before, s.count(&model.Message{}))
}

func (s *WarblerSuite) TestCreateMessageValidation() {
	_, err := s.msgs.Create(s.ctx, authz.Authenticated(s.u1.ID), strings.Repeat("a", 141))
	var ve *ValidationError
	s.Require().True(errors.As(err, &ve))
	s.Equal("text", ve.Field)

	_, err = s.msgs.Create(s.ctx, authz.Authenticated(s.u1.ID), "")
	s.True(errors.As(err, &ve))

	// 140 个多字节字符仍然合法
	_, err = s.msgs.Create(s.ctx, authz.Authenticated(s.u1.ID), strings.Repeat("é", 140))
	s.NoError(err)
}

func (s *WarblerSuite) TestDeleteMessage() {
	m, err := s.msgs.Create(s.ctx, authz.Authenticated(s.u1.ID), "Test test test")
	s.Require().NoError(err)

	s.ErrorIs(s.msgs.Delete(s.ctx, authz.Anonymous(), m.ID), ErrUnauthorized)
	s.ErrorIs(s.msgs.Delete(s.ctx, authz.Authenticated(234567890987654), m.ID), ErrUnauthorized)
	s.ErrorIs(s.msgs.Delete(s.ctx, authz.Authenticated(s.u2.ID), m.ID), ErrUnauthorized)
	got, err := s.msgs.Get(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(m.Text, got.Text)

	s.Require().NoError(s.msgs.Delete(s.ctx, authz.Authenticated(s.u1.ID), m.ID))
	_, err = s.msgs.Get(s.ctx, m.ID)
	s.ErrorIs(err, ErrNotFound)
	s.ErrorIs(s.msgs.Delete(s.ctx, authz.Authenticated(s.u1.ID), m.ID), ErrNotFound)
}

func (s *WarblerSuite) TestDeleteLikedMessageRemovesLikes() {
	m, err := s.msgs.Create(s.ctx, authz.Authenticated(s.u1.ID), "liked then gone")
	s.Require().NoError(err)
	s.Require().NoError(s.msgs.Like(s.ctx, authz.Authenticated(s.u2.ID), m.ID))

	d, err := s.users.Detail(s.ctx, s.u2.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), d.LikeCount)

	s.Require().NoError(s.msgs.Delete(s.ctx, authz.Authenticated(s.u1.ID), m.ID))

	s.Zero(s.count(&model.Like{}))
	d, err = s.users.Detail(s.ctx, s.u2.ID)
	s.Require().NoError(err)
	s.Zero(d.LikeCount)
	liked, err := s.msgs.LikedMessages(s.ctx, s.u2.ID, 0)
	s.Require().NoError(err)
	s.Empty(liked)
}

func (s *WarblerSuite) TestTimeline() {
	u3 := s.signup("test3", "test3@test.com", "password")
	_, err := s.msgs.Create(s.ctx, authz.Authenticated(s.u1.ID), "mine")
	s.Require().NoError(err)
	_, err = s.msgs.Create(s.ctx, authz.Authenticated(s.u2.ID), "followed")
	s.Require().NoError(err)
	_, err = s.msgs.Create(s.ctx, authz.Authenticated(u3.ID), "stranger")
	s.Require().NoError(err)
	s.Require().NoError(s.rel.Follow(s.ctx, authz.Authenticated(s.u1.ID), s.u2.ID))

	tl, err := s.msgs.Timeline(s.ctx, authz.Authenticated(s.u1.ID))
	s.Require().NoError(err)
	s.Require().Len(tl, 2)
	texts := []string{tl[0].Text, tl[1].Text}
	s.ElementsMatch([]string{"mine", "followed"}, texts)

	_, err = s.msgs.Timeline(s.ctx, authz.Anonymous())
	s.ErrorIs(err, ErrUnauthorized)
}

// ---- users ----

func (s *WarblerSuite) TestListUsers() {
	all, err := s.users.List(s.ctx, "", 1, 0)
	s.Require().NoError(err)
	s.Len(all, 2)

	res, err := s.users.List(s.ctx, "test1", 1, 0)
	s.Require().NoError(err)
	s.Require().Len(res, 1)
	s.Equal("test1", res[0].Username)

	res, err = s.users.List(s.ctx, "TEST", 1, 0)
	s.Require().NoError(err)
	s.Empty(res)
}

func (s *WarblerSuite) TestDetail() {
	_, err := s.msgs.Create(s.ctx, authz.Authenticated(s.u2.ID), "Message about testing")
	s.Require().NoError(err)
	m1, err := s.msgs.Create(s.ctx, authz.Authenticated(s.u1.ID), "Testing testing")
	s.Require().NoError(err)
	s.Require().NoError(s.rel.Follow(s.ctx, authz.Authenticated(s.u1.ID), s.u2.ID))
	s.Require().NoError(s.msgs.Like(s.ctx, authz.Authenticated(s.u2.ID), m1.ID))

	d, err := s.users.Detail(s.ctx, s.u2.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), d.MessageCount)
	s.Equal(int64(1), d.FollowerCount)
	s.Equal(int64(0), d.FollowingCount)
	s.Equal(int64(1), d.LikeCount)
	s.Require().Len(d.Messages, 1)
	s.Equal("Message about testing", d.Messages[0].Text)

	_, err = s.users.Detail(s.ctx, 999)
	s.ErrorIs(err, ErrNotFound)
}

func (s *WarblerSuite) TestUpdateProfile() {
	bio := "I am the ultimate test champion."
	empty := ""
	u, err := s.users.UpdateProfile(s.ctx, authz.Authenticated(s.u2.ID), "password", ProfileUpdate{Bio: &bio, ImageURL: &empty})
	s.Require().NoError(err)
	s.Equal(bio, u.Bio)
	s.Equal(testCfg.DefaultImageURL, u.ImageURL)

	_, err = s.users.UpdateProfile(s.ctx, authz.Authenticated(s.u2.ID), "wrong", ProfileUpdate{Bio: &empty})
	s.ErrorIs(err, ErrUnauthorized)

	name := "test1"
	_, err = s.users.UpdateProfile(s.ctx, authz.Authenticated(s.u2.ID), "password", ProfileUpdate{Username: &name})
	s.ErrorIs(err, ErrUniqueViolation)

	got, err := s.users.Get(s.ctx, s.u2.ID)
	s.Require().NoError(err)
	s.Equal("test2", got.Username)
	s.Equal(bio, got.Bio)
}

func (s *WarblerSuite) TestDeleteUserCascades() {
	m1, err := s.msgs.Create(s.ctx, authz.Authenticated(s.u1.ID), "by u1")
	s.Require().NoError(err)
	m2, err := s.msgs.Create(s.ctx, authz.Authenticated(s.u2.ID), "by u2")
	s.Require().NoError(err)
	s.Require().NoError(s.rel.Follow(s.ctx, authz.Authenticated(s.u1.ID), s.u2.ID))
	s.Require().NoError(s.rel.Follow(s.ctx, authz.Authenticated(s.u2.ID), s.u1.ID))
	s.Require().NoError(s.msgs.Like(s.ctx, authz.Authenticated(s.u1.ID), m2.ID))
	s.Require().NoError(s.msgs.Like(s.ctx, authz.Authenticated(s.u2.ID), m1.ID))

	s.ErrorIs(s.users.Delete(s.ctx, authz.Anonymous()), ErrUnauthorized)
	s.Require().NoError(s.users.Delete(s.ctx, authz.Authenticated(s.u1.ID)))

	_, err = s.msgs.Get(s.ctx, m1.ID)
	s.ErrorIs(err, ErrNotFound)
	s.Zero(s.count(&model.Follow{}))
	s.Zero(s.count(&model.Like{}))
	s.Equal(int64(1), s.count(&model.Message{}))

	s.ErrorIs(s.users.Delete(s.ctx, authz.Authenticated(s.u1.ID)), ErrUnauthorized)
}

func TestIntegrityErrorMessage(t *testing.T) {
	err := taken("email")
	assert.EqualError(t, err, "integrity constraint violated: email already taken")
	assert.ErrorIs(t, err, ErrUniqueViolation)
	require.EqualError(t, &IntegrityError{Reason: "already taken"}, "integrity constraint violated: already taken")
}

func TestPaginate(t *testing.T) {
	off, lim := paginate(0, 0)
	assert.Equal(t, 0, off)
	assert.Equal(t, 10, lim)
	off, lim = paginate(3, 20)
	assert.Equal(t, 40, off)
	assert.Equal(t, 20, lim)
}
