package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"github.com/wirebird/crm/internal"
	"github.com/wirebird/crm/pkg/logger"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

// Mock repository for testing
type mockUserRepository struct {
	passwords map[string]string // email -> password hash
	ids       map[string]int64  // email -> user id
	users     map[int64]*User
	gate      chan struct{} // when set, GetPasswordForEmail blocks until closed
}

func newMockUserRepository() *mockUserRepository {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)

	return &mockUserRepository{
		passwords: map[string]string{
			"sales@wirebird.io":  string(hashed),
			"admin@wirebird.io":  string(hashed),
			"former@wirebird.io": string(hashed),
		},
		ids: map[string]int64{
			"sales@wirebird.io":  1,
			"admin@wirebird.io":  2,
			"former@wirebird.io": 3,
		},
		users: map[int64]*User{
			1: {ID: 1, FullName: "Sana Sales", Email: "sales@wirebird.io", Role: "Sales", Status: StatusActive},
			2: {ID: 2, FullName: "Ada Admin", Email: "admin@wirebird.io", Role: "Admin", Status: StatusActive},
			3: {ID: 3, FullName: "Frank Former", Email: "former@wirebird.io", Role: "BD", Status: StatusInactive},
		},
	}
}

func (m *mockUserRepository) GetPasswordForEmail(email string) (string, int64, error) {
	if m.gate != nil {
		<-m.gate
	}
	hash, ok := m.passwords[email]
	if !ok {
		return "", 0, errors.New("user not found")
	}
	return hash, m.ids[email], nil
}

func (m *mockUserRepository) GetUserByID(userID int64) (*User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

// Mock session store for testing
type mockSessionStore struct {
	sessions map[string]*Session
	corrupt  map[string]bool
	deleted  []string
	saveErr  error
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{
		sessions: make(map[string]*Session),
		corrupt:  make(map[string]bool),
	}
}

func (m *mockSessionStore) Save(ctx context.Context, session *Session) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	if m.corrupt[sessionID] {
		return nil, ErrSessionCorrupt
	}
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionMissing
	}
	return s, nil
}

func (m *mockSessionStore) Delete(ctx context.Context, sessionID string) error {
	m.deleted = append(m.deleted, sessionID)
	delete(m.sessions, sessionID)
	delete(m.corrupt, sessionID)
	return nil
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service  *Service
		mockRepo *mockUserRepository
		store    *mockSessionStore
		tokenGen *JWTTokenGenerator
		ctx      context.Context
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockUserRepository()
		store = newMockSessionStore()
		tokenGen = NewJWTTokenGenerator("test-access-secret", "test-refresh-secret", 15*time.Minute, 24*time.Hour)
		service = NewService(mockRepo, tokenGen, store, logger.LoggerWrapper(), bcrypt.MinCost)
		ctx = context.Background()
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.Context("when credentials are valid", func() {
			ginkgo.It("returns a session and both tokens", func() {
				session, tokens, err := service.Authenticate(ctx, LoginDTO{
					Email:    "sales@wirebird.io",
					Password: "correct_password",
				})

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(session).ToNot(gomega.BeNil())
				gomega.Expect(session.User.Role).To(gomega.Equal("Sales"))
				gomega.Expect(tokens.AccessToken).ToNot(gomega.BeEmpty())
				gomega.Expect(tokens.RefreshToken).ToNot(gomega.BeEmpty())
				gomega.Expect(tokens.AccessToken).ToNot(gomega.Equal(tokens.RefreshToken))
			})

			ginkgo.It("persists the session in the durable store", func() {
				session, _, err := service.Authenticate(ctx, LoginDTO{
					Email:    "sales@wirebird.io",
					Password: "correct_password",
				})

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(store.sessions).To(gomega.HaveKey(session.ID))
			})

			ginkgo.It("embeds the session id in the access token claims", func() {
				session, tokens, err := service.Authenticate(ctx, LoginDTO{
					Email:    "sales@wirebird.io",
					Password: "correct_password",
				})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				claims, err := tokenGen.ValidateToken(tokens.AccessToken)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(claims.SessionID).To(gomega.Equal(session.ID))
				gomega.Expect(claims.UserID).To(gomega.Equal(int64(1)))
			})

			ginkgo.It("moves the gate to authenticated", func() {
				_, _, err := service.Authenticate(ctx, LoginDTO{
					Email:    "sales@wirebird.io",
					Password: "correct_password",
				})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(service.State()).To(gomega.Equal(Authenticated))
			})
		})

		ginkgo.Context("when credentials are invalid", func() {
			ginkgo.It("fails with AuthenticationFailed for a wrong password", func() {
				_, _, err := service.Authenticate(ctx, LoginDTO{
					Email:    "sales@wirebird.io",
					Password: "wrong_password",
				})
				gomega.Expect(err).To(gomega.Equal(internal.ErrAuthenticationFailed))
				gomega.Expect(service.State()).To(gomega.Equal(Unauthenticated))
			})

			ginkgo.It("fails with AuthenticationFailed for an unknown user", func() {
				_, _, err := service.Authenticate(ctx, LoginDTO{
					Email:    "nobody@wirebird.io",
					Password: "correct_password",
				})
				gomega.Expect(err).To(gomega.Equal(internal.ErrAuthenticationFailed))
			})

			ginkgo.It("persists nothing on failure", func() {
				_, _, _ = service.Authenticate(ctx, LoginDTO{
					Email:    "sales@wirebird.io",
					Password: "wrong_password",
				})
				gomega.Expect(store.sessions).To(gomega.BeEmpty())
			})

			ginkgo.It("rejects inactive users", func() {
				_, _, err := service.Authenticate(ctx, LoginDTO{
					Email:    "former@wirebird.io",
					Password: "correct_password",
				})
				gomega.Expect(err).To(gomega.Equal(internal.ErrUserInactive))
			})

			ginkgo.It("rejects empty credentials with a validation error", func() {
				_, _, err := service.Authenticate(ctx, LoginDTO{})
				gomega.Expect(err).To(gomega.BeAssignableToTypeOf(ValidationError{}))
			})
		})

		ginkgo.Context("when a login is already in flight", func() {
			ginkgo.It("rejects the second attempt instead of interleaving", func() {
				mockRepo.gate = make(chan struct{})

				firstDone := make(chan error, 1)
				go func() {
					_, _, err := service.Authenticate(ctx, LoginDTO{
						Email:    "sales@wirebird.io",
						Password: "correct_password",
					})
					firstDone <- err
				}()

				gomega.Eventually(service.State).Should(gomega.Equal(Authenticating))

				_, _, err := service.Authenticate(ctx, LoginDTO{
					Email:    "admin@wirebird.io",
					Password: "correct_password",
				})
				gomega.Expect(err).To(gomega.Equal(internal.ErrLoginInFlight))

				close(mockRepo.gate)
				gomega.Expect(<-firstDone).ToNot(gomega.HaveOccurred())
				gomega.Expect(service.State()).To(gomega.Equal(Authenticated))
			})
		})
	})

	ginkgo.Describe("Hydrate", func() {
		ginkgo.It("returns the stored user for a valid session", func() {
			session, _, err := service.Authenticate(ctx, LoginDTO{
				Email:    "admin@wirebird.io",
				Password: "correct_password",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			user, err := service.Hydrate(ctx, session.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(user).ToNot(gomega.BeNil())
			gomega.Expect(user.Email).To(gomega.Equal("admin@wirebird.io"))
		})

		ginkgo.It("treats a corrupt stored value as unauthenticated and clears it", func() {
			store.corrupt["broken"] = true

			user, err := service.Hydrate(ctx, "broken")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(user).To(gomega.BeNil())
			gomega.Expect(store.deleted).To(gomega.ContainElement("broken"))
		})

		ginkgo.It("treats a missing session as unauthenticated", func() {
			user, err := service.Hydrate(ctx, "never-existed")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(user).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("Logout", func() {
		ginkgo.It("removes the session from durable storage", func() {
			session, _, err := service.Authenticate(ctx, LoginDTO{
				Email:    "sales@wirebird.io",
				Password: "correct_password",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(service.Logout(ctx, session.ID)).To(gomega.Succeed())
			gomega.Expect(store.sessions).ToNot(gomega.HaveKey(session.ID))
			gomega.Expect(service.State()).To(gomega.Equal(Unauthenticated))
		})
	})

	ginkgo.Describe("RefreshTokens", func() {
		ginkgo.It("issues a new pair while the session lives", func() {
			_, tokens, err := service.Authenticate(ctx, LoginDTO{
				Email:    "sales@wirebird.io",
				Password: "correct_password",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			refreshed, err := service.RefreshTokens(ctx, tokens.RefreshToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(refreshed.AccessToken).ToNot(gomega.BeEmpty())
		})

		ginkgo.It("fails once the session is gone", func() {
			session, tokens, err := service.Authenticate(ctx, LoginDTO{
				Email:    "sales@wirebird.io",
				Password: "correct_password",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(service.Logout(ctx, session.ID)).To(gomega.Succeed())

			_, err = service.RefreshTokens(ctx, tokens.RefreshToken)
			gomega.Expect(err).To(gomega.Equal(internal.ErrSessionNotFound))
		})

		ginkgo.It("rejects garbage tokens", func() {
			_, err := service.RefreshTokens(ctx, "not-a-token")
			gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidToken))
		})
	})
})
