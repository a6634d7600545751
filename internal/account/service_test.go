package account_test

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wirebird/crm/internal"
	"github.com/wirebird/crm/internal/account"
	"github.com/wirebird/crm/internal/auth"
	"github.com/wirebird/crm/internal/rbac"
)

func TestAccount(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Account Service Suite")
}

type mockAccountRepository struct {
	accounts map[int64]*account.Account
	order    []int64
	nextID   int64
}

func newMockAccountRepository() *mockAccountRepository {
	return &mockAccountRepository{
		accounts: make(map[int64]*account.Account),
		nextID:   1,
	}
}

func (m *mockAccountRepository) GetAll(_ context.Context, limit, offset int) ([]*account.Account, error) {
	var result []*account.Account
	for _, id := range m.order {
		result = append(result, m.accounts[id])
	}
	return result, nil
}

func (m *mockAccountRepository) GetByID(_ context.Context, id int64) (*account.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockAccountRepository) GetByName(_ context.Context, name string) (*account.Account, error) {
	for _, a := range m.accounts {
		if strings.EqualFold(a.Name, name) {
			copied := *a
			return &copied, nil
		}
	}
	return nil, account.ErrNotFound
}

func (m *mockAccountRepository) Create(_ context.Context, a *account.Account) error {
	a.ID = m.nextID
	m.nextID++
	m.accounts[a.ID] = a
	m.order = append(m.order, a.ID)
	return nil
}

func (m *mockAccountRepository) Update(_ context.Context, a *account.Account) error {
	copied := *a
	m.accounts[a.ID] = &copied
	return nil
}

func actorWithRole(role string) *auth.User {
	return &auth.User{
		ID:     7,
		Email:  "actor@example.com",
		Role:   role,
		Status: auth.StatusActive,
	}
}

var _ = Describe("AccountService", func() {
	var (
		repo    *mockAccountRepository
		service *account.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		repo = newMockAccountRepository()
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		service = account.NewService(repo, rbac.NewMatrix(), logger)
		ctx = context.Background()
	})

	Describe("CreateAccount", func() {
		It("creates an account for roles with the create permission", func() {
			created, err := service.CreateAccount(ctx, actorWithRole("BD"), account.CreateAccountDTO{
				Name:     "Acme Corp",
				Industry: "Manufacturing",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).To(BeNumerically(">", 0))
			Expect(created.CreatedAt).To(BeTemporally("~", time.Now(), time.Minute))
		})

		It("denies creation for telecallers", func() {
			_, err := service.CreateAccount(ctx, actorWithRole("Telecaller"), account.CreateAccountDTO{
				Name: "Acme Corp",
			})

			Expect(err).To(Equal(internal.ErrPermissionDenied))
			Expect(repo.accounts).To(BeEmpty())
		})

		It("rejects duplicate names case-insensitively", func() {
			_, err := service.CreateAccount(ctx, actorWithRole("Admin"), account.CreateAccountDTO{Name: "Acme Corp"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CreateAccount(ctx, actorWithRole("Admin"), account.CreateAccountDTO{Name: "ACME CORP"})
			Expect(err).To(HaveOccurred())
		})

		It("requires a name", func() {
			_, err := service.CreateAccount(ctx, actorWithRole("Admin"), account.CreateAccountDTO{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("UpdateAccount", func() {
		var seeded *account.Account

		BeforeEach(func() {
			var err error
			seeded, err = service.CreateAccount(ctx, actorWithRole("Admin"), account.CreateAccountDTO{
				Name: "Acme Corp",
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("applies partial edits", func() {
			city := "Pune"
			updated, err := service.UpdateAccount(ctx, actorWithRole("Sales"), seeded.ID, account.UpdateAccountDTO{
				City: &city,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.City).To(Equal("Pune"))
			Expect(updated.Name).To(Equal("Acme Corp"))
		})

		It("denies edits for interns", func() {
			city := "Pune"
			_, err := service.UpdateAccount(ctx, actorWithRole("Intern"), seeded.ID, account.UpdateAccountDTO{
				City: &city,
			})

			Expect(err).To(Equal(internal.ErrPermissionDenied))
		})

		It("returns not found for a missing account", func() {
			city := "Pune"
			_, err := service.UpdateAccount(ctx, actorWithRole("Admin"), 999, account.UpdateAccountDTO{
				City: &city,
			})

			Expect(err).To(Equal(internal.ErrAccountNotFound))
		})
	})

	Describe("ListAccounts", func() {
		It("is readable by every role", func() {
			_, err := service.CreateAccount(ctx, actorWithRole("Admin"), account.CreateAccountDTO{Name: "Acme Corp"})
			Expect(err).NotTo(HaveOccurred())

			for _, role := range []string{"Admin", "BD", "Sales", "Telecaller", "Intern"} {
				accounts, listErr := service.ListAccounts(ctx, actorWithRole(role), 20, 0)
				Expect(listErr).NotTo(HaveOccurred())
				Expect(accounts).To(HaveLen(1))
			}
		})
	})
})
