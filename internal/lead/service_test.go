package lead_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wirebird/crm/internal"
	"github.com/wirebird/crm/internal/auth"
	"github.com/wirebird/crm/internal/core/events"
	"github.com/wirebird/crm/internal/lead"
	"github.com/wirebird/crm/internal/rbac"
	"github.com/wirebird/crm/internal/stage"
)

func TestLead(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Lead Service Suite")
}

type mockLeadRepository struct {
	leads       map[int64]*lead.Lead
	order       []int64
	createError error
	updateError error
	updated     []*lead.Lead
	deleted     []int64
	nextID      int64
}

func newMockLeadRepository() *mockLeadRepository {
	return &mockLeadRepository{
		leads:  make(map[int64]*lead.Lead),
		nextID: 1,
	}
}

func (m *mockLeadRepository) Create(_ context.Context, l *lead.Lead) error {
	if m.createError != nil {
		return m.createError
	}
	l.ID = m.nextID
	m.nextID++
	m.leads[l.ID] = l
	m.order = append(m.order, l.ID)
	return nil
}

func (m *mockLeadRepository) GetByID(_ context.Context, id int64) (*lead.Lead, error) {
	l, ok := m.leads[id]
	if !ok {
		return nil, lead.ErrNotFound
	}
	copied := *l
	return &copied, nil
}

func (m *mockLeadRepository) List(_ context.Context, filter lead.ListLeadsFilter) ([]*lead.Lead, error) {
	allowed := make(map[int]bool, len(filter.StageIDs))
	for _, id := range filter.StageIDs {
		allowed[id] = true
	}

	var result []*lead.Lead
	for _, id := range m.order {
		l := m.leads[id]
		if len(filter.StageIDs) > 0 && !allowed[l.StageID] {
			continue
		}
		if filter.AssignedUserID != nil && (l.AssignedUserID == nil || *l.AssignedUserID != *filter.AssignedUserID) {
			continue
		}
		result = append(result, l)
	}
	return result, nil
}

func (m *mockLeadRepository) Update(_ context.Context, l *lead.Lead) error {
	if m.updateError != nil {
		return m.updateError
	}
	copied := *l
	m.leads[l.ID] = &copied
	m.updated = append(m.updated, &copied)
	return nil
}

func (m *mockLeadRepository) Delete(_ context.Context, id int64) error {
	delete(m.leads, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]string, 0, len(b.events))
	for _, e := range b.events {
		types = append(types, e.EventType())
	}
	return types
}

func actorWithRole(role string) *auth.User {
	return &auth.User{
		ID:       42,
		FullName: "Test Actor",
		Email:    "actor@example.com",
		Role:     role,
		Status:   auth.StatusActive,
	}
}

var _ = Describe("LeadService", func() {
	var (
		repo    *mockLeadRepository
		bus     *recordingBus
		service *lead.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		repo = newMockLeadRepository()
		bus = &recordingBus{}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		service = lead.NewService(repo, rbac.NewMatrix(), bus, logger)
		ctx = context.Background()
	})

	seedLead := func(company string, stageID int) *lead.Lead {
		created, err := service.CreateLead(ctx, actorWithRole("Admin"), lead.CreateLeadDTO{
			Company:     company,
			ContactName: "Contact " + company,
			StageID:     stageID,
		})
		Expect(err).NotTo(HaveOccurred())
		return created
	}

	Describe("CreateLead", func() {
		It("creates a lead at the requested stage", func() {
			created, err := service.CreateLead(ctx, actorWithRole("Sales"), lead.CreateLeadDTO{
				Company:     "Acme Corp",
				ContactName: "Jane Roe",
				StageID:     stage.Telecalling,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).To(BeNumerically(">", 0))
			Expect(created.StageID).To(Equal(stage.Telecalling))
			Expect(created.CreatedByID).To(Equal(int64(42)))
		})

		It("defaults to the first pipeline stage when none is given", func() {
			created, err := service.CreateLead(ctx, actorWithRole("BD"), lead.CreateLeadDTO{
				Company:     "Acme Corp",
				ContactName: "Jane Roe",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(created.StageID).To(Equal(stage.Sourcing))
		})

		It("rejects a stage id outside the pipeline", func() {
			_, err := service.CreateLead(ctx, actorWithRole("BD"), lead.CreateLeadDTO{
				Company:     "Acme Corp",
				ContactName: "Jane Roe",
				StageID:     99,
			})

			Expect(err).To(HaveOccurred())
			Expect(repo.leads).To(BeEmpty())
		})

		It("denies creation for roles without the create permission", func() {
			_, err := service.CreateLead(ctx, actorWithRole("Intern"), lead.CreateLeadDTO{
				Company:     "Acme Corp",
				ContactName: "Jane Roe",
			})

			Expect(err).To(Equal(internal.ErrPermissionDenied))
			Expect(repo.leads).To(BeEmpty())
		})

		It("publishes a lead.created event", func() {
			seedLead("Acme Corp", stage.Sourcing)
			Expect(bus.Types()).To(ContainElement(events.EventTypeLeadCreated))
		})
	})

	Describe("ListLeads", func() {
		BeforeEach(func() {
			seedLead("First", stage.Sourcing)
			seedLead("Second", stage.DataEnrichment)
			seedLead("Third", stage.Sourcing)
		})

		It("returns only leads at the requested stages, order preserved", func() {
			leads, err := service.ListLeads(ctx, actorWithRole("Sales"), lead.ListLeadsFilter{
				StageIDs: []int{stage.Sourcing},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(leads).To(HaveLen(2))
			Expect(leads[0].Company).To(Equal("First"))
			Expect(leads[1].Company).To(Equal("Third"))
		})

		It("returns all leads when no stage filter is given", func() {
			leads, err := service.ListLeads(ctx, actorWithRole("Intern"), lead.ListLeadsFilter{})

			Expect(err).NotTo(HaveOccurred())
			Expect(leads).To(HaveLen(3))
		})

		It("returns an empty sequence for a stage with no leads", func() {
			leads, err := service.ListLeads(ctx, actorWithRole("Sales"), lead.ListLeadsFilter{
				StageIDs: []int{stage.ClosedWon},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(leads).To(BeEmpty())
		})
	})

	Describe("AdvanceStage", func() {
		var seeded *lead.Lead

		BeforeEach(func() {
			seeded = seedLead("Acme Corp", stage.Sourcing)
		})

		It("moves the lead to the requested stage", func() {
			moved, err := service.AdvanceStage(ctx, actorWithRole("Telecaller"), seeded.ID, lead.AdvanceStageDTO{
				StageID: stage.Demo,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(moved.StageID).To(Equal(stage.Demo))
		})

		It("allows skipping and reverting stages", func() {
			_, err := service.AdvanceStage(ctx, actorWithRole("Admin"), seeded.ID, lead.AdvanceStageDTO{
				StageID: stage.ClosedWon,
			})
			Expect(err).NotTo(HaveOccurred())

			reverted, err := service.AdvanceStage(ctx, actorWithRole("Admin"), seeded.ID, lead.AdvanceStageDTO{
				StageID: stage.Discovery,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(reverted.StageID).To(Equal(stage.Discovery))
		})

		It("rejects an unknown target stage", func() {
			_, err := service.AdvanceStage(ctx, actorWithRole("Admin"), seeded.ID, lead.AdvanceStageDTO{
				StageID: 77,
			})

			Expect(err).To(Equal(internal.ErrStageNotFound))
		})

		It("denies the move for roles without the edit permission and performs no write", func() {
			writesBefore := len(repo.updated)
			_, err := service.AdvanceStage(ctx, actorWithRole("Intern"), seeded.ID, lead.AdvanceStageDTO{
				StageID: stage.Demo,
			})

			Expect(err).To(Equal(internal.ErrPermissionDenied))
			Expect(repo.updated).To(HaveLen(writesBefore))

			unchanged, getErr := repo.GetByID(ctx, seeded.ID)
			Expect(getErr).NotTo(HaveOccurred())
			Expect(unchanged.StageID).To(Equal(stage.Sourcing))
		})

		It("publishes a lead.stage_changed event", func() {
			_, err := service.AdvanceStage(ctx, actorWithRole("Sales"), seeded.ID, lead.AdvanceStageDTO{
				StageID: stage.Proposal,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(bus.Types()).To(ContainElement(events.EventTypeLeadStageChanged))
		})

		It("returns not found for a missing lead", func() {
			_, err := service.AdvanceStage(ctx, actorWithRole("Admin"), 9999, lead.AdvanceStageDTO{
				StageID: stage.Demo,
			})

			Expect(err).To(Equal(internal.ErrLeadNotFound))
		})
	})

	Describe("AssignLead", func() {
		var seeded *lead.Lead

		BeforeEach(func() {
			seeded = seedLead("Acme Corp", stage.Sourcing)
		})

		It("assigns the lead for roles with the assign permission", func() {
			assigned, err := service.AssignLead(ctx, actorWithRole("BD"), seeded.ID, lead.AssignLeadDTO{
				AssignedUserID: 7,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(assigned.AssignedUserID).NotTo(BeNil())
			Expect(*assigned.AssignedUserID).To(Equal(int64(7)))
			Expect(bus.Types()).To(ContainElement(events.EventTypeLeadAssigned))
		})

		It("denies assignment for roles without the assign permission", func() {
			_, err := service.AssignLead(ctx, actorWithRole("Sales"), seeded.ID, lead.AssignLeadDTO{
				AssignedUserID: 7,
			})

			Expect(err).To(Equal(internal.ErrPermissionDenied))
		})
	})

	Describe("UpdateLead", func() {
		var seeded *lead.Lead

		BeforeEach(func() {
			seeded = seedLead("Acme Corp", stage.Sourcing)
		})

		It("applies partial edits and leaves other fields untouched", func() {
			notes := "spoke on the phone"
			updated, err := service.UpdateLead(ctx, actorWithRole("Telecaller"), seeded.ID, lead.UpdateLeadDTO{
				Notes: &notes,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Notes).To(Equal(notes))
			Expect(updated.Company).To(Equal("Acme Corp"))
		})

		It("rejects blanking out the company", func() {
			empty := ""
			_, err := service.UpdateLead(ctx, actorWithRole("Admin"), seeded.ID, lead.UpdateLeadDTO{
				Company: &empty,
			})

			Expect(err).To(HaveOccurred())
		})

		It("surfaces repository failures", func() {
			repo.updateError = errors.New("connection reset")
			name := "New Name"
			_, err := service.UpdateLead(ctx, actorWithRole("Admin"), seeded.ID, lead.UpdateLeadDTO{
				ContactName: &name,
			})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("DeleteLead", func() {
		It("is restricted to admins", func() {
			seeded := seedLead("Acme Corp", stage.Sourcing)

			err := service.DeleteLead(ctx, actorWithRole("BD"), seeded.ID)
			Expect(err).To(Equal(internal.ErrPermissionDenied))

			err = service.DeleteLead(ctx, actorWithRole("Admin"), seeded.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.deleted).To(ContainElement(seeded.ID))
		})
	})

	Describe("GetLead", func() {
		It("returns not found for a missing lead", func() {
			_, err := service.GetLead(ctx, actorWithRole("Admin"), 123)
			Expect(err).To(Equal(internal.ErrLeadNotFound))
		})

		It("retains timestamps set at creation", func() {
			seeded := seedLead("Acme Corp", stage.Sourcing)
			fetched, err := service.GetLead(ctx, actorWithRole("Sales"), seeded.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.CreatedAt).To(BeTemporally("~", time.Now(), time.Minute))
		})
	})
})
