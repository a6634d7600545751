package postgres

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wirebird/crm/internal/lead"
	"github.com/wirebird/crm/internal/stage"
)

func TestLeadRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "LeadRepository Suite")
}

var _ = Describe("LeadRepository", func() {
	var (
		db   *gorm.DB
		repo lead.Repository
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&leadModel{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewLeadRepository(db)
		ctx = context.Background()
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		err = sqlDB.Close()
		Expect(err).NotTo(HaveOccurred())
	})

	newLead := func(company string, stageID int) *lead.Lead {
		l := &lead.Lead{
			Company:     company,
			ContactName: "Contact " + company,
			StageID:     stageID,
			CreatedByID: 1,
		}
		err := repo.Create(ctx, l)
		Expect(err).NotTo(HaveOccurred())
		return l
	}

	Describe("Create", func() {
		It("assigns an id on insert", func() {
			l := newLead("Acme Corp", stage.Sourcing)
			Expect(l.ID).To(BeNumerically(">", 0))
		})
	})

	Describe("GetByID", func() {
		It("retrieves a stored lead", func() {
			created := newLead("Acme Corp", stage.Demo)

			retrieved, err := repo.GetByID(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.Company).To(Equal("Acme Corp"))
			Expect(retrieved.StageID).To(Equal(stage.Demo))
		})

		It("returns not found for a missing id", func() {
			_, err := repo.GetByID(ctx, 9999)
			Expect(err).To(Equal(lead.ErrNotFound))
		})

		It("does not return soft-deleted leads", func() {
			created := newLead("Acme Corp", stage.Sourcing)

			err := repo.Delete(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = repo.GetByID(ctx, created.ID)
			Expect(err).To(Equal(lead.ErrNotFound))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			newLead("First", stage.Sourcing)
			newLead("Second", stage.DataEnrichment)
			newLead("Third", stage.Sourcing)
		})

		It("filters by stage ids and preserves insertion order", func() {
			leads, err := repo.List(ctx, lead.ListLeadsFilter{
				StageIDs: []int{stage.Sourcing},
				Limit:    20,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(leads).To(HaveLen(2))
			Expect(leads[0].Company).To(Equal("First"))
			Expect(leads[1].Company).To(Equal("Third"))
		})

		It("accepts multiple stage ids", func() {
			leads, err := repo.List(ctx, lead.ListLeadsFilter{
				StageIDs: []int{stage.Sourcing, stage.DataEnrichment},
				Limit:    20,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(leads).To(HaveLen(3))
		})

		It("filters by assigned user", func() {
			l := newLead("Assigned", stage.Sourcing)
			l.AssignTo(7)
			Expect(repo.Update(ctx, l)).To(Succeed())

			userID := int64(7)
			leads, err := repo.List(ctx, lead.ListLeadsFilter{
				AssignedUserID: &userID,
				Limit:          20,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(leads).To(HaveLen(1))
			Expect(leads[0].Company).To(Equal("Assigned"))
		})

		It("paginates with limit and offset", func() {
			leads, err := repo.List(ctx, lead.ListLeadsFilter{Limit: 2, Offset: 1})

			Expect(err).NotTo(HaveOccurred())
			Expect(leads).To(HaveLen(2))
			Expect(leads[0].Company).To(Equal("Second"))
		})
	})

	Describe("Update", func() {
		It("persists stage moves", func() {
			created := newLead("Acme Corp", stage.Sourcing)

			created.MoveToStage(stage.Proposal)
			Expect(repo.Update(ctx, created)).To(Succeed())

			retrieved, err := repo.GetByID(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.StageID).To(Equal(stage.Proposal))
		})
	})
})
