package routines_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"maestro.app/gateway/internal/model"
	"maestro.app/gateway/internal/routines"
)

type fakeStore struct {
	listFn   func(ctx context.Context) ([]model.Routine, error)
	getFn    func(ctx context.Context, id string) (model.Routine, error)
	putFn    func(ctx context.Context, routine model.Routine) error
	deleteFn func(ctx context.Context, id string) error

	putCalls int
}

func (f *fakeStore) List(ctx context.Context) ([]model.Routine, error) {
	return f.listFn(ctx)
}

func (f *fakeStore) Get(ctx context.Context, id string) (model.Routine, error) {
	return f.getFn(ctx, id)
}

func (f *fakeStore) Put(ctx context.Context, routine model.Routine) error {
	f.putCalls++
	return f.putFn(ctx, routine)
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	return f.deleteFn(ctx, id)
}

var _ = Describe("Service", func() {
	var (
		store   *fakeStore
		service *routines.Service
	)

	BeforeEach(func() {
		store = &fakeStore{}
		service = routines.NewService(store)
	})

	Describe("Create", func() {
		It("fills defaults around the required name", func() {
			var stored model.Routine
			store.putFn = func(_ context.Context, routine model.Routine) error {
				stored = routine
				return nil
			}

			created, err := service.Create(context.Background(), routines.CreateInput{Name: "Morning run"})
			Expect(err).NotTo(HaveOccurred())

			Expect(created.ID).NotTo(BeEmpty())
			Expect(created.Name).To(Equal("Morning run"))
			Expect(created.Status).To(Equal("pending"))
			Expect(created.Schedule).To(Equal("09:00"))
			Expect(created.Frequency).To(Equal("daily"))
			Expect(created.Priority).To(Equal("low"))
			Expect(created.Tags).To(Equal([]string{}))
			Expect(created.EstimatedDuration).To(BeZero())
			Expect(created.CreatedAt).NotTo(BeEmpty())
			Expect(stored).To(Equal(created))
		})

		It("keeps caller-supplied fields over defaults", func() {
			store.putFn = func(_ context.Context, _ model.Routine) error { return nil }

			duration := 45
			created, err := service.Create(context.Background(), routines.CreateInput{
				Name:              "Gym",
				Priority:          "high",
				Schedule:          "07:30",
				Tags:              []string{"health"},
				EstimatedDuration: &duration,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.Priority).To(Equal("high"))
			Expect(created.Schedule).To(Equal("07:30"))
			Expect(created.Tags).To(Equal([]string{"health"}))
			Expect(created.EstimatedDuration).To(Equal(45))
		})

		It("rejects a blank name without writing", func() {
			_, err := service.Create(context.Background(), routines.CreateInput{Name: "   "})
			Expect(routines.IsValidation(err)).To(BeTrue())
			Expect(store.putCalls).To(BeZero())
		})

		It("rejects an unknown priority without writing", func() {
			_, err := service.Create(context.Background(), routines.CreateInput{Name: "X", Priority: "urgent"})
			Expect(routines.IsValidation(err)).To(BeTrue())
			Expect(store.putCalls).To(BeZero())
		})

		It("rejects a malformed schedule", func() {
			_, err := service.Create(context.Background(), routines.CreateInput{Name: "X", Schedule: "9am"})
			Expect(routines.IsValidation(err)).To(BeTrue())
		})

		It("rejects a malformed start date", func() {
			_, err := service.Create(context.Background(), routines.CreateInput{Name: "X", StartDate: "tomorrow"})
			Expect(routines.IsValidation(err)).To(BeTrue())
		})
	})

	Describe("Update", func() {
		existing := model.Routine{
			ID:        "r-1",
			Name:      "Gym",
			Status:    "pending",
			Schedule:  "07:00",
			Frequency: "daily",
			Priority:  "low",
			Tags:      []string{"health"},
			CreatedAt: "2026-01-01T08:00:00Z",
			UpdatedAt: "2026-01-01T08:00:00Z",
		}

		BeforeEach(func() {
			store.getFn = func(_ context.Context, id string) (model.Routine, error) {
				Expect(id).To(Equal("r-1"))
				return existing, nil
			}
		})

		It("changes only the provided fields and refreshes updated_at", func() {
			var stored model.Routine
			store.putFn = func(_ context.Context, routine model.Routine) error {
				stored = routine
				return nil
			}

			priority := "high"
			updated, err := service.Update(context.Background(), "r-1", routines.UpdateInput{Priority: &priority})
			Expect(err).NotTo(HaveOccurred())

			Expect(updated.Priority).To(Equal("high"))
			Expect(updated.Name).To(Equal("Gym"))
			Expect(updated.Schedule).To(Equal("07:00"))
			Expect(updated.Tags).To(Equal([]string{"health"}))
			Expect(updated.CreatedAt).To(Equal("2026-01-01T08:00:00Z"))
			Expect(updated.UpdatedAt).NotTo(Equal("2026-01-01T08:00:00Z"))

			refreshed, err := time.Parse(time.RFC3339, updated.UpdatedAt)
			Expect(err).NotTo(HaveOccurred())
			Expect(refreshed).To(BeTemporally("~", time.Now(), time.Minute))
			Expect(stored).To(Equal(updated))
		})

		It("rejects clearing the name", func() {
			blank := ""
			_, err := service.Update(context.Background(), "r-1", routines.UpdateInput{Name: &blank})
			Expect(routines.IsValidation(err)).To(BeTrue())
			Expect(store.putCalls).To(BeZero())
		})

		It("rejects an invalid merged record", func() {
			bad := "hourly"
			_, err := service.Update(context.Background(), "r-1", routines.UpdateInput{Frequency: &bad})
			Expect(routines.IsValidation(err)).To(BeTrue())
			Expect(store.putCalls).To(BeZero())
		})

		It("propagates not-found from the store", func() {
			store.getFn = func(_ context.Context, _ string) (model.Routine, error) {
				return model.Routine{}, routines.ErrNotFound
			}

			name := "New"
			_, err := service.Update(context.Background(), "ghost", routines.UpdateInput{Name: &name})
			Expect(err).To(MatchError(routines.ErrNotFound))
		})
	})

	Describe("Delete", func() {
		It("propagates not-found from the store", func() {
			store.deleteFn = func(_ context.Context, _ string) error {
				return routines.ErrNotFound
			}
			Expect(service.Delete(context.Background(), "ghost")).To(MatchError(routines.ErrNotFound))
		})
	})
})
