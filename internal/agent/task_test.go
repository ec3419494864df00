package agent

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"maestro.app/gateway/internal/chat"
)

type fakeTaskAPI struct {
	listFn   func(ctx context.Context) ([]map[string]any, error)
	createFn func(ctx context.Context, record map[string]any) (map[string]any, error)
	updateFn func(ctx context.Context, id string, record map[string]any) (map[string]any, error)
	deleteFn func(ctx context.Context, id string) error

	createCalls int
	updateCalls int
}

func (f *fakeTaskAPI) List(ctx context.Context) ([]map[string]any, error) {
	return f.listFn(ctx)
}

func (f *fakeTaskAPI) Create(ctx context.Context, record map[string]any) (map[string]any, error) {
	f.createCalls++
	return f.createFn(ctx, record)
}

func (f *fakeTaskAPI) Update(ctx context.Context, id string, record map[string]any) (map[string]any, error) {
	f.updateCalls++
	return f.updateFn(ctx, id, record)
}

func (f *fakeTaskAPI) Delete(ctx context.Context, id string) error {
	return f.deleteFn(ctx, id)
}

var _ = Describe("TaskAgent", func() {
	var (
		api     *fakeTaskAPI
		a       *TaskAgent
		channel *recordingChannel
		call    func(args string) chat.CallContext
	)

	BeforeEach(func() {
		api = &fakeTaskAPI{}
		a = NewTaskAgent(&scriptedEngine{}, api)
		channel = &recordingChannel{}
		call = func(args string) chat.CallContext {
			return chat.CallContext{Arguments: args, Channel: channel}
		}
	})

	Describe("create", func() {
		It("applies documented defaults around the required description", func() {
			var got map[string]any
			api.createFn = func(_ context.Context, record map[string]any) (map[string]any, error) {
				got = record
				return map[string]any{"id": "task-1"}, nil
			}

			result, err := a.create(context.Background(), call(inputArgs("description=Buy groceries")))
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(ContainSubstring("task-1"))

			Expect(got["description"]).To(Equal("Buy groceries"))
			Expect(got["priority"]).To(Equal("medium"))
			Expect(got["category"]).To(Equal("general"))
			Expect(got["status"]).To(Equal("pending"))
		})

		It("maps the desc and pri aliases onto canonical fields", func() {
			var got map[string]any
			api.createFn = func(_ context.Context, record map[string]any) (map[string]any, error) {
				got = record
				return map[string]any{"id": "task-2"}, nil
			}

			_, err := a.create(context.Background(), call(inputArgs("desc=Call dentist|pri=high")))
			Expect(err).NotTo(HaveOccurred())

			Expect(got["description"]).To(Equal("Call dentist"))
			Expect(got["priority"]).To(Equal("high"))
		})

		It("rejects a missing description without a network write", func() {
			result, err := a.create(context.Background(), call(inputArgs("priority=high")))
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal("The description field is required and cannot be empty."))
			Expect(api.createCalls).To(BeZero())
		})

		It("asks for data when the input is blank", func() {
			result, err := a.create(context.Background(), call(inputArgs("   ")))
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal("Please provide the task data you want to create."))
			Expect(api.createCalls).To(BeZero())
		})
	})

	Describe("get", func() {
		It("finds a task by id in the list response", func() {
			api.listFn = func(_ context.Context) ([]map[string]any, error) {
				return []map[string]any{
					{"id": "t-1", "description": "First"},
					{"Id": "t-2", "Description": "Second"},
				}, nil
			}

			result, err := a.get(context.Background(), call(idArgs("t-2")))
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(ContainSubstring("**Second**"))
		})

		It("reports a missing id as not found", func() {
			api.listFn = func(_ context.Context) ([]map[string]any, error) {
				return []map[string]any{{"id": "t-1", "description": "First"}}, nil
			}

			result, err := a.get(context.Background(), call(idArgs("ghost")))
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal("Task with ID ghost not found."))
		})
	})

	Describe("update", func() {
		It("sends only the provided fields", func() {
			var got map[string]any
			api.updateFn = func(_ context.Context, _ string, record map[string]any) (map[string]any, error) {
				got = record
				return record, nil
			}

			result, err := a.update(context.Background(), call(inputArgs("t-1|status=completed")))
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(ContainSubstring("updated successfully"))
			Expect(got).To(Equal(map[string]any{"status": "completed"}))
		})

		It("returns no-fields-to-update without touching the API", func() {
			result, err := a.update(context.Background(), call(inputArgs("t-1|just words")))
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal("No fields to update were provided."))
			Expect(api.updateCalls).To(BeZero())
		})

		It("reports an unknown id as not found", func() {
			api.updateFn = func(_ context.Context, _ string, _ map[string]any) (map[string]any, error) {
				return nil, ErrNotFound
			}

			result, err := a.update(context.Background(), call(inputArgs("ghost|status=completed")))
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal("Task with ID ghost not found."))
		})
	})

	Describe("delete", func() {
		It("confirms a successful delete", func() {
			api.deleteFn = func(_ context.Context, _ string) error { return nil }

			result, err := a.del(context.Background(), call(idArgs("t-1")))
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal("Task t-1 deleted successfully!"))
		})

		It("surfaces transport failures as result strings", func() {
			api.deleteFn = func(_ context.Context, _ string) error {
				return fmt.Errorf("connection refused")
			}

			result, err := a.del(context.Background(), call(idArgs("t-1")))
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(ContainSubstring("connection refused"))
			Expect(channel.kinds()).To(ContainElement(chat.EventFunctionCallError))
		})
	})
})
