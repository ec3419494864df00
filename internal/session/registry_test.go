package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"maestro.app/gateway/common/llm"
	"maestro.app/gateway/internal/chat"
	"maestro.app/gateway/internal/session"
)

// echoEngine answers with a fixed prefix plus the user's text.
type echoEngine struct {
	prefix string
}

func (e *echoEngine) ChatWithTools(_ context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
	last := req.Messages[len(req.Messages)-1]
	return &llm.AgentResponse{Content: e.prefix + last.Content, FinishReason: "stop"}, nil
}

func (e *echoEngine) Model() string { return "echo" }

func newFactory() session.CoordinatorFactory {
	return func(channel chat.Channel) (*chat.Coordinator, error) {
		return chat.NewCoordinator(&echoEngine{prefix: "echo: "}, channel, nil, chat.Config{})
	}
}

var _ = Describe("Registry", func() {
	var registry *session.Registry

	BeforeEach(func() {
		registry = session.NewRegistry(newFactory())
	})

	Describe("Open", func() {
		It("assigns distinct generated ids", func() {
			a, err := registry.Open(context.Background(), chat.NopChannel{})
			Expect(err).NotTo(HaveOccurred())
			b, err := registry.Open(context.Background(), chat.NopChannel{})
			Expect(err).NotTo(HaveOccurred())

			Expect(a.ID).NotTo(BeZero())
			Expect(a.ID).NotTo(Equal(b.ID))
			Expect(registry.Count()).To(Equal(2))
		})

		It("propagates factory failures", func() {
			registry = session.NewRegistry(func(chat.Channel) (*chat.Coordinator, error) {
				return nil, errors.New("no engine")
			})

			_, err := registry.Open(context.Background(), chat.NopChannel{})
			Expect(err).To(MatchError(ContainSubstring("no engine")))
			Expect(registry.Count()).To(BeZero())
		})
	})

	Describe("Lookup", func() {
		It("finds open sessions and misses closed ones", func() {
			s, err := registry.Open(context.Background(), chat.NopChannel{})
			Expect(err).NotTo(HaveOccurred())

			Expect(registry.Lookup(s.ID)).To(Equal(s))

			registry.Close(context.Background(), s.ID)
			Expect(registry.Lookup(s.ID)).To(BeNil())
		})
	})

	Describe("Close", func() {
		It("tolerates duplicate and unknown closes", func() {
			s, err := registry.Open(context.Background(), chat.NopChannel{})
			Expect(err).NotTo(HaveOccurred())

			registry.Close(context.Background(), s.ID)
			registry.Close(context.Background(), s.ID)
			registry.Close(context.Background(), 424242)
			Expect(registry.Count()).To(BeZero())
		})
	})

	Describe("session isolation", func() {
		It("keeps concurrent sessions' transcripts apart", func() {
			a, err := registry.Open(context.Background(), chat.NopChannel{})
			Expect(err).NotTo(HaveOccurred())
			b, err := registry.Open(context.Background(), chat.NopChannel{})
			Expect(err).NotTo(HaveOccurred())

			var wg sync.WaitGroup
			for i, s := range []*session.Session{a, b} {
				wg.Add(1)
				go func(tag int, s *session.Session) {
					defer wg.Done()
					defer GinkgoRecover()
					for j := 0; j < 5; j++ {
						_, err := s.Coordinator.Handle(context.Background(),
							fmt.Sprintf("session-%d message-%d", tag, j))
						Expect(err).NotTo(HaveOccurred())
					}
				}(i, s)
			}
			wg.Wait()

			for _, turn := range a.Coordinator.Transcript() {
				Expect(turn.Content).NotTo(ContainSubstring("session-1"))
			}
			for _, turn := range b.Coordinator.Transcript() {
				Expect(turn.Content).NotTo(ContainSubstring("session-0"))
			}
		})
	})
})
