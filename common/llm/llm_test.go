package llm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"maestro.app/gateway/common/llm"
)

var _ = Describe("NewAgentClient", func() {
	It("requires an API key", func() {
		_, err := llm.NewAgentClient(llm.Config{Provider: llm.ProviderOpenAI})
		Expect(err).To(MatchError(ContainSubstring("API key is required")))
	})

	It("rejects unknown providers", func() {
		_, err := llm.NewAgentClient(llm.Config{Provider: "cohere", APIKey: "key"})
		Expect(err).To(MatchError(ContainSubstring("unsupported LLM provider")))
	})

	It("defaults to OpenAI when the provider is empty", func() {
		client, err := llm.NewAgentClient(llm.Config{APIKey: "key", Model: "gpt-4o-mini"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Model()).To(Equal("gpt-4o-mini"))
	})
})

var _ = Describe("ParseToolArguments", func() {
	type args struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}

	It("decodes into the target struct", func() {
		parsed, err := llm.ParseToolArguments[args](`{"query": "routines", "limit": 5}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed.Query).To(Equal("routines"))
		Expect(parsed.Limit).To(Equal(5))
	})

	It("rejects malformed JSON", func() {
		_, err := llm.ParseToolArguments[args](`{"query": `)
		Expect(err).To(MatchError(ContainSubstring("parse tool arguments")))
	})
})
