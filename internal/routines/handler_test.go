package routines_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"maestro.app/gateway/internal/model"
	"maestro.app/gateway/internal/routines"
)

var _ = Describe("Handler", func() {
	var (
		store  *fakeStore
		router *gin.Engine
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		store = &fakeStore{}
		router = gin.New()
		routines.NewHandler(routines.NewService(store)).Register(router.Group("/routines"))
	})

	request := func(method, path string, body any) *httptest.ResponseRecorder {
		var reader *bytes.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(raw)
		} else {
			reader = bytes.NewReader(nil)
		}

		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	decode := func(rec *httptest.ResponseRecorder) (string, json.RawMessage) {
		var payload struct {
			Message string          `json:"message"`
			Data    json.RawMessage `json:"data"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &payload)).To(Succeed())
		return payload.Message, payload.Data
	}

	Describe("GET /routines", func() {
		It("returns the enveloped list", func() {
			store.listFn = func(_ context.Context) ([]model.Routine, error) {
				return []model.Routine{{ID: "r-1", Name: "Gym"}}, nil
			}

			rec := request(http.MethodGet, "/routines", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			message, data := decode(rec)
			Expect(message).To(Equal("Successfully retrieved routines"))

			var list []model.Routine
			Expect(json.Unmarshal(data, &list)).To(Succeed())
			Expect(list).To(HaveLen(1))
			Expect(list[0].Name).To(Equal("Gym"))
		})
	})

	Describe("GET /routines/:id", func() {
		It("returns 404 with the envelope for a missing routine", func() {
			store.getFn = func(_ context.Context, _ string) (model.Routine, error) {
				return model.Routine{}, routines.ErrNotFound
			}

			rec := request(http.MethodGet, "/routines/ghost", nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))

			message, _ := decode(rec)
			Expect(message).To(Equal("Routine not found"))
		})
	})

	Describe("POST /routines", func() {
		It("creates a routine and returns 201", func() {
			store.putFn = func(_ context.Context, _ model.Routine) error { return nil }

			rec := request(http.MethodPost, "/routines", gin.H{"name": "Gym", "priority": "high"})
			Expect(rec.Code).To(Equal(http.StatusCreated))

			message, data := decode(rec)
			Expect(message).To(Equal("Successfully created routine"))

			var created model.Routine
			Expect(json.Unmarshal(data, &created)).To(Succeed())
			Expect(created.ID).NotTo(BeEmpty())
			Expect(created.Priority).To(Equal("high"))
			Expect(created.Status).To(Equal("pending"))
		})

		It("maps validation failures to 400", func() {
			rec := request(http.MethodPost, "/routines", gin.H{"priority": "high"})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			message, _ := decode(rec)
			Expect(message).To(ContainSubstring("name field is required"))
			Expect(store.putCalls).To(BeZero())
		})

		It("maps malformed bodies to 400", func() {
			req := httptest.NewRequest(http.MethodPost, "/routines", bytes.NewReader([]byte("{not json")))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("PUT /routines/:id", func() {
		It("updates and returns the merged routine", func() {
			store.getFn = func(_ context.Context, _ string) (model.Routine, error) {
				return model.Routine{
					ID: "r-1", Name: "Gym", Status: "pending",
					Schedule: "07:00", Frequency: "daily", Priority: "low",
				}, nil
			}
			store.putFn = func(_ context.Context, _ model.Routine) error { return nil }

			rec := request(http.MethodPut, "/routines/r-1", gin.H{"priority": "high"})
			Expect(rec.Code).To(Equal(http.StatusOK))

			message, data := decode(rec)
			Expect(message).To(Equal("Successfully updated routine"))

			var updated model.Routine
			Expect(json.Unmarshal(data, &updated)).To(Succeed())
			Expect(updated.Priority).To(Equal("high"))
			Expect(updated.Name).To(Equal("Gym"))
		})

		It("returns 404 for an unknown id", func() {
			store.getFn = func(_ context.Context, _ string) (model.Routine, error) {
				return model.Routine{}, routines.ErrNotFound
			}

			rec := request(http.MethodPut, "/routines/ghost", gin.H{"priority": "high"})
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("DELETE /routines/:id", func() {
		It("returns 204 with no body", func() {
			store.deleteFn = func(_ context.Context, _ string) error { return nil }

			rec := request(http.MethodDelete, "/routines/r-1", nil)
			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(rec.Body.Len()).To(BeZero())
		})

		It("returns 404 for an unknown id", func() {
			store.deleteFn = func(_ context.Context, _ string) error {
				return routines.ErrNotFound
			}

			rec := request(http.MethodDelete, "/routines/ghost", nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})
})
