package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// tinyPNG is a 1x1 PNG so image preparation succeeds without conversion.
func tinyPNG() []byte {
	return []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
		0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
		0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
		0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
	}
}

var _ = Describe("Proxied", func() {
	var (
		ts       *httptest.Server
		respond  func(w http.ResponseWriter, r *http.Request)
		received map[string]any
		fields   *Fields
		err      error
	)

	BeforeEach(func() {
		received = nil
		respond = func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"vendor": null, "date": null, "total": null, "description": null}`))
		}
		ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&received)
			respond(w, r)
		}))
		DeferCleanup(ts.Close)
	})

	JustBeforeEach(func() {
		p := NewProxied(ts.URL, "")
		fields, err = p.Analyze(context.Background(), tinyPNG(), "image/png")
	})

	When("the proxy returns structured fields", func() {
		BeforeEach(func() {
			respond = func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"vendor": "Garage Jansen", "date": null, "total": 42.75, "description": null}`))
			}
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("relays the fields", func() {
			Expect(fields.Vendor).To(HaveValue(Equal("Garage Jansen")))
			Expect(fields.Total).To(HaveValue(Equal(42.75)))
			Expect(fields.Date).To(BeNil())
		})

		It("sends base64 image and mime type", func() {
			Expect(received).To(HaveKey("image"))
			Expect(received["mimeType"]).To(Equal("image/png"))
		})
	})

	When("the proxy returns a JSON error body", func() {
		BeforeEach(func() {
			respond = func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error": "` + MsgAccessDenied + `"}`))
			}
		})

		It("propagates the proxy's classified message", func() {
			Expect(err).To(HaveOccurred())
			Expect(UserMessage(err)).To(Equal(MsgAccessDenied))
		})
	})

	When("the proxy returns a bare 403 with text", func() {
		BeforeEach(func() {
			respond = func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})

		It("classifies the status itself", func() {
			Expect(err).To(HaveOccurred())
			Expect(UserMessage(err)).To(Equal(MsgAccessDenied))
		})
	})

	When("the proxy is unreachable", func() {
		JustBeforeEach(func() {
			p := NewProxied("http://127.0.0.1:1/api/extract", "")
			fields, err = p.Analyze(context.Background(), tinyPNG(), "image/png")
		})

		It("surfaces the generic message", func() {
			Expect(err).To(HaveOccurred())
			Expect(UserMessage(err)).To(Equal(MsgGeneric))
		})
	})
})
