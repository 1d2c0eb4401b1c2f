package extraction

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ClassifyStatus", func() {
	When("the provider rejects the credential", func() {
		It("maps 401 to the invalid-credential message", func() {
			Expect(ClassifyStatus(401, "raw provider text")).To(Equal(MsgInvalidCredential))
		})

		It("maps 403 to the access-denied message", func() {
			Expect(ClassifyStatus(403, "raw provider text")).To(Equal(MsgAccessDenied))
		})

		It("never leaks the raw provider text for classified statuses", func() {
			Expect(ClassifyStatus(403, "PERMISSION_DENIED: billing")).NotTo(ContainSubstring("PERMISSION_DENIED"))
		})
	})

	When("the status is anything else", func() {
		It("appends the detail to the generic message", func() {
			Expect(ClassifyStatus(500, "internal")).To(Equal(MsgGeneric + " internal"))
		})

		It("omits the detail when there is none", func() {
			Expect(ClassifyStatus(500, "  ")).To(Equal(MsgGeneric))
		})
	})
})

var _ = Describe("SanitizeKey", func() {
	It("strips quotes, whitespace and line breaks", func() {
		Expect(SanitizeKey(" \"AIzaSy-example\"\n")).To(Equal("AIzaSy-example"))
	})

	It("leaves a clean key untouched", func() {
		Expect(SanitizeKey("AIzaSy-example")).To(Equal("AIzaSy-example"))
	})

	It("reduces a quoted empty value to nothing", func() {
		Expect(SanitizeKey(`""`)).To(BeEmpty())
	})
})

var _ = Describe("StrategyPicker", func() {
	var picker StrategyPicker

	BeforeEach(func() {
		picker = StrategyPicker{ExtractURL: "http://proxy.example/api/extract", ServerKey: "server-key", Model: "gemini-2.5-flash"}
	})

	When("a personal key is configured", func() {
		It("picks the direct strategy", func() {
			Expect(picker.Pick("personal-key")).To(BeAssignableToTypeOf(&Direct{}))
		})
	})

	When("no personal key is configured", func() {
		It("picks the proxied strategy", func() {
			Expect(picker.Pick("")).To(BeAssignableToTypeOf(&Proxied{}))
		})

		It("treats a key that sanitizes to nothing as absent", func() {
			Expect(picker.Pick(` "" `)).To(BeAssignableToTypeOf(&Proxied{}))
		})
	})

	When("neither a proxy nor any key is configured", func() {
		BeforeEach(func() {
			picker = StrategyPicker{}
		})

		It("picks an extractor that fails with the missing-credential message", func() {
			_, err := picker.Pick("").Analyze(context.Background(), []byte("img"), "image/png")
			Expect(err).To(HaveOccurred())
			Expect(UserMessage(err)).To(Equal(MsgMissingCredential))
		})
	})

	When("only the server key is configured", func() {
		BeforeEach(func() {
			picker = StrategyPicker{ServerKey: "server-key"}
		})

		It("falls back to the direct strategy with the server key", func() {
			Expect(picker.Pick("")).To(BeAssignableToTypeOf(&Direct{}))
		})
	})
})
