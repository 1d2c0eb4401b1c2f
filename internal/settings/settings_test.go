package settings

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSettings(t *testing.T) {
	// Disable logging during tests
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	RegisterFailHandler(Fail)
	RunSpecs(t, "Settings Suite")
}

// mockRepo is a mock implementation of Repository
type mockRepo struct {
	current Settings
	loadErr error
	saveErr error
}

func (m *mockRepo) LoadSettings() (Settings, error) {
	if m.loadErr != nil {
		return Settings{}, m.loadErr
	}
	return m.current, nil
}

func (m *mockRepo) SaveSettings(s Settings) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.current = s
	return nil
}

var _ = Describe("Store", func() {
	var (
		repo  *mockRepo
		store *Store
	)

	BeforeEach(func() {
		repo = &mockRepo{}
	})

	JustBeforeEach(func() {
		store = NewStore(repo)
	})

	Describe("NewStore", func() {
		When("the repository holds saved settings", func() {
			BeforeEach(func() {
				repo.current = Settings{WebhookURL: "http://sheet.example/hook", PersonalAPIKey: "key"}
			})

			It("loads them", func() {
				Expect(store.Get()).To(Equal(repo.current))
			})
		})

		When("the repository fails to load", func() {
			BeforeEach(func() {
				repo.loadErr = errors.New("disk gone")
			})

			It("falls back to zero-value settings", func() {
				Expect(store.Get()).To(Equal(Settings{}))
			})
		})
	})

	Describe("Save", func() {
		It("writes the new settings through to the repository", func() {
			saved := Settings{WebhookURL: "http://sheet.example/hook"}
			store.Save(saved)

			Expect(store.Get()).To(Equal(saved))
			Expect(repo.current).To(Equal(saved))
		})

		When("persistence fails", func() {
			BeforeEach(func() {
				repo.saveErr = errors.New("disk full")
			})

			It("keeps the in-memory settings anyway", func() {
				saved := Settings{PersonalAPIKey: "key"}
				store.Save(saved)
				Expect(store.Get()).To(Equal(saved))
			})
		})

		It("tolerates concurrent saves and reads", func() {
			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					store.Save(Settings{WebhookURL: "http://sheet.example/hook"})
				}()
				go func() {
					defer wg.Done()
					store.Get()
				}()
			}
			wg.Wait()

			Expect(store.Get().WebhookURL).To(Equal("http://sheet.example/hook"))
		})
	})
})
