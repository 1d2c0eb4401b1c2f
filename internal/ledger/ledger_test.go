package ledger

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/carlog/internal/fleet"
)

func TestLedger(t *testing.T) {
	// Disable logging during tests
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	RegisterFailHandler(Fail)
	RunSpecs(t, "Ledger Suite")
}

// mockRepo is a mock implementation of Repository
type mockRepo struct {
	receipts []Receipt
	loadErr  error
	saveErr  error
}

func (m *mockRepo) LoadReceipts() ([]Receipt, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.receipts, nil
}

func (m *mockRepo) SaveReceipts(receipts []Receipt) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.receipts = receipts
	return nil
}

func strPtr(s string) *string { return &s }

func numPtr(f float64) *float64 { return &f }

func testVehicle() fleet.Vehicle {
	return fleet.Vehicle{ID: "car-01", Name: "Toyota Corolla", Plate: "AB-123-CD"}
}

var _ = Describe("Ledger", func() {
	var (
		repo *mockRepo
		ldg  *Ledger
	)

	BeforeEach(func() {
		repo = &mockRepo{}
		ldg = NewLedger(repo)
	})

	Describe("Append", func() {
		BeforeEach(func() {
			ldg.Append(Receipt{ID: "1", Vehicle: testVehicle()})
			ldg.Append(Receipt{ID: "2", Vehicle: testVehicle()})
		})

		It("keeps the most recent receipt first", func() {
			receipts := ldg.List()
			Expect(receipts).To(HaveLen(2))
			Expect(receipts[0].ID).To(Equal("2"))
			Expect(receipts[1].ID).To(Equal("1"))
		})

		It("persists after every append", func() {
			Expect(repo.receipts).To(HaveLen(2))
		})

		When("the repository write fails", func() {
			BeforeEach(func() {
				repo.saveErr = errors.New("disk full")
				ldg.Append(Receipt{ID: "3", Vehicle: testVehicle()})
			})

			It("keeps the in-memory receipt anyway", func() {
				Expect(ldg.Len()).To(Equal(3))
			})
		})

		It("keeps every receipt when appends and reads overlap", func() {
			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					ldg.Append(Receipt{ID: "x", Vehicle: testVehicle()})
				}()
				go func() {
					defer wg.Done()
					ldg.List()
				}()
			}
			wg.Wait()

			Expect(ldg.Len()).To(Equal(12))
		})
	})

	Describe("ExportCSV", func() {
		When("the ledger is empty", func() {
			It("refuses with ErrEmptyLedger", func() {
				_, err := ldg.ExportCSV()
				Expect(err).To(MatchError(ErrEmptyLedger))
			})
		})

		When("the ledger has receipts", func() {
			var csv string

			BeforeEach(func() {
				r := Receipt{ID: "1", Vehicle: testVehicle()}
				r.Vendor = strPtr("Garage Jansen")
				r.Date = strPtr("2024-03-01")
				r.Description = strPtr("Oil change")
				r.Total = numPtr(129.5)
				ldg.Append(r)

				var err error
				csv, err = ldg.ExportCSV()
				Expect(err).NotTo(HaveOccurred())
			})

			It("writes the header row", func() {
				Expect(csv).To(HavePrefix("Vehicle Name,Plate,Date,Vendor,Description,Total\n"))
			})

			It("formats the total to two decimals", func() {
				Expect(csv).To(ContainSubstring(",129.50"))
			})

			It("wraps the description in quotes", func() {
				Expect(csv).To(ContainSubstring(`"Oil change"`))
			})
		})

		When("the description contains quotes", func() {
			BeforeEach(func() {
				r := Receipt{ID: "1", Vehicle: testVehicle()}
				r.Description = strPtr(`He said "ok"`)
				ldg.Append(r)
			})

			It("doubles the embedded quotes", func() {
				csv, err := ldg.ExportCSV()
				Expect(err).NotTo(HaveOccurred())
				Expect(csv).To(ContainSubstring(`"He said ""ok"""`))
			})
		})

		When("fields are absent", func() {
			BeforeEach(func() {
				ldg.Append(Receipt{ID: "1", Vehicle: testVehicle()})
			})

			It("renders them empty, not as zeroes", func() {
				csv, err := ldg.ExportCSV()
				Expect(err).NotTo(HaveOccurred())
				lines := strings.Split(strings.TrimSpace(csv), "\n")
				Expect(lines).To(HaveLen(2))
				Expect(lines[1]).To(Equal(`Toyota Corolla,AB-123-CD,,,"",`))
			})
		})

		It("orders rows most recent first", func() {
			first := Receipt{ID: "1", Vehicle: testVehicle()}
			first.Vendor = strPtr("First Garage")
			second := Receipt{ID: "2", Vehicle: testVehicle()}
			second.Vendor = strPtr("Second Garage")
			ldg.Append(first)
			ldg.Append(second)

			csv, err := ldg.ExportCSV()
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Index(csv, "Second Garage")).To(BeNumerically("<", strings.Index(csv, "First Garage")))
		})
	})

	Describe("NewLedger", func() {
		When("the repository fails to load", func() {
			It("starts empty", func() {
				ldg = NewLedger(&mockRepo{loadErr: errors.New("corrupt blob")})
				Expect(ldg.Len()).To(Equal(0))
			})
		})
	})
})
