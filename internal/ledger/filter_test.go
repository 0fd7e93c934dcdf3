package ledger

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Filter", func() {
	var receipts []Receipt

	BeforeEach(func() {
		receipts = []Receipt{
			{ID: 4, Name: "Supermercado Central", Amount: 10000, Category: "Alimentos", Type: TypeManual, Date: time.Date(2026, 3, 20, 18, 30, 0, 0, time.UTC)},
			{ID: 3, Name: "Taxi al centro", Amount: 5000, Category: "Transporte", Type: TypeManual, Date: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)},
			{ID: 2, Name: "Factura de luz", Amount: 8000, Category: "Servicios", Type: TypeFactura, Date: time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
			{ID: 1, Name: "Kiosco", Amount: 350, Category: "Otros", Date: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)},
		}
	})

	ids := func(matched []Receipt) []int64 {
		out := make([]int64, len(matched))
		for i, r := range matched {
			out[i] = r.ID
		}
		return out
	}

	When("no criteria are supplied", func() {
		It("should return every receipt in order", func() {
			Expect(ids(Filter(receipts, Criteria{}))).To(Equal([]int64{4, 3, 2, 1}))
		})
	})

	Describe("Search", func() {
		It("should match name substrings ignoring case", func() {
			Expect(ids(Filter(receipts, Criteria{Search: "taxi"}))).To(Equal([]int64{3}))
		})

		It("should match anywhere in the name", func() {
			Expect(ids(Filter(receipts, Criteria{Search: "CENTRO"}))).To(Equal([]int64{3}))
		})

		It("should return nothing when no name contains the text", func() {
			Expect(Filter(receipts, Criteria{Search: "farmacia"})).To(BeEmpty())
		})
	})

	Describe("Category", func() {
		It("should match exactly", func() {
			Expect(ids(Filter(receipts, Criteria{Category: "Alimentos"}))).To(Equal([]int64{4}))
		})

		It("should bypass on the all sentinel", func() {
			Expect(Filter(receipts, Criteria{Category: CategoryAll})).To(HaveLen(4))
		})
	})

	Describe("Type", func() {
		It("should match the type tag", func() {
			Expect(ids(Filter(receipts, Criteria{Type: TypeFactura}))).To(Equal([]int64{2}))
		})

		It("should treat untagged receipts as manual", func() {
			Expect(ids(Filter(receipts, Criteria{Type: TypeManual}))).To(Equal([]int64{4, 3, 1}))
		})

		It("should bypass on the all sentinel", func() {
			Expect(Filter(receipts, Criteria{Type: CategoryAll})).To(HaveLen(4))
		})
	})

	Describe("date bounds", func() {
		It("should include receipts dated on the lower bound", func() {
			from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
			Expect(ids(Filter(receipts, Criteria{DateFrom: from}))).To(Equal([]int64{4, 3}))
		})

		It("should include the whole day of the upper bound", func() {
			to := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
			matched := Filter(receipts, Criteria{DateTo: to})
			Expect(ids(matched)).To(Equal([]int64{4, 3, 2, 1}))
		})

		It("should exclude receipts dated after the upper bound's day", func() {
			to := time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC)
			Expect(ids(Filter(receipts, Criteria{DateTo: to}))).To(Equal([]int64{3, 2, 1}))
		})

		It("should combine both bounds", func() {
			from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
			to := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
			Expect(ids(Filter(receipts, Criteria{DateFrom: from, DateTo: to}))).To(Equal([]int64{3, 2}))
		})
	})

	Describe("amount bounds", func() {
		It("should include receipts at or above the minimum", func() {
			Expect(ids(Filter(receipts, Criteria{MinAmount: "50.00"}))).To(Equal([]int64{4, 3, 2}))
		})

		It("should include receipts at or below the maximum", func() {
			Expect(ids(Filter(receipts, Criteria{MaxAmount: "50,00"}))).To(Equal([]int64{3, 1}))
		})

		It("should include receipts exactly on a bound", func() {
			matched := Filter(receipts, Criteria{MinAmount: "100.00", MaxAmount: "100.00"})
			Expect(ids(matched)).To(Equal([]int64{4}))
		})

		It("should place no bound when the text does not parse", func() {
			Expect(Filter(receipts, Criteria{MinAmount: "abc", MaxAmount: "-5"})).To(HaveLen(4))
		})
	})

	Describe("Categories", func() {
		It("should restrict to members of the set", func() {
			matched := Filter(receipts, Criteria{Categories: []string{"Alimentos", "Servicios"}})
			Expect(ids(matched)).To(Equal([]int64{4, 2}))
		})

		It("should bypass when the set contains the all sentinel", func() {
			matched := Filter(receipts, Criteria{Categories: []string{"Alimentos", CategoryAll}})
			Expect(matched).To(HaveLen(4))
		})

		It("should bypass on an empty set", func() {
			Expect(Filter(receipts, Criteria{Categories: []string{}})).To(HaveLen(4))
		})
	})

	When("criteria are combined", func() {
		It("should require every one to match", func() {
			matched := Filter(receipts, Criteria{
				Search:    "a",
				Category:  "Transporte",
				MinAmount: "10.00",
				DateFrom:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			})
			Expect(ids(matched)).To(Equal([]int64{3}))
		})

		It("should return nothing when any criterion excludes all", func() {
			matched := Filter(receipts, Criteria{Search: "Taxi", Category: "Alimentos"})
			Expect(matched).To(BeEmpty())
		})
	})

	When("the input is empty", func() {
		It("should return an empty collection", func() {
			Expect(Filter(nil, Criteria{Search: "taxi"})).To(BeEmpty())
		})
	})
})
