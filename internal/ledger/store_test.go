package ledger

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.etcd.io/bbolt"
)

var _ = Describe("BoltStore", func() {
	var (
		tmpDir string
		dbPath string
		store  *BoltStore
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		store, err = NewBoltStore(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	Describe("Load", func() {
		When("the database has never been saved to", func() {
			It("should return an empty collection", func() {
				receipts, err := store.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(receipts).To(BeEmpty())
			})
		})

		When("the stored blob is not valid JSON", func() {
			BeforeEach(func() {
				err := store.db.Update(func(tx *bbolt.Tx) error {
					return tx.Bucket([]byte(bucketName)).Put([]byte(receiptsKey), []byte("{not json"))
				})
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns an error", func() {
				_, err := store.Load()
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("unmarshaling ledger"))
			})
		})

		When("the stored blob was written by a newer schema", func() {
			BeforeEach(func() {
				err := store.db.Update(func(tx *bbolt.Tx) error {
					return tx.Bucket([]byte(bucketName)).Put([]byte(receiptsKey), []byte(`{"version":2,"receipts":[]}`))
				})
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns an error", func() {
				_, err := store.Load()
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("newer than supported"))
			})
		})
	})

	Describe("Save", func() {
		var receipts []Receipt

		BeforeEach(func() {
			receipts = []Receipt{
				{
					ID:            1710086400000,
					Name:          "Supermercado Central",
					Amount:        2599,
					Date:          time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
					Category:      "Alimentos",
					PaymentMethod: "Efectivo",
					Type:          TypeManual,
					Status:        StatusProcessed,
					Products: []Product{
						{Name: "Cuaderno", Price: 1050, Quantity: 2},
						{Name: "Lapicera", Price: 499, Quantity: 1},
					},
					CreatedAt: time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC),
					UpdatedAt: time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC),
				},
				{
					ID:       1710000000000,
					Name:     "Taxi",
					Amount:   5000,
					Date:     time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
					Category: "Transporte",
					Type:     TypeManual,
					Status:   StatusProcessed,
				},
			}
		})

		When("saving a collection", func() {
			It("should round-trip it unchanged", func() {
				Expect(store.Save(receipts)).NotTo(HaveOccurred())

				loaded, err := store.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(loaded).To(HaveLen(2))
				Expect(loaded[0].ID).To(Equal(int64(1710086400000)))
				Expect(loaded[0].Name).To(Equal("Supermercado Central"))
				Expect(loaded[0].Amount).To(Equal(int64(2599)))
				Expect(loaded[0].PaymentMethod).To(Equal("Efectivo"))
				Expect(loaded[0].Products).To(HaveLen(2))
				Expect(loaded[0].Products[0].Price).To(Equal(int64(1050)))
				Expect(loaded[0].Date).To(Equal(receipts[0].Date))
				Expect(loaded[1].ID).To(Equal(int64(1710000000000)))
			})
		})

		When("saving replaces an earlier collection", func() {
			It("should keep only the newest one", func() {
				Expect(store.Save(receipts)).NotTo(HaveOccurred())
				Expect(store.Save(receipts[:1])).NotTo(HaveOccurred())

				loaded, err := store.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(loaded).To(HaveLen(1))
			})
		})

		When("saving an empty collection", func() {
			It("should load back empty", func() {
				Expect(store.Save(receipts)).NotTo(HaveOccurred())
				Expect(store.Save([]Receipt{})).NotTo(HaveOccurred())

				loaded, err := store.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(loaded).To(BeEmpty())
			})
		})

		When("saving nil", func() {
			It("should load back empty", func() {
				Expect(store.Save(nil)).NotTo(HaveOccurred())

				loaded, err := store.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(loaded).To(BeEmpty())
			})
		})

		When("the database is reopened", func() {
			It("should still hold the collection", func() {
				Expect(store.Save(receipts)).NotTo(HaveOccurred())
				Expect(store.Close()).NotTo(HaveOccurred())

				reopened, err := NewBoltStore(dbPath)
				Expect(err).NotTo(HaveOccurred())
				store = reopened

				loaded, err := store.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(loaded).To(HaveLen(2))
			})
		})
	})

	Describe("Close", func() {
		It("should not return an error", func() {
			err := store.Close()
			Expect(err).NotTo(HaveOccurred())
			store = nil
		})
	})
})
