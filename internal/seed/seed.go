// Package seed provides helpers to create demo data for development databases.
// These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/middleware"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"gorm.io/gorm"
)

// Options control how much demo data is generated.
type Options struct {
	Landlords             int
	PropertiesPerLandlord int
	Vendors               int
	// FirstLandlordID is the user ID of the first generated landlord; the rest follow it.
	FirstLandlordID uint
	// Seed makes the generated data reproducible. Zero picks a random seed.
	Seed   int64
	DryRun bool
}

// DefaultOptions is a small portfolio suitable for local development.
func DefaultOptions() Options {
	return Options{
		Landlords:             3,
		PropertiesPerLandlord: 4,
		Vendors:               6,
		FirstLandlordID:       100,
	}
}

// Summary reports what a seeding run created.
type Summary struct {
	Properties int  `json:"properties"`
	Vendors    int  `json:"vendors"`
	Skipped    bool `json:"skipped"`
}

var (
	boroughs = []string{"Manhattan", "Brooklyn", "Queens", "Bronx", "Staten Island"}
	trades   = []string{"plumbing", "electrical", "hvac", "carpentry", "painting", "locksmith", "pest control"}
	unitKind = []string{"studio", "loft", "walk-up", "garden apartment", "brownstone floor-through", "condo"}
)

// Factory builds demo entities and persists them to the database.
type Factory struct {
	db     *gorm.DB
	opts   Options
	faker  *gofakeit.Faker
	nextID uint
}

// NewFactory creates a new Factory bound to db.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	return &Factory{db: db, opts: opts, faker: gofakeit.New(opts.Seed), nextID: 1000}
}

// BuildProperty constructs an available listing for landlordID without persisting it.
func (f *Factory) BuildProperty(landlordID uint) *models.Property {
	bedrooms := f.faker.Number(0, 4)
	kind := f.faker.RandomString(unitKind)
	if bedrooms == 0 {
		kind = "studio"
	}
	// Rent scales with bedrooms, rounded to whole dollars.
	dollars := int64(1800 + bedrooms*650 + f.faker.Number(0, 900))
	return &models.Property{
		LandlordID: landlordID,
		Title:      fmt.Sprintf("%s %s", capitalize(f.faker.Adjective()), kind),
		Address:    f.faker.Street(),
		City:       f.faker.RandomString(boroughs),
		Bedrooms:   bedrooms,
		RentAmount: models.USD(dollars * 100),
		Available:  true,
	}
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

// BuildVendor constructs an active vendor without persisting it.
func (f *Factory) BuildVendor() *models.Vendor {
	return &models.Vendor{
		Name:   f.faker.Company(),
		Trade:  f.faker.RandomString(trades),
		Phone:  f.faker.Phone(),
		Email:  f.faker.Email(),
		Active: true,
	}
}

func (f *Factory) create(value interface{}, assign func(uint)) error {
	if f.opts.DryRun {
		f.nextID++
		assign(f.nextID)
		return nil
	}
	return f.db.Create(value).Error
}

// Demo fills an empty database with landlords' listings and a vendor roster. A
// database that already holds properties is left untouched.
func Demo(db *gorm.DB, opts Options) (*Summary, error) {
	if opts.FirstLandlordID == 0 {
		opts.FirstLandlordID = DefaultOptions().FirstLandlordID
	}
	summary := &Summary{}

	if !opts.DryRun {
		var existing int64
		if err := db.Model(&models.Property{}).Count(&existing).Error; err != nil {
			return nil, fmt.Errorf("count properties: %w", err)
		}
		if existing > 0 {
			summary.Skipped = true
			middleware.Logger.Info("seed skipped; properties already present", slog.Int64("properties", existing))
			return summary, nil
		}
	}

	f := NewFactory(db, opts)
	run := func(tx *gorm.DB) error {
		f.db = tx
		for i := 0; i < opts.Landlords; i++ {
			landlordID := opts.FirstLandlordID + uint(i)
			for j := 0; j < opts.PropertiesPerLandlord; j++ {
				p := f.BuildProperty(landlordID)
				if err := f.create(p, func(id uint) { p.ID = id }); err != nil {
					return fmt.Errorf("create property: %w", err)
				}
				summary.Properties++
			}
		}
		for i := 0; i < opts.Vendors; i++ {
			v := f.BuildVendor()
			if err := f.create(v, func(id uint) { v.ID = id }); err != nil {
				return fmt.Errorf("create vendor: %w", err)
			}
			summary.Vendors++
		}
		return nil
	}

	var err error
	if opts.DryRun {
		err = run(db)
	} else {
		err = db.Transaction(run)
	}
	if err != nil {
		return nil, err
	}

	middleware.Logger.Info("seed complete",
		slog.Int("properties", summary.Properties),
		slog.Int("vendors", summary.Vendors),
		slog.Bool("dry_run", opts.DryRun))
	return summary, nil
}
