package repository

import "eventtts/db"

// NewMongoStores wires every Mongo repository onto c.
func NewMongoStores(c *db.Collections) Stores {
	return Stores{
		Events:   NewEventRepository(c.Events),
		Taxonomy: NewTaxonomyRepository(c.Categories, c.Tags),
		Users:    NewUserRepository(c.Users),
		Orders:   NewOrderRepository(c.Orders),
		Reports:  NewReportRepository(c.Reports),
	}
}

var (
	_ EventStore    = (*EventRepository)(nil)
	_ TaxonomyStore = (*TaxonomyRepository)(nil)
	_ UserStore     = (*UserRepository)(nil)
	_ OrderStore    = (*OrderRepository)(nil)
	_ ReportStore   = (*ReportRepository)(nil)
)
