package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/five82/jobdeck/internal/portal"
	"github.com/five82/jobdeck/internal/state"
)

// CompanyFetcher lists companies.
type CompanyFetcher interface {
	ListCompanies(ctx context.Context) ([]portal.Company, error)
}

// Companies is the cached company directory.
type Companies struct {
	*state.Store[int64, portal.Company]
}

// NewCompanies builds the company store on top of src.
func NewCompanies(src CompanyFetcher, opts Options) *Companies {
	return &Companies{Store: state.New(state.Options[int64, portal.Company]{
		Name:         "companies",
		Fetch:        src.ListCompanies,
		Key:          func(c portal.Company) int64 { return c.ID },
		TTL:          opts.TTL,
		ErrorMessage: "Failed to load companies. Please try again later.",
		Clock:        opts.Clock,
		Logger:       opts.Logger,
		Classify:     failureFields,
	})}
}

// GetByID returns the company with id.
func (c *Companies) GetByID(id int64) (portal.Company, bool) {
	return c.Get(id)
}

// GetByName matches the trimmed name case-insensitively.
func (c *Companies) GetByName(name string) (portal.Company, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return portal.Company{}, false
	}
	matches := c.Filter(func(co portal.Company) bool {
		return strings.EqualFold(strings.TrimSpace(co.Name), name)
	})
	if len(matches) == 0 {
		return portal.Company{}, false
	}
	return matches[0], true
}

// Search returns companies whose name, industry or location contains substr,
// sorted by name. An empty substr returns every company.
func (c *Companies) Search(substr string) []portal.Company {
	needle := strings.ToLower(strings.TrimSpace(substr))
	out := c.Filter(func(co portal.Company) bool {
		if needle == "" {
			return true
		}
		return containsFold(co.Name, needle) || containsFold(co.Industry, needle) || containsFold(co.Location, needle)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func containsFold(s, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(s), lowerNeedle)
}
