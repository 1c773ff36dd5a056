package query

import (
	"fmt"
	"strings"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/store"
)

// PageParams are the raw paging inputs of a listing.
type PageParams struct {
	First     int
	Skip      int
	Direction string
}

// page validates paging inputs. first <= 0 means the default page size.
func (p PageParams) page() (store.Page, error) {
	page := store.Page{First: p.First, Skip: max(p.Skip, 0), Direction: store.Desc}
	switch strings.ToLower(p.Direction) {
	case "", "desc":
	case "asc":
		page.Direction = store.Asc
	default:
		return store.Page{}, fmt.Errorf("%w: %q", domain.ErrInvalidDirection, p.Direction)
	}
	return page, nil
}

// optionalAddress normalizes an address filter, keeping empty as "any".
func optionalAddress(field, addr string) (string, error) {
	if addr == "" {
		return "", nil
	}
	a, err := domain.NormalizeAddress(addr)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	return a, nil
}

func parseTaskStatuses(raw []string) ([]domain.TaskStatus, error) {
	var out []domain.TaskStatus
	for _, r := range raw {
		s := domain.TaskStatus(strings.TrimSpace(r))
		if s == "" {
			continue
		}
		if !s.IsValid() {
			return nil, fmt.Errorf("%w: task status %q", domain.ErrInvalidStatus, r)
		}
		out = append(out, s)
	}
	return out, nil
}

func parseDisputeStatuses(raw []string) ([]domain.DisputeStatus, error) {
	var out []domain.DisputeStatus
	for _, r := range raw {
		s := domain.DisputeStatus(strings.TrimSpace(r))
		if s == "" {
			continue
		}
		if !s.IsValid() {
			return nil, fmt.Errorf("%w: dispute status %q", domain.ErrInvalidStatus, r)
		}
		out = append(out, s)
	}
	return out, nil
}
