package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/ginjaninja78/shop-pos/pkg/utils"
)

// deletedRecord is the on-disk form of one entry, keyed by product name.
type deletedRecord struct {
	ProductData map[string]string `json:"product_data"`
	DeletedAt   string            `json:"deleted_at"`
	DeletedBy   string            `json:"deleted_by"`
}

// DeletedStore is the bounded "recently deleted" side store.
type DeletedStore struct {
	path      string
	retention int
	entries   map[string]deletedRecord
}

// OpenDeleted loads the side store. A missing file is an empty store.
func OpenDeleted(path string, retention int) (*DeletedStore, error) {
	ds := &DeletedStore{path: path, retention: retention, entries: make(map[string]deletedRecord)}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return ds, nil
	}
	if err != nil {
		return nil, apperr.Persistence("read deleted products", path, err)
	}
	if len(data) == 0 {
		return ds, nil
	}
	if err := json.Unmarshal(data, &ds.entries); err != nil {
		return nil, apperr.Persistence("parse deleted products", path, err)
	}
	return ds, nil
}

// List returns the entries, most recently deleted first.
func (ds *DeletedStore) List() []domain.DeletedProduct {
	out := make([]domain.DeletedProduct, 0, len(ds.entries))
	for name, rec := range ds.entries {
		p, err := DecodeRow(rec.ProductData, 0)
		if err != nil {
			p = domain.Product{Name: name}
		}
		out = append(out, domain.DeletedProduct{Product: p, DeletedAt: rec.DeletedAt, DeletedBy: rec.DeletedBy})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DeletedAt != out[j].DeletedAt {
			return out[i].DeletedAt > out[j].DeletedAt
		}
		return out[i].Product.Name < out[j].Product.Name
	})
	return out
}

// Get returns one entry.
func (ds *DeletedStore) Get(name string) (domain.DeletedProduct, bool) {
	rec, ok := ds.entries[domain.CanonicalName(name)]
	if !ok {
		return domain.DeletedProduct{}, false
	}
	p, err := DecodeRow(rec.ProductData, 0)
	if err != nil {
		return domain.DeletedProduct{}, false
	}
	return domain.DeletedProduct{Product: p, DeletedAt: rec.DeletedAt, DeletedBy: rec.DeletedBy}, true
}

// put records a deletion and trims the store to its retention.
func (ds *DeletedStore) put(entry domain.DeletedProduct) error {
	ds.entries[entry.Product.Name] = deletedRecord{
		ProductData: EncodeRow(entry.Product),
		DeletedAt:   entry.DeletedAt,
		DeletedBy:   entry.DeletedBy,
	}
	if ds.retention > 0 && len(ds.entries) > ds.retention {
		for _, old := range ds.List()[ds.retention:] {
			delete(ds.entries, old.Product.Name)
		}
	}
	return ds.save()
}

// remove drops an entry after a restore or a purge.
func (ds *DeletedStore) remove(name string) error {
	name = domain.CanonicalName(name)
	if _, ok := ds.entries[name]; !ok {
		return apperr.NotFound(name)
	}
	delete(ds.entries, name)
	return ds.save()
}

// Purge hard-deletes one entry.
func (ds *DeletedStore) Purge(name string) error {
	return ds.remove(name)
}

func (ds *DeletedStore) save() error {
	err := utils.WriteFileAtomic(ds.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(ds.entries); err != nil {
			return fmt.Errorf("failed to encode deleted products: %w", err)
		}
		return nil
	})
	return apperr.Persistence("write deleted products", ds.path, err)
}
