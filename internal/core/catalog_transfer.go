package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ingredientcore/internal/blob"
	"ingredientcore/pkg/domain"
	"ingredientcore/pkg/domain/fieldmap"
)

// CatalogFormatVersion is the version written into catalog exports.
const CatalogFormatVersion = 1

// CatalogExport is the document written by ExportCatalog.
type CatalogExport struct {
	Version    int           `json:"version"`
	GroupID    string        `json:"group_id"`
	ExportedAt time.Time     `json:"exported_at"`
	Units      []domain.Unit `json:"units"`
	Foods      []domain.Food `json:"foods"`
}

type catalogDocument struct {
	Version int               `json:"version"`
	GroupID string            `json:"group_id"`
	Units   []fieldmap.Fields `json:"units"`
	Foods   []fieldmap.Fields `json:"foods"`
}

// ImportReport counts the records created and skipped by ImportCatalog.
type ImportReport struct {
	Units   int `json:"units"`
	Foods   int `json:"foods"`
	Skipped int `json:"skipped"`
}

// ErrCatalogVersion is returned when an export has an unsupported format version.
var ErrCatalogVersion = errors.New("unsupported catalog export version")

// ExportCatalog writes the units and foods of groupID to store as JSON. An
// empty key derives one from the group and the service clock.
func (s *Service) ExportCatalog(ctx context.Context, store blob.Store, groupID, key string) (blob.Info, error) {
	var info blob.Info
	err := s.read(ctx, "export_catalog", func(ctx context.Context) error {
		if groupID == "" {
			return domain.ErrGroupRequired
		}
		doc := CatalogExport{Version: CatalogFormatVersion, GroupID: groupID, ExportedAt: s.now()}
		if err := s.store.View(ctx, func(v domain.TransactionView) error {
			doc.Units = v.ListUnits(groupID)
			doc.Foods = v.ListFoods(groupID)
			return nil
		}); err != nil {
			return err
		}
		payload, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("encode catalog: %w", err)
		}
		if key == "" {
			key = fmt.Sprintf("exports/%s/catalog-%s.json", groupID, doc.ExportedAt.Format("20060102T150405Z"))
		}
		info, err = store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
			ContentType: "application/json",
			Metadata:    map[string]string{"group_id": groupID, "units": fmt.Sprint(len(doc.Units)), "foods": fmt.Sprint(len(doc.Foods))},
		})
		return err
	})
	return info, err
}

// ImportCatalog reads an export from store and creates its units and foods in
// groupID within one transaction. Records get fresh ids and recomputed
// shadows; names already present in the group are skipped.
func (s *Service) ImportCatalog(ctx context.Context, store blob.Store, key, groupID string) (ImportReport, domain.Result, error) {
	var report ImportReport
	res, err := s.run(ctx, "import_catalog", func(ctx context.Context) (domain.Result, error) {
		if groupID == "" {
			return domain.Result{}, domain.ErrGroupRequired
		}
		doc, err := readCatalog(ctx, store, key)
		if err != nil {
			return domain.Result{}, err
		}
		cat := s.store.Catalog()
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			report = ImportReport{}
			view := tx.Snapshot()
			unitNames := make(map[string]struct{})
			for _, u := range view.ListUnits(groupID) {
				if n := u.Name(); n != nil {
					unitNames[*n] = struct{}{}
				}
			}
			for i, fields := range doc.Units {
				unit, err := domain.NewUnit(cat, importFields(fields, groupID))
				if err != nil {
					return fmt.Errorf("unit %d: %w", i, err)
				}
				if seen(unitNames, unit.Name()) {
					report.Skipped++
					continue
				}
				if _, err := tx.CreateUnit(unit); err != nil {
					return err
				}
				report.Units++
			}
			foodNames := make(map[string]struct{})
			for _, f := range view.ListFoods(groupID) {
				if n := f.Name(); n != nil {
					foodNames[*n] = struct{}{}
				}
			}
			for i, fields := range doc.Foods {
				food, err := domain.NewFood(cat, importFields(fields, groupID))
				if err != nil {
					return fmt.Errorf("food %d: %w", i, err)
				}
				if seen(foodNames, food.Name()) {
					report.Skipped++
					continue
				}
				if _, err := tx.CreateFood(food); err != nil {
					return err
				}
				report.Foods++
			}
			return nil
		})
	})
	return report, res, err
}

func readCatalog(ctx context.Context, store blob.Store, key string) (catalogDocument, error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return catalogDocument{}, err
	}
	defer func() { _ = rc.Close() }()
	var doc catalogDocument
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return catalogDocument{}, fmt.Errorf("decode catalog %s: %w", key, err)
	}
	if doc.Version != CatalogFormatVersion {
		return catalogDocument{}, fmt.Errorf("%w: %d", ErrCatalogVersion, doc.Version)
	}
	return doc, nil
}

// importFields strips identity and timestamps so the store assigns fresh ones,
// and rebinds the record to groupID.
func importFields(in fieldmap.Fields, groupID string) fieldmap.Fields {
	out := make(fieldmap.Fields, len(in))
	for k, v := range in {
		switch k {
		case "id", "created_at", "updated_at":
			continue
		}
		out[k] = v
	}
	out["group_id"] = groupID
	if extras, ok := out["extras"].([]any); ok {
		stripped := make([]any, 0, len(extras))
		for _, e := range extras {
			m, ok := e.(map[string]any)
			if !ok {
				stripped = append(stripped, e)
				continue
			}
			c := make(map[string]any, len(m))
			for k, v := range m {
				if k != "id" {
					c[k] = v
				}
			}
			stripped = append(stripped, c)
		}
		out["extras"] = stripped
	}
	return out
}

// seen reports whether name is already taken, recording it otherwise. Nil
// names never collide.
func seen(names map[string]struct{}, name *string) bool {
	if name == nil {
		return false
	}
	if _, ok := names[*name]; ok {
		return true
	}
	names[*name] = struct{}{}
	return false
}
