// Package catalog builds and serves the schema catalogue: the set of
// warehouse tables/columns the gateway is allowed to reference, overlaid
// with a static domain map and a keyword index used by the domain router
// and SQL generator.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Domain is one of the two business domains the warehouse is partitioned
// into, plus a third bucket for tables shared across both.
type Domain string

const (
	DomainClaimsDiagnosis  Domain = "clinical_claims_diagnosis"
	DomainProviders        Domain = "providers_facilities"
	DomainSupporting       Domain = "supporting"
	DomainUnknown          Domain = ""
)

// Column describes one warehouse column as introspected from
// information_schema.
type Column struct {
	Name       string
	DataType   string
	Nullable   bool
	IsPrimary  bool
}

// Table describes one warehouse table and its overlayed domain/keywords.
type Table struct {
	Name     string
	Domain   Domain
	Columns  []Column
	Keywords []string
}

// domain1Markers, domain2Markers and supportMarkers are substring markers used to classify a table name into
// a domain, ported from schema_mapper.py's DOMAIN1_TABLES/DOMAIN2_TABLES/
// SUPPORTING_TABLES sets.
var (
	domain1Markers = []string{"claim", "diagnos", "health_record", "service", "icd_code"}
	domain2Markers = []string{"provider", "facilit"}
	supportMarkers = []string{"user", "state", "lga", "zone", "branch"}
)

// tableKeywords mirrors schema_mapper.py's TABLE_KEYWORDS: natural-language
// terms that hint a table is relevant to an utterance.
var tableKeywords = map[string][]string{
	"claims":    {"claim", "claims", "clinical claim", "medical claim"},
	"diagnoses": {"diagnosis", "diagnoses", "disease", "diseases", "illness", "condition"},
	"providers": {"provider", "providers", "facility", "facilities", "hospital", "hospitals", "clinic", "clinics"},
	"users":     {"user", "users", "patient", "patients", "beneficiary", "beneficiaries"},
	"states":    {"state", "states", "geography", "geographic", "location"},
	"services":  {"service", "services", "treatment", "treatments", "procedure", "procedures"},
}

func classifyDomain(tableName string) Domain {
	lower := strings.ToLower(tableName)
	for _, m := range domain1Markers {
		if strings.Contains(lower, m) {
			return DomainClaimsDiagnosis
		}
	}
	for _, m := range domain2Markers {
		if strings.Contains(lower, m) {
			return DomainProviders
		}
	}
	for _, m := range supportMarkers {
		if strings.Contains(lower, m) {
			return DomainSupporting
		}
	}
	// Unknown tables default to the clinical domain — it is the larger,
	// more common surface, matching schema_mapper.py's fallback.
	return DomainClaimsDiagnosis
}

// Schema is an immutable snapshot of the warehouse catalogue. A new Schema
// is built wholesale by Load/Refresh and swapped in atomically; it is never
// mutated in place.
type Schema struct {
	tables map[string]Table
}

// Describe returns the Table for the given name (case-insensitive).
func (s *Schema) Describe(table string) (Table, bool) {
	t, ok := s.tables[strings.ToLower(table)]
	return t, ok
}

// DomainOf returns the domain a table belongs to.
func (s *Schema) DomainOf(table string) (Domain, bool) {
	t, ok := s.Describe(table)
	if !ok {
		return DomainUnknown, false
	}
	return t.Domain, true
}

// TablesFor returns table names whose keywords intersect the given list,
// ported from schema_mapper.py's detect_tables_from_query.
func (s *Schema) TablesFor(keywords []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range s.tables {
		for _, kw := range t.Keywords {
			for _, q := range keywords {
				if kw == q && !seen[t.Name] {
					seen[t.Name] = true
					out = append(out, t.Name)
				}
			}
		}
	}
	return out
}

// TableNames returns every known table name.
func (s *Schema) TableNames() []string {
	out := make([]string, 0, len(s.tables))
	for name := range s.tables {
		out = append(out, name)
	}
	return out
}

// NewSchema builds a Schema snapshot directly from a table map, bypassing
// warehouse introspection. Used by tests and by any future static-fixture
// deployment mode.
func NewSchema(tables map[string]Table) *Schema {
	return &Schema{tables: tables}
}

// NewCatalogueFromSchema wraps an already-built Schema in a Catalogue
// without touching the warehouse. Used by tests that exercise routing logic
// without a live database.
func NewCatalogueFromSchema(schema *Schema) *Catalogue {
	c := &Catalogue{}
	c.cur.Store(schema)
	return c
}

// Catalogue owns the current Schema snapshot behind an atomic pointer so a
// future admin-triggered Refresh can swap it without a stop-the-world lock.
type Catalogue struct {
	pool *pgxpool.Pool
	cur  atomic.Pointer[Schema]
}

// Load introspects information_schema against the warehouse pool, builds
// the initial Schema snapshot, and returns a ready-to-use Catalogue.
func Load(ctx context.Context, pool *pgxpool.Pool) (*Catalogue, error) {
	c := &Catalogue{pool: pool}
	schema, err := buildSchema(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("catalog: initial load: %w", err)
	}
	c.cur.Store(schema)
	return c, nil
}

// Refresh re-introspects the warehouse and atomically swaps in a new
// snapshot. Safe to call concurrently with Current.
func (c *Catalogue) Refresh(ctx context.Context) error {
	schema, err := buildSchema(ctx, c.pool)
	if err != nil {
		return fmt.Errorf("catalog: refresh: %w", err)
	}
	c.cur.Store(schema)
	return nil
}

// Current returns the currently active Schema snapshot.
func (c *Catalogue) Current() *Schema {
	return c.cur.Load()
}

const columnsQuery = `
SELECT c.table_name, c.column_name, c.data_type, c.is_nullable,
       COALESCE(k.is_primary, false) AS is_primary
FROM information_schema.columns c
LEFT JOIN (
    SELECT kcu.table_name, kcu.column_name, true AS is_primary
    FROM information_schema.key_column_usage kcu
    JOIN information_schema.table_constraints tc
      ON tc.constraint_name = kcu.constraint_name
     AND tc.constraint_type = 'PRIMARY KEY'
) k ON k.table_name = c.table_name AND k.column_name = c.column_name
WHERE c.table_schema = 'public'
ORDER BY c.table_name, c.ordinal_position`

func buildSchema(ctx context.Context, pool *pgxpool.Pool) (*Schema, error) {
	rows, err := pool.Query(ctx, columnsQuery)
	if err != nil {
		return nil, fmt.Errorf("query information_schema.columns: %w", err)
	}
	defer rows.Close()

	tables := make(map[string]Table)
	for rows.Next() {
		var tableName, columnName, dataType, nullable string
		var isPrimary bool
		if err := rows.Scan(&tableName, &columnName, &dataType, &nullable, &isPrimary); err != nil {
			return nil, fmt.Errorf("scan information_schema row: %w", err)
		}

		key := strings.ToLower(tableName)
		t, ok := tables[key]
		if !ok {
			t = Table{
				Name:     key,
				Domain:   classifyDomain(key),
				Keywords: tableKeywords[key],
			}
		}
		t.Columns = append(t.Columns, Column{
			Name:      columnName,
			DataType:  dataType,
			Nullable:  nullable == "YES",
			IsPrimary: isPrimary,
		})
		tables[key] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate information_schema rows: %w", err)
	}

	return &Schema{tables: tables}, nil
}
