package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/IshaanNene/carharvest/internal/translate"
	"github.com/IshaanNene/carharvest/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

var testDict = translate.New(map[string]string{
	"Benzin":                "Petrol",
	"Ferdehátú":             "Hatchback",
	"Első kerék":            "Front wheel",
	"Manuális (5 fokozatú)": "Manual (5 speed)",
	"Érvényes magyar":       "Valid Hungarian",
	"Normál":                "Normal",
	"fekete":                "black",
	"sötét":                 "dark",
	"sötét piros":           "dark red",
})

type failureSpy struct {
	urls []string
}

func (s *failureSpy) Record(stage, target string, err error) {
	s.urls = append(s.urls, target)
}

func listing(url string, fields map[string]any) *types.Listing {
	l := types.NewListing(url)
	l.Title = "Ford Focus"
	for k, v := range fields {
		l.Set(k, v)
	}
	return l
}

func fullListing(url string) *types.Listing {
	return listing(url, map[string]any{
		"Ár (EUR)":                     int64(5500),
		"Vételár (Ft)":                 int64(1890000),
		"Évjárat":                      "2012/05",
		"Kivitel":                      "Ferdehátú",
		"Hajtás":                       "Első kerék",
		"Üzemanyag":                    "Benzin",
		"Sebességváltó fajtája":        "Manuális (5 fokozatú)",
		"Okmányok jellege":             "Érvényes magyar",
		"Állapot":                      "Normál",
		"Szín":                         "fekete (metál)",
		"Kilométeróra állása (km)":     int64(128500),
		"Teljesítmény (LE)":            int64(125),
		"Ajtók száma":                  int64(5),
		"Hengerűrtartalom (cm³)":       int64(1596),
		"Szállítható szem. száma (fő)": int64(5),
		"Garancia":                     "nincs",
	})
}

func newNormalizer(t *testing.T, opts ...Option) *Normalizer {
	t.Helper()
	n, err := NewNormalizer(testDict, testLogger, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestNormalizeFullRow(t *testing.T) {
	table, rep, err := newNormalizer(t).Normalize([]*types.Listing{fullListing("https://e.com/ad-11111111")})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if table.Len() != 1 || rep.OutputRows != 1 {
		t.Fatalf("expected 1 row, got %d", table.Len())
	}

	want := map[string]any{
		ColPrice:            int64(5500),
		ColYear:             int64(2012),
		ColMonth:            int64(5),
		ColForm:             "Hatchback",
		ColDrive:            "Front wheel",
		ColFuel:             "Petrol",
		ColTransmissionType: "Manual (5 speed)",
		ColGears:            int64(5),
		ColDocuments:        "Valid Hungarian",
		ColCondition:        "Normal",
		ColPaint:            "black",
		ColMetallic:         true,
		ColMileage:          int64(128500),
		ColHorsepower:       int64(125),
		ColDoors:            int64(5),
		ColCapacity:         int64(1596),
		ColACType:           nil,
	}
	for col, wantVal := range want {
		if got := table.Cell(0, col); got != wantVal {
			t.Errorf("%s = %v (%T), want %v", col, got, got, wantVal)
		}
	}

	for _, dropped := range []string{"url", "Id", "Title", "Vételár (Ft)", "Garancia", "Évjárat", ColColor, ColTransmission, ColDocumentsType} {
		if table.HasColumn(dropped) {
			t.Errorf("column %q should be dropped", dropped)
		}
	}
	if !table.HasColumn("Szállítható szem. száma (fő)") {
		t.Error("unmapped columns should pass through")
	}
}

func TestNormalizeHeaderOrder(t *testing.T) {
	table, _, err := newNormalizer(t).Normalize([]*types.Listing{fullListing("https://e.com/ad-11111111")})
	if err != nil {
		t.Fatal(err)
	}

	header := table.Header()
	for i, c := range CanonicalSchema {
		if header[i] != c.Name {
			t.Fatalf("header[%d] = %q, want %q", i, header[i], c.Name)
		}
	}
	extras := header[len(CanonicalSchema):]
	if len(extras) != 1 || extras[0] != "Szállítható szem. száma (fő)" {
		t.Errorf("unexpected passthrough columns %v", extras)
	}
}

func TestNormalizeEmptySnapshot(t *testing.T) {
	table, rep, err := newNormalizer(t).Normalize(nil)
	if err != nil {
		t.Fatalf("empty snapshot must not fail: %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("expected no rows, got %d", table.Len())
	}
	if len(table.Header()) != len(CanonicalSchema) {
		t.Errorf("expected canonical header only, got %v", table.Header())
	}
	if rep.InputRows != 0 || rep.OutputRows != 0 {
		t.Errorf("unexpected report %+v", rep)
	}
}

func TestNormalizeNullPriceFilter(t *testing.T) {
	listings := []*types.Listing{
		fullListing("https://e.com/ad-11111111"),
		listing("https://e.com/ad-22222222", map[string]any{"Ár (EUR)": nil, "Kivitel": "Kombi"}),
		listing("https://e.com/ad-33333333", map[string]any{"Kivitel": "Kombi"}),
		fullListing("https://e.com/ad-44444444"),
	}

	table, rep, err := newNormalizer(t).Normalize(listings)
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", table.Len())
	}
	if rep.Filtered != 2 {
		t.Errorf("expected 2 filtered rows, got %d", rep.Filtered)
	}
	for i := 0; i < table.Len(); i++ {
		if table.Cell(i, ColPrice) == nil {
			t.Errorf("row %d has null price", i)
		}
	}
}

func TestNormalizeNonNumericPriceExcluded(t *testing.T) {
	spy := &failureSpy{}
	listings := []*types.Listing{
		fullListing("https://e.com/ad-11111111"),
		listing("https://e.com/ad-22222222", map[string]any{"Ár (EUR)": ""}),
	}

	table, rep, err := newNormalizer(t, WithFailureRecorder(spy)).Normalize(listings)
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() != 1 {
		t.Errorf("expected 1 row, got %d", table.Len())
	}
	if len(rep.Excluded) != 1 {
		t.Fatalf("expected 1 exclusion, got %d", len(rep.Excluded))
	}

	var rowErr *types.RowTypeError
	if !errors.As(rep.Excluded[0].Err, &rowErr) || rowErr.Column != "Ár (EUR)" {
		t.Errorf("expected RowTypeError on price, got %v", rep.Excluded[0].Err)
	}
	if rep.Excluded[0].Key != "https://e.com/ad-22222222" {
		t.Errorf("exclusion should name the listing, got %q", rep.Excluded[0].Key)
	}
	if len(spy.urls) != 1 || spy.urls[0] != "https://e.com/ad-22222222" {
		t.Errorf("expected exclusion in failure log, got %v", spy.urls)
	}
}

func TestNormalizeIdentityFallback(t *testing.T) {
	l := listing("https://e.com/ad-11111111", map[string]any{
		"Ár (EUR)":  int64(4000),
		"Üzemanyag": "Hidrogén",
		"Szín":      "Blue",
	})

	table, _, err := newNormalizer(t).Normalize([]*types.Listing{l})
	if err != nil {
		t.Fatal(err)
	}
	if got := table.Cell(0, ColFuel); got != "Hidrogén" {
		t.Errorf("unknown term should pass through, got %v", got)
	}
	if got := table.Cell(0, ColPaint); got != "Blue" {
		t.Errorf("expected Blue, got %v", got)
	}
	if got := table.Cell(0, ColMetallic); got != false {
		t.Errorf("expected non-metallic, got %v", got)
	}
}

func TestNormalizeGearsAndMissingMonth(t *testing.T) {
	l := listing("https://e.com/ad-11111111", map[string]any{
		"Ár (EUR)":              int64(4000),
		"Évjárat":               "2009",
		"Sebességváltó fajtája": "Manuális",
	})

	table, _, err := newNormalizer(t).Normalize([]*types.Listing{l})
	if err != nil {
		t.Fatal(err)
	}
	if got := table.Cell(0, ColGears); got != nil {
		t.Errorf("expected null gears, got %v", got)
	}
	if got := table.Cell(0, ColYear); got != int64(2009) {
		t.Errorf("expected year 2009, got %v", got)
	}
	if got := table.Cell(0, ColMonth); got != nil {
		t.Errorf("expected null month, got %v", got)
	}
	if got := table.Cell(0, ColTransmissionType); got != "Manuális" {
		t.Errorf("expected untranslated transmission type, got %v", got)
	}
}

func TestNormalizeColorStrategies(t *testing.T) {
	l := listing("https://e.com/ad-11111111", map[string]any{
		"Ár (EUR)": int64(4000),
		"Szín":     "sötét piros (metál)",
	})

	regexTable, _, err := newNormalizer(t, WithColorStrategy("regex")).Normalize([]*types.Listing{l})
	if err != nil {
		t.Fatal(err)
	}
	splitTable, _, err := newNormalizer(t, WithColorStrategy("split")).Normalize([]*types.Listing{l})
	if err != nil {
		t.Fatal(err)
	}

	if got := regexTable.Cell(0, ColPaint); got != "dark red" {
		t.Errorf("regex strategy paint = %v", got)
	}
	if got := splitTable.Cell(0, ColPaint); got != "dark" {
		t.Errorf("split strategy paint = %v", got)
	}

	if _, err := NewNormalizer(testDict, testLogger, WithColorStrategy("guess")); err == nil {
		t.Error("expected error for unknown color strategy")
	}
}

func TestNormalizeEmptyNumericBecomesNull(t *testing.T) {
	l := listing("https://e.com/ad-11111111", map[string]any{
		"Ár (EUR)":               int64(4000),
		"Hengerűrtartalom (cm³)": "",
		"Ajtók száma":            nil,
	})

	table, _, err := newNormalizer(t).Normalize([]*types.Listing{l})
	if err != nil {
		t.Fatal(err)
	}
	if got := table.Cell(0, ColCapacity); got != nil {
		t.Errorf("expected null capacity, got %v", got)
	}
	if got := table.Cell(0, ColDoors); got != nil {
		t.Errorf("expected null doors, got %v", got)
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	l := fullListing("https://e.com/ad-11111111")
	before := len(l.Fields)

	if _, _, err := newNormalizer(t).Normalize([]*types.Listing{l}); err != nil {
		t.Fatal(err)
	}
	if len(l.Fields) != before {
		t.Errorf("listing fields changed: %d -> %d", before, len(l.Fields))
	}
	if v, _ := l.Get("Szín"); v != "fekete (metál)" {
		t.Errorf("listing value changed: %v", v)
	}
}

func TestStepsAreIndependent(t *testing.T) {
	in := NewTable([]string{"a", "b"}, []Row{{Key: "k", Values: map[string]any{"a": 1, "b": 2}}})
	rep := &Report{}

	out, err := (&DropColumns{Label: "drop", Columns: []string{"b", "missing"}}).Apply(in, rep)
	if err != nil {
		t.Fatal(err)
	}
	if out.HasColumn("b") || !in.HasColumn("b") {
		t.Error("drop must return a new table and leave the input intact")
	}
	if in.Cell(0, "b") != 2 {
		t.Error("input row was modified")
	}

	renamed, err := (&RenameColumns{Names: map[string]string{"a": "A"}}).Apply(in, rep)
	if err != nil {
		t.Fatal(err)
	}
	if h := renamed.Header(); len(h) != 2 || h[0] != "A" || h[1] != "b" {
		t.Errorf("unexpected header %v", h)
	}
	if renamed.Cell(0, "A") != 1 {
		t.Errorf("renamed value lost")
	}
}
