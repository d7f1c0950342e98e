// Package pipeline normalizes a snapshot of raw listing records into the
// canonical table. The pass is an ordered list of pure steps, each returning
// a new table.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/carharvest/internal/extract"
	"github.com/IshaanNene/carharvest/internal/observability"
	"github.com/IshaanNene/carharvest/internal/types"
)

// Raw column names read by the pipeline.
const (
	rawPrice = "Ár (EUR)"
	rawDate  = "Évjárat"
	rawYear  = "Évjárat év"
	rawMonth = "Évjárat hónap"
)

// NoiseColumns are raw fields with no analytic value: storage-internal keys,
// alternate price variants, financing, tire and warranty details.
var NoiseColumns = []string{
	"Akciós ár",
	"Alaptípus ára",
	"Alvázszám",
	"Bérelési lehetőség",
	"Egyéb költségek",
	"Extrákkal növelt ár",
	"Finanszírozás",
	"Finanszírozás típusa CASCO nélkül",
	"Finanszírozás típusa CASCO-val",
	"Futamidő",
	"Futamidő CASCO nélkül",
	"Futásidő",
	"Garancia",
	"Havi részlet",
	"Hátsó nyári gumi méret",
	"Hátsó téli gumi méret",
	"Kezdőrészlet",
	"Kezdőrészlet CASCO nélkül",
	"Kilométeróra állása (Nincsmegadva)",
	"Kárpit színe (1)",
	"Kárpit színe (2)",
	"Szavatossági garancia",
	"Tető",
	"Téli gumi méret",
	"_id",
	types.FieldURL,
	"Átrozsdásodási garancia",
	"Vételár ()",
	"Vételár (Ft)",
	"Vételár (FtHitelkalkulátoritt›)",
	"Vételár (Árnélkül)",
	"Teljes vételár",
	"Nyári gumi méret",
	types.FieldTitle,
	types.FieldID,
	"Henger-elrendezés",
}

// ColumnNames maps raw labels to canonical column names.
var ColumnNames = map[string]string{
	"Ajtók száma":              ColDoors,
	"C-Max":                    ColCMaxVariant,
	"Csomagtartó (liter)":      ColTrunkCapacity,
	"Hajtás":                   ColDrive,
	"Hengerűrtartalom (cm³)":   ColCapacity,
	"Kilométeróra állása (km)": ColMileage,
	"Kivitel":                  ColForm,
	"Klíma fajtája":            ColACType,
	"Műszaki vizsga érvényes":  ColDocumentsValid,
	"Okmányok jellege":         ColDocumentsType,
	"Saját tömeg (kg)":         ColOwnWeight,
	"Sebességváltó fajtája":    ColTransmission,
	"Szín":                     ColColor,
	"Teljesítmény (LE)":        ColHorsepower,
	"Állapot":                  ColCondition,
	rawPrice:                   ColPrice,
	"Össztömeg (kg)":           ColTotalWeight,
	"Üzemanyag":                ColFuel,
	rawYear:                    ColYear,
	rawMonth:                   ColMonth,
}

// Exclusion is a row left out of the output.
type Exclusion struct {
	Key  string
	Step string
	Err  error
}

// Report summarizes one normalization pass.
type Report struct {
	SchemaVersion int
	InputRows     int
	OutputRows    int

	// Filtered counts rows dropped for a null price.
	Filtered int

	// Excluded lists rows dropped for a type error.
	Excluded []Exclusion

	Elapsed time.Duration

	step string
}

func (r *Report) filter(Row) {
	r.Filtered++
}

func (r *Report) exclude(row Row, err error) {
	r.Excluded = append(r.Excluded, Exclusion{Key: row.Key, Step: r.step, Err: err})
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithColorStrategy selects the color derivation: "regex" (default) or
// "split".
func WithColorStrategy(strategy string) Option {
	return func(n *Normalizer) { n.colorStrategy = strategy }
}

// WithFailureRecorder sends every excluded row to fr.
func WithFailureRecorder(fr observability.FailureRecorder) Option {
	return func(n *Normalizer) { n.failures = fr }
}

// WithMetrics counts written and excluded rows.
func WithMetrics(m *observability.Metrics) Option {
	return func(n *Normalizer) { n.metrics = m }
}

// Normalizer runs the normalization steps over a store snapshot.
type Normalizer struct {
	dict          extract.Dictionary
	colorStrategy string
	steps         []Step
	failures      observability.FailureRecorder
	metrics       *observability.Metrics
	logger        *slog.Logger
}

// NewNormalizer builds the standard step list around dict.
func NewNormalizer(dict extract.Dictionary, logger *slog.Logger, opts ...Option) (*Normalizer, error) {
	n := &Normalizer{
		dict:          dict,
		colorStrategy: "regex",
		failures:      observability.Discard{},
		logger:        logger.With("component", "normalizer"),
	}
	for _, opt := range opts {
		opt(n)
	}

	var color ColorFunc
	switch n.colorStrategy {
	case "", "regex":
		color = extract.ColorRegex
	case "split":
		color = extract.ColorSplit //nolint:staticcheck // selectable for comparison with old output
	default:
		return nil, fmt.Errorf("unknown color strategy %q", n.colorStrategy)
	}

	n.steps = []Step{
		&DropColumns{Label: "drop_noise", Columns: NoiseColumns},
		&FilterNull{Column: rawPrice},
		&RetypeInt{Column: rawPrice},
		&DeriveManufactureDate{Source: rawDate, Year: rawYear, Month: rawMonth},
		&RenameColumns{Names: ColumnNames},
		&TranslateColumns{
			Dict:    dict,
			InPlace: []string{ColDrive, ColForm, ColACType, ColCondition, ColFuel},
			Derived: map[string]string{
				ColTransmissionType: ColTransmission,
				ColDocuments:        ColDocumentsType,
			},
		},
		&DeriveGears{Source: ColTransmission, Target: ColGears},
		&DeriveColor{Source: ColColor, Paint: ColPaint, Metallic: ColMetallic, Dict: dict, Split: color},
		&DropColumns{Label: "drop_intermediate", Columns: []string{ColTransmission, ColDocumentsType, rawDate, ColColor}},
		&Project{Schema: CanonicalSchema},
	}
	return n, nil
}

// Steps returns the ordered step list.
func (n *Normalizer) Steps() []Step {
	return append([]Step(nil), n.steps...)
}

// Normalize turns a store snapshot into the canonical table. An empty
// snapshot yields a table with the canonical header and no rows. Rows that
// fail a step are excluded and reported, never fatal.
func (n *Normalizer) Normalize(listings []*types.Listing) (*Table, *Report, error) {
	start := time.Now()
	rep := &Report{SchemaVersion: SchemaVersion, InputRows: len(listings)}

	table := FromListings(listings)
	for _, step := range n.steps {
		rep.step = step.Name()
		excludedBefore := len(rep.Excluded)

		next, err := step.Apply(table, rep)
		if err != nil {
			return nil, rep, fmt.Errorf("step %s: %w", step.Name(), err)
		}
		table = next

		for _, ex := range rep.Excluded[excludedBefore:] {
			n.logger.Warn("row excluded", "step", ex.Step, "url", ex.Key, "error", ex.Err)
			n.failures.Record(observability.StageNormalize, ex.Key, ex.Err)
		}
		n.logger.Debug("step done", "step", step.Name(), "rows", table.Len())
	}

	rep.OutputRows = table.Len()
	rep.Elapsed = time.Since(start)

	if n.metrics != nil {
		n.metrics.RowsWritten.Add(int64(rep.OutputRows))
		n.metrics.RowsExcluded.Add(int64(rep.Filtered + len(rep.Excluded)))
	}

	n.logger.Info("normalization finished",
		"schema_version", rep.SchemaVersion,
		"input", rep.InputRows,
		"output", rep.OutputRows,
		"null_price", rep.Filtered,
		"type_errors", len(rep.Excluded),
		"elapsed", rep.Elapsed,
	)
	return table, rep, nil
}
