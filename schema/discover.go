package schema

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ============================================================================
// AUTO-DISCOVERY — Heuristic column classification
// ============================================================================
// Inspects a CSV sample and produces a Config without any outside help.
//
// Per column:
//   1. Sample values → detect type (numeric, date, bool, string)
//   2. Type + cardinality → role (dimension, measure, skip)
//   3. Pattern matching → temporal strings (months, quarters, years)
//   4. Header words → measure unit and default reducer
//
// Then across columns: hierarchy detection and a synthetic record_count.
// ============================================================================

// Discovery errors.
var (
	ErrNoHeader = errors.New("CSV has no columns")
	ErrNoRows   = errors.New("CSV has no data rows")
)

// RecordCountKey is the synthetic measure every discovered schema carries.
const RecordCountKey = "record_count"

const (
	defaultSampleSize = 1000
	maxSampleRows     = 100000
	maxSampleValues   = 10
	typeThreshold     = 0.8
)

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	SampleSize     int      // max rows to inspect, 0 = all up to a safety cap
	RecoverColumns []string // force-include columns that would be skipped
	Name           string   // dataset name override
	Source         string   // recorded in DiscoveredFrom
}

// DefaultDiscoverOptions returns the options used when none are given.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{SampleSize: defaultSampleSize, Source: "CSV"}
}

// DiscoverFromCSV generates a Config by inspecting CSV data.
func DiscoverFromCSV(data []byte, opts ...DiscoverOptions) (*Config, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	headers, rows, err := readSample(data, opt.SampleSize)
	if err != nil {
		return nil, err
	}

	columns := make([]columnAnalysis, len(headers))
	for i, header := range headers {
		columns[i] = analyzeColumn(header, i, rows)
	}

	recovered := make(map[string]bool, len(opt.RecoverColumns))
	for _, col := range opt.RecoverColumns {
		recovered[strings.ToLower(col)] = true
		recovered[ColumnKey(col)] = true
	}

	cfg := &Config{
		Name:           opt.Name,
		Version:        "1.0",
		DiscoveredFrom: opt.Source,
		DiscoveredAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if cfg.Name == "" {
		cfg.Name = "Auto-discovered Dataset"
	}

	for _, col := range columns {
		switch {
		case col.role == roleDimension:
			cfg.Dimensions = append(cfg.Dimensions, col.toDimension())
		case col.role == roleMeasure:
			cfg.Measures = append(cfg.Measures, col.toMeasure())
		case recovered[strings.ToLower(col.header)] || recovered[col.key]:
			cfg.Dimensions = append(cfg.Dimensions, col.toDimension())
		default:
			cfg.SkippedColumns = append(cfg.SkippedColumns, SkippedColumn{
				Column:      col.header,
				Reason:      col.skipReason,
				Recoverable: col.recoverable,
			})
		}
	}

	cfg.Measures = append(cfg.Measures, MeasureMeta{
		Key:            RecordCountKey,
		DisplayName:    "Record Count",
		Description:    "Number of records (auto-generated)",
		IsSynthetic:    true,
		DefaultReducer: "count",
	})

	detectHierarchies(cfg.Dimensions, rows, columns)

	return cfg, nil
}

// readSample reads the header and up to limit data rows. Malformed rows are skipped.
func readSample(data []byte, limit int) ([]string, [][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrNoHeader
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read CSV headers: %w", err)
	}
	if len(headers) == 0 {
		return nil, nil, ErrNoHeader
	}

	if limit <= 0 || limit > maxSampleRows {
		limit = maxSampleRows
	}

	var rows [][]string
	for len(rows) < limit {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, nil, ErrNoRows
	}
	return headers, rows, nil
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

type columnRole int

const (
	roleDimension columnRole = iota
	roleMeasure
	roleSkipped
)

type columnType int

const (
	typeString columnType = iota
	typeNumeric
	typeDate
	typeBool
)

type columnAnalysis struct {
	header      string
	key         string
	index       int
	colType     columnType
	role        columnRole
	skipReason  string
	recoverable bool

	uniqueCount int
	totalCount  int
	samples     []string
	hasDecimals bool

	isTemporal     bool
	temporalFormat string
	layout         string
	cardinality    string
}

func analyzeColumn(header string, index int, rows [][]string) columnAnalysis {
	col := columnAnalysis{
		header:     header,
		key:        ColumnKey(header),
		index:      index,
		totalCount: len(rows),
	}

	values := make([]string, 0, len(rows))
	unique := make(map[string]bool)
	for _, row := range rows {
		if index >= len(row) {
			continue
		}
		val := strings.TrimSpace(row[index])
		if isNull(val) {
			continue
		}
		values = append(values, val)
		unique[val] = true
	}
	col.uniqueCount = len(unique)

	if len(values) == 0 {
		col.role = roleSkipped
		col.skipReason = "All values are empty/null"
		return col
	}

	col.samples = collectSamples(unique, maxSampleValues)
	col.colType, col.layout = detectType(values)

	switch col.colType {
	case typeNumeric:
		for _, v := range values {
			if strings.Contains(v, ".") {
				col.hasDecimals = true
				break
			}
		}
	case typeString:
		col.isTemporal, col.temporalFormat, col.layout = detectTemporalPattern(col.samples)
	case typeDate:
		col.isTemporal = true
		col.temporalFormat = col.layout
	}

	col.classifyRole()

	switch {
	case col.uniqueCount <= 10:
		col.cardinality = "low"
	case col.uniqueCount <= 100:
		col.cardinality = "medium"
	default:
		col.cardinality = "high"
	}
	return col
}

func looksLikeID(key string) bool {
	for _, w := range strings.Split(key, "_") {
		switch w {
		case "id", "key", "no", "number", "code", "ref":
			return true
		}
	}
	return false
}

func isNull(v string) bool {
	switch v {
	case "", "null", "NULL", "N/A", "n/a":
		return true
	}
	return false
}

// classifyRole determines dimension vs measure vs skip.
func (col *columnAnalysis) classifyRole() {
	rows := col.totalCount
	allUnique := col.uniqueCount == rows && rows > 10

	switch col.colType {
	case typeNumeric:
		if allUnique && !col.hasDecimals && looksLikeID(col.key) {
			col.role = roleSkipped
			col.skipReason = "Unique per row, likely an ID column"
			return
		}
		if col.hasDecimals {
			col.role = roleMeasure
			return
		}
		// Few distinct integers relative to rows reads as a coded dimension (priority 1-5).
		ratio := float64(col.uniqueCount) / float64(rows)
		if col.uniqueCount < 20 && ratio < 0.3 {
			col.role = roleDimension
			return
		}
		col.role = roleMeasure

	case typeDate, typeBool:
		col.role = roleDimension

	case typeString:
		if allUnique {
			col.role = roleSkipped
			col.skipReason = "Unique per row, likely an identifier"
			return
		}
		if col.uniqueCount > rows/2 && col.uniqueCount > 50 {
			col.role = roleSkipped
			col.skipReason = fmt.Sprintf("High cardinality (%d unique values), not useful for grouping", col.uniqueCount)
			col.recoverable = true
			return
		}
		col.role = roleDimension
	}
}

// ============================================================================
// TYPE DETECTION
// ============================================================================

// detectType requires typeThreshold of the values to match for bool, date or
// numeric. For dates it also returns the layout most values parse with.
func detectType(values []string) (columnType, string) {
	var numCount, boolCount int
	layoutCounts := make(map[string]int)

	for _, v := range values {
		if _, ok := ParseNumber(v); ok {
			numCount++
		}
		if isBool(v) {
			boolCount++
		}
		if layout, ok := dateLayout(v); ok {
			layoutCounts[layout]++
		}
	}

	threshold := int(float64(len(values)) * typeThreshold)

	bestLayout, dateCount := "", 0
	for _, layout := range dateLayouts {
		if layoutCounts[layout] > dateCount {
			bestLayout, dateCount = layout, layoutCounts[layout]
		}
	}

	switch {
	case boolCount >= threshold:
		return typeBool, ""
	case dateCount >= threshold && numCount < threshold:
		return typeDate, bestLayout
	case numCount >= threshold:
		return typeNumeric, ""
	}
	return typeString, ""
}

// ParseNumber parses a numeric cell, accepting thousands separators, a
// leading sign and a leading currency symbol. NaN and infinities are not numbers here.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	for _, sym := range []string{"$", "€", "£"} {
		s = strings.TrimPrefix(s, sym)
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

// Go layouts tried for date columns, most specific first.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	time.DateTime,
	"01/02/2006",
	"02/01/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

func dateLayout(s string) (string, bool) {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return layout, true
		}
	}
	return "", false
}

func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "yes", "no":
		return true
	}
	return false
}

// ============================================================================
// TEMPORAL PATTERNS
// ============================================================================

var temporalPatterns = []struct {
	re     *regexp.Regexp
	format string
	layout string
}{
	{regexp.MustCompile(`^[A-Z][a-z]{2}-\d{4}$`), "MMM-yyyy", "Jan-2006"},
	{regexp.MustCompile(`^\d{4}-\d{2}$`), "yyyy-MM", "2006-01"},
	{regexp.MustCompile(`^Q[1-4]-\d{4}$`), "QN-yyyy", ""},
	{regexp.MustCompile(`^Q[1-4]\s+\d{4}$`), "QN yyyy", ""},
	{regexp.MustCompile(`^[A-Z][a-z]+ \d{4}$`), "MMMM yyyy", "January 2006"},
}

// detectTemporalPattern matches string samples against month and quarter
// patterns. Quarters have no Go layout and cannot feed year/month mappers.
func detectTemporalPattern(samples []string) (bool, string, string) {
	if len(samples) == 0 {
		return false, "", ""
	}
	for _, p := range temporalPatterns {
		matches := 0
		for _, s := range samples {
			if p.re.MatchString(s) {
				matches++
			}
		}
		if float64(matches)/float64(len(samples)) >= typeThreshold {
			return true, p.format, p.layout
		}
	}
	return false, "", ""
}

// ============================================================================
// UNITS
// ============================================================================

var unitWords = []struct {
	unit    string
	reducer string
	words   []string
}{
	{"hours", "sum", []string{"hour", "hours", "hrs"}},
	{"points", "average", []string{"point", "points", "score"}},
	{"percent", "average", []string{"percent", "pct", "rate", "discount"}},
	{"currency", "sum", []string{"amount", "price", "revenue", "cost", "salary", "total", "bonus"}},
	{"units", "sum", []string{"quantity", "qty", "count", "units"}},
}

// inferUnit guesses a measure's unit and default reducer from its header words.
func inferUnit(key string) (string, string) {
	words := strings.FieldsFunc(key, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, u := range unitWords {
		for _, w := range words {
			for _, candidate := range u.words {
				if w == candidate {
					return u.unit, u.reducer
				}
			}
		}
	}
	return "", "sum"
}

// ============================================================================
// HIERARCHY DETECTION
// ============================================================================

// detectHierarchies marks A as parent of B when every value of B maps to
// exactly one value of A and A has fewer distinct values. Among several valid
// parents the one with the most distinct values wins.
func detectHierarchies(dims []DimensionMeta, rows [][]string, columns []columnAnalysis) {
	byKey := make(map[string]columnAnalysis, len(columns))
	for _, col := range columns {
		byKey[col.key] = col
	}

	for i := range dims {
		child, ok := byKey[dims[i].Key]
		if !ok {
			continue
		}

		best, bestUnique := "", 0
		for j := range dims {
			if i == j {
				continue
			}
			parent, ok := byKey[dims[j].Key]
			if !ok || parent.uniqueCount >= child.uniqueCount {
				continue
			}
			if parent.uniqueCount > bestUnique && functionallyDependent(rows, child.index, parent.index) {
				best, bestUnique = parent.key, parent.uniqueCount
			}
		}
		dims[i].Parent = best
	}
}

func functionallyDependent(rows [][]string, childIdx, parentIdx int) bool {
	mapping := make(map[string]string)
	for _, row := range rows {
		if childIdx >= len(row) || parentIdx >= len(row) {
			continue
		}
		c, p := strings.TrimSpace(row[childIdx]), strings.TrimSpace(row[parentIdx])
		if c == "" || p == "" {
			continue
		}
		if prev, ok := mapping[c]; ok && prev != p {
			return false
		}
		mapping[c] = p
	}
	return len(mapping) > 1
}

// ============================================================================
// CONVERSION HELPERS
// ============================================================================

func (col *columnAnalysis) toDimension() DimensionMeta {
	return DimensionMeta{
		Key:             col.key,
		DisplayName:     toDisplayName(col.header),
		SampleValues:    col.samples,
		IsTemporal:      col.isTemporal,
		TemporalFormat:  col.temporalFormat,
		Layout:          col.layout,
		CardinalityHint: col.cardinality,
	}
}

func (col *columnAnalysis) toMeasure() MeasureMeta {
	unit, reducer := inferUnit(col.key)
	return MeasureMeta{
		Key:            col.key,
		DisplayName:    toDisplayName(col.header),
		Unit:           unit,
		DefaultReducer: reducer,
	}
}

// ColumnKey converts a header to a column key: "Column Name" and
// "columnName" both become snake case.
func ColumnKey(s string) string {
	var b strings.Builder
	var prev rune
	for i, r := range strings.TrimSpace(s) {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
			b.WriteRune('_')
		}
		b.WriteRune(r)
		prev = r
	}

	key := strings.ToLower(b.String())
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	for strings.Contains(key, "__") {
		key = strings.ReplaceAll(key, "__", "_")
	}
	return strings.Trim(key, "_")
}

// toDisplayName turns "story_points" into "Story Points". Headers that
// already contain spaces are kept as written.
func toDisplayName(s string) string {
	if strings.Contains(s, " ") {
		return strings.TrimSpace(s)
	}
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// collectSamples returns up to n distinct values in sorted order.
func collectSamples(unique map[string]bool, n int) []string {
	samples := make([]string, 0, len(unique))
	for v := range unique {
		samples = append(samples, v)
	}
	sort.Strings(samples)
	if len(samples) > n {
		samples = samples[:n]
	}
	return samples
}
