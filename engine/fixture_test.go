package engine

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ── Test Data ─────────────────────────────────────────────────────────────────

type invoice struct {
	kind   string
	date   time.Time
	amount int
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

var invoices = []invoice{
	{"SalesInvoice", day("2020-02-01"), 53},
	{"PurchaseInvoice", day("2021-04-02"), 1100},
	{"SalesCreditNote", day("2020-02-03"), 23000},
	{"SalesCreditNote", day("2021-04-04"), 3100},
	{"Quote", day("2020-05-05"), 43000},
	{"Order", day("2021-12-06"), 59},
	{"SalesInvoice", day("2020-02-07"), 6100},
	{"PurchaseInvoice", day("2022-06-08"), 79000},
	{"PurchaseCreditNote", day("2020-05-09"), 83000},
	{"SalesInvoice", day("2020-05-10"), 990},
	{"SalesInvoice", day("2022-06-11"), 130},
	{"PurchaseInvoice", day("2022-12-12"), 1700},
	{"SalesInvoice", day("2020-11-13"), 19000},
	{"PurchaseCreditNote", day("2020-11-14"), 23},
	{"SalesInvoice", day("2021-04-15"), 110},
	{"SalesInvoice", day("2022-06-16"), 170000},
}

func newInvoiceRegistry(t *testing.T) *Registry[invoice] {
	t.Helper()

	reg := NewRegistry[invoice]()
	require.NoError(t, RegisterBuiltins(reg))

	mappers := []Mapper[invoice]{
		NewMapper("monthly",
			func(i invoice) any { return time.Date(i.date.Year(), i.date.Month(), 1, 0, 0, 0, 0, time.UTC) },
			func(v any) string { return v.(time.Time).Format("January 2006") }),
		NewMapper("yearly", func(i invoice) any { return i.date.Year() }, nil),
		NewMapper("type", func(i invoice) any { return i.kind }, nil),
		NewMapper("scale", func(i invoice) any { return int(math.Log10(float64(i.amount))) }, nil),
		NewMapper("invoice_amount", func(i invoice) any { return i.amount }, nil),
	}
	for _, m := range mappers {
		require.NoError(t, reg.RegisterMapper(m))
	}

	require.NoError(t, reg.RegisterReducer(NewLatest("newest", func(v any) any { return v.(invoice).date })))
	return reg
}

func buildGrid(t *testing.T, reg *Registry[invoice], req Request, opts ...Option) *Grid[invoice] {
	t.Helper()

	f, err := NewFactory[invoice](req, opts...)
	require.NoError(t, err)

	g, err := f.Grid(reg, invoices)
	require.NoError(t, err)
	return g
}

func cellValues(t *testing.T, g *Grid[invoice], coords ...Coord) []any {
	t.Helper()

	a, err := g.At(coords...)
	require.NoError(t, err, "cell %v", coords)
	return a.Reduced
}

// fullCells renders every cell without a Total coordinate as "labels : reduced".
func fullCells(g *Grid[invoice]) []string {
	var out []string
	for _, a := range g.Cells() {
		if hasTotal(a.Key) {
			continue
		}
		out = append(out, a.String())
	}
	return out
}

func hasTotal(k Key) bool {
	for i := 0; i < k.Len(); i++ {
		if k.At(i).IsTotal() {
			return true
		}
	}
	return false
}

func totalMask(k Key) string {
	mask := make([]byte, k.Len())
	for i := range mask {
		mask[i] = '1'
		if k.At(i).IsTotal() {
			mask[i] = '0'
		}
	}
	return string(mask)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
