package canon

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type sig struct {
	R *big.Int
	S *big.Int
}

type item struct {
	Name string
	Sig  sig
}

type doc struct {
	Zebra   string
	Alpha   int
	Hash    []byte
	Big     *big.Int
	Flag    bool
	Items   []item
	Totals  map[int]decimal.Decimal
	Amount  decimal.Decimal
	Renamed string `json:"renamed"`
	Skipped string `json:"-"`
	private int
}

func bigInt(t *testing.T, s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "bad fixture %s", s)
	return n
}

func TestMarshalShape(t *testing.T) {
	d := doc{
		Zebra:   "<z&>",
		Alpha:   7,
		Hash:    []byte{1, 2, 3},
		Big:     bigInt(t, "115792089210356248762697446949407573529996955224135760342422259061068512044369"),
		Flag:    true,
		Items:   []item{{Name: "a", Sig: sig{R: big.NewInt(1), S: big.NewInt(2)}}},
		Totals:  map[int]decimal.Decimal{10: decimal.RequireFromString("1.5"), 2: decimal.RequireFromString("3")},
		Amount:  decimal.RequireFromString("12.25"),
		Renamed: "r",
		Skipped: "never",
	}
	out, err := Marshal(d, SortedMaps("Totals"))
	require.NoError(t, err)
	require.Equal(t,
		`{"Zebra":"\u003cz\u0026\u003e","Alpha":7,"Hash":"AQID",`+
			`"Big":115792089210356248762697446949407573529996955224135760342422259061068512044369,`+
			`"Flag":true,"Items":[{"Name":"a","Sig":{"R":1,"S":2}}],`+
			`"Totals":{"10":1.5,"2":3},"Amount":12.25,"renamed":"r"}`,
		string(out))
}

func TestMatchesEncodingJSON(t *testing.T) {
	// Without decimals, the canonical form is exactly encoding/json's.
	type plain struct {
		S     string
		N     int64
		F     float64
		B     []byte
		Big   *big.Int
		Nil   *big.Int
		List  []string
		Empty []string
		M     map[string]int
	}
	p := plain{
		S:    "quote\" and <tag>",
		N:    -42,
		F:    0.1,
		B:    []byte("hello world"),
		Big:  bigInt(t, "98765432109876543210987654321"),
		List: []string{"x", "y"},
		M:    map[string]int{"b": 2, "a": 1, "c": 3},
	}
	want, err := json.Marshal(p)
	require.NoError(t, err)
	got, err := Marshal(p, SortedMaps("M"))
	require.NoError(t, err)
	require.Equal(t, string(want), string(got))
}

func TestDecimalRendering(t *testing.T) {
	for _, s := range []string{"0", "1", "0.5", "8", "4.00000001", "0.0000001", "123456789.12345678", "1e21"} {
		d := decimal.RequireFromString(s)
		want, err := json.Marshal(d.InexactFloat64())
		require.NoError(t, err)
		got, err := Marshal(d)
		require.NoError(t, err)
		require.Equal(t, string(want), string(got), "decimal %s", s)
	}
}

func TestZero(t *testing.T) {
	d := doc{
		Zebra:  "z",
		Alpha:  9,
		Big:    big.NewInt(5),
		Items:  []item{{Name: "a", Sig: sig{R: big.NewInt(1), S: big.NewInt(2)}}, {Name: "b", Sig: sig{R: big.NewInt(3), S: big.NewInt(4)}}},
		Totals: map[int]decimal.Decimal{1: decimal.NewFromInt(1), 2: decimal.NewFromInt(2)},
		Amount: decimal.NewFromInt(3),
	}
	out, err := Marshal(d, Zero("Zebra", "Alpha", "Totals", "Amount", "Items.Sig"), SortedMaps("Totals"))
	require.NoError(t, err)
	require.Equal(t,
		`{"Zebra":"","Alpha":0,"Hash":null,"Big":5,"Flag":false,`+
			`"Items":[{"Name":"a","Sig":{"R":null,"S":null}},{"Name":"b","Sig":{"R":null,"S":null}}],`+
			`"Totals":{},"Amount":0,"renamed":""}`,
		string(out))

	t.Run("does not mutate the value", func(t *testing.T) {
		require.Equal(t, "z", d.Zebra)
		require.Equal(t, 0, d.Items[0].Sig.R.Cmp(big.NewInt(1)))
	})
}

func TestMapOrdering(t *testing.T) {
	t.Run("undeclared map with several keys is rejected", func(t *testing.T) {
		d := doc{Totals: map[int]decimal.Decimal{1: decimal.Zero, 2: decimal.Zero}}
		_, err := Marshal(d)
		require.ErrorContains(t, err, `"Totals"`)
	})
	t.Run("single-entry map needs no declaration", func(t *testing.T) {
		d := doc{Totals: map[int]decimal.Decimal{1: decimal.Zero}}
		out, err := Marshal(d)
		require.NoError(t, err)
		require.Contains(t, string(out), `"Totals":{"1":0}`)
	})
	t.Run("nil map is null, empty map is {}", func(t *testing.T) {
		out, err := Marshal(doc{})
		require.NoError(t, err)
		require.Contains(t, string(out), `"Totals":null`)
		out, err = Marshal(doc{Totals: map[int]decimal.Decimal{}})
		require.NoError(t, err)
		require.Contains(t, string(out), `"Totals":{}`)
	})
	t.Run("repeatable", func(t *testing.T) {
		m := map[string]int{}
		for _, k := range []string{"q", "w", "e", "r", "t", "y", "u", "i", "o", "p"} {
			m[k] = len(k)
		}
		first, err := Marshal(m, SortedMaps(""))
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			again, err := Marshal(m, SortedMaps(""))
			require.NoError(t, err)
			require.Equal(t, first, again)
		}
	})
}

func TestUnsupported(t *testing.T) {
	_, err := Marshal(struct{ C chan int }{make(chan int)})
	require.Error(t, err)
	_, err = Marshal(map[float64]int{1: 1})
	require.Error(t, err)
}
