package database

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type priced struct {
	Price decimal.Decimal `bson:"price"`
}

func TestDecimalCodec_PreservesExactValue(t *testing.T) {
	reg := NewRegistry()
	in := priced{Price: decimal.RequireFromString("19.99")}

	raw, err := bson.MarshalWithRegistry(reg, in)
	require.NoError(t, err)

	var doc bson.Raw = raw
	assert.Equal(t, bson.TypeDecimal128, doc.Lookup("price").Type)

	var out priced
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &out))
	assert.True(t, in.Price.Equal(out.Price), "got %s", out.Price)
}

func TestDecimalCodec_DecodesLegacyNumbers(t *testing.T) {
	reg := NewRegistry()

	cases := map[string]bson.M{
		"double": {"price": 12.5},
		"int32":  {"price": int32(7)},
		"string": {"price": "3.10"},
	}
	want := map[string]string{"double": "12.5", "int32": "7", "string": "3.1"}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			raw, err := bson.Marshal(doc)
			require.NoError(t, err)

			var out priced
			require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &out))
			assert.True(t, decimal.RequireFromString(want[name]).Equal(out.Price), "got %s", out.Price)
		})
	}
}
