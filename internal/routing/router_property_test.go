package routing

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/models"
)

// marketDataCodes are quotation transaction codes shared by both environments.
var marketDataCodes = map[string]bool{
	"FHKST01010100": true,
	"HHDFS00000300": true,
	"FHMIF10000000": true,
}

// Property: Resolve is a pure function of the key. Repeated lookups of any
// table entry return the same descriptor the table was built with.
func TestProperty_ResolveIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	all := Entries()

	properties.Property("same key yields same descriptor", prop.ForAll(
		func(i int) bool {
			e := all[i]
			first, err1 := Resolve(e.Key)
			second, err2 := Resolve(e.Key)
			return err1 == nil && err2 == nil && first == second && first == e.Descriptor
		},
		gen.IntRange(0, len(all)-1),
	))

	properties.TestingRun(t)
}

// Property: a Paper lookup never yields a Live-family code. It either
// resolves to a simulated code, to a market-data code both environments
// share, or fails with UnsupportedInEnvironment.
func TestProperty_PaperNeverResolvesToLive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	classes := models.AssetClasses()
	actions := Actions()
	exchanges := append(models.Exchanges(), "")

	properties.Property("paper keys fail closed", prop.ForAll(
		func(ci, ai, xi int) bool {
			k := Key{
				AssetClass:  classes[ci],
				Action:      actions[ai],
				Environment: models.Paper,
				Exchange:    exchanges[xi],
			}
			d, err := Resolve(k)
			if err != nil {
				return errors.Is(err, errors.ErrUnsupportedInEnvironment)
			}
			if k.AssetClass == models.OverseasDerivative {
				return false
			}
			return strings.HasPrefix(d.TransactionCode, "V") || marketDataCodes[d.TransactionCode]
		},
		gen.IntRange(0, len(classes)-1),
		gen.IntRange(0, len(actions)-1),
		gen.IntRange(0, len(exchanges)-1),
	))

	properties.TestingRun(t)
}

// Property: for every Live entry with a Paper twin, the two share method
// and path and differ only in the transaction code family.
func TestProperty_EnvironmentOnlySelectsCodeFamily(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	all := Entries()

	properties.Property("paper twin shares method and path", prop.ForAll(
		func(i int) bool {
			e := all[i]
			if e.Key.Environment != models.Live {
				return true
			}
			twin := e.Key
			twin.Environment = models.Paper
			d, err := Resolve(twin)
			if err != nil {
				return e.Key.AssetClass == models.OverseasDerivative
			}
			if d.Method != e.Descriptor.Method || d.Path != e.Descriptor.Path {
				return false
			}
			if marketDataCodes[d.TransactionCode] {
				return d.TransactionCode == e.Descriptor.TransactionCode
			}
			return d.TransactionCode[1:] == e.Descriptor.TransactionCode[1:]
		},
		gen.IntRange(0, len(all)-1),
	))

	properties.TestingRun(t)
}
