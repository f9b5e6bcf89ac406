package train

import (
	"fmt"
	"maps"

	"go.uber.org/zap"
)

// Config maps option names to values. Generic keys apply to every
// algorithm; routine keys are specific to one.
type Config map[string]any

// Generic option keys.
const (
	KeyEpochs = "epochs"
	KeyShow   = "show"
	KeyGoal   = "goal"
)

// Routine option keys.
const (
	KeyDisp         = "disp"
	KeyMaxIter      = "maxiter"
	KeyNIter        = "niter"
	KeyNGen         = "ngen"
	KeyGTol         = "gtol"
	KeyEps          = "eps"
	KeySimplexSize  = "simplex_size"
	KeyTemperature  = "T"
	KeyStepSize     = "stepsize"
	KeyLocalMaxIter = "local_maxiter"
	KeySeed         = "seed"
	KeyInit         = "init"
)

// Generic defaults.
const (
	DefaultEpochs = 500
	DefaultShow   = 100
	DefaultGoal   = 0.01
)

func genericDefaults() Config {
	return Config{
		KeyEpochs: DefaultEpochs,
		KeyShow:   DefaultShow,
		KeyGoal:   DefaultGoal,
	}
}

// Int returns the value of key as an int. Numeric values decoded from JSON
// or YAML are accepted.
func (c Config) Int(key string) (int, bool) {
	switch v := c[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	default:
		return 0, false
	}
}

// Float returns the value of key as a float64.
func (c Config) Float(key string) (float64, bool) {
	switch v := c[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Bool returns the value of key as a bool. Numbers are true when non-zero.
func (c Config) Bool(key string) (bool, bool) {
	switch v := c[key].(type) {
	case bool:
		return v, true
	default:
		if f, ok := c.Float(key); ok {
			return f != 0, true
		}
		return false, false
	}
}

// String returns the value of key as a string.
func (c Config) String(key string) (string, bool) {
	v, ok := c[key].(string)
	return v, ok
}

// Has reports whether key is set.
func (c Config) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// Clone returns a shallow copy of c.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	maps.Copy(out, c)
	return out
}

// policy describes how one variant maps the generic options onto its
// routine's argument names.
type policy struct {
	// iterKey receives a copy of epochs; empty means not remapped.
	iterKey string
	// dispDefault makes an unset disp default to false.
	dispDefault bool
	// defaults fill routine keys the user left unset.
	defaults Config
}

// Conflict describes an explicit option the adapter would otherwise have
// set to a different value.
type Conflict struct {
	Key      string
	Explicit any
	Derived  any
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s=%v (derived %v)", c.Key, c.Explicit, c.Derived)
}

// merge builds the effective configuration for a variant. The user's map is
// never modified and explicit values are never overwritten.
func (p policy) merge(user Config) (Config, []Conflict) {
	eff := genericDefaults()
	maps.Copy(eff, user)

	if p.dispDefault && !eff.Has(KeyDisp) {
		eff[KeyDisp] = false
	}
	for k, v := range p.defaults {
		if !eff.Has(k) {
			eff[k] = v
		}
	}

	var conflicts []Conflict
	if p.iterKey != "" {
		epochs, _ := eff.Int(KeyEpochs)
		if eff.Has(p.iterKey) {
			if explicit, ok := eff.Int(p.iterKey); !ok || explicit != epochs {
				conflicts = append(conflicts, Conflict{Key: p.iterKey, Explicit: eff[p.iterKey], Derived: epochs})
			}
		} else {
			eff[p.iterKey] = epochs
		}
	}
	return eff, conflicts
}

// resolve merges the configuration and applies the conflict policy: strict
// mode fails, otherwise the explicit value is kept and a warning logged.
func (p policy) resolve(user Config, strict bool, logger *zap.Logger) (Config, error) {
	eff, conflicts := p.merge(user)
	for _, c := range conflicts {
		if strict {
			return nil, fmt.Errorf("%w: %s", ErrConfigurationConflict, c)
		}
		logger.Warn("explicit option overrides epochs",
			zap.String("key", c.Key),
			zap.Any("explicit", c.Explicit),
			zap.Any("derived", c.Derived),
		)
	}
	return eff, nil
}
