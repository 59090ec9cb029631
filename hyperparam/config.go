package hyperparam

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Config is an immutable assignment of values to parameter names.
type Config struct {
	values map[string]float64
}

// NewConfig copies values into a new Config.
func NewConfig(values map[string]float64) Config {
	c := Config{values: make(map[string]float64, len(values))}
	for k, v := range values {
		c.values[k] = v
	}
	return c
}

// Len returns the number of parameters set.
func (c Config) Len() int { return len(c.values) }

// Get returns the value for name.
func (c Config) Get(name string) (float64, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Float returns the value for name, or def when unset.
func (c Config) Float(name string, def float64) float64 {
	if v, ok := c.values[name]; ok {
		return v
	}
	return def
}

// Int returns the rounded value for name, or def when unset.
func (c Config) Int(name string, def int) int {
	if v, ok := c.values[name]; ok {
		return int(math.Round(v))
	}
	return def
}

// Names returns the parameter names in sorted order.
func (c Config) Names() []string {
	names := make([]string, 0, len(c.values))
	for k := range c.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Values returns a copy of the underlying map.
func (c Config) Values() map[string]float64 {
	out := make(map[string]float64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Key is a canonical encoding of the configuration, "name=value" pairs sorted
// by name and joined with commas. Two configurations are equal iff their keys
// are equal.
func (c Config) Key() string {
	var sb strings.Builder
	for i, name := range c.Names() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatFloat(c.values[name], 'g', -1, 64))
	}
	return sb.String()
}

func (c Config) String() string {
	if len(c.values) == 0 {
		return "{}"
	}
	return "{" + c.Key() + "}"
}

// MarshalZerologObject writes each parameter as a float field.
func (c Config) MarshalZerologObject(e *zerolog.Event) {
	for _, name := range c.Names() {
		e.Float64(name, c.values[name])
	}
}

// Candidate is a configuration tagged with its generation order. Index only
// breaks ties between equally ranked candidates.
type Candidate struct {
	ID     string
	Index  int
	Config Config
}

// CandidateID formats the identifier of the index-th candidate out of total,
// "Model01", "Model02", ... widened when total needs more digits.
func CandidateID(index, total int) string {
	width := max(2, len(strconv.Itoa(total)))
	return fmt.Sprintf("Model%0*d", width, index+1)
}
