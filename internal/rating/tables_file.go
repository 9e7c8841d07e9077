package rating

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/squadlab/posrating/pkg/core"
)

// TablesDocument is the on-disk (JSON/YAML) and wire form of Tables.
// Keys are position, attribute and familiarity names; lookups are case-insensitive.
type TablesDocument struct {
	Version     string                       `json:"version" mapstructure:"version"`
	Weights     map[string]map[string]int    `json:"weights" mapstructure:"weights"`
	Familiarity map[string]map[string]string `json:"familiarity" mapstructure:"familiarity"`
	Penalties   map[string]int               `json:"penalties" mapstructure:"penalties"`
}

// Document converts t to its document form.
func (t *Tables) Document() TablesDocument {
	doc := TablesDocument{
		Version:     t.Version,
		Weights:     make(map[string]map[string]int, core.NumPositions),
		Familiarity: make(map[string]map[string]string, core.NumPositions),
		Penalties:   make(map[string]int, len(t.Penalties)),
	}
	for _, p := range core.AllPositions() {
		w := make(map[string]int, numColumns)
		for i, col := range weightColumns {
			w[string(col)] = t.Weights[p.Index()][i]
		}
		doc.Weights[p.String()] = w

		row := make(map[string]string, core.NumPositions)
		for _, target := range core.AllPositions() {
			row[target.String()] = t.Familiarity[p.Index()][target.Index()].String()
		}
		doc.Familiarity[p.String()] = row
	}
	for lvl := core.Unfamiliar; lvl <= core.Primary; lvl++ {
		doc.Penalties[lvl.String()] = t.Penalties[lvl]
	}
	return doc
}

// FromDocument builds Tables from a document. Every position row, every
// familiarity pair and every penalty level must be present.
func FromDocument(doc TablesDocument) (*Tables, error) {
	t := &Tables{Version: doc.Version}
	if t.Version == "" {
		t.Version = "custom"
	}

	var errs []error
	seenWeights := map[core.Position]bool{}
	for code, row := range doc.Weights {
		p, err := core.ParsePosition(code)
		if err != nil {
			errs = append(errs, fmt.Errorf("weights: %w", err))
			continue
		}
		seenWeights[p] = true
		for name, w := range row {
			attr, err := core.ParseAttribute(name)
			if err != nil {
				errs = append(errs, fmt.Errorf("weights %s: %w", p, err))
				continue
			}
			t.Weights[p.Index()][columnOf(attr)] = w
		}
	}

	seenPairs := map[[2]core.Position]bool{}
	for fromCode, row := range doc.Familiarity {
		from, err := core.ParsePosition(fromCode)
		if err != nil {
			errs = append(errs, fmt.Errorf("familiarity: %w", err))
			continue
		}
		for toCode, lvlName := range row {
			to, err := core.ParsePosition(toCode)
			if err != nil {
				errs = append(errs, fmt.Errorf("familiarity %s: %w", from, err))
				continue
			}
			lvl, err := parseFamiliarity(lvlName)
			if err != nil {
				errs = append(errs, fmt.Errorf("familiarity %s->%s: %w", from, to, err))
				continue
			}
			t.Familiarity[from.Index()][to.Index()] = lvl
			seenPairs[[2]core.Position{from, to}] = true
		}
	}

	seenPenalties := map[core.Familiarity]bool{}
	for name, penalty := range doc.Penalties {
		lvl, err := parseFamiliarity(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("penalties: %w", err))
			continue
		}
		t.Penalties[lvl] = penalty
		seenPenalties[lvl] = true
	}

	var missing []string
	for _, p := range core.AllPositions() {
		if !seenWeights[p] {
			missing = append(missing, "weights "+p.String())
		}
		for _, to := range core.AllPositions() {
			if !seenPairs[[2]core.Position{p, to}] {
				missing = append(missing, "familiarity "+p.String()+"->"+to.String())
			}
		}
	}
	for lvl := core.Unfamiliar; lvl <= core.Primary; lvl++ {
		if !seenPenalties[lvl] {
			missing = append(missing, "penalty "+lvl.String())
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		errs = append(errs, fmt.Errorf("tables incomplete, missing: %s", strings.Join(missing, ", ")))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTables reads a tables document from a JSON or YAML file. An empty path
// returns the built-in tables.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading tables file: %w", err)
	}

	var doc TablesDocument
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("error decoding tables file: %w", err)
	}

	t, err := FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("invalid tables file %s: %w", path, err)
	}
	return t, nil
}

func columnOf(attr core.Attribute) int {
	for i, col := range weightColumns {
		if col == attr {
			return i
		}
	}
	return -1
}

// parseFamiliarity accepts a level name ("SECONDARY", "fairly familiar") or its number.
func parseFamiliarity(s string) (core.Familiarity, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 || n > int(core.Primary) {
			return 0, fmt.Errorf("invalid familiarity level %d", n)
		}
		return core.Familiarity(n), nil
	}
	switch v {
	case "PRIMARY":
		return core.Primary, nil
	case "SECONDARY", "FAIRLY FAMILIAR", "FAIRLY_FAMILIAR":
		return core.Secondary, nil
	case "SOMEWHAT", "SOMEWHAT FAMILIAR", "SOMEWHAT_FAMILIAR":
		return core.Somewhat, nil
	case "UNFAMILIAR":
		return core.Unfamiliar, nil
	}
	return 0, fmt.Errorf("unknown familiarity %q", s)
}
