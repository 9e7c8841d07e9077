package rating

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/squadlab/posrating/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTables_Valid(t *testing.T) {
	require.NoError(t, DefaultTables().Validate())
}

func TestDefaultTables_WeightsSumTo100(t *testing.T) {
	tables := DefaultTables()
	for _, p := range core.AllPositions() {
		assert.Equal(t, 100, tables.Weights[p.Index()].Sum(), p.String())
		if p != core.GK {
			assert.Equal(t, 0, tables.Weight(p, core.Goalkeeping), p.String())
		}
	}
	assert.Equal(t, 100, tables.Weight(core.GK, core.Goalkeeping))
}

func TestDefaultTables_Lookups(t *testing.T) {
	tables := DefaultTables()

	assert.Equal(t, 44, tables.Weight(core.LWB, core.Defense))
	assert.Equal(t, 19, tables.Weight(core.LWB, core.Passing))
	assert.Equal(t, 0, tables.Weight(core.LWB, core.Shooting))

	assert.Equal(t, core.Secondary, tables.FamiliarityOf(core.LB, core.LWB))
	assert.Equal(t, core.Primary, tables.FamiliarityOf(core.CAM, core.CAM))
	assert.Equal(t, core.Unfamiliar, tables.FamiliarityOf(core.GK, core.CB))

	// not symmetric
	assert.Equal(t, core.Somewhat, tables.FamiliarityOf(core.ST, core.LW))
	assert.Equal(t, core.Unfamiliar, tables.FamiliarityOf(core.LW, core.ST))

	assert.Equal(t, 0, tables.Penalty(core.Primary))
	assert.Equal(t, -5, tables.Penalty(core.Secondary))
	assert.Equal(t, -8, tables.Penalty(core.Somewhat))
	assert.Equal(t, -20, tables.Penalty(core.Unfamiliar))
}

func TestDefaultTables_ReturnsCopy(t *testing.T) {
	a := DefaultTables()
	a.Weights[0][0] = 99
	b := DefaultTables()
	assert.Equal(t, 10, b.Weights[0][0])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Tables)
		wantErr string
	}{
		{
			name:    "weights do not sum to 100",
			mutate:  func(tb *Tables) { tb.Weights[core.CM.Index()][1] = 0 },
			wantErr: "weights CM: sum is 88",
		},
		{
			name:    "outfield goalkeeping weight",
			mutate:  func(tb *Tables) { tb.Weights[core.CB.Index()][6] = 5; tb.Weights[core.CB.Index()][1] = 0 },
			wantErr: "weights CB: goalkeeping weight must be 0",
		},
		{
			name:    "GK row with outfield weight",
			mutate:  func(tb *Tables) { tb.Weights[core.GK.Index()][0] = 10; tb.Weights[core.GK.Index()][6] = 90 },
			wantErr: "weights GK",
		},
		{
			name:    "diagonal not primary",
			mutate:  func(tb *Tables) { tb.Familiarity[core.RB.Index()][core.RB.Index()] = core.Secondary },
			wantErr: "familiarity RB->RB: diagonal must be PRIMARY",
		},
		{
			name:    "primary off diagonal",
			mutate:  func(tb *Tables) { tb.Familiarity[core.RB.Index()][core.CB.Index()] = core.Primary },
			wantErr: "PRIMARY only allowed on the diagonal",
		},
		{
			name:    "invalid level",
			mutate:  func(tb *Tables) { tb.Familiarity[core.ST.Index()][core.GK.Index()] = 9 },
			wantErr: "invalid level 9",
		},
		{
			name:    "penalties not monotone",
			mutate:  func(tb *Tables) { tb.Penalties[core.Somewhat] = -1 },
			wantErr: "must not exceed",
		},
		{
			name:    "primary penalty",
			mutate:  func(tb *Tables) { tb.Penalties[core.Primary] = -1 },
			wantErr: "PRIMARY must be 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := DefaultTables()
			tt.mutate(tables)
			err := tables.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDocument_RoundTrip(t *testing.T) {
	doc := DefaultTables().Document()

	assert.Equal(t, builtinVersion, doc.Version)
	assert.Equal(t, 44, doc.Weights["LWB"]["DEF"])
	assert.Equal(t, "SECONDARY", doc.Familiarity["LB"]["LWB"])
	assert.Equal(t, -20, doc.Penalties["UNFAMILIAR"])

	back, err := FromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, DefaultTables(), back)
}

func TestFromDocument_Incomplete(t *testing.T) {
	doc := DefaultTables().Document()
	delete(doc.Weights, "CB")
	delete(doc.Familiarity["ST"], "GK")
	delete(doc.Penalties, "SOMEWHAT")

	_, err := FromDocument(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights CB")
	assert.Contains(t, err.Error(), "familiarity ST->GK")
	assert.Contains(t, err.Error(), "penalty SOMEWHAT")
}

func TestFromDocument_UnknownCodes(t *testing.T) {
	doc := DefaultTables().Document()
	doc.Weights["XX"] = map[string]int{"PAC": 100}
	doc.Familiarity["LB"]["LWB"] = "kind of"

	_, err := FromDocument(doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidPosition)
	assert.Contains(t, err.Error(), `unknown familiarity "kind of"`)
}

func TestLoadTables_EmptyPathIsDefault(t *testing.T) {
	tables, err := LoadTables("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTables(), tables)
}

func TestLoadTables_JSONFile(t *testing.T) {
	doc := DefaultTables().Document()
	doc.Version = "season-2"
	// lowercase keys and numeric levels are accepted
	doc.Familiarity["LB"]["LWB"] = "1"

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "tables.json")
	require.NoError(t, os.WriteFile(path, b, 0644))

	tables, err := LoadTables(path)
	require.NoError(t, err)
	assert.Equal(t, "season-2", tables.Version)
	assert.Equal(t, core.Somewhat, tables.FamiliarityOf(core.LB, core.LWB))
	assert.Equal(t, 44, tables.Weight(core.LWB, core.Defense))
}

func TestLoadTables_InvalidFile(t *testing.T) {
	doc := DefaultTables().Document()
	doc.Weights["ST"]["SHO"] = 50

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "tables.json")
	require.NoError(t, os.WriteFile(path, b, 0644))

	_, err = LoadTables(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights ST: sum is 104")
}

func TestLoadTables_MissingFile(t *testing.T) {
	_, err := LoadTables("/nonexistent/tables.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading tables file")
}

func TestParseFamiliarity(t *testing.T) {
	tests := []struct {
		in      string
		want    core.Familiarity
		wantErr bool
	}{
		{in: "PRIMARY", want: core.Primary},
		{in: "fairly familiar", want: core.Secondary},
		{in: "somewhat", want: core.Somewhat},
		{in: "0", want: core.Unfamiliar},
		{in: "3", want: core.Primary},
		{in: "4", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFamiliarity(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
