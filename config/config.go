// Package config describes background-subtraction runs: which file to
// read, which histograms play which role, and the pT and R_L windows.
// Everything a macro used to hard-code lives here.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/HamletTheHamster/eecsub/hist"
	"gopkg.in/yaml.v3"
)

type Recipe string

const (
	DataSub        Recipe = "datasub"
	CFactorClosure Recipe = "cfactor-closure"
)

// C-factor sources for the closure recipe.
const (
	CFactorCompute = "compute"
	CFactorStored  = "stored"
	CFactorNone    = "none"
)

// Histogram roles of the datasub recipe. Truth-level roles are 2D
// (R_L, pT); unfolded roles are cubes.
const (
	Truth          = "truth"
	TruthMB1       = "truth_mb1"
	TruthJMB       = "truth_jmb"
	TruthMB1MB2    = "truth_mb1mb2"
	Unfolded       = "unfolded"
	UnfoldedMB1    = "unfolded_mb1"
	UnfoldedJMB    = "unfolded_jmb"
	UnfoldedMB1MB2 = "unfolded_mb1mb2"
)

// Histogram roles of the cfactor-closure recipe, all embedding cubes.
// MJ is the full embedded jet sample, MJ0/MJ1/MJ2 its bb, sb and ss pair
// categories, MB1 and MB1MB2 the mixed-event backgrounds, BMB and SMB the
// jet-times-minimum-bias backgrounds. _m and _um split matched and
// unmatched jets.
const (
	MJ     = "mj"
	MJm    = "mj_m"
	MJ0m   = "mj0_m"
	MJ0um  = "mj0_um"
	MJ1m   = "mj1_m"
	MJ2m   = "mj2_m"
	MB1    = "mb1"
	MB1MB2 = "mb1mb2"
	BMBm   = "bmb_m"
	BMBum  = "bmb_um"
	SMBm   = "smb_m"

	CFacMB1m     = "cfac_mb1_m"
	CFacMB1um    = "cfac_mb1_um"
	CFacMB1MB2m  = "cfac_mb1mb2_m"
	CFacMB1MB2um = "cfac_mb1mb2_um"
	CFacSMB      = "cfac_smb"
)

var required = map[Recipe][]string{
	DataSub:        {Unfolded, UnfoldedMB1, UnfoldedJMB, UnfoldedMB1MB2},
	CFactorClosure: {MJm, MJ0m, MJ0um, MJ1m, MJ2m, MB1, MB1MB2, BMBm, BMBum, SMBm},
}

var storedCFactors = []string{CFacMB1m, CFacMB1um, CFacMB1MB2m, CFacMB1MB2um, CFacSMB}

var truthRoles = []string{Truth, TruthMB1, TruthJMB, TruthMB1MB2}

// Config is the top level of an analysis file.
type Config struct {
	Analyses []Analysis `yaml:"analyses"`
}

// Axes names which cube axis carries which observable: "x", "y" or "z".
type Axes struct {
	PT     string `yaml:"pt"`
	Truth  string `yaml:"truth"`
	RL     string `yaml:"rl"`
	Weight string `yaml:"weight"`
}

// Analysis is one subtraction over one file and one pT window.
type Analysis struct {
	Name        string `yaml:"name"`
	Recipe      Recipe `yaml:"recipe"`
	Observable  string `yaml:"observable"`
	Label       string `yaml:"label"`
	File        string `yaml:"file"`
	CFactorFile string `yaml:"cfactor_file"`

	Window      hist.Window  `yaml:"window"`
	TruthWindow *hist.Window `yaml:"truth_window"`
	Range       *hist.Window `yaml:"range"`
	Axes        Axes         `yaml:"axes"`

	// Histograms maps roles to names. Names may carry {low} and {high},
	// replaced by the pT window as low and high+1.
	Histograms map[string]string `yaml:"histograms"`

	CFactor            string `yaml:"cfactor"`
	InclusionExclusion bool   `yaml:"inclusion_exclusion"`
	Strict             bool   `yaml:"strict"`
}

// Load reads and validates an analysis file.
func Load(
	path string,
) (
	*Config, error,
) {

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML, fills defaults and validates. Unknown keys are errors.
func Parse(
	data []byte,
) (
	*Config, error,
) {

	cfg := new(Config)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}

	for i := range cfg.Analyses {
		cfg.Analyses[i].setDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *Analysis) setDefaults() {
	if a.Observable == "" {
		a.Observable = "EEC"
	}
	if a.Label == "" {
		a.Label = a.Name
	}
	if a.CFactor == "" {
		a.CFactor = CFactorCompute
	}
	if a.Range == nil {
		a.Range = &hist.Window{Low: 0.01, High: 0.4}
	}

	switch a.Recipe {
	case DataSub:
		// (pT, R_L, weight) cubes, weighted over z after slicing x
		defaultAxis(&a.Axes.PT, "x")
		defaultAxis(&a.Axes.RL, "y")
		defaultAxis(&a.Axes.Weight, "z")
	case CFactorClosure:
		defaultAxis(&a.Axes.PT, "x")
		defaultAxis(&a.Axes.Truth, "y")
		defaultAxis(&a.Axes.RL, "z")
		if a.TruthWindow == nil {
			a.TruthWindow = &hist.Window{Low: 10, High: 139}
		}
	}
}

func defaultAxis(field *string, axis string) {
	if *field == "" {
		*field = axis
	}
}

// Validate reports every problem it finds, joined.
func (c *Config) Validate() error {
	if len(c.Analyses) == 0 {
		return errors.New("no analyses")
	}

	var errs []error
	seen := make(map[string]bool)
	for i := range c.Analyses {
		a := &c.Analyses[i]
		if seen[a.Name] {
			errs = append(errs, fmt.Errorf("analysis %q defined twice", a.Name))
		}
		seen[a.Name] = true
		if err := a.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *Analysis) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("analysis %q: "+format, append([]any{a.Name}, args...)...))
	}

	if a.Name == "" {
		fail("missing name")
	}
	roles, ok := required[a.Recipe]
	if !ok {
		fail("unknown recipe %q", a.Recipe)
	}
	if a.File == "" {
		fail("missing file")
	}
	if a.Window.Low >= a.Window.High {
		fail("pT window %v is empty", a.Window)
	}
	if a.Range != nil && a.Range.Low >= a.Range.High {
		fail("R_L range %v is empty", *a.Range)
	}
	if a.TruthWindow != nil && a.TruthWindow.Low >= a.TruthWindow.High {
		fail("truth pT window %v is empty", *a.TruthWindow)
	}

	for _, role := range roles {
		if a.Histograms[role] == "" {
			fail("missing histogram for role %q", role)
		}
	}

	switch a.CFactor {
	case CFactorCompute, CFactorNone:
	case CFactorStored:
		if a.CFactorFile == "" {
			fail("cfactor %q needs cfactor_file", a.CFactor)
		}
		for _, role := range storedCFactors {
			if a.Histograms[role] == "" {
				fail("missing stored c-factor for role %q", role)
			}
		}
	default:
		fail("unknown cfactor source %q", a.CFactor)
	}

	if a.Recipe == DataSub && a.HasTruth() {
		for _, role := range truthRoles {
			if a.Histograms[role] == "" {
				fail("truth-level subtraction needs role %q", role)
			}
		}
	}

	if err := a.Axes.check(a.Recipe); err != nil {
		fail("%v", err)
	}
	return errors.Join(errs...)
}

// HasTruth reports whether the truth-level (2D) subtraction is configured.
func (a *Analysis) HasTruth() bool {
	return a.Histograms[Truth] != ""
}

// Hist returns the histogram name for role with {low} and {high}
// expanded from the pT window. Windows are inclusive on integer bounds, so
// {high} is the exclusive upper edge: {70, 89} names as 70_90.
func (a *Analysis) Hist(role string) string {
	name := a.Histograms[role]
	r := strings.NewReplacer(
		"{low}", strconv.Itoa(int(a.Window.Low)),
		"{high}", strconv.Itoa(int(a.Window.High)+1),
	)
	return r.Replace(name)
}

// Roles lists the configured roles in a stable order.
func (a *Analysis) Roles() []string {
	roles := make([]string, 0, len(a.Histograms))
	for r := range a.Histograms {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}

func (x Axes) check(recipe Recipe) error {
	var used []string
	switch recipe {
	case DataSub:
		used = []string{x.PT, x.RL, x.Weight}
	case CFactorClosure:
		used = []string{x.PT, x.Truth, x.RL}
	default:
		return nil
	}

	seen := make(map[hist.Axis]bool)
	for _, s := range used {
		axis, err := hist.ParseAxis(s)
		if err != nil {
			return err
		}
		if seen[axis] {
			return fmt.Errorf("axis %v assigned twice", axis)
		}
		seen[axis] = true
	}
	return nil
}
