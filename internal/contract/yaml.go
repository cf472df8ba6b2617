package contract

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// specDoc is the on-disk YAML shape of a Spec. It exists separately from Spec
// so that defaulting (version, nullable, null_policy) happens once, during
// decode, before Validate ever sees the result.
type specDoc struct {
	Version    int          `yaml:"version"`
	Keys       []string     `yaml:"keys"`
	NullPolicy string       `yaml:"null_policy"`
	Features   []featureDoc `yaml:"features"`
}

type toleranceDoc struct {
	Abs *float64 `yaml:"abs,omitempty"`
	Rel *float64 `yaml:"rel,omitempty"`
}

// rangeDoc is written and read as a two-element [lo, hi] sequence
// (e.g. "range: [0, 120]"), matching the feature spec's YAML shape.
type rangeDoc struct {
	Lo float64
	Hi float64
}

func (r *rangeDoc) UnmarshalYAML(value *yaml.Node) error {
	var pair [2]float64
	if err := value.Decode(&pair); err != nil {
		return fmt.Errorf("range must be a [lo, hi] sequence: %w", err)
	}
	r.Lo, r.Hi = pair[0], pair[1]
	return nil
}

func (r rangeDoc) MarshalYAML() (interface{}, error) {
	return [2]float64{r.Lo, r.Hi}, nil
}

type windowDoc struct {
	LookbackDays int    `yaml:"lookback_days"`
	TimestampCol string `yaml:"timestamp_col"`
	Closed       string `yaml:"closed"`
}

type featureDoc struct {
	Name       string        `yaml:"name"`
	DType      string        `yaml:"dtype"`
	Nullable   *bool         `yaml:"nullable,omitempty"`
	Tolerance  *toleranceDoc `yaml:"tolerance,omitempty"`
	Categories []string      `yaml:"categories,omitempty"`
	Range      *rangeDoc     `yaml:"range,omitempty"`
	Window     *windowDoc    `yaml:"window,omitempty"`
}

// Load reads a YAML feature spec from path, applies defaults (version=1,
// nullable=true, null_policy=same), and validates the result. A spec that
// fails validation is never returned to the caller.
func Load(path string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("contract: reading %s: %w", path, err)
	}

	var doc specDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("contract: parsing %s: %w", path, err)
	}

	spec := docToSpec(doc)
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Save writes s back out as YAML at path.
func (s *Spec) Save(path string) error {
	doc := specToDoc(s)
	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("contract: marshaling spec: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("contract: writing %s: %w", path, err)
	}
	return nil
}

func docToSpec(doc specDoc) *Spec {
	version := doc.Version
	if version == 0 {
		version = 1
	}
	nullPolicy := NullPolicy(doc.NullPolicy)
	if nullPolicy == "" {
		nullPolicy = NullPolicySame
	}

	s := &Spec{
		Version:    version,
		Keys:       doc.Keys,
		NullPolicy: nullPolicy,
		Features:   make([]Feature, len(doc.Features)),
	}

	for i, fd := range doc.Features {
		nullable := true
		if fd.Nullable != nil {
			nullable = *fd.Nullable
		}
		f := Feature{
			Name:       fd.Name,
			DType:      DType(fd.DType),
			Nullable:   nullable,
			Categories: fd.Categories,
		}
		if fd.Tolerance != nil {
			t := &Tolerance{}
			if fd.Tolerance.Abs != nil {
				t.Abs = *fd.Tolerance.Abs
				t.HasAbs = true
			}
			if fd.Tolerance.Rel != nil {
				t.Rel = *fd.Tolerance.Rel
				t.HasRel = true
			}
			f.Tolerance = t
		}
		if fd.Range != nil {
			f.Range = &Range{Lo: fd.Range.Lo, Hi: fd.Range.Hi}
		}
		if fd.Window != nil {
			f.Window = &Window{
				LookbackDays: fd.Window.LookbackDays,
				TimestampCol: fd.Window.TimestampCol,
				Closed:       fd.Window.Closed,
			}
		}
		s.Features[i] = f
	}
	return s
}

func specToDoc(s *Spec) specDoc {
	doc := specDoc{
		Version:    s.Version,
		Keys:       s.Keys,
		NullPolicy: string(s.NullPolicy),
		Features:   make([]featureDoc, len(s.Features)),
	}
	for i, f := range s.Features {
		nullable := f.Nullable
		fd := featureDoc{
			Name:       f.Name,
			DType:      string(f.DType),
			Nullable:   &nullable,
			Categories: f.Categories,
		}
		if f.Tolerance != nil {
			td := &toleranceDoc{}
			if f.Tolerance.HasAbs {
				abs := f.Tolerance.Abs
				td.Abs = &abs
			}
			if f.Tolerance.HasRel {
				rel := f.Tolerance.Rel
				td.Rel = &rel
			}
			fd.Tolerance = td
		}
		if f.Range != nil {
			fd.Range = &rangeDoc{Lo: f.Range.Lo, Hi: f.Range.Hi}
		}
		if f.Window != nil {
			fd.Window = &windowDoc{
				LookbackDays: f.Window.LookbackDays,
				TimestampCol: f.Window.TimestampCol,
				Closed:       f.Window.Closed,
			}
		}
		doc.Features[i] = fd
	}
	return doc
}
