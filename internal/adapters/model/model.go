// Package model carga modelos de entrada y de hold entrenados fuera de este
// repo y exportados a YAML. Implementa signal.Predictor.
package model

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/alejandrodnm/fadebot/internal/domain/signal"
	"gopkg.in/yaml.v3"
)

// ErrSchemaMismatch indica un modelo entrenado con otro layout de features.
var ErrSchemaMismatch = errors.New("feature schema mismatch")

// File es el formato YAML del modelo.
//
//	schema_version: 1
//	name: logit-fade-v3
//	entry:
//	  intercept: -1.2
//	  coefficients: {move_1: -0.08, is_extreme_price: 0.6}
//	  mean: {move_1: 0.1}
//	  std: {move_1: 4.2}
//	hold:
//	  default: 5
//	  intercept: 3
//	  coefficients: {volatility_5: 0.4}
//	  min: 1
//	  max: 15
type File struct {
	SchemaVersion int    `yaml:"schema_version"`
	Name          string `yaml:"name"`
	Entry         Linear `yaml:"entry"`
	Hold          Hold   `yaml:"hold"`
}

// Linear es un modelo lineal sobre features estandarizadas.
// Una feature sin std (o std 0) entra sin escalar.
type Linear struct {
	Intercept    float64            `yaml:"intercept"`
	Coefficients map[string]float64 `yaml:"coefficients"`
	Mean         map[string]float64 `yaml:"mean"`
	Std          map[string]float64 `yaml:"std"`
}

// Hold es la regresión de minutos de hold. Sin coeficientes devuelve Default.
type Hold struct {
	Linear `yaml:",inline"`

	Default int `yaml:"default"`
	Min     int `yaml:"min"`
	Max     int `yaml:"max"`
}

// term es un coeficiente ya resuelto a su índice en FeatureVector.Values.
type term struct {
	idx   int
	coef  float64
	mean  float64
	scale float64
}

type compiled struct {
	intercept float64
	terms     []term
}

func (c compiled) eval(x []float64) float64 {
	z := c.intercept
	for _, t := range c.terms {
		z += t.coef * (x[t.idx] - t.mean) / t.scale
	}
	return z
}

// Logistic es el predictor cargado.
type Logistic struct {
	name    string
	entry   compiled
	hold    compiled
	hasHold bool
	holdDef int
	holdMin int
	holdMax int
}

var _ signal.Predictor = (*Logistic)(nil)

// Load lee y compila un modelo desde path.
func Load(path string) (*Logistic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model.Load: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("model.Load %s: %w", path, err)
	}
	return m, nil
}

// Parse compila un modelo desde YAML.
func Parse(data []byte) (*Logistic, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("model.Parse: %w", err)
	}
	return Compile(f)
}

// Compile valida el fichero contra el schema de features actual.
func Compile(f File) (*Logistic, error) {
	if f.SchemaVersion != domain.FeatureSchemaVersion {
		return nil, fmt.Errorf("model.Compile: %w: model v%d, features v%d",
			ErrSchemaMismatch, f.SchemaVersion, domain.FeatureSchemaVersion)
	}
	if len(f.Entry.Coefficients) == 0 {
		return nil, fmt.Errorf("model.Compile: entry model has no coefficients")
	}

	index := make(map[string]int)
	for i, name := range domain.FeatureNames() {
		index[name] = i
	}

	entry, err := compile(f.Entry, index)
	if err != nil {
		return nil, fmt.Errorf("model.Compile: entry: %w", err)
	}
	hold, err := compile(f.Hold.Linear, index)
	if err != nil {
		return nil, fmt.Errorf("model.Compile: hold: %w", err)
	}

	m := &Logistic{
		name:    f.Name,
		entry:   entry,
		hold:    hold,
		hasHold: len(f.Hold.Coefficients) > 0,
		holdDef: f.Hold.Default,
		holdMin: f.Hold.Min,
		holdMax: f.Hold.Max,
	}
	if m.name == "" {
		m.name = "logistic"
	}
	if m.holdMin < 1 {
		m.holdMin = 1
	}
	if m.holdMax != 0 && m.holdMax < m.holdMin {
		return nil, fmt.Errorf("model.Compile: hold max %d < min %d", m.holdMax, m.holdMin)
	}
	return m, nil
}

func compile(l Linear, index map[string]int) (compiled, error) {
	names := make([]string, 0, len(l.Coefficients))
	for name := range l.Coefficients {
		names = append(names, name)
	}
	sort.Strings(names)

	c := compiled{intercept: l.Intercept, terms: make([]term, 0, len(names))}
	for _, name := range names {
		idx, ok := index[name]
		if !ok {
			return compiled{}, fmt.Errorf("%w: unknown feature %q", ErrSchemaMismatch, name)
		}
		scale := l.Std[name]
		if scale == 0 {
			scale = 1
		}
		c.terms = append(c.terms, term{idx: idx, coef: l.Coefficients[name], mean: l.Mean[name], scale: scale})
	}
	return c, nil
}

// EntryProbability devuelve sigmoid(w·x + b).
func (m *Logistic) EntryProbability(f domain.FeatureVector) float64 {
	return sigmoid(m.entry.eval(f.Values()))
}

// HoldMinutes devuelve la regresión redondeada y acotada a [min, max],
// o el default si el modelo no trae regresión de hold.
func (m *Logistic) HoldMinutes(f domain.FeatureVector) int {
	if !m.hasHold {
		return m.holdDef
	}
	h := int(math.Round(m.hold.eval(f.Values())))
	if h < m.holdMin {
		h = m.holdMin
	}
	if m.holdMax > 0 && h > m.holdMax {
		h = m.holdMax
	}
	return h
}

// Name devuelve el nombre declarado en el fichero.
func (m *Logistic) Name() string { return m.name }

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
