package model_test

import (
	"errors"
	"math"
	"testing"

	"github.com/alejandrodnm/fadebot/internal/adapters/model"
	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/alejandrodnm/fadebot/internal/domain/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Fixture(t *testing.T) {
	m, err := model.Load("../../../testdata/models/logit_v1.yaml")
	require.NoError(t, err)
	assert.Equal(t, "logit-fade-v1", m.Name())

	// z = -0.5 + (-0.10 × (-10/5)) + 1.2 = 0.9
	f := domain.FeatureVector{Move1: -10, IsExtremePrice: 1}
	assert.InDelta(t, 1/(1+math.Exp(-0.9)), m.EntryProbability(f), 1e-12)

	// z = -0.5 sin features
	assert.InDelta(t, 1/(1+math.Exp(0.5)), m.EntryProbability(domain.FeatureVector{}), 1e-12)
}

func TestHoldMinutes_Clamped(t *testing.T) {
	m, err := model.Load("../../../testdata/models/logit_v1.yaml")
	require.NoError(t, err)

	assert.Equal(t, 4, m.HoldMinutes(domain.FeatureVector{}))
	assert.Equal(t, 7, m.HoldMinutes(domain.FeatureVector{Volatility5: 2.6}))
	assert.Equal(t, 12, m.HoldMinutes(domain.FeatureVector{Volatility5: 50}))
	assert.Equal(t, 2, m.HoldMinutes(domain.FeatureVector{Volatility5: -10}))
}

func TestHoldMinutes_DefaultWithoutRegression(t *testing.T) {
	m, err := model.Parse([]byte(`
schema_version: 1
entry:
  coefficients: {move_1: 1}
hold:
  default: 6
`))
	require.NoError(t, err)
	assert.Equal(t, "logistic", m.Name())
	assert.Equal(t, 6, m.HoldMinutes(domain.FeatureVector{Move1: 3}))
}

func TestCompile_SchemaMismatch(t *testing.T) {
	_, err := model.Parse([]byte("schema_version: 2\nentry:\n  coefficients: {move_1: 1}\n"))
	assert.True(t, errors.Is(err, model.ErrSchemaMismatch))

	_, err = model.Parse([]byte("schema_version: 1\nentry:\n  coefficients: {elo_rating: 1}\n"))
	assert.True(t, errors.Is(err, model.ErrSchemaMismatch))
}

func TestCompile_Invalid(t *testing.T) {
	_, err := model.Parse([]byte("schema_version: 1\n"))
	assert.Error(t, err)

	_, err = model.Parse([]byte("schema_version: 1\nentry:\n  coefficients: {move_1: 1}\nhold:\n  min: 5\n  max: 3\n"))
	assert.Error(t, err)

	_, err = model.Parse([]byte("::not yaml"))
	assert.Error(t, err)

	_, err = model.Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestLogistic_DrivesModelSignal(t *testing.T) {
	m, err := model.Load("../../../testdata/models/logit_v1.yaml")
	require.NoError(t, err)

	sig, err := signal.NewModel(m, 0.5, domain.PriceRange{}, m.Name())
	require.NoError(t, err)
	assert.Equal(t, "logit-fade-v1", sig.Name())
}
