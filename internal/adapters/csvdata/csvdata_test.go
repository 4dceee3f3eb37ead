package csvdata_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/fadebot/internal/adapters/csvdata"
	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pricesCSV = `game_id,timestamp,open,high,low,close,volume
g1,2025-01-10T01:00:00Z,50,52,49,51,100
g1,2025-01-10T01:01:00Z,51,53,50,52,80.0
g1,2025-01-10 01:02:00,52,52,40,41,
g2,1736470800,12,,,12,5
`

func TestReadPrices(t *testing.T) {
	rows, err := csvdata.ReadPrices(strings.NewReader(pricesCSV))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "g1", rows[0].GameID)
	assert.Equal(t, time.Date(2025, 1, 10, 1, 0, 0, 0, time.UTC), rows[0].Timestamp)
	assert.InDelta(t, 51, rows[0].Close, 1e-9)
	assert.Equal(t, int64(100), rows[0].Volume)
	assert.Equal(t, int64(80), rows[1].Volume)
	assert.Equal(t, int64(0), rows[2].Volume)
	assert.Equal(t, time.Date(2025, 1, 10, 1, 2, 0, 0, time.UTC), rows[2].Timestamp)

	// columnas OHLC vacías caen al close
	assert.InDelta(t, 12, rows[3].High, 1e-9)
	assert.Equal(t, time.Unix(1736470800, 0).UTC(), rows[3].Timestamp)
}

func TestReadPrices_ColumnOrderAndCase(t *testing.T) {
	in := "Close,GAME_ID,Timestamp\n30,g9,2025-01-10T01:00:00Z\n"
	rows, err := csvdata.ReadPrices(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "g9", rows[0].GameID)
	assert.InDelta(t, 30, rows[0].Open, 1e-9)
}

func TestReadPrices_Errors(t *testing.T) {
	_, err := csvdata.ReadPrices(strings.NewReader("game_id,timestamp\ng1,2025-01-10T01:00:00Z\n"))
	assert.True(t, errors.Is(err, csvdata.ErrMissingColumn))

	_, err = csvdata.ReadPrices(strings.NewReader("game_id,timestamp,close\ng1,yesterday,50\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")

	_, err = csvdata.ReadPrices(strings.NewReader("game_id,timestamp,close\ng1,2025-01-10T01:00:00Z,abc\n"))
	assert.Error(t, err)
}

func TestReadEvents(t *testing.T) {
	in := `game_id,timestamp,score_a,score_b,period,clock
g1,2025-01-10T01:00:30Z,2,0,1,690
g1,2025-01-10T01:01:10Z,2,3,1,11:02.5
g1,2025-01-10T01:01:40Z,4,3,1,
`
	evs, err := csvdata.ReadEvents(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, evs, 3)
	assert.Equal(t, 2, evs[1].ScoreA)
	assert.Equal(t, 3, evs[1].ScoreB)
	assert.Equal(t, 1, evs[1].Period)
	assert.InDelta(t, 690, evs[0].Clock, 1e-9)
	assert.InDelta(t, 662.5, evs[1].Clock, 1e-9)
	assert.InDelta(t, 0, evs[2].Clock, 1e-9)

	_, err = csvdata.ReadEvents(strings.NewReader("game_id,timestamp,score_a,score_b,clock\ng1,2025-01-10T01:00:30Z,1,0,aa:bb\n"))
	assert.Error(t, err)
}

func TestReadSettlements(t *testing.T) {
	got, err := csvdata.ReadSettlements(strings.NewReader("game_id,settlement\ng1,100\ng2,0\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"g1": 100, "g2": 0}, got)

	_, err = csvdata.ReadSettlements(strings.NewReader("game_id,settlement\ng1,55\n"))
	assert.Error(t, err)
}

func TestLoadSessions(t *testing.T) {
	dir := t.TempDir()
	prices := filepath.Join(dir, "prices.csv")
	settlements := filepath.Join(dir, "settlements.csv")
	require.NoError(t, os.WriteFile(prices, []byte(`game_id,timestamp,close
g1,2025-01-10T01:00:00Z,50
g1,2025-01-10T01:01:00Z,51
g2,2025-01-10T02:00:00Z,20
`), 0o644))
	require.NoError(t, os.WriteFile(settlements, []byte("game_id,settlement\ng1,100\n"), 0o644))

	sessions, err := csvdata.LoadSessions(prices, "", settlements)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "g1", sessions[0].GameID)
	require.NotNil(t, sessions[0].Settlement)
	assert.Equal(t, 100.0, *sessions[0].Settlement)
	assert.Nil(t, sessions[1].Settlement)
}

func TestLoadSessions_MalformedSeries(t *testing.T) {
	dir := t.TempDir()
	prices := filepath.Join(dir, "prices.csv")
	// hueco de 2 minutos
	require.NoError(t, os.WriteFile(prices, []byte(`game_id,timestamp,close
g1,2025-01-10T01:00:00Z,50
g1,2025-01-10T01:03:00Z,51
`), 0o644))

	_, err := csvdata.LoadSessions(prices, "", "")
	assert.True(t, errors.Is(err, domain.ErrMalformedSeries))
}

func TestLoadPrices_MissingFile(t *testing.T) {
	_, err := csvdata.LoadPrices(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestWriteTrades(t *testing.T) {
	t0 := time.Date(2025, 1, 10, 1, 0, 0, 0, time.UTC)
	trades := []domain.Trade{{
		GameID: "g1", Direction: domain.Short, EntryTime: t0, ExitTime: t0.Add(3 * time.Minute),
		EntryPrice: 15, ExitPrice: 10, Contracts: 100, ExitReason: domain.ExitHoldElapsed,
		Points: 5, GrossPL: 5, Fees: 1.5, NetPL: 3.5, SessionMinute: 12,
	}}

	var buf bytes.Buffer
	require.NoError(t, csvdata.WriteTrades(&buf, trades))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "game_id,direction"))
	assert.Equal(t, "g1,SHORT,2025-01-10T01:00:00Z,2025-01-10T01:03:00Z,15,10,100,HOLD_ELAPSED,5,5,1.5,3.5,12", lines[1])
}
