package nbalive

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/alejandrodnm/fadebot/internal/ports"
)

var _ ports.EventProvider = (*Client)(nil)

type playByPlayResponse struct {
	Game struct {
		GameID  string   `json:"gameId"`
		Actions []action `json:"actions"`
	} `json:"game"`
}

type action struct {
	ActionNumber int    `json:"actionNumber"`
	Clock        string `json:"clock"`
	TimeActual   string `json:"timeActual"`
	Period       int    `json:"period"`
	ActionType   string `json:"actionType"`
	SubType      string `json:"subType"`
	ScoreHome    string `json:"scoreHome"`
	ScoreAway    string `json:"scoreAway"`
}

// FetchGame lee el play-by-play de game y lo convierte en eventos de marcador.
// Las acciones sin hora o con marcador ilegible se descartan.
func (c *Client) FetchGame(ctx context.Context, game domain.WatchedGame) (domain.GameFeed, error) {
	url := fmt.Sprintf("%s/playbyplay/playbyplay_%s.json", c.base, game.GameID)

	var resp playByPlayResponse
	if err := c.get(ctx, url, &resp); err != nil {
		return domain.GameFeed{}, fmt.Errorf("nbalive.FetchGame %s: %w", game.GameID, err)
	}

	feed := domain.GameFeed{GameID: game.GameID}
	skipped := 0
	for _, a := range resp.Game.Actions {
		if a.ActionType == "game" && a.SubType == "end" {
			feed.Final = true
		}
		ev, ok := mapAction(a, game)
		if !ok {
			skipped++
			continue
		}
		feed.Events = append(feed.Events, ev)
	}

	slog.Debug("play-by-play fetched",
		"game", game.GameID, "events", len(feed.Events), "skipped", skipped, "final", feed.Final)
	return feed, nil
}

func mapAction(a action, game domain.WatchedGame) (domain.GameEvent, bool) {
	ts, err := time.Parse(time.RFC3339Nano, a.TimeActual)
	if err != nil {
		return domain.GameEvent{}, false
	}
	home, err1 := strconv.Atoi(a.ScoreHome)
	away, err2 := strconv.Atoi(a.ScoreAway)
	if err1 != nil || err2 != nil {
		return domain.GameEvent{}, false
	}
	clock, err := ParseClock(a.Clock)
	if err != nil {
		return domain.GameEvent{}, false
	}

	scoreA, scoreB := home, away
	if game.AwayIsA() {
		scoreA, scoreB = away, home
	}
	return domain.GameEvent{
		GameID:    game.GameID,
		Timestamp: ts.UTC(),
		ScoreA:    scoreA,
		ScoreB:    scoreB,
		Period:    a.Period,
		Clock:     clock,
	}, true
}

// ParseClock convierte un reloj ISO-8601 del CDN ("PT03M59.00S") a segundos
// restantes en el periodo.
func ParseClock(s string) (float64, error) {
	rest, ok := strings.CutPrefix(s, "PT")
	if !ok {
		return 0, fmt.Errorf("nbalive.ParseClock: %q: missing PT prefix", s)
	}
	rest, ok = strings.CutSuffix(rest, "S")
	if !ok {
		return 0, fmt.Errorf("nbalive.ParseClock: %q: missing S suffix", s)
	}

	var minutes float64
	if m, sec, found := strings.Cut(rest, "M"); found {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, fmt.Errorf("nbalive.ParseClock: %q: minutes: %w", s, err)
		}
		minutes, rest = v, sec
	}
	seconds, err := strconv.ParseFloat(rest, 64)
	if err != nil {
		return 0, fmt.Errorf("nbalive.ParseClock: %q: seconds: %w", s, err)
	}
	return minutes*60 + seconds, nil
}
