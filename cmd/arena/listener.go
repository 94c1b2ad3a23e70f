package main

import (
	"go.uber.org/zap"

	"botarena/internal/game"
	"botarena/internal/series"
	"botarena/internal/tournament"
)

// logListener mirrors series lifecycle events into the structured log.
type logListener struct {
	logger *zap.Logger
}

func (l *logListener) SeriesStarted(id string, schedule []game.Kind) {
	names := make([]string, len(schedule))
	for i, k := range schedule {
		names[i] = string(k)
	}
	l.logger.Info("series started",
		zap.String("series", id),
		zap.Strings("schedule", names))
}

func (l *logListener) TournamentStarted(step int, kind game.Kind) {
	l.logger.Info("tournament started",
		zap.Int("step", step+1),
		zap.String("kind", string(kind)))
}

func (l *logListener) TournamentCompleted(step int, rec *tournament.Record) {
	l.logger.Info("tournament completed",
		zap.Int("step", step+1),
		zap.String("champion", rec.Champion),
		zap.Int("matches", len(rec.Matches)))
}

func (l *logListener) ProgressUpdated(step, total int, standings []series.BotStanding) {
	leader := ""
	if len(standings) > 0 {
		leader = standings[0].Team
	}
	l.logger.Info("series progress",
		zap.Int("completed", step),
		zap.Int("total", total),
		zap.String("leader", leader))
}

func (l *logListener) SeriesCompleted(rec *series.Record) {
	l.logger.Info("series completed",
		zap.String("series", rec.ID),
		zap.String("champion", rec.Champion))
}
