package progress

import (
	"go.uber.org/zap"

	"github.com/amosWeiskopf/corpusmith/internal/models"
)

type logSink struct {
	logger *zap.Logger
}

// NewLogSink writes every event to logger. Document decisions go to debug,
// job lifecycle events to info.
func NewLogSink(logger *zap.Logger) Sink {
	return &logSink{logger: logger}
}

func (l *logSink) Report(e models.Event) {
	fields := []zap.Field{zap.String("job_id", e.JobID), zap.String("seed", e.Seed)}
	switch e.Kind {
	case models.EventSeedsFound:
		l.logger.Info("seeds discovered", zap.Int("seeds_found", e.SeedsFound))
	case models.EventJobStarted:
		l.logger.Info("job started", fields...)
	case models.EventDocument:
		l.logger.Debug("document decided", append(fields,
			zap.String("url", e.URL),
			zap.String("decision", e.Decision),
			zap.String("language", e.LastLanguage),
			zap.String("file", e.LastFilename),
			zap.Int("words", e.LastWordCount),
			zap.Int("files_stored", e.FilesStored),
			zap.Int("high_quality", e.HighQualityCount),
		)...)
	case models.EventLinks:
		l.logger.Debug("links enqueued", append(fields,
			zap.String("url", e.URL),
			zap.Int("enqueued", e.URLsEnqueued),
		)...)
	case models.EventFetchError:
		l.logger.Warn("page skipped", append(fields, zap.String("url", e.URL), zap.String("error", e.Err))...)
	case models.EventJobDone:
		l.logger.Info("job finished", append(fields,
			zap.Int("urls_visited", e.URLsVisited),
			zap.Int("files_stored", e.FilesStored),
			zap.Int("high_quality", e.HighQualityCount),
			zap.String("error", e.Err),
		)...)
	}
}
