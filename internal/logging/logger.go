package logging

import (
	"io"
	"os"
	"strings"

	"github.com/2beens/gymrunner/pkg"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field names shared by gymrunner log entries.
const (
	FieldService     = "service"
	FieldEnvironment = "env"
	FieldWorkoutKey  = "workout_key"
	FieldSection     = "section"
	FieldGroupID     = "group_id"
)

const (
	defaultLogMaxSizeMB  = 50
	defaultLogMaxBackups = 30
	defaultLogMaxAgeDays = 90

	// entries at this level and above are sent to sentry
	sentryMinLevel = logrus.ErrorLevel
)

type LoggerSetupParams struct {
	ServiceName   string
	Environment   string
	LogFileName   string
	LogToStdout   bool
	LogLevel      string
	LogFormatJSON bool
	LogMaxBackups int
	LogMaxAgeDays int

	SentryEnabled bool
	SentryDSN     string
}

// Setup configures the standard logrus logger for a gymrunner binary: every entry carries the
// service and env fields, errors go to sentry when enabled, output goes to stdout and/or a rotated file.
func Setup(params LoggerSetupParams) {
	setup(logrus.StandardLogger(), params)
}

func setup(logger *logrus.Logger, params LoggerSetupParams) {
	if params.LogFormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.SetLevel(GetLevel(params.LogLevel))
	logger.AddHook(newDefaultFieldsHook(logrus.Fields{
		FieldService:     params.ServiceName,
		FieldEnvironment: params.Environment,
	}))

	if params.SentryEnabled {
		if err := initSentry(params); err != nil {
			logger.Errorf("sentry init: %s", err)
		} else {
			logger.AddHook(NewSentryHook(levelsUpTo(sentryMinLevel)))
			logger.Infoln("sentry set up")
		}
	}

	logger.SetOutput(logWriter(params))
	switch {
	case params.LogFileName == "":
		logger.Debugln("writing logs only to STDOUT")
	case params.LogToStdout:
		logger.Debugf("writing logs to [%s] and STDOUT", params.LogFileName)
	default:
		logger.Debugf("writing logs to [%s]", params.LogFileName)
	}
}

func initSentry(params LoggerSetupParams) error {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         params.SentryDSN,
		Environment: params.Environment,
		ServerName:  params.ServiceName,
	}); err != nil {
		return err
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag(FieldService, params.ServiceName)
	})
	return nil
}

func logWriter(params LoggerSetupParams) io.Writer {
	if params.LogFileName == "" {
		return os.Stdout
	}

	fileName := params.LogFileName
	if !strings.HasSuffix(fileName, ".log") {
		fileName += ".log"
	}

	maxBackups := params.LogMaxBackups
	if maxBackups <= 0 {
		maxBackups = defaultLogMaxBackups
	}
	maxAgeDays := params.LogMaxAgeDays
	if maxAgeDays <= 0 {
		maxAgeDays = defaultLogMaxAgeDays
	}

	fileWriter := &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    defaultLogMaxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	if params.LogToStdout {
		return pkg.NewCombinedWriter(os.Stdout, fileWriter)
	}
	return fileWriter
}

// GetLevel maps a config level name to a logrus level. Unknown names fall back to info.
func GetLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

func levelsUpTo(lowest logrus.Level) []logrus.Level {
	var levels []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= lowest {
			levels = append(levels, l)
		}
	}
	return levels
}

// defaultFieldsHook adds fields to every entry that does not carry them already.
type defaultFieldsHook struct {
	fields logrus.Fields
}

func newDefaultFieldsHook(fields logrus.Fields) *defaultFieldsHook {
	nonEmpty := make(logrus.Fields, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		nonEmpty[k] = v
	}
	return &defaultFieldsHook{fields: nonEmpty}
}

func (h *defaultFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *defaultFieldsHook) Fire(entry *logrus.Entry) error {
	for k, v := range h.fields {
		if _, ok := entry.Data[k]; !ok {
			entry.Data[k] = v
		}
	}
	return nil
}
