package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	EncoderJSON    = "json"
	EncoderConsole = "console"

	stackFramesToSkip = 2
)

// .
var (
	//nolint:gochecknoglobals // We need only one log for the app, hence it is global.
	logger atomic.Pointer[zerolog.Logger]
)

//nolint:gochecknoinits // Usable before Setup, e.g. in tests.
func init() {
	setupGlobals()
	lgr, err := build(os.Stderr, false, zerolog.LevelInfoValue)
	if err != nil {
		panic(errors.Wrap(err, "failed to build default logger"))
	}
	logger.Store(lgr)
}

// Setup replaces the global logger. encoder is "json" or "console".
func Setup(encoder, level string) error {
	return SetupWithWriter(os.Stderr, encoder, level)
}

// SetupWithWriter is Setup with a custom destination.
func SetupWithWriter(out io.Writer, encoder, level string) error {
	if level == "" {
		level = zerolog.LevelInfoValue
	}
	lgr, err := build(out, strings.EqualFold(encoder, EncoderJSON), level)
	if err != nil {
		return err
	}
	logger.Store(lgr)

	return nil
}

// Logger returns the current global logger.
func Logger() *zerolog.Logger {
	return logger.Load()
}

func setupGlobals() {
	zerolog.DisableSampling(true)
	zerolog.ErrorStackMarshaler = errorStackMarshaller //nolint:reassign // It is called by an init.
	zerolog.InterfaceMarshalFunc = json.Marshal
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}
}

func build(out io.Writer, isJSON bool, level string) (*zerolog.Logger, error) { //nolint:revive // Control coupling is intended here.
	logWriter := out
	if !isJSON {
		logWriter = &zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339Nano,
			PartsOrder: []string{
				zerolog.LevelFieldName,
				zerolog.TimestampFieldName,
				zerolog.MessageFieldName,
			},
			PartsExclude: []string{
				zerolog.ErrorStackFieldName,
				zerolog.CallerFieldName,
			},
		}
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid logger level %q", level)
	}
	lgr := zerolog.New(logWriter).With().Timestamp().Stack().Logger().Level(lvl)

	return &lgr, nil
}

func errorStackMarshaller(err error) any {
	m := pkgerrors.MarshalStack(err)
	if m == nil {
		return nil
	}
	frames, ok := m.([]map[string]string)
	if !ok || len(frames) <= stackFramesToSkip {
		return nil
	}
	stacks := make([]string, 0, len(frames)-stackFramesToSkip)
	for _, frame := range frames[:len(frames)-stackFramesToSkip] {
		stacks = append(stacks, fmt.Sprintf("%s:%s:%s",
			frame[pkgerrors.StackSourceFileName],
			frame[pkgerrors.StackSourceLineName],
			frame[pkgerrors.StackSourceFunctionName]))
	}

	return strings.Join(stacks, "<<")
}

// Error logs err; nil errors are ignored so calls can wrap fallible expressions.
func Error(err error, fields ...any) {
	if err == nil {
		return
	}
	errorEvent := Logger().Err(err)
	if len(fields) > 0 {
		errorEvent = errorEvent.Fields(fields)
	}

	errorEvent.Send()
}

func Debug(msg string, fields ...any) {
	debugEvent := Logger().Debug()
	if len(fields) > 0 {
		debugEvent = debugEvent.Fields(fields)
	}

	debugEvent.Msg(msg)
}

func Info(msg string, fields ...any) {
	infoEvent := Logger().Info()
	if len(fields) > 0 {
		infoEvent = infoEvent.Fields(fields)
	}

	infoEvent.Msg(msg)
}

func Warn(msg string, fields ...any) {
	warningEvent := Logger().Warn()
	if len(fields) > 0 {
		warningEvent = warningEvent.Fields(fields)
	}

	warningEvent.Msg(msg)
}
