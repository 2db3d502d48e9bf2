package log

import "log/slog"

func FlowID[T ~string](id T) slog.Attr {
	return slog.String("flow_id", string(id))
}

func FlowVersionID[T ~string](id T) slog.Attr {
	return slog.String("flow_version_id", string(id))
}

func StepName[T ~string](name T) slog.Attr {
	return slog.String("step_name", string(name))
}

func Operation[T ~string](op T) slog.Attr {
	return slog.String("operation", string(op))
}

func Revision(revision int64) slog.Attr {
	return slog.Int64("revision", revision)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	return slog.String("error", msg)
}
