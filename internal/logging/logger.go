package logging

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger is a small leveled logger. Backends are adapted to it in zap.go and
// logrus.go; callers that do not care pass Nop.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Debug(string, Fields) {}
func (Nop) Info(string, Fields)  {}
func (Nop) Warn(string, Fields)  {}
func (Nop) Error(string, Fields) {}

// OrNop returns l, or Nop when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop{}
	}
	return l
}

// With returns a Logger that adds base to every entry. Per-call fields win on
// key collisions.
func With(l Logger, base Fields) Logger {
	l = OrNop(l)
	if len(base) == 0 {
		return l
	}
	if _, ok := l.(Nop); ok {
		return l
	}
	return withFields{next: l, base: base}
}

type withFields struct {
	next Logger
	base Fields
}

func (w withFields) merge(f Fields) Fields {
	out := make(Fields, len(w.base)+len(f))
	for k, v := range w.base {
		out[k] = v
	}
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (w withFields) Debug(msg string, f Fields) { w.next.Debug(msg, w.merge(f)) }
func (w withFields) Info(msg string, f Fields)  { w.next.Info(msg, w.merge(f)) }
func (w withFields) Warn(msg string, f Fields)  { w.next.Warn(msg, w.merge(f)) }
func (w withFields) Error(msg string, f Fields) { w.next.Error(msg, w.merge(f)) }
