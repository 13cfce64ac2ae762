package core

// Logger logs messages with optional context args.
// Accepted args are errors, maps of extras and at most one Identity.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Identity identifies the person a log entry is about.
type Identity interface {
	Identity() (id, name, email string)
}
